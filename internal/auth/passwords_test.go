package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashPassword_NonDeterministic(t *testing.T) {
	p := "correct horse battery staple"
	h1, err := HashPassword(p)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword(p)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("expected different hashes for same password")
	}
}

func TestVerifyPassword(t *testing.T) {
	p := "correct horse battery staple"
	h, err := HashPassword(p)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	ok, err := VerifyPassword(h, p)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatalf("expected password to verify")
	}

	ok, err = VerifyPassword(h, "wrong password")
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if ok {
		t.Fatalf("expected wrong password to fail verification")
	}
}

func TestVerifyPassword_RejectsMalformedHash(t *testing.T) {
	for _, h := range []string{"", "plain", "$argon2i$v=19$m=1,t=1,p=1$c2FsdA$a2V5", "$argon2id$v=18$m=1,t=1,p=1$c2FsdA$a2V5"} {
		if _, err := VerifyPassword(h, "pw"); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("expected ErrMalformedHash for hash %q, got %v", h, err)
		}
	}
}

func TestBurnPasswordCheck(t *testing.T) {
	// Must not panic and must not depend on any stored user.
	BurnPasswordCheck("whatever")
}

func TestVerifyPassword_RefusesExpensiveParams(t *testing.T) {
	h, err := HashPassword("pw")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	for _, params := range []string{"m=4194304,t=3,p=2", "m=65536,t=999,p=2", "m=65536,t=3,p=0"} {
		tampered := strings.Replace(h, "m=65536,t=3,p=2", params, 1)
		if _, err := VerifyPassword(tampered, "pw"); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("params %s: expected ErrMalformedHash, got %v", params, err)
		}
	}
}

func TestHashPassword_EncodesCost(t *testing.T) {
	h, err := HashPassword("pw")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(h, "$argon2id$v=19$m=65536,t=3,p=2$") {
		t.Fatalf("unexpected hash prefix: %s", h)
	}
}
