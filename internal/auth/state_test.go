package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestStateCodec_RoundTrip(t *testing.T) {
	codec, err := NewStateCodec([]byte(strings.Repeat("s", 32)), time.Minute)
	if err != nil {
		t.Fatalf("NewStateCodec: %v", err)
	}

	state, err := codec.Issue("github")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := codec.Verify(state, "github"); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := codec.Verify(state, "discord"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected provider mismatch to fail, got %v", err)
	}
}

func TestStateCodec_Expired(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	codec, err := NewStateCodec([]byte("secret"), time.Minute)
	if err != nil {
		t.Fatalf("NewStateCodec: %v", err)
	}
	codec.Now = func() time.Time { return now }

	state, err := codec.Issue("google")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	codec.Now = func() time.Time { return now.Add(2 * time.Minute) }
	if err := codec.Verify(state, "google"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected expired state to fail, got %v", err)
	}
}

func TestStateCodec_WrongSecret(t *testing.T) {
	a, _ := NewStateCodec([]byte("secret-a"), time.Minute)
	b, _ := NewStateCodec([]byte("secret-b"), time.Minute)

	state, err := a.Issue("github")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := b.Verify(state, "github"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected foreign state to fail, got %v", err)
	}
	if err := b.Verify("", "github"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected empty state to fail")
	}
}

func TestNewStateCodec_RequiresSecret(t *testing.T) {
	if _, err := NewStateCodec(nil, time.Minute); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
