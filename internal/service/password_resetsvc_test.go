package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/auth"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

// memResetStore mirrors the conditional-update semantics of the real stores.
type memResetStore struct {
	mu        sync.Mutex
	tokens    map[string]domain.PasswordResetToken
	passwords map[string]string
}

func newMemResetStore() *memResetStore {
	return &memResetStore{tokens: map[string]domain.PasswordResetToken{}, passwords: map[string]string{}}
}

func (m *memResetStore) CreateResetToken(_ context.Context, token domain.PasswordResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h, tok := range m.tokens {
		if tok.UserID == token.UserID {
			delete(m.tokens, h)
		}
	}
	m.tokens[token.TokenHash] = token
	return nil
}

func (m *memResetStore) GetResetTokenByHash(_ context.Context, tokenHash string) (domain.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[tokenHash]
	if !ok {
		return domain.PasswordResetToken{}, domain.ErrNotFound
	}
	return tok, nil
}

func (m *memResetStore) ConsumeResetToken(_ context.Context, tokenHash, passwordHash string, now time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[tokenHash]
	if !ok || tok.UsedAt != nil || !tok.ExpiresAt.After(now) {
		return "", domain.ErrNotFound
	}
	tok.UsedAt = &now
	m.tokens[tokenHash] = tok
	m.passwords[tok.UserID] = passwordHash
	return tok.UserID, nil
}

type recordingNotifier struct {
	to, token string
	calls     int
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, to, token string) error {
	n.calls++
	n.to, n.token = to, token
	return nil
}

func resetUsers(t *testing.T) *stubUsersStore {
	return &stubUsersStore{
		t: t,
		getUserByEmailFunc: func(_ context.Context, email string) (domain.User, error) {
			if email == "alice@example.com" {
				return domain.User{ID: "user-1", Username: "alice", Email: email}, nil
			}
			return domain.User{}, domain.ErrNotFound
		},
		getUserByIDFunc: func(_ context.Context, id string) (domain.User, error) {
			if id == "user-1" {
				return domain.User{ID: "user-1", Username: "alice"}, nil
			}
			return domain.User{}, domain.ErrNotFound
		},
	}
}

func TestPasswordResetIssueIsIndistinguishable(t *testing.T) {
	store := newMemResetStore()
	notifier := &recordingNotifier{}
	svc := &PasswordResetService{Store: store, Users: resetUsers(t), Notifier: notifier}
	ctx := context.Background()

	known, err := svc.IssueResetToken(ctx, " Alice@Example.com ")
	if err != nil || known == "" {
		t.Fatalf("known email: %q %v", known, err)
	}
	unknown, err := svc.IssueResetToken(ctx, "nobody@example.com")
	if err != nil || unknown == "" {
		t.Fatalf("unknown email: %q %v", unknown, err)
	}
	if len(known) != len(unknown) {
		t.Fatalf("expected tokens of equal shape")
	}
	if len(store.tokens) != 1 {
		t.Fatalf("expected only the matching user's token to be stored, got %d", len(store.tokens))
	}
	if notifier.calls != 1 || notifier.to != "alice@example.com" || notifier.token != known {
		t.Fatalf("unexpected notifier state: %+v", notifier)
	}
	for h := range store.tokens {
		if h == known {
			t.Fatalf("raw token must not be stored")
		}
	}
}

func TestPasswordResetSingleUse(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	store := newMemResetStore()
	svc := &PasswordResetService{Store: store, Users: resetUsers(t), Now: func() time.Time { return now }}
	ctx := context.Background()

	token, err := svc.IssueResetToken(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("IssueResetToken: %v", err)
	}
	if u, err := svc.CheckResetToken(ctx, token); err != nil || u.ID != "user-1" {
		t.Fatalf("CheckResetToken: %+v %v", u, err)
	}

	u, err := svc.ConsumeResetToken(ctx, token, "brand-new-password")
	if err != nil || u.ID != "user-1" {
		t.Fatalf("ConsumeResetToken: %+v %v", u, err)
	}
	if ok, _ := auth.VerifyPassword(store.passwords["user-1"], "brand-new-password"); !ok {
		t.Fatalf("expected new password to be stored")
	}

	if _, err := svc.ConsumeResetToken(ctx, token, "another-password"); !errors.Is(err, domain.ErrResetTokenInvalid) {
		t.Fatalf("expected second consume to fail, got %v", err)
	}
	if _, err := svc.CheckResetToken(ctx, token); !errors.Is(err, domain.ErrResetTokenInvalid) {
		t.Fatalf("expected used token to be invalid, got %v", err)
	}
}

func TestPasswordResetExpiry(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	store := newMemResetStore()
	svc := &PasswordResetService{Store: store, Users: resetUsers(t), Now: func() time.Time { return now }}
	ctx := context.Background()

	token, err := svc.IssueResetToken(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("IssueResetToken: %v", err)
	}

	svc.Now = func() time.Time { return now.Add(time.Hour) }
	if _, err := svc.CheckResetToken(ctx, token); !errors.Is(err, domain.ErrResetTokenInvalid) {
		t.Fatalf("expected expired token to be invalid, got %v", err)
	}
	if _, err := svc.ConsumeResetToken(ctx, token, "brand-new-password"); !errors.Is(err, domain.ErrResetTokenInvalid) {
		t.Fatalf("expected expired token consume to fail, got %v", err)
	}
}

func TestPasswordResetNewTokenRetiresOld(t *testing.T) {
	store := newMemResetStore()
	svc := &PasswordResetService{Store: store, Users: resetUsers(t)}
	ctx := context.Background()

	first, _ := svc.IssueResetToken(ctx, "alice@example.com")
	second, _ := svc.IssueResetToken(ctx, "alice@example.com")

	if _, err := svc.CheckResetToken(ctx, first); !errors.Is(err, domain.ErrResetTokenInvalid) {
		t.Fatalf("expected first token to be retired, got %v", err)
	}
	if _, err := svc.CheckResetToken(ctx, second); err != nil {
		t.Fatalf("expected second token to be valid, got %v", err)
	}
}

func TestPasswordResetRejectsWeakPassword(t *testing.T) {
	svc := &PasswordResetService{Store: newMemResetStore(), Users: resetUsers(t)}
	if _, err := svc.ConsumeResetToken(context.Background(), "tok", "short"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.CheckResetToken(context.Background(), "   "); !errors.Is(err, domain.ErrResetTokenInvalid) {
		t.Fatalf("expected blank token to be invalid, got %v", err)
	}
}
