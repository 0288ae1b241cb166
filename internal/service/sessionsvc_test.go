package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

type stubSessionsStore struct {
	t *testing.T

	createSessionFunc func(context.Context, domain.Session) error
	getSessionFunc    func(context.Context, string, time.Time) (domain.Session, error)
	touchSessionFunc  func(context.Context, string, time.Time) error
	revokeSessionFunc func(context.Context, string, time.Time) error
	pushFlashFunc     func(context.Context, string, string, string) error
	popFlashesFunc    func(context.Context, string, string) ([]string, error)
}

func (s *stubSessionsStore) CreateSession(ctx context.Context, sess domain.Session) error {
	if s.createSessionFunc != nil {
		return s.createSessionFunc(ctx, sess)
	}
	s.t.Fatalf("CreateSession called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubSessionsStore) GetSession(ctx context.Context, sessionID string, now time.Time) (domain.Session, error) {
	if s.getSessionFunc != nil {
		return s.getSessionFunc(ctx, sessionID, now)
	}
	s.t.Fatalf("GetSession called unexpectedly")
	return domain.Session{}, errors.New("unexpected call")
}

func (s *stubSessionsStore) TouchSession(ctx context.Context, sessionID string, expiresAt time.Time) error {
	if s.touchSessionFunc != nil {
		return s.touchSessionFunc(ctx, sessionID, expiresAt)
	}
	s.t.Fatalf("TouchSession called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubSessionsStore) RevokeSession(ctx context.Context, sessionID string, when time.Time) error {
	if s.revokeSessionFunc != nil {
		return s.revokeSessionFunc(ctx, sessionID, when)
	}
	s.t.Fatalf("RevokeSession called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubSessionsStore) PushFlash(ctx context.Context, sessionID, key, message string) error {
	if s.pushFlashFunc != nil {
		return s.pushFlashFunc(ctx, sessionID, key, message)
	}
	s.t.Fatalf("PushFlash called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubSessionsStore) PopFlashes(ctx context.Context, sessionID, key string) ([]string, error) {
	if s.popFlashesFunc != nil {
		return s.popFlashesFunc(ctx, sessionID, key)
	}
	s.t.Fatalf("PopFlashes called unexpectedly")
	return nil, errors.New("unexpected call")
}

func TestSessionServiceLoginRotatesID(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	var created domain.Session
	revoked := ""
	sessions := &stubSessionsStore{
		t: t,
		revokeSessionFunc: func(_ context.Context, id string, when time.Time) error {
			revoked = id
			if !when.Equal(now) {
				t.Fatalf("unexpected revoke time: %s", when)
			}
			return nil
		},
		createSessionFunc: func(_ context.Context, sess domain.Session) error {
			created = sess
			return nil
		},
	}
	svc := &SessionService{Store: sessions, TTL: 24 * time.Hour, Now: func() time.Time { return now }}

	sess, err := svc.Login(context.Background(), "anon-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revoked != "anon-1" {
		t.Fatalf("expected previous session to be revoked, got %q", revoked)
	}
	if sess.ID == "" || sess.ID == "anon-1" || sess.ID != created.ID {
		t.Fatalf("expected a fresh session id, got %q", sess.ID)
	}
	if sess.UserID != "user-1" || !sess.ExpiresAt.Equal(now.Add(24*time.Hour)) {
		t.Fatalf("unexpected session: %+v", sess)
	}
}

func TestSessionServiceResolve(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	touched := time.Time{}
	sessions := &stubSessionsStore{
		t: t,
		getSessionFunc: func(_ context.Context, id string, at time.Time) (domain.Session, error) {
			switch id {
			case "fresh":
				return domain.Session{ID: id, UserID: "user-1", ExpiresAt: now.Add(23 * time.Hour)}, nil
			case "stale":
				return domain.Session{ID: id, UserID: "user-1", ExpiresAt: now.Add(time.Hour)}, nil
			case "anon":
				return domain.Session{ID: id, ExpiresAt: now.Add(20 * time.Hour)}, nil
			default:
				return domain.Session{}, domain.ErrNotFound
			}
		},
		touchSessionFunc: func(_ context.Context, id string, expiresAt time.Time) error {
			if id != "stale" {
				t.Fatalf("unexpected touch of %s", id)
			}
			touched = expiresAt
			return nil
		},
	}
	users := &stubUsersStore{
		t: t,
		getUserByIDFunc: func(_ context.Context, id string) (domain.User, error) {
			return domain.User{ID: id, Username: "alice"}, nil
		},
	}
	svc := &SessionService{Store: sessions, Users: users, TTL: 24 * time.Hour, Now: func() time.Time { return now }}
	ctx := context.Background()

	_, u, err := svc.Resolve(ctx, "fresh")
	if err != nil || u == nil || u.ID != "user-1" {
		t.Fatalf("fresh: %+v %v", u, err)
	}
	if !touched.IsZero() {
		t.Fatalf("fresh session must not be touched")
	}

	sess, _, err := svc.Resolve(ctx, "stale")
	if err != nil {
		t.Fatalf("stale: %v", err)
	}
	if !touched.Equal(now.Add(24*time.Hour)) || !sess.ExpiresAt.Equal(touched) {
		t.Fatalf("expected sliding expiry, touched=%s sess=%s", touched, sess.ExpiresAt)
	}

	sess, u, err = svc.Resolve(ctx, "anon")
	if err != nil || u != nil || sess.Authenticated() {
		t.Fatalf("anon: %+v %+v %v", sess, u, err)
	}

	if _, _, err := svc.Resolve(ctx, "missing"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSessionServiceLogoutIgnoresMissing(t *testing.T) {
	sessions := &stubSessionsStore{
		t: t,
		revokeSessionFunc: func(context.Context, string, time.Time) error {
			return domain.ErrNotFound
		},
	}
	svc := &SessionService{Store: sessions}
	if err := svc.Logout(context.Background(), "gone"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Logout(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSessionServiceFlashes(t *testing.T) {
	queue := map[string][]string{}
	sessions := &stubSessionsStore{
		t: t,
		pushFlashFunc: func(_ context.Context, id, key, msg string) error {
			queue[id+"/"+key] = append(queue[id+"/"+key], msg)
			return nil
		},
		popFlashesFunc: func(_ context.Context, id, key string) ([]string, error) {
			out := queue[id+"/"+key]
			delete(queue, id+"/"+key)
			return out, nil
		},
	}
	svc := &SessionService{Store: sessions}
	ctx := context.Background()

	if err := svc.AddFlash(ctx, "s1", "loginMessage", "AuthenticationError"); err != nil {
		t.Fatalf("AddFlash: %v", err)
	}
	got, err := svc.Flashes(ctx, "s1", "loginMessage")
	if err != nil || len(got) != 1 || got[0] != "AuthenticationError" {
		t.Fatalf("first read: %v %v", got, err)
	}
	got, err = svc.Flashes(ctx, "s1", "loginMessage")
	if err != nil || len(got) != 0 {
		t.Fatalf("expected flashes to be cleared after read, got %v", got)
	}
	if got, _ := svc.Flashes(ctx, "", "loginMessage"); got != nil {
		t.Fatalf("expected no flashes without a session")
	}
}
