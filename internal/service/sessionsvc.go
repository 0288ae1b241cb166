package service

import (
	"context"
	"errors"
	"time"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/auth"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

type SessionsStore interface {
	CreateSession(ctx context.Context, sess domain.Session) error
	// GetSession returns domain.ErrNotFound for unknown, revoked or expired sessions.
	GetSession(ctx context.Context, sessionID string, now time.Time) (domain.Session, error)
	TouchSession(ctx context.Context, sessionID string, expiresAt time.Time) error
	RevokeSession(ctx context.Context, sessionID string, when time.Time) error
	PushFlash(ctx context.Context, sessionID, key, message string) error
	// PopFlashes returns and clears the queue stored under key.
	PopFlashes(ctx context.Context, sessionID, key string) ([]string, error)
}

type SessionUsers interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
}

// SessionService implements the anonymous/authenticated session lifecycle.
// Sessions are created lazily, their id is rotated when a user is bound to
// them and expiry slides forward while the session is in use.
type SessionService struct {
	Store SessionsStore
	Users SessionUsers
	TTL   time.Duration
	Now   func() time.Time
}

// Resolve loads a live session and, when bound, its user. Unknown or expired
// ids yield domain.ErrUnauthorized.
func (s *SessionService) Resolve(ctx context.Context, sessionID string) (domain.Session, *domain.User, error) {
	s.defaults()

	now := s.Now()
	sess, err := s.Store.GetSession(ctx, sessionID, now)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Session{}, nil, domain.ErrUnauthorized
		}
		return domain.Session{}, nil, err
	}

	if sess.ExpiresAt.Sub(now) < s.TTL/2 {
		expires := now.Add(s.TTL)
		if err := s.Store.TouchSession(ctx, sess.ID, expires); err != nil {
			return domain.Session{}, nil, err
		}
		sess.ExpiresAt = expires
	}

	if !sess.Authenticated() {
		return sess, nil, nil
	}

	u, err := s.Users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			sess.UserID = ""
			return sess, nil, nil
		}
		return domain.Session{}, nil, err
	}
	return sess, &u, nil
}

// Start creates an anonymous session.
func (s *SessionService) Start(ctx context.Context) (domain.Session, error) {
	return s.create(ctx, "")
}

// Login binds userID to a brand new session and revokes prevSessionID.
func (s *SessionService) Login(ctx context.Context, prevSessionID, userID string) (domain.Session, error) {
	if userID == "" {
		return domain.Session{}, domain.ErrUnauthorized
	}
	s.defaults()
	if prevSessionID != "" {
		if err := s.Store.RevokeSession(ctx, prevSessionID, s.Now()); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.Session{}, err
		}
	}
	return s.create(ctx, userID)
}

func (s *SessionService) Logout(ctx context.Context, sessionID string) error {
	s.defaults()
	if sessionID == "" {
		return nil
	}
	err := s.Store.RevokeSession(ctx, sessionID, s.Now())
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

func (s *SessionService) AddFlash(ctx context.Context, sessionID, key, message string) error {
	return s.Store.PushFlash(ctx, sessionID, key, message)
}

func (s *SessionService) Flashes(ctx context.Context, sessionID, key string) ([]string, error) {
	if sessionID == "" {
		return nil, nil
	}
	return s.Store.PopFlashes(ctx, sessionID, key)
}

func (s *SessionService) create(ctx context.Context, userID string) (domain.Session, error) {
	s.defaults()
	id, err := auth.NewSessionID()
	if err != nil {
		return domain.Session{}, err
	}
	now := s.Now()
	sess := domain.Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.TTL),
	}
	if err := s.Store.CreateSession(ctx, sess); err != nil {
		return domain.Session{}, err
	}
	return sess, nil
}

func (s *SessionService) defaults() {
	if s.Now == nil {
		s.Now = time.Now
	}
	if s.TTL == 0 {
		s.TTL = 24 * time.Hour
	}
}
