// Package memory keeps users, sessions, reset tokens and job applications in
// process memory. It backs dev runs without a database and the HTTP tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

type userRecord struct {
	user         domain.User
	passwordHash string
}

type sessionRecord struct {
	sess    domain.Session
	flashes map[string][]string
}

type Store struct {
	mu sync.Mutex

	users        map[string]*userRecord
	byUsername   map[string]string
	byExternal   map[string]string
	sessions     map[string]*sessionRecord
	resetTokens  map[string]domain.PasswordResetToken
	applications map[string]domain.Application

	Now func() time.Time
}

func New() *Store {
	return &Store{
		users:        map[string]*userRecord{},
		byUsername:   map[string]string{},
		byExternal:   map[string]string{},
		sessions:     map[string]*sessionRecord{},
		resetTokens:  map[string]domain.PasswordResetToken{},
		applications: map[string]domain.Application{},
		Now:          time.Now,
	}
}

// Ping satisfies the health check.
func (s *Store) Ping(context.Context) error { return nil }

func externalKey(p domain.Provider, id string) string { return string(p) + ":" + id }

func copyUser(u domain.User) domain.User {
	if u.ExternalIDs != nil {
		ids := make(map[domain.Provider]string, len(u.ExternalIDs))
		for k, v := range u.ExternalIDs {
			ids[k] = v
		}
		u.ExternalIDs = ids
	}
	return u
}

func (s *Store) CreateUser(_ context.Context, nu domain.NewUser) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[nu.Username]; ok {
		return domain.User{}, domain.ErrUsernameTaken
	}
	if nu.Provider != "" {
		if _, ok := s.byExternal[externalKey(nu.Provider, nu.ProviderID)]; ok {
			return domain.User{}, domain.ErrExternalAccountExists
		}
	}

	now := s.Now()
	u := domain.User{
		ID:          uuid.NewString(),
		Username:    nu.Username,
		DisplayName: nu.DisplayName,
		Email:       nu.Email,
		AvatarURL:   nu.AvatarURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if nu.Provider != "" {
		u.ExternalIDs = map[domain.Provider]string{nu.Provider: nu.ProviderID}
		s.byExternal[externalKey(nu.Provider, nu.ProviderID)] = u.ID
	}
	s.users[u.ID] = &userRecord{user: u, passwordHash: nu.PasswordHash}
	s.byUsername[u.Username] = u.ID
	return copyUser(u), nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return copyUser(rec.user), nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (domain.UserWithPassword, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[s.byUsername[username]]
	if !ok {
		return domain.UserWithPassword{}, domain.ErrNotFound
	}
	return domain.UserWithPassword{User: copyUser(rec.user), PasswordHash: rec.passwordHash}, nil
}

// GetUserByEmail returns the oldest identity with that email.
func (s *Store) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *userRecord
	for _, rec := range s.users {
		if !strings.EqualFold(rec.user.Email, email) {
			continue
		}
		if found == nil || rec.user.CreatedAt.Before(found.user.CreatedAt) {
			found = rec
		}
	}
	if found == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return copyUser(found.user), nil
}

func (s *Store) GetUserByExternalID(_ context.Context, provider domain.Provider, providerID string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[s.byExternal[externalKey(provider, providerID)]]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return copyUser(rec.user), nil
}

func (s *Store) GetPasswordHash(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[userID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return rec.passwordHash, nil
}

func (s *Store) SetPasswordHash(_ context.Context, userID, passwordHash string) error {
	return s.mutateUser(userID, func(rec *userRecord) { rec.passwordHash = passwordHash })
}

func (s *Store) UpdateProfile(_ context.Context, userID, displayName, email string) error {
	return s.mutateUser(userID, func(rec *userRecord) {
		rec.user.DisplayName = displayName
		rec.user.Email = email
	})
}

func (s *Store) SetAvatar(_ context.Context, userID, avatarURL string) error {
	return s.mutateUser(userID, func(rec *userRecord) { rec.user.AvatarURL = avatarURL })
}

func (s *Store) mutateUser(userID string, fn func(*userRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	fn(rec)
	rec.user.UpdatedAt = s.Now()
	return nil
}

func (s *Store) CreateResetToken(_ context.Context, token domain.PasswordResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for h, t := range s.resetTokens {
		if t.UserID == token.UserID {
			delete(s.resetTokens, h)
		}
	}
	s.resetTokens[token.TokenHash] = token
	return nil
}

func (s *Store) GetResetTokenByHash(_ context.Context, tokenHash string) (domain.PasswordResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.resetTokens[tokenHash]
	if !ok {
		return domain.PasswordResetToken{}, domain.ErrNotFound
	}
	return t, nil
}

func (s *Store) ConsumeResetToken(_ context.Context, tokenHash, passwordHash string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.resetTokens[tokenHash]
	if !ok || t.UsedAt != nil || !t.ExpiresAt.After(now) {
		return "", domain.ErrNotFound
	}
	rec, ok := s.users[t.UserID]
	if !ok {
		return "", domain.ErrNotFound
	}
	t.UsedAt = &now
	s.resetTokens[tokenHash] = t
	rec.passwordHash = passwordHash
	rec.user.UpdatedAt = now
	return t.UserID, nil
}

func (s *Store) CreateSession(_ context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = &sessionRecord{sess: sess, flashes: map[string][]string{}}
	return nil
}

func (s *Store) live(id string, now time.Time) (*sessionRecord, bool) {
	rec, ok := s.sessions[id]
	if !ok || rec.sess.RevokedAt != nil || !rec.sess.ExpiresAt.After(now) {
		return nil, false
	}
	return rec, true
}

func (s *Store) GetSession(_ context.Context, sessionID string, now time.Time) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.live(sessionID, now)
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return rec.sess, nil
}

func (s *Store) TouchSession(_ context.Context, sessionID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	rec.sess.ExpiresAt = expiresAt
	return nil
}

func (s *Store) RevokeSession(_ context.Context, sessionID string, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	if rec.sess.RevokedAt == nil {
		rec.sess.RevokedAt = &when
	}
	rec.flashes = map[string][]string{}
	return nil
}

func (s *Store) PushFlash(_ context.Context, sessionID, key, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.live(sessionID, s.Now())
	if !ok {
		return domain.ErrNotFound
	}
	rec.flashes[key] = append(rec.flashes[key], message)
	return nil
}

func (s *Store) PopFlashes(_ context.Context, sessionID, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	out := rec.flashes[key]
	delete(rec.flashes, key)
	return out, nil
}

func (s *Store) CreateApplication(_ context.Context, a domain.Application) (domain.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = uuid.NewString()
	s.applications[a.ID] = a
	return a, nil
}

// ListApplications returns the owner's records, newest first.
func (s *Store) ListApplications(_ context.Context, ownerID string) ([]domain.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Application, 0)
	for _, a := range s.applications {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetApplication(_ context.Context, ownerID, id string) (domain.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.applications[id]
	if !ok || a.OwnerID != ownerID {
		return domain.Application{}, domain.ErrNotFound
	}
	return a, nil
}

func (s *Store) UpdateApplication(_ context.Context, ownerID, id string, patch domain.ApplicationPatch, now time.Time) (domain.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.applications[id]
	if !ok || a.OwnerID != ownerID {
		return domain.Application{}, domain.ErrNotFound
	}
	a = patch.Apply(a)
	a.UpdatedAt = now
	s.applications[id] = a
	return a, nil
}

func (s *Store) DeleteApplication(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.applications[id]
	if !ok || a.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	delete(s.applications, id)
	return nil
}

// DeleteExpired drops sessions that expired before cutoff.
func (s *Store) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, rec := range s.sessions {
		if rec.sess.ExpiresAt.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}
