package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

func TestUsersUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, domain.NewUser{Username: "alice", PasswordHash: "h"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)

	_, err = s.CreateUser(ctx, domain.NewUser{Username: "alice"})
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)

	gh, err := s.CreateUser(ctx, domain.NewUser{Username: "octo", Provider: domain.ProviderGitHub, ProviderID: "1"})
	require.NoError(t, err)
	assert.Equal(t, "1", gh.ExternalIDs[domain.ProviderGitHub])

	_, err = s.CreateUser(ctx, domain.NewUser{Username: "octo2", Provider: domain.ProviderGitHub, ProviderID: "1"})
	assert.ErrorIs(t, err, domain.ErrExternalAccountExists)

	got, err := s.GetUserByExternalID(ctx, domain.ProviderGitHub, "1")
	require.NoError(t, err)
	assert.Equal(t, gh.ID, got.ID)

	_, err = s.GetUserByExternalID(ctx, domain.ProviderDiscord, "1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserMutations(t *testing.T) {
	s := New()
	ctx := context.Background()
	u, err := s.CreateUser(ctx, domain.NewUser{Username: "alice", Email: "alice@example.com", PasswordHash: "old"})
	require.NoError(t, err)

	require.NoError(t, s.SetPasswordHash(ctx, u.ID, "new"))
	hash, err := s.GetPasswordHash(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", hash)

	require.NoError(t, s.UpdateProfile(ctx, u.ID, "Alice", "a@example.com"))
	require.NoError(t, s.SetAvatar(ctx, u.ID, "/uploads/x.png"))
	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.DisplayName)
	assert.Equal(t, "/uploads/x.png", got.AvatarURL)

	byEmail, err := s.GetUserByEmail(ctx, "A@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	assert.ErrorIs(t, s.SetAvatar(ctx, "missing", "x"), domain.ErrNotFound)
}

func TestResetTokenConsumedOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()
	u, err := s.CreateUser(ctx, domain.NewUser{Username: "alice", PasswordHash: "old"})
	require.NoError(t, err)

	require.NoError(t, s.CreateResetToken(ctx, domain.PasswordResetToken{UserID: u.ID, TokenHash: "h1", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.CreateResetToken(ctx, domain.PasswordResetToken{UserID: u.ID, TokenHash: "h2", ExpiresAt: now.Add(time.Hour)}))

	_, err = s.GetResetTokenByHash(ctx, "h1")
	assert.ErrorIs(t, err, domain.ErrNotFound, "older token should be retired")

	_, err = s.ConsumeResetToken(ctx, "h2", "new", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, domain.ErrNotFound, "expired token must not be consumed")

	id, err := s.ConsumeResetToken(ctx, "h2", "new", now)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	_, err = s.ConsumeResetToken(ctx, "h2", "newer", now)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	hash, _ := s.GetPasswordHash(ctx, u.ID)
	assert.Equal(t, "new", hash)
}

func TestSessionsAndFlashes(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.CreateSession(ctx, domain.Session{ID: "s1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))

	_, err := s.GetSession(ctx, "s1", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, domain.ErrNotFound, "expired session")

	require.NoError(t, s.PushFlash(ctx, "s1", "loginMessage", "one"))
	require.NoError(t, s.PushFlash(ctx, "s1", "loginMessage", "two"))
	msgs, err := s.PopFlashes(ctx, "s1", "loginMessage")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, msgs)
	msgs, _ = s.PopFlashes(ctx, "s1", "loginMessage")
	assert.Empty(t, msgs)

	require.NoError(t, s.TouchSession(ctx, "s1", now.Add(3*time.Hour)))
	_, err = s.GetSession(ctx, "s1", now.Add(2*time.Hour))
	require.NoError(t, err)

	require.NoError(t, s.RevokeSession(ctx, "s1", now))
	_, err = s.GetSession(ctx, "s1", now)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.PushFlash(ctx, "s1", "k", "v"), domain.ErrNotFound)
}

func TestApplicationsScopedToOwner(t *testing.T) {
	s := New()
	ctx := context.Background()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	first, err := s.CreateApplication(ctx, domain.Application{OwnerID: "u1", Company: "Acme", CreatedAt: t0})
	require.NoError(t, err)
	second, err := s.CreateApplication(ctx, domain.Application{OwnerID: "u1", Company: "Globex", CreatedAt: t0.Add(time.Hour)})
	require.NoError(t, err)
	_, err = s.CreateApplication(ctx, domain.Application{OwnerID: "u2", Company: "Initech", CreatedAt: t0})
	require.NoError(t, err)

	list, err := s.ListApplications(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	_, err = s.GetApplication(ctx, "u2", first.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	status := "offer"
	updated, err := s.UpdateApplication(ctx, "u1", first.ID, domain.ApplicationPatch{Status: &status}, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "Acme", updated.Company)
	assert.Equal(t, "offer", updated.Status)

	_, err = s.UpdateApplication(ctx, "u2", first.ID, domain.ApplicationPatch{Status: &status}, t0)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, s.DeleteApplication(ctx, "u2", first.ID), domain.ErrNotFound)
	require.NoError(t, s.DeleteApplication(ctx, "u1", first.ID))
	assert.ErrorIs(t, s.DeleteApplication(ctx, "u1", first.ID), domain.ErrNotFound)
}
