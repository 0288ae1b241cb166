package mongodb

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

func TestUserDocToDomain(t *testing.T) {
	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	d := newUserDoc(domain.NewUser{
		Username:    "octo",
		DisplayName: "Octo Cat",
		Provider:    domain.ProviderGitHub,
		ProviderID:  "42",
	}, now)

	u := d.toDomain()
	assert.Equal(t, d.ID.Hex(), u.ID)
	assert.Equal(t, "octo", u.Username)
	assert.Equal(t, map[domain.Provider]string{domain.ProviderGitHub: "42"}, u.ExternalIDs)
	assert.Equal(t, map[string]string{"githubId": "42"}, d.OAuth)

	local := newUserDoc(domain.NewUser{Username: "alice", PasswordHash: "h"}, now).toDomain()
	assert.Nil(t, local.ExternalIDs)
}

func TestMapUserWriteError(t *testing.T) {
	dup := func(msg string) error {
		return mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: msg}}}
	}

	assert.ErrorIs(t, mapUserWriteError(dup("E11000 duplicate key error collection: cp.users index: username_uq dup key")), domain.ErrUsernameTaken)
	assert.ErrorIs(t, mapUserWriteError(dup("E11000 duplicate key error collection: cp.users index: github_id_uq dup key")), domain.ErrExternalAccountExists)

	other := errors.New("boom")
	err := mapUserWriteError(other)
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, domain.ErrUsernameTaken)
}

func TestPatchUpdate(t *testing.T) {
	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	company := "  Acme "
	got := patchUpdate(domain.ApplicationPatch{Company: &company, ClearDate: true}, now)

	assert.Equal(t, bson.M{"company": "Acme", "updatedAt": now}, got["$set"])
	assert.Equal(t, bson.M{"dateApplied": ""}, got["$unset"])

	d := time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)
	got = patchUpdate(domain.ApplicationPatch{DateApplied: &d}, now)
	assert.Equal(t, bson.M{"dateApplied": d, "updatedAt": now}, got["$set"])
	assert.NotContains(t, got, "$unset")
}

func TestObjectID(t *testing.T) {
	_, ok := objectID("not-an-id")
	assert.False(t, ok)

	oid := bson.NewObjectID()
	got, ok := objectID(oid.Hex())
	assert.True(t, ok)
	assert.Equal(t, oid, got)
}

// TestStoreAgainstServer runs when CP_TEST_MONGO_DSN points at a disposable server.
func TestStoreAgainstServer(t *testing.T) {
	dsn := os.Getenv("CP_TEST_MONGO_DSN")
	if dsn == "" {
		t.Skip("CP_TEST_MONGO_DSN not set")
	}
	ctx := context.Background()
	dbName := "cp_test_" + bson.NewObjectID().Hex()

	s, err := Open(ctx, dsn, dbName)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.client.Database(dbName).Drop(context.Background())
		_ = s.Close(context.Background())
	})
	require.NoError(t, s.EnsureIndexes(ctx))

	u, err := s.CreateUser(ctx, domain.NewUser{Username: "alice", Email: "a@example.com", PasswordHash: "h1"})
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, domain.NewUser{Username: "alice"})
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)

	_, err = s.CreateUser(ctx, domain.NewUser{Username: "gh1", Provider: domain.ProviderGitHub, ProviderID: "7"})
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, domain.NewUser{Username: "gh2", Provider: domain.ProviderGitHub, ProviderID: "7"})
	assert.ErrorIs(t, err, domain.ErrExternalAccountExists)

	now := time.Now().UTC()
	require.NoError(t, s.CreateResetToken(ctx, domain.PasswordResetToken{
		UserID: u.ID, TokenHash: "th", CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))
	id, err := s.ConsumeResetToken(ctx, "th", "h2", now)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
	_, err = s.ConsumeResetToken(ctx, "th", "h3", now)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	hash, err := s.GetPasswordHash(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "h2", hash)

	require.NoError(t, s.CreateSession(ctx, domain.Session{ID: "sid", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.PushFlash(ctx, "sid", "loginMessage", "one"))
	require.NoError(t, s.PushFlash(ctx, "sid", "loginMessage", "two"))
	msgs, err := s.PopFlashes(ctx, "sid", "loginMessage")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, msgs)
	msgs, err = s.PopFlashes(ctx, "sid", "loginMessage")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	a, err := s.CreateApplication(ctx, domain.Application{OwnerID: u.ID, Company: "Acme", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	_, err = s.GetApplication(ctx, "someone-else", a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	status := "interview"
	updated, err := s.UpdateApplication(ctx, u.ID, a.ID, domain.ApplicationPatch{Status: &status}, now)
	require.NoError(t, err)
	assert.Equal(t, "Acme", updated.Company)
	assert.Equal(t, "interview", updated.Status)
	require.NoError(t, s.DeleteApplication(ctx, u.ID, a.ID))
	assert.ErrorIs(t, s.DeleteApplication(ctx, u.ID, a.ID), domain.ErrNotFound)
}
