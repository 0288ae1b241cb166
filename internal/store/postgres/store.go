package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store bundles the table stores over one pool so it can be handed to every
// service as a single value.
type Store struct {
	*UsersStore
	*SessionsStore
	*PasswordResetStore
	*ApplicationsStore

	db *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		UsersStore:         NewUsersStore(pool),
		SessionsStore:      NewSessionsStore(pool),
		PasswordResetStore: NewPasswordResetStore(pool),
		ApplicationsStore:  NewApplicationsStore(pool),
		db:                 pool,
	}
}

func (s *Store) Ping(ctx context.Context) error { return s.db.Ping(ctx) }

func (s *Store) Close() { s.db.Close() }
