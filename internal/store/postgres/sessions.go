package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

type SessionsStore struct {
	pool *pgxpool.Pool
}

func NewSessionsStore(pool *pgxpool.Pool) *SessionsStore {
	return &SessionsStore{pool: pool}
}

func (s *SessionsStore) CreateSession(ctx context.Context, sess domain.Session) error {
	const q = `
		INSERT INTO sessions (id, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.pool.Exec(ctx, q, sess.ID, nullIfEmpty(sess.UserID), sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *SessionsStore) GetSession(ctx context.Context, sessionID string, now time.Time) (domain.Session, error) {
	const q = `
		SELECT id, user_id, created_at, expires_at, revoked_at
		FROM sessions
		WHERE id = $1 AND revoked_at IS NULL AND expires_at > $2
	`

	var (
		sess      domain.Session
		userIDUU  pgtype.UUID
		revokedTS pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx, q, sessionID, now).Scan(
		&sess.ID,
		&userIDUU,
		&sess.CreatedAt,
		&sess.ExpiresAt,
		&revokedTS,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}

	sess.UserID = uuidOrEmpty(userIDUU)
	sess.RevokedAt = timestamptzPtr(revokedTS)
	return sess, nil
}

func (s *SessionsStore) TouchSession(ctx context.Context, sessionID string, expiresAt time.Time) error {
	const q = `
		UPDATE sessions
		SET expires_at = $2
		WHERE id = $1 AND revoked_at IS NULL
	`
	tag, err := s.pool.Exec(ctx, q, sessionID, expiresAt)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *SessionsStore) RevokeSession(ctx context.Context, sessionID string, when time.Time) error {
	const q = `
		UPDATE sessions
		SET revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL
	`
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, q, sessionID, when); err != nil {
			return fmt.Errorf("revoke session: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM session_flashes WHERE session_id = $1`, sessionID); err != nil {
			return fmt.Errorf("clear flashes: %w", err)
		}
		return nil
	})
}

func (s *SessionsStore) PushFlash(ctx context.Context, sessionID, key, message string) error {
	const q = `
		INSERT INTO session_flashes (session_id, key, message)
		SELECT id, $2, $3
		FROM sessions
		WHERE id = $1 AND revoked_at IS NULL AND expires_at > now()
	`
	tag, err := s.pool.Exec(ctx, q, sessionID, key, message)
	if err != nil {
		return fmt.Errorf("push flash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *SessionsStore) PopFlashes(ctx context.Context, sessionID, key string) ([]string, error) {
	const q = `
		WITH popped AS (
			DELETE FROM session_flashes
			WHERE session_id = $1 AND key = $2
			RETURNING id, message
		)
		SELECT message FROM popped ORDER BY id
	`
	rows, err := s.pool.Query(ctx, q, sessionID, key)
	if err != nil {
		return nil, fmt.Errorf("pop flashes: %w", err)
	}
	msgs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("pop flashes: %w", err)
	}
	return msgs, nil
}

// DeleteExpired removes sessions that expired before cutoff.
func (s *SessionsStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
