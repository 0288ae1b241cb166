// Package redisstore keeps sessions and their flash queues in Redis. Keys
// expire together with the session, so no sweeping is needed. The names of a
// session's flash queues are tracked in a per-session set so touch and revoke
// never scan the keyspace.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

const (
	fieldUserID    = "user_id"
	fieldCreatedAt = "created_at"
	fieldExpiresAt = "expires_at"
	fieldRevokedAt = "revoked_at"
)

type SessionsStore struct {
	rdb *redis.Client
	Now func() time.Time
}

func NewSessionsStore(rdb *redis.Client) *SessionsStore {
	return &SessionsStore{rdb: rdb, Now: time.Now}
}

// Open parses a redis:// URL and pings the server.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func sessionKey(id string) string    { return "session:" + id }
func flashKey(id, key string) string { return "session:" + id + ":flash:" + key }
func flashIndexKey(id string) string  { return "session:" + id + ":flashes" }

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func (s *SessionsStore) CreateSession(ctx context.Context, sess domain.Session) error {
	key := sessionKey(sess.ID)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			fieldUserID, sess.UserID,
			fieldCreatedAt, formatTime(sess.CreatedAt),
			fieldExpiresAt, formatTime(sess.ExpiresAt),
		)
		p.ExpireAt(ctx, key, sess.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *SessionsStore) load(ctx context.Context, sessionID string) (domain.Session, error) {
	vals, err := s.rdb.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	if len(vals) == 0 {
		return domain.Session{}, domain.ErrNotFound
	}
	sess := domain.Session{ID: sessionID, UserID: vals[fieldUserID]}
	if sess.CreatedAt, err = time.Parse(time.RFC3339Nano, vals[fieldCreatedAt]); err != nil {
		return domain.Session{}, fmt.Errorf("session %s created_at: %w", sessionID, err)
	}
	if sess.ExpiresAt, err = time.Parse(time.RFC3339Nano, vals[fieldExpiresAt]); err != nil {
		return domain.Session{}, fmt.Errorf("session %s expires_at: %w", sessionID, err)
	}
	if raw, ok := vals[fieldRevokedAt]; ok {
		revoked, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return domain.Session{}, fmt.Errorf("session %s revoked_at: %w", sessionID, err)
		}
		sess.RevokedAt = &revoked
	}
	return sess, nil
}

func (s *SessionsStore) GetSession(ctx context.Context, sessionID string, now time.Time) (domain.Session, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if sess.RevokedAt != nil || !sess.ExpiresAt.After(now) {
		return domain.Session{}, domain.ErrNotFound
	}
	return sess, nil
}

func (s *SessionsStore) TouchSession(ctx context.Context, sessionID string, expiresAt time.Time) error {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.RevokedAt != nil {
		return domain.ErrNotFound
	}
	key := sessionKey(sessionID)
	flashes, err := s.flashKeys(ctx, sessionID)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, fieldExpiresAt, formatTime(expiresAt))
		p.ExpireAt(ctx, key, expiresAt)
		p.ExpireAt(ctx, flashIndexKey(sessionID), expiresAt)
		for _, fk := range flashes {
			p.ExpireAt(ctx, fk, expiresAt)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// RevokeSession marks the session revoked and drops its flash queues. The
// hash itself stays until it expires.
func (s *SessionsStore) RevokeSession(ctx context.Context, sessionID string, when time.Time) error {
	key := sessionKey(sessionID)
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	flashes, err := s.flashKeys(ctx, sessionID)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSetNX(ctx, key, fieldRevokedAt, formatTime(when))
		p.Del(ctx, append(flashes, flashIndexKey(sessionID))...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *SessionsStore) PushFlash(ctx context.Context, sessionID, key, message string) error {
	sess, err := s.GetSession(ctx, sessionID, s.Now())
	if err != nil {
		return err
	}
	fk := flashKey(sessionID, key)
	idx := flashIndexKey(sessionID)
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, fk, message)
		p.ExpireAt(ctx, fk, sess.ExpiresAt)
		p.SAdd(ctx, idx, fk)
		p.ExpireAt(ctx, idx, sess.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("push flash: %w", err)
	}
	return nil
}

// PopFlashes reads and deletes the queue in one MULTI block.
func (s *SessionsStore) PopFlashes(ctx context.Context, sessionID, key string) ([]string, error) {
	fk := flashKey(sessionID, key)
	var lr *redis.StringSliceCmd
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		lr = p.LRange(ctx, fk, 0, -1)
		p.Del(ctx, fk)
		p.SRem(ctx, flashIndexKey(sessionID), fk)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("pop flashes: %w", err)
	}
	msgs := lr.Val()
	if len(msgs) == 0 {
		return nil, nil
	}
	return msgs, nil
}

// flashKeys lists the session's flash queues from its index set.
func (s *SessionsStore) flashKeys(ctx context.Context, sessionID string) ([]string, error) {
	keys, err := s.rdb.SMembers(ctx, flashIndexKey(sessionID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("list flash keys: %w", err)
	}
	return keys, nil
}

// ErrorHook counts failed commands by name. redis.Nil is a miss, not a failure.
type ErrorHook struct {
	Errors *prometheus.CounterVec
}

func (h ErrorHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h ErrorHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			h.Errors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h ErrorHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			h.Errors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}
