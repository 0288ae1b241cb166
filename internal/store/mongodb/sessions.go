package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

type sessionDoc struct {
	ID        string              `bson:"_id"`
	UserID    string              `bson:"userId,omitempty"`
	CreatedAt time.Time           `bson:"createdAt"`
	ExpiresAt time.Time           `bson:"expiresAt"`
	RevokedAt *time.Time          `bson:"revokedAt,omitempty"`
	Flashes   map[string][]string `bson:"flashes,omitempty"`
}

func liveSession(id string, now time.Time) bson.M {
	return bson.M{
		"_id":       id,
		"revokedAt": bson.M{"$exists": false},
		"expiresAt": bson.M{"$gt": now},
	}
}

func (s *Store) CreateSession(ctx context.Context, sess domain.Session) error {
	doc := sessionDoc{
		ID:        sess.ID,
		UserID:    sess.UserID,
		CreatedAt: sess.CreatedAt,
		ExpiresAt: sess.ExpiresAt,
	}
	if _, err := s.sessions.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string, now time.Time) (domain.Session, error) {
	var d sessionDoc
	err := s.sessions.FindOne(ctx, liveSession(sessionID, now),
		options.FindOne().SetProjection(bson.M{"flashes": 0})).Decode(&d)
	if err != nil {
		if notFound(err) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	return domain.Session{
		ID:        d.ID,
		UserID:    d.UserID,
		CreatedAt: d.CreatedAt,
		ExpiresAt: d.ExpiresAt,
		RevokedAt: d.RevokedAt,
	}, nil
}

func (s *Store) TouchSession(ctx context.Context, sessionID string, expiresAt time.Time) error {
	filter := bson.M{"_id": sessionID, "revokedAt": bson.M{"$exists": false}}
	res, err := s.sessions.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"expiresAt": expiresAt}})
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) RevokeSession(ctx context.Context, sessionID string, when time.Time) error {
	filter := bson.M{"_id": sessionID, "revokedAt": bson.M{"$exists": false}}
	update := bson.M{
		"$set":   bson.M{"revokedAt": when},
		"$unset": bson.M{"flashes": ""},
	}
	if _, err := s.sessions.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *Store) PushFlash(ctx context.Context, sessionID, key, message string) error {
	res, err := s.sessions.UpdateOne(ctx, liveSession(sessionID, time.Now()),
		bson.M{"$push": bson.M{"flashes." + key: message}})
	if err != nil {
		return fmt.Errorf("push flash: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// PopFlashes unsets the queue and returns what it held before the update.
func (s *Store) PopFlashes(ctx context.Context, sessionID, key string) ([]string, error) {
	field := "flashes." + key
	var d sessionDoc
	err := s.sessions.FindOneAndUpdate(ctx,
		bson.M{"_id": sessionID, field: bson.M{"$exists": true}},
		bson.M{"$unset": bson.M{field: ""}},
		options.FindOneAndUpdate().
			SetReturnDocument(options.Before).
			SetProjection(bson.M{field: 1}),
	).Decode(&d)
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("pop flashes: %w", err)
	}
	return d.Flashes[key], nil
}

// DeleteExpired complements the TTL index, which only runs once a minute.
func (s *Store) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.sessions.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.DeletedCount, nil
}
