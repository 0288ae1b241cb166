// Package mongodb stores identities, sessions and job applications in
// MongoDB. User ids are ObjectID hex strings.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

const (
	usersCollection        = "users"
	sessionsCollection     = "sessions"
	applicationsCollection = "ApplicationData"
)

type Store struct {
	client       *mongo.Client
	users        *mongo.Collection
	sessions     *mongo.Collection
	applications *mongo.Collection
}

// Open connects, pings and returns a Store on database dbName.
func Open(ctx context.Context, dsn, dbName string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(dsn))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	db := client.Database(dbName)
	return &Store{
		client:       client,
		users:        db.Collection(usersCollection),
		sessions:     db.Collection(sessionsCollection),
		applications: db.Collection(applicationsCollection),
	}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique and TTL indexes the store relies on.
// It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName("username_uq").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("email_idx"),
		},
		{
			Keys:    bson.D{{Key: "reset.tokenHash", Value: 1}},
			Options: options.Index().SetName("reset_token_idx").SetSparse(true),
		},
	}
	for _, p := range domain.Providers {
		field := oauthField(p)
		userIndexes = append(userIndexes, mongo.IndexModel{
			Keys: bson.D{{Key: field, Value: 1}},
			Options: options.Index().
				SetName(string(p) + "_id_uq").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{field: bson.M{"$type": "string"}}),
		})
	}
	if _, err := s.users.Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	if _, err := s.sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetName("expires_ttl").SetExpireAfterSeconds(0),
	}); err != nil {
		return fmt.Errorf("sessions indexes: %w", err)
	}

	if _, err := s.applications.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("owner_created_idx"),
	}); err != nil {
		return fmt.Errorf("applications indexes: %w", err)
	}
	return nil
}

func oauthField(p domain.Provider) string { return "oauth." + p.IDField() }

// objectID parses hex ids; anything else cannot match a document.
func objectID(id string) (bson.ObjectID, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, false
	}
	return oid, true
}

func notFound(err error) bool { return errors.Is(err, mongo.ErrNoDocuments) }
