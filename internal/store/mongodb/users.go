package mongodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

type resetDoc struct {
	TokenHash   string     `bson:"tokenHash"`
	SentToEmail string     `bson:"sentToEmail"`
	CreatedAt   time.Time  `bson:"createdAt"`
	ExpiresAt   time.Time  `bson:"expiresAt"`
	UsedAt      *time.Time `bson:"usedAt,omitempty"`
}

type userDoc struct {
	ID           bson.ObjectID     `bson:"_id,omitempty"`
	Username     string            `bson:"username"`
	DisplayName  string            `bson:"displayName"`
	Email        string            `bson:"email,omitempty"`
	PasswordHash string            `bson:"passwordHash,omitempty"`
	AvatarURL    string            `bson:"avatarUrl,omitempty"`
	OAuth        map[string]string `bson:"oauth,omitempty"`
	Reset        *resetDoc         `bson:"reset,omitempty"`
	CreatedAt    time.Time         `bson:"createdAt"`
	UpdatedAt    time.Time         `bson:"updatedAt"`
}

func (d userDoc) toDomain() domain.User {
	u := domain.User{
		ID:          d.ID.Hex(),
		Username:    d.Username,
		DisplayName: d.DisplayName,
		Email:       d.Email,
		AvatarURL:   d.AvatarURL,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	for _, p := range domain.Providers {
		if id := d.OAuth[p.IDField()]; id != "" {
			if u.ExternalIDs == nil {
				u.ExternalIDs = map[domain.Provider]string{}
			}
			u.ExternalIDs[p] = id
		}
	}
	return u
}

func newUserDoc(nu domain.NewUser, now time.Time) userDoc {
	d := userDoc{
		ID:           bson.NewObjectID(),
		Username:     nu.Username,
		DisplayName:  nu.DisplayName,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		AvatarURL:    nu.AvatarURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if nu.Provider != "" {
		d.OAuth = map[string]string{nu.Provider.IDField(): nu.ProviderID}
	}
	return d
}

func (s *Store) CreateUser(ctx context.Context, nu domain.NewUser) (domain.User, error) {
	d := newUserDoc(nu, time.Now().UTC())
	if _, err := s.users.InsertOne(ctx, d); err != nil {
		return domain.User{}, mapUserWriteError(err)
	}
	return d.toDomain(), nil
}

func (s *Store) findUser(ctx context.Context, filter bson.M, opts ...options.Lister[options.FindOneOptions]) (userDoc, error) {
	var d userDoc
	if err := s.users.FindOne(ctx, filter, opts...).Decode(&d); err != nil {
		if notFound(err) {
			return userDoc{}, domain.ErrNotFound
		}
		return userDoc{}, fmt.Errorf("find user: %w", err)
	}
	return d, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	oid, ok := objectID(id)
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	d, err := s.findUser(ctx, bson.M{"_id": oid})
	if err != nil {
		return domain.User{}, err
	}
	return d.toDomain(), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (domain.UserWithPassword, error) {
	d, err := s.findUser(ctx, bson.M{"username": username})
	if err != nil {
		return domain.UserWithPassword{}, err
	}
	return domain.UserWithPassword{User: d.toDomain(), PasswordHash: d.PasswordHash}, nil
}

// GetUserByEmail returns the oldest identity with that email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	d, err := s.findUser(ctx, bson.M{"email": email},
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return domain.User{}, err
	}
	return d.toDomain(), nil
}

func (s *Store) GetUserByExternalID(ctx context.Context, provider domain.Provider, providerID string) (domain.User, error) {
	d, err := s.findUser(ctx, bson.M{oauthField(provider): providerID})
	if err != nil {
		return domain.User{}, err
	}
	return d.toDomain(), nil
}

func (s *Store) GetPasswordHash(ctx context.Context, userID string) (string, error) {
	oid, ok := objectID(userID)
	if !ok {
		return "", domain.ErrNotFound
	}
	d, err := s.findUser(ctx, bson.M{"_id": oid},
		options.FindOne().SetProjection(bson.M{"passwordHash": 1}))
	if err != nil {
		return "", err
	}
	return d.PasswordHash, nil
}

func (s *Store) SetPasswordHash(ctx context.Context, userID, passwordHash string) error {
	return s.updateUser(ctx, userID, bson.M{"passwordHash": passwordHash})
}

func (s *Store) UpdateProfile(ctx context.Context, userID, displayName, email string) error {
	return s.updateUser(ctx, userID, bson.M{"displayName": displayName, "email": email})
}

func (s *Store) SetAvatar(ctx context.Context, userID, avatarURL string) error {
	return s.updateUser(ctx, userID, bson.M{"avatarUrl": avatarURL})
}

func (s *Store) updateUser(ctx context.Context, userID string, set bson.M) error {
	oid, ok := objectID(userID)
	if !ok {
		return domain.ErrNotFound
	}
	set["updatedAt"] = time.Now().UTC()
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return mapUserWriteError(err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func mapUserWriteError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("write user: %w", err)
	}
	if strings.Contains(err.Error(), "username_uq") {
		return domain.ErrUsernameTaken
	}
	return domain.ErrExternalAccountExists
}

// CreateResetToken overwrites the user's reset sub-document, which retires
// any earlier token.
func (s *Store) CreateResetToken(ctx context.Context, token domain.PasswordResetToken) error {
	oid, ok := objectID(token.UserID)
	if !ok {
		return domain.ErrNotFound
	}
	doc := resetDoc{
		TokenHash:   token.TokenHash,
		SentToEmail: token.SentToEmail,
		CreatedAt:   token.CreatedAt,
		ExpiresAt:   token.ExpiresAt,
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"reset": doc}})
	if err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) GetResetTokenByHash(ctx context.Context, tokenHash string) (domain.PasswordResetToken, error) {
	d, err := s.findUser(ctx, bson.M{"reset.tokenHash": tokenHash})
	if err != nil {
		return domain.PasswordResetToken{}, err
	}
	return domain.PasswordResetToken{
		UserID:      d.ID.Hex(),
		TokenHash:   d.Reset.TokenHash,
		SentToEmail: d.Reset.SentToEmail,
		CreatedAt:   d.Reset.CreatedAt,
		ExpiresAt:   d.Reset.ExpiresAt,
		UsedAt:      d.Reset.UsedAt,
	}, nil
}

// ConsumeResetToken is a single-document update, so marking the token used
// and setting the password happen together.
func (s *Store) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (string, error) {
	filter := bson.M{
		"reset.tokenHash": tokenHash,
		"reset.usedAt":    bson.M{"$exists": false},
		"reset.expiresAt": bson.M{"$gt": now},
	}
	update := bson.M{"$set": bson.M{
		"passwordHash": passwordHash,
		"updatedAt":    now,
		"reset.usedAt": now,
	}}
	var d userDoc
	err := s.users.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetProjection(bson.M{"_id": 1})).Decode(&d)
	if err != nil {
		if notFound(err) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("consume reset token: %w", err)
	}
	return d.ID.Hex(), nil
}
