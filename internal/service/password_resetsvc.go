package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/auth"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

type PasswordResetStore interface {
	// CreateResetToken stores token and retires any outstanding token of the same user.
	CreateResetToken(ctx context.Context, token domain.PasswordResetToken) error
	GetResetTokenByHash(ctx context.Context, tokenHash string) (domain.PasswordResetToken, error)
	// ConsumeResetToken atomically sets the password of the token's owner and
	// marks the token used, provided it is unused and unexpired at now.
	// It returns the owner's id or domain.ErrNotFound.
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (string, error)
}

type ResetUsersStore interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
}

type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, toEmail, rawToken string) error
}

type PasswordResetService struct {
	Store    PasswordResetStore
	Users    ResetUsersStore
	Notifier ResetNotifier
	Logger   *slog.Logger
	TokenTTL time.Duration
	Now      func() time.Time
}

// IssueResetToken always returns a fresh raw token. The token is persisted
// (and mailed, when a notifier is configured) only if email matches a user,
// so callers cannot tell the two cases apart.
func (s *PasswordResetService) IssueResetToken(ctx context.Context, email string) (string, error) {
	s.defaults()

	raw, tokenHash, err := newResetToken()
	if err != nil {
		return "", err
	}

	email = normalizeEmail(email)
	if email == "" {
		return raw, nil
	}

	u, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return raw, nil
		}
		return "", err
	}

	now := s.Now()
	token := domain.PasswordResetToken{
		UserID:      u.ID,
		TokenHash:   tokenHash,
		SentToEmail: email,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.TokenTTL),
	}
	if err := s.Store.CreateResetToken(ctx, token); err != nil {
		return "", err
	}

	if s.Notifier != nil {
		if err := s.Notifier.SendPasswordReset(ctx, email, raw); err != nil {
			s.Logger.Warn("password reset: send failed", "user_id", u.ID, "err", err)
		}
	}
	return raw, nil
}

func (s *PasswordResetService) CheckResetToken(ctx context.Context, rawToken string) (domain.User, error) {
	s.defaults()

	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return domain.User{}, domain.ErrResetTokenInvalid
	}

	token, err := s.Store.GetResetTokenByHash(ctx, hashResetToken(rawToken))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrResetTokenInvalid
		}
		return domain.User{}, err
	}
	if token.UsedAt != nil || !token.ExpiresAt.After(s.Now()) {
		return domain.User{}, domain.ErrResetTokenInvalid
	}

	u, err := s.Users.GetUserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrResetTokenInvalid
		}
		return domain.User{}, err
	}
	return u, nil
}

// ConsumeResetToken sets newPassword for the token's owner. A token can be
// consumed once.
func (s *PasswordResetService) ConsumeResetToken(ctx context.Context, rawToken, newPassword string) (domain.User, error) {
	s.defaults()

	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return domain.User{}, domain.ErrResetTokenInvalid
	}
	if msg := checkPassword(newPassword); msg != "" {
		return domain.User{}, domain.FieldError("password", msg)
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	userID, err := s.Store.ConsumeResetToken(ctx, hashResetToken(rawToken), hash, s.Now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrResetTokenInvalid
		}
		return domain.User{}, err
	}
	return s.Users.GetUserByID(ctx, userID)
}

func (s *PasswordResetService) defaults() {
	if s.Now == nil {
		s.Now = time.Now
	}
	if s.TokenTTL == 0 {
		s.TokenTTL = time.Hour
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
}

func newResetToken() (string, string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("read token: %w", err)
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)
	return raw, hashResetToken(raw), nil
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
