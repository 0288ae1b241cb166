package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/auth"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

type UsersStore interface {
	CreateUser(ctx context.Context, nu domain.NewUser) (domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.UserWithPassword, error)
	GetUserByExternalID(ctx context.Context, provider domain.Provider, providerID string) (domain.User, error)
	GetPasswordHash(ctx context.Context, userID string) (string, error)
	SetPasswordHash(ctx context.Context, userID, passwordHash string) error
}

const (
	minPasswordLen = 8
	maxPasswordLen = 128

	oauthUsernameAttempts = 5
)

type AuthService struct {
	Users UsersStore
}

func (s *AuthService) Register(ctx context.Context, username, email, displayName, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	displayName = strings.TrimSpace(displayName)

	fields := map[string]string{}
	if !validUsername(username) {
		fields["username"] = "must be 3-24 characters with letters, numbers, or underscore"
	}
	if email != "" && !validEmail(email) {
		fields["email"] = "must be a valid email address"
	}
	if msg := checkDisplayName(displayName); msg != "" {
		fields["display_name"] = msg
	}
	if msg := checkPassword(password); msg != "" {
		fields["password"] = msg
	}
	if len(fields) > 0 {
		return domain.User{}, domain.NewValidationError(fields)
	}
	if displayName == "" {
		displayName = username
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	return s.Users.CreateUser(ctx, domain.NewUser{
		Username:     username,
		DisplayName:  displayName,
		Email:        email,
		PasswordHash: passwordHash,
		AvatarURL:    domain.DefaultAvatarURL,
	})
}

// VerifyLocal checks a username/password pair. Unknown users and wrong
// passwords both yield ErrInvalidCredentials after the same amount of work.
func (s *AuthService) VerifyLocal(ctx context.Context, username, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		auth.BurnPasswordCheck(password)
		return domain.User{}, domain.ErrInvalidCredentials
	}

	u, err := s.Users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			auth.BurnPasswordCheck(password)
			return domain.User{}, domain.ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if u.PasswordHash == "" {
		auth.BurnPasswordCheck(password)
		return domain.User{}, domain.ErrInvalidCredentials
	}

	ok, err := auth.VerifyPassword(u.PasswordHash, password)
	if err != nil {
		return domain.User{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return u.User, nil
}

// FindOrCreateOAuth returns the identity linked to the external account,
// creating it on first sign-in.
func (s *AuthService) FindOrCreateOAuth(ctx context.Context, p domain.ExternalProfile) (domain.User, error) {
	if p.Provider == "" || strings.TrimSpace(p.ID) == "" {
		return domain.User{}, domain.FieldError("provider", "missing external account id")
	}

	u, err := s.Users.GetUserByExternalID(ctx, p.Provider, p.ID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}

	base := oauthUsername(p)
	displayName := strings.TrimSpace(p.DisplayName)
	if displayName == "" {
		displayName = base
	}
	avatar := strings.TrimSpace(p.AvatarURL)
	if avatar == "" {
		avatar = domain.DefaultAvatarURL
	}

	username := base
	for attempt := 0; attempt < oauthUsernameAttempts; attempt++ {
		if attempt > 0 {
			username = base + "-" + randomSuffix()
		}
		u, err := s.Users.CreateUser(ctx, domain.NewUser{
			Username:    username,
			DisplayName: displayName,
			Email:       normalizeEmail(p.Email),
			AvatarURL:   avatar,
			Provider:    p.Provider,
			ProviderID:  p.ID,
		})
		switch {
		case err == nil:
			return u, nil
		case errors.Is(err, domain.ErrUsernameTaken):
			continue
		case errors.Is(err, domain.ErrExternalAccountExists):
			// Another request linked this account first.
			return s.Users.GetUserByExternalID(ctx, p.Provider, p.ID)
		default:
			return domain.User{}, err
		}
	}
	return domain.User{}, domain.ErrUsernameTaken
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if msg := checkPassword(next); msg != "" {
		return domain.FieldError("new_password", msg)
	}

	hash, err := s.Users.GetPasswordHash(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidCredentials
		}
		return err
	}
	if hash == "" {
		return domain.ErrInvalidCredentials
	}

	ok, err := auth.VerifyPassword(hash, current)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return domain.ErrInvalidCredentials
	}

	newHash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.Users.SetPasswordHash(ctx, userID, newHash)
}

func (s *AuthService) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.Users.GetUserByID(ctx, id)
}

// oauthUsername picks the preferred username for a provider, falling back to
// the display name and finally to "<provider>-<id>".
func oauthUsername(p domain.ExternalProfile) string {
	var candidates []string
	switch p.Provider {
	case domain.ProviderGoogle:
		local, _, _ := strings.Cut(p.Email, "@")
		candidates = []string{local, p.DisplayName}
	default:
		candidates = []string{p.Username, p.DisplayName}
	}
	for _, c := range candidates {
		if name := sanitizeUsername(c); len(name) >= 3 {
			return name
		}
	}
	return sanitizeUsername(string(p.Provider) + "-" + p.ID)
}

func sanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
		if b.Len() >= 32 {
			break
		}
	}
	return b.String()
}

func randomSuffix() string {
	var b [3]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "x"
	}
	return hex.EncodeToString(b[:])
}
