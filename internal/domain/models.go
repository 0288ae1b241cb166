package domain

import "time"

// DefaultAvatarURL is served from the embedded static assets.
const DefaultAvatarURL = "/static/images/default-avatar.png"

type Provider string

const (
	ProviderGitHub  Provider = "github"
	ProviderGoogle  Provider = "google"
	ProviderDiscord Provider = "discord"
)

var Providers = []Provider{ProviderGitHub, ProviderGoogle, ProviderDiscord}

func ParseProvider(s string) (Provider, bool) {
	for _, p := range Providers {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// IDField is the document key holding the provider's account id, e.g. "githubId".
func (p Provider) IDField() string { return string(p) + "Id" }

type User struct {
	ID          string
	Username    string
	DisplayName string
	Email       string
	AvatarURL   string
	ExternalIDs map[Provider]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Avatar returns the avatar to display, falling back to the default image.
func (u User) Avatar() string {
	if u.AvatarURL == "" {
		return DefaultAvatarURL
	}
	return u.AvatarURL
}

func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

type UserWithPassword struct {
	User
	PasswordHash string
}

// NewUser is the insert shape for both local and OAuth registrations.
// Provider and ProviderID are empty for local accounts; PasswordHash is
// empty for OAuth-only accounts.
type NewUser struct {
	Username     string
	DisplayName  string
	Email        string
	PasswordHash string
	AvatarURL    string
	Provider     Provider
	ProviderID   string
}

// ExternalProfile is what an OAuth provider tells us about the signed-in account.
type ExternalProfile struct {
	Provider    Provider
	ID          string
	Username    string
	DisplayName string
	Email       string
	AvatarURL   string
}

type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

func (s Session) Authenticated() bool { return s.UserID != "" }

type PasswordResetToken struct {
	UserID      string
	TokenHash   string
	SentToEmail string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	UsedAt      *time.Time
}
