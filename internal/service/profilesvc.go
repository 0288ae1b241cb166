package service

import (
	"context"
	"strings"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

type ProfileStore interface {
	UpdateProfile(ctx context.Context, userID, displayName, email string) error
	SetAvatar(ctx context.Context, userID, avatarURL string) error
}

type ProfileService struct {
	Store ProfileStore
}

// UpdateProfile replaces display name and email. An empty display name is
// stored as-is and rendered as the username.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID, displayName, email string) error {
	displayName = strings.TrimSpace(displayName)
	email = normalizeEmail(email)

	fields := map[string]string{}
	if msg := checkDisplayName(displayName); msg != "" {
		fields["display_name"] = msg
	}
	if email != "" && !validEmail(email) {
		fields["email"] = "must be a valid email address"
	}
	if len(fields) > 0 {
		return domain.NewValidationError(fields)
	}
	return s.Store.UpdateProfile(ctx, userID, displayName, email)
}

func (s *ProfileService) UpdateAvatar(ctx context.Context, userID, avatarURL string) error {
	if strings.TrimSpace(avatarURL) == "" {
		return domain.FieldError("avatar", "file is required")
	}
	return s.Store.SetAvatar(ctx, userID, avatarURL)
}
