package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

type recordingProfileStore struct {
	displayName, email, avatar string
}

func (s *recordingProfileStore) UpdateProfile(_ context.Context, _ string, displayName, email string) error {
	s.displayName, s.email = displayName, email
	return nil
}

func (s *recordingProfileStore) SetAvatar(_ context.Context, _ string, avatarURL string) error {
	s.avatar = avatarURL
	return nil
}

func TestProfileServiceUpdateProfile(t *testing.T) {
	store := &recordingProfileStore{}
	svc := &ProfileService{Store: store}
	ctx := context.Background()

	if err := svc.UpdateProfile(ctx, "user-1", "  Alice A. ", " ALICE@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.displayName != "Alice A." || store.email != "alice@example.com" {
		t.Fatalf("unexpected stored values: %+v", store)
	}

	err := svc.UpdateProfile(ctx, "user-1", strings.Repeat("x", 49), "nope")
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Fields["display_name"] == "" || ve.Fields["email"] == "" {
		t.Fatalf("expected field errors, got %v", err)
	}
}

func TestProfileServiceUpdateAvatar(t *testing.T) {
	store := &recordingProfileStore{}
	svc := &ProfileService{Store: store}

	if err := svc.UpdateAvatar(context.Background(), "user-1", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := svc.UpdateAvatar(context.Background(), "user-1", "/uploads/u-1.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.avatar != "/uploads/u-1.png" {
		t.Fatalf("unexpected avatar: %q", store.avatar)
	}
}
