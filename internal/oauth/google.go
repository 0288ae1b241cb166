package oauth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/auth"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

// Google reads the profile from the id_token returned by the token endpoint,
// so no extra userinfo request is made.
type Google struct {
	Config *oauth2.Config
	Verify auth.IDTokenVerifier
}

func NewGoogle(c Credentials) *Google {
	return &Google{
		Config: c.config(google.Endpoint, "openid", "email", "profile"),
		Verify: auth.VerifyGoogleIDToken,
	}
}

func (g *Google) Name() domain.Provider { return domain.ProviderGoogle }

func (g *Google) AuthCodeURL(state string) string {
	return g.Config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

func (g *Google) Exchange(ctx context.Context, code string) (domain.ExternalProfile, error) {
	tok, err := exchange(ctx, g.Config, code)
	if err != nil {
		return domain.ExternalProfile{}, err
	}
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return domain.ExternalProfile{}, errors.New("google: token response has no id_token")
	}
	claims, err := g.Verify(ctx, raw, g.Config.ClientID)
	if err != nil {
		return domain.ExternalProfile{}, fmt.Errorf("google id token: %w", err)
	}
	if claims.Subject == "" {
		return domain.ExternalProfile{}, errors.New("google id token: missing subject")
	}
	return domain.ExternalProfile{
		Provider:    domain.ProviderGoogle,
		ID:          claims.Subject,
		DisplayName: claims.Name,
		Email:       claims.Email,
		AvatarURL:   claims.Picture,
	}, nil
}
