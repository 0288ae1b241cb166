package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"
)

var ErrMissingIDToken = errors.New("missing id token")

// ExternalTokenClaims is the identity carried by a verified provider id_token.
type ExternalTokenClaims struct {
	Issuer        string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// IDTokenVerifier matches VerifyGoogleIDToken so tests can swap it out.
type IDTokenVerifier func(ctx context.Context, tokenString, expectedAud string) (*ExternalTokenClaims, error)

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// VerifyGoogleIDToken checks signature, audience and expiry against Google's
// published keys, then the issuer.
func VerifyGoogleIDToken(ctx context.Context, tokenString, expectedAud string) (*ExternalTokenClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrMissingIDToken
	}
	if strings.TrimSpace(expectedAud) == "" {
		return nil, errors.New("google client id not configured")
	}

	payload, err := idtoken.Validate(ctx, tokenString, expectedAud)
	if err != nil {
		return nil, err
	}
	return googleClaims(payload)
}

// googleClaims keeps the email only when Google marks it verified.
func googleClaims(p *idtoken.Payload) (*ExternalTokenClaims, error) {
	if !googleIssuers[p.Issuer] {
		return nil, fmt.Errorf("unexpected issuer %q", p.Issuer)
	}
	c := &ExternalTokenClaims{
		Issuer:  p.Issuer,
		Subject: p.Subject,
		Name:    strings.TrimSpace(claim[string](p.Claims, "name")),
		Picture: claim[string](p.Claims, "picture"),
	}
	c.EmailVerified = claim[bool](p.Claims, "email_verified")
	if c.EmailVerified {
		c.Email = strings.ToLower(strings.TrimSpace(claim[string](p.Claims, "email")))
	}
	return c, nil
}

func claim[T any](claims map[string]any, key string) T {
	v, _ := claims[key].(T)
	return v
}
