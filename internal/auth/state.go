package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidState = errors.New("invalid oauth state")

// StateCodec issues the OAuth "state" parameter as a short-lived HS256 token
// bound to the provider it was issued for. The same value is kept in a cookie
// and compared on callback.
type StateCodec struct {
	secret []byte
	ttl    time.Duration
	Now    func() time.Time
}

type stateClaims struct {
	Provider string `json:"prv"`
	jwt.RegisteredClaims
}

func NewStateCodec(secret []byte, ttl time.Duration) (*StateCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("oauth state secret required")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	secretCopy := make([]byte, len(secret))
	copy(secretCopy, secret)
	return &StateCodec{secret: secretCopy, ttl: ttl, Now: time.Now}, nil
}

func (c *StateCodec) TTL() time.Duration { return c.ttl }

func (c *StateCodec) Issue(provider string) (string, error) {
	var nonce [16]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("read state nonce: %w", err)
	}
	now := c.Now()
	claims := stateClaims{
		Provider: provider,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        base64.RawURLEncoding.EncodeToString(nonce[:]),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign state: %w", err)
	}
	return signed, nil
}

func (c *StateCodec) Verify(state, provider string) error {
	if state == "" {
		return ErrInvalidState
	}
	var claims stateClaims
	_, err := jwt.ParseWithClaims(state, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.Now), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if claims.Provider != provider {
		return ErrInvalidState
	}
	return nil
}
