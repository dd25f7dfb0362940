// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultAccessTokenTTL is the default validity window for access tokens.
const DefaultAccessTokenTTL = 15 * time.Minute

// Claims is the access token claim set. Subject carries the username; UserID
// carries the account ULID.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies stateless access tokens (HS256).
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenCodec creates a TokenCodec. ttl <= 0 selects the default.
func NewTokenCodec(secret []byte, ttl time.Duration) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, oops.Code("AUTH_EMPTY_SECRET").Errorf("token signing secret cannot be empty")
	}
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	return &TokenCodec{secret: secret, ttl: ttl}, nil
}

// TTL returns the configured access token lifetime.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Mint issues a signed access token for the given user.
func (c *TokenCodec) Mint(userID ulid.ULID, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", oops.Code("AUTH_TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the claims. It never
// consults session state: an outstanding token stays valid until natural
// expiry regardless of revocation.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Code(CodeTokenExpired).Errorf("access token has expired")
		}
		return nil, oops.Code(CodeTokenInvalid).Errorf("invalid access token")
	}
	if !token.Valid {
		return nil, oops.Code(CodeTokenInvalid).Errorf("invalid access token")
	}
	return claims, nil
}
