// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Refresh token configuration.
const (
	RefreshTokenBytes       = 32 // 32 bytes = 64 hex chars
	DefaultRefreshTokenTTL  = 30 * 24 * time.Hour
	DefaultSessionSweepTick = 10 * time.Minute
)

// Session binds a user to exactly one live refresh token. The raw token is a
// bearer capability handed to the client once; only its hash is kept.
type Session struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// NewSession creates a validated Session instance.
func NewSession(userID ulid.ULID, tokenHash string, expiresAt time.Time) (*Session, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	return &Session{
		ID:        ulid.Make(),
		UserID:    userID,
		TokenHash: tokenHash,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}, nil
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsLive returns true if the session is neither revoked nor expired.
func (s *Session) IsLive() bool {
	return s.RevokedAt == nil && !s.IsExpired()
}

// GenerateRefreshToken creates a secure random refresh token and its hash.
// The plaintext token goes to the client; the hash goes to the database.
func GenerateRefreshToken() (token, hash string, err error) {
	buf := make([]byte, RefreshTokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			Wrap(err)
	}

	token = hex.EncodeToString(buf)
	return token, HashRefreshToken(token), nil
}

// HashRefreshToken computes the SHA256 hash of a refresh token as stored in
// the database.
func HashRefreshToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionRepository manages session persistence. Implementations must make
// Replace and Rotate atomic with respect to concurrent calls for the same
// user or token.
type SessionRepository interface {
	// Replace installs session as the user's only live session, revoking
	// any previous one in the same atomic step (upsert keyed on user_id).
	Replace(ctx context.Context, session *Session) error

	// Rotate consumes the live session identified by oldHash and installs
	// a replacement with newID/newHash/expiresAt in one conditional write,
	// returning the bound user ID. Returns ErrNotFound when no live,
	// unexpired session matches oldHash; with concurrent calls presenting
	// the same token, exactly one succeeds.
	Rotate(ctx context.Context, oldHash string, newID ulid.ULID, newHash string, expiresAt time.Time) (ulid.ULID, error)

	// RevokeByTokenHash marks the matching session revoked. Revoking an
	// unknown or already-revoked token is not an error.
	RevokeByTokenHash(ctx context.Context, tokenHash string) error

	// DeleteExpired removes expired and revoked sessions, returning the
	// count removed.
	DeleteExpired(ctx context.Context) (int64, error)
}
