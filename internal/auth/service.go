// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// dummyPasswordHash is used when a user doesn't exist to prevent timing
// attacks: password verification still runs so response time stays
// consistent. This is NOT a real credential and will never match a password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// TokenPair is the credential pair handed to a client after register, login,
// or refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Identity is the claim set extracted from a verified access token.
type Identity struct {
	UserID   ulid.ULID
	Username string
}

// Service provides registration, login, refresh rotation, logout, and access
// token introspection.
type Service struct {
	users      UserRepository
	sessions   SessionRepository
	hasher     PasswordHasher
	codec      *TokenCodec
	refreshTTL time.Duration
}

// NewService creates a Service. refreshTTL <= 0 selects the default.
func NewService(users UserRepository, sessions SessionRepository, hasher PasswordHasher, codec *TokenCodec, refreshTTL time.Duration) *Service {
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	return &Service{
		users:      users,
		sessions:   sessions,
		hasher:     hasher,
		codec:      codec,
		refreshTTL: refreshTTL,
	}
}

// Register creates a new user and an initial session, returning the token
// pair. A taken username surfaces CodeDuplicateUsername.
func (s *Service) Register(ctx context.Context, username, password string) (*TokenPair, error) {
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user := NewUser(username, passwordHash)
	if err := s.users.Create(ctx, user); err != nil {
		// Duplicate username passes through with its code intact.
		return nil, err //nolint:wrapcheck // repository errors already carry context
	}

	return s.issueSession(ctx, user)
}

// Login authenticates a user and replaces any existing live session with a
// fresh one in a single atomic store operation. Uses constant-time
// verification to prevent username enumeration.
func (s *Service) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	username = strings.TrimSpace(username)

	user, lookupErr := s.users.GetByUsername(ctx, username)

	targetHash := dummyPasswordHash
	userExists := false
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		userExists = true
	case errors.Is(lookupErr, ErrNotFound):
		// Keep verifying against the dummy hash below.
	default:
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by username").
			Wrap(lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil && userExists {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}
	if !userExists || !valid {
		return nil, oops.Code(CodeInvalidCredentials).Errorf("invalid username or password")
	}

	return s.issueSession(ctx, user)
}

// Refresh consumes a refresh token and rotates the session: the presented
// token's row is atomically replaced, so any replay of it fails, and exactly
// one of several concurrent attempts succeeds.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	oldHash := HashRefreshToken(refreshToken)

	newToken, newHash, err := GenerateRefreshToken()
	if err != nil {
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "generate refresh token").
			Wrap(err)
	}

	userID, err := s.sessions.Rotate(ctx, oldHash, ulid.Make(), newHash, time.Now().Add(s.refreshTTL))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeSessionInvalid).Errorf("session is invalid, revoked, or expired")
		}
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "rotate session").
			Wrap(err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "get user by id").
			With("user_id", userID.String()).
			Wrap(err)
	}

	accessToken, err := s.codec.Mint(user.ID, user.Username)
	if err != nil {
		return nil, err //nolint:wrapcheck // codec errors already carry context
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: newToken}, nil
}

// Logout revokes the session bound to the refresh token. Idempotent: unknown
// or already-revoked tokens are not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	err := s.sessions.RevokeByTokenHash(ctx, HashRefreshToken(refreshToken))
	if err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "revoke session").
			Wrap(err)
	}
	return nil
}

// WhoAmI verifies an access token's signature and expiry and returns the
// identity it asserts. Session state is deliberately not consulted.
func (s *Service) WhoAmI(accessToken string) (*Identity, error) {
	claims, err := s.codec.Verify(accessToken)
	if err != nil {
		return nil, err //nolint:wrapcheck // codec errors already carry context
	}

	userID, err := ulid.Parse(claims.UserID)
	if err != nil {
		return nil, oops.Code(CodeTokenInvalid).
			With("uid", claims.UserID).
			Errorf("invalid access token")
	}

	return &Identity{UserID: userID, Username: claims.Subject}, nil
}

// SweepExpiredSessions removes expired and revoked session rows. Intended to
// be run periodically; the refresh_sessions.expires_at index keeps it cheap.
func (s *Service) SweepExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, oops.Code("AUTH_SWEEP_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return n, nil
}

// issueSession creates a session for user, revoking any previous one in the
// same atomic store write, and mints the token pair.
func (s *Service) issueSession(ctx context.Context, user *User) (*TokenPair, error) {
	refreshToken, tokenHash, err := GenerateRefreshToken()
	if err != nil {
		return nil, oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "generate refresh token").
			Wrap(err)
	}

	session, err := NewSession(user.ID, tokenHash, time.Now().Add(s.refreshTTL))
	if err != nil {
		return nil, oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "create session").
			Wrap(err)
	}

	if err := s.sessions.Replace(ctx, session); err != nil {
		return nil, oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	accessToken, err := s.codec.Mint(user.ID, user.Username)
	if err != nil {
		return nil, err //nolint:wrapcheck // codec errors already carry context
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
