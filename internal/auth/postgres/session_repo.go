// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/fiverow/fiverow/internal/auth"
	"github.com/fiverow/fiverow/internal/store"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
//
// Single-session-per-user rests on the refresh_sessions.user_id uniqueness
// constraint: Replace and Rotate are each one statement, so concurrent
// login/refresh races resolve inside the database, never in process memory.
type SessionRepository struct {
	pool poolIface
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool poolIface) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Replace installs session as the user's only live session. An existing row
// for the user is overwritten (revoking it) in the same atomic statement.
func (r *SessionRepository) Replace(ctx context.Context, session *auth.Session) error {
	err := store.WithRetry(ctx, func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO refresh_sessions (id, user_id, refresh_token_hash, created_at, expires_at, revoked_at)
			VALUES ($1, $2, $3, $4, $5, NULL)
			ON CONFLICT (user_id) DO UPDATE SET
				id = EXCLUDED.id,
				refresh_token_hash = EXCLUDED.refresh_token_hash,
				created_at = EXCLUDED.created_at,
				expires_at = EXCLUDED.expires_at,
				revoked_at = NULL
		`,
			session.ID.String(),
			session.UserID.String(),
			session.TokenHash,
			session.CreatedAt,
			session.ExpiresAt,
		)
		return err
	})
	if err != nil {
		return oops.Code("SESSION_REPLACE_FAILED").
			With("operation", "upsert refresh_session").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}
	return nil
}

// Rotate consumes the live session matching oldHash and installs the
// replacement in one conditional update. The WHERE clause rejects revoked and
// expired rows, so a replayed token and the loser of a concurrent rotation
// both see ErrNotFound.
func (r *SessionRepository) Rotate(ctx context.Context, oldHash string, newID ulid.ULID, newHash string, expiresAt time.Time) (ulid.ULID, error) {
	var userIDStr string
	err := store.WithRetry(ctx, func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, `
			UPDATE refresh_sessions
			SET id = $1,
			    refresh_token_hash = $2,
			    created_at = now(),
			    expires_at = $3,
			    revoked_at = NULL
			WHERE refresh_token_hash = $4
			  AND revoked_at IS NULL
			  AND expires_at > now()
			RETURNING user_id
		`, newID.String(), newHash, expiresAt, oldHash).Scan(&userIDStr)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return ulid.ULID{}, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return ulid.ULID{}, oops.Code("SESSION_ROTATE_FAILED").
			With("operation", "rotate refresh_session").
			Wrap(err)
	}

	userID, err := ulid.Parse(userIDStr)
	if err != nil {
		return ulid.ULID{}, oops.Code("SESSION_INVALID_USER_ID").
			With("user_id", userIDStr).
			Wrap(err)
	}
	return userID, nil
}

// RevokeByTokenHash marks the matching session revoked. Idempotent: zero
// affected rows is a valid state.
func (r *SessionRepository) RevokeByTokenHash(ctx context.Context, tokenHash string) error {
	err := store.WithRetry(ctx, func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx, `
			UPDATE refresh_sessions
			SET revoked_at = now()
			WHERE refresh_token_hash = $1
			  AND revoked_at IS NULL
		`, tokenHash)
		return err
	})
	if err != nil {
		return oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "revoke refresh_session").
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes expired and revoked sessions and returns the count.
// Revoked rows are dead weight the moment they are revoked; there is no grace
// period to honor.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	var deleted int64
	err := store.WithRetry(ctx, func(ctx context.Context) error {
		result, err := r.pool.Exec(ctx, `
			DELETE FROM refresh_sessions
			WHERE expires_at < $1 OR revoked_at IS NOT NULL
		`, time.Now())
		if err != nil {
			return err
		}
		deleted = result.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired refresh_sessions").
			Wrap(err)
	}
	return deleted, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
