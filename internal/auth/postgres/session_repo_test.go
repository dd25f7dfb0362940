// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiverow/fiverow/internal/auth"
)

func newTestSession(t *testing.T) *auth.Session {
	t.Helper()
	s, err := auth.NewSession(ulid.Make(), "tokenhash", time.Now().Add(time.Hour))
	require.NoError(t, err)
	return s
}

func TestSessionRepository_Replace(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	session := newTestSession(t)
	mock.ExpectExec(`INSERT INTO refresh_sessions`).
		WithArgs(session.ID.String(), session.UserID.String(), session.TokenHash,
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewSessionRepository(mock)
	require.NoError(t, repo.Replace(context.Background(), session))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_Rotate(t *testing.T) {
	t.Run("live session rotates and returns user id", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		userID := ulid.Make()
		newID := ulid.Make()
		mock.ExpectQuery(`UPDATE refresh_sessions`).
			WithArgs(newID.String(), "newhash", pgxmock.AnyArg(), "oldhash").
			WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(userID.String()))

		repo := NewSessionRepository(mock)
		got, err := repo.Rotate(context.Background(), "oldhash", newID, "newhash", time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, userID, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("consumed or unknown token reports ErrNotFound", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		newID := ulid.Make()
		mock.ExpectQuery(`UPDATE refresh_sessions`).
			WithArgs(newID.String(), "newhash", pgxmock.AnyArg(), "replayed").
			WillReturnRows(pgxmock.NewRows([]string{"user_id"}))

		repo := NewSessionRepository(mock)
		_, err = repo.Rotate(context.Background(), "replayed", newID, "newhash", time.Now().Add(time.Hour))
		require.Error(t, err)
		assert.True(t, errors.Is(err, auth.ErrNotFound), "expected ErrNotFound, got %v", err)
	})
}

func TestSessionRepository_RevokeByTokenHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// Zero affected rows is fine: revocation is idempotent.
	mock.ExpectExec(`UPDATE refresh_sessions`).
		WithArgs("unknown").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewSessionRepository(mock)
	require.NoError(t, repo.RevokeByTokenHash(context.Background(), "unknown"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// Both expired and revoked rows are swept in one statement.
	mock.ExpectExec(`DELETE FROM refresh_sessions\s+WHERE expires_at < \$1 OR revoked_at IS NOT NULL`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	repo := NewSessionRepository(mock)
	n, err := repo.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}
