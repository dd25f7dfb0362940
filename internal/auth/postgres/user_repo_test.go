// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiverow/fiverow/internal/auth"
	"github.com/fiverow/fiverow/pkg/errutil"
)

func TestUserRepository_Create(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantCode  string
	}{
		{
			name: "successful insert",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(pgxmock.AnyArg(), "alice", "hash", pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "duplicate username",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(pgxmock.AnyArg(), "alice", "hash", pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: "23505"})
			},
			wantCode: auth.CodeDuplicateUsername,
		},
		{
			name: "other database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(pgxmock.AnyArg(), "alice", "hash", pgxmock.AnyArg()).
					WillReturnError(errors.New("syntax error"))
			},
			wantCode: "USER_CREATE_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()
			tt.setupMock(mock)

			repo := NewUserRepository(mock)
			err = repo.Create(context.Background(), auth.NewUser("alice", "hash"))

			if tt.wantCode == "" {
				require.NoError(t, err)
			} else {
				errutil.AssertErrorCode(t, err, tt.wantCode)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByUsername(t *testing.T) {
	user := auth.NewUser("alice", "hash")

	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows([]string{"id", "username", "password_hash", "created_at"}).
			AddRow(user.ID.String(), user.Username, user.PasswordHash, time.Now())
		mock.ExpectQuery(`SELECT id, username, password_hash, created_at`).
			WithArgs("alice").
			WillReturnRows(rows)

		repo := NewUserRepository(mock)
		got, err := repo.GetByUsername(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, "alice", got.Username)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found wraps ErrNotFound", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT id, username, password_hash, created_at`).
			WithArgs("ghost").
			WillReturnRows(pgxmock.NewRows([]string{"id", "username", "password_hash", "created_at"}))

		repo := NewUserRepository(mock)
		_, err = repo.GetByUsername(context.Background(), "ghost")
		require.Error(t, err)
		assert.True(t, errors.Is(err, auth.ErrNotFound), "expected ErrNotFound, got %v", err)
	})
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := auth.NewUser("alice", "hash").ID
	mock.ExpectQuery(`SELECT id, username, password_hash, created_at`).
		WithArgs(id.String()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "password_hash", "created_at"}))

	repo := NewUserRepository(mock)
	_, err = repo.GetByID(context.Background(), id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrNotFound), "expected ErrNotFound, got %v", err)
}
