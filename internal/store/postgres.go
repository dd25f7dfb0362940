// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

// Package store provides PostgreSQL bootstrap, retry, and schema management.
package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
)

// NewPool creates a pgx connection pool and verifies connectivity.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("STORE_CONNECT_FAILED").
			With("operation", "create connection pool").
			Wrap(err)
	}

	if err := WithRetry(ctx, pool.Ping); err != nil {
		pool.Close()
		return nil, oops.Code("STORE_PING_FAILED").
			With("operation", "verify connectivity").
			Wrap(err)
	}

	return pool, nil
}
