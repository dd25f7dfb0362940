// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

package store

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"
)

// Retry policy for store round-trips. Failures past the last attempt surface
// to the caller; user-facing layers translate them to a generic unavailable
// response.
const (
	retryAttempts = 3
	retryBase     = 50 * time.Millisecond
)

// WithRetry runs fn with bounded exponential backoff. Only errors that are
// safe to retry (connection establishment, transient network faults) are
// retried; everything else returns immediately.
func WithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(retryAttempts-1, retry.NewExponential(retryBase))
	//nolint:wrapcheck // retry.Do returns fn's error unchanged once attempts are exhausted
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if isRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// IsUnavailable reports whether err is a connectivity-class failure that
// should surface to callers as "store unavailable" rather than as a domain
// error.
func IsUnavailable(err error) bool {
	return isRetryable(err)
}

// isRetryable reports whether the error is a transient connectivity fault.
// Constraint violations and other server-side errors are never retried.
func isRetryable(err error) bool {
	if pgconn.SafeToRetry(err) {
		return true
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
