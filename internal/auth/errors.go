// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Error codes attached to oops errors crossing the package boundary.
// Transport layers map these to wire-level codes and status lines.
const (
	CodeDuplicateUsername  = "AUTH_DUPLICATE_USERNAME"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeSessionInvalid     = "AUTH_SESSION_INVALID"
	CodeTokenInvalid       = "AUTH_TOKEN_INVALID"
	CodeTokenExpired       = "AUTH_TOKEN_EXPIRED"
	CodeInvalidUsername    = "AUTH_INVALID_USERNAME"
	CodeWeakPassword       = "AUTH_WEAK_PASSWORD"
)
