// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

// Package auth implements player accounts and the session/token lifecycle.
//
// Two credential kinds are issued:
//
//   - Access tokens: short-lived signed JWTs. Validity is signature plus
//     expiry only; session revocation does not invalidate an outstanding
//     access token before it expires. This is a deliberate consistency
//     tradeoff in favour of stateless verification.
//   - Refresh tokens: long-lived, single-use random values. Only a SHA256
//     hash is persisted; presenting one rotates the session atomically.
//
// The store enforces at most one live session per user through a uniqueness
// constraint on user_id: login and refresh replace the session row in one
// conditional statement, never a read-then-write sequence.
package auth
