// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

package game

import (
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
)

// Registry maps connections to the match that owns them. It is the single
// routing point for inbound game messages; a connection is owned by at most
// one match at a time, and the mapping disappears when the match ends.
type Registry struct {
	mu       sync.Mutex
	byConn   map[ulid.ULID]*Match
	users    map[ulid.ULID]struct{}
	onFinish func(Status)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[ulid.ULID]*Match),
		users:  make(map[ulid.ULID]struct{}),
	}
}

// SetOnFinish registers a hook invoked with the terminal status of every
// released match. Must be set before the first match starts.
func (r *Registry) SetOnFinish(fn func(Status)) {
	r.onFinish = fn
}

// Add binds both of a match's connections to it.
func (r *Registry) Add(m *Match, conns ...Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range conns {
		r.byConn[c.ID()] = m
		r.users[c.UserID()] = struct{}{}
	}
}

// Release unbinds every connection owned by m. Invoked by the match
// goroutine when the match reaches a terminal status.
func (r *Registry) Release(m *Match) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range m.conns {
		if r.byConn[c.ID()] == m {
			delete(r.byConn, c.ID())
			delete(r.users, c.UserID())
		}
	}

	slog.Debug("match released",
		"match_id", m.id.String(),
		"status", string(m.status),
		"active_matches", len(r.byConn)/2,
	)

	if r.onFinish != nil {
		r.onFinish(m.status)
	}
}

// Route delivers an inbound message to the match owning conn. A move from a
// connection with no live match is answered with MatchNotFound.
func (r *Registry) Route(conn Conn, msg ClientMessage) {
	switch msg.Type {
	case "move":
		m, ok := r.lookup(conn)
		if !ok {
			conn.Send(NewError(CodeMatchNotFound))
			return
		}
		m.Move(conn, msg.Row, msg.Col)
	default:
		conn.Send(NewError(CodeBadRequest))
	}
}

// Disconnect reports a dropped connection to its match, if any. Returns true
// when the connection was owned by a match.
func (r *Registry) Disconnect(conn Conn) bool {
	m, ok := r.lookup(conn)
	if !ok {
		return false
	}
	m.Disconnect(conn)
	return true
}

// HasUser reports whether any live match owns a connection for userID.
func (r *Registry) HasUser(userID ulid.ULID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[userID]
	return ok
}

// ActiveMatches returns the number of live matches.
func (r *Registry) ActiveMatches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byConn) / 2
}

func (r *Registry) lookup(conn Conn) (*Match, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byConn[conn.ID()]
	return m, ok
}
