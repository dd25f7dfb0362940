// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

package game

import (
	"context"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Error codes for matchmaker admission failures.
const (
	CodeAlreadyQueued  = "MATCH_ALREADY_QUEUED"
	CodeAlreadyPlaying = "MATCH_ALREADY_PLAYING"
)

// Matchmaker pairs waiting connections first-in-first-out. The oldest queued
// connection becomes side A of the new match and moves first.
type Matchmaker struct {
	mu       sync.Mutex
	queue    []Conn
	registry *Registry
}

// NewMatchmaker creates a matchmaker that registers started matches in reg.
func NewMatchmaker(reg *Registry) *Matchmaker {
	return &Matchmaker{registry: reg}
}

// Enqueue admits conn into matchmaking. If another connection is already
// waiting, the pair starts a match immediately; otherwise conn waits in the
// queue and receives a waiting notice. A user may hold at most one seat across
// the queue and all live matches.
func (mm *Matchmaker) Enqueue(ctx context.Context, conn Conn) error {
	mm.mu.Lock()

	for _, q := range mm.queue {
		if q.UserID() == conn.UserID() {
			mm.mu.Unlock()
			return oops.Code(CodeAlreadyQueued).
				With("user_id", conn.UserID().String()).
				Errorf("user already waiting for a match")
		}
	}
	if mm.registry.HasUser(conn.UserID()) {
		mm.mu.Unlock()
		return oops.Code(CodeAlreadyPlaying).
			With("user_id", conn.UserID().String()).
			Errorf("user already in a match")
	}

	if len(mm.queue) == 0 {
		mm.queue = append(mm.queue, conn)
		// Queued under the lock so a pairing Enqueue cannot deliver
		// matchStarted ahead of this notice. Send never blocks.
		conn.Send(NewWaiting())
		mm.mu.Unlock()
		return nil
	}

	// Oldest waiter takes side A and the first move.
	a := mm.queue[0]
	mm.queue = mm.queue[1:]
	b := conn

	match := NewMatch(a, b, mm.registry.Release)
	mm.registry.Add(match, a, b)
	mm.mu.Unlock()

	go match.Run(ctx)

	a.Send(NewMatchStarted(SideA, b.Username()))
	b.Send(NewMatchStarted(SideB, a.Username()))

	slog.Info("match started",
		"match_id", match.id.String(),
		"side_a", a.Username(),
		"side_b", b.Username(),
	)
	return nil
}

// Remove withdraws a queued connection, typically because it dropped before
// being paired. Returns true if the connection was waiting.
func (mm *Matchmaker) Remove(connID ulid.ULID) bool {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	for i, q := range mm.queue {
		if q.ID() == connID {
			mm.queue = append(mm.queue[:i], mm.queue[i+1:]...)
			return true
		}
	}
	return false
}

// QueueDepth returns the number of connections waiting to be paired.
func (mm *Matchmaker) QueueDepth() int {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return len(mm.queue)
}
