// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

package game

import (
	"context"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
)

// Status is a match lifecycle state.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusWon        Status = "WON"
	StatusDraw       Status = "DRAW"
	StatusAbandoned  Status = "ABANDONED"
)

// inboxSize bounds queued commands per match. Two participants issuing one
// command at a time never come close to filling it.
const inboxSize = 16

type moveCmd struct {
	conn Conn
	row  int
	col  int
}

type leaveCmd struct {
	conn Conn
}

// Match owns one game's board, turn, and status. All mutation happens on the
// goroutine running Run; participants reach it only through the inbox, so
// moves are totally ordered and the loser of a concurrent attempt simply
// observes NotYourTurn.
type Match struct {
	id        ulid.ULID
	conns     [2]Conn // index 0 is side A
	board     Board
	turn      Side
	status    Status
	winner    string
	moveCount int

	inbox   chan any
	release func(*Match)

	// submitMu guards finished so a command is never enqueued after the
	// match goroutine stopped draining the inbox.
	submitMu sync.Mutex
	finished bool
}

// NewMatch pairs two connections into a match. a moves first as side A.
// release is invoked exactly once, from the match goroutine, when the match
// reaches a terminal status or its context is cancelled.
func NewMatch(a, b Conn, release func(*Match)) *Match {
	return &Match{
		id:      ulid.Make(),
		conns:   [2]Conn{a, b},
		turn:    SideA,
		status:  StatusInProgress,
		inbox:   make(chan any, inboxSize),
		release: release,
	}
}

// ID identifies the match.
func (m *Match) ID() ulid.ULID {
	return m.id
}

// Run processes commands until the match reaches a terminal status or ctx is
// cancelled. It must be called exactly once, on its own goroutine.
func (m *Match) Run(ctx context.Context) {
	defer m.release(m)
	defer m.finish()

	for {
		select {
		case <-ctx.Done():
			m.status = StatusAbandoned
			return
		case cmd := <-m.inbox:
			switch c := cmd.(type) {
			case moveCmd:
				if m.handleMove(c) {
					return
				}
			case leaveCmd:
				if m.handleLeave(c) {
					return
				}
			}
		}
	}
}

// Move submits a move for conn. Safe to call from any goroutine; a move
// arriving after the match ended is answered with MatchNotFound.
func (m *Match) Move(conn Conn, row, col int) {
	if !m.submit(moveCmd{conn: conn, row: row, col: col}) {
		conn.Send(NewError(CodeMatchNotFound))
	}
}

// Disconnect reports that conn's connection dropped. Safe to call from any
// goroutine; after the match ended it is a no-op.
func (m *Match) Disconnect(conn Conn) {
	m.submit(leaveCmd{conn: conn})
}

// submit enqueues a command unless the match already finished. A participant
// flooding the inbox faster than the match goroutine drains it has its excess
// dropped; with two participants and a deep buffer that only happens to a
// misbehaving client.
func (m *Match) submit(cmd any) bool {
	m.submitMu.Lock()
	defer m.submitMu.Unlock()

	if m.finished {
		return false
	}
	select {
	case m.inbox <- cmd:
		return true
	default:
		slog.Warn("match inbox full, dropping command", "match_id", m.id.String())
		return true
	}
}

// finish marks the match terminal and bounces commands that slipped into the
// inbox before the flag was set.
func (m *Match) finish() {
	m.submitMu.Lock()
	m.finished = true
	m.submitMu.Unlock()

	for {
		select {
		case cmd := <-m.inbox:
			if mv, ok := cmd.(moveCmd); ok {
				mv.conn.Send(NewError(CodeMatchNotFound))
			}
		default:
			return
		}
	}
}

// handleMove validates and applies one move. Returns true when the match
// reached a terminal status.
func (m *Match) handleMove(c moveCmd) bool {
	side, ok := m.sideOf(c.conn)
	if !ok {
		c.conn.Send(NewError(CodeMatchNotFound))
		return false
	}

	// Validation order: turn, bounds, occupancy. A rejected move never
	// mutates the board.
	if m.turn != side {
		c.conn.Send(NewError(CodeNotYourTurn))
		return false
	}
	if !m.board.InBounds(c.row, c.col) {
		c.conn.Send(NewError(CodeOutOfBounds))
		return false
	}
	if m.board.At(c.row, c.col) != CellEmpty {
		c.conn.Send(NewError(CodeCellOccupied))
		return false
	}

	m.board.Place(c.row, c.col, side)
	m.moveCount++

	if m.board.WinAt(c.row, c.col) {
		m.status = StatusWon
		m.winner = c.conn.Username()
		m.broadcast(NewGameOver(ResultWon, m.winner))
		return true
	}

	if m.board.Full() {
		m.status = StatusDraw
		m.broadcast(NewGameOver(ResultDraw, ""))
		return true
	}

	m.turn = side.Other()
	m.broadcast(NewMoveApplied(side, c.row, c.col, m.turn))
	return false
}

// handleLeave ends the match when a participant drops mid-game. The survivor
// is notified exactly once. Returns true when the match ended.
func (m *Match) handleLeave(c leaveCmd) bool {
	side, ok := m.sideOf(c.conn)
	if !ok {
		return false
	}

	m.status = StatusAbandoned
	survivor := m.conns[0]
	if side == SideA {
		survivor = m.conns[1]
	}
	survivor.Send(NewGameOver(ResultAbandoned, ""))

	slog.Info("match abandoned",
		"match_id", m.id.String(),
		"left", c.conn.Username(),
		"move_count", m.moveCount,
	)
	return true
}

// sideOf resolves which side a connection plays.
func (m *Match) sideOf(conn Conn) (Side, bool) {
	switch conn.ID() {
	case m.conns[0].ID():
		return SideA, true
	case m.conns[1].ID():
		return SideB, true
	default:
		return "", false
	}
}

func (m *Match) broadcast(msg Message) {
	m.conns[0].Send(msg)
	m.conns[1].Send(msg)
}
