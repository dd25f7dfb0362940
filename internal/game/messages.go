// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

package game

import "github.com/oklog/ulid/v2"

// Wire-level error codes pushed to clients. Returned verbatim; internal
// error detail never crosses the connection.
const (
	CodeNotYourTurn   = "NotYourTurn"
	CodeCellOccupied  = "CellOccupied"
	CodeOutOfBounds   = "OutOfBounds"
	CodeMatchNotFound = "MatchNotFound"
	CodeBadRequest    = "BadRequest"
	CodeUnauthorized  = "ConnectionUnauthorized"
)

// Match results as they appear on the wire.
const (
	ResultWon       = "WON"
	ResultDraw      = "DRAW"
	ResultAbandoned = "ABANDONED"
)

// Conn is the gateway-side handle the game layer pushes messages through.
// Implementations must make Send safe for concurrent use and non-blocking.
type Conn interface {
	// ID identifies this connection.
	ID() ulid.ULID
	// UserID identifies the authenticated user behind the connection.
	UserID() ulid.ULID
	// Username is the authenticated user's name.
	Username() string
	// Send queues an outbound message. Messages queued by one goroutine
	// are delivered in order.
	Send(msg Message)
}

// Message is a server-to-client game message.
type Message interface {
	message()
}

// Waiting tells a queued connection no opponent is available yet.
type Waiting struct {
	Type string `json:"type"`
}

func (Waiting) message() {}

// NewWaiting constructs a waiting notice.
func NewWaiting() Waiting {
	return Waiting{Type: "waiting"}
}

// MatchStarted announces a pairing to one participant.
type MatchStarted struct {
	Type      string `json:"type"`
	Side      Side   `json:"side"`
	Opponent  string `json:"opponent"`
	BoardSize int    `json:"boardSize"`
	Turn      Side   `json:"turn"`
}

func (MatchStarted) message() {}

// NewMatchStarted constructs a matchStarted notice for the given side.
func NewMatchStarted(side Side, opponent string) MatchStarted {
	return MatchStarted{
		Type:      "matchStarted",
		Side:      side,
		Opponent:  opponent,
		BoardSize: BoardSize,
		Turn:      SideA,
	}
}

// MoveApplied broadcasts an accepted move to both participants. Turn names
// the side that may move next.
type MoveApplied struct {
	Type string `json:"type"`
	Side Side   `json:"side"`
	Row  int    `json:"row"`
	Col  int    `json:"col"`
	Turn Side   `json:"turn"`
}

func (MoveApplied) message() {}

// NewMoveApplied constructs a moveApplied broadcast.
func NewMoveApplied(side Side, row, col int, turn Side) MoveApplied {
	return MoveApplied{Type: "moveApplied", Side: side, Row: row, Col: col, Turn: turn}
}

// GameOver announces a terminal state. Winner is the winning username and is
// omitted for draws and abandoned matches.
type GameOver struct {
	Type   string `json:"type"`
	Result string `json:"result"`
	Winner string `json:"winner,omitempty"`
}

func (GameOver) message() {}

// NewGameOver constructs a gameOver broadcast.
func NewGameOver(result, winner string) GameOver {
	return GameOver{Type: "gameOver", Result: result, Winner: winner}
}

// ErrorMessage reports a rejected request to the offending connection only.
type ErrorMessage struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

func (ErrorMessage) message() {}

// NewError constructs an error message.
func NewError(code string) ErrorMessage {
	return ErrorMessage{Type: "error", Code: code}
}

// ClientMessage is an inbound game message.
type ClientMessage struct {
	Type string `json:"type"`
	Row  int    `json:"row"`
	Col  int    `json:"col"`
}
