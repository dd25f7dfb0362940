// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

// Package ws exposes the game over WebSocket. The gateway authenticates the
// upgrade, hands the connection to matchmaking, and pumps messages between
// the socket and the game layer.
package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"github.com/fiverow/fiverow/internal/game"
)

const (
	// sendBufferSize bounds queued outbound messages per connection. A
	// client that cannot drain this many game messages is effectively gone.
	sendBufferSize = 32

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	maxMessageBytes = 512
)

// Connection adapts one WebSocket to the game layer. Writes go through a
// buffered channel drained by a single writer goroutine, so Send never blocks
// game goroutines on a slow peer.
type Connection struct {
	id       ulid.ULID
	userID   ulid.ULID
	username string

	ws   *websocket.Conn
	send chan game.Message
	pong chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

var _ game.Conn = (*Connection)(nil)

func newConnection(ws *websocket.Conn, userID ulid.ULID, username string) *Connection {
	return &Connection{
		id:       ulid.Make(),
		userID:   userID,
		username: username,
		ws:       ws,
		send:     make(chan game.Message, sendBufferSize),
		pong:     make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
}

// ID identifies this connection.
func (c *Connection) ID() ulid.ULID { return c.id }

// UserID identifies the authenticated user.
func (c *Connection) UserID() ulid.ULID { return c.userID }

// Username is the authenticated user's name.
func (c *Connection) Username() string { return c.username }

// Send queues msg for delivery. If the outbound buffer is full the message is
// dropped and the connection closed; the peer will reconnect into a clean
// state rather than resume from a gapped stream.
func (c *Connection) Send(msg game.Message) {
	select {
	case <-c.closed:
	case c.send <- msg:
	default:
		slog.Warn("outbound buffer full, dropping connection",
			"conn_id", c.id.String(),
			"username", c.username,
		)
		c.close()
	}
}

// replyPong schedules an application-level "pong" text frame. At most one is
// pending at a time; a flood of pings collapses into a single reply.
func (c *Connection) replyPong() {
	select {
	case c.pong <- struct{}{}:
	default:
	}
}

// close makes the writer goroutine exit, which closes the socket and in turn
// unblocks the read loop.
func (c *Connection) close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// writeLoop drains the send channel onto the socket and emits keepalive
// pings. It owns all writes to the underlying connection.
func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.ws.Close()

	for {
		select {
		case <-c.closed:
			// Flush anything queued before the close was requested, then
			// say goodbye.
			for {
				select {
				case msg := <-c.send:
					_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.ws.WriteJSON(msg); err != nil {
						return
					}
				default:
					deadline := time.Now().Add(writeWait)
					_ = c.ws.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
					return
				}
			}
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(msg); err != nil {
				c.close()
				return
			}
		case <-c.pong:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, []byte("pong")); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(writeWait)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.close()
				return
			}
		}
	}
}
