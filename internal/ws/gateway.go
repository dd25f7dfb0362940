// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fiverow/fiverow/internal/auth"
	"github.com/fiverow/fiverow/internal/game"
)

// TokenVerifier validates an access token and returns the identity it was
// minted for.
type TokenVerifier interface {
	WhoAmI(accessToken string) (*auth.Identity, error)
}

// Gateway upgrades authenticated HTTP requests to WebSocket connections and
// bridges them into matchmaking. One read loop per connection; all writes go
// through the connection's writer goroutine.
type Gateway struct {
	verifier   TokenVerifier
	matchmaker *game.Matchmaker
	registry   *game.Registry

	// matchCtx scopes match goroutines to the server's lifetime.
	matchCtx context.Context

	upgrader websocket.Upgrader
	active   atomic.Int64
}

// NewGateway creates a gateway. matchCtx bounds the lifetime of every match
// it starts; cancelling it abandons all live matches.
func NewGateway(matchCtx context.Context, verifier TokenVerifier, mm *game.Matchmaker, reg *game.Registry) *Gateway {
	return &Gateway{
		verifier:   verifier,
		matchmaker: mm,
		registry:   reg,
		matchCtx:   matchCtx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Token auth is the admission control; browser origin is not.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ActiveConnections returns the number of open WebSocket connections.
func (g *Gateway) ActiveConnections() int {
	return int(g.active.Load())
}

// ServeHTTP authenticates and upgrades the request, then serves the
// connection until it drops.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := g.verifier.WhoAmI(bearerToken(r))
	if err != nil {
		writeUnauthorized(w)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake failure response.
		return
	}

	conn := newConnection(ws, identity.UserID, identity.Username)
	go conn.writeLoop()

	g.active.Add(1)
	defer g.active.Add(-1)

	slog.Info("connection opened",
		"conn_id", conn.ID().String(),
		"username", conn.Username(),
	)

	if err := g.matchmaker.Enqueue(g.matchCtx, conn); err != nil {
		// A user holds at most one seat; a second connection is turned away.
		conn.Send(game.NewError(game.CodeUnauthorized))
		conn.close()
		slog.Info("connection rejected", "username", conn.Username(), "error", err)
		return
	}

	g.readLoop(conn)

	if g.matchmaker.Remove(conn.ID()) {
		slog.Info("left queue", "conn_id", conn.ID().String())
	} else {
		g.registry.Disconnect(conn)
	}
	conn.close()

	slog.Info("connection closed",
		"conn_id", conn.ID().String(),
		"username", conn.Username(),
	)
}

// readLoop parses inbound frames until the socket errors. Text "ping" gets a
// text "pong"; everything else must be a JSON client message.
func (g *Gateway) readLoop(conn *Connection) {
	ws := conn.ws
	ws.SetReadLimit(maxMessageBytes)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		if msgType != websocket.TextMessage {
			continue
		}
		if string(data) == "ping" {
			conn.replyPong()
			continue
		}

		var msg game.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.Send(game.NewError(game.CodeBadRequest))
			continue
		}
		g.registry.Route(conn, msg)
	}
}

// bearerToken extracts the access token from the accessToken query parameter
// or an Authorization: Bearer header. Browser WebSocket clients cannot set
// headers, so the query parameter is the primary channel.
func bearerToken(r *http.Request) string {
	if tok := r.URL.Query().Get("accessToken"); tok != "" {
		return tok
	}
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, prefix) {
		return strings.TrimPrefix(header, prefix)
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    game.CodeUnauthorized,
			"message": "valid access token required",
		},
	})
}
