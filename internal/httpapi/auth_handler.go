// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

// Package httpapi serves the REST surface: health, the auth endpoints, and
// the WebSocket upgrade route.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fiverow/fiverow/internal/auth"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type identityResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// AuthHandler exposes the session lifecycle over HTTP.
type AuthHandler struct {
	svc    *auth.Service
	record func(operation, status string)
}

// NewAuthHandler creates the auth endpoint handler.
func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// SetRecorder registers a hook counting the outcome of each auth operation.
// Must be set before the handler serves traffic.
func (h *AuthHandler) SetRecorder(fn func(operation, status string)) {
	h.record = fn
}

func (h *AuthHandler) count(operation string, err error) {
	if h.record == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	h.record(operation, status)
}

// Register creates a user plus an initial session.
//
// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "malformed request body")
		return
	}

	pair, err := h.svc.Register(r.Context(), req.Username, req.Password)
	h.count("register", err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pair)
}

// Login verifies credentials and replaces any live session for the user.
//
// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "malformed request body")
		return
	}

	pair, err := h.svc.Login(r.Context(), req.Username, req.Password)
	h.count("login", err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Refresh consumes a refresh token and returns a fresh pair. The presented
// token is single-use; replays fail with SessionInvalid.
//
// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "malformed request body")
		return
	}

	pair, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	h.count("refresh", err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Logout revokes the presented session. Idempotent; always 204.
//
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "malformed request body")
		return
	}

	err := h.svc.Logout(r.Context(), req.RefreshToken)
	h.count("logout", err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me introspects the Bearer access token. Signature and expiry only; session
// state is not consulted.
//
// GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, prefix) {
		writeError(w, http.StatusUnauthorized, codeSessionInvalid, "bearer access token required")
		return
	}

	identity, err := h.svc.WhoAmI(strings.TrimPrefix(header, prefix))
	h.count("whoami", err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, identityResponse{
		UserID:   identity.UserID.String(),
		Username: identity.Username,
	})
}
