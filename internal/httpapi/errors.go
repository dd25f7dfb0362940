// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fiverow/fiverow/internal/auth"
	"github.com/fiverow/fiverow/internal/store"
	"github.com/fiverow/fiverow/pkg/errutil"
)

// Wire error codes for the HTTP surface. Game codes live with the game; these
// cover the auth endpoints and infrastructure failures.
const (
	codeDuplicateUsername  = "DuplicateUsername"
	codeInvalidCredentials = "InvalidCredentials"
	codeSessionInvalid     = "SessionInvalid"
	codeInvalidUsername    = "InvalidUsername"
	codeWeakPassword       = "WeakPassword"
	codeBadRequest         = "BadRequest"
	codeStoreUnavailable   = "StoreUnavailable"
	codeInternal           = "Internal"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// httpStatus maps internal error codes to the wire code, HTTP status, and
// public message the client sees. Anything unmapped is an internal error and
// stays opaque.
var httpStatus = map[string]struct {
	status  int
	code    string
	message string
}{
	auth.CodeDuplicateUsername:  {http.StatusConflict, codeDuplicateUsername, "username already taken"},
	auth.CodeInvalidCredentials: {http.StatusUnauthorized, codeInvalidCredentials, "invalid username or password"},
	auth.CodeSessionInvalid:     {http.StatusUnauthorized, codeSessionInvalid, "session is invalid or expired"},
	auth.CodeTokenInvalid:       {http.StatusUnauthorized, codeSessionInvalid, "access token is invalid"},
	auth.CodeTokenExpired:       {http.StatusUnauthorized, codeSessionInvalid, "access token has expired"},
	auth.CodeInvalidUsername:    {http.StatusBadRequest, codeInvalidUsername, "username must be 3-30 characters, letters, digits, underscore"},
	auth.CodeWeakPassword:       {http.StatusBadRequest, codeWeakPassword, "password does not meet minimum length"},
}

// writeServiceError translates a service-layer failure into the public error
// envelope. Domain errors pass through as their wire code; connectivity
// failures become 503; everything else is a 500 with no internal detail.
func writeServiceError(w http.ResponseWriter, err error) {
	if m, ok := httpStatus[errutil.Code(err)]; ok {
		writeError(w, m.status, m.code, m.message)
		return
	}

	if store.IsUnavailable(err) {
		slog.Warn("store unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, codeStoreUnavailable, "storage temporarily unavailable")
		return
	}

	slog.Error("unhandled service error", "error", err)
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("write response", "error", err)
	}
}
