package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/liveworship/internal/auth"
)

type sessionManager interface {
	Login(ctx context.Context, token string) (auth.Principal, error)
	Logout(ctx context.Context)
	Principal() (auth.Principal, bool)
}

// SessionHandler logs the console in and out. Logging in dials a fresh
// channel connection; logging out closes it.
type SessionHandler struct {
	session   sessionManager
	responder responder
	logger    *slog.Logger
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(session sessionManager, logger *slog.Logger) *SessionHandler {
	base := defaultLogger(logger)
	return &SessionHandler{session: session, responder: newResponder(base), logger: base}
}

// Current returns the logged-in principal.
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.session.Principal()
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errNoSession)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPrincipalDTO(principal))
}

// Create starts a session from a bearer token.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := handlerLogger(ctx, h.logger, "SessionHandler", "Create")

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.ErrorContext(ctx, "failed to decode login request", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, err := h.session.Login(ctx, req.Token)
	switch {
	case errors.Is(err, auth.ErrNoToken), errors.Is(err, auth.ErrMalformedToken):
		h.responder.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_INVALID_TOKEN", Message: "The token is not valid."})
		return
	case errors.Is(err, auth.ErrTokenExpired):
		h.responder.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_TOKEN_EXPIRED", Message: "The token has expired. Log in again."})
		return
	case err != nil:
		logger.ErrorContext(ctx, "login failed", "error", err)
		h.responder.writeError(ctx, w, http.StatusInternalServerError, nil)
		return
	}

	logger.InfoContext(ctx, "session created", "user_id", principal.UserID)
	h.responder.writeJSON(ctx, w, http.StatusCreated, toPrincipalDTO(principal))
}

// Delete ends the session.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.session.Logout(r.Context())
	handlerLogger(r.Context(), h.logger, "SessionHandler", "Delete").InfoContext(r.Context(), "session deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type loginRequest struct {
	Token string `json:"token"`
}

type principalDTO struct {
	UserID        string     `json:"user_id"`
	Name          string     `json:"name"`
	IsSystemAdmin bool       `json:"is_system_admin"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

func toPrincipalDTO(p auth.Principal) principalDTO {
	dto := principalDTO{UserID: p.UserID, Name: p.Name, IsSystemAdmin: p.IsSystemAdmin}
	if !p.ExpiresAt.IsZero() {
		exp := p.ExpiresAt
		dto.ExpiresAt = &exp
	}
	return dto
}
