package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/liveworship/internal/api"
	"github.com/example/liveworship/internal/application"
	"github.com/example/liveworship/internal/gateway"
	"github.com/example/liveworship/internal/live"
	"github.com/example/liveworship/internal/navigation"
)

var (
	errBadRequestBody = errors.New("The request body is not valid JSON.")
	errNoSession      = errors.New("Log in to use the live console.")
	errMissingSongID  = errors.New("An event song id is required.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps domain errors onto status codes. Messages come
// from application.UserMessage so the console shows the same text the
// projection screens do.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var vErr *application.ValidationError
	switch {
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   application.UserMessage(err),
			Errors:    vErr.FieldErrors,
		})
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{ErrorCode: "AUTH_FORBIDDEN", Message: application.UserMessage(err)})
	case errors.Is(err, application.ErrSongAlreadyInEvent):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "SONG_ALREADY_IN_EVENT", Message: application.UserMessage(err)})
	case errors.Is(err, application.ErrConflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "CONFLICT", Message: application.UserMessage(err)})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{ErrorCode: "NOT_FOUND", Message: application.UserMessage(err)})
	case errors.Is(err, live.ErrUnknownSong):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{ErrorCode: "UNKNOWN_SONG", Message: "That song is not part of the event."})
	case errors.Is(err, gateway.ErrInvalidIntent):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{ErrorCode: "INVALID_INTENT", Message: strings.TrimPrefix(err.Error(), "gateway: ")})
	case errors.Is(err, navigation.ErrInactive):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "INPUT_INACTIVE", Message: "Navigation input works only in fullscreen with the swipe lock off."})
	case errors.Is(err, navigation.ErrNoSong):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "NO_SONG_SELECTED", Message: "Select a song first."})
	case errors.Is(err, context.DeadlineExceeded):
		r.writeJSON(ctx, w, http.StatusGatewayTimeout, errorResponse{ErrorCode: "UPSTREAM_TIMEOUT", Message: application.UserMessage(err)})
	case api.StatusOf(err) >= http.StatusInternalServerError:
		r.writeJSON(ctx, w, http.StatusBadGateway, errorResponse{ErrorCode: "UPSTREAM_FAILED", Message: application.UserMessage(err)})
	default:
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: application.UserMessage(err)})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "The request is not valid."
	case http.StatusUnauthorized:
		return "Authentication is required."
	case http.StatusForbidden:
		return "You do not have permission to do that."
	case http.StatusNotFound:
		return "The requested resource was not found."
	case http.StatusConflict:
		return "The request conflicts with the current state."
	case http.StatusUnprocessableEntity:
		return "Some fields need your attention."
	default:
		return "Something went wrong. Please try again."
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
