package http

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/example/liveworship/internal/application"
	"github.com/example/liveworship/internal/auth"
)

// RequestIDHeader carries the request identifier on responses.
const RequestIDHeader = "X-Request-ID"

// SessionSource exposes the principal of the logged-in session.
type SessionSource interface {
	Principal() (auth.Principal, bool)
}

// RequireSession rejects requests while no session is active and places the
// session principal on the request context.
func RequireSession(session SessionSource, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := session.Principal()
			if !ok {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errNoSession)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), application.Principal{
				UserID:        principal.UserID,
				Name:          principal.Name,
				IsSystemAdmin: principal.IsSystemAdmin,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger assigns each request an identifier and logs its start and
// completion. A nil newID uses random UUIDs.
func RequestLogger(base *slog.Logger, newID func() string) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	if newID == nil {
		newID = uuid.NewString
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := newID()
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithRequestID(ContextWithLogger(r.Context(), logger), id)
			w.Header().Set(RequestIDHeader, id)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(rec, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "status", rec.status, "duration", time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Hijack hands the connection to the WebSocket upgrader.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("http: response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
