package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/liveworship/internal/application"
	"github.com/example/liveworship/internal/gateway"
	"github.com/example/liveworship/internal/live"
	"github.com/example/liveworship/internal/navigation"
	"github.com/example/liveworship/internal/presence"
	"github.com/example/liveworship/internal/printout"
)

// DefaultIntentTimeout bounds how long a handler waits for a durable intent.
const DefaultIntentTimeout = 10 * time.Second

type liveState interface {
	Snapshot() live.Snapshot
	Subscribe() (chan live.Snapshot, func())
	SetView(view live.View) error
	SetPreferences(ctx context.Context, prefs live.Preferences) error
}

type navigator interface {
	Advance(ctx context.Context) (*gateway.Result, error)
	Retreat(ctx context.Context) (*gateway.Result, error)
	Select(ctx context.Context, position int) (*gateway.Result, error)
	HandleKey(ctx context.Context, key string) (*gateway.Result, error)
	HandleSwipe(ctx context.Context, swipe navigation.Swipe) (*gateway.Result, error)
}

type intentSender interface {
	Send(ctx context.Context, intent gateway.Intent) *gateway.Result
}

type rosterSource interface {
	Roster() presence.Roster
	Summary() string
}

// LiveConfig wires a LiveHandler.
type LiveConfig struct {
	State     liveState
	Navigator navigator
	Sender    intentSender
	Presence  rosterSource
	// IntentTimeout bounds waits on durable intents; zero uses
	// DefaultIntentTimeout.
	IntentTimeout time.Duration
	Logger        *slog.Logger
}

// LiveHandler serves the live view state, navigation input, display
// preferences, the roster and the printable song book.
type LiveHandler struct {
	state     liveState
	navigator navigator
	sender    intentSender
	presence  rosterSource
	timeout   time.Duration
	responder responder
	logger    *slog.Logger
}

// NewLiveHandler constructs a LiveHandler.
func NewLiveHandler(cfg LiveConfig) *LiveHandler {
	base := defaultLogger(cfg.Logger)
	timeout := cfg.IntentTimeout
	if timeout <= 0 {
		timeout = DefaultIntentTimeout
	}
	return &LiveHandler{
		state:     cfg.State,
		navigator: cfg.Navigator,
		sender:    cfg.Sender,
		presence:  cfg.Presence,
		timeout:   timeout,
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *LiveHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "LiveHandler", operation, attrs...)
}

// State returns the current snapshot.
func (h *LiveHandler) State(w http.ResponseWriter, r *http.Request) {
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toStateDTO(h.state.Snapshot()))
}

// Advance moves to the next chunk.
func (h *LiveHandler) Advance(w http.ResponseWriter, r *http.Request) {
	result, err := h.navigator.Advance(r.Context())
	h.finishNavigation(w, r, "Advance", result, err)
}

// Retreat moves back.
func (h *LiveHandler) Retreat(w http.ResponseWriter, r *http.Request) {
	result, err := h.navigator.Retreat(r.Context())
	h.finishNavigation(w, r, "Retreat", result, err)
}

// Key applies a keyboard event from a projection screen.
func (h *LiveHandler) Key(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Key", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode key request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	result, err := h.navigator.HandleKey(r.Context(), req.Key)
	h.finishNavigation(w, r, "Key", result, err)
}

// Swipe applies a touch gesture from a projection screen.
func (h *LiveHandler) Swipe(w http.ResponseWriter, r *http.Request) {
	var req navigation.Swipe
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Swipe", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode swipe request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	result, err := h.navigator.HandleSwipe(r.Context(), req)
	h.finishNavigation(w, r, "Swipe", result, err)
}

// Position jumps to a lyric picked from the list.
func (h *LiveHandler) Position(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Position", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode position request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	result, err := h.navigator.Select(r.Context(), req.Position)
	h.finishNavigation(w, r, "Position", result, err)
}

// Song changes the active song.
func (h *LiveHandler) Song(w http.ResponseWriter, r *http.Request) {
	var req songRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Song", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode song request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	result := h.sender.Send(r.Context(), gateway.EventSelectedSong{SongID: req.SongID})
	h.finishNavigation(w, r, "Song", result, nil)
}

// View toggles fullscreen projection and the swipe lock.
func (h *LiveHandler) View(w http.ResponseWriter, r *http.Request) {
	var req live.View
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "View", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode view request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if err := h.state.SetView(req); err != nil {
		h.log(r.Context(), "View").ErrorContext(r.Context(), "view update failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toStateDTO(h.state.Snapshot()))
}

// Preferences returns the display preferences of this device.
func (h *LiveHandler) Preferences(w http.ResponseWriter, r *http.Request) {
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.state.Snapshot().Preferences)
}

// UpdatePreferences stores new display preferences.
func (h *LiveHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	req := h.state.Snapshot().Preferences
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "UpdatePreferences", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode preferences", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	logger := h.log(r.Context(), "UpdatePreferences")
	if err := h.state.SetPreferences(r.Context(), req); err != nil {
		logger.ErrorContext(r.Context(), "preferences update failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "preferences updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.state.Snapshot().Preferences)
}

// Presence returns the room roster and its summary sentence.
func (h *LiveHandler) Presence(w http.ResponseWriter, r *http.Request) {
	if h.presence == nil {
		h.responder.writeError(r.Context(), w, http.StatusNotFound, nil)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, presenceResponse{
		Summary: h.presence.Summary(),
		Roster:  h.presence.Roster(),
	})
}

// PrintHTML returns the minified printable song book.
func (h *LiveHandler) PrintHTML(w http.ResponseWriter, r *http.Request) {
	doc, err := printout.MinifiedHTML(h.book(r))
	if err != nil {
		h.log(r.Context(), "PrintHTML").ErrorContext(r.Context(), "song book rendering failed", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// PrintMarkdown returns the song book as Markdown.
func (h *LiveHandler) PrintMarkdown(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(printout.Markdown(h.book(r))))
}

// book builds the song book from the current snapshot. The chords and
// structure query parameters override the stored preferences.
func (h *LiveHandler) book(r *http.Request) printout.Book {
	snap := h.state.Snapshot()
	opts := printout.Options{
		ShowChords:    snap.Preferences.ShowChords,
		ShowStructure: snap.Preferences.ShowStructure,
		Notation:      snap.Preferences.Notation,
	}
	q := r.URL.Query()
	if v := q.Get("chords"); v != "" {
		opts.ShowChords = v == "true" || v == "1"
	}
	if v := q.Get("structure"); v != "" {
		opts.ShowStructure = v == "true" || v == "1"
	}
	return printout.Build(snap.Event, opts)
}

// finishNavigation waits for a durable intent and reports the resulting
// state. A transition that would not move answers 204.
func (h *LiveHandler) finishNavigation(w http.ResponseWriter, r *http.Request, operation string, result *gateway.Result, err error) {
	ctx := r.Context()
	logger := h.log(ctx, operation)

	if errors.Is(err, navigation.ErrNoChange) || errors.Is(err, navigation.ErrIgnoredInput) {
		logger.DebugContext(ctx, "navigation input had no effect", "reason", err)
		h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
		return
	}
	if err == nil && result != nil {
		waitCtx, cancel := context.WithTimeout(ctx, h.timeout)
		err = result.Wait(waitCtx)
		cancel()
	}
	if err != nil {
		logger.ErrorContext(ctx, "navigation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "navigation applied")
	h.responder.writeJSON(ctx, w, http.StatusOK, toStateDTO(h.state.Snapshot()))
}

type keyRequest struct {
	Key string `json:"key"`
}

type positionRequest struct {
	Position int `json:"position"`
}

type songRequest struct {
	SongID string `json:"songId"`
}

type presenceResponse struct {
	Summary string          `json:"summary"`
	Roster  presence.Roster `json:"roster"`
}
