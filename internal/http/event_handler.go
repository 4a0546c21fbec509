package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/liveworship/internal/application"
	"github.com/example/liveworship/internal/authz"
	"github.com/example/liveworship/internal/live"
	"github.com/example/liveworship/internal/worship"
)

type eventService interface {
	AddSong(ctx context.Context, params application.AddSongParams) (worship.Event, error)
	RemoveSong(ctx context.Context, params application.RemoveSongParams) (worship.Event, error)
	ReorderSongs(ctx context.Context, params application.ReorderSongsParams) (worship.Event, error)
	UpdateTranspose(ctx context.Context, params application.UpdateTransposeParams) (worship.Event, error)
	UpdateDetails(ctx context.Context, params application.UpdateDetailsParams) (worship.Event, error)
	ChangeManager(ctx context.Context, params application.ChangeManagerParams) (application.ManagerChange, error)
}

type eventState interface {
	Snapshot() live.Snapshot
	SetEvent(event worship.Event) error
	SetMembers(members []worship.Membership) error
	ApplyManagerChange(bandID, userID, userName string) error
}

// EventHandler edits the open event and applies each result to the live
// state without waiting for the eventUpdated broadcast.
type EventHandler struct {
	service   eventService
	state     eventState
	scope     authz.Scope
	responder responder
	logger    *slog.Logger
}

// NewEventHandler constructs an EventHandler. The scope selects the manager
// claim policy.
func NewEventHandler(service eventService, state eventState, scope authz.Scope) *EventHandler {
	return NewEventHandlerWithLogger(service, state, scope, nil)
}

// NewEventHandlerWithLogger constructs an EventHandler with a custom logger.
func NewEventHandlerWithLogger(service eventService, state eventState, scope authz.Scope, logger *slog.Logger) *EventHandler {
	base := defaultLogger(logger)
	if scope == "" {
		scope = authz.ScopeBand
	}
	return &EventHandler{
		service:   service,
		state:     state,
		scope:     scope,
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "EventHandler", operation, attrs...)
}

func (h *EventHandler) principal(w http.ResponseWriter, r *http.Request) (application.Principal, bool) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errNoSession)
		return application.Principal{}, false
	}
	return principal, true
}

// AddSong appends a catalog song.
func (h *EventHandler) AddSong(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req addSongRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "AddSong", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode add song request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	event, err := h.service.AddSong(r.Context(), application.AddSongParams{
		Principal: principal,
		Event:     h.state.Snapshot().Event,
		SongID:    req.SongID,
	})
	h.finish(w, r, "AddSong", http.StatusCreated, event, err)
}

// RemoveSong deletes an event song.
func (h *EventHandler) RemoveSong(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingSongID)
		return
	}

	event, err := h.service.RemoveSong(r.Context(), application.RemoveSongParams{
		Principal:   principal,
		Event:       h.state.Snapshot().Event,
		EventSongID: id,
	})
	h.finish(w, r, "RemoveSong", http.StatusOK, event, err)
}

// ReorderSongs stores a new running order.
func (h *EventHandler) ReorderSongs(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "ReorderSongs", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reorder request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	event, err := h.service.ReorderSongs(r.Context(), application.ReorderSongsParams{
		Principal:    principal,
		Event:        h.state.Snapshot().Event,
		EventSongIDs: req.EventSongIDs,
	})
	h.finish(w, r, "ReorderSongs", http.StatusOK, event, err)
}

// Transpose changes the transpose offset of one event song.
func (h *EventHandler) Transpose(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req transposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Transpose", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode transpose request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	event, err := h.service.UpdateTranspose(r.Context(), application.UpdateTransposeParams{
		Principal:   principal,
		Event:       h.state.Snapshot().Event,
		EventSongID: mux.Vars(r)["id"],
		Transpose:   req.Transpose,
	})
	h.finish(w, r, "Transpose", http.StatusOK, event, err)
}

// UpdateDetails edits the event title and date.
func (h *EventHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req detailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "UpdateDetails", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode event details", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	current := h.state.Snapshot().Event
	title := current.Title
	if req.Title != nil {
		title = *req.Title
	}
	date := current.Date
	if req.Date != nil {
		date = *req.Date
	}

	event, err := h.service.UpdateDetails(r.Context(), application.UpdateDetailsParams{
		Principal: principal,
		Event:     current,
		Title:     title,
		Date:      date,
	})
	h.finish(w, r, "UpdateDetails", http.StatusOK, event, err)
}

// ChangeManager claims or reassigns the band's event manager. An empty body
// claims the role for the caller.
func (h *EventHandler) ChangeManager(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req managerRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.log(r.Context(), "ChangeManager", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode manager request", "error", err)
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
	}

	ctx := r.Context()
	logger := h.log(ctx, "ChangeManager", "scope", h.scope)
	change, err := h.service.ChangeManager(ctx, application.ChangeManagerParams{
		Principal: principal,
		BandID:    h.state.Snapshot().Event.BandID,
		UserID:    req.UserID,
		Scope:     h.scope,
	})
	if err != nil {
		logger.ErrorContext(ctx, "manager change failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	if err := h.state.SetMembers(change.Memberships); err != nil {
		logger.WarnContext(ctx, "members not applied", "error", err)
	}
	if err := h.state.ApplyManagerChange(change.BandID, change.UserID, change.UserName); err != nil {
		logger.WarnContext(ctx, "manager change not applied", "error", err)
	}
	logger.InfoContext(ctx, "manager changed", "manager_id", change.UserID)
	h.responder.writeJSON(ctx, w, http.StatusOK, managerResponse{
		BandID:   change.BandID,
		UserID:   change.UserID,
		UserName: change.UserName,
	})
}

func (h *EventHandler) finish(w http.ResponseWriter, r *http.Request, operation string, status int, event worship.Event, err error) {
	ctx := r.Context()
	logger := h.log(ctx, operation)
	if err != nil {
		logger.ErrorContext(ctx, "event update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	if err := h.state.SetEvent(event); err != nil {
		logger.WarnContext(ctx, "event not applied to live state", "error", err)
	}
	logger.InfoContext(ctx, "event updated", "songs", len(event.Songs))
	h.responder.writeJSON(ctx, w, status, event)
}

type addSongRequest struct {
	SongID string `json:"songId"`
}

type reorderRequest struct {
	EventSongIDs []string `json:"eventSongIds"`
}

type transposeRequest struct {
	Transpose int `json:"transpose"`
}

type detailsRequest struct {
	Title *string    `json:"title"`
	Date  *time.Time `json:"date"`
}

type managerRequest struct {
	UserID string `json:"userId"`
}

type managerResponse struct {
	BandID   string `json:"bandId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
}
