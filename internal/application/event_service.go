package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/liveworship/internal/api"
	"github.com/example/liveworship/internal/authz"
	"github.com/example/liveworship/internal/worship"
)

// EventAPI captures the remote operations needed by the service.
type EventAPI interface {
	GetEvent(ctx context.Context, bandID, eventID string) (worship.Event, error)
	AddSong(ctx context.Context, eventID, songID string) (worship.Event, error)
	RemoveSong(ctx context.Context, eventID, eventSongID string) (worship.Event, error)
	ReorderSongs(ctx context.Context, eventID string, eventSongIDs []string) (worship.Event, error)
	UpdateTranspose(ctx context.Context, eventID, eventSongID string, transpose int) (worship.Event, error)
	UpdateEvent(ctx context.Context, eventID string, details api.EventDetails) (worship.Event, error)
	SetEventManager(ctx context.Context, bandID, userID string) (api.ManagerAssignment, error)
	Members(ctx context.Context, bandID string) ([]worship.Membership, error)
}

// EventService validates and authorizes event mutations before sending them
// to the API. Nothing is sent for a request that fails validation or
// authorization.
type EventService struct {
	api    EventAPI
	logger *slog.Logger
}

// NewEventService constructs an event service with the provided API.
func NewEventService(eventAPI EventAPI) *EventService {
	return NewEventServiceWithLogger(eventAPI, nil)
}

// NewEventServiceWithLogger constructs an event service with a specified logger.
func NewEventServiceWithLogger(eventAPI EventAPI, logger *slog.Logger) *EventService {
	return &EventService{api: eventAPI, logger: defaultLogger(logger)}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// LoadEvent fetches the event aggregate and normalizes its running order.
func (s *EventService) LoadEvent(ctx context.Context, params LoadEventParams) (event worship.Event, err error) {
	if s == nil || s.api == nil {
		err = fmt.Errorf("EventService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "LoadEvent", "band_id", params.BandID, "event_id", params.EventID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to load event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event loaded", "songs", len(event.Songs))
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(params.BandID) == "" {
		vErr.add("bandId", "band id is required")
	}
	if strings.TrimSpace(params.EventID) == "" {
		vErr.add("eventId", "event id is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	event, err = s.api.GetEvent(ctx, params.BandID, params.EventID)
	if err != nil {
		err = TranslateAPIError(err)
		return
	}
	if event.BandID != "" && event.BandID != params.BandID {
		event = worship.Event{}
		err = fmt.Errorf("%w: event %s does not belong to band %s", ErrNotFound, params.EventID, params.BandID)
		return
	}
	event = normalizeEvent(event)
	return
}

// Memberships lists the band memberships used for authorization.
func (s *EventService) Memberships(ctx context.Context, bandID string) (members []worship.Membership, err error) {
	if s == nil || s.api == nil {
		err = fmt.Errorf("EventService is not configured")
		return
	}
	members, err = s.api.Members(ctx, bandID)
	if err != nil {
		err = TranslateAPIError(err)
		s.loggerWith(ctx, "Memberships", "band_id", bandID).
			ErrorContext(ctx, "failed to list memberships", "error", err, "error_kind", ErrorKind(err))
	}
	return
}

// Access resolves the principal's role for bandID from fresh memberships.
func (s *EventService) Access(ctx context.Context, principal Principal, bandID string) (authz.Access, error) {
	members, err := s.Memberships(ctx, bandID)
	if err != nil {
		return authz.Access{}, err
	}
	return authz.Resolve(principal.user(), members, bandID), nil
}

// AddSong appends a catalog song to the event.
func (s *EventService) AddSong(ctx context.Context, params AddSongParams) (event worship.Event, err error) {
	logger := s.loggerWith(ctx, "AddSong",
		"principal_id", params.Principal.UserID,
		"event_id", params.Event.ID,
		"song_id", params.SongID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add song", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "song added")
	}()

	if strings.TrimSpace(params.SongID) == "" {
		vErr := &ValidationError{}
		vErr.add("songId", "song is required")
		err = vErr
		return
	}
	if err = s.requireRestructure(ctx, params.Principal, params.Event.BandID); err != nil {
		return
	}
	if _, exists := params.Event.FindSong(params.SongID); exists {
		err = ErrSongAlreadyInEvent
		return
	}

	event, err = s.api.AddSong(ctx, params.Event.ID, params.SongID)
	if err != nil {
		err = TranslateAPIError(err)
		return
	}
	event = normalizeEvent(event)
	return
}

// RemoveSong deletes an event song.
func (s *EventService) RemoveSong(ctx context.Context, params RemoveSongParams) (event worship.Event, err error) {
	logger := s.loggerWith(ctx, "RemoveSong",
		"principal_id", params.Principal.UserID,
		"event_id", params.Event.ID,
		"event_song_id", params.EventSongID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to remove song", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "song removed")
	}()

	if !hasEventSong(params.Event, params.EventSongID) {
		err = fmt.Errorf("%w: event song %s", ErrNotFound, params.EventSongID)
		return
	}
	if err = s.requireRestructure(ctx, params.Principal, params.Event.BandID); err != nil {
		return
	}

	event, err = s.api.RemoveSong(ctx, params.Event.ID, params.EventSongID)
	if err != nil {
		err = TranslateAPIError(err)
		return
	}
	event = normalizeEvent(event)
	return
}

// ReorderSongs stores a new running order.
func (s *EventService) ReorderSongs(ctx context.Context, params ReorderSongsParams) (event worship.Event, err error) {
	logger := s.loggerWith(ctx, "ReorderSongs",
		"principal_id", params.Principal.UserID,
		"event_id", params.Event.ID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reorder songs", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "songs reordered")
	}()

	if vErr := validateOrder(params.Event, params.EventSongIDs); vErr.HasErrors() {
		err = vErr
		return
	}
	if err = s.requireRestructure(ctx, params.Principal, params.Event.BandID); err != nil {
		return
	}

	event, err = s.api.ReorderSongs(ctx, params.Event.ID, params.EventSongIDs)
	if err != nil {
		err = TranslateAPIError(err)
		return
	}
	event = normalizeEvent(event)
	return
}

// UpdateTranspose stores a transpose offset clamped to the allowed range.
func (s *EventService) UpdateTranspose(ctx context.Context, params UpdateTransposeParams) (event worship.Event, err error) {
	offset := worship.ClampTranspose(params.Transpose)
	logger := s.loggerWith(ctx, "UpdateTranspose",
		"principal_id", params.Principal.UserID,
		"event_id", params.Event.ID,
		"event_song_id", params.EventSongID,
		"transpose", offset,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update transpose", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "transpose updated")
	}()

	if !hasEventSong(params.Event, params.EventSongID) {
		err = fmt.Errorf("%w: event song %s", ErrNotFound, params.EventSongID)
		return
	}
	var access authz.Access
	access, err = s.Access(ctx, params.Principal, params.Event.BandID)
	if err != nil {
		return
	}
	if !access.CanControl() {
		err = ErrUnauthorized
		return
	}

	event, err = s.api.UpdateTranspose(ctx, params.Event.ID, params.EventSongID, offset)
	if err != nil {
		err = TranslateAPIError(err)
		return
	}
	event = normalizeEvent(event)
	return
}

// UpdateDetails edits the event title and date.
func (s *EventService) UpdateDetails(ctx context.Context, params UpdateDetailsParams) (event worship.Event, err error) {
	logger := s.loggerWith(ctx, "UpdateDetails",
		"principal_id", params.Principal.UserID,
		"event_id", params.Event.ID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event updated")
	}()

	vErr := &ValidationError{}
	vErr.merge(validateTitle(params.Title))
	if params.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if err = s.requireRestructure(ctx, params.Principal, params.Event.BandID); err != nil {
		return
	}

	details := api.EventDetails{Title: strings.TrimSpace(params.Title), Date: params.Date}
	event, err = s.api.UpdateEvent(ctx, params.Event.ID, details)
	if err != nil {
		err = TranslateAPIError(err)
		return
	}
	event = normalizeEvent(event)
	return
}

// ChangeManager reassigns the band's single event manager under the claim
// policy of the given scope.
func (s *EventService) ChangeManager(ctx context.Context, params ChangeManagerParams) (change ManagerChange, err error) {
	target := strings.TrimSpace(params.UserID)
	if target == "" {
		target = params.Principal.UserID
	}
	policy := authz.PolicyFor(params.Scope)

	logger := s.loggerWith(ctx, "ChangeManager",
		"principal_id", params.Principal.UserID,
		"band_id", params.BandID,
		"target_id", target,
		"policy", policy.Name(),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to change event manager", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event manager changed", "manager_name", change.UserName)
	}()

	if target == "" {
		vErr := &ValidationError{}
		vErr.add("userId", "user is required")
		err = vErr
		return
	}

	var members []worship.Membership
	members, err = s.Memberships(ctx, params.BandID)
	if err != nil {
		return
	}
	access := authz.Resolve(params.Principal.user(), members, params.BandID)
	if !policy.MayReassign(access) {
		err = ErrUnauthorized
		return
	}
	if !isMember(members, params.BandID, target) {
		err = fmt.Errorf("%w: user %s is not a member of band %s", ErrNotFound, target, params.BandID)
		return
	}

	var assignment api.ManagerAssignment
	assignment, err = s.api.SetEventManager(ctx, params.BandID, target)
	if err != nil {
		err = TranslateAPIError(err)
		return
	}
	if assignment.UserID == "" {
		assignment.UserID = target
	}

	change = ManagerChange{
		BandID:      params.BandID,
		UserID:      assignment.UserID,
		UserName:    assignment.UserName,
		Memberships: worship.AssignManager(members, params.BandID, assignment.UserID),
	}
	return
}

func (s *EventService) requireRestructure(ctx context.Context, principal Principal, bandID string) error {
	access, err := s.Access(ctx, principal, bandID)
	if err != nil {
		return err
	}
	if !access.CanRestructure() {
		return ErrUnauthorized
	}
	return nil
}

func normalizeEvent(event worship.Event) worship.Event {
	songs := worship.Renumber(event.SortedSongs())
	for i := range songs {
		songs[i].Transpose = worship.ClampTranspose(songs[i].Transpose)
	}
	event.Songs = songs
	return event
}

func hasEventSong(event worship.Event, eventSongID string) bool {
	for _, es := range event.Songs {
		if es.ID == eventSongID {
			return true
		}
	}
	return false
}

func isMember(members []worship.Membership, bandID, userID string) bool {
	for _, m := range members {
		if m.BandID == bandID && m.UserID == userID {
			return true
		}
	}
	return false
}

func validateTitle(title string) *ValidationError {
	vErr := &ValidationError{}
	trimmed := strings.TrimSpace(title)
	switch {
	case trimmed == "":
		vErr.add("title", "title is required")
	case len([]rune(trimmed)) > 120:
		vErr.add("title", "title must be 120 characters or fewer")
	}
	return vErr
}

func validateOrder(event worship.Event, ids []string) *ValidationError {
	vErr := &ValidationError{}
	if len(ids) != len(event.Songs) {
		vErr.add("order", "order must list every event song exactly once")
		return vErr
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] || !hasEventSong(event, id) {
			vErr.add("order", "order must list every event song exactly once")
			return vErr
		}
		seen[id] = true
	}
	return vErr
}
