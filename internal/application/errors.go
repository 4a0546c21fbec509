package application

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/example/liveworship/internal/api"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrSongAlreadyInEvent is returned when adding a song the event already contains.
	ErrSongAlreadyInEvent = errors.New("application: song already in event")
	// ErrConflict is returned when the server rejects a mutation against stale state.
	ErrConflict = errors.New("application: conflict")
)

// CodeSongAlreadyInEvent is the structured API error code for duplicate event songs.
const CodeSongAlreadyInEvent = "song_already_in_event"

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// TranslateAPIError translates an API failure into the application taxonomy.
// Errors that did not come from the API are returned unchanged.
func TranslateAPIError(err error) error {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	if apiErr.Code == CodeSongAlreadyInEvent {
		return fmt.Errorf("%w: %s", ErrSongAlreadyInEvent, apiErr.Message)
	}
	// Older API builds report duplicates only through the message text.
	if apiErr.Code == "" && apiErr.Status < http.StatusInternalServerError &&
		strings.Contains(strings.ToLower(apiErr.Message), "already") {
		return fmt.Errorf("%w: %s", ErrSongAlreadyInEvent, apiErr.Message)
	}

	switch apiErr.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, apiErr.Message)
	}
	return err
}

// UserMessage returns the notification text shown for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var vErr *ValidationError
	switch {
	case errors.Is(err, ErrSongAlreadyInEvent):
		return "This song is already part of the event."
	case errors.Is(err, ErrConflict):
		return "The event changed in the meantime. Reload it and try again."
	case errors.As(err, &vErr):
		return "Some fields need your attention."
	case errors.Is(err, ErrUnauthorized):
		return "You do not have permission to do that."
	case errors.Is(err, ErrNotFound):
		return "The event could not be found."
	default:
		return "Something went wrong. Please try again."
	}
}
