// Package socket speaks the event channel protocol over a WebSocket
// connection.
//
// Every frame is a JSON envelope {"event": name, "data": {...}}. The set of
// event names is closed: Decode rejects names and payloads it does not know
// instead of passing them through.
package socket

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownMessage is returned for envelopes with an unrecognised event
	// name or a payload that fails validation.
	ErrUnknownMessage = errors.New("socket: unknown message")
	// ErrDisconnected is returned when emitting without a live connection.
	ErrDisconnected = errors.New("socket: disconnected")
)

// Event names on the wire.
const (
	NameJoinEvent         = "joinEvent"
	NameLeaveEvent        = "leaveEvent"
	NameGetConnectedUsers = "getConnectedUsers"
	NameVideoSeek         = "videoSeek"
	NameVideoProgress     = "videoProgress"
	NameUsersUpdate       = "eventUsersUpdate"
	NameLyricSelected     = "lyricSelected"
	NameSelectedSong      = "eventSelectedSong"
	NameManagerChanged    = "eventManagerChanged"
	NameEventUpdated      = "eventUpdated"
)

// Message is the closed set of payloads carried on the channel.
type Message interface {
	EventName() string
	validate() error
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinEvent asks the server to add this connection to an event room.
type JoinEvent struct {
	EventID string `json:"eventId"`
}

// LeaveEvent removes the connection from its current room.
type LeaveEvent struct{}

// GetConnectedUsers requests the roster of an event room.
type GetConnectedUsers struct {
	EventID string `json:"eventId"`
}

// VideoSeek synchronises companion video scrubbing.
type VideoSeek struct {
	EventID string  `json:"eventId"`
	SongID  string  `json:"songId,omitempty"`
	Seconds float64 `json:"seconds"`
}

// VideoProgress reports companion video playback progress.
type VideoProgress struct {
	EventID string  `json:"eventId"`
	SongID  string  `json:"songId,omitempty"`
	Seconds float64 `json:"seconds"`
	Playing bool    `json:"playing"`
}

// ConnectedUser is an authenticated member of an event room.
type ConnectedUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UsersUpdate is the roster broadcast for an event room.
type UsersUpdate struct {
	EventID    string          `json:"eventId"`
	Users      []ConnectedUser `json:"users"`
	GuestCount int             `json:"guestCount"`
	TotalCount int             `json:"totalCount"`
}

// LyricSelected is the broadcast of a new lyric selection.
type LyricSelected struct {
	EventID  string `json:"eventId"`
	Position int    `json:"position"`
	Action   string `json:"action"`
}

// SelectedSong is the broadcast of a newly selected event song.
type SelectedSong struct {
	EventID string `json:"eventId"`
	SongID  string `json:"songId"`
}

// ManagerChanged is the broadcast of an event-manager reassignment.
type ManagerChanged struct {
	BandID   string `json:"bandId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// EventUpdated announces that the event aggregate changed server-side.
type EventUpdated struct {
	EventID string `json:"eventId"`
}

func (JoinEvent) EventName() string { return NameJoinEvent }
func (LeaveEvent) EventName() string { return NameLeaveEvent }
func (GetConnectedUsers) EventName() string { return NameGetConnectedUsers }
func (VideoSeek) EventName() string { return NameVideoSeek }
func (VideoProgress) EventName() string { return NameVideoProgress }
func (UsersUpdate) EventName() string { return NameUsersUpdate }
func (LyricSelected) EventName() string { return NameLyricSelected }
func (SelectedSong) EventName() string { return NameSelectedSong }
func (ManagerChanged) EventName() string { return NameManagerChanged }
func (EventUpdated) EventName() string { return NameEventUpdated }

func (m JoinEvent) validate() error { return requireID("eventId", m.EventID) }
func (LeaveEvent) validate() error { return nil }
func (m GetConnectedUsers) validate() error { return requireID("eventId", m.EventID) }
func (m EventUpdated) validate() error { return requireID("eventId", m.EventID) }
func (m SelectedSong) validate() error { return requireID("eventId", m.EventID) }

func (m VideoSeek) validate() error {
	if m.Seconds < 0 {
		return fmt.Errorf("seconds must not be negative")
	}
	return requireID("eventId", m.EventID)
}

func (m VideoProgress) validate() error {
	if m.Seconds < 0 {
		return fmt.Errorf("seconds must not be negative")
	}
	return requireID("eventId", m.EventID)
}

func (m UsersUpdate) validate() error {
	if m.GuestCount < 0 {
		return fmt.Errorf("guestCount must not be negative")
	}
	return requireID("eventId", m.EventID)
}

func (m LyricSelected) validate() error {
	if m.Position < 0 {
		return fmt.Errorf("position must not be negative")
	}
	if m.Action != "forward" && m.Action != "backward" {
		return fmt.Errorf("action %q is not forward or backward", m.Action)
	}
	return requireID("eventId", m.EventID)
}

func (m ManagerChanged) validate() error {
	if err := requireID("bandId", m.BandID); err != nil {
		return err
	}
	return requireID("userId", m.UserID)
}

func requireID(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

// Encode wraps msg in an envelope.
func Encode(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("socket: nil message")
	}
	if err := msg.validate(); err != nil {
		return nil, fmt.Errorf("socket: invalid %s: %w", msg.EventName(), err)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("socket: encode %s: %w", msg.EventName(), err)
	}
	return json.Marshal(envelope{Event: msg.EventName(), Data: data})
}

// Decode parses and validates an envelope.
func Decode(frame []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed envelope: %v", ErrUnknownMessage, err)
	}

	var msg Message
	switch env.Event {
	case NameJoinEvent:
		msg = decodeInto[JoinEvent](env.Data)
	case NameLeaveEvent:
		msg = decodeInto[LeaveEvent](env.Data)
	case NameGetConnectedUsers:
		msg = decodeInto[GetConnectedUsers](env.Data)
	case NameVideoSeek:
		msg = decodeInto[VideoSeek](env.Data)
	case NameVideoProgress:
		msg = decodeInto[VideoProgress](env.Data)
	case NameUsersUpdate:
		msg = decodeInto[UsersUpdate](env.Data)
	case NameLyricSelected:
		msg = decodeInto[LyricSelected](env.Data)
	case NameSelectedSong:
		msg = decodeInto[SelectedSong](env.Data)
	case NameManagerChanged:
		msg = decodeInto[ManagerChanged](env.Data)
	case NameEventUpdated:
		msg = decodeInto[EventUpdated](env.Data)
	default:
		return nil, fmt.Errorf("%w: event %q", ErrUnknownMessage, env.Event)
	}

	if bad, ok := msg.(decodeFailure); ok {
		return nil, fmt.Errorf("%w: %s payload: %v", ErrUnknownMessage, env.Event, bad.err)
	}
	if err := msg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s payload: %v", ErrUnknownMessage, env.Event, err)
	}
	return msg, nil
}

type decodeFailure struct{ err error }

func (decodeFailure) EventName() string { return "" }
func (d decodeFailure) validate() error { return d.err }

func decodeInto[T Message](data json.RawMessage) Message {
	var msg T
	if len(data) == 0 || string(data) == "null" {
		return msg
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return decodeFailure{err: err}
	}
	return msg
}
