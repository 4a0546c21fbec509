package gateway

import "github.com/example/liveworship/internal/socket"

// Intent is the closed set of requests the gateway delivers. Durable intents
// go through the mutation API and are fanned out by the server; transient
// intents are emitted on the channel only.
type Intent interface {
	Name() string
	Durable() bool
}

// LyricSelected moves the shared lyric position.
type LyricSelected struct {
	Position int
	Action   string
}

// EventSelectedSong changes the active song. Every client resets its lyric
// position when it sees the change.
type EventSelectedSong struct {
	SongID string
}

// VideoSeek scrubs the companion video.
type VideoSeek struct {
	SongID  string
	Seconds float64
}

// VideoProgress reports companion video playback.
type VideoProgress struct {
	SongID  string
	Seconds float64
	Playing bool
}

// JoinEvent enters the event room.
type JoinEvent struct{}

// LeaveEvent leaves the event room.
type LeaveEvent struct{}

// GetConnectedUsers asks for the room roster.
type GetConnectedUsers struct{}

func (LyricSelected) Name() string     { return socket.NameLyricSelected }
func (EventSelectedSong) Name() string { return socket.NameSelectedSong }
func (VideoSeek) Name() string         { return socket.NameVideoSeek }
func (VideoProgress) Name() string     { return socket.NameVideoProgress }
func (JoinEvent) Name() string         { return socket.NameJoinEvent }
func (LeaveEvent) Name() string        { return socket.NameLeaveEvent }
func (GetConnectedUsers) Name() string { return socket.NameGetConnectedUsers }

func (LyricSelected) Durable() bool     { return true }
func (EventSelectedSong) Durable() bool { return true }
func (VideoSeek) Durable() bool         { return false }
func (VideoProgress) Durable() bool     { return false }
func (JoinEvent) Durable() bool         { return false }
func (LeaveEvent) Durable() bool        { return false }
func (GetConnectedUsers) Durable() bool { return false }

// message builds the channel payload of a transient intent.
func message(eventID string, intent Intent) (socket.Message, bool) {
	switch in := intent.(type) {
	case VideoSeek:
		return socket.VideoSeek{EventID: eventID, SongID: in.SongID, Seconds: in.Seconds}, true
	case VideoProgress:
		return socket.VideoProgress{EventID: eventID, SongID: in.SongID, Seconds: in.Seconds, Playing: in.Playing}, true
	case JoinEvent:
		return socket.JoinEvent{EventID: eventID}, true
	case LeaveEvent:
		return socket.LeaveEvent{}, true
	case GetConnectedUsers:
		return socket.GetConnectedUsers{EventID: eventID}, true
	}
	return nil, false
}
