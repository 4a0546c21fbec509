package application

import (
	"time"

	"github.com/example/liveworship/internal/authz"
	"github.com/example/liveworship/internal/worship"
)

// Principal describes the authenticated user invoking an operation.
type Principal struct {
	UserID        string
	Name          string
	IsSystemAdmin bool
}

func (p Principal) user() worship.User {
	return worship.User{ID: p.UserID, Name: p.Name, IsSystemAdmin: p.IsSystemAdmin}
}

// LoadEventParams identifies the event to fetch.
type LoadEventParams struct {
	BandID  string
	EventID string
}

// AddSongParams adds a catalog song to an event.
type AddSongParams struct {
	Principal Principal
	Event     worship.Event
	SongID    string
}

// RemoveSongParams removes an event song.
type RemoveSongParams struct {
	Principal   Principal
	Event       worship.Event
	EventSongID string
}

// ReorderSongsParams stores a new running order. EventSongIDs must list every
// event song exactly once.
type ReorderSongsParams struct {
	Principal    Principal
	Event        worship.Event
	EventSongIDs []string
}

// UpdateTransposeParams changes the transpose offset of an event song.
type UpdateTransposeParams struct {
	Principal   Principal
	Event       worship.Event
	EventSongID string
	Transpose   int
}

// UpdateDetailsParams edits event metadata.
type UpdateDetailsParams struct {
	Principal Principal
	Event     worship.Event
	Title     string
	Date      time.Time
}

// ChangeManagerParams reassigns the band's event manager. An empty UserID
// claims the role for the principal.
type ChangeManagerParams struct {
	Principal Principal
	BandID    string
	UserID    string
	Scope     authz.Scope
}

// ManagerChange is the outcome of a reassignment.
type ManagerChange struct {
	BandID      string
	UserID      string
	UserName    string
	Memberships []worship.Membership
}
