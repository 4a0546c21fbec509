// Package live holds the synchronization state of one open event view and
// keeps it in step with the event channel.
package live

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/example/liveworship/internal/persistence"
	"github.com/example/liveworship/internal/worship"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("live: store closed")

// ErrUnknownSong is returned when selecting a song the event does not contain.
var ErrUnknownSong = errors.New("live: song not in event")

// Connection is the socket handle kept alongside the state.
type Connection interface {
	Connected() bool
}

// Options configures a Store.
type Options struct {
	Preferences persistence.PreferenceRepository
	Connection  Connection
	Logger      *slog.Logger
}

// Store is the synchronization state of one open event view. Reads return
// snapshots; every write notifies subscribers. A Store is created when the
// view opens and closed when it goes away.
type Store struct {
	prefs  persistence.PreferenceRepository
	logger *slog.Logger

	mu        sync.RWMutex
	state     Snapshot
	conn      Connection
	listeners map[chan Snapshot]struct{}
	closed    bool
}

// NewStore returns a store seeded with default preferences.
func NewStore(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		prefs:     opts.Preferences,
		logger:    logger.With("component", "live_store"),
		state:     Snapshot{Preferences: DefaultPreferences(), Selection: worship.Selection{Action: worship.ActionForward}},
		conn:      opts.Connection,
		listeners: make(map[chan Snapshot]struct{}),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := s.state
	snap.Event = s.state.Event.Clone()
	snap.Members = append([]worship.Membership(nil), s.state.Members...)
	snap.Connected = s.conn != nil && s.conn.Connected()
	return snap
}

// Subscribe returns a channel receiving a snapshot after every write. Slow
// subscribers miss intermediate snapshots rather than blocking writers.
func (s *Store) Subscribe() (ch chan Snapshot, cancel func()) {
	ch = make(chan Snapshot, 16)

	s.mu.Lock()
	if s.closed {
		close(ch)
		s.mu.Unlock()
		return ch, func() {}
	}
	s.listeners[ch] = struct{}{}
	s.mu.Unlock()

	cancel = func() {
		s.mu.Lock()
		if _, ok := s.listeners[ch]; ok {
			delete(s.listeners, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// update applies fn under the write lock and fans the result out.
func (s *Store) update(fn func(state *Snapshot) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if !fn(&s.state) {
		return nil
	}
	s.state.Version++
	snap := s.snapshotLocked()
	for ch := range s.listeners {
		select {
		case ch <- snap:
		default:
			s.logger.Debug("dropping snapshot for slow subscriber", "version", snap.Version)
		}
	}
	return nil
}

// SetEvent replaces the event aggregate. A selected song that is no longer
// part of the event is cleared along with the lyric position.
func (s *Store) SetEvent(event worship.Event) error {
	return s.update(func(state *Snapshot) bool {
		state.Event = event.Clone()
		if state.SelectedSongID != "" {
			if _, ok := state.Event.FindSong(state.SelectedSongID); !ok {
				state.SelectedSongID = ""
				state.Selection = worship.Selection{Action: worship.ActionForward}
			}
		}
		state.Selection.Position = clampPosition(state.Selection.Position, state.LineCount())
		return true
	})
}

// SelectSong makes songID the selected song and resets the lyric position
// to 0. An empty songID clears the selection.
func (s *Store) SelectSong(songID string) error {
	var unknown bool
	err := s.update(func(state *Snapshot) bool {
		if songID != "" {
			if _, ok := state.Event.FindSong(songID); !ok {
				unknown = true
				return false
			}
		}
		state.SelectedSongID = songID
		state.Selection = worship.Selection{Position: 0, Action: worship.ActionForward}
		return true
	})
	if err != nil {
		return err
	}
	if unknown {
		return ErrUnknownSong
	}
	return nil
}

// SetSelection stores a lyric selection clamped to [0, L+1] of the selected
// song.
func (s *Store) SetSelection(selection worship.Selection) error {
	return s.update(func(state *Snapshot) bool {
		selection.Position = clampPosition(selection.Position, state.LineCount())
		if selection.Action != worship.ActionBackward {
			selection.Action = worship.ActionForward
		}
		if state.Selection == selection {
			return false
		}
		state.Selection = selection
		return true
	})
}

// SetMembers replaces the band memberships used for authorization.
func (s *Store) SetMembers(members []worship.Membership) error {
	return s.update(func(state *Snapshot) bool {
		state.Members = append([]worship.Membership(nil), members...)
		return true
	})
}

// ApplyManagerChange records a new event manager for bandID.
func (s *Store) ApplyManagerChange(bandID, userID, userName string) error {
	return s.update(func(state *Snapshot) bool {
		if state.Event.BandID != "" && state.Event.BandID != bandID {
			return false
		}
		state.Members = worship.AssignManager(state.Members, bandID, userID)
		for i := range state.Members {
			if state.Members[i].BandID == bandID && state.Members[i].UserID == userID && userName != "" {
				state.Members[i].UserName = userName
			}
		}
		state.Event.Manager = userID
		return true
	})
}

// SetView stores the projection flags.
func (s *Store) SetView(view View) error {
	return s.update(func(state *Snapshot) bool {
		if state.View == view {
			return false
		}
		state.View = view
		return true
	})
}

// SetVideo stores the last companion video position.
func (s *Store) SetVideo(video Video) error {
	return s.update(func(state *Snapshot) bool {
		state.Video = video
		return true
	})
}

// SetPreferences normalizes, persists and applies display preferences.
// Nothing is applied when persisting fails.
func (s *Store) SetPreferences(ctx context.Context, prefs Preferences) error {
	prefs = prefs.Normalize()
	if s.prefs != nil {
		if err := savePreferences(ctx, s.prefs, prefs); err != nil {
			s.logger.ErrorContext(ctx, "failed to persist preferences", "error", err)
			return err
		}
	}
	return s.update(func(state *Snapshot) bool {
		state.Preferences = prefs
		return true
	})
}

// LoadPreferences rehydrates preferences from device storage.
func (s *Store) LoadPreferences(ctx context.Context) error {
	if s.prefs == nil {
		return nil
	}
	prefs, err := loadPreferences(ctx, s.prefs)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load preferences", "error", err)
		return err
	}
	return s.update(func(state *Snapshot) bool {
		state.Preferences = prefs
		return true
	})
}

// SetConnection replaces the socket handle.
func (s *Store) SetConnection(conn Connection) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

// Connection returns the socket handle.
func (s *Store) Connection() Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}

// Close tears the store down and closes every subscriber channel.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.listeners {
		delete(s.listeners, ch)
		close(ch)
	}
	s.conn = nil
}

func clampPosition(p, l int) int {
	if p < 0 {
		return 0
	}
	if p > l+1 {
		return l + 1
	}
	return p
}
