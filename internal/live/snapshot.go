package live

import (
	"github.com/example/liveworship/internal/lyrics"
	"github.com/example/liveworship/internal/worship"
)

// View holds the projection flags of this console.
type View struct {
	Fullscreen bool `json:"fullscreen"`
	SwipeLock  bool `json:"swipeLock"`
}

// Video is the last companion video position seen on the channel.
type Video struct {
	SongID  string  `json:"songId,omitempty"`
	Seconds float64 `json:"seconds"`
	Playing bool    `json:"playing"`
}

// Snapshot is an immutable copy of the store state.
type Snapshot struct {
	Version        uint64               `json:"version"`
	Event          worship.Event        `json:"event"`
	SelectedSongID string               `json:"selectedSongId,omitempty"`
	Selection      worship.Selection    `json:"selection"`
	Preferences    Preferences          `json:"preferences"`
	View           View                 `json:"view"`
	Video          Video                `json:"video"`
	Members        []worship.Membership `json:"members,omitempty"`
	Connected      bool                 `json:"connected"`
}

// SelectedSong returns the event song currently selected.
func (s Snapshot) SelectedSong() (worship.EventSong, bool) {
	if s.SelectedSongID == "" {
		return worship.EventSong{}, false
	}
	return s.Event.FindSong(s.SelectedSongID)
}

// LineCount is the number of addressable lyric positions of the selected
// song, or 0 when none is selected.
func (s Snapshot) LineCount() int {
	song, ok := s.SelectedSong()
	if !ok {
		return 0
	}
	return lyrics.AddressableCount(song.Song.Lyrics)
}

// Visible returns the projected window at the current position. Position 0
// and the end marker project nothing.
func (s Snapshot) Visible() []lyrics.VisibleLine {
	song, ok := s.SelectedSong()
	if !ok || s.Selection.Position <= 0 || s.Selection.Position > s.LineCount() {
		return nil
	}
	return lyrics.VisibleSlice(song.Song.Lyrics, s.Selection.Position)
}

// Preview returns the line following the projected window.
func (s Snapshot) Preview() (worship.Lyric, bool) {
	song, ok := s.SelectedSong()
	if !ok || s.Selection.Position <= 0 || s.Selection.Position > s.LineCount() {
		return worship.Lyric{}, false
	}
	return lyrics.NextPreviewLine(song.Song.Lyrics, s.Selection.Position)
}

// Finished reports whether the selected song reached its end marker.
func (s Snapshot) Finished() bool {
	_, ok := s.SelectedSong()
	return ok && s.Selection.Position > s.LineCount()
}
