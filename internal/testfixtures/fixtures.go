package testfixtures

import (
	"fmt"

	"github.com/example/liveworship/internal/worship"
)

// Fixture identifiers shared across packages.
const (
	BandID      = "band-1"
	EventID     = "evt-1"
	AdminID     = "user-admin"
	ManagerID   = "user-manager"
	MemberID    = "user-member"
	LongSongID  = "song-long"
	GapSongID   = "song-gap"
	ShortSongID = "song-short"
)

// EventOption configures the generated event fixture.
type EventOption func(*worship.Event)

// WithTranspose sets the transpose offset of the event song holding songID.
func WithTranspose(songID string, offset int) EventOption {
	return func(e *worship.Event) {
		for i := range e.Songs {
			if e.Songs[i].Song.ID == songID {
				e.Songs[i].Transpose = offset
			}
		}
	}
}

// WithManager records userID as the event manager.
func WithManager(userID string) EventOption {
	return func(e *worship.Event) { e.Manager = userID }
}

// WithoutSong drops the event song holding songID.
func WithoutSong(songID string) EventOption {
	return func(e *worship.Event) {
		kept := e.Songs[:0]
		for _, es := range e.Songs {
			if es.Song.ID != songID {
				kept = append(kept, es)
			}
		}
		e.Songs = worship.Renumber(kept)
	}
}

// NewEvent returns a deterministic event with three songs:
//   - LongSongID: ten lines (verse 1-4, chorus 5-8, bridge 9-10) in key E
//     with chords;
//   - GapSongID: positions 1,2,3,5,6 (verse, verse, chorus, chorus, bridge)
//     in key Bb;
//   - ShortSongID: three verse lines without a key.
func NewEvent(opts ...EventOption) worship.Event {
	event := worship.Event{
		ID:      EventID,
		Title:   "Sunday Service",
		Date:    ReferenceTime(),
		BandID:  BandID,
		Manager: ManagerID,
		Songs: []worship.EventSong{
			{ID: "es-1", Order: 1, Song: longSong()},
			{ID: "es-2", Order: 2, Song: gapSong()},
			{ID: "es-3", Order: 3, Song: shortSong()},
		},
	}
	for _, opt := range opts {
		opt(&event)
	}
	return event
}

// Members returns the band memberships matching NewEvent: one band admin,
// the event manager and a plain member.
func Members() []worship.Membership {
	return []worship.Membership{
		{BandID: BandID, UserID: AdminID, UserName: "Ada Admin", IsAdmin: true},
		{BandID: BandID, UserID: ManagerID, UserName: "Mo Manager", IsEventManager: true},
		{BandID: BandID, UserID: MemberID, UserName: "Mel Member"},
	}
}

// User returns the domain user for one of the fixture member ids.
func User(id string) worship.User {
	for _, m := range Members() {
		if m.UserID == id {
			return worship.User{ID: id, Name: m.UserName}
		}
	}
	return worship.User{ID: id, Name: id}
}

func strPtr(s string) *string { return &s }

func longSong() worship.Song {
	structures := []worship.Structure{
		worship.StructureVerse, worship.StructureVerse, worship.StructureVerse, worship.StructureVerse,
		worship.StructureChorus, worship.StructureChorus, worship.StructureChorus, worship.StructureChorus,
		worship.StructureBridge, worship.StructureBridge,
	}
	lines := make([]worship.Lyric, len(structures))
	for i, s := range structures {
		pos := i + 1
		lines[i] = worship.Lyric{
			ID:        fmt.Sprintf("long-%d", pos),
			Position:  pos,
			Structure: s,
			Lyrics:    fmt.Sprintf("%s line %d", s, pos),
		}
	}
	lines[0].Chords = []worship.Chord{
		{ID: "c1", RootNote: "E", Position: 1},
		{ID: "c2", RootNote: "B", Position: 3},
		{ID: "c3", RootNote: "C#", ChordQuality: "m", Position: 5},
	}
	lines[4].Chords = []worship.Chord{
		{ID: "c4", RootNote: "A", Position: 1},
		{ID: "c5", RootNote: "E", SlashChord: "G#", Position: 4},
	}
	return worship.Song{
		ID:       LongSongID,
		Title:    "Way Maker",
		Artist:   "Sinach",
		Key:      strPtr("E"),
		Tempo:    68,
		SongType: worship.SongTypeWorship,
		Lyrics:   lines,
	}
}

func gapSong() worship.Song {
	return worship.Song{
		ID:       GapSongID,
		Title:    "Gapped Song",
		Key:      strPtr("Bb"),
		SongType: worship.SongTypePraise,
		Lyrics: []worship.Lyric{
			{ID: "gap-6", Position: 6, Structure: worship.StructureBridge, Lyrics: "bridge six"},
			{ID: "gap-1", Position: 1, Structure: worship.StructureVerse, Lyrics: "verse one", Chords: []worship.Chord{{ID: "g1", RootNote: "Bb", Position: 1}}},
			{ID: "gap-2", Position: 2, Structure: worship.StructureVerse, Lyrics: "verse two"},
			{ID: "gap-3", Position: 3, Structure: worship.StructureChorus, Lyrics: "chorus three"},
			{ID: "gap-5", Position: 5, Structure: worship.StructureChorus, Lyrics: "chorus five"},
		},
	}
}

func shortSong() worship.Song {
	return worship.Song{
		ID:    ShortSongID,
		Title: "Short Song",
		Lyrics: []worship.Lyric{
			{ID: "short-1", Position: 1, Structure: worship.StructureVerse, Lyrics: "one"},
			{ID: "short-2", Position: 2, Structure: worship.StructureVerse, Lyrics: "two"},
			{ID: "short-3", Position: 3, Structure: worship.StructureVerse, Lyrics: "three"},
		},
	}
}
