// Package worship holds the event aggregate shared by every live component.
package worship

import (
	"sort"
	"time"
)

// Structure tags a lyric line with the song section it belongs to.
type Structure string

const (
	StructureIntro      Structure = "intro"
	StructureVerse      Structure = "verse"
	StructurePreChorus  Structure = "pre-chorus"
	StructureChorus     Structure = "chorus"
	StructureBridge     Structure = "bridge"
	StructureInterlude  Structure = "interlude"
	StructureOutro      Structure = "outro"
	StructureTag        Structure = "tag"
	StructureInstrument Structure = "instrumental"
)

// SongType classifies a song in the band catalog.
type SongType string

const (
	SongTypeWorship SongType = "worship"
	SongTypePraise  SongType = "praise"
)

// Lyric selection directions.
const (
	ActionForward  = "forward"
	ActionBackward = "backward"
)

// Transpose bounds for an event song, in semitone steps.
const (
	MinTranspose = -6
	MaxTranspose = 6
)

// ChordGridColumns is the number of chord slots above a lyric line.
const ChordGridColumns = 5

// Chord is a chord attached to a lyric line at a grid position (1..5).
type Chord struct {
	ID           string `json:"id"`
	RootNote     string `json:"rootNote"`
	ChordQuality string `json:"chordQuality,omitempty"`
	SlashChord   string `json:"slashChord,omitempty"`
	Position     int    `json:"position"`
}

// Lyric is one addressable line of a song.
type Lyric struct {
	ID        string    `json:"id"`
	Position  int       `json:"position"`
	Structure Structure `json:"structure"`
	Lyrics    string    `json:"lyrics"`
	Chords    []Chord   `json:"chords,omitempty"`
}

// Song is a catalog song with its lyric lines.
type Song struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Artist   string   `json:"artist,omitempty"`
	Key      *string  `json:"key,omitempty"`
	Tempo    int      `json:"tempo,omitempty"`
	SongType SongType `json:"songType,omitempty"`
	YouTube  string   `json:"youtube,omitempty"`
	Lyrics   []Lyric  `json:"lyrics"`
}

// KeyName returns the stored key, or "" when none is assigned.
func (s Song) KeyName() string {
	if s.Key == nil {
		return ""
	}
	return *s.Key
}

// EventSong places a catalog song in an event's running order.
type EventSong struct {
	ID        string `json:"id"`
	Order     int    `json:"order"`
	Transpose int    `json:"transpose"`
	Song      Song   `json:"song"`
}

// Event is a single live worship session.
type Event struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Date    time.Time   `json:"date"`
	BandID  string      `json:"bandId"`
	Manager string      `json:"eventManager,omitempty"`
	Songs   []EventSong `json:"songs"`
}

// SortedSongs returns a copy of the event songs ordered by Order.
func (e Event) SortedSongs() []EventSong {
	out := make([]EventSong, len(e.Songs))
	copy(out, e.Songs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// FindSong looks up an event song by its catalog song id.
func (e Event) FindSong(songID string) (EventSong, bool) {
	for _, es := range e.Songs {
		if es.Song.ID == songID {
			return es, true
		}
	}
	return EventSong{}, false
}

// Clone returns a deep copy so snapshots can be handed out safely.
func (e Event) Clone() Event {
	out := e
	out.Songs = make([]EventSong, len(e.Songs))
	for i, es := range e.Songs {
		es.Song = es.Song.Clone()
		out.Songs[i] = es
	}
	return out
}

// Clone returns a deep copy of the song.
func (s Song) Clone() Song {
	out := s
	if s.Key != nil {
		key := *s.Key
		out.Key = &key
	}
	out.Lyrics = make([]Lyric, len(s.Lyrics))
	for i, l := range s.Lyrics {
		l.Chords = append([]Chord(nil), l.Chords...)
		out.Lyrics[i] = l
	}
	return out
}

// ClampTranspose bounds an offset to [MinTranspose, MaxTranspose].
func ClampTranspose(offset int) int {
	if offset < MinTranspose {
		return MinTranspose
	}
	if offset > MaxTranspose {
		return MaxTranspose
	}
	return offset
}

// Renumber assigns a contiguous 1-based Order following the slice order.
func Renumber(songs []EventSong) []EventSong {
	out := make([]EventSong, len(songs))
	for i, es := range songs {
		es.Order = i + 1
		out[i] = es
	}
	return out
}

// User is an authenticated account.
type User struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	IsSystemAdmin bool   `json:"isSystemAdmin,omitempty"`
}

// Membership records a user's role inside a band.
type Membership struct {
	BandID         string `json:"bandId"`
	UserID         string `json:"userId"`
	UserName       string `json:"userName,omitempty"`
	IsAdmin        bool   `json:"isAdmin"`
	IsEventManager bool   `json:"isEventManager"`
}

// Selection is the shared lyric position of an event.
type Selection struct {
	Position int    `json:"position"`
	Action   string `json:"action"`
}

// AssignManager returns a copy of members in which userID is the only event
// manager of bandID. Memberships of other bands are left untouched.
func AssignManager(members []Membership, bandID, userID string) []Membership {
	out := make([]Membership, len(members))
	for i, m := range members {
		if m.BandID == bandID {
			m.IsEventManager = m.UserID == userID
		}
		out[i] = m
	}
	return out
}

// ManagerOf returns the membership holding event-manager status in bandID.
func ManagerOf(members []Membership, bandID string) (Membership, bool) {
	for _, m := range members {
		if m.BandID == bandID && m.IsEventManager {
			return m, true
		}
	}
	return Membership{}, false
}
