// Package printout assembles an event's songs into a printable song book.
// It reads an event snapshot only and never follows live updates.
package printout

import (
	"time"

	"github.com/example/liveworship/internal/lyrics"
	"github.com/example/liveworship/internal/music"
	"github.com/example/liveworship/internal/worship"
)

// Options controls what the book shows.
type Options struct {
	ShowChords    bool
	ShowStructure bool
	Notation      music.Notation
}

// Book is a rendered-ready event song book.
type Book struct {
	EventID       string
	Title         string
	Date          time.Time
	ShowChords    bool
	ShowStructure bool
	Songs         []Song
}

// Song is one event song as printed.
type Song struct {
	Order     int
	Title     string
	Artist    string
	Key       string
	Transpose int
	Sections  []Section
}

// Section is a run of lines sharing a structure tag.
type Section struct {
	Structure worship.Structure
	Lines     []Line
}

// Line is a lyric line with its chord grid. Chords[i] holds the chord of
// grid slot i+1, or "" for an empty slot.
type Line struct {
	Position int
	Text     string
	Chords   [worship.ChordGridColumns]string
}

// HasChords reports whether any grid slot is filled.
func (l Line) HasChords() bool {
	for _, c := range l.Chords {
		if c != "" {
			return true
		}
	}
	return false
}

// Build assembles the book from event, songs in running order. Chords are
// transposed by each event song's offset and spelled in opts.Notation;
// they are left out entirely when opts.ShowChords is false.
func Build(event worship.Event, opts Options) Book {
	notation := music.ParseNotation(string(opts.Notation))
	book := Book{
		EventID:       event.ID,
		Title:         event.Title,
		Date:          event.Date,
		ShowChords:    opts.ShowChords,
		ShowStructure: opts.ShowStructure,
	}

	for _, es := range event.SortedSongs() {
		song := Song{
			Order:     es.Order,
			Title:     es.Song.Title,
			Artist:    es.Song.Artist,
			Transpose: es.Transpose,
		}
		if k, ok := music.ParseKey(es.Song.KeyName()); ok {
			song.Key = notation.Name(k.Transpose(es.Transpose).String())
		}
		for _, group := range lyrics.GroupByStructure(es.Song.Lyrics) {
			section := Section{Structure: group.Structure, Lines: make([]Line, 0, len(group.Lines))}
			for _, l := range group.Lines {
				line := Line{Position: l.Position, Text: l.Lyrics}
				if opts.ShowChords {
					line.Chords = chordGrid(l.Chords, es.Transpose, notation)
				}
				section.Lines = append(section.Lines, line)
			}
			song.Sections = append(song.Sections, section)
		}
		book.Songs = append(book.Songs, song)
	}
	return book
}

// chordGrid places chords in their slots. Chords outside 1..5 are dropped;
// the first chord wins a contested slot.
func chordGrid(chords []worship.Chord, offset int, notation music.Notation) [worship.ChordGridColumns]string {
	var grid [worship.ChordGridColumns]string
	for _, c := range chords {
		if c.Position < 1 || c.Position > worship.ChordGridColumns {
			continue
		}
		slot := c.Position - 1
		if grid[slot] != "" {
			continue
		}
		transposed := music.TransposeChord(music.Chord{Root: c.RootNote, Quality: c.ChordQuality, SlashChord: c.SlashChord}, offset)
		grid[slot] = transposed.Format(notation)
	}
	return grid
}
