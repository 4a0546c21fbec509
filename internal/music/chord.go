package music

import "strings"

// Notation selects how note names are spelled for display.
type Notation string

const (
	// NotationAmerican spells notes with letters (C, D, E ...).
	NotationAmerican Notation = "american"
	// NotationLatin spells notes with fixed-do syllables (Do, Re, Mi ...).
	NotationLatin Notation = "latin"
)

var latinNames = map[byte]string{
	'C': "Do",
	'D': "Re",
	'E': "Mi",
	'F': "Fa",
	'G': "Sol",
	'A': "La",
	'B': "Si",
}

// ParseNotation maps a stored preference value to a Notation, defaulting to
// American letter names.
func ParseNotation(value string) Notation {
	if strings.EqualFold(strings.TrimSpace(value), string(NotationLatin)) {
		return NotationLatin
	}
	return NotationAmerican
}

// Name renders a note spelling (C, F#, Bb) in the notation.
func (n Notation) Name(note string) string {
	if n != NotationLatin || note == "" {
		return note
	}
	syllable, ok := latinNames[note[0]]
	if !ok {
		return note
	}
	return syllable + note[1:]
}

// Chord is a chord attachment as stored on a lyric line.
type Chord struct {
	Root       string
	Quality    string
	SlashChord string
}

// TransposeChord moves the chord's root and optional bass note by offset
// semitone steps. Unknown roots are returned unchanged.
func TransposeChord(c Chord, offset int) Chord {
	if k, ok := ParseKey(c.Root); ok {
		c.Root = k.Transpose(offset).Root()
	}
	if c.SlashChord != "" {
		if k, ok := ParseKey(c.SlashChord); ok {
			c.SlashChord = k.Transpose(offset).Root()
		}
	}
	return c
}

// Format renders the chord symbol, e.g. "Am7/G" or "Lam7/Sol".
func (c Chord) Format(n Notation) string {
	if c.Root == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(n.Name(c.Root))
	b.WriteString(c.Quality)
	if c.SlashChord != "" {
		b.WriteString("/")
		b.WriteString(n.Name(c.SlashChord))
	}
	return b.String()
}
