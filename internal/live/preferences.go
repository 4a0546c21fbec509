package live

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/example/liveworship/internal/music"
	"github.com/example/liveworship/internal/persistence"
)

// Preference keys stored on the device.
const (
	KeyNotation      = "liveworship.notation"
	KeyShowChords    = "liveworship.showChords"
	KeyShowStructure = "liveworship.showStructure"
	KeyLyricsScale   = "liveworship.lyricsScale"
	KeyBackground    = "liveworship.background"
)

// Bounds of the lyrics scale factor.
const (
	MinLyricsScale = 0.5
	MaxLyricsScale = 3.0
)

// Preferences are the per-user display settings of the live view. They are
// persisted per device and never broadcast.
type Preferences struct {
	Notation      music.Notation `json:"notation"`
	ShowChords    bool           `json:"showChords"`
	ShowStructure bool           `json:"showStructure"`
	LyricsScale   float64        `json:"lyricsScale"`
	Background    int            `json:"background"`
}

// DefaultPreferences returns the settings of a device that never stored any.
func DefaultPreferences() Preferences {
	return Preferences{
		Notation:      music.NotationAmerican,
		ShowChords:    true,
		ShowStructure: true,
		LyricsScale:   1,
		Background:    0,
	}
}

// Normalize bounds the numeric settings and fixes unknown notations.
func (p Preferences) Normalize() Preferences {
	p.Notation = music.ParseNotation(string(p.Notation))
	switch {
	case p.LyricsScale == 0:
		p.LyricsScale = 1
	case p.LyricsScale < MinLyricsScale:
		p.LyricsScale = MinLyricsScale
	case p.LyricsScale > MaxLyricsScale:
		p.LyricsScale = MaxLyricsScale
	}
	if p.Background < 0 {
		p.Background = 0
	}
	return p
}

func (p Preferences) entries() []persistence.Preference {
	return []persistence.Preference{
		{Key: KeyNotation, Value: string(p.Notation)},
		{Key: KeyShowChords, Value: strconv.FormatBool(p.ShowChords)},
		{Key: KeyShowStructure, Value: strconv.FormatBool(p.ShowStructure)},
		{Key: KeyLyricsScale, Value: strconv.FormatFloat(p.LyricsScale, 'f', -1, 64)},
		{Key: KeyBackground, Value: strconv.Itoa(p.Background)},
	}
}

func savePreferences(ctx context.Context, repo persistence.PreferenceRepository, p Preferences) error {
	for _, entry := range p.entries() {
		if err := repo.PutPreference(ctx, entry); err != nil {
			return fmt.Errorf("live: save %s: %w", entry.Key, err)
		}
	}
	return nil
}

// loadPreferences starts from the defaults and overrides every key found in
// repo. Values that fail to parse keep their default.
func loadPreferences(ctx context.Context, repo persistence.PreferenceRepository) (Preferences, error) {
	prefs := DefaultPreferences()
	read := func(key string) (string, bool, error) {
		entry, err := repo.GetPreference(ctx, key)
		if errors.Is(err, persistence.ErrNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, fmt.Errorf("live: load %s: %w", key, err)
		}
		return entry.Value, true, nil
	}

	if v, ok, err := read(KeyNotation); err != nil {
		return prefs, err
	} else if ok {
		prefs.Notation = music.ParseNotation(v)
	}
	if v, ok, err := read(KeyShowChords); err != nil {
		return prefs, err
	} else if b, perr := strconv.ParseBool(v); ok && perr == nil {
		prefs.ShowChords = b
	}
	if v, ok, err := read(KeyShowStructure); err != nil {
		return prefs, err
	} else if b, perr := strconv.ParseBool(v); ok && perr == nil {
		prefs.ShowStructure = b
	}
	if v, ok, err := read(KeyLyricsScale); err != nil {
		return prefs, err
	} else if f, perr := strconv.ParseFloat(v, 64); ok && perr == nil {
		prefs.LyricsScale = f
	}
	if v, ok, err := read(KeyBackground); err != nil {
		return prefs, err
	} else if n, perr := strconv.Atoi(v); ok && perr == nil {
		prefs.Background = n
	}
	return prefs.Normalize(), nil
}
