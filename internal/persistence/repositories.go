// Package persistence defines the storage contracts for state that lives on
// the device running the console.
package persistence

import (
	"context"
	"strings"
)

// MaxKeyLength bounds preference keys.
const MaxKeyLength = 128

// PreferenceRepository stores per-device display preferences.
type PreferenceRepository interface {
	GetPreference(ctx context.Context, key string) (Preference, error)
	PutPreference(ctx context.Context, pref Preference) error
	ListPreferences(ctx context.Context) ([]Preference, error)
}

// ValidateKey reports ErrInvalidKey for keys that cannot be stored.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" || len(key) > MaxKeyLength {
		return ErrInvalidKey
	}
	return nil
}
