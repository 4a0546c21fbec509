package persistence

import "time"

// Preference is one per-device display setting stored under a well-known key.
type Preference struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}
