package testfixtures

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/example/liveworship/internal/persistence"
	"github.com/example/liveworship/internal/persistence/sqlite"
)

// MemoryPreferences is an in-memory persistence.PreferenceRepository.
type MemoryPreferences struct {
	mu      sync.Mutex
	entries map[string]persistence.Preference
	writes  int
	err     error
}

// NewMemoryPreferences returns an empty repository.
func NewMemoryPreferences() *MemoryPreferences {
	return &MemoryPreferences{entries: make(map[string]persistence.Preference)}
}

// Fail makes every call return err until cleared with nil.
func (m *MemoryPreferences) Fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Writes returns the number of successful PutPreference calls.
func (m *MemoryPreferences) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// GetPreference implements persistence.PreferenceRepository.
func (m *MemoryPreferences) GetPreference(_ context.Context, key string) (persistence.Preference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return persistence.Preference{}, m.err
	}
	pref, ok := m.entries[key]
	if !ok {
		return persistence.Preference{}, persistence.ErrNotFound
	}
	return pref, nil
}

// PutPreference implements persistence.PreferenceRepository.
func (m *MemoryPreferences) PutPreference(_ context.Context, pref persistence.Preference) error {
	if err := persistence.ValidateKey(pref.Key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries[pref.Key] = pref
	m.writes++
	return nil
}

// ListPreferences implements persistence.PreferenceRepository.
func (m *MemoryPreferences) ListPreferences(context.Context) ([]persistence.Preference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]persistence.Preference, 0, len(m.entries))
	for _, p := range m.entries {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// NewSQLitePreferences opens a migrated SQLite preference store in a
// temporary directory that is removed with the test.
func NewSQLitePreferences(t testing.TB) *sqlite.PreferenceRepository {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "preferences.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return sqlite.NewPreferenceRepository(db, NewClock(ReferenceTime()).NowFunc())
}
