package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/liveworship/internal/persistence"
)

// PreferenceRepository implements persistence.PreferenceRepository.
type PreferenceRepository struct {
	db  *DB
	now func() time.Time
}

// NewPreferenceRepository creates a repository over db.
func NewPreferenceRepository(db *DB, now func() time.Time) *PreferenceRepository {
	if now == nil {
		now = time.Now
	}
	return &PreferenceRepository{db: db, now: now}
}

// GetPreference reads one preference.
func (r *PreferenceRepository) GetPreference(ctx context.Context, key string) (persistence.Preference, error) {
	if err := persistence.ValidateKey(key); err != nil {
		return persistence.Preference{}, err
	}

	var (
		pref    persistence.Preference
		updated string
	)
	err := r.db.db.QueryRowContext(ctx,
		`SELECT key, value, updated_at FROM preferences WHERE key = ?`, key,
	).Scan(&pref.Key, &pref.Value, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Preference{}, persistence.ErrNotFound
	}
	if err != nil {
		return persistence.Preference{}, fmt.Errorf("sqlite: get preference %s: %w", key, err)
	}
	pref.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return persistence.Preference{}, fmt.Errorf("sqlite: parse updated_at of %s: %w", key, err)
	}
	return pref, nil
}

// PutPreference inserts or replaces a preference and stamps UpdatedAt.
func (r *PreferenceRepository) PutPreference(ctx context.Context, pref persistence.Preference) error {
	if err := persistence.ValidateKey(pref.Key); err != nil {
		return err
	}
	_, err := r.db.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		pref.Key, pref.Value, r.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: put preference %s: %w", pref.Key, err)
	}
	return nil
}

// ListPreferences returns every stored preference ordered by key.
func (r *PreferenceRepository) ListPreferences(ctx context.Context) ([]persistence.Preference, error) {
	rows, err := r.db.db.QueryContext(ctx, `SELECT key, value, updated_at FROM preferences ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list preferences: %w", err)
	}
	defer rows.Close()

	var prefs []persistence.Preference
	for rows.Next() {
		var (
			pref    persistence.Preference
			updated string
		)
		if err := rows.Scan(&pref.Key, &pref.Value, &updated); err != nil {
			return nil, fmt.Errorf("sqlite: scan preference: %w", err)
		}
		if pref.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("sqlite: parse updated_at of %s: %w", pref.Key, err)
		}
		prefs = append(prefs, pref)
	}
	return prefs, rows.Err()
}
