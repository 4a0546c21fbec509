package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type migration struct {
	version     int
	description string
	statements  []string
}

// migrations are applied in order and recorded in schema_migrations.
var migrations = []migration{
	{
		version:     1,
		description: "create preferences",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS preferences (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
		},
	},
}

// Migrate brings the schema up to date. It is safe to call repeatedly.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("sqlite: create schema_migrations: %w", err)
	}

	current, err := d.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		started := time.Now()
		err := d.WithTransaction(ctx, func(tx *sql.Tx) error {
			for i, stmt := range m.statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("sqlite: migration %d statement %d: %w", m.version, i+1, err)
				}
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
				m.version, m.description, time.Now().UTC().Format(time.RFC3339),
			)
			return err
		})
		if err != nil {
			d.logger.ErrorContext(ctx, "migration failed", "version", m.version, "error", err)
			return err
		}
		d.logger.InfoContext(ctx, "migration applied",
			"version", m.version,
			"description", m.description,
			"duration", time.Since(started),
		)
	}
	return nil
}

// SchemaVersion returns the highest applied migration version.
func (d *DB) SchemaVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	if err := d.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("sqlite: read schema version: %w", err)
	}
	return int(version.Int64), nil
}
