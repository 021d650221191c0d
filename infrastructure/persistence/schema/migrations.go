// Package schema manages versioned migrations for the catalog snapshot
// database used by the sqlite driver.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Migration moves the catalog database one version forward. Down is
// optional; migrations without it cannot be rolled back.
type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, tx *sql.Tx) error
	Down        func(ctx context.Context, tx *sql.Tx) error
}

// AppliedMigration is one row of the migration history
type AppliedMigration struct {
	Version     int       `json:"version"`
	Description string    `json:"description"`
	AppliedAt   time.Time `json:"applied_at"`
}

// Catalog returns the ordered migration set for the catalog snapshot database
func Catalog() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "create state snapshot table",
			Up: func(ctx context.Context, tx *sql.Tx) error {
				_, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
					bucket TEXT PRIMARY KEY,
					payload BLOB NOT NULL
				)`)
				return err
			},
			Down: func(ctx context.Context, tx *sql.Tx) error {
				_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS state`)
				return err
			},
		},
		{
			Version:     2,
			Description: "track snapshot write times",
			Up: func(ctx context.Context, tx *sql.Tx) error {
				_, err := tx.ExecContext(ctx, `ALTER TABLE state ADD COLUMN updated_at TEXT NOT NULL DEFAULT ''`)
				return err
			},
		},
	}
}

// Migrator applies migrations in order and records them in a tracking table
type Migrator struct {
	db         *sql.DB
	migrations []Migration
}

// NewMigrator validates the migration set and returns a migrator. Versions
// must be unique, positive and strictly ascending.
func NewMigrator(db *sql.DB, migrations []Migration) (*Migrator, error) {
	last := 0
	for _, migration := range migrations {
		if migration.Version <= last {
			return nil, fmt.Errorf("migration versions must ascend, got %d after %d", migration.Version, last)
		}
		if migration.Up == nil {
			return nil, fmt.Errorf("migration %d has no up function", migration.Version)
		}
		last = migration.Version
	}
	return &Migrator{db: db, migrations: migrations}, nil
}

// Run applies every pending migration, each in its own transaction
func (m *Migrator) Run(ctx context.Context) error {
	if err := m.ensureHistoryTable(ctx); err != nil {
		return err
	}

	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if migration.Version <= current {
			continue
		}
		if err := m.apply(ctx, migration); err != nil {
			return fmt.Errorf("migration %d (%s): %w", migration.Version, migration.Description, err)
		}
	}
	return nil
}

// Rollback walks the schema back down to targetVersion. It fails if any
// intervening migration lacks a down function.
func (m *Migrator) Rollback(ctx context.Context, targetVersion int) error {
	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	if targetVersion >= current {
		return nil
	}

	for i := len(m.migrations) - 1; i >= 0; i-- {
		migration := m.migrations[i]
		if migration.Version > current || migration.Version <= targetVersion {
			continue
		}
		if migration.Down == nil {
			return fmt.Errorf("migration %d does not support rollback", migration.Version)
		}
		if err := m.revert(ctx, migration); err != nil {
			return fmt.Errorf("rollback %d (%s): %w", migration.Version, migration.Description, err)
		}
	}
	return nil
}

// CurrentVersion returns the highest applied migration version
func (m *Migrator) CurrentVersion(ctx context.Context) (int, error) {
	if err := m.ensureHistoryTable(ctx); err != nil {
		return 0, err
	}
	var version sql.NullInt64
	err := m.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(version.Int64), nil
}

// History returns every applied migration in order
func (m *Migrator) History(ctx context.Context) ([]AppliedMigration, error) {
	if err := m.ensureHistoryTable(ctx); err != nil {
		return nil, err
	}
	rows, err := m.db.QueryContext(ctx, `SELECT version, description, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("read migration history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var history []AppliedMigration
	for rows.Next() {
		var row AppliedMigration
		var appliedAt string
		if err := rows.Scan(&row.Version, &row.Description, &appliedAt); err != nil {
			return nil, fmt.Errorf("scan migration row: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, appliedAt); err == nil {
			row.AppliedAt = ts
		}
		history = append(history, row)
	}
	return history, rows.Err()
}

func (m *Migrator) ensureHistoryTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

func (m *Migrator) apply(ctx context.Context, migration Migration) (retErr error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if err := migration.Up(ctx, tx); err != nil {
		retErr = err
		return retErr
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations(version, description, applied_at) VALUES(?,?,?)`,
		migration.Version, migration.Description, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		retErr = err
		return retErr
	}
	return tx.Commit()
}

func (m *Migrator) revert(ctx context.Context, migration Migration) (retErr error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if err := migration.Down(ctx, tx); err != nil {
		retErr = err
		return retErr
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM schema_migrations WHERE version = ?`, migration.Version,
	); err != nil {
		retErr = err
		return retErr
	}
	return tx.Commit()
}
