// Package sqlite persists the in-memory catalog store to a single SQLite
// file. State is snapshotted as JSON blobs after every committed unit of
// work, which keeps the driver trivial while the catalog stays bounded.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"pantry-backend/application/ports"
	"pantry-backend/infrastructure/persistence/memory"
	"pantry-backend/infrastructure/persistence/schema"
)

// Store wraps the memory store with a SQLite snapshot of its state
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (or creates) the database file and loads any persisted
// catalog state into the wrapped memory store.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "pantry-catalog.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	migrator, err := schema.NewMigrator(db, schema.Catalog())
	if err != nil {
		return nil, err
	}
	if err := migrator.Run(context.Background()); err != nil {
		return nil, fmt.Errorf("migrate catalog database: %w", err)
	}

	s := &Store{Store: memory.NewStore(), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	loaded := false
	var state memory.State
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		loaded = true

		switch bucket {
		case "ingredients":
			err = json.Unmarshal(payload, &state.Ingredients)
		case "aliases":
			err = json.Unmarshal(payload, &state.Aliases)
		case "snapshot_lines":
			err = json.Unmarshal(payload, &state.SnapshotLines)
		case "events":
			err = json.Unmarshal(payload, &state.Events)
		case "product_refs":
			err = json.Unmarshal(payload, &state.ProductRefs)
		case "recipe_refs":
			err = json.Unmarshal(payload, &state.RecipeRefs)
		}
		if err != nil {
			return fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read state: %w", err)
	}
	if !loaded {
		return nil
	}
	return s.ImportState(state)
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.ExportState()
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	buckets := []struct {
		name  string
		value interface{}
	}{
		{"ingredients", state.Ingredients},
		{"aliases", state.Aliases},
		{"snapshot_lines", state.SnapshotLines},
		{"events", state.Events},
		{"product_refs", state.ProductRefs},
		{"recipe_refs", state.RecipeRefs},
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, bucket := range buckets {
		data, err := json.Marshal(bucket.value)
		if err != nil {
			retErr = fmt.Errorf("encode %s: %w", bucket.name, err)
			return retErr
		}
		if _, err := tx.Exec(
			`INSERT INTO state(bucket,payload,updated_at) VALUES(?,?,?)
			 ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`,
			bucket.name, data, now,
		); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket.name, err)
			return retErr
		}
	}

	return tx.Commit()
}

// Close closes the underlying database file
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying sql.DB for integration testing hooks
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path
func (s *Store) Path() string { return s.path }

// unitOfWork commits against the memory store, then snapshots to SQLite
type unitOfWork struct {
	ports.UnitOfWork
	store *Store
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if err := u.UnitOfWork.Commit(ctx); err != nil {
		return err
	}
	return u.store.persist()
}

// UnitOfWorkFactory builds snapshotting units of work over one store
type UnitOfWorkFactory struct {
	store *Store
	inner *memory.UnitOfWorkFactory
}

// NewUnitOfWorkFactory creates a SQLite-backed unit of work factory
func NewUnitOfWorkFactory(store *Store) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		store: store,
		inner: memory.NewUnitOfWorkFactory(store.Store),
	}
}

// New returns a unit of work that has not yet begun
func (f *UnitOfWorkFactory) New(ctx context.Context) (ports.UnitOfWork, error) {
	uow, err := f.inner.New(ctx)
	if err != nil {
		return nil, err
	}
	return &unitOfWork{UnitOfWork: uow, store: f.store}, nil
}

var _ ports.UnitOfWorkFactory = (*UnitOfWorkFactory)(nil)
