// Package sqlite provides a SQLite-backed implementation of kv.Store.
// Documents live in a single table keyed by name; writes replace the whole
// document, matching the engine's wholesale persistence model.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flemzord/mnemo/internal/kv"

	_ "modernc.org/sqlite" // SQLite driver registration
)

const defaultBusyTimeout = 5000

// DocStore is a kv.Store backed by a SQLite database file.
type DocStore struct {
	db *sql.DB
}

// Compile-time interface check.
var _ kv.Store = (*DocStore)(nil)

// Open opens (or creates) a SQLite database at the given path and returns a
// DocStore backed by it.
//
// The database is created with WAL mode, a 5 s busy timeout, and a single
// connection (SQLite serialises writes). The schema is migrated automatically.
func Open(path string) (*DocStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DocStore{db: db}, nil
}

// Get returns the document stored under key.
func (s *DocStore) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRow("SELECT value FROM documents WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: get %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores the document under key, replacing any previous value.
func (s *DocStore) Set(key string, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO documents (key, value, updated_at) VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("sqlite: set %q: %w", key, err)
	}
	return nil
}

// Delete removes the document under key.
func (s *DocStore) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM documents WHERE key = ?", key); err != nil {
		return fmt.Errorf("sqlite: delete %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *DocStore) Close() error {
	return s.db.Close()
}
