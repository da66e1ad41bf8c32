package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/emberlens/ccwatt/pkg/logger"
)

// Store wraps the SQLite connection backing local accounting state.
// Handles are scoped to a single logical operation: open, operate,
// close. WAL mode lets short-lived readers coexist with one writer.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the store at dbPath and brings the
// schema up to date. A failed migration step is logged and leaves the
// store at its last successfully-applied version; reads and writes that
// don't need the missing pieces still work.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors under concurrent load
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		logger.Error().Err(err).Msg("schema migration halted")
	}

	return s, nil
}

// OpenIfExists opens the store only when the database file is already
// present. Returns (nil, nil) otherwise so readonly callers can report
// "no data" instead of creating an empty store.
func OpenIfExists(dbPath string) (*Store, error) {
	if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return Open(dbPath)
}

// Close closes the underlying connection
func (s *Store) Close() error {
	return s.db.Close()
}
