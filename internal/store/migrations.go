package store

import (
	"database/sql"
	"fmt"
)

// A migration applies one structural change. Every step must be written
// so that re-running it is a no-op: tables and indexes use IF NOT
// EXISTS, column adds are guarded by a catalog check.
type migration struct {
	version int
	name    string
	apply   func(tx *sql.Tx) error
}

var migrations = []migration{
	{
		version: 1,
		name:    "create sessions and config",
		apply: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
			CREATE TABLE IF NOT EXISTS sessions (
				session_id TEXT PRIMARY KEY,
				project_path TEXT,
				project_id TEXT,
				input_tokens INTEGER NOT NULL DEFAULT 0,
				output_tokens INTEGER NOT NULL DEFAULT 0,
				cache_creation_tokens INTEGER NOT NULL DEFAULT 0,
				cache_read_tokens INTEGER NOT NULL DEFAULT 0,
				total_tokens INTEGER NOT NULL DEFAULT 0,
				energy_wh REAL NOT NULL DEFAULT 0,
				co2_grams REAL NOT NULL DEFAULT 0,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				needs_sync INTEGER NOT NULL DEFAULT 1
			);

			CREATE TABLE IF NOT EXISTS config (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL
			);`)
			return err
		},
	},
	{
		version: 2,
		name:    "create project config",
		apply: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
			CREATE TABLE IF NOT EXISTS project_config (
				project_hash TEXT NOT NULL,
				key TEXT NOT NULL,
				value TEXT NOT NULL,
				PRIMARY KEY (project_hash, key)
			);`)
			return err
		},
	},
	{
		version: 3,
		name:    "add primary model column",
		apply: func(tx *sql.Tx) error {
			ok, err := hasColumn(tx, "sessions", "primary_model")
			if err != nil || ok {
				return err
			}
			_, err = tx.Exec(`ALTER TABLE sessions ADD COLUMN primary_model TEXT NOT NULL DEFAULT 'unknown'`)
			return err
		},
	},
	{
		version: 4,
		name:    "add sync and project indexes",
		apply: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
			CREATE INDEX IF NOT EXISTS idx_sessions_needs_sync ON sessions(needs_sync);
			CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_id);`)
			return err
		},
	},
}

// migrate runs every migration above the stored schema version, in
// order, advancing the version after each success. The first failing
// step halts further application for this open.
func (s *Store) migrate() error {
	var current int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if err := m.apply(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}
		// PRAGMA takes no placeholders
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): failed to advance version: %w", m.version, m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d (%s): commit failed: %w", m.version, m.name, err)
		}
		current = m.version
	}

	return nil
}

// SchemaVersion reports the last successfully applied migration version
func (s *Store) SchemaVersion() (int, error) {
	var v int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&v)
	return v, err
}

func hasColumn(tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
