package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
)

// Well-known config keys
const (
	KeySyncEnabled = "sync_enabled"
	KeyAccountID   = "account_id"
	KeyDisplayName = "display_name"
	KeyAnonUserID  = "anon_user_id"
	KeyInstalledAt = "installed_at"
	KeyOrgID       = "org_id"

	// Per-project keys
	ProjectKeyDisplayName = "display_name"
)

// GetConfig returns a scalar config value; ok is false when absent
func (s *Store) GetConfig(key string) (value string, ok bool, err error) {
	err = s.db.QueryRow(`SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetConfig upserts a scalar config value
func (s *Store) SetConfig(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// DeleteConfig removes a scalar config value
func (s *Store) DeleteConfig(key string) error {
	_, err := s.db.Exec(`DELETE FROM config WHERE key = ?`, key)
	return err
}

// ProjectHash derives the stable scope key for per-project config
func ProjectHash(projectPath string) string {
	sum := sha256.Sum256([]byte(projectPath))
	return hex.EncodeToString(sum[:8])
}

// GetProjectConfig returns a per-project config value; ok is false when absent
func (s *Store) GetProjectConfig(projectPath, key string) (value string, ok bool, err error) {
	err = s.db.QueryRow(
		`SELECT value FROM project_config WHERE project_hash = ? AND key = ?`,
		ProjectHash(projectPath), key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetProjectConfig upserts a per-project config value
func (s *Store) SetProjectConfig(projectPath, key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO project_config (project_hash, key, value) VALUES (?, ?, ?)
		ON CONFLICT(project_hash, key) DO UPDATE SET value = excluded.value`,
		ProjectHash(projectPath), key, value)
	return err
}

// DeleteProjectConfig removes a per-project config value
func (s *Store) DeleteProjectConfig(projectPath, key string) error {
	_, err := s.db.Exec(
		`DELETE FROM project_config WHERE project_hash = ? AND key = ?`,
		ProjectHash(projectPath), key)
	return err
}
