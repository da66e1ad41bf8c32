package store

import (
	"database/sql"
	"strings"
	"time"

	"github.com/emberlens/ccwatt/internal/model"
)

// SessionRow is one persisted per-session accounting record
type SessionRow struct {
	SessionID    string
	ProjectPath  string
	ProjectID    string
	Usage        model.TokenUsage
	TotalTokens  int64
	EnergyWh     float64
	CO2Grams     float64
	PrimaryModel string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NeedsSync    bool
}

// UpsertSession inserts or updates the accounting row for a session.
// On conflict every column is overwritten except created_at, which keeps
// the value from the first insert; needs_sync is forced true on every
// write since the row's content changed.
func (s *Store) UpsertSession(row *SessionRow) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO sessions
		(session_id, project_path, project_id,
		 input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens,
		 total_tokens, energy_wh, co2_grams, primary_model,
		 created_at, updated_at, needs_sync)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(session_id) DO UPDATE SET
			project_path = excluded.project_path,
			project_id = excluded.project_id,
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens,
			cache_creation_tokens = excluded.cache_creation_tokens,
			cache_read_tokens = excluded.cache_read_tokens,
			total_tokens = excluded.total_tokens,
			energy_wh = excluded.energy_wh,
			co2_grams = excluded.co2_grams,
			primary_model = excluded.primary_model,
			updated_at = excluded.updated_at,
			needs_sync = 1`,
		row.SessionID, row.ProjectPath, row.ProjectID,
		row.Usage.InputTokens, row.Usage.OutputTokens,
		row.Usage.CacheCreationTokens, row.Usage.CacheReadTokens,
		row.Usage.Total(), row.EnergyWh, row.CO2Grams, row.PrimaryModel,
		now, now,
	)
	return err
}

const sessionColumns = `session_id, project_path, project_id,
	input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens,
	total_tokens, energy_wh, co2_grams, primary_model,
	created_at, updated_at, needs_sync`

func scanSessionRow(scanner interface{ Scan(...any) error }) (*SessionRow, error) {
	row := &SessionRow{}
	err := scanner.Scan(
		&row.SessionID, &row.ProjectPath, &row.ProjectID,
		&row.Usage.InputTokens, &row.Usage.OutputTokens,
		&row.Usage.CacheCreationTokens, &row.Usage.CacheReadTokens,
		&row.TotalTokens, &row.EnergyWh, &row.CO2Grams, &row.PrimaryModel,
		&row.CreatedAt, &row.UpdatedAt, &row.NeedsSync,
	)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// GetSession retrieves one session row, nil when absent
func (s *Store) GetSession(sessionID string) (*SessionRow, error) {
	row, err := scanSessionRow(s.db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, sessionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// SessionExists reports whether a session row is present
func (s *Store) SessionExists(sessionID string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM sessions WHERE session_id = ?`, sessionID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListSessionIDs returns every stored session identifier
func (s *Store) ListSessionIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT session_id FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DirtySessions returns up to limit rows awaiting delivery
func (s *Store) DirtySessions(limit int) ([]*SessionRow, error) {
	rows, err := s.db.Query(
		`SELECT `+sessionColumns+` FROM sessions WHERE needs_sync = 1 ORDER BY updated_at LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*SessionRow
	for rows.Next() {
		row, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// MarkSynced clears the delivery flag for the given sessions
func (s *Store) MarkSynced(sessionIDs []string) error {
	if len(sessionIDs) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(sessionIDs)), ",")
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		args[i] = id
	}
	_, err := s.db.Exec(
		`UPDATE sessions SET needs_sync = 0 WHERE session_id IN (`+placeholders+`)`, args...)
	return err
}

// DeleteProjectSessions removes every row for a project. Rows are never
// deleted any other way; this backs explicit user-initiated removal.
func (s *Store) DeleteProjectSessions(projectID string) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM sessions WHERE project_id = ?`, projectID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
