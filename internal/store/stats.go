package store

import (
	"github.com/emberlens/ccwatt/internal/model"
)

// Totals are aggregate sums across stored sessions
type Totals struct {
	Sessions int64
	Usage    model.TokenUsage
	Tokens   int64
	EnergyWh float64
	CO2Grams float64
}

// DayBucket is one day's aggregate, keyed by session creation date
type DayBucket struct {
	Day      string // YYYY-MM-DD
	Sessions int64
	Tokens   int64
	EnergyWh float64
	CO2Grams float64
}

// Stats returns global totals, or totals for one project when projectID
// is non-empty
func (s *Store) Stats(projectID string) (*Totals, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0),
		       COALESCE(SUM(cache_creation_tokens), 0), COALESCE(SUM(cache_read_tokens), 0),
		       COALESCE(SUM(total_tokens), 0),
		       COALESCE(SUM(energy_wh), 0), COALESCE(SUM(co2_grams), 0)
		FROM sessions`
	args := []any{}
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}

	t := &Totals{}
	err := s.db.QueryRow(query, args...).Scan(
		&t.Sessions,
		&t.Usage.InputTokens, &t.Usage.OutputTokens,
		&t.Usage.CacheCreationTokens, &t.Usage.CacheReadTokens,
		&t.Tokens, &t.EnergyWh, &t.CO2Grams,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// DailyStats returns per-day aggregates, newest first, up to limit days
func (s *Store) DailyStats(projectID string, limit int) ([]DayBucket, error) {
	query := `
		SELECT DATE(created_at), COUNT(*),
		       COALESCE(SUM(total_tokens), 0),
		       COALESCE(SUM(energy_wh), 0), COALESCE(SUM(co2_grams), 0)
		FROM sessions`
	args := []any{}
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` GROUP BY DATE(created_at) ORDER BY DATE(created_at) DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []DayBucket
	for rows.Next() {
		var b DayBucket
		if err := rows.Scan(&b.Day, &b.Sessions, &b.Tokens, &b.EnergyWh, &b.CO2Grams); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// ReadTotals is the readonly entry point used by status queries: when
// the store file does not exist yet it reports zero totals instead of
// creating the file or failing.
func ReadTotals(dbPath, projectID string) (*Totals, error) {
	s, err := OpenIfExists(dbPath)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return &Totals{}, nil
	}
	defer s.Close()
	return s.Stats(projectID)
}

// ReadDailyStats mirrors ReadTotals for time-bucketed sums
func ReadDailyStats(dbPath, projectID string, limit int) ([]DayBucket, error) {
	s, err := OpenIfExists(dbPath)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, nil
	}
	defer s.Close()
	return s.DailyStats(projectID, limit)
}
