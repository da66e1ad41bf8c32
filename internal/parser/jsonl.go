package parser

import (
	"bufio"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/emberlens/ccwatt/internal/model"
)

// rawLine maps the JSONL structure we care about. Unrecognized fields
// are ignored by encoding/json.
type rawLine struct {
	Type       string `json:"type"`
	UUID       string `json:"uuid"`
	ParentUUID string `json:"parentUuid"`
	RequestID  string `json:"requestId"`
	Timestamp  string `json:"timestamp"`
	Message    *struct {
		ID    string `json:"id"`
		Model string `json:"model"`
		Usage *struct {
			InputTokens              int64 `json:"input_tokens"`
			OutputTokens             int64 `json:"output_tokens"`
			CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
			CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
		} `json:"usage"`
	} `json:"message"`
}

// lineResult is the tagged outcome of parsing a single line: either a
// usable record or a skip. Malformed lines are noise, never errors.
type lineResult struct {
	record model.UsageRecord
	ok     bool
}

// timestamps observed on any line, usable or not, feed session start/end
type scanStats struct {
	earliest time.Time
	latest   time.Time
	noise    int // malformed or schema-invalid lines
	skipped  int // valid lines without usage payloads
}

func (s *scanStats) observe(ts time.Time) {
	if s.earliest.IsZero() || ts.Before(s.earliest) {
		s.earliest = ts
	}
	if s.latest.IsZero() || ts.After(s.latest) {
		s.latest = ts
	}
}

// parseLine validates one JSONL line. Only assistant turns carrying a
// usage payload and a model id produce a record.
func parseLine(line []byte, stats *scanStats) lineResult {
	var raw rawLine
	if err := json.Unmarshal(line, &raw); err != nil {
		stats.noise++
		return lineResult{}
	}

	if raw.Timestamp != "" {
		if ts, err := parseTimestamp(raw.Timestamp); err == nil {
			stats.observe(ts)
		}
	}

	if raw.Type != "assistant" || raw.Message == nil || raw.Message.Usage == nil || raw.Message.Model == "" {
		stats.skipped++
		return lineResult{}
	}

	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		ts = time.Time{}
	}

	usage := raw.Message.Usage
	return lineResult{
		ok: true,
		record: model.UsageRecord{
			RequestID: dedupKey(raw),
			Model:     raw.Message.Model,
			Timestamp: ts,
			Usage: model.TokenUsage{
				InputTokens:         usage.InputTokens,
				OutputTokens:        usage.OutputTokens,
				CacheCreationTokens: usage.CacheCreationInputTokens,
				CacheReadTokens:     usage.CacheReadInputTokens,
			},
		},
	}
}

// dedupKey picks the identifier used for duplicate suppression:
// requestId, then the parent message uuid, then a synthesized value so
// the record is never merged with anything else.
func dedupKey(raw rawLine) string {
	if raw.RequestID != "" {
		return raw.RequestID
	}
	if raw.ParentUUID != "" {
		return raw.ParentUUID
	}
	return "synth-" + uuid.NewString()
}

func parseTimestamp(s string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Parse("2006-01-02T15:04:05.000Z", s)
	}
	return ts.UTC(), nil
}

// scanRecords reads JSONL from r, deduplicating by request identifier
// within this reader. seen is shared by the caller when dedup must span
// the primary log; sub-task files pass a fresh map.
func scanRecords(r io.Reader, seen map[string]struct{}, stats *scanStats) []model.UsageRecord {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var records []model.UsageRecord
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		res := parseLine(line, stats)
		if !res.ok {
			continue
		}

		if _, dup := seen[res.record.RequestID]; dup {
			continue
		}
		seen[res.record.RequestID] = struct{}{}
		records = append(records, res.record)
	}

	if err := scanner.Err(); err != nil {
		stats.noise++
	}

	return records
}
