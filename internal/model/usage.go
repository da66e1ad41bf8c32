package model

import "time"

// TokenUsage contains token counts from a single Claude API response
type TokenUsage struct {
	InputTokens         int64
	OutputTokens        int64
	CacheCreationTokens int64
	CacheReadTokens     int64
}

// Total returns the sum of all four token counts
func (u TokenUsage) Total() int64 {
	return u.InputTokens + u.OutputTokens + u.CacheCreationTokens + u.CacheReadTokens
}

// Add accumulates another usage into this one
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationTokens += other.CacheCreationTokens
	u.CacheReadTokens += other.CacheReadTokens
}

// UsageRecord represents one model-generated request from a session log.
// Records are immutable once parsed; duplicates (streaming retransmission)
// are dropped by request identifier, first occurrence wins.
type UsageRecord struct {
	RequestID string
	Model     string
	Usage     TokenUsage
	Timestamp time.Time
}

// ModelUsage is one entry of a per-model token breakdown.
// Breakdown order reflects first encounter in the log.
type ModelUsage struct {
	Model string
	Usage TokenUsage
}

// SessionUsage is the deduplicated, totaled usage summary for one session
type SessionUsage struct {
	SessionID    string
	ProjectPath  string // raw project path as supplied or decoded
	ProjectID    string // resolved project identifier
	Records      []UsageRecord
	Totals       TokenUsage
	PerModel     []ModelUsage // ordered by first encounter
	PrimaryModel string       // model with the largest token share
	StartedAt    time.Time
	EndedAt      time.Time
}

// Empty reports whether the session carries no token usage at all
func (s *SessionUsage) Empty() bool {
	return s.Totals.Total() == 0
}
