package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberlens/ccwatt/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRow(sessionID, projectID string) *SessionRow {
	return &SessionRow{
		SessionID:   sessionID,
		ProjectPath: "/home/me/src/" + projectID,
		ProjectID:   projectID,
		Usage: model.TokenUsage{
			InputTokens:         1000,
			OutputTokens:        500,
			CacheCreationTokens: 200,
			CacheReadTokens:     100,
		},
		EnergyWh:     1.5,
		CO2Grams:     0.7,
		PrimaryModel: "claude-sonnet-4-5",
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(dbPath)
	require.NoError(t, err)

	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, migrations[len(migrations)-1].version, v)

	// Running the full sequence again must be a no-op
	require.NoError(t, s.migrate())
	require.NoError(t, s.Close())

	// Reopening replays the version check against the stored value
	s2, err := Open(dbPath)
	require.NoError(t, err)
	defer s2.Close()

	v2, err := s2.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, v, v2)

	// Schema is intact and usable
	require.NoError(t, s2.UpsertSession(testRow("sess-1", "proj")))
}

func TestUpsertPreservesCreatedAt(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.UpsertSession(testRow("sess-1", "proj")))
	first, err := s.GetSession("sess-1")
	require.NoError(t, err)
	require.NotNil(t, first)

	time.Sleep(20 * time.Millisecond)

	updated := testRow("sess-1", "proj")
	updated.Usage.OutputTokens = 9999
	require.NoError(t, s.UpsertSession(updated))

	second, err := s.GetSession("sess-1")
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.True(t, second.CreatedAt.Equal(first.CreatedAt), "created_at never overwritten")
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt), "updated_at adopts the new write")
	assert.Equal(t, int64(9999), second.Usage.OutputTokens)
	assert.Equal(t, second.Usage.Total(), second.TotalTokens)
}

func TestUpsertMarksDirtyAgain(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.UpsertSession(testRow("sess-1", "proj")))
	require.NoError(t, s.MarkSynced([]string{"sess-1"}))

	row, err := s.GetSession("sess-1")
	require.NoError(t, err)
	assert.False(t, row.NeedsSync)

	// Any content change reopens the dirty state
	require.NoError(t, s.UpsertSession(testRow("sess-1", "proj")))
	row, err = s.GetSession("sess-1")
	require.NoError(t, err)
	assert.True(t, row.NeedsSync)
}

func TestDirtySessions(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.UpsertSession(testRow("a", "p1")))
	require.NoError(t, s.UpsertSession(testRow("b", "p1")))
	require.NoError(t, s.UpsertSession(testRow("c", "p2")))
	require.NoError(t, s.MarkSynced([]string{"b"}))

	dirty, err := s.DirtySessions(10)
	require.NoError(t, err)
	require.Len(t, dirty, 2)

	limited, err := s.DirtySessions(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSessionLookups(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.UpsertSession(testRow("a", "p1")))

	exists, err := s.SessionExists("a")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.SessionExists("missing")
	require.NoError(t, err)
	assert.False(t, exists)

	row, err := s.GetSession("missing")
	require.NoError(t, err)
	assert.Nil(t, row)

	ids, err := s.ListSessionIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)
}

func TestDeleteProjectSessions(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.UpsertSession(testRow("a", "p1")))
	require.NoError(t, s.UpsertSession(testRow("b", "p1")))
	require.NoError(t, s.UpsertSession(testRow("c", "p2")))

	n, err := s.DeleteProjectSessions("p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ids, err := s.ListSessionIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids)
}

func TestStats(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.UpsertSession(testRow("a", "p1")))
	require.NoError(t, s.UpsertSession(testRow("b", "p2")))

	all, err := s.Stats("")
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Sessions)
	assert.Equal(t, int64(3600), all.Tokens)
	assert.InDelta(t, 3.0, all.EnergyWh, 1e-9)

	one, err := s.Stats("p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), one.Sessions)
	assert.Equal(t, int64(1800), one.Tokens)

	daily, err := s.DailyStats("", 30)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, int64(2), daily[0].Sessions)
}

func TestReadTotalsWithoutStoreFile(t *testing.T) {
	totals, err := ReadTotals(filepath.Join(t.TempDir(), "never-created.db"), "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), totals.Sessions)
	assert.Zero(t, totals.EnergyWh)

	daily, err := ReadDailyStats(filepath.Join(t.TempDir(), "never-created.db"), "", 30)
	require.NoError(t, err)
	assert.Empty(t, daily)
}
