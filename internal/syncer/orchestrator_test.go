package syncer

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberlens/ccwatt/internal/config"
	"github.com/emberlens/ccwatt/internal/model"
	"github.com/emberlens/ccwatt/internal/store"
)

// fakeTransport records calls and fails on demand
type fakeTransport struct {
	uploads      [][]SessionRecord
	failOnUpload int // 1-based call number that fails, 0 = never
	resolveCalls int
	refreshCalls int
	refreshErr   error
	tokens       *TokenSet
}

func (f *fakeTransport) UploadSessions(ctx context.Context, accessToken, orgID string, records []SessionRecord) error {
	f.uploads = append(f.uploads, records)
	if f.failOnUpload != 0 && len(f.uploads) == f.failOnUpload {
		return fmt.Errorf("remote unavailable")
	}
	return nil
}

func (f *fakeTransport) ResolveOrganization(ctx context.Context, accessToken, accountID string) (string, error) {
	f.resolveCalls++
	return "org_test", nil
}

func (f *fakeTransport) RefreshCredentials(ctx context.Context, refreshToken string) (*TokenSet, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	if f.tokens != nil {
		return f.tokens, nil
	}
	return &TokenSet{AccessToken: "fresh", ExpiresIn: 3600}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	home := t.TempDir()
	return &config.Config{
		Home:        home,
		StoragePath: filepath.Join(home, ".ccwatt", "test.db"),
		Credentials: config.Credentials{
			AccessToken:      "valid",
			RefreshToken:     "refresh",
			ExpiresAt:        time.Now().Add(time.Hour).Unix(),
			RefreshExpiresAt: time.Now().Add(24 * time.Hour).Unix(),
		},
	}
}

// seedSessions inserts n dirty rows and enables sync
func seedSessions(t *testing.T, cfg *config.Config, n int) {
	t.Helper()
	s, err := store.Open(cfg.StoragePath)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetConfig(store.KeySyncEnabled, "true"))
	require.NoError(t, s.SetConfig(store.KeyAccountID, "acct_test"))

	for i := 0; i < n; i++ {
		require.NoError(t, s.UpsertSession(&store.SessionRow{
			SessionID:    fmt.Sprintf("sess-%03d", i),
			ProjectID:    "proj",
			ProjectPath:  "/home/me/proj",
			Usage:        model.TokenUsage{InputTokens: 10, OutputTokens: 5},
			EnergyWh:     0.1,
			CO2Grams:     0.05,
			PrimaryModel: "claude-sonnet-4-5",
		}))
	}
}

func countDirty(t *testing.T, cfg *config.Config) int {
	t.Helper()
	s, err := store.Open(cfg.StoragePath)
	require.NoError(t, err)
	defer s.Close()
	rows, err := s.DirtySessions(1000)
	require.NoError(t, err)
	return len(rows)
}

func TestSyncAllDeliversInBatches(t *testing.T) {
	cfg := testConfig(t)
	seedSessions(t, cfg, 150)
	transport := &fakeTransport{}

	synced, err := New(cfg, transport).SyncAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 150, synced)
	require.Len(t, transport.uploads, 2)
	assert.Len(t, transport.uploads[0], 100)
	assert.Len(t, transport.uploads[1], 50)
	assert.Equal(t, 0, countDirty(t, cfg))
}

func TestSyncAllBatchFailureIsAtomic(t *testing.T) {
	cfg := testConfig(t)
	seedSessions(t, cfg, 150)
	transport := &fakeTransport{failOnUpload: 2}

	synced, err := New(cfg, transport).SyncAll(context.Background())

	// Transient delivery failure is swallowed, not raised
	require.NoError(t, err)
	assert.Equal(t, 100, synced)
	// Exactly the first batch is clean; the failed batch stays dirty
	assert.Equal(t, 50, countDirty(t, cfg))
}

func TestSyncAllNoopWithoutSyncConfig(t *testing.T) {
	cfg := testConfig(t)
	s, err := store.Open(cfg.StoragePath)
	require.NoError(t, err)
	require.NoError(t, s.UpsertSession(&store.SessionRow{SessionID: "a", ProjectID: "p"}))
	s.Close()

	transport := &fakeTransport{}
	synced, err := New(cfg, transport).SyncAll(context.Background())

	require.NoError(t, err)
	assert.Zero(t, synced)
	assert.Empty(t, transport.uploads)
}

func TestSyncAllCachesOrganization(t *testing.T) {
	cfg := testConfig(t)
	seedSessions(t, cfg, 1)
	transport := &fakeTransport{}
	orch := New(cfg, transport)

	_, err := orch.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, transport.resolveCalls)

	// Second invocation reuses the cached organization id
	seedSessions(t, cfg, 1)
	_, err = orch.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, transport.resolveCalls)
}

func TestSyncSessionClearsFlagOnSuccess(t *testing.T) {
	cfg := testConfig(t)
	seedSessions(t, cfg, 1)
	transport := &fakeTransport{}

	err := New(cfg, transport).SyncSession(context.Background(), "sess-000")
	require.NoError(t, err)

	require.Len(t, transport.uploads, 1)
	require.Len(t, transport.uploads[0], 1)
	assert.Equal(t, "sess-000", transport.uploads[0][0].SessionID)
	assert.Equal(t, 0, countDirty(t, cfg))
}

func TestSyncSessionLeavesRowDirtyOnTransportFailure(t *testing.T) {
	cfg := testConfig(t)
	seedSessions(t, cfg, 1)
	transport := &fakeTransport{failOnUpload: 1}

	err := New(cfg, transport).SyncSession(context.Background(), "sess-000")

	// Never raises for transport failures
	require.NoError(t, err)
	assert.Equal(t, 1, countDirty(t, cfg))
}

func TestSyncSessionSkipsCleanRow(t *testing.T) {
	cfg := testConfig(t)
	seedSessions(t, cfg, 1)

	s, err := store.Open(cfg.StoragePath)
	require.NoError(t, err)
	require.NoError(t, s.MarkSynced([]string{"sess-000"}))
	s.Close()

	transport := &fakeTransport{}
	require.NoError(t, New(cfg, transport).SyncSession(context.Background(), "sess-000"))
	assert.Empty(t, transport.uploads)
}

func TestSyncPropagatesReauthRequired(t *testing.T) {
	cfg := testConfig(t)
	seedSessions(t, cfg, 1)

	// Both tokens expired: no local retry can fix this
	cfg.Credentials.ExpiresAt = time.Now().Add(-time.Hour).Unix()
	cfg.Credentials.RefreshExpiresAt = time.Now().Add(-time.Minute).Unix()

	transport := &fakeTransport{}

	_, err := New(cfg, transport).SyncAll(context.Background())
	assert.ErrorIs(t, err, ErrReauthRequired)

	err = New(cfg, transport).SyncSession(context.Background(), "sess-000")
	assert.ErrorIs(t, err, ErrReauthRequired)

	assert.Zero(t, transport.refreshCalls)
	assert.Equal(t, 1, countDirty(t, cfg))
}
