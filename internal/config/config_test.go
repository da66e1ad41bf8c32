package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("CCWATT_HOME", home)
	t.Setenv("CCWATT_ENDPOINT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, home, cfg.Home)
	assert.Equal(t, filepath.Join(home, ".claude", "projects"), cfg.ClaudeRoot)
	assert.Equal(t, filepath.Join(home, ".ccwatt", "ccwatt.db"), cfg.StoragePath)
	assert.Equal(t, DefaultEndpoint, cfg.ResolvedEndpoint())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("CCWATT_HOME", home)
	t.Setenv("CCWATT_ENDPOINT", "")

	cfg, err := Load()
	require.NoError(t, err)

	cfg.ClientID = "client-123"
	cfg.Credentials = Credentials{
		AccessToken:      "at",
		RefreshToken:     "rt",
		ExpiresAt:        1700000000,
		RefreshExpiresAt: 1800000000,
	}
	require.NoError(t, cfg.Save())

	// Config file holds secrets, keep it private
	info, err := os.Stat(filepath.Join(home, ".ccwatt.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reloaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "client-123", reloaded.ClientID)
	assert.Equal(t, cfg.Credentials, reloaded.Credentials)
}

func TestEndpointOverrideChangesStoragePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("CCWATT_HOME", home)
	t.Setenv("CCWATT_ENDPOINT", "https://staging.ccwatt.dev")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://staging.ccwatt.dev", cfg.ResolvedEndpoint())

	// Staging data lands in its own file, never the production one
	base := filepath.Base(cfg.StoragePath)
	assert.NotEqual(t, "ccwatt.db", base)
	assert.Regexp(t, `^ccwatt\.[0-9a-f]{8}\.db$`, base)

	// Same endpoint always maps to the same file
	again, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg.StoragePath, again.StoragePath)
}

func TestEndpointFromFileIsOverriddenByEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("CCWATT_HOME", home)
	t.Setenv("CCWATT_ENDPOINT", "")

	require.NoError(t, os.WriteFile(
		filepath.Join(home, ".ccwatt.yaml"),
		[]byte("endpoint: https://file.ccwatt.dev\n"), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://file.ccwatt.dev", cfg.ResolvedEndpoint())

	t.Setenv("CCWATT_ENDPOINT", "https://env.ccwatt.dev")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "https://env.ccwatt.dev", cfg.ResolvedEndpoint())
}
