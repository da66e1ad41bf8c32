package syncer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberlens/ccwatt/internal/config"
)

func TestExpired(t *testing.T) {
	now := time.Now()

	assert.True(t, expired(0, now), "zero means never issued")
	assert.True(t, expired(now.Add(-time.Hour).Unix(), now))
	assert.True(t, expired(now.Unix(), now))

	// Inside the buffer counts as expired
	assert.True(t, expired(now.Add(30*time.Second).Unix(), now))

	// Comfortably beyond the buffer does not
	assert.False(t, expired(now.Add(5*time.Minute).Unix(), now))
}

func TestAccessTokenReturnsCurrentWhenValid(t *testing.T) {
	cfg := testConfig(t)
	transport := &fakeTransport{}

	token, err := New(cfg, transport).accessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "valid", token)
	assert.Zero(t, transport.refreshCalls)
}

func TestAccessTokenRefreshesAndPersists(t *testing.T) {
	cfg := testConfig(t)
	cfg.Credentials.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	transport := &fakeTransport{
		tokens: &TokenSet{AccessToken: "fresh", ExpiresIn: 3600, RefreshToken: "rotated"},
	}

	token, err := New(cfg, transport).accessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.Equal(t, 1, transport.refreshCalls)

	// Rotated refresh token replaces the stored one
	assert.Equal(t, "rotated", cfg.Credentials.RefreshToken)

	// Refreshed credentials survive a reload from disk
	t.Setenv("CCWATT_HOME", cfg.Home)
	reloaded, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "fresh", reloaded.Credentials.AccessToken)
	assert.Equal(t, "rotated", reloaded.Credentials.RefreshToken)
	assert.Greater(t, reloaded.Credentials.ExpiresAt, time.Now().Unix())
}

func TestAccessTokenKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	cfg := testConfig(t)
	cfg.Credentials.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	transport := &fakeTransport{}

	_, err := New(cfg, transport).accessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refresh", cfg.Credentials.RefreshToken)
}

func TestAccessTokenRequiresReauthWithoutRefreshToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.Credentials.AccessToken = ""
	cfg.Credentials.RefreshToken = ""
	transport := &fakeTransport{}

	_, err := New(cfg, transport).accessToken(context.Background())
	assert.ErrorIs(t, err, ErrReauthRequired)
	assert.Zero(t, transport.refreshCalls)
}

func TestAccessTokenSurfacesRefreshFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Credentials.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	transport := &fakeTransport{refreshErr: fmt.Errorf("503 from oauth endpoint")}

	_, err := New(cfg, transport).accessToken(context.Background())
	require.Error(t, err)
	// A failed refresh call is transient, not a reauth condition
	assert.NotErrorIs(t, err, ErrReauthRequired)
}
