package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// expiryBuffer treats a token this close to expiry as already expired,
// so a token can't lapse mid-request.
const expiryBuffer = 60 * time.Second

// ErrReauthRequired means the refresh token itself has expired. No
// local retry can fix this; the caller must run the authorization flow
// again. Unlike transport failures, this error propagates.
var ErrReauthRequired = errors.New("authentication expired, re-run the ccwatt login flow")

func expired(unixSeconds int64, now time.Time) bool {
	if unixSeconds == 0 {
		return true
	}
	return !now.Add(expiryBuffer).Before(time.Unix(unixSeconds, 0))
}

// accessToken returns a usable access token, refreshing and persisting
// credentials when the current one is expired or about to expire.
func (o *Orchestrator) accessToken(ctx context.Context) (string, error) {
	creds := &o.cfg.Credentials
	now := time.Now()

	if creds.AccessToken != "" && !expired(creds.ExpiresAt, now) {
		return creds.AccessToken, nil
	}

	if creds.RefreshToken == "" || expired(creds.RefreshExpiresAt, now) {
		return "", ErrReauthRequired
	}

	tokens, err := o.transport.RefreshCredentials(ctx, creds.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}

	creds.AccessToken = tokens.AccessToken
	creds.ExpiresAt = now.Unix() + tokens.ExpiresIn
	if tokens.RefreshToken != "" {
		// Rotated refresh token
		creds.RefreshToken = tokens.RefreshToken
	}

	if err := o.cfg.Save(); err != nil {
		return "", fmt.Errorf("failed to persist refreshed credentials: %w", err)
	}
	return creds.AccessToken, nil
}
