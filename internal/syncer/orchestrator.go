package syncer

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/emberlens/ccwatt/internal/config"
	"github.com/emberlens/ccwatt/internal/store"
	"github.com/emberlens/ccwatt/pkg/logger"
)

// batchSize caps how many records go into one remote call
const batchSize = 100

// Orchestrator drives delivery of dirty session rows to the remote
// accounting service. Transport failures leave rows dirty for the next
// invocation; only authentication failures propagate.
type Orchestrator struct {
	cfg       *config.Config
	transport Transport
	limiter   *rate.Limiter
}

// New creates an orchestrator. The limiter paces consecutive batch
// uploads (soft measure, not a rate-limit protocol).
func New(cfg *config.Config, transport Transport) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		transport: transport,
		limiter:   rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
}

// syncIdentity reads the sync config surface from the store. Sync is a
// no-op without both the enabled flag and an account identity.
func syncIdentity(s *store.Store) (accountID string, enabled bool, err error) {
	v, ok, err := s.GetConfig(store.KeySyncEnabled)
	if err != nil || !ok || v != "true" {
		return "", false, err
	}
	accountID, ok, err = s.GetConfig(store.KeyAccountID)
	if err != nil || !ok {
		return "", false, err
	}
	return accountID, true, nil
}

// organization returns the account's organization id, resolving it
// remotely once and caching it in the store afterwards.
func (o *Orchestrator) organization(ctx context.Context, s *store.Store, token, accountID string) (string, error) {
	if orgID, ok, err := s.GetConfig(store.KeyOrgID); err != nil {
		return "", err
	} else if ok {
		return orgID, nil
	}

	orgID, err := o.transport.ResolveOrganization(ctx, token, accountID)
	if err != nil {
		return "", err
	}
	if err := s.SetConfig(store.KeyOrgID, orgID); err != nil {
		return "", err
	}
	return orgID, nil
}

func toRecord(row *store.SessionRow) SessionRecord {
	return SessionRecord{
		SessionID:           row.SessionID,
		ProjectPath:         row.ProjectPath,
		InputTokens:         row.Usage.InputTokens,
		OutputTokens:        row.Usage.OutputTokens,
		CacheCreationTokens: row.Usage.CacheCreationTokens,
		CacheReadTokens:     row.Usage.CacheReadTokens,
		EnergyWh:            row.EnergyWh,
		CO2Grams:            row.CO2Grams,
		StartedAt:           row.CreatedAt.Format(time.RFC3339),
	}
}

// SyncSession delivers a single session row if it is dirty. Transport
// failures are logged and swallowed; the row stays dirty for a later
// retry. Returns an error only when re-authentication is required.
func (o *Orchestrator) SyncSession(ctx context.Context, sessionID string) error {
	s, err := store.Open(o.cfg.StoragePath)
	if err != nil {
		logger.Error().Err(err).Msg("sync: cannot open store")
		return nil
	}
	defer s.Close()

	accountID, enabled, err := syncIdentity(s)
	if err != nil || !enabled {
		return nil
	}

	row, err := s.GetSession(sessionID)
	if err != nil || row == nil || !row.NeedsSync {
		return nil
	}

	token, err := o.accessToken(ctx)
	if err != nil {
		if errors.Is(err, ErrReauthRequired) {
			return err
		}
		logger.Warn().Err(err).Msg("sync: token refresh failed, will retry")
		return nil
	}

	orgID, err := o.organization(ctx, s, token, accountID)
	if err != nil {
		logger.Warn().Err(err).Msg("sync: organization lookup failed, will retry")
		return nil
	}

	if err := o.transport.UploadSessions(ctx, token, orgID, []SessionRecord{toRecord(row)}); err != nil {
		logger.Warn().Err(err).Str("session", sessionID).Msg("sync: upload failed, row stays dirty")
		return nil
	}

	if err := s.MarkSynced([]string{sessionID}); err != nil {
		logger.Error().Err(err).Msg("sync: failed to clear dirty flag")
	}
	return nil
}

// SyncAll delivers dirty rows in batches of up to 100. Each successful
// batch clears its flags before the next is fetched; the first failed
// batch stops the run entirely so the next invocation retries it from
// scratch. Synced count therefore never regresses.
func (o *Orchestrator) SyncAll(ctx context.Context) (int, error) {
	s, err := store.Open(o.cfg.StoragePath)
	if err != nil {
		logger.Error().Err(err).Msg("sync: cannot open store")
		return 0, nil
	}
	defer s.Close()

	accountID, enabled, err := syncIdentity(s)
	if err != nil || !enabled {
		return 0, nil
	}

	token, err := o.accessToken(ctx)
	if err != nil {
		if errors.Is(err, ErrReauthRequired) {
			return 0, err
		}
		logger.Warn().Err(err).Msg("sync: token refresh failed, will retry")
		return 0, nil
	}

	orgID, err := o.organization(ctx, s, token, accountID)
	if err != nil {
		logger.Warn().Err(err).Msg("sync: organization lookup failed, will retry")
		return 0, nil
	}

	synced := 0
	for {
		rows, err := s.DirtySessions(batchSize)
		if err != nil {
			logger.Error().Err(err).Msg("sync: dirty row query failed")
			return synced, nil
		}
		if len(rows) == 0 {
			return synced, nil
		}

		if err := o.limiter.Wait(ctx); err != nil {
			return synced, nil
		}

		records := make([]SessionRecord, len(rows))
		ids := make([]string, len(rows))
		for i, row := range rows {
			records[i] = toRecord(row)
			ids[i] = row.SessionID
		}

		if err := o.transport.UploadSessions(ctx, token, orgID, records); err != nil {
			// Batch delivery is all-or-nothing: stop here, keep the
			// whole batch dirty, retry on the next invocation.
			logger.Warn().Err(err).Int("batch", len(rows)).Msg("sync: batch upload failed, stopping")
			return synced, nil
		}

		if err := s.MarkSynced(ids); err != nil {
			logger.Error().Err(err).Msg("sync: failed to clear dirty flags")
			return synced, nil
		}
		synced += len(rows)
	}
}
