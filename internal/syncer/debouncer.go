package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/emberlens/ccwatt/pkg/logger"
)

// Debouncer delays per-session sync so rapid hook-triggered ingests
// coalesce into one delivery. It carries its own error boundary: a
// failed background sync never affects the ingestion path.
type Debouncer struct {
	orch    *Orchestrator
	delay   time.Duration
	mu      sync.Mutex
	pending map[string]int // session id -> generation
	wg      sync.WaitGroup
}

// NewDebouncer creates a debouncer with the specified delay
func NewDebouncer(orch *Orchestrator, delay time.Duration) *Debouncer {
	return &Debouncer{
		orch:    orch,
		delay:   delay,
		pending: make(map[string]int),
	}
}

// Schedule queues a sync for a session, resetting the timer if one is
// already pending
func (d *Debouncer) Schedule(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	gen := d.pending[sessionID] + 1
	d.pending[sessionID] = gen

	d.wg.Add(1)
	time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.flush(sessionID, gen)
	})
}

func (d *Debouncer) flush(sessionID string, generation int) {
	d.mu.Lock()
	current, exists := d.pending[sessionID]
	if !exists || current != generation {
		// Stale timer, a newer schedule superseded this one
		d.mu.Unlock()
		return
	}
	delete(d.pending, sessionID)
	d.mu.Unlock()

	if err := d.orch.SyncSession(context.Background(), sessionID); err != nil {
		logger.Warn().Err(err).Str("session", sessionID).Msg("background sync needs re-authentication")
	}
}

// Wait blocks until all scheduled flushes ran. Used by short-lived CLI
// invocations so the process doesn't exit before the sync fires.
func (d *Debouncer) Wait() {
	d.wg.Wait()
}
