/*
sweeper.go - Background analytics sweeper

PURPOSE:
  Periodically re-runs the analytics pass for every session so derived
  state (goal accruals, payment-request matches, advisory messages) stays
  current even when a session goes quiet between mutations. The pass is
  idempotent, so sweeping a session that saw no changes is a no-op.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Walks every session and invokes the pipeline's refresh pass
  - Skips nothing: the pass itself detects unchanged state

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether the sweeper is active (default: true)

USAGE:
  sweeper := NewAnalyticsSweeper(store, p)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - pipeline/pipeline.go: Touch, the pass being scheduled
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/logger"
	"github.com/warp/ledger-engine/pipeline"
)

// AnalyticsSweeper keeps per-session derived state fresh in the background.
type AnalyticsSweeper struct {
	Store         ledger.SessionStore
	Pipeline      *pipeline.Pipeline
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAnalyticsSweeper creates a new sweeper.
func NewAnalyticsSweeper(store ledger.SessionStore, p *pipeline.Pipeline) *AnalyticsSweeper {
	return &AnalyticsSweeper{
		Store:         store,
		Pipeline:      p,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the sweeper.
func (as *AnalyticsSweeper) Start() {
	as.mu.Lock()
	defer as.mu.Unlock()

	log := logger.New()
	if !as.Enabled {
		log.Info().Msg("sweeper disabled, not starting")
		return
	}

	as.ticker = time.NewTicker(as.CheckInterval)
	as.stop = make(chan bool)
	as.wg.Add(1)

	go as.run()

	log.Info().Dur("interval", as.CheckInterval).Msg("sweeper started")
}

// Stop stops the sweeper.
func (as *AnalyticsSweeper) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.ticker != nil {
		as.ticker.Stop()
		as.ticker = nil
		close(as.stop)
		as.wg.Wait()
		log := logger.New()
		log.Info().Msg("sweeper stopped")
	}
}

func (as *AnalyticsSweeper) run() {
	defer as.wg.Done()

	// Run immediately on start
	as.sweep()

	for {
		select {
		case <-as.ticker.C:
			as.sweep()
		case <-as.stop:
			return
		}
	}
}

func (as *AnalyticsSweeper) sweep() {
	ctx := context.Background()
	log := logger.New()

	sessions, err := as.Store.ListSessions(ctx)
	if err != nil {
		log.Error().Err(err).Msg("sweeper: listing sessions failed")
		return
	}

	failed := 0
	for _, sess := range sessions {
		if err := as.Pipeline.Touch(ctx, sess.ID); err != nil {
			log.Error().Err(err).Str("session", string(sess.ID)).Msg("sweeper: pass failed")
			failed++
		}
	}

	if len(sessions) > 0 {
		log.Info().Int("sessions", len(sessions)).Int("failed", failed).Msg("sweep completed")
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (as *AnalyticsSweeper) RunNow() {
	as.sweep()
}
