package session

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kaimana/seachat/pkg/store"
)

const (
	// DefaultSweepInterval is how often the reaper scans live sessions.
	DefaultSweepInterval = 30 * time.Minute

	// DefaultIdleTimeout is the idle threshold after which a session is
	// reclaimed.
	DefaultIdleTimeout = time.Hour

	// retryBackoff is the wait before retrying after a failed sweep.
	retryBackoff = time.Minute
)

// Reaper periodically destroys sessions that have been idle past the
// threshold, or whose durable last-active timestamp has gone missing.
// It runs for the whole process lifetime.
type Reaper struct {
	registry    *Registry
	store       store.Store
	interval    time.Duration
	idleTimeout time.Duration

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewReaper creates an idle session reaper
func NewReaper(registry *Registry, st store.Store, interval, idleTimeout time.Duration) *Reaper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}

	return &Reaper{
		registry:    registry,
		store:       st,
		interval:    interval,
		idleTimeout: idleTimeout,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start starts the reaper loop
func (r *Reaper) Start() error {
	if r.running {
		return fmt.Errorf("reaper is already running")
	}
	r.running = true

	go r.run()

	log.Info().
		Dur("interval", r.interval).
		Dur("idle_timeout", r.idleTimeout).
		Msg("Idle session reaper started")

	return nil
}

// Stop stops the reaper loop
func (r *Reaper) Stop() error {
	if !r.running {
		return fmt.Errorf("reaper is not running")
	}

	close(r.stopCh)
	<-r.doneCh
	r.running = false

	log.Info().Msg("Idle session reaper stopped")
	return nil
}

// run is the main reaper loop. A sweep failure backs off for a short
// fixed interval instead of terminating the loop.
func (r *Reaper) run() {
	defer close(r.doneCh)

	wait := r.interval
	for {
		select {
		case <-r.stopCh:
			return
		case <-time.After(wait):
		}

		if err := r.safeSweep(); err != nil {
			log.Error().Err(err).Msg("Session sweep failed, backing off")
			wait = retryBackoff
		} else {
			wait = r.interval
		}
	}
}

// safeSweep runs one sweep, converting a panic into an error
func (r *Reaper) safeSweep() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in session sweep: %v", rec)
		}
	}()
	return r.Sweep(context.Background())
}

// Sweep evaluates every live session once. It works on a point-in-time
// snapshot of ids and does not hold the registry lock while destroying,
// tolerating the registry changing underneath it; Destroy is idempotent
// for sessions that are already gone. A failure on one session is logged
// and does not abort the scan of the rest.
func (r *Reaper) Sweep(ctx context.Context) error {
	ids := r.registry.Snapshot()
	now := time.Now()

	log.Debug().Int("sessions", len(ids)).Msg("Running idle session sweep")

	for _, sessionID := range ids {
		lastActive, ok, err := r.store.LastActive(ctx, sessionID)
		if err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to read last-active timestamp")
			continue
		}

		// Missing timestamp means the durable record is gone while the
		// context is still live: an orphan, eligible for cleanup.
		if !ok || now.Sub(lastActive) > r.idleTimeout {
			if err := r.registry.Destroy(ctx, sessionID); err != nil {
				log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to destroy idle session")
			}
			continue
		}
	}

	return nil
}
