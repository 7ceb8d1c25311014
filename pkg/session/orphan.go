package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/kaimana/seachat/pkg/store"
)

// OrphanSweeper removes on-disk session directories that belong neither
// to a live session nor to one known to the durable store. These are
// leftovers from crashed processes; the idle reaper never sees them
// because they have no registry entry.
type OrphanSweeper struct {
	registry  *Registry
	store     store.Store
	staticDir string
	schedule  string

	cron *cron.Cron
}

// NewOrphanSweeper creates an orphan directory sweeper
func NewOrphanSweeper(registry *Registry, st store.Store, staticDir, schedule string) *OrphanSweeper {
	if schedule == "" {
		schedule = "@every 24h"
	}
	return &OrphanSweeper{
		registry:  registry,
		store:     st,
		staticDir: staticDir,
		schedule:  schedule,
	}
}

// Start schedules the sweep
func (s *OrphanSweeper) Start() error {
	if s.cron != nil {
		return fmt.Errorf("orphan sweeper is already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() {
		if err := s.Sweep(context.Background()); err != nil {
			log.Error().Err(err).Msg("Orphan directory sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid orphan sweep schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c

	log.Info().Str("schedule", s.schedule).Msg("Orphan directory sweeper started")
	return nil
}

// Stop stops the sweep schedule
func (s *OrphanSweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
}

// Sweep removes orphaned session directories under the static root
func (s *OrphanSweeper) Sweep(ctx context.Context) error {
	dirEntries, err := os.ReadDir(s.staticDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read static root: %w", err)
	}

	removed := 0
	for _, dirEntry := range dirEntries {
		if !dirEntry.IsDir() {
			continue
		}

		sessionID := dirEntry.Name()
		if ValidateID(sessionID) != nil {
			continue
		}
		if s.registry.Has(sessionID) {
			continue
		}

		_, ok, err := s.store.LastActive(ctx, sessionID)
		if err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to check durable record for orphan candidate")
			continue
		}
		if ok {
			continue
		}

		if err := os.RemoveAll(filepath.Join(s.staticDir, sessionID)); err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to remove orphan directory")
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Info().Int("removed", removed).Msg("Removed orphan session directories")
	}
	return nil
}
