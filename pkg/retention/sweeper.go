// Package retention runs the stale-session sweep on a cron schedule.
// The sweep itself lives in the store; this package only triggers it.
// Scheduling is opt-in: with no schedule configured the sweep runs only
// when requested over the API or CLI.
package retention

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/nafiskhan/profilechat/pkg/store"
)

// Sweeper schedules periodic retention sweeps.
type Sweeper struct {
	store    *store.Store
	days     int
	schedule string
	logger   zerolog.Logger
	cron     *cron.Cron
}

// NewSweeper creates a sweeper. schedule is a standard cron expression.
func NewSweeper(st *store.Store, days int, schedule string, logger zerolog.Logger) (*Sweeper, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	if days <= 0 {
		return nil, errors.New("retention days must be positive")
	}
	if schedule != "" {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return nil, err
		}
	}

	return &Sweeper{
		store:    st,
		days:     days,
		schedule: schedule,
		logger:   logger,
	}, nil
}

// Start begins scheduled sweeps. A no-op when no schedule is configured.
func (s *Sweeper) Start() error {
	if s.schedule == "" {
		s.logger.Info().Msg("Retention sweep has no schedule, manual trigger only")
		return nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.RunOnce(context.Background()); err != nil {
			s.logger.Error().Err(err).Msg("Scheduled retention sweep failed")
		}
	}); err != nil {
		return err
	}
	s.cron.Start()

	s.logger.Info().
		Str("schedule", s.schedule).
		Int("retention_days", s.days).
		Msg("Retention sweep scheduled")

	return nil
}

// Stop halts scheduled sweeps and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Timed out waiting for retention sweep to finish")
	}
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	deleted, err := s.store.PurgeStale(ctx, s.days)
	if err != nil {
		return err
	}
	s.logger.Info().
		Int("deleted", deleted).
		Int("retention_days", s.days).
		Msg("Retention sweep completed")
	return nil
}
