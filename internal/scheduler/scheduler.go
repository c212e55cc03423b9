package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bufia/equipment-booking-backend/internal/config"
	"github.com/bufia/equipment-booking-backend/internal/jobs"
	"github.com/bufia/equipment-booking-backend/internal/logger"
)

// Scheduler runs the periodic booking jobs on cron schedules. All specs
// use the six-field form with a seconds column and evaluate in UTC.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

func New(cfg *config.Config, runner *jobs.Runner) (*Scheduler, error) {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(time.UTC),
	)

	if _, err := c.AddFunc(cfg.CompleteElapsedSpec, runner.CompleteElapsedReservations); err != nil {
		return nil, fmt.Errorf("invalid complete-elapsed cron spec %q: %w", cfg.CompleteElapsedSpec, err)
	}
	if _, err := c.AddFunc(cfg.RefreshStatusSpec, runner.RefreshMachineStatuses); err != nil {
		return nil, fmt.Errorf("invalid refresh-status cron spec %q: %w", cfg.RefreshStatusSpec, err)
	}

	return &Scheduler{
		cron: c,
		log:  logger.WithService("scheduler"),
	}, nil
}

// Start begins running jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop halts scheduling and waits for running jobs to finish or the
// context to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out with jobs still running")
	}
}
