// Package scheduler runs engagement cycles on an in-process cron schedule.
// Deployments that trigger runs through the HTTP endpoint leave the schedule
// empty and never start it.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/giftist/engage/internal/engagement"
)

const runTimeout = 10 * time.Minute

// Scheduler wraps a cron engine around the run coordinator.
type Scheduler struct {
	engine      *cron.Cron
	coordinator *engagement.Coordinator
	schedule    string
	logger      *slog.Logger
}

// New creates a scheduler with the given cron expression.
func New(coordinator *engagement.Coordinator, schedule string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		engine:      cron.New(),
		coordinator: coordinator,
		schedule:    schedule,
		logger:      logger,
	}
}

// Start registers the run job and starts the cron engine.
func (s *Scheduler) Start() error {
	_, err := s.engine.AddFunc(s.schedule, s.runOnce)
	if err != nil {
		return fmt.Errorf("add cron job %q: %w", s.schedule, err)
	}

	s.engine.Start()
	s.logger.Info("scheduler started", slog.String("schedule", s.schedule))
	return nil
}

// Stop stops the cron engine and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.engine.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	report := s.coordinator.RunAll(ctx, time.Now())
	s.logger.Info("scheduled run finished",
		slog.String("run_id", report.RunID),
		slog.Int("sent", report.TotalSent),
		slog.Int("failed", report.TotalFailed))
}
