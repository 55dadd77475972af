package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the sweep on a fixed schedule using cron syntax, e.g.
// "0 3 * * *" for daily at 03:00. The sweep is also invocable on demand via
// RunNow for operational testing.
//
// No distributed coordination is attempted: if multiple instances run, each
// sweeps independently and duplicate archival races resolve via the archive
// store's uniqueness constraint.
type Scheduler struct {
	sweeper  *Sweeper
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

func NewScheduler(sweeper *Sweeper, schedule string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "retention.scheduler"),
	}
}

// Start begins scheduled sweeping. An empty schedule disables the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("sweep schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		s.runSweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("retention scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Scheduler) runSweep(ctx context.Context) {
	s.logger.Info("starting scheduled retention sweep")

	result, err := s.sweeper.Run(ctx)
	if err != nil {
		s.logger.Error("scheduled sweep failed", "error", err)
		return
	}
	if result.ArchivedCount > 0 || result.ErrorCount > 0 {
		s.logger.Info("scheduled sweep completed",
			"archived", result.ArchivedCount,
			"errors", result.ErrorCount,
			"skipped", result.SkippedCount,
		)
	}
}

// RunNow triggers one sweep outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) (Result, error) {
	return s.sweeper.Run(ctx)
}

// Stop stops the scheduler and waits for any running sweep to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("retention scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled sweep time, or nil when not running.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
