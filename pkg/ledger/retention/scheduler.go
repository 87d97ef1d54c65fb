package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs pruning daily at 03:00.
const DefaultSchedule = "0 3 * * *"

// Scheduler runs a Pruner on a cron schedule.
type Scheduler struct {
	pruner   *Pruner
	schedule string
	logger   *slog.Logger

	cron    *cron.Cron
	entryID cron.EntryID

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler using a standard cron expression
// (descriptors such as "@daily" also work). An empty schedule selects
// DefaultSchedule. The expression is validated here so a bad schedule fails
// at construction rather than at Start.
func NewScheduler(pruner *Pruner, schedule string, logger *slog.Logger) (*Scheduler, error) {
	if pruner == nil {
		return nil, fmt.Errorf("pruner is required")
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = slog.Default().With("component", "ledger_retention")
	}

	return &Scheduler{
		pruner:   pruner,
		schedule: schedule,
		logger:   logger,
	}, nil
}

// Start begins scheduled pruning. It returns immediately; prunes run on the
// cron goroutine. Cancelling ctx stops the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	s.cron = cron.New()
	id, err := s.cron.AddFunc(s.schedule, func() { s.runOnce(ctx) })
	if err != nil {
		return fmt.Errorf("scheduling prune: %w", err)
	}
	s.entryID = id

	s.cron.Start()
	s.running = true
	s.logger.Info("retention scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts scheduling and waits for an in-flight prune to finish.
// Stopping a scheduler that is not running is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()

	s.running = false
	s.logger.Info("retention scheduler stopped")
}

// IsRunning reports whether the scheduler is currently active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns when the next prune will fire, or the zero time if the
// scheduler is not running.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

func (s *Scheduler) runOnce(ctx context.Context) {
	result, err := s.pruner.Prune(ctx)
	if err != nil {
		s.logger.Error("scheduled prune failed", "error", err)
		return
	}
	if result.AgePruned == 0 && result.CountPruned == 0 {
		s.logger.Debug("scheduled prune found nothing to remove")
	}
}
