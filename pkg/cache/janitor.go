package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultJanitorSchedule prunes expired entries every five minutes.
const DefaultJanitorSchedule = "*/5 * * * *"

// Janitor periodically prunes expired entries from a cache. Lazy expiry in
// Get keeps reads correct on its own; the janitor exists so idle caches give
// memory back without waiting for the next lookup.
type Janitor struct {
	cache    *ResponseCache
	schedule string
	logger   *slog.Logger

	cron    *cron.Cron
	entryID cron.EntryID

	mu      sync.Mutex
	running bool
}

// NewJanitor creates a janitor for cache using a standard cron expression
// (descriptors such as "@every 10m" also work). An empty schedule selects
// DefaultJanitorSchedule. The schedule is validated here so a bad expression
// fails at construction rather than at Start.
func NewJanitor(cache *ResponseCache, schedule string, logger *slog.Logger) (*Janitor, error) {
	if cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if schedule == "" {
		schedule = DefaultJanitorSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = slog.Default().With("component", "cache-janitor", "cache", cache.Name())
	}

	return &Janitor{
		cache:    cache,
		schedule: schedule,
		logger:   logger,
	}, nil
}

// Start begins scheduled pruning. It returns immediately; pruning runs on
// the cron goroutine. Cancelling ctx stops the janitor.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return fmt.Errorf("janitor already running")
	}

	j.cron = cron.New()
	id, err := j.cron.AddFunc(j.schedule, j.runOnce)
	if err != nil {
		return fmt.Errorf("scheduling janitor: %w", err)
	}
	j.entryID = id

	j.cron.Start()
	j.running = true
	j.logger.Info("cache janitor started", "schedule", j.schedule)

	go func() {
		<-ctx.Done()
		j.Stop()
	}()

	return nil
}

// Stop halts scheduled pruning and waits for an in-flight prune to finish.
// Stopping a janitor that is not running is a no-op.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return
	}

	stopCtx := j.cron.Stop()
	<-stopCtx.Done()

	j.running = false
	j.logger.Info("cache janitor stopped")
}

// IsRunning reports whether the janitor is currently scheduled.
func (j *Janitor) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// NextRun returns when the next prune will fire, or the zero time if the
// janitor is not running.
func (j *Janitor) NextRun() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return time.Time{}
	}
	return j.cron.Entry(j.entryID).Next
}

func (j *Janitor) runOnce() {
	pruned := j.cache.PruneExpired()
	if pruned > 0 {
		j.logger.Debug("pruned expired cache entries", "count", pruned)
	}
}
