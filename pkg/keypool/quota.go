package keypool

import (
	"fmt"
	"strings"
	"time"
)

// Quota window durations are fixed; limits configure how much fits in them.
const (
	minuteWindow = time.Minute
	hourWindow   = time.Hour
)

// QuotaPolicy bounds how heavily each credential may be used. A zero value
// for any field means that dimension is unlimited. A QuotaPolicy is
// immutable once attached to a pool.
type QuotaPolicy struct {
	// RequestsPerMinute caps successful requests per credential within a
	// fixed one-minute window.
	RequestsPerMinute int

	// RequestsPerHour caps successful requests per credential within a
	// fixed one-hour window.
	RequestsPerHour int

	// BytesPerMinute caps uploaded bytes per credential within the same
	// one-minute window as RequestsPerMinute.
	BytesPerMinute int64

	// MaxConcurrentUploads caps in-flight uploads across the whole pool.
	MaxConcurrentUploads int
}

// Validate checks the policy for negative limits. All problems are reported
// in one message.
func (q QuotaPolicy) Validate() error {
	var problems []string

	if q.RequestsPerMinute < 0 {
		problems = append(problems, fmt.Sprintf("requests per minute must not be negative, got %d", q.RequestsPerMinute))
	}
	if q.RequestsPerHour < 0 {
		problems = append(problems, fmt.Sprintf("requests per hour must not be negative, got %d", q.RequestsPerHour))
	}
	if q.BytesPerMinute < 0 {
		problems = append(problems, fmt.Sprintf("bytes per minute must not be negative, got %d", q.BytesPerMinute))
	}
	if q.MaxConcurrentUploads < 0 {
		problems = append(problems, fmt.Sprintf("max concurrent uploads must not be negative, got %d", q.MaxConcurrentUploads))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid quota policy: %s", strings.Join(problems, "; "))
	}
	return nil
}

// usageWindow is a fixed counting window. The window starts on first use and
// resets lazily: any touch after the window duration elapses zeroes the
// counters and starts a new window at the touch time.
type usageWindow struct {
	start    time.Time
	requests int
	bytes    int64
}

// resetIfElapsed starts a fresh window if the current one has run out.
// Caller must hold the pool lock.
func (w *usageWindow) resetIfElapsed(now time.Time, d time.Duration) {
	if w.start.IsZero() || now.Sub(w.start) >= d {
		w.start = now
		w.requests = 0
		w.bytes = 0
	}
}

// resetsAt returns when this window rolls over. Only meaningful for a
// window that has started.
func (w *usageWindow) resetsAt(d time.Duration) time.Time {
	return w.start.Add(d)
}

// clear forgets the window entirely, as if it had never been used.
func (w *usageWindow) clear() {
	w.start = time.Time{}
	w.requests = 0
	w.bytes = 0
}
