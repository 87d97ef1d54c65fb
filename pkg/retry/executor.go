package retry

import (
	"context"
	"log/slog"
	"time"
)

// Operation is the unit of work the executor runs: any function from a
// context to a value and an error.
type Operation[T any] func(ctx context.Context) (T, error)

// Result reports the outcome of ExecuteWithResult, including how many times
// the operation was actually invoked.
type Result[T any] struct {
	// Value is the operation's return value when Err is nil.
	Value T

	// Err is the final error: nil on success, the last operation error
	// unmodified after exhaustion or a non-retryable failure, or the
	// context error when the caller cancelled mid-loop.
	Err error

	// Attempts is the number of invocations performed.
	Attempts int
}

// Succeeded reports whether the operation eventually completed.
func (r Result[T]) Succeeded() bool {
	return r.Err == nil
}

// Executor retries operations according to a validated Policy.
//
// # Thread Safety
//
// An Executor holds no mutable state, so a single instance can serve any
// number of concurrent Execute calls.
type Executor struct {
	policy  Policy
	logger  *slog.Logger
	metrics *Metrics

	// sleep is the inter-attempt delay function. Swappable in tests so
	// backoff behavior can be asserted without real waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an executor for the given policy. The policy is
// validated up front; an invalid policy is a configuration bug and is
// rejected rather than silently corrected. logger and metrics may be nil.
func NewExecutor(policy Policy, logger *slog.Logger, metrics *Metrics) (*Executor, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default().With("component", "retry")
	}

	return &Executor{
		policy:  policy,
		logger:  logger,
		metrics: metrics,
		sleep:   sleepContext,
	}, nil
}

// Policy returns the executor's policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Execute runs op with retries and returns its value or final error. The
// error is exactly what the operation returned — never wrapped — except
// when the context is cancelled mid-loop, in which case ctx.Err() is
// returned.
func Execute[T any](ctx context.Context, e *Executor, op Operation[T]) (T, error) {
	res := ExecuteWithResult(ctx, e, op)
	return res.Value, res.Err
}

// ExecuteWithResult runs op with retries and reports the outcome together
// with the attempt count. It never panics and never wraps the operation's
// error.
func ExecuteWithResult[T any](ctx context.Context, e *Executor, op Operation[T]) Result[T] {
	var zero T
	var lastErr error
	attempts := 0
	maxAttempts := e.policy.MaxRetries + 1

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			e.record("cancelled", attempts)
			return Result[T]{Value: zero, Err: err, Attempts: attempts}
		}

		value, err := op(ctx)
		attempts++
		if err == nil {
			e.record("success", attempts)
			return Result[T]{Value: value, Attempts: attempts}
		}
		lastErr = err

		if attempt == maxAttempts-1 {
			e.logger.Debug("retry budget exhausted",
				"attempts", attempts,
				"error", err,
			)
			break
		}
		if !e.policy.ShouldRetryError(err) {
			e.logger.Debug("failure not retryable",
				"attempts", attempts,
				"error", err,
			)
			break
		}

		delay := e.policy.Delay(attempt)
		e.logger.Debug("retrying after transient failure",
			"attempt", attempts,
			"delay", delay,
			"error", err,
		)
		e.metrics.RecordRetry()

		if err := e.sleep(ctx, delay); err != nil {
			e.record("cancelled", attempts)
			return Result[T]{Value: zero, Err: err, Attempts: attempts}
		}
	}

	e.record("failure", attempts)
	return Result[T]{Value: zero, Err: lastErr, Attempts: attempts}
}

func (e *Executor) record(result string, attempts int) {
	e.metrics.RecordOperation(result, attempts)
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
