// Package retry executes fallible operations with bounded, backed-off
// retries.
//
// # Overview
//
// The executor wraps an arbitrary operation (any function from a context to
// a value and an error) and re-invokes it on transient failure:
//
//   - At most MaxRetries+1 total attempts per logical operation.
//   - Exponential backoff between attempts: BaseDelay scaled by
//     Multiplier^attempt, capped at MaxDelay, perturbed by a uniform jitter
//     of ±JitterFactor.
//   - Failures are classified before retrying: retryable HTTP status codes
//     (429 and the transient 5xx family by default) and transient transport
//     faults (timeouts, DNS failures, refused or lost connections). Anything
//     else propagates immediately.
//
// The executor never wraps errors: after exhaustion the most recent error is
// returned exactly as the operation produced it, so callers keep full
// diagnostic detail.
//
// # Cancellation
//
// The only suspension point is the sleep between attempts. Cancelling the
// context aborts the sleep and the whole retry loop with ctx.Err(). The
// executor imposes no timeout of its own — callers needing a deadline wrap
// the context.
//
// # Usage
//
//	exec, err := retry.NewExecutor(retry.DefaultPolicy(), nil)
//	if err != nil {
//		return err
//	}
//	resp, err := retry.Execute(ctx, exec, func(ctx context.Context) (*Response, error) {
//		return client.Generate(ctx, req)
//	})
package retry
