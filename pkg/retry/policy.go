package retry

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// maxBackoffExponent caps the exponent used in delay calculation to prevent
// float overflow for pathological attempt numbers.
const maxBackoffExponent = 30

// Policy controls how many times an operation is attempted and how long the
// executor sleeps between attempts. A Policy is immutable once attached to
// an Executor.
type Policy struct {
	// MaxRetries is the number of retries after the initial attempt.
	// Total attempts = MaxRetries + 1. Must be >= 0.
	MaxRetries int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the computed delay. Must be >= BaseDelay.
	MaxDelay time.Duration

	// Multiplier is the exponential growth factor. Must be >= 1.0.
	Multiplier float64

	// JitterFactor perturbs each delay by a uniform random fraction in
	// [-JitterFactor, +JitterFactor] of the delay. Must be in [0, 1].
	JitterFactor float64

	// RetryableStatusCodes is the set of HTTP status codes considered
	// transient. Nil selects the defaults: 429, 500, 502, 503, 504.
	RetryableStatusCodes map[int]bool

	// RetryOnNetworkError enables retrying classified transport faults
	// (timeouts, DNS failures, refused or lost connections).
	RetryOnNetworkError bool
}

// DefaultPolicy returns the policy used when callers have no special
// requirements: 3 retries, 1s base delay doubling up to 30s, 25% jitter,
// network errors retryable.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:           3,
		BaseDelay:            time.Second,
		MaxDelay:             30 * time.Second,
		Multiplier:           2.0,
		JitterFactor:         0.25,
		RetryableStatusCodes: defaultRetryableStatusCodes(),
		RetryOnNetworkError:  true,
	}
}

func defaultRetryableStatusCodes() map[int]bool {
	return map[int]bool{
		429: true,
		500: true,
		502: true,
		503: true,
		504: true,
	}
}

// Validate checks the policy invariants and reports every violation in a
// single error so misconfigurations surface all at once.
func (p Policy) Validate() error {
	var problems []string

	if p.MaxRetries < 0 {
		problems = append(problems, fmt.Sprintf("max retries must be >= 0, got %d", p.MaxRetries))
	}
	if p.BaseDelay < 0 {
		problems = append(problems, fmt.Sprintf("base delay must be >= 0, got %s", p.BaseDelay))
	}
	if p.MaxDelay < p.BaseDelay {
		problems = append(problems, fmt.Sprintf("max delay %s must be >= base delay %s", p.MaxDelay, p.BaseDelay))
	}
	if p.Multiplier < 1.0 {
		problems = append(problems, fmt.Sprintf("multiplier must be >= 1.0, got %g", p.Multiplier))
	}
	if p.JitterFactor < 0 || p.JitterFactor > 1 {
		problems = append(problems, fmt.Sprintf("jitter factor must be in [0, 1], got %g", p.JitterFactor))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid retry policy: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Delay returns the sleep duration before the retry following attempt n
// (0-based): BaseDelay * Multiplier^n, capped at MaxDelay, then perturbed
// by jitter and floored at zero.
//
// With JitterFactor = 0 this is exact capped exponential backoff, so the
// sequence of delays is deterministic and non-decreasing.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxBackoffExponent {
		attempt = maxBackoffExponent
	}

	delay := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if delay < 0 || delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	if p.JitterFactor > 0 {
		// Uniform in [-1, 1).
		perturbation := delay * p.JitterFactor * (rand.Float64()*2 - 1)
		delay += perturbation
	}

	if delay < 0 {
		return 0
	}
	return time.Duration(delay)
}

// ShouldRetryStatus reports whether an HTTP status code is transient under
// this policy.
func (p Policy) ShouldRetryStatus(code int) bool {
	if p.RetryableStatusCodes == nil {
		return defaultRetryableStatusCodes()[code]
	}
	return p.RetryableStatusCodes[code]
}

// ShouldRetryError reports whether err is worth retrying. Two independent
// checks apply, either of which qualifies the error:
//
//   - RetryOnNetworkError is set and err is a classified transient
//     transport fault.
//   - err exposes an HTTP status code (a StatusCode() int method anywhere
//     in its chain) that ShouldRetryStatus accepts.
func (p Policy) ShouldRetryError(err error) bool {
	if err == nil {
		return false
	}

	if p.RetryOnNetworkError && IsTransportFault(err) {
		return true
	}

	if code, ok := statusCode(err); ok {
		return p.ShouldRetryStatus(code)
	}

	return false
}
