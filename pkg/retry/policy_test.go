package retry

import (
	"strings"
	"testing"
	"time"
)

// ============================================================================
// Validation Tests
// ============================================================================

func TestPolicy_Validate_DefaultsAreValid(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Errorf("Expected default policy to validate, got %v", err)
	}
}

func TestPolicy_Validate_CollectsAllProblems(t *testing.T) {
	p := Policy{
		MaxRetries:   -1,
		BaseDelay:    2 * time.Second,
		MaxDelay:     time.Second, // below base delay
		Multiplier:   0.5,
		JitterFactor: 1.5,
	}

	err := p.Validate()
	if err == nil {
		t.Fatal("Expected validation error for invalid policy")
	}

	for _, fragment := range []string{"max retries", "max delay", "multiplier", "jitter factor"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("Expected validation error to mention %q, got %v", fragment, err)
		}
	}
}

// ============================================================================
// Delay Tests
// ============================================================================

func TestPolicy_Delay_ExponentialSequence(t *testing.T) {
	p := Policy{
		MaxRetries:   5,
		BaseDelay:    time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0,
	}

	expected := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second, // capped, 32s would exceed MaxDelay
	}

	for attempt, want := range expected {
		got := p.Delay(attempt)
		if got != want {
			t.Errorf("Expected delay %s for attempt %d, got %s", want, attempt, got)
		}
	}
}

func TestPolicy_Delay_NonDecreasingWithoutJitter(t *testing.T) {
	p := Policy{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   1.7,
		JitterFactor: 0,
	}

	prev := time.Duration(-1)
	for attempt := 0; attempt < 25; attempt++ {
		d := p.Delay(attempt)
		if d < prev {
			t.Errorf("Expected non-decreasing delays, attempt %d gave %s after %s", attempt, d, prev)
		}
		if d > p.MaxDelay {
			t.Errorf("Expected delay capped at %s, attempt %d gave %s", p.MaxDelay, attempt, d)
		}
		prev = d
	}
}

func TestPolicy_Delay_JitterStaysBounded(t *testing.T) {
	p := Policy{
		BaseDelay:    10 * time.Second,
		MaxDelay:     100 * time.Second,
		Multiplier:   1.0,
		JitterFactor: 0.5,
	}

	// With multiplier 1 the pre-jitter delay is always BaseDelay, so every
	// sample must land in [5s, 15s].
	low := 5 * time.Second
	high := 15 * time.Second

	for i := 0; i < 500; i++ {
		d := p.Delay(3)
		if d < low || d > high {
			t.Fatalf("Expected jittered delay in [%s, %s], got %s", low, high, d)
		}
	}
}

func TestPolicy_Delay_LargeAttemptDoesNotOverflow(t *testing.T) {
	p := Policy{
		BaseDelay:    time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   10.0,
		JitterFactor: 0,
	}

	for _, attempt := range []int{31, 100, 1 << 20} {
		if got := p.Delay(attempt); got != p.MaxDelay {
			t.Errorf("Expected capped delay %s for attempt %d, got %s", p.MaxDelay, attempt, got)
		}
	}

	if got := p.Delay(-5); got != p.BaseDelay {
		t.Errorf("Expected negative attempt to behave like attempt 0, got %s", got)
	}
}

// ============================================================================
// Status Classification Tests
// ============================================================================

func TestPolicy_ShouldRetryStatus_Defaults(t *testing.T) {
	p := DefaultPolicy()

	for _, code := range []int{429, 500, 502, 503, 504} {
		if !p.ShouldRetryStatus(code) {
			t.Errorf("Expected status %d to be retryable by default", code)
		}
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404, 501} {
		if p.ShouldRetryStatus(code) {
			t.Errorf("Expected status %d to not be retryable", code)
		}
	}
}

func TestPolicy_ShouldRetryStatus_CustomSet(t *testing.T) {
	p := Policy{
		MaxDelay:             time.Second,
		Multiplier:           1.0,
		RetryableStatusCodes: map[int]bool{418: true},
	}

	if !p.ShouldRetryStatus(418) {
		t.Error("Expected custom status 418 to be retryable")
	}
	if p.ShouldRetryStatus(429) {
		t.Error("Expected default statuses to be replaced by the custom set")
	}
}
