package main

import (
	"strings"
	"testing"
	"time"

	"arclight-ai/ballast/pkg/retry"
)

func TestPercentile(t *testing.T) {
	sorted := make([]time.Duration, 100)
	for i := range sorted {
		sorted[i] = time.Duration(i+1) * time.Millisecond
	}

	tests := []struct {
		p    float64
		want time.Duration
	}{
		{0.50, 51 * time.Millisecond},
		{0.95, 96 * time.Millisecond},
		{0.99, 100 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := percentile(sorted, tt.p); got != tt.want {
			t.Errorf("percentile(%.2f) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestPercentileEmpty(t *testing.T) {
	if got := percentile(nil, 0.95); got != 0 {
		t.Errorf("percentile(nil) = %v, want 0", got)
	}
}

func TestFillLatencyPercentiles(t *testing.T) {
	report := &benchReport{}
	latencies := []time.Duration{
		30 * time.Millisecond,
		10 * time.Millisecond,
		20 * time.Millisecond,
	}

	fillLatencyPercentiles(report, latencies)

	if report.LatencyMin != 10*time.Millisecond {
		t.Errorf("LatencyMin = %v, want 10ms", report.LatencyMin)
	}
	if report.LatencyMax != 30*time.Millisecond {
		t.Errorf("LatencyMax = %v, want 30ms", report.LatencyMax)
	}
	if report.LatencyMean != 20*time.Millisecond {
		t.Errorf("LatencyMean = %v, want 20ms", report.LatencyMean)
	}
	if report.LatencyMedian != 20*time.Millisecond {
		t.Errorf("LatencyMedian = %v, want 20ms", report.LatencyMedian)
	}
}

func TestFillLatencyPercentilesEmpty(t *testing.T) {
	report := &benchReport{}
	fillLatencyPercentiles(report, nil)

	if report.LatencyMax != 0 {
		t.Errorf("LatencyMax = %v, want 0 for no samples", report.LatencyMax)
	}
}

func TestBenchErrorIsRetryable(t *testing.T) {
	// The injected fault must look like a transient upstream status to the
	// default retry policy, or the bench exercises nothing.
	err := &benchError{code: 503}

	if !strings.Contains(err.Error(), "503") {
		t.Errorf("Error() = %q, want the status code included", err.Error())
	}
	if err.StatusCode() != 503 {
		t.Errorf("StatusCode() = %d, want 503", err.StatusCode())
	}

	policy := retry.DefaultPolicy()
	if !policy.ShouldRetryError(err) {
		t.Error("default policy should retry the injected 503 fault")
	}
}
