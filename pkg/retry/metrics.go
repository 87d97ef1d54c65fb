package retry

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "arclight"
	metricsSubsystem = "ballast"
)

// Metrics tracks executor outcomes in Prometheus collectors.
//
// All recording methods are nil-receiver safe, so wiring metrics into an
// Executor is optional.
type Metrics struct {
	// operationsTotal counts finished operations by final result.
	operationsTotal *prometheus.CounterVec

	// retriesTotal counts individual retry sleeps.
	retriesTotal prometheus.Counter

	// attempts observes how many invocations each operation needed.
	attempts prometheus.Histogram
}

// NewMetrics creates and registers executor metrics with the provided
// registry. If registry is nil, a fresh private registry is used.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "retry_operations_total",
				Help:      "Total number of executed operations by final result",
			},
			[]string{"result"},
		),

		retriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "retry_retries_total",
				Help:      "Total number of retry attempts performed",
			},
		),

		attempts: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "retry_attempts_per_operation",
				Help:      "Number of invocations needed per operation",
				Buckets:   []float64{1, 2, 3, 4, 5, 8, 13},
			},
		),
	}

	registry.MustRegister(
		m.operationsTotal,
		m.retriesTotal,
		m.attempts,
	)

	return m
}

// RecordOperation records a finished operation and its attempt count.
func (m *Metrics) RecordOperation(result string, attempts int) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(result).Inc()
	m.attempts.Observe(float64(attempts))
}

// RecordRetry records one retry sleep.
func (m *Metrics) RecordRetry() {
	if m == nil {
		return
	}
	m.retriesTotal.Inc()
}
