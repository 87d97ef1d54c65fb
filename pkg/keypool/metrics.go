package keypool

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "arclight"
	metricsSubsystem = "ballast"
)

// Metrics publishes pool health to Prometheus. All labels carry the pool
// name so several pools can share one registry.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	selections       *prometheus.CounterVec
	backpressure     *prometheus.CounterVec
	successes        *prometheus.CounterVec
	errors           *prometheus.CounterVec
	disables         *prometheus.CounterVec
	bytesUploaded    *prometheus.CounterVec
	uploadRejections *prometheus.CounterVec
	keys             *prometheus.GaugeVec
	uploadSlots      *prometheus.GaugeVec
}

// NewMetrics creates pool metrics registered against registry. A nil
// registry gets a private one, which keeps tests independent.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "keypool_selections_total",
			Help:      "Number of credential selections, by strategy.",
		}, []string{"pool", "strategy"}),
		backpressure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "keypool_backpressure_total",
			Help:      "Number of selection attempts that found no usable credential.",
		}, []string{"pool"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "keypool_successes_total",
			Help:      "Number of successful requests reported to the pool.",
		}, []string{"pool"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "keypool_errors_total",
			Help:      "Number of failed requests reported to the pool.",
		}, []string{"pool"}),
		disables: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "keypool_disables_total",
			Help:      "Number of credentials disabled after repeated errors.",
		}, []string{"pool"}),
		bytesUploaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "keypool_bytes_uploaded_total",
			Help:      "Total bytes reported as uploaded through the pool.",
		}, []string{"pool"}),
		uploadRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "keypool_upload_rejections_total",
			Help:      "Number of upload slot requests rejected at the concurrency cap.",
		}, []string{"pool"}),
		keys: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "keypool_keys",
			Help:      "Number of credentials in the pool, by health state.",
		}, []string{"pool", "state"}),
		uploadSlots: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "keypool_upload_slots_in_use",
			Help:      "Upload slots currently claimed.",
		}, []string{"pool"}),
	}

	registry.MustRegister(
		m.selections,
		m.backpressure,
		m.successes,
		m.errors,
		m.disables,
		m.bytesUploaded,
		m.uploadRejections,
		m.keys,
		m.uploadSlots,
	)
	return m
}

// RecordSelection counts a successful credential selection.
func (m *Metrics) RecordSelection(pool, strategy string) {
	if m == nil {
		return
	}
	m.selections.WithLabelValues(pool, strategy).Inc()
}

// RecordBackpressure counts a selection attempt that found nothing usable.
func (m *Metrics) RecordBackpressure(pool string) {
	if m == nil {
		return
	}
	m.backpressure.WithLabelValues(pool).Inc()
}

// RecordSuccess counts a reported success and its uploaded bytes.
func (m *Metrics) RecordSuccess(pool string, bytesUploaded int64) {
	if m == nil {
		return
	}
	m.successes.WithLabelValues(pool).Inc()
	if bytesUploaded > 0 {
		m.bytesUploaded.WithLabelValues(pool).Add(float64(bytesUploaded))
	}
}

// RecordError counts a reported error.
func (m *Metrics) RecordError(pool string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(pool).Inc()
}

// RecordDisable counts a credential crossing the disable threshold.
func (m *Metrics) RecordDisable(pool string) {
	if m == nil {
		return
	}
	m.disables.WithLabelValues(pool).Inc()
}

// RecordUploadRejection counts an upload slot request turned away.
func (m *Metrics) RecordUploadRejection(pool string) {
	if m == nil {
		return
	}
	m.uploadRejections.WithLabelValues(pool).Inc()
}

// UpdateKeyCounts publishes the healthy/disabled credential split.
func (m *Metrics) UpdateKeyCounts(pool string, healthy, disabled int) {
	if m == nil {
		return
	}
	m.keys.WithLabelValues(pool, "healthy").Set(float64(healthy))
	m.keys.WithLabelValues(pool, "disabled").Set(float64(disabled))
}

// UpdateUploadSlots publishes the upload slots currently in use.
func (m *Metrics) UpdateUploadSlots(pool string, inUse int) {
	if m == nil {
		return
	}
	m.uploadSlots.WithLabelValues(pool).Set(float64(inUse))
}
