package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "arclight"
	metricsSubsystem = "ballast"
)

// Metrics publishes cache health to Prometheus. All labels carry the cache
// name so several caches can share one registry.
//
// A nil *Metrics is valid and records nothing, so wiring metrics stays
// optional.
type Metrics struct {
	hits                  *prometheus.CounterVec
	misses                *prometheus.CounterVec
	evictions             *prometheus.CounterVec
	expirations           *prometheus.CounterVec
	oversizeDrops         *prometheus.CounterVec
	serializationFailures *prometheus.CounterVec
	entries               *prometheus.GaugeVec
	sizeBytes             *prometheus.GaugeVec
}

// NewMetrics creates cache metrics registered against registry. A nil
// registry gets a private one, which keeps tests independent.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "cache_hits_total",
			Help:      "Number of cache lookups served from a live entry.",
		}, []string{"cache"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "cache_misses_total",
			Help:      "Number of cache lookups that found no usable entry.",
		}, []string{"cache"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "cache_evictions_total",
			Help:      "Number of entries evicted to make room for new ones.",
		}, []string{"cache"}),
		expirations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "cache_expirations_total",
			Help:      "Number of entries removed because their TTL elapsed.",
		}, []string{"cache"}),
		oversizeDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "cache_oversize_drops_total",
			Help:      "Number of responses not cached because they exceeded the size limit.",
		}, []string{"cache"}),
		serializationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "cache_serialization_failures_total",
			Help:      "Number of values that could not be encoded or decoded.",
		}, []string{"cache"}),
		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "cache_entries",
			Help:      "Current number of live cache entries.",
		}, []string{"cache"}),
		sizeBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "cache_size_bytes",
			Help:      "Summed serialized size of live cache entries.",
		}, []string{"cache"}),
	}

	registry.MustRegister(
		m.hits,
		m.misses,
		m.evictions,
		m.expirations,
		m.oversizeDrops,
		m.serializationFailures,
		m.entries,
		m.sizeBytes,
	)
	return m
}

// RecordHit counts a lookup served from cache.
func (m *Metrics) RecordHit(cache string) {
	if m == nil {
		return
	}
	m.hits.WithLabelValues(cache).Inc()
}

// RecordMiss counts a lookup that found nothing usable.
func (m *Metrics) RecordMiss(cache string) {
	if m == nil {
		return
	}
	m.misses.WithLabelValues(cache).Inc()
}

// RecordEviction counts an entry displaced by capacity pressure.
func (m *Metrics) RecordEviction(cache string) {
	if m == nil {
		return
	}
	m.evictions.WithLabelValues(cache).Inc()
}

// RecordExpiration counts an entry removed after its TTL elapsed.
func (m *Metrics) RecordExpiration(cache string) {
	if m == nil {
		return
	}
	m.expirations.WithLabelValues(cache).Inc()
}

// RecordOversizeDrop counts a response rejected for exceeding the size limit.
func (m *Metrics) RecordOversizeDrop(cache string) {
	if m == nil {
		return
	}
	m.oversizeDrops.WithLabelValues(cache).Inc()
}

// RecordSerializationFailure counts a value that failed to encode or decode.
func (m *Metrics) RecordSerializationFailure(cache string) {
	if m == nil {
		return
	}
	m.serializationFailures.WithLabelValues(cache).Inc()
}

// UpdateOccupancy publishes the current entry count and total size.
func (m *Metrics) UpdateOccupancy(cache string, count int, sizeBytes int64) {
	if m == nil {
		return
	}
	m.entries.WithLabelValues(cache).Set(float64(count))
	m.sizeBytes.WithLabelValues(cache).Set(float64(sizeBytes))
}
