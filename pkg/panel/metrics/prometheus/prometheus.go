package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements panel.Metrics using Prometheus.
type Metrics struct {
	fetchesTotal     *prometheus.CounterVec
	fetchDuration    *prometheus.HistogramVec
	cacheHitsTotal   prometheus.Counter
	cacheMissesTotal prometheus.Counter
	inflightJoins    prometheus.Counter
	gateWaitDuration prometheus.Histogram
}

// NewMetrics creates a new Prometheus metrics implementation.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		fetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_fetches_total",
			Help:      "Total number of upstream quota fetches by classified outcome.",
		}, []string{"outcome"}),

		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quota_fetch_duration_seconds",
			Help:      "Latency of upstream quota fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),

		cacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_cache_hits_total",
			Help:      "Total number of quota cache hits.",
		}),

		cacheMissesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_cache_misses_total",
			Help:      "Total number of quota cache misses.",
		}),

		inflightJoins: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_inflight_joins_total",
			Help:      "Total number of callers joining an in-progress fetch.",
		}),

		gateWaitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quota_gate_wait_seconds",
			Help:      "Time spent waiting for a concurrency gate slot.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) RecordFetch(outcome string, duration time.Duration) {
	m.fetchesTotal.WithLabelValues(outcome).Inc()
	m.fetchDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *Metrics) RecordCacheHit() {
	m.cacheHitsTotal.Inc()
}

func (m *Metrics) RecordCacheMiss() {
	m.cacheMissesTotal.Inc()
}

func (m *Metrics) RecordInflightJoin() {
	m.inflightJoins.Inc()
}

func (m *Metrics) RecordGateWait(duration time.Duration) {
	m.gateWaitDuration.Observe(duration.Seconds())
}

// DefaultMetrics returns a Metrics implementation using the default Prometheus registerer.
func DefaultMetrics(namespace string) *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer, namespace)
}
