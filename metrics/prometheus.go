// Package metrics exposes Prometheus metrics for batch runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultNamespace = "leetcode_tracker"
	defaultSubsystem = "batch"
)

// Fetch outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeTransport = "transport"
	OutcomeProtocol  = "protocol"
	OutcomeDecode    = "decode"
	OutcomeFailed    = "failed"
)

// Manager owns the metrics of one process. A nil *Manager is valid and
// records nothing.
type Manager struct {
	namespace string
	subsystem string
	buckets   []float64
	registry  *prometheus.Registry

	fetches             *prometheus.CounterVec
	aggregations        *prometheus.CounterVec
	aggregationDuration prometheus.Histogram
	batchIdentities     prometheus.Gauge
	batchRecords        prometheus.Gauge
	batchFailures       prometheus.Gauge
	batchLastUnix       prometheus.Gauge
	batchDuration       prometheus.Gauge
}

// NewManager creates a Manager with its own registry unless WithRegistry is
// given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: defaultNamespace,
		subsystem: defaultSubsystem,
		buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.fetches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fetch_total",
		Help:      "Remote resource lookups by resource and outcome",
	}, []string{"resource", "outcome"})

	m.aggregations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "aggregation_total",
		Help:      "Per-user aggregations by outcome",
	}, []string{"outcome"})

	m.aggregationDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "aggregation_duration_seconds",
		Help:      "Wall time of one user's aggregation",
		Buckets:   m.buckets,
	})

	m.batchIdentities = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_identities",
		Help:      "Users requested in the last batch",
	})

	m.batchRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_records",
		Help:      "Records produced by the last batch",
	})

	m.batchFailures = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_failures",
		Help:      "Failures reported by the last batch",
	})

	m.batchLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_completed_unixtime",
		Help:      "Completion time of the last batch",
	})

	m.batchDuration = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_duration_seconds",
		Help:      "Wall time of the last batch",
	})
}

// RecordFetch counts one remote lookup.
func (m *Manager) RecordFetch(resource, outcome string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(resource, outcome).Inc()
}

// RecordAggregation counts one user's aggregation and its latency.
func (m *Manager) RecordAggregation(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.aggregations.WithLabelValues(outcome).Inc()
	m.aggregationDuration.Observe(d.Seconds())
}

// RecordBatch stores the shape of a finished batch.
func (m *Manager) RecordBatch(identities, records, failures int, d time.Duration, at time.Time) {
	if m == nil {
		return
	}
	m.batchIdentities.Set(float64(identities))
	m.batchRecords.Set(float64(records))
	m.batchFailures.Set(float64(failures))
	m.batchDuration.Set(d.Seconds())
	m.batchLastUnix.Set(float64(at.Unix()))
}

// Registry returns the registry the metrics live on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry over HTTP.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes all metrics to path in the node-exporter textfile
// format. The write is atomic.
func (m *Manager) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
