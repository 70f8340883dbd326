package core

import "github.com/prometheus/client_golang/prometheus"

// LatencyCategory classifies a command for latency recording (spec.md
// §4.4: "record latency under category {READ | WRITE | BATCH | SCAN |
// QUERY}").
type LatencyCategory string

const (
	LatencyRead  LatencyCategory = "read"
	LatencyWrite LatencyCategory = "write"
	LatencyBatch LatencyCategory = "batch"
	LatencyScan  LatencyCategory = "scan"
	LatencyQuery LatencyCategory = "query"
)

// Metrics is the command execution core's observability hook. It is never
// backed by a global registry — spec.md §1 explicitly keeps "metrics
// exporters" external, so a caller supplies its own prometheus.Registerer
// (or passes nil for NewMetrics, which uses an unregistered, private
// registry suitable for tests).
type Metrics struct {
	latency      *prometheus.HistogramVec
	nodeErrors   *prometheus.CounterVec
	nodeTimeouts *prometheus.CounterVec
	breakerTrips *prometheus.CounterVec // registered, but nothing in this package increments it
}

// NewMetrics builds a Metrics instance, registering its collectors with reg
// if non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aerospike_client",
			Name:      "command_latency_seconds",
			Help:      "Command latency by category.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
		}, []string{"category"}),
		nodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aerospike_client",
			Name:      "node_errors_total",
			Help:      "Errors observed per node.",
		}, []string{"node"}),
		nodeTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aerospike_client",
			Name:      "node_timeouts_total",
			Help:      "Timeouts observed per node.",
		}, []string{"node"}),
		breakerTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aerospike_client",
			Name:      "circuit_breaker_trips_total",
			Help:      "Circuit breaker open transitions per node.",
		}, []string{"node"}),
	}
	if reg != nil {
		reg.MustRegister(m.latency, m.nodeErrors, m.nodeTimeouts, m.breakerTrips)
	}
	return m
}

func (m *Metrics) observeLatency(cat LatencyCategory, seconds float64) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(string(cat)).Observe(seconds)
}

func (m *Metrics) incNodeError(node string) {
	if m == nil {
		return
	}
	m.nodeErrors.WithLabelValues(node).Inc()
}

func (m *Metrics) incNodeTimeout(node string) {
	if m == nil {
		return
	}
	m.nodeTimeouts.WithLabelValues(node).Inc()
}
