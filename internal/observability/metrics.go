package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quake_dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard and proxy.
type Metrics struct {
	// Outbound earthquake API calls.
	APIRequests        *prometheus.CounterVec   // labels: operation, outcome={success,error}
	APIRequestDuration *prometheus.HistogramVec // labels: operation

	StaleResponses *prometheus.CounterVec // labels: view
	Markers        *prometheus.GaugeVec   // labels: kind={user,epicenter}
	Advisories     *prometheus.CounterVec // labels: outcome={success,empty,error,skipped,disabled}
	SessionsActive prometheus.Gauge

	// USGS proxy upstream calls.
	USGSRequests *prometheus.CounterVec // labels: outcome
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.APIRequests,
		m.APIRequestDuration,
		m.StaleResponses,
		m.Markers,
		m.Advisories,
		m.SessionsActive,
		m.USGSRequests,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// build as many as they need.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Earthquake API requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		APIRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Earthquake API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		StaleResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_total",
			Help:      "Responses discarded because a newer request was issued for the same view.",
		}, []string{"view"}),
		Markers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "markers",
			Help:      "Map markers currently placed across all sessions, by kind.",
		}, []string{"kind"}),
		Advisories: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisories_total",
			Help:      "Advisory generation attempts by outcome.",
		}, []string{"outcome"}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Dashboard sessions currently held in memory.",
		}),
		USGSRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usgs_requests_total",
			Help:      "USGS event service requests by outcome.",
		}, []string{"outcome"}),
	}
}
