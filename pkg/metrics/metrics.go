// Package metrics defines the Prometheus collectors of the indexer and the
// search service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector. Components treat a nil *Metrics as
// disabled.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	QueriesTotal  *prometheus.CounterVec
	QueryLatency  *prometheus.HistogramVec
	QueryResults  *prometheus.HistogramVec
	CacheRequests *prometheus.CounterVec

	DocumentsNormalized *prometheus.CounterVec
	NormalizationRuns   *prometheus.CounterVec
	ModelReloads        *prometheus.CounterVec
	LoadedDocuments     prometheus.Gauge
	LoadedTerms         prometheus.Gauge
	CircuitBreakerState *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New creates every collector and registers it with reg. Passing
// prometheus.NewRegistry() keeps tests isolated from the global registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsearch_queries_total",
				Help: "Queries by mode (boolean, vector) and outcome (ok, zero_result, malformed, unavailable, error).",
			},
			[]string{"mode", "outcome"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docsearch_query_latency_seconds",
				Help:    "Query latency in seconds by mode and cache status.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"mode", "cache"},
		),
		QueryResults: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docsearch_query_results",
				Help:    "Number of documents returned per query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"mode"},
		),
		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsearch_cache_requests_total",
				Help: "Query cache lookups by tier (local, redis) and result (hit, miss).",
			},
			[]string{"tier", "result"},
		),
		DocumentsNormalized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsearch_documents_normalized_total",
				Help: "Documents processed by the normalization run, by status.",
			},
			[]string{"status"},
		),
		NormalizationRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsearch_normalization_runs_total",
				Help: "Normalization runs by status.",
			},
			[]string{"status"},
		),
		ModelReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsearch_model_reloads_total",
				Help: "Engine rebuilds from the frequency store by trigger and status.",
			},
			[]string{"trigger", "status"},
		),
		LoadedDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsearch_loaded_documents",
				Help: "Documents in the currently served frequency store.",
			},
		),
		LoadedTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsearch_loaded_terms",
				Help: "Distinct tokens in the currently served frequency store.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.QueriesTotal,
		m.QueryLatency,
		m.QueryResults,
		m.CacheRequests,
		m.DocumentsNormalized,
		m.NormalizationRuns,
		m.ModelReloads,
		m.LoadedDocuments,
		m.LoadedTerms,
		m.CircuitBreakerState,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

// Handler returns the scrape handler for the registry the metrics were
// registered with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
