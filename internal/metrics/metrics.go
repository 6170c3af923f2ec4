// Package metrics holds the Prometheus collectors of the billiard services.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultRejected = "rejected"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billiard_http_requests_total",
			Help: "Total HTTP requests processed",
		},
		[]string{"method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billiard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billiard_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	// Session metrics
	SessionOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billiard_session_operations_total",
			Help: "Mutating session operations by kind and result",
		},
		[]string{"operation", "result"},
	)

	SessionCostTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billiard_session_cost_total",
			Help: "Sum of the total cost of saved sessions",
		},
	)

	// Cache metrics
	SummaryCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billiard_summary_cache_hits_total",
			Help: "Month summary cache hits",
		},
	)

	SummaryCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billiard_summary_cache_misses_total",
			Help: "Month summary cache misses",
		},
	)

	// Messaging metrics
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billiard_events_published_total",
			Help: "Session events published to AMQP",
		},
		[]string{"type", "result"},
	)

	EventsExported = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billiard_events_exported_total",
			Help: "Session events mirrored to the spreadsheet by the worker",
		},
		[]string{"type", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		RateLimited,
		SessionOperations,
		SessionCostTotal,
		SummaryCacheHits,
		SummaryCacheMisses,
		EventsPublished,
		EventsExported,
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Result maps an error to the result label.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
