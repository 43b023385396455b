// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_http_requests_total",
			Help: "Total HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wizard_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Draft persistence
	DraftOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_draft_operations_total",
			Help: "Draft store operations by kind and outcome",
		},
		[]string{"op", "result"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_cache_lookups_total",
			Help: "Redis cache lookups by cache and hit/miss",
		},
		[]string{"cache", "result"},
	)

	// Shopify
	ShopifyCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_shopify_calls_total",
			Help: "Calls to the Shopify API by endpoint and outcome",
		},
		[]string{"endpoint", "result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wizard_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)

	// Pricing
	QuotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_price_quotes_total",
			Help: "Price quotes resolved by capability and pricing type",
		},
		[]string{"capability", "pricing"},
	)

	// Background jobs
	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_jobs_processed_total",
			Help: "Background jobs processed by queue and outcome",
		},
		[]string{"queue", "result"},
	)
)

// Result labels shared by the counters above.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultNotFound = "not_found"
	ResultHit      = "hit"
	ResultMiss     = "miss"
	ResultDLQ      = "dlq"
)
