// Package metrics exposes Prometheus instrumentation for the scoring
// pipeline and the HTTP surface.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TransactionsProcessed counts transactions that completed the scoring
	// pipeline, labeled by outcome risk level.
	TransactionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finguard",
			Subsystem: "pipeline",
			Name:      "transactions_processed_total",
			Help:      "Total transactions scored by the pipeline",
		},
		[]string{"tenant_id", "risk_level"},
	)

	// ValidationFailures counts raw transactions rejected by ingestion.
	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finguard",
			Subsystem: "pipeline",
			Name:      "validation_failures_total",
			Help:      "Total raw transactions rejected during validation",
		},
		[]string{"tenant_id"},
	)

	// Investigations counts forensic assessments by how they were produced:
	// model, fallback, skipped, or cache.
	Investigations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finguard",
			Subsystem: "pipeline",
			Name:      "investigations_total",
			Help:      "Total forensic assessments by source",
		},
		[]string{"source"},
	)

	// AlertsFlagged counts alerts that crossed the review threshold.
	AlertsFlagged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finguard",
			Subsystem: "pipeline",
			Name:      "alerts_flagged_total",
			Help:      "Total alerts flagged for review",
		},
		[]string{"tenant_id"},
	)

	// PipelineDuration tracks end-to-end scoring latency.
	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "finguard",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "End-to-end transaction scoring duration",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// HTTPRequestDuration tracks API request latency by route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finguard",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

// Handler returns the Prometheus scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
