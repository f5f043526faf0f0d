// Package metrics adapts the teacher's internal metrics.Provider abstraction
// (counter/gauge/histogram behind a noop-capable interface) to the concrete
// counters AERIS's scheduled tasks and HTTP surface emit, backed by
// prometheus/client_golang.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every counter/histogram AERIS components record against.
// It is constructed once per process and injected into engines.
type Registry struct {
	IngestionRowsTotal   *prometheus.CounterVec
	IngestionErrorsTotal *prometheus.CounterVec
	UPESRunDuration      prometheus.Histogram
	UPESRunsTotal        *prometheus.CounterVec
	RouteQueriesTotal    *prometheus.CounterVec
	RouteQueryDuration   prometheus.Histogram
	AlertsTriggeredTotal *prometheus.CounterVec
	WebhookAttemptsTotal *prometheus.CounterVec
}

// New constructs a Registry and registers its collectors with reg. Passing a
// fresh prometheus.NewRegistry() in tests avoids colliding with the global
// default registry.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		IngestionRowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aeris", Subsystem: "ingestion", Name: "rows_total",
			Help: "Grid cell rows inserted per ingestion run, by gas.",
		}, []string{"gas"}),
		IngestionErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aeris", Subsystem: "ingestion", Name: "errors_total",
			Help: "Per-gas ingestion failures, by gas and error kind.",
		}, []string{"gas", "kind"}),
		UPESRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aeris", Subsystem: "upes", Name: "run_duration_seconds",
			Help: "Wall-clock duration of one UPES scoring run.",
			Buckets: prometheus.DefBuckets,
		}),
		UPESRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aeris", Subsystem: "upes", Name: "runs_total",
			Help: "UPES scoring runs, by outcome.",
		}, []string{"outcome"}),
		RouteQueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aeris", Subsystem: "routing", Name: "queries_total",
			Help: "Pollution-aware route queries, by mode and outcome.",
		}, []string{"mode", "outcome"}),
		RouteQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aeris", Subsystem: "routing", Name: "query_duration_seconds",
			Help: "Wall-clock duration of one route query, including graph build.",
			Buckets: prometheus.DefBuckets,
		}),
		AlertsTriggeredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aeris", Subsystem: "alerts", Name: "triggered_total",
			Help: "Alerts emitted, by alert type.",
		}, []string{"alert_type"}),
		WebhookAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aeris", Subsystem: "alerts", Name: "webhook_attempts_total",
			Help: "Outbound webhook dispatch attempts, by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		r.IngestionRowsTotal, r.IngestionErrorsTotal,
		r.UPESRunDuration, r.UPESRunsTotal,
		r.RouteQueriesTotal, r.RouteQueryDuration,
		r.AlertsTriggeredTotal, r.WebhookAttemptsTotal,
	)
	return r
}
