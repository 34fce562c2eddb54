// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

// Package metrics provides Prometheus instrumentation for the sync engine,
// exclusion engine, query layer, upstream clients, and the preview prober.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync Metrics
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_sync_runs_total",
			Help: "Total sync runs by mode and outcome",
		},
		[]string{"mode", "outcome"}, // mode: full|incremental|single; outcome: success|failure|aborted
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curator_sync_duration_seconds",
			Help:    "Duration of sync runs in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"mode"},
	)

	SyncEntitiesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_sync_entities_processed_total",
			Help: "Entities processed by sync batches",
		},
		[]string{"instance", "kind"},
	)

	SyncSoftDeletes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_sync_soft_deletes_total",
			Help: "Entities soft-deleted by the reconciliation pass",
		},
		[]string{"instance", "kind"},
	)

	SyncMerges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curator_sync_scene_merges_total",
			Help: "Scene merges detected via perceptual hash during cleanup",
		},
	)

	SyncInvalidIDs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_sync_invalid_ids_total",
			Help: "Rows dropped by id validation",
		},
		[]string{"kind"},
	)

	SyncInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "curator_sync_in_progress",
			Help: "1 while a sync run is active",
		},
	)

	// Derivation Metrics
	DerivationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curator_derivation_duration_seconds",
			Help:    "Duration of post-sync derivation passes",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"pass"},
	)

	// Exclusion Metrics
	ExclusionRecomputes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_exclusion_recomputes_total",
			Help: "Per-user exclusion recomputes by outcome",
		},
		[]string{"outcome"},
	)

	ExclusionRecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "curator_exclusion_recompute_duration_seconds",
			Help:    "Duration of one user's exclusion recompute",
			Buckets: []float64{0.05, 0.25, 1, 5, 15, 60},
		},
	)

	ExclusionRowCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "curator_exclusion_rows",
			Help: "Exclusion rows materialized in the last swap, per user",
		},
		[]string{"user"},
	)

	// Query Metrics
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curator_query_duration_seconds",
			Help:    "Duration of list queries by kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	QueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_query_errors_total",
			Help: "List query failures by kind",
		},
		[]string{"kind"},
	)

	// Upstream Metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_upstream_requests_total",
			Help: "Upstream GraphQL requests by instance and outcome",
		},
		[]string{"instance", "outcome"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "curator_upstream_breaker_state",
			Help: "Upstream circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"instance"},
	)

	// Prober Metrics
	ProberClassifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_prober_classifications_total",
			Help: "Preview prober classifications by result",
		},
		[]string{"result"}, // generated|placeholder|error
	)

	// HTTP Metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_http_requests_total",
			Help: "HTTP requests by method, route pattern, and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curator_http_request_duration_seconds",
			Help:    "HTTP request duration by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "curator_http_active_requests",
			Help: "HTTP requests currently being served",
		},
	)
)

// RecordSyncRun records one finished sync run.
func RecordSyncRun(mode, outcome string, duration time.Duration) {
	SyncRuns.WithLabelValues(mode, outcome).Inc()
	SyncDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordQuery records one list query.
func RecordQuery(kind string, duration time.Duration, err error) {
	QueryDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err != nil {
		QueryErrors.WithLabelValues(kind).Inc()
	}
}

// RecordHTTPRequest records one served HTTP request. route is the router
// pattern, not the raw path, to keep label cardinality bounded.
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(active bool) {
	if active {
		HTTPActiveRequests.Inc()
	} else {
		HTTPActiveRequests.Dec()
	}
}
