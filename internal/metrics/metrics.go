// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the activity pipeline:
// - Ingest gateway acceptance and rejection
// - NATS publish / consume / persist flow
// - Dead-letter traffic
// - DuckDB query performance
// - API endpoint latency and throughput

var (
	// Ingest Gateway Metrics
	IngestAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_events_accepted_total",
			Help: "Total number of raw activity events accepted by the gateway",
		},
		[]string{"source"}, // "single", "batch", "system"
	)

	IngestRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_events_rejected_total",
			Help: "Total number of raw activity events rejected before publish",
		},
		[]string{"reason"}, // "missing_session", "missing_type", "unknown_type", "oversized_batch"
	)

	IngestBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_batch_size",
			Help:    "Number of events in batch ingest requests",
			Buckets: []float64{1, 5, 10, 25, 50, 100},
		},
	)

	// Messaging Metrics
	EventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_events_published_total",
			Help: "Total number of activity events published to the stream",
		},
	)

	PublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_publish_failures_total",
			Help: "Total number of failed publish attempts (events dropped)",
		},
	)

	EventsConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_events_consumed_total",
			Help: "Total number of activity events delivered to the persister",
		},
	)

	EventsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_events_persisted_total",
			Help: "Total number of activity events committed to the store",
		},
	)

	PersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_persist_failures_total",
			Help: "Total number of persist attempts that failed and were retried",
		},
	)

	EventsDeadLettered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_events_dead_lettered_total",
			Help: "Total number of events routed to the dead-letter subject",
		},
	)

	EventsParseFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_events_parse_failed_total",
			Help: "Total number of stream messages that failed to deserialize",
		},
	)

	PersistDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "activity_persist_duration_seconds",
			Help:    "Duration of single-event persist operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	RecordsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_records_purged_total",
			Help: "Total number of activity records removed by retention purges",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordIngest records an accepted raw event by source.
func RecordIngest(source string) {
	IngestAccepted.WithLabelValues(source).Inc()
}

// RecordIngestRejection records an event rejected before publish.
func RecordIngestRejection(reason string) {
	IngestRejected.WithLabelValues(reason).Inc()
}

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordPersist records the outcome of a single persist attempt.
func RecordPersist(duration time.Duration, err error) {
	PersistDuration.Observe(duration.Seconds())
	if err != nil {
		PersistFailures.Inc()
	} else {
		EventsPersisted.Inc()
	}
}
