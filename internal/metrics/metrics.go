// Package metrics defines Prometheus metrics for loglens.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loglens_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglens_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglens_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	RecordsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglens_records_ingested_total",
			Help: "Canonical records persisted, by detected format",
		},
		[]string{"format"},
	)

	ParseErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loglens_parse_errors_total",
			Help: "Lines that failed parsing and were stored as error records",
		},
	)

	IngestBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loglens_ingest_batch_size",
			Help:    "Framed units per ingest call",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "loglens_websocket_connections",
			Help: "Active WebSocket subscribers",
		},
	)

	BroadcastDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loglens_broadcast_dropped_total",
			Help: "Records dropped for slow subscribers",
		},
	)

	SlowConsumerEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loglens_slow_consumer_evictions_total",
			Help: "Subscribers evicted after exceeding the drop threshold",
		},
	)

	AnalyticsComputeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loglens_analytics_compute_seconds",
			Help:    "Analytics report compute duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	AnalyticsCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglens_analytics_cache_hits_total",
			Help: "Analytics cache lookups by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		RecordsIngested, ParseErrors, IngestBatchSize,
		WSConnections, BroadcastDropped, SlowConsumerEvictions,
		AnalyticsComputeDuration, AnalyticsCacheHits,
	)
}
