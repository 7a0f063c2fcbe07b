// Package metrics declares the process's Prometheus collectors. Exporting
// metrics is out of scope for the trace-ingestion core (spec §1), but the
// ambient-stack edge (a scrapeable /metrics endpoint) is carried over from
// the donor regardless, per the system's observability conventions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts every HTTP request the server answers, by
	// route template and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brokle_http_requests_total",
		Help: "Total HTTP requests handled, by route and status code.",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration observes handler latency by route template.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "brokle_http_request_duration_seconds",
		Help:    "HTTP handler latency in seconds, by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// WorkerTasksTotal counts transform-worker task outcomes.
	WorkerTasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brokle_worker_tasks_total",
		Help: "Transform worker task outcomes (acked, requeued, dead_lettered).",
	}, []string{"outcome"})

	// WorkerBatchRows observes how many rows land in a single ClickHouse
	// batch insert, by table.
	WorkerBatchRows = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "brokle_worker_batch_rows",
		Help:    "Row count per ClickHouse batch insert, by table.",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
	}, []string{"table"})
)
