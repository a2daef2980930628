// Package metrics holds the Prometheus collectors shared by the HTTP layer
// and the file services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileshare_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fileshare_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileshare_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)
)

// File metrics, updated from the service layer
var (
	// FileOperationsTotal counts file operations by outcome ("ok" or an error kind).
	FileOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileshare_file_operations_total",
			Help: "Total number of file operations",
		},
		[]string{"operation", "result"},
	)

	UploadedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fileshare_uploaded_bytes_total",
			Help: "Total number of bytes accepted by uploads",
		},
	)

	ReconcileIssuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileshare_reconcile_issues_total",
			Help: "Issues found by storage reconciliation",
		},
		[]string{"type"},
	)

	ReconcileRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fileshare_reconcile_runs_total",
			Help: "Total number of reconciliation runs",
		},
	)
)
