// Package metrics provides Prometheus metrics for AlertDesk.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "alertdesk"
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestsInFlight tracks currently executing HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
)

// Search metrics
var (
	// SearchQueriesTotal counts successful queries against the alert index.
	SearchQueriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "queries_total",
			Help:      "Total successful alert index queries",
		},
	)

	// SearchErrorsTotal counts failed queries against the alert index.
	SearchErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "errors_total",
			Help:      "Total failed alert index queries",
		},
	)

	// SearchHitsSkippedTotal counts malformed documents dropped at the
	// mapping boundary.
	SearchHitsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "hits_skipped_total",
			Help:      "Total malformed alert documents skipped",
		},
	)
)

// Scheduler metrics
var (
	// SchedulerTicksTotal counts polling ticks by result.
	SchedulerTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Total polling ticks",
		},
		[]string{"result"},
	)

	// AlertsRegisteredTotal counts alerts newly registered by the poller.
	AlertsRegisteredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "alerts_registered_total",
			Help:      "Total alerts registered by the polling scheduler",
		},
	)

	// AlertsSkippedTotal counts alerts skipped by the poller, by reason.
	AlertsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "alerts_skipped_total",
			Help:      "Total alerts skipped by the polling scheduler",
		},
		[]string{"reason"},
	)
)

// Notifier metrics
var (
	// NotificationsTotal counts notification attempts by outcome.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "notifications_total",
			Help:      "Total notification delivery attempts",
		},
		[]string{"outcome"},
	)
)
