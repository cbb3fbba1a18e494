// Package metrics provides Prometheus metrics for stockwatcher.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "stockwatcher"
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

	// HTTPRequestsInFlight tracks concurrent HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
)

// Scheduler metrics
var (
	// TicksTotal counts completed evaluation ticks.
	TicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Total completed evaluation ticks",
		},
	)

	// TicksSkippedTotal counts ticks skipped because the previous tick
	// was still running.
	TicksSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "ticks_skipped_total",
			Help:      "Total ticks skipped due to an in-flight tick",
		},
	)

	// TickDuration tracks how long a full evaluation tick takes.
	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "tick_duration_seconds",
			Help:      "Evaluation tick duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// AlertsEvaluatedTotal counts individual alert evaluations.
	AlertsEvaluatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "alerts_evaluated_total",
			Help:      "Total alert evaluations performed",
		},
	)

	// AlertsFiredTotal counts alert firings by kind.
	AlertsFiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "alerts_fired_total",
			Help:      "Total alerts fired",
		},
		[]string{"kind"},
	)

	// AlertsMisconfiguredTotal counts alerts skipped as misconfigured.
	AlertsMisconfiguredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "alerts_misconfigured_total",
			Help:      "Total alerts skipped due to invalid configuration",
		},
	)

	// PersistErrorsTotal counts failures writing evaluation results.
	PersistErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "persist_errors_total",
			Help:      "Total failures persisting evaluation results",
		},
	)
)

// Price source metrics
var (
	// FetchesTotal counts price fetch requests by outcome.
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricesource",
			Name:      "fetches_total",
			Help:      "Total price fetch requests",
		},
		[]string{"outcome"},
	)

	// SymbolsUnavailableTotal counts symbols with no usable quote in a tick.
	SymbolsUnavailableTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricesource",
			Name:      "symbols_unavailable_total",
			Help:      "Total symbol quotes unavailable during evaluation",
		},
	)

	// FetchDuration tracks the latency of batched quote fetches.
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pricesource",
			Name:      "fetch_duration_seconds",
			Help:      "Quote fetch latency in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
)

// Notification metrics
var (
	// NotificationsSentTotal counts successfully dispatched notifications.
	NotificationsSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "sent_total",
			Help:      "Total notifications dispatched successfully",
		},
	)

	// NotificationErrorsTotal counts failed notification dispatches.
	NotificationErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "errors_total",
			Help:      "Total notification dispatch failures",
		},
	)

	// NotificationsRateLimitedTotal counts notifications dropped by the
	// rate limiter.
	NotificationsRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "rate_limited_total",
			Help:      "Total notifications dropped due to rate limiting",
		},
	)
)

// Auth metrics
var (
	// AuthLoginAttemptsTotal counts login attempts by result.
	AuthLoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Total login attempts",
		},
		[]string{"result"},
	)

	// AuthActiveTokens tracks issued, unexpired refresh tokens.
	AuthActiveTokens = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "active_refresh_tokens",
			Help:      "Number of active refresh tokens",
		},
	)
)
