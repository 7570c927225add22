// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	// Voting Metrics
	VotesCast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milkat_votes_cast_total",
			Help: "Votes recorded in the ledger, including overwrites",
		},
		[]string{"session", "vote"},
	)

	VotingClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milkat_voting_closed_total",
			Help: "Voting rounds closed, by reason",
		},
		[]string{"reason"},
	)

	DevelopersSelected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "milkat_developers_selected_total",
			Help: "Developer selections recorded",
		},
	)

	// Scheduler Metrics
	SchedulerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milkat_scheduler_runs_total",
			Help: "Voting scheduler passes, by cadence",
		},
		[]string{"cadence"},
	)

	SchedulerRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "milkat_scheduler_run_duration_seconds",
			Help:    "Duration of one scheduler pass",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"cadence"},
	)

	SchedulerEvaluationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milkat_scheduler_evaluation_errors_total",
			Help: "Per-project evaluation failures, including timeouts and panics",
		},
		[]string{"cadence"},
	)

	RemindersSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "milkat_voting_reminders_sent_total",
			Help: "Members reminded to vote",
		},
	)

	// Notification Metrics
	NotificationsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milkat_notifications_persisted_total",
			Help: "Durable notification records written",
		},
		[]string{"type"},
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milkat_notification_failures_total",
			Help: "Notification delivery failures, by stage",
		},
		[]string{"stage"}, // "outbox", "store", "realtime"
	)

	NotificationsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "milkat_notifications_purged_total",
			Help: "Expired notifications removed",
		},
	)

	RealtimePushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milkat_realtime_pushes_total",
			Help: "Realtime events published, by room scope",
		},
		[]string{"scope"},
	)

	OutboxPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "milkat_outbox_pending_entries",
			Help: "Notification records waiting in the outbox",
		},
	)

	OutboxRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milkat_outbox_retries_total",
			Help: "Outbox replay attempts, by result",
		},
		[]string{"result"}, // "success", "failure", "abandoned"
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Authorization Metrics
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milkat_authz_decisions_total",
			Help: "Route authorization decisions",
		},
		[]string{"decision"}, // "allow", "deny", "error"
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
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Application Info
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "milkat_info",
			Help: "Build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordSchedulerRun records one scheduler pass and its failures.
func RecordSchedulerRun(cadence string, duration time.Duration, failures int) {
	SchedulerRuns.WithLabelValues(cadence).Inc()
	SchedulerRunDuration.WithLabelValues(cadence).Observe(duration.Seconds())
	if failures > 0 {
		SchedulerEvaluationErrors.WithLabelValues(cadence).Add(float64(failures))
	}
}

// RecordBreakerTransition records a circuit breaker state change. States
// are the gobreaker names: "closed", "half-open", "open".
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	var v float64
	switch to {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	CircuitBreakerState.WithLabelValues(name).Set(v)
}
