// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

// Package metrics provides Prometheus instrumentation for Seraph Six:
// Bungie API call volume and retries, circuit breaker state, reconciliation
// results, and game recording outcomes. Metrics are exposed on /metrics by
// the HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Bungie API metrics

	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bungie_api_requests_total",
			Help: "Total number of Bungie API requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"}, // outcome: success, retryable, maintenance, private, fatal
	)

	APIRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bungie_api_retries_total",
			Help: "Total number of backoff retries of Bungie API calls",
		},
		[]string{"endpoint"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bungie_api_request_duration_seconds",
			Help:    "Duration of Bungie API calls in seconds, including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Circuit breaker metrics

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
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Reconciliation metrics

	MembersAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconcile_members_added_total",
			Help: "Total number of clan members added by reconciliation",
		},
	)

	MembersRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconcile_members_removed_total",
			Help: "Total number of clan members removed by reconciliation",
		},
	)

	MembersChanged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconcile_members_changed_total",
			Help: "Total number of clan memberships updated in place",
		},
	)

	ReconcilePasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_passes_total",
			Help: "Total number of clan reconciliation passes by outcome",
		},
		[]string{"outcome"}, // success, maintenance, error
	)

	// Game recording metrics

	GamesRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "games_recorded_total",
			Help: "Total number of new canonical games persisted",
		},
	)

	GamesDuplicate = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "games_duplicate_total",
			Help: "Total number of game records that converged on an existing row",
		},
	)

	GamesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "games_rejected_total",
			Help: "Total number of activity instances rejected by eligibility checks",
		},
		[]string{"reason"}, // threshold, release_cutoff, join_cutoff
	)

	// HTTP surface metrics

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by method, route, and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Job dispatch metrics

	JobsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_enqueued_total",
			Help: "Total number of jobs accepted by the dispatcher",
		},
		[]string{"job"},
	)

	JobsDeduplicated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_deduplicated_total",
			Help: "Total number of enqueue requests dropped as already pending",
		},
		[]string{"job"},
	)
)
