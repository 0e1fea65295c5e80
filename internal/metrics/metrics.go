// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the sync engine:
// - sync operation throughput and latency per platform
// - circuit breaker state machines
// - rate limiter admission decisions
// - retry scheduler queue depth and dispatch volume
// - API endpoint counters

var (
	// Sync Operation Metrics
	SyncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_operations_total",
			Help: "Total sync operations by platform and terminal status",
		},
		[]string{"platform", "status"},
	)

	SyncOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_operation_duration_seconds",
			Help:    "Duration of one sync attempt from gate to terminal state",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"platform"},
	)

	SyncOperationsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_operations_active",
			Help: "Sync operations currently in a non-terminal state",
		},
	)

	SyncItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_items_processed_total",
			Help: "Menu items accepted by platforms",
		},
		[]string{"platform"},
	)

	MultiSyncJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multi_sync_jobs_total",
			Help: "Multi-platform jobs by final status",
		},
		[]string{"status"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"platform"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"platform", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests through circuit breakers by result",
		},
		[]string{"platform", "result"}, // success, failure, rejected
	)

	// Rate Limiter Metrics
	RateLimiterAdmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_admissions_total",
			Help: "Admission checks by platform and outcome",
		},
		[]string{"platform", "outcome"}, // admitted, blocked
	)

	// Retry Scheduler Metrics
	RetryQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "retry_queue_depth",
			Help: "Entries currently waiting in the retry queue",
		},
	)

	RetriesScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retries_scheduled_total",
			Help: "Retry entries enqueued by platform",
		},
		[]string{"platform"},
	)

	RetriesDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retries_dispatched_total",
			Help: "Retry entries dispatched back into the runner",
		},
		[]string{"platform"},
	)

	// Progress Notifier Metrics
	ProgressEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_events_published_total",
			Help: "Progress events published by transport",
		},
		[]string{"transport"}, // channel, nats, websocket
	)

	ProgressEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_events_dropped_total",
			Help: "Progress events dropped (slow consumer or publish failure)",
		},
		[]string{"transport"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	// WebSocket Metrics
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Connected progress stream clients",
		},
	)
)

// ObserveSyncDuration records one attempt's wall time.
func ObserveSyncDuration(platform string, start time.Time) {
	SyncOperationDuration.WithLabelValues(platform).Observe(time.Since(start).Seconds())
}
