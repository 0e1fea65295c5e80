// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package models

import "time"

// APIResponse is the envelope every HTTP endpoint returns.
//
// Status is "success" or "error". Data carries the payload on success;
// Error is populated only on failure.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries per-response observability fields.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
}

// APIError is the structured error body.
//
// Common codes: VALIDATION_ERROR, NOT_FOUND, PLATFORM_UNKNOWN,
// RETRY_REJECTED, INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is the payload of GET /api/v1/health.
type HealthStatus struct {
	Status           string                   `json:"status"`
	Version          string                   `json:"version,omitempty"`
	UptimeSeconds    float64                  `json:"uptime_seconds"`
	Platforms        []Platform               `json:"platforms"`
	CircuitBreakers  []CircuitBreakerSnapshot `json:"circuit_breakers"`
	RateLimiters     []RateLimiterSnapshot    `json:"rate_limiters"`
	WebSocketClients int                      `json:"websocket_clients"`
	ActiveOperations int                      `json:"active_operations"`
}
