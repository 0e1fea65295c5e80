// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package api

import (
	"net/http"
	"time"

	"github.com/menubridge/menubridge/internal/models"
)

// Health reports the engine's view of every configured platform:
// breaker states, admission windows, live websocket clients.
//
// GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	platforms := h.registry.Platforms()

	status := models.HealthStatus{
		Status:           "healthy",
		Version:          h.version,
		UptimeSeconds:    time.Since(h.startedAt).Seconds(),
		Platforms:        platforms,
		CircuitBreakers:  make([]models.CircuitBreakerSnapshot, 0, len(platforms)),
		RateLimiters:     make([]models.RateLimiterSnapshot, 0, len(platforms)),
		ActiveOperations: h.coord.ActiveHandles(),
	}
	if h.wsHub != nil {
		status.WebSocketClients = h.wsHub.ClientCount()
	}

	openBreakers := 0
	for _, p := range platforms {
		if cb, ok := h.breakers.Snapshot(p); ok {
			status.CircuitBreakers = append(status.CircuitBreakers, cb)
			if cb.State == models.CircuitOpen {
				openBreakers++
			}
		}
		if rl, ok := h.limiter.Snapshot(p); ok {
			status.RateLimiters = append(status.RateLimiters, rl)
		}
	}

	// Open breakers mean a platform is refusing traffic; that degrades
	// the service without making it unhealthy.
	if openBreakers > 0 {
		status.Status = "degraded"
	}

	respondData(w, http.StatusOK, status)
}

// HealthLive is the liveness probe. Reaching the handler is the check.
//
// GET /api/v1/health/live
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady is the readiness probe. The engine is ready once at least
// one platform is registered.
//
// GET /api/v1/health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if len(h.registry.Platforms()) == 0 {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "No platforms configured", nil)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"status": "ready"})
}
