// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

// Package api exposes the synchronization engine over HTTP using the
// chi router.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/menubridge/menubridge/internal/config"
)

// healthRateLimit is deliberately permissive so probes and monitoring
// never trip it.
const (
	healthRateLimit  = 1000
	healthRateWindow = time.Minute
)

// NewRouter assembles the full route tree.
func NewRouter(h *Handler, cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route.
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogging)
	r.Use(chimiddleware.Recoverer)
	// CORS stays global so OPTIONS preflight is answered everywhere.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}))

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(healthRateLimit, healthRateWindow))
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))
		r.Use(prometheusMetrics)

		r.Post("/sync", h.StartSync)
		r.Post("/sync/multi", h.StartMultiSync)
		r.Post("/sync/retry", h.RetrySync)
		r.Get("/sync/operations", h.ListOperations)

		// Literal segments above must register before the {id} wildcards.
		r.Get("/sync/jobs/{id}", h.JobStatus)
		r.Post("/sync/jobs/{id}/cancel", h.CancelJob)
		r.Get("/sync/{id}", h.SyncStatus)
		r.Post("/sync/{id}/cancel", h.CancelSync)

		r.Get("/ws", h.WebSocket)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
