// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package api

import (
	"net/http"

	"github.com/menubridge/menubridge/internal/logging"
	ws "github.com/menubridge/menubridge/internal/websocket"
)

// WebSocket upgrades the connection and joins the caller to its
// company's progress room. company_id scopes which events the client
// receives; connections without one are rejected.
//
// GET /api/v1/ws?company_id=...
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "WebSocket service unavailable", nil)
		return
	}

	companyID := r.URL.Query().Get("company_id")
	if companyID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "company_id query parameter required", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Error().Err(err).Msg("websocket upgrade")
		return
	}

	client := ws.NewClient(h.wsHub, conn, companyID)
	h.wsHub.Register <- client
	client.Start()
}
