// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package api

import (
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/menubridge/menubridge/internal/platform"
	syncengine "github.com/menubridge/menubridge/internal/sync"
	ws "github.com/menubridge/menubridge/internal/websocket"
)

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	coord    *syncengine.Coordinator
	limiter  *syncengine.Limiter
	breakers *syncengine.BreakerSet
	registry *platform.Registry
	wsHub    *ws.Hub

	upgrader  gorillaws.Upgrader
	startedAt time.Time
	version   string
}

// NewHandler wires the handler set. wsHub may be nil; the websocket
// endpoint then answers 503.
func NewHandler(coord *syncengine.Coordinator, limiter *syncengine.Limiter,
	breakers *syncengine.BreakerSet, registry *platform.Registry, wsHub *ws.Hub, version string) *Handler {
	return &Handler{
		coord:    coord,
		limiter:  limiter,
		breakers: breakers,
		registry: registry,
		wsHub:    wsHub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin enforcement happens at the CORS layer.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		startedAt: time.Now(),
		version:   version,
	}
}
