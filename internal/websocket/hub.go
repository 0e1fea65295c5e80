// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package websocket

import (
	"context"
	gosync "sync"

	"github.com/menubridge/menubridge/internal/logging"
	"github.com/menubridge/menubridge/internal/metrics"
	"github.com/menubridge/menubridge/internal/models"
)

// Message types for WebSocket communication.
const (
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeSyncProgress = "sync_progress"
)

// Message is the envelope every frame carries.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type broadcast struct {
	companyID string
	message   Message
}

// Hub maintains the active clients grouped by company and routes each
// progress event to that company's room only.
type Hub struct {
	mu    gosync.RWMutex
	rooms map[string]map[*Client]bool

	events     chan broadcast
	Register   chan *Client
	Unregister chan *Client
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		events:     make(chan broadcast, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Publish implements the engine's notifier contract: the event is
// enqueued for the company's room without blocking the runner. A full
// queue drops the event and counts it.
func (h *Hub) Publish(companyID string, event models.ProgressEvent) {
	select {
	case h.events <- broadcast{
		companyID: companyID,
		message:   Message{Type: MessageTypeSyncProgress, Data: event},
	}:
		metrics.ProgressEventsPublished.WithLabelValues("websocket").Inc()
	default:
		metrics.ProgressEventsDropped.WithLabelValues("websocket").Inc()
	}
}

// Serve runs the hub loop until ctx is cancelled, then closes every
// client. Lifecycle events take priority over broadcasts so room
// membership is settled before messages route.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case client := <-h.Register:
			h.add(client)
			continue
		case client := <-h.Unregister:
			h.remove(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case client := <-h.Register:
			h.add(client)
		case client := <-h.Unregister:
			h.remove(client)
		case b := <-h.events:
			h.route(b)
		}
	}
}

func (h *Hub) String() string { return "websocket-hub" }

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.companyID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[client.companyID] = room
	}
	room[client] = true
	total := h.clientCountLocked()
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(total))
	logging.Info().
		Str("company_id", client.companyID).
		Int("total_clients", total).
		Msg("websocket client connected")
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if room, ok := h.rooms[client.companyID]; ok {
		if _, member := room[client]; member {
			delete(room, client)
			close(client.send)
		}
		if len(room) == 0 {
			delete(h.rooms, client.companyID)
		}
	}
	total := h.clientCountLocked()
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(total))
	logging.Info().
		Str("company_id", client.companyID).
		Int("total_clients", total).
		Msg("websocket client disconnected")
}

// route delivers to the company's room. Slow clients drop frames rather
// than stalling the loop.
func (h *Hub) route(b broadcast) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[b.companyID] {
		select {
		case client.send <- b.message:
		default:
			metrics.ProgressEventsDropped.WithLabelValues("websocket").Inc()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	count := h.clientCountLocked()
	for _, room := range h.rooms {
		for client := range room {
			close(client.send)
		}
	}
	h.rooms = make(map[string]map[*Client]bool)
	h.mu.Unlock()

	metrics.WebSocketClients.Set(0)
	logging.Info().
		Str("component", "websocket-hub").
		Int("clients_closed", count).
		Msg("websocket hub stopped")
}

// ClientCount reports connected clients across all rooms.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clientCountLocked()
}

func (h *Hub) clientCountLocked() int {
	n := 0
	for _, room := range h.rooms {
		n += len(room)
	}
	return n
}
