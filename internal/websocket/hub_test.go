// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/menubridge/menubridge/internal/models"
)

// testClient registers a pump-less client so tests can read its send
// channel directly.
func testClient(t *testing.T, hub *Hub, companyID string) *Client {
	t.Helper()
	c := NewClient(hub, nil, companyID)
	select {
	case hub.Register <- c:
	case <-time.After(time.Second):
		t.Fatal("hub did not accept registration")
	}
	return c
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return Message{}
	}
}

func TestHubRoutesEventsByCompany(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Serve(ctx) //nolint:errcheck

	alpha := testClient(t, hub, "co-alpha")
	beta := testClient(t, hub, "co-beta")

	hub.Publish("co-alpha", models.ProgressEvent{SyncID: "s1", Status: models.StatusInProgress})

	msg := receive(t, alpha)
	if msg.Type != MessageTypeSyncProgress {
		t.Errorf("type = %q, want sync_progress", msg.Type)
	}
	ev, ok := msg.Data.(models.ProgressEvent)
	if !ok {
		t.Fatalf("data type = %T", msg.Data)
	}
	if ev.SyncID != "s1" {
		t.Errorf("syncID = %q", ev.SyncID)
	}

	select {
	case stray := <-beta.send:
		t.Fatalf("other tenant received %+v", stray)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Serve(ctx) //nolint:errcheck

	c := testClient(t, hub, "co1")
	hub.Unregister <- c

	select {
	case _, open := <-c.send:
		if open {
			t.Error("expected closed send channel after unregister")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Errorf("clientCount = %d, want 0", hub.ClientCount())
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Serve(ctx) }()

	c := testClient(t, hub, "co1")
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	select {
	case _, open := <-c.send:
		if open {
			t.Error("client send channel should be closed on shutdown")
		}
	default:
		t.Error("client send channel should be closed on shutdown")
	}
}
