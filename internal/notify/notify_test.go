// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package notify

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/menubridge/menubridge/internal/models"
	syncengine "github.com/menubridge/menubridge/internal/sync"
)

type recordingSink struct {
	mu     gosync.Mutex
	events []models.ProgressEvent
}

func (s *recordingSink) Publish(companyID string, ev models.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestFanoutDeliversToAllSinks(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	var fnEvents []models.ProgressEvent
	fn := syncengine.NotifierFunc(func(companyID string, ev models.ProgressEvent) {
		fnEvents = append(fnEvents, ev)
	})
	f := NewFanout(a, nil, b, fn)

	f.Publish("co1", models.ProgressEvent{SyncID: "s1", Status: models.StatusInProgress})
	f.Publish("co1", models.ProgressEvent{SyncID: "s1", Status: models.StatusCompleted})

	if a.count() != 2 || b.count() != 2 {
		t.Errorf("sink counts = %d/%d, want 2/2", a.count(), b.count())
	}
	if len(fnEvents) != 2 {
		t.Errorf("func sink saw %d events, want 2", len(fnEvents))
	}
}

type stubPublisher struct {
	mu       gosync.Mutex
	events   []queuedEvent
	attempts int
	err      error
}

func (p *stubPublisher) PublishEvent(companyID string, ev models.ProgressEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, queuedEvent{companyID: companyID, event: ev})
	return nil
}

func (p *stubPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func (p *stubPublisher) attemptCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}

func TestNATSNotifierDrainsQueue(t *testing.T) {
	pub := &stubPublisher{}
	n := NewNATSNotifier(pub, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Serve(ctx) //nolint:errcheck

	for i := 0; i < 5; i++ {
		n.Publish("co1", models.ProgressEvent{SyncID: "s1", ProgressPercent: i * 20})
	}

	deadline := time.Now().Add(2 * time.Second)
	for pub.count() < 5 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if pub.count() != 5 {
		t.Errorf("published %d events, want 5", pub.count())
	}
}

func TestNATSNotifierDropsWhenFull(t *testing.T) {
	pub := &stubPublisher{}
	n := NewNATSNotifier(pub, 2)

	// No worker running: the queue fills and further events drop
	// instead of blocking the caller.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			n.Publish("co1", models.ProgressEvent{SyncID: "s1"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
	if len(n.queue) != 2 {
		t.Errorf("queue depth = %d, want capped at 2", len(n.queue))
	}
}

func TestNATSNotifierSurvivesPublishErrors(t *testing.T) {
	pub := &stubPublisher{err: errors.New("stream unavailable")}
	n := NewNATSNotifier(pub, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Serve(ctx) //nolint:errcheck

	n.Publish("co1", models.ProgressEvent{SyncID: "s1"})

	// Wait for the worker to attempt (and drop) the failing event
	// before clearing the error, so only the second event can land.
	deadline := time.Now().Add(2 * time.Second)
	for pub.attemptCount() < 1 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if pub.attemptCount() < 1 {
		t.Fatal("worker never attempted the failing event")
	}
	pub.mu.Lock()
	pub.err = nil
	pub.mu.Unlock()

	// The failing event must not wedge the worker.
	n.Publish("co1", models.ProgressEvent{SyncID: "s2"})

	for pub.count() < 1 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if pub.count() != 1 {
		t.Fatalf("published %d events after recovery, want 1", pub.count())
	}
	pub.mu.Lock()
	got := pub.events[0].event.SyncID
	pub.mu.Unlock()
	if got != "s2" {
		t.Errorf("recovered event = %q, want s2", got)
	}
}
