// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package sync

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/menubridge/menubridge/internal/config"
	"github.com/menubridge/menubridge/internal/models"
	"github.com/menubridge/menubridge/internal/store"
)

func testRetryConfig() config.RetryConfig {
	return config.RetryConfig{
		BaseDelay:             2 * time.Second,
		MaxDelay:              5 * time.Minute,
		Multiplier:            2.0,
		JitterFactor:          0.2,
		TickInterval:          30 * time.Second,
		MaxConcurrentDispatch: 5,
		RateLimitCooldown:     15 * time.Second,
	}
}

func testScheduler(t *testing.T, maxReqs int) (*Scheduler, *store.MemoryStore, *time.Time) {
	t.Helper()
	st := store.NewMemoryStore()
	l, _ := testLimiter(time.Minute, maxReqs)
	s := NewScheduler(testRetryConfig(), st, l)
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	s.nowFn = func() time.Time { return now }
	l.nowFn = s.nowFn
	s.randFn = func() float64 { return 0.5 } // zero jitter
	return s, st, &now
}

func newRetryOp(t *testing.T, st store.RecordStore, retryCount int) *models.SyncOperation {
	t.Helper()
	op := &models.SyncOperation{
		ID:         uuid.NewString(),
		Platform:   models.PlatformCareem,
		MenuID:     "m1",
		CompanyID:  "co1",
		Status:     models.StatusInProgress,
		RetryCount: retryCount,
		MaxRetries: 3,
		CreatedAt:  time.Now(),
	}
	if err := st.CreateSyncOperation(context.Background(), op); err != nil {
		t.Fatalf("create op: %v", err)
	}
	return op
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	s, _, _ := testScheduler(t, 10)
	prev := time.Duration(0)
	for rc := 0; rc < 12; rc++ {
		d := s.Backoff(rc)
		if d < prev {
			t.Errorf("backoff(%d) = %v, decreased from %v", rc, d, prev)
		}
		if d > s.cfg.MaxDelay {
			t.Errorf("backoff(%d) = %v exceeds max %v", rc, d, s.cfg.MaxDelay)
		}
		prev = d
	}
	if got := s.Backoff(0); got != 2*time.Second {
		t.Errorf("backoff(0) = %v, want base delay", got)
	}
	if got := s.Backoff(20); got != s.cfg.MaxDelay {
		t.Errorf("backoff(20) = %v, want capped at %v", got, s.cfg.MaxDelay)
	}
}

func TestBackoffFloorsAtOneSecond(t *testing.T) {
	s, _, _ := testScheduler(t, 10)
	s.cfg.BaseDelay = 100 * time.Millisecond
	s.randFn = func() float64 { return 0 } // maximal negative jitter
	for rc := 0; rc < 5; rc++ {
		if d := s.Backoff(rc); d < time.Second {
			t.Errorf("backoff(%d) = %v, want >= 1s", rc, d)
		}
	}
}

func TestScheduleIncrementsRetryCount(t *testing.T) {
	s, st, now := testScheduler(t, 10)
	op := newRetryOp(t, st, 0)

	if !s.Schedule(context.Background(), op, 0) {
		t.Fatal("schedule should accept an operation with budget left")
	}

	rec, err := st.FindSyncOperation(context.Background(), op.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rec.Status != models.StatusScheduledRetry {
		t.Errorf("status = %v, want scheduled_retry", rec.Status)
	}
	if rec.RetryCount != 1 {
		t.Errorf("retryCount = %d, want 1", rec.RetryCount)
	}
	if rec.NextRetryAt == nil {
		t.Fatal("nextRetryAt should be set")
	}
	if want := now.Add(2 * time.Second); !rec.NextRetryAt.Equal(want) {
		t.Errorf("nextRetryAt = %v, want %v", rec.NextRetryAt, want)
	}
}

func TestScheduleRejectsExhaustedBudget(t *testing.T) {
	s, st, _ := testScheduler(t, 10)
	op := newRetryOp(t, st, 3) // retryCount == maxRetries

	if s.Schedule(context.Background(), op, 0) {
		t.Error("schedule must refuse once retryCount reached maxRetries")
	}
	rec, _ := st.FindSyncOperation(context.Background(), op.ID)
	if rec.RetryCount != 3 {
		t.Errorf("refused schedule mutated retryCount to %d", rec.RetryCount)
	}
}

func TestScheduleRejectsAlreadyQueued(t *testing.T) {
	s, st, _ := testScheduler(t, 10)
	op := newRetryOp(t, st, 0)

	if !s.Schedule(context.Background(), op, 0) {
		t.Fatal("first schedule should succeed")
	}
	if s.Schedule(context.Background(), op, 0) {
		t.Error("second schedule of the same operation should be a no-op")
	}
}

func TestTickDispatchesDueEntries(t *testing.T) {
	s, st, now := testScheduler(t, 10)
	dispatched := make(chan string, 4)
	s.Bind(func(ctx context.Context, id string) { dispatched <- id }, func(context.Context, string) {})

	op := newRetryOp(t, st, 0)
	if !s.Schedule(context.Background(), op, 0) {
		t.Fatal("schedule failed")
	}

	// Not due yet.
	s.runTick(context.Background())
	select {
	case id := <-dispatched:
		t.Fatalf("dispatched %s before its scheduledAt", id)
	default:
	}

	*now = now.Add(time.Minute)
	s.runTick(context.Background())
	select {
	case id := <-dispatched:
		if id != op.ID {
			t.Errorf("dispatched %s, want %s", id, op.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("due entry was not dispatched")
	}

	rec, _ := st.FindSyncOperation(context.Background(), op.ID)
	if rec.Status != models.StatusRetrying {
		t.Errorf("status = %v, want retrying", rec.Status)
	}
	if s.Pending(op.ID) {
		t.Error("dispatched entry should leave the queue")
	}
}

func TestTickRespectsDispatchCap(t *testing.T) {
	s, st, now := testScheduler(t, 20)
	s.cfg.MaxConcurrentDispatch = 2
	dispatched := make(chan string, 8)
	s.Bind(func(ctx context.Context, id string) { dispatched <- id }, func(context.Context, string) {})

	for i := 0; i < 4; i++ {
		op := newRetryOp(t, st, 0)
		if !s.Schedule(context.Background(), op, 0) {
			t.Fatalf("schedule %d failed", i)
		}
	}

	*now = now.Add(time.Minute)
	s.runTick(context.Background())

	count := 0
	deadline := time.After(time.Second)
	for count < 2 {
		select {
		case <-dispatched:
			count++
		case <-deadline:
			t.Fatalf("only %d dispatches before deadline, want 2", count)
		}
	}
	select {
	case id := <-dispatched:
		t.Fatalf("dispatch %s exceeds the per-tick cap", id)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTickRequeuesWhenStillRateLimited(t *testing.T) {
	s, st, now := testScheduler(t, 1)
	dispatched := make(chan string, 2)
	s.Bind(func(ctx context.Context, id string) { dispatched <- id }, func(context.Context, string) {})

	// Exhaust the window so the dispatch-time recheck denies.
	if !s.limiter.Admit(models.PlatformCareem) {
		t.Fatal("seed admission failed")
	}

	op := newRetryOp(t, st, 0)
	if !s.Schedule(context.Background(), op, 0) {
		t.Fatal("schedule failed")
	}
	*now = now.Add(3 * time.Second)
	s.runTick(context.Background())

	select {
	case <-dispatched:
		t.Fatal("rate-limited entry must not dispatch")
	default:
	}
	if !s.Pending(op.ID) {
		t.Fatal("rate-limited entry should stay queued")
	}

	// The requeue uses the fixed cooldown, not exponential growth, and
	// does not touch the retry counter.
	rec, _ := st.FindSyncOperation(context.Background(), op.ID)
	if rec.RetryCount != 1 {
		t.Errorf("retryCount = %d, want 1 (cooldown must not consume budget)", rec.RetryCount)
	}
	if want := now.Add(s.cfg.RateLimitCooldown); rec.NextRetryAt == nil || !rec.NextRetryAt.Equal(want) {
		t.Errorf("nextRetryAt = %v, want %v", rec.NextRetryAt, want)
	}
}

func TestCancelOpDropsQueuedEntry(t *testing.T) {
	s, st, now := testScheduler(t, 10)
	dispatched := make(chan string, 2)
	s.Bind(func(ctx context.Context, id string) { dispatched <- id }, func(context.Context, string) {})

	op := newRetryOp(t, st, 0)
	if !s.Schedule(context.Background(), op, 0) {
		t.Fatal("schedule failed")
	}
	s.CancelOp(op.ID)

	*now = now.Add(time.Minute)
	s.runTick(context.Background())
	select {
	case <-dispatched:
		t.Fatal("cancelled entry must not dispatch")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestExplicitDelayOverridesBackoff(t *testing.T) {
	s, st, now := testScheduler(t, 10)
	op := newRetryOp(t, st, 2)

	if !s.Schedule(context.Background(), op, 45*time.Second) {
		t.Fatal("schedule failed")
	}
	rec, _ := st.FindSyncOperation(context.Background(), op.ID)
	if want := now.Add(45 * time.Second); rec.NextRetryAt == nil || !rec.NextRetryAt.Equal(want) {
		t.Errorf("nextRetryAt = %v, want explicit %v", rec.NextRetryAt, want)
	}
}
