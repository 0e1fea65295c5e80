// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/menubridge/menubridge/internal/config"
	"github.com/menubridge/menubridge/internal/menu"
	"github.com/menubridge/menubridge/internal/models"
	"github.com/menubridge/menubridge/internal/platform"
	"github.com/menubridge/menubridge/internal/store"
)

// scriptedCaller replays a fixed sequence of outcomes, then keeps
// returning the last one. A nil outcome is a success response.
type scriptedCaller struct {
	mu       gosync.Mutex
	outcomes []error
	body     []byte
	calls    int
}

func (c *scriptedCaller) Call(ctx context.Context, method, path string, body []byte) (*platform.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	var outcome error
	if len(c.outcomes) > 0 {
		outcome = c.outcomes[0]
		if len(c.outcomes) > 1 {
			c.outcomes = c.outcomes[1:]
		}
	}
	if outcome != nil {
		return nil, outcome
	}
	respBody := c.body
	if respBody == nil {
		respBody = []byte(`{"items_processed": 2}`)
	}
	return &platform.Response{StatusCode: 200, Body: respBody}, nil
}

func (c *scriptedCaller) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// eventSink records published progress events.
type eventSink struct {
	mu     gosync.Mutex
	events []models.ProgressEvent
}

func (s *eventSink) Publish(companyID string, ev models.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *eventSink) forOperation(id string) []models.ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ProgressEvent
	for _, ev := range s.events {
		if ev.SyncID == id {
			out = append(out, ev)
		}
	}
	return out
}

// testEngine wires a complete in-memory engine around scripted callers.
type testEngine struct {
	store    *store.MemoryStore
	menus    *menu.StaticProvider
	reg      *platform.Registry
	limiter  *Limiter
	breakers *BreakerSet
	sched    *Scheduler
	runner   *Runner
	coord    *Coordinator
	callers  map[models.Platform]*scriptedCaller
	events   *eventSink
	now      *time.Time
}

func newTestEngine(t *testing.T, platforms ...models.Platform) *testEngine {
	t.Helper()
	if len(platforms) == 0 {
		platforms = []models.Platform{models.PlatformCareem, models.PlatformTalabat}
	}

	cfg := config.Default()
	enableTestPlatforms(&cfg.Platforms, platforms)

	st := store.NewMemoryStore()
	menus := menu.NewStaticProvider()
	menus.Put(sampleTestMenu())

	reg := platform.NewRegistry(cfg.Platforms)
	callers := make(map[models.Platform]*scriptedCaller)
	for _, p := range platforms {
		entry, ok := reg.Get(p)
		if !ok {
			t.Fatalf("platform %s missing in registry", p)
		}
		caller := &scriptedCaller{}
		callers[p] = caller
		reg.Register(entry.Adapter, caller, entry.Config)
	}

	limiter := NewLimiter(cfg.Platforms)
	breakers := NewBreakerSet(cfg.Breaker, platforms)
	sched := NewScheduler(cfg.Retry, st, limiter)

	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	sched.nowFn = func() time.Time { return now }
	sched.randFn = func() float64 { return 0.5 }
	limiter.nowFn = sched.nowFn

	events := &eventSink{}
	runner := NewRunner(st, menus, reg, limiter, breakers, sched, events)
	coord := NewCoordinator(context.Background(), st, reg, runner, sched, events)

	return &testEngine{
		store:    st,
		menus:    menus,
		reg:      reg,
		limiter:  limiter,
		breakers: breakers,
		sched:    sched,
		runner:   runner,
		coord:    coord,
		callers:  callers,
		events:   events,
		now:      &now,
	}
}

func enableTestPlatforms(pc *config.PlatformsConfig, platforms []models.Platform) {
	set := func(dst *config.PlatformConfig) {
		dst.Enabled = true
		dst.BaseURL = "http://localhost:0"
		dst.APIKey = "k"
		dst.Timeout = time.Second
		dst.RateWindow = time.Minute
		dst.RateMaxRequests = 100
		dst.MaxRetries = 3
	}
	for _, p := range platforms {
		switch p {
		case models.PlatformCareem:
			set(&pc.Careem)
		case models.PlatformTalabat:
			set(&pc.Talabat)
		case models.PlatformDeliveroo:
			set(&pc.Deliveroo)
		case models.PlatformJahez:
			set(&pc.Jahez)
		case models.PlatformWebsite:
			set(&pc.Website)
		case models.PlatformCallCenter:
			set(&pc.CallCenter)
		}
	}
}

func sampleTestMenu() *models.MenuSnapshot {
	return &models.MenuSnapshot{
		MenuID:    "m1",
		CompanyID: "co1",
		Name:      "All Day",
		Currency:  "AED",
		Categories: []models.MenuCategory{
			{
				ID:   "c1",
				Name: "Mains",
				Items: []models.MenuItem{
					{ID: "i1", Name: "Shawarma", PriceCents: 2500, ImageURL: "https://img/i1.jpg", Available: true},
					{ID: "i2", Name: "Falafel Wrap", PriceCents: 1800, ImageURL: "https://img/i2.jpg", Available: true},
				},
			},
		},
	}
}

func transientErr(p models.Platform) error {
	return models.NewSyncError(models.KindTransient, p, errors.New("timeout"))
}

func permanentErr(p models.Platform) error {
	return models.NewSyncError(models.KindPermanent, p, errors.New("payload rejected"))
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (e *testEngine) opState(t *testing.T, id string) *models.SyncOperation {
	t.Helper()
	op, err := e.store.FindSyncOperation(context.Background(), id)
	if err != nil {
		t.Fatalf("find operation %s: %v", id, err)
	}
	return op
}

func (e *testEngine) waitStatus(t *testing.T, id string, want models.SyncStatus) {
	t.Helper()
	waitFor(t, "operation "+id+" to reach "+string(want), func() bool {
		op, err := e.store.FindSyncOperation(context.Background(), id)
		return err == nil && op.Status == want
	})
}

func TestRunSingleSuccess(t *testing.T) {
	e := newTestEngine(t, models.PlatformCareem)

	op, err := e.coord.StartSingle(context.Background(), "m1", "co1", models.PlatformCareem)
	if err != nil {
		t.Fatalf("StartSingle: %v", err)
	}
	e.waitStatus(t, op.ID, models.StatusCompleted)

	final := e.opState(t, op.ID)
	if final.ProgressPercent != 100 {
		t.Errorf("progress = %d, want 100", final.ProgressPercent)
	}
	if final.ItemsProcessed != 2 {
		t.Errorf("itemsProcessed = %d, want 2 from response", final.ItemsProcessed)
	}
	if final.CompletedAt == nil {
		t.Error("completed operation must carry completedAt")
	}
	if e.callers[models.PlatformCareem].callCount() != 1 {
		t.Errorf("platform called %d times, want 1", e.callers[models.PlatformCareem].callCount())
	}
}

func TestRunProgressCheckpointsAreMonotonic(t *testing.T) {
	e := newTestEngine(t, models.PlatformCareem)

	op, err := e.coord.StartSingle(context.Background(), "m1", "co1", models.PlatformCareem)
	if err != nil {
		t.Fatalf("StartSingle: %v", err)
	}
	e.waitStatus(t, op.ID, models.StatusCompleted)

	events := e.events.forOperation(op.ID)
	if len(events) == 0 {
		t.Fatal("no progress events published")
	}
	prev := -1
	seen := map[int]bool{}
	for _, ev := range events {
		if ev.ProgressPercent < prev {
			t.Errorf("progress regressed from %d to %d within one attempt", prev, ev.ProgressPercent)
		}
		prev = ev.ProgressPercent
		seen[ev.ProgressPercent] = true
	}
	for _, cp := range []int{0, 20, 40, 80, 100} {
		if !seen[cp] {
			t.Errorf("checkpoint %d never published", cp)
		}
	}
}

func TestRunValidationFailureIsTerminal(t *testing.T) {
	e := newTestEngine(t, models.PlatformCareem)
	bad := sampleTestMenu()
	bad.MenuID = "m-bad"
	bad.Categories[0].Items[0].PriceCents = -100
	e.menus.Put(bad)

	op, err := e.coord.StartSingle(context.Background(), "m-bad", "co1", models.PlatformCareem)
	if err != nil {
		t.Fatalf("StartSingle: %v", err)
	}
	e.waitStatus(t, op.ID, models.StatusFailed)

	final := e.opState(t, op.ID)
	if final.ErrorKind != string(models.KindValidation) {
		t.Errorf("errorKind = %q, want validation", final.ErrorKind)
	}
	if final.RetryCount != 0 {
		t.Errorf("validation failure scheduled a retry (retryCount=%d)", final.RetryCount)
	}
	if e.callers[models.PlatformCareem].callCount() != 0 {
		t.Error("validation failure must not reach the platform")
	}
}

func TestRunMissingMenuFailsWithoutRetry(t *testing.T) {
	e := newTestEngine(t, models.PlatformCareem)

	op, err := e.coord.StartSingle(context.Background(), "nope", "co1", models.PlatformCareem)
	if err != nil {
		t.Fatalf("StartSingle: %v", err)
	}
	e.waitStatus(t, op.ID, models.StatusFailed)
	if got := e.opState(t, op.ID).ErrorKind; got != string(models.KindValidation) {
		t.Errorf("errorKind = %q, want validation", got)
	}
}

func TestRunPermanentFailureSkipsRetryBudget(t *testing.T) {
	e := newTestEngine(t, models.PlatformCareem)
	e.callers[models.PlatformCareem].outcomes = []error{permanentErr(models.PlatformCareem)}

	op, err := e.coord.StartSingle(context.Background(), "m1", "co1", models.PlatformCareem)
	if err != nil {
		t.Fatalf("StartSingle: %v", err)
	}
	e.waitStatus(t, op.ID, models.StatusFailed)

	final := e.opState(t, op.ID)
	if final.ErrorKind != string(models.KindPermanent) {
		t.Errorf("errorKind = %q, want permanent", final.ErrorKind)
	}
	if final.RetryCount != 0 {
		t.Errorf("permanent failure consumed retry budget: %d", final.RetryCount)
	}
}

func TestRunTransientFailureSchedulesRetry(t *testing.T) {
	e := newTestEngine(t, models.PlatformCareem)
	e.callers[models.PlatformCareem].outcomes = []error{transientErr(models.PlatformCareem), nil}

	op, err := e.coord.StartSingle(context.Background(), "m1", "co1", models.PlatformCareem)
	if err != nil {
		t.Fatalf("StartSingle: %v", err)
	}
	e.waitStatus(t, op.ID, models.StatusScheduledRetry)

	scheduled := e.opState(t, op.ID)
	if scheduled.RetryCount != 1 {
		t.Errorf("retryCount = %d, want 1", scheduled.RetryCount)
	}
	if scheduled.NextRetryAt == nil {
		t.Fatal("scheduled retry must carry nextRetryAt")
	}

	*e.now = e.now.Add(time.Minute)
	e.sched.runTick(context.Background())
	e.waitStatus(t, op.ID, models.StatusCompleted)

	final := e.opState(t, op.ID)
	if final.RetryCount != 1 {
		t.Errorf("final retryCount = %d, want 1", final.RetryCount)
	}
	if e.callers[models.PlatformCareem].callCount() != 2 {
		t.Errorf("platform called %d times, want 2", e.callers[models.PlatformCareem].callCount())
	}
}

func TestRunRetryBudgetCeiling(t *testing.T) {
	e := newTestEngine(t, models.PlatformCareem)
	e.callers[models.PlatformCareem].outcomes = []error{transientErr(models.PlatformCareem)}

	op, err := e.coord.StartSingle(context.Background(), "m1", "co1", models.PlatformCareem)
	if err != nil {
		t.Fatalf("StartSingle: %v", err)
	}

	// maxRetries=3: three schedules succeed, the failure after the
	// third retry terminates as Failed instead of rescheduling.
	for want := 1; want <= 3; want++ {
		waitFor(t, "scheduled retry", func() bool {
			rec := e.opState(t, op.ID)
			return rec.Status == models.StatusScheduledRetry && rec.RetryCount == want
		})
		*e.now = e.now.Add(10 * time.Minute)
		e.sched.runTick(context.Background())
	}
	e.waitStatus(t, op.ID, models.StatusFailed)

	final := e.opState(t, op.ID)
	if final.RetryCount != 3 {
		t.Errorf("retryCount = %d, want capped at maxRetries", final.RetryCount)
	}
	if final.ErrorKind != string(models.KindTransient) {
		t.Errorf("errorKind = %q, want transient", final.ErrorKind)
	}
}

func TestRunGateDenialSchedulesWithoutCalling(t *testing.T) {
	e := newTestEngine(t, models.PlatformCareem)

	// Trip the breaker so the gate denies before any admission.
	for i := 0; i < 5; i++ {
		fail(e.breakers, models.PlatformCareem) //nolint:errcheck
	}

	op, err := e.coord.StartSingle(context.Background(), "m1", "co1", models.PlatformCareem)
	if err != nil {
		t.Fatalf("StartSingle: %v", err)
	}
	e.waitStatus(t, op.ID, models.StatusScheduledRetry)

	if e.callers[models.PlatformCareem].callCount() != 0 {
		t.Error("gate denial must not reach the platform")
	}
}
