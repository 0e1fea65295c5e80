// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package sync

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	gosync "sync"
	"time"

	"github.com/menubridge/menubridge/internal/config"
	"github.com/menubridge/menubridge/internal/logging"
	"github.com/menubridge/menubridge/internal/metrics"
	"github.com/menubridge/menubridge/internal/models"
	"github.com/menubridge/menubridge/internal/store"
)

const minRetryDelay = time.Second

// Scheduler holds failed operations until their backoff elapses, then
// dispatches them back into the runner. The queue is in-memory and
// process-local; the scheduled state itself is persisted on the
// operation record so a restart can reconcile what was pending.
//
// Scheduler implements suture.Service.
type Scheduler struct {
	cfg     config.RetryConfig
	store   store.RecordStore
	limiter *Limiter

	mu     gosync.Mutex
	queue  retryQueue
	queued map[string]bool

	// dispatch re-enters the runner for one operation; onTerminal tells
	// the coordinator about operations the scheduler itself failed.
	// Both bound by the coordinator during wiring.
	dispatch   func(ctx context.Context, operationID string)
	onTerminal func(ctx context.Context, operationID string)

	nowFn   func() time.Time
	randFn  func() float64
	tickNow chan struct{}
}

// NewScheduler builds an unbound scheduler. Bind must be called before
// Serve dispatches anything.
func NewScheduler(cfg config.RetryConfig, st store.RecordStore, limiter *Limiter) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		store:   st,
		limiter: limiter,
		queued:  make(map[string]bool),
		nowFn:   time.Now,
		randFn:  rand.Float64,
		tickNow: make(chan struct{}, 1),
	}
}

// Bind sets the dispatch target and the terminal-state callback.
func (s *Scheduler) Bind(dispatch, onTerminal func(ctx context.Context, operationID string)) {
	s.dispatch = dispatch
	s.onTerminal = onTerminal
}

// Backoff computes the delay before retry number retryCount+1. The
// delay grows exponentially, is capped at MaxDelay, carries symmetric
// jitter of ±(delay*jitter)/2 and never drops below one second.
func (s *Scheduler) Backoff(retryCount int) time.Duration {
	base := float64(s.cfg.BaseDelay)
	delay := base * math.Pow(s.cfg.Multiplier, float64(retryCount))
	if max := float64(s.cfg.MaxDelay); delay > max {
		delay = max
	}
	jitter := (s.randFn() - 0.5) * delay * s.cfg.JitterFactor
	d := time.Duration(delay + jitter)
	if d < minRetryDelay {
		d = minRetryDelay
	}
	return d
}

// Schedule enqueues op for a delayed retry. It returns false without
// side effects when the retry budget is exhausted or the operation is
// already queued. explicitDelay overrides the backoff computation when
// positive (used for admission-denied cooldowns).
//
// A successful schedule increments the persisted retryCount, so the
// count reflects retries scheduled, not retries completed.
func (s *Scheduler) Schedule(ctx context.Context, op *models.SyncOperation, explicitDelay time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if op.RetryCount >= op.MaxRetries {
		return false
	}
	if s.queued[op.ID] {
		return false
	}

	delay := explicitDelay
	if delay <= 0 {
		delay = s.Backoff(op.RetryCount)
	}
	nextAt := s.nowFn().Add(delay)

	// Fewer prior retries means higher priority; fresh failures go
	// ahead of repeat offenders.
	entry := models.RetryQueueEntry{
		OperationID: op.ID,
		Platform:    op.Platform,
		ScheduledAt: nextAt,
		Priority:    op.MaxRetries - op.RetryCount,
	}

	if _, err := s.store.UpdateSyncOperation(ctx, op.ID, func(rec *models.SyncOperation) error {
		rec.Status = models.StatusScheduledRetry
		rec.RetryCount++
		rec.NextRetryAt = &nextAt
		return nil
	}); err != nil {
		// Keep the in-memory entry; the record is stale until the next
		// successful write but the retry itself is not lost.
		logging.Err(err).Str("operation_id", op.ID).Msg("persist scheduled retry")
	}

	heap.Push(&s.queue, entry)
	s.queued[op.ID] = true
	metrics.RetriesScheduled.WithLabelValues(string(op.Platform)).Inc()
	metrics.RetryQueueDepth.Set(float64(s.queue.Len()))

	logging.Debug().
		Str("operation_id", op.ID).
		Str("platform", string(op.Platform)).
		Dur("delay", delay).
		Int("retry_count", op.RetryCount+1).
		Msg("retry scheduled")
	return true
}

// CancelOp drops a queued retry for the given operation, if any. The
// heap entry is removed lazily at dispatch time.
func (s *Scheduler) CancelOp(operationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.queued, operationID)
}

// Pending reports whether operationID currently waits in the queue.
func (s *Scheduler) Pending(operationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queued[operationID]
}

// Serve runs the periodic scan until ctx is cancelled.
func (s *Scheduler) Serve(ctx context.Context) error {
	if s.dispatch == nil {
		return fmt.Errorf("retry scheduler started without a dispatch target")
	}
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	logging.Info().Dur("tick", s.cfg.TickInterval).Msg("retry scheduler started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runTick(ctx)
		case <-s.tickNow:
			s.runTick(ctx)
		}
	}
}

// Kick requests an immediate scan without waiting for the ticker.
func (s *Scheduler) Kick() {
	select {
	case s.tickNow <- struct{}{}:
	default:
	}
}

// runTick pops due entries, orders them by priority and dispatches up
// to the concurrency cap. Entries still rate-limited re-enter the queue
// with a fixed cooldown instead of exponential growth.
func (s *Scheduler) runTick(ctx context.Context) {
	now := s.nowFn()

	s.mu.Lock()
	var due []models.RetryQueueEntry
	for s.queue.Len() > 0 && !s.queue[0].ScheduledAt.After(now) {
		entry := heap.Pop(&s.queue).(models.RetryQueueEntry)
		if !s.queued[entry.OperationID] {
			// Cancelled while waiting.
			continue
		}
		due = append(due, entry)
	}

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].Priority > due[j].Priority
	})

	var launch []models.RetryQueueEntry
	for _, entry := range due {
		if len(launch) >= s.cfg.MaxConcurrentDispatch {
			// Over the cap: back in the queue for the next tick.
			heap.Push(&s.queue, entry)
			continue
		}
		if !s.limiter.Admit(entry.Platform) {
			entry.ScheduledAt = now.Add(s.cfg.RateLimitCooldown)
			heap.Push(&s.queue, entry)
			s.persistCooldown(ctx, entry)
			continue
		}
		delete(s.queued, entry.OperationID)
		launch = append(launch, entry)
	}
	metrics.RetryQueueDepth.Set(float64(s.queue.Len()))
	s.mu.Unlock()

	for _, entry := range launch {
		if _, err := s.store.UpdateSyncOperation(ctx, entry.OperationID, func(rec *models.SyncOperation) error {
			rec.Status = models.StatusRetrying
			rec.NextRetryAt = nil
			return nil
		}); err != nil {
			// A dispatch that cannot even mark the record fails the
			// operation outright; dispatch never retries itself.
			s.failDispatch(ctx, entry, err)
			continue
		}
		metrics.RetriesDispatched.WithLabelValues(string(entry.Platform)).Inc()
		go s.dispatch(ctx, entry.OperationID)
	}
}

func (s *Scheduler) persistCooldown(ctx context.Context, entry models.RetryQueueEntry) {
	at := entry.ScheduledAt
	if _, err := s.store.UpdateSyncOperation(ctx, entry.OperationID, func(rec *models.SyncOperation) error {
		rec.NextRetryAt = &at
		return nil
	}); err != nil {
		logging.Err(err).Str("operation_id", entry.OperationID).Msg("persist retry cooldown")
	}
	logging.Debug().
		Str("operation_id", entry.OperationID).
		Str("platform", string(entry.Platform)).
		Time("next_retry_at", at).
		Msg("retry still rate limited, cooling down")
}

func (s *Scheduler) failDispatch(ctx context.Context, entry models.RetryQueueEntry, cause error) {
	logging.Err(cause).Str("operation_id", entry.OperationID).Msg("retry dispatch failed")
	now := s.nowFn()
	if _, err := s.store.UpdateSyncOperation(ctx, entry.OperationID, func(rec *models.SyncOperation) error {
		rec.Status = models.StatusFailed
		rec.CompletedAt = &now
		rec.LastError = fmt.Sprintf("retry dispatch: %v", cause)
		rec.ErrorKind = string(models.KindInternal)
		return nil
	}); err != nil {
		logging.Err(err).Str("operation_id", entry.OperationID).Msg("persist dispatch failure")
	}
	metrics.SyncOperationsTotal.
		WithLabelValues(string(entry.Platform), string(models.StatusFailed)).Inc()
	if s.onTerminal != nil {
		s.onTerminal(ctx, entry.OperationID)
	}
}

// retryQueue is a min-heap over ScheduledAt so due entries surface
// first; priority ordering among due entries happens at dispatch.
type retryQueue []models.RetryQueueEntry

func (q retryQueue) Len() int            { return len(q) }
func (q retryQueue) Less(i, j int) bool  { return q[i].ScheduledAt.Before(q[j].ScheduledAt) }
func (q retryQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *retryQueue) Push(x any)         { *q = append(*q, x.(models.RetryQueueEntry)) }
func (q *retryQueue) Pop() any {
	old := *q
	n := len(old)
	entry := old[n-1]
	*q = old[:n-1]
	return entry
}
