// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/menubridge/menubridge/internal/logging"
	"github.com/menubridge/menubridge/internal/menu"
	"github.com/menubridge/menubridge/internal/metrics"
	"github.com/menubridge/menubridge/internal/models"
	"github.com/menubridge/menubridge/internal/platform"
	"github.com/menubridge/menubridge/internal/store"
)

// errAlreadySettled aborts an update whose record turned terminal
// between load and write.
var errAlreadySettled = errors.New("operation already settled")

// Handle is the coordinator's grip on one launched operation. The
// cancellation flag is cooperative: the runner checks it between phases,
// so a platform call already in flight completes and its result is
// recorded for audit before the operation finalizes as Cancelled.
type Handle struct {
	OperationID string
	cancelled   atomic.Bool
}

// Cancel requests cancellation at the next phase boundary.
func (h *Handle) Cancel() { h.cancelled.Store(true) }

// Cancelled reports whether cancellation was requested.
func (h *Handle) Cancelled() bool { return h.cancelled.Load() }

// Runner executes one platform push end to end: gate, fetch, validate,
// transform, call. Each phase commits its state to the record store
// before the next starts and reports a progress checkpoint, so a crash
// between phases leaves a stale but consistent record.
type Runner struct {
	store     store.RecordStore
	menus     menu.Provider
	registry  *platform.Registry
	limiter   *Limiter
	breakers  *BreakerSet
	scheduler *Scheduler
	notifier  Notifier
}

// NewRunner wires the runner's collaborators.
func NewRunner(st store.RecordStore, menus menu.Provider, reg *platform.Registry,
	limiter *Limiter, breakers *BreakerSet, scheduler *Scheduler, notifier Notifier) *Runner {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Runner{
		store:     st,
		menus:     menus,
		registry:  reg,
		limiter:   limiter,
		breakers:  breakers,
		scheduler: scheduler,
		notifier:  notifier,
	}
}

// Run executes one attempt for the operation behind h and returns the
// status the attempt ended in: a terminal status, or ScheduledRetry
// when the operation was handed back to the scheduler. Every error is
// classified before it surfaces; nothing escapes to the coordinator as
// an unclassified failure.
func (r *Runner) Run(ctx context.Context, h *Handle) models.SyncStatus {
	op, err := r.store.FindSyncOperation(ctx, h.OperationID)
	if err != nil {
		logging.Err(err).Str("operation_id", h.OperationID).Msg("load operation for run")
		return models.StatusFailed
	}
	if op.Status.Terminal() {
		// Settled while waiting in a goroutine queue; nothing to do.
		return op.Status
	}

	entry, ok := r.registry.Get(op.Platform)
	if !ok {
		return r.failTerminal(ctx, op, models.NewSyncError(models.KindPermanent, op.Platform,
			fmt.Errorf("platform %q not enabled", op.Platform)))
	}

	metrics.SyncOperationsActive.Inc()
	defer metrics.SyncOperationsActive.Dec()
	started := time.Now()
	defer metrics.ObserveSyncDuration(string(op.Platform), started)

	// Checkpoint 0: attempt start. A retry resets progress to zero with
	// status Retrying, which observers treat as a new-attempt marker.
	attemptStatus := models.StatusInProgress
	message := "sync started"
	if op.RetryCount > 0 {
		attemptStatus = models.StatusRetrying
		message = fmt.Sprintf("retry attempt %d started", op.RetryCount)
	}
	now := time.Now()
	op, err = r.store.UpdateSyncOperation(ctx, op.ID, func(rec *models.SyncOperation) error {
		// A cancel can settle the record between our load and this
		// write; terminal records stay untouched.
		if rec.Status.Terminal() {
			return errAlreadySettled
		}
		rec.Status = attemptStatus
		rec.ProgressPercent = 0
		rec.ItemsProcessed = 0
		rec.StartedAt = &now
		rec.NextRetryAt = nil
		return nil
	})
	if errors.Is(err, errAlreadySettled) {
		if settled, ferr := r.store.FindSyncOperation(ctx, h.OperationID); ferr == nil {
			return settled.Status
		}
		return models.StatusCancelled
	}
	if err != nil {
		return r.failPersist(ctx, h.OperationID, err)
	}
	r.publish(op, message, nil)

	if h.Cancelled() {
		return r.finalizeCancelled(ctx, op, 0, "cancelled before admission")
	}

	// Gate: breaker then limiter. Denial is not a failure of the
	// attempt; the operation goes back to the scheduler.
	if !r.breakers.CanAttempt(op.Platform) {
		return r.scheduleRetry(ctx, op, models.NewSyncError(models.KindAdmission, op.Platform,
			errors.New("circuit breaker open")))
	}
	if !r.limiter.Admit(op.Platform) {
		return r.scheduleRetry(ctx, op, models.NewSyncError(models.KindAdmission, op.Platform,
			errors.New("rate limit window full")))
	}

	// Fetch the authoritative snapshot. Retries re-read it, so a retry
	// pushes the menu as it is now.
	snap, err := r.menus.GetMenuForSync(ctx, op.MenuID)
	if err != nil {
		if errors.Is(err, menu.ErrMenuNotFound) {
			return r.failTerminal(ctx, op, models.NewSyncError(models.KindValidation, op.Platform,
				fmt.Errorf("menu %s: %w", op.MenuID, err)))
		}
		return r.failTerminal(ctx, op, models.NewSyncError(models.KindInternal, op.Platform,
			fmt.Errorf("fetch menu snapshot: %w", err)))
	}
	if op, err = r.checkpoint(ctx, op, 20, "menu snapshot fetched"); err != nil {
		return r.failPersist(ctx, h.OperationID, err)
	}
	if h.Cancelled() {
		return r.finalizeCancelled(ctx, op, 0, "cancelled after fetch")
	}

	// Validate. Errors are bad input data and do not heal on retry.
	result := entry.Adapter.Validate(snap)
	for _, warn := range result.Warnings {
		logging.Warn().
			Str("operation_id", op.ID).
			Str("platform", string(op.Platform)).
			Str("field", warn.Field).
			Msg(warn.Message)
	}
	if !result.OK() {
		msgs := make([]string, 0, len(result.Errors))
		for _, issue := range result.Errors {
			msgs = append(msgs, issue.Field+": "+issue.Message)
		}
		return r.failTerminalWith(ctx, op, models.NewSyncError(models.KindValidation, op.Platform,
			errors.New(strings.Join(msgs, "; "))), msgs)
	}
	if op, err = r.checkpoint(ctx, op, 40, "validation passed"); err != nil {
		return r.failPersist(ctx, h.OperationID, err)
	}
	if h.Cancelled() {
		return r.finalizeCancelled(ctx, op, 0, "cancelled after validation")
	}

	// Transform to the platform payload.
	payload, err := entry.Adapter.Transform(snap)
	if err != nil {
		return r.failTerminal(ctx, op, models.NewSyncError(models.KindInternal, op.Platform,
			fmt.Errorf("transform payload: %w", err)))
	}
	if op, err = r.checkpoint(ctx, op, 80, "payload transformed"); err != nil {
		return r.failPersist(ctx, h.OperationID, err)
	}
	if h.Cancelled() {
		return r.finalizeCancelled(ctx, op, 0, "cancelled before platform call")
	}

	// Call the platform through the breaker so success and failure are
	// recorded exactly once per real attempt.
	method, path := entry.Adapter.PushRequest(op.MenuID)
	var resp *platform.Response
	callErr := r.breakers.Do(op.Platform, func() error {
		var err error
		resp, err = entry.Client.Call(ctx, method, path, payload)
		return err
	})

	if callErr == nil {
		items := entry.Adapter.ItemsProcessed(resp, snap.ItemCount())
		if h.Cancelled() {
			// The call went through; record its result for audit but
			// the operation still finalizes as Cancelled.
			return r.finalizeCancelled(ctx, op, items, "cancelled during platform call")
		}
		return r.complete(ctx, op, items)
	}

	if h.Cancelled() {
		return r.finalizeCancelled(ctx, op, 0, "cancelled during platform call")
	}

	if models.Retryable(callErr) {
		return r.scheduleRetry(ctx, op, callErr)
	}
	return r.failTerminal(ctx, op, callErr)
}

// checkpoint persists a progress percentage and publishes the event.
func (r *Runner) checkpoint(ctx context.Context, op *models.SyncOperation, percent int, message string) (*models.SyncOperation, error) {
	updated, err := r.store.UpdateSyncOperation(ctx, op.ID, func(rec *models.SyncOperation) error {
		rec.ProgressPercent = percent
		return nil
	})
	if err != nil {
		return op, err
	}
	r.publish(updated, message, nil)
	return updated, nil
}

// scheduleRetry hands the operation to the scheduler. A refused
// schedule means the retry budget is exhausted and the failure becomes
// terminal.
func (r *Runner) scheduleRetry(ctx context.Context, op *models.SyncOperation, cause error) models.SyncStatus {
	if r.scheduler.Schedule(ctx, op, 0) {
		updated, err := r.store.FindSyncOperation(ctx, op.ID)
		if err != nil {
			updated = op
		}
		r.publish(updated, fmt.Sprintf("retry scheduled: %v", cause), nil)
		return models.StatusScheduledRetry
	}
	return r.failTerminal(ctx, op, fmt.Errorf("retry budget exhausted (%d/%d): %w",
		op.RetryCount, op.MaxRetries, cause))
}

func (r *Runner) complete(ctx context.Context, op *models.SyncOperation, items int) models.SyncStatus {
	now := time.Now()
	updated, err := r.store.UpdateSyncOperation(ctx, op.ID, func(rec *models.SyncOperation) error {
		rec.Status = models.StatusCompleted
		rec.ProgressPercent = 100
		rec.ItemsProcessed = items
		rec.CompletedAt = &now
		rec.LastError = ""
		rec.ErrorKind = ""
		return nil
	})
	if err != nil {
		return r.failPersist(ctx, op.ID, err)
	}
	metrics.SyncOperationsTotal.
		WithLabelValues(string(op.Platform), string(models.StatusCompleted)).Inc()
	metrics.SyncItemsProcessed.WithLabelValues(string(op.Platform)).Add(float64(items))
	logging.Info().
		Str("operation_id", op.ID).
		Str("platform", string(op.Platform)).
		Int("items_processed", items).
		Msg("sync completed")
	r.publish(updated, "sync completed", nil)
	return models.StatusCompleted
}

func (r *Runner) failTerminal(ctx context.Context, op *models.SyncOperation, cause error) models.SyncStatus {
	return r.failTerminalWith(ctx, op, cause, nil)
}

func (r *Runner) failTerminalWith(ctx context.Context, op *models.SyncOperation, cause error, errs []string) models.SyncStatus {
	kind := models.KindOf(cause)
	now := time.Now()
	updated, err := r.store.UpdateSyncOperation(ctx, op.ID, func(rec *models.SyncOperation) error {
		rec.Status = models.StatusFailed
		rec.CompletedAt = &now
		rec.LastError = cause.Error()
		rec.ErrorKind = string(kind)
		return nil
	})
	if err != nil {
		logging.Err(err).Str("operation_id", op.ID).Msg("persist terminal failure")
		updated = op
	}
	metrics.SyncOperationsTotal.
		WithLabelValues(string(op.Platform), string(models.StatusFailed)).Inc()
	logging.Err(cause).
		Str("operation_id", op.ID).
		Str("platform", string(op.Platform)).
		Str("kind", string(kind)).
		Msg("sync failed")
	r.publish(updated, "sync failed", errs)
	return models.StatusFailed
}

func (r *Runner) finalizeCancelled(ctx context.Context, op *models.SyncOperation, items int, message string) models.SyncStatus {
	now := time.Now()
	updated, err := r.store.UpdateSyncOperation(ctx, op.ID, func(rec *models.SyncOperation) error {
		rec.Status = models.StatusCancelled
		rec.CompletedAt = &now
		rec.ItemsProcessed = items
		rec.LastError = message
		rec.ErrorKind = string(models.KindCancelled)
		return nil
	})
	if err != nil {
		logging.Err(err).Str("operation_id", op.ID).Msg("persist cancellation")
		updated = op
	}
	metrics.SyncOperationsTotal.
		WithLabelValues(string(op.Platform), string(models.StatusCancelled)).Inc()
	logging.Info().
		Str("operation_id", op.ID).
		Str("platform", string(op.Platform)).
		Msg("sync cancelled")
	r.publish(updated, message, nil)
	return models.StatusCancelled
}

// failPersist covers record-store faults mid-run: the runner cannot
// trust its own state anymore, so it makes a best-effort terminal write
// and reports Failed.
func (r *Runner) failPersist(ctx context.Context, operationID string, cause error) models.SyncStatus {
	logging.Err(cause).Str("operation_id", operationID).Msg("persist phase state")
	now := time.Now()
	updated, err := r.store.UpdateSyncOperation(ctx, operationID, func(rec *models.SyncOperation) error {
		rec.Status = models.StatusFailed
		rec.CompletedAt = &now
		rec.LastError = fmt.Sprintf("record store: %v", cause)
		rec.ErrorKind = string(models.KindInternal)
		return nil
	})
	if err == nil && updated != nil {
		r.publish(updated, "sync failed", nil)
		metrics.SyncOperationsTotal.
			WithLabelValues(string(updated.Platform), string(models.StatusFailed)).Inc()
	}
	return models.StatusFailed
}

func (r *Runner) publish(op *models.SyncOperation, message string, errs []string) {
	r.notifier.Publish(op.CompanyID, models.ProgressEvent{
		JobID:           op.JobID,
		SyncID:          op.ID,
		CompanyID:       op.CompanyID,
		Platform:        op.Platform,
		Status:          op.Status,
		ProgressPercent: op.ProgressPercent,
		ItemsProcessed:  op.ItemsProcessed,
		RetryCount:      op.RetryCount,
		Message:         message,
		Errors:          errs,
		Timestamp:       time.Now().UTC(),
	})
}
