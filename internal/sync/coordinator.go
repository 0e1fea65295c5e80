// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/menubridge/menubridge/internal/logging"
	"github.com/menubridge/menubridge/internal/metrics"
	"github.com/menubridge/menubridge/internal/models"
	"github.com/menubridge/menubridge/internal/platform"
	"github.com/menubridge/menubridge/internal/store"
)

var (
	// ErrUnknownPlatform rejects platforms outside the enabled set at
	// admission time, before any operation record exists.
	ErrUnknownPlatform = errors.New("unknown or disabled platform")

	// ErrJobNotFound is returned for status or cancel on a job id the
	// store does not know.
	ErrJobNotFound = errors.New("job not found")

	// ErrRetryCancelled rejects manual retry of a cancelled operation.
	ErrRetryCancelled = errors.New("cancelled operations cannot be retried")

	// ErrRetryNotFailed rejects manual retry of an operation that did
	// not finish as Failed.
	ErrRetryNotFailed = errors.New("only failed operations can be retried")
)

// Coordinator fans a sync request out to one runner per platform and
// folds their statuses back into one aggregate view. It owns the active
// registry of handles; each handle carries the cooperative cancellation
// flag for its operation.
type Coordinator struct {
	store     store.RecordStore
	registry  *platform.Registry
	runner    *Runner
	scheduler *Scheduler
	notifier  Notifier

	mu      gosync.Mutex
	handles map[string]*Handle

	baseCtx context.Context
}

// NewCoordinator wires the coordinator and binds the scheduler's
// dispatch path back through it, so retried operations settle through
// the same terminal bookkeeping as fresh ones.
func NewCoordinator(ctx context.Context, st store.RecordStore, reg *platform.Registry,
	runner *Runner, scheduler *Scheduler, notifier Notifier) *Coordinator {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	c := &Coordinator{
		store:     st,
		registry:  reg,
		runner:    runner,
		scheduler: scheduler,
		notifier:  notifier,
		handles:   make(map[string]*Handle),
		baseCtx:   ctx,
	}
	scheduler.Bind(c.dispatchRetry, func(ctx context.Context, id string) { c.onTerminal(ctx, id) })
	return c
}

// StartSingle creates and launches one sync operation. It returns the
// created record immediately; progress is observed via OperationStatus
// or the notifier.
func (c *Coordinator) StartSingle(ctx context.Context, menuID, companyID string, p models.Platform) (*models.SyncOperation, error) {
	if _, ok := c.registry.Get(p); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, p)
	}
	op, err := c.createOperation(ctx, menuID, companyID, "", p)
	if err != nil {
		return nil, err
	}
	c.launch(op.ID)
	return op, nil
}

// StartMulti creates a job with one operation per platform and launches
// them. Parallel mode launches one goroutine per platform; sequential
// mode runs them in request order and, with StopOnFirstError, stops
// launching after the first terminal failure.
func (c *Coordinator) StartMulti(ctx context.Context, menuID, companyID string,
	platforms []models.Platform, opts models.MultiSyncOptions) (*models.MultiSyncJob, error) {
	if len(platforms) == 0 {
		return nil, errors.New("no platforms requested")
	}
	seen := make(map[models.Platform]bool, len(platforms))
	for _, p := range platforms {
		if _, ok := c.registry.Get(p); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, p)
		}
		if seen[p] {
			return nil, fmt.Errorf("platform %s requested twice", p)
		}
		seen[p] = true
	}

	job := &models.MultiSyncJob{
		ID:              uuid.NewString(),
		MenuID:          menuID,
		CompanyID:       companyID,
		Platforms:       append([]models.Platform(nil), platforms...),
		IndividualSyncs: make(map[models.Platform]string, len(platforms)),
		OverallStatus:   models.JobInProgress,
		StartedAt:       time.Now().UTC(),
	}

	ops := make([]*models.SyncOperation, 0, len(platforms))
	for _, p := range platforms {
		op, err := c.createOperation(ctx, menuID, companyID, job.ID, p)
		if err != nil {
			return nil, err
		}
		job.IndividualSyncs[p] = op.ID
		ops = append(ops, op)
	}
	if err := c.store.CreateMultiSyncJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job record: %w", err)
	}

	logging.Info().
		Str("job_id", job.ID).
		Str("menu_id", menuID).
		Int("platforms", len(platforms)).
		Bool("parallel", opts.Parallel).
		Msg("multi-platform sync started")

	if opts.Parallel {
		for _, op := range ops {
			c.launch(op.ID)
		}
	} else {
		go c.runSequential(ops, opts.StopOnFirstError)
	}
	return job.Clone(), nil
}

// runSequential runs the members one after another in request order.
func (c *Coordinator) runSequential(ops []*models.SyncOperation, stopOnFirstError bool) {
	for i, op := range ops {
		h := c.handle(op.ID)
		if h == nil {
			continue
		}
		status := c.runner.Run(c.baseCtx, h)
		if status.Terminal() {
			c.onTerminal(c.baseCtx, op.ID)
		}
		if stopOnFirstError && status == models.StatusFailed {
			c.abandonRemaining(ops[i+1:])
			return
		}
	}
}

// abandonRemaining settles never-launched members as Cancelled so the
// job can reach a terminal aggregate.
func (c *Coordinator) abandonRemaining(ops []*models.SyncOperation) {
	now := time.Now()
	for _, op := range ops {
		if _, err := c.store.UpdateSyncOperation(c.baseCtx, op.ID, func(rec *models.SyncOperation) error {
			if rec.Status.Terminal() {
				return nil
			}
			rec.Status = models.StatusCancelled
			rec.CompletedAt = &now
			rec.LastError = "not launched: earlier platform failed"
			rec.ErrorKind = string(models.KindCancelled)
			return nil
		}); err != nil {
			logging.Err(err).Str("operation_id", op.ID).Msg("abandon unlaunched operation")
		}
		c.onTerminal(c.baseCtx, op.ID)
	}
}

// OperationStatus returns the latest persisted state of one operation.
func (c *Coordinator) OperationStatus(ctx context.Context, id string) (*models.SyncOperation, error) {
	return c.store.FindSyncOperation(ctx, id)
}

// Status computes the aggregate view of a job on demand from the record
// store. Operations are ordered by the fixed platform order, so two
// reads of unchanged state serialize identically.
func (c *Coordinator) Status(ctx context.Context, jobID string) (*models.MultiSyncStatus, error) {
	job, err := c.store.FindMultiSyncJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	agg := &models.MultiSyncStatus{
		JobID:       job.ID,
		MenuID:      job.MenuID,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}

	var progressSum int
	for _, p := range models.AllPlatforms {
		opID, ok := job.IndividualSyncs[p]
		if !ok {
			continue
		}
		op, err := c.store.FindSyncOperation(ctx, opID)
		if err != nil {
			return nil, fmt.Errorf("member operation %s: %w", opID, err)
		}
		agg.Operations = append(agg.Operations, op)
		agg.ItemsProcessed += op.ItemsProcessed
		progressSum += op.ProgressPercent

		switch op.Status {
		case models.StatusCompleted:
			agg.CompletedCount++
		case models.StatusFailed, models.StatusCancelled:
			agg.FailedCount++
		default:
			agg.PendingOrRetryingCount++
		}
	}

	n := len(agg.Operations)
	if n > 0 {
		agg.ProgressPercent = progressSum / n
	}
	agg.OverallStatus = aggregateStatus(agg)
	agg.EstimatedRemainingSecs = estimateRemaining(job.StartedAt, agg)
	return agg, nil
}

// aggregateStatus folds member statuses. Any terminal failure or
// cancellation fails the job; otherwise any non-terminal member keeps
// it in progress; all completed completes it.
func aggregateStatus(agg *models.MultiSyncStatus) models.JobStatus {
	if agg.FailedCount > 0 {
		return models.JobFailed
	}
	if agg.PendingOrRetryingCount > 0 {
		return models.JobInProgress
	}
	return models.JobCompleted
}

// estimateRemaining projects time left from elapsed time over the
// fraction complete. Zero once the job is terminal or before any
// progress exists.
func estimateRemaining(startedAt time.Time, agg *models.MultiSyncStatus) float64 {
	if agg.OverallStatus != models.JobInProgress || agg.ProgressPercent <= 0 {
		return 0
	}
	elapsed := time.Since(startedAt).Seconds()
	fraction := float64(agg.ProgressPercent) / 100
	remaining := elapsed/fraction - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Cancel requests cancellation of every non-terminal member of a job.
// Operations mid network-call finish that call and then finalize as
// Cancelled; queued retries are dropped and settled immediately.
func (c *Coordinator) Cancel(ctx context.Context, jobID string) error {
	job, err := c.store.FindMultiSyncJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrJobNotFound
		}
		return err
	}
	for _, opID := range job.IndividualSyncs {
		if err := c.CancelOperation(ctx, opID); err != nil {
			logging.Err(err).Str("operation_id", opID).Msg("cancel job member")
		}
	}
	return nil
}

// CancelOperation cancels one operation. Running attempts observe the
// flag at their next phase boundary; operations waiting in the retry
// queue or never launched settle as Cancelled right away.
func (c *Coordinator) CancelOperation(ctx context.Context, id string) error {
	op, err := c.store.FindSyncOperation(ctx, id)
	if err != nil {
		return err
	}
	if op.Status.Terminal() {
		return nil
	}

	if h := c.handle(id); h != nil {
		h.Cancel()
	}
	c.scheduler.CancelOp(id)

	// An attempt not currently executing never sees the flag; settle it
	// here. Running attempts win the race via their own terminal write,
	// which this patch then leaves alone.
	settled := false
	now := time.Now()
	updated, err := c.store.UpdateSyncOperation(ctx, id, func(rec *models.SyncOperation) error {
		if rec.Status.Terminal() || rec.Status == models.StatusInProgress || rec.Status == models.StatusRetrying {
			return nil
		}
		rec.Status = models.StatusCancelled
		rec.CompletedAt = &now
		rec.LastError = "cancelled by request"
		rec.ErrorKind = string(models.KindCancelled)
		settled = true
		return nil
	})
	if err != nil {
		return err
	}
	if settled {
		metrics.SyncOperationsTotal.
			WithLabelValues(string(updated.Platform), string(models.StatusCancelled)).Inc()
		c.publishOp(updated, "cancelled by request")
		c.onTerminal(ctx, id)
	}
	return nil
}

// RetryResult reports the outcome of one manual retry request.
type RetryResult struct {
	OperationID string `json:"operation_id"`
	Accepted    bool   `json:"accepted"`
	Reason      string `json:"reason,omitempty"`
}

// Retry re-queues previously failed operations. The retry counter is
// reset, which deliberately bypasses the MaxRetries ceiling; cancelled
// operations are rejected.
func (c *Coordinator) Retry(ctx context.Context, ids []string) []RetryResult {
	results := make([]RetryResult, 0, len(ids))
	for _, id := range ids {
		results = append(results, c.retryOne(ctx, id))
	}
	return results
}

func (c *Coordinator) retryOne(ctx context.Context, id string) RetryResult {
	op, err := c.store.FindSyncOperation(ctx, id)
	if err != nil {
		return RetryResult{OperationID: id, Reason: err.Error()}
	}
	switch op.Status {
	case models.StatusCancelled:
		return RetryResult{OperationID: id, Reason: ErrRetryCancelled.Error()}
	case models.StatusFailed:
	default:
		return RetryResult{OperationID: id, Reason: ErrRetryNotFailed.Error()}
	}

	updated, err := c.store.UpdateSyncOperation(ctx, id, func(rec *models.SyncOperation) error {
		rec.Status = models.StatusPending
		rec.ProgressPercent = 0
		rec.ItemsProcessed = 0
		rec.RetryCount = 0
		rec.NextRetryAt = nil
		rec.CompletedAt = nil
		rec.LastError = ""
		rec.ErrorKind = ""
		return nil
	})
	if err != nil {
		return RetryResult{OperationID: id, Reason: err.Error()}
	}

	// A manual retry may resurrect a settled job; flip it back so the
	// aggregate reflects the new attempt.
	if updated.JobID != "" {
		if _, err := c.store.UpdateMultiSyncJob(ctx, updated.JobID, func(job *models.MultiSyncJob) error {
			job.OverallStatus = models.JobInProgress
			job.CompletedAt = nil
			return nil
		}); err != nil && !errors.Is(err, store.ErrNotFound) {
			logging.Err(err).Str("job_id", updated.JobID).Msg("reopen job for manual retry")
		}
	}

	logging.Info().
		Str("operation_id", id).
		Str("platform", string(updated.Platform)).
		Msg("manual retry accepted")
	c.launch(id)
	return RetryResult{OperationID: id, Accepted: true}
}

// Operations proxies filtered history reads for the API layer.
func (c *Coordinator) Operations(ctx context.Context, filter store.OperationFilter) ([]*models.SyncOperation, error) {
	return c.store.FindOperations(ctx, filter)
}

// --- internals ---

func (c *Coordinator) createOperation(ctx context.Context, menuID, companyID, jobID string, p models.Platform) (*models.SyncOperation, error) {
	entry, _ := c.registry.Get(p)
	op := &models.SyncOperation{
		ID:         uuid.NewString(),
		Platform:   p,
		MenuID:     menuID,
		CompanyID:  companyID,
		JobID:      jobID,
		Status:     models.StatusPending,
		MaxRetries: entry.Config.MaxRetries,
		CreatedAt:  time.Now().UTC(),
	}
	if err := c.store.CreateSyncOperation(ctx, op); err != nil {
		return nil, fmt.Errorf("create operation record: %w", err)
	}
	c.mu.Lock()
	c.handles[op.ID] = &Handle{OperationID: op.ID}
	c.mu.Unlock()
	return op, nil
}

// launch runs one operation asynchronously.
func (c *Coordinator) launch(operationID string) {
	h := c.handle(operationID)
	if h == nil {
		h = &Handle{OperationID: operationID}
		c.mu.Lock()
		c.handles[operationID] = h
		c.mu.Unlock()
	}
	go func() {
		status := c.runner.Run(c.baseCtx, h)
		if status.Terminal() {
			c.onTerminal(c.baseCtx, operationID)
		}
	}()
}

// dispatchRetry is the scheduler's way back into the runner.
func (c *Coordinator) dispatchRetry(ctx context.Context, operationID string) {
	h := c.handle(operationID)
	if h == nil {
		// Handle lost (should only happen after cancellation settled
		// the operation); run with a fresh one so the record converges.
		h = &Handle{OperationID: operationID}
		c.mu.Lock()
		c.handles[operationID] = h
		c.mu.Unlock()
	}
	status := c.runner.Run(ctx, h)
	if status.Terminal() {
		c.onTerminal(ctx, operationID)
	}
}

func (c *Coordinator) handle(operationID string) *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handles[operationID]
}

// onTerminal releases the handle and, when the operation belongs to a
// job, settles the job once every member is terminal.
func (c *Coordinator) onTerminal(ctx context.Context, operationID string) {
	c.mu.Lock()
	delete(c.handles, operationID)
	c.mu.Unlock()

	op, err := c.store.FindSyncOperation(ctx, operationID)
	if err != nil || op.JobID == "" {
		return
	}

	job, err := c.store.FindMultiSyncJob(ctx, op.JobID)
	if err != nil {
		logging.Err(err).Str("job_id", op.JobID).Msg("load job for settlement")
		return
	}
	if job.OverallStatus != models.JobInProgress {
		return
	}

	failed := 0
	for _, memberID := range job.IndividualSyncs {
		member, err := c.store.FindSyncOperation(ctx, memberID)
		if err != nil {
			logging.Err(err).Str("operation_id", memberID).Msg("load member for settlement")
			return
		}
		if !member.Status.Terminal() {
			return
		}
		if member.Status != models.StatusCompleted {
			failed++
		}
	}

	final := models.JobCompleted
	if failed > 0 {
		final = models.JobFailed
	}
	now := time.Now()
	settledJob, err := c.store.UpdateMultiSyncJob(ctx, job.ID, func(rec *models.MultiSyncJob) error {
		if rec.OverallStatus != models.JobInProgress {
			return nil
		}
		rec.OverallStatus = final
		rec.CompletedAt = &now
		return nil
	})
	if err != nil {
		logging.Err(err).Str("job_id", job.ID).Msg("settle job")
		return
	}
	metrics.MultiSyncJobsTotal.WithLabelValues(string(final)).Inc()
	logging.Info().
		Str("job_id", job.ID).
		Str("status", string(final)).
		Int("failed_members", failed).
		Msg("multi-platform sync settled")
	c.notifier.Publish(settledJob.CompanyID, models.ProgressEvent{
		JobID:     settledJob.ID,
		CompanyID: settledJob.CompanyID,
		Status:    jobEventStatus(final),
		Message:   "job " + string(final),
		Timestamp: now.UTC(),
	})
}

// jobEventStatus maps a job status onto the operation status vocabulary
// used by progress events.
func jobEventStatus(s models.JobStatus) models.SyncStatus {
	if s == models.JobCompleted {
		return models.StatusCompleted
	}
	return models.StatusFailed
}

func (c *Coordinator) publishOp(op *models.SyncOperation, message string) {
	c.notifier.Publish(op.CompanyID, models.ProgressEvent{
		JobID:           op.JobID,
		SyncID:          op.ID,
		CompanyID:       op.CompanyID,
		Platform:        op.Platform,
		Status:          op.Status,
		ProgressPercent: op.ProgressPercent,
		RetryCount:      op.RetryCount,
		Message:         message,
		Timestamp:       time.Now().UTC(),
	})
}

// ActiveHandles reports how many operations the coordinator currently
// tracks. Used by tests and the health endpoint.
func (c *Coordinator) ActiveHandles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles)
}
