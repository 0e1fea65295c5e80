// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package models

import "time"

// SyncStatus is the lifecycle state of a single sync operation.
type SyncStatus string

const (
	StatusPending        SyncStatus = "pending"
	StatusInProgress     SyncStatus = "in_progress"
	StatusScheduledRetry SyncStatus = "scheduled_retry"
	StatusRetrying       SyncStatus = "retrying"
	StatusCompleted      SyncStatus = "completed"
	StatusFailed         SyncStatus = "failed"
	StatusCancelled      SyncStatus = "cancelled"
)

// Terminal reports whether the status is final. Terminal operations are
// immutable and removed from any active-set membership.
func (s SyncStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// JobStatus is the aggregate state of a multi-platform sync job.
type JobStatus string

const (
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// SyncOperation is one attempt to push one menu to one platform.
//
// Created by the coordinator when a platform is admitted; mutated only by
// the runner and the retry scheduler. Once Status is terminal the record
// is never modified again (manual retry creates a fresh attempt by
// resetting the counters through the coordinator, which is the documented
// exception for previously Failed operations).
type SyncOperation struct {
	ID        string   `json:"id"`
	Platform  Platform `json:"platform"`
	MenuID    string   `json:"menu_id"`
	CompanyID string   `json:"company_id"`
	JobID     string   `json:"job_id,omitempty"`

	Status          SyncStatus `json:"status"`
	ProgressPercent int        `json:"progress_percent"`
	ItemsProcessed  int        `json:"items_processed"`

	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	LastError string `json:"last_error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// Clone returns a deep copy. Status reads hand out copies so callers can
// never mutate the store's view.
func (op *SyncOperation) Clone() *SyncOperation {
	c := *op
	if op.NextRetryAt != nil {
		t := *op.NextRetryAt
		c.NextRetryAt = &t
	}
	if op.StartedAt != nil {
		t := *op.StartedAt
		c.StartedAt = &t
	}
	if op.CompletedAt != nil {
		t := *op.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// MultiSyncJob groups sync operations launched together for one menu.
type MultiSyncJob struct {
	ID        string `json:"id"`
	MenuID    string `json:"menu_id"`
	CompanyID string `json:"company_id"`

	Platforms       []Platform          `json:"platforms"`
	IndividualSyncs map[Platform]string `json:"individual_syncs"`

	OverallStatus JobStatus  `json:"overall_status"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy of the job.
func (j *MultiSyncJob) Clone() *MultiSyncJob {
	c := *j
	c.Platforms = append([]Platform(nil), j.Platforms...)
	c.IndividualSyncs = make(map[Platform]string, len(j.IndividualSyncs))
	for k, v := range j.IndividualSyncs {
		c.IndividualSyncs[k] = v
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// MultiSyncOptions controls how a multi-platform job is launched.
type MultiSyncOptions struct {
	// Parallel launches one goroutine per platform. Default true.
	Parallel bool `json:"parallel"`

	// StopOnFirstError halts launching further platforms once one
	// member reaches Failed. Only meaningful in sequential mode.
	StopOnFirstError bool `json:"stop_on_first_error"`
}

// DefaultMultiSyncOptions returns the documented defaults.
func DefaultMultiSyncOptions() MultiSyncOptions {
	return MultiSyncOptions{Parallel: true}
}

// MultiSyncStatus is the on-demand aggregate view of a job. It is
// computed from the authoritative record store, never cached separately,
// so the pull (getStatus) and push (notifier) views cannot diverge.
type MultiSyncStatus struct {
	JobID         string     `json:"job_id"`
	MenuID        string     `json:"menu_id"`
	OverallStatus JobStatus  `json:"overall_status"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`

	// Operations is keyed in AllPlatforms order for byte-identical
	// repeated reads of unchanged state.
	Operations []*SyncOperation `json:"operations"`

	ItemsProcessed          int     `json:"items_processed"`
	ProgressPercent         int     `json:"progress_percent"`
	EstimatedRemainingSecs  float64 `json:"estimated_remaining_seconds"`
	CompletedCount          int     `json:"completed_count"`
	FailedCount             int     `json:"failed_count"`
	PendingOrRetryingCount  int     `json:"pending_or_retrying_count"`
}

// RetryQueueEntry is an operation waiting for delayed re-admission.
// Owned exclusively by the retry scheduler; removed once dispatched or
// cancelled.
type RetryQueueEntry struct {
	OperationID string    `json:"operation_id"`
	Platform    Platform  `json:"platform"`
	ScheduledAt time.Time `json:"scheduled_at"`

	// Priority is higher for operations with fewer prior retries, so
	// fresh failures are retried ahead of repeat offenders.
	Priority int `json:"priority"`
}

// CircuitState mirrors the three canonical breaker states for status
// reporting.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// CircuitBreakerSnapshot is a point-in-time view of one platform breaker.
type CircuitBreakerSnapshot struct {
	Platform     Platform     `json:"platform"`
	State        CircuitState `json:"state"`
	FailureCount uint32       `json:"failure_count"`
	SuccessCount uint32       `json:"success_count"`
}

// RateLimiterSnapshot is a point-in-time view of one platform admission
// window.
type RateLimiterSnapshot struct {
	Platform     Platform   `json:"platform"`
	WindowMS     int64      `json:"window_ms"`
	MaxRequests  int        `json:"max_requests"`
	InWindow     int        `json:"in_window"`
	BlockedUntil *time.Time `json:"blocked_until,omitempty"`
}
