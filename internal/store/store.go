// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package store

import (
	"context"
	"errors"
	"time"

	"github.com/menubridge/menubridge/internal/models"
)

// Sentinel errors shared by all store implementations.
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

// OperationFilter narrows FindOperations. Zero values mean "any".
type OperationFilter struct {
	CompanyID string
	Platform  models.Platform
	Status    models.SyncStatus
	From      time.Time
	To        time.Time
}

// Matches reports whether op satisfies the filter.
func (f OperationFilter) Matches(op *models.SyncOperation) bool {
	if f.CompanyID != "" && op.CompanyID != f.CompanyID {
		return false
	}
	if f.Platform != "" && op.Platform != f.Platform {
		return false
	}
	if f.Status != "" && op.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && op.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && op.CreatedAt.After(f.To) {
		return false
	}
	return true
}

// RecordStore persists sync operations and multi-sync jobs. It is the
// single authoritative state: both the pull (getStatus) and push
// (notifier) views read from here, so they cannot diverge.
//
// Updates go through a patch function applied inside the store's own
// transaction/lock, which keeps concurrent runner and scheduler writers
// from clobbering each other.
type RecordStore interface {
	CreateSyncOperation(ctx context.Context, op *models.SyncOperation) error
	UpdateSyncOperation(ctx context.Context, id string, patch func(*models.SyncOperation) error) (*models.SyncOperation, error)
	FindSyncOperation(ctx context.Context, id string) (*models.SyncOperation, error)
	FindOperations(ctx context.Context, filter OperationFilter) ([]*models.SyncOperation, error)

	CreateMultiSyncJob(ctx context.Context, job *models.MultiSyncJob) error
	UpdateMultiSyncJob(ctx context.Context, id string, patch func(*models.MultiSyncJob) error) (*models.MultiSyncJob, error)
	FindMultiSyncJob(ctx context.Context, id string) (*models.MultiSyncJob, error)

	Close() error
}
