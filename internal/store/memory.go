// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/menubridge/menubridge/internal/models"
)

// MemoryStore is an in-process RecordStore for tests and ephemeral
// deployments. Same semantics as the Badger store, no durability.
type MemoryStore struct {
	mu   sync.RWMutex
	ops  map[string]*models.SyncOperation
	jobs map[string]*models.MultiSyncJob
}

var _ RecordStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ops:  make(map[string]*models.SyncOperation),
		jobs: make(map[string]*models.MultiSyncJob),
	}
}

// CreateSyncOperation stores a new operation record.
func (s *MemoryStore) CreateSyncOperation(ctx context.Context, op *models.SyncOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ops[op.ID]; ok {
		return ErrAlreadyExists
	}
	s.ops[op.ID] = op.Clone()
	return nil
}

// UpdateSyncOperation applies patch under the store lock and returns the
// updated record.
func (s *MemoryStore) UpdateSyncOperation(ctx context.Context, id string, patch func(*models.SyncOperation) error) (*models.SyncOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.ops[id]
	if !ok {
		return nil, ErrNotFound
	}
	updated := op.Clone()
	if err := patch(updated); err != nil {
		return nil, err
	}
	s.ops[id] = updated
	return updated.Clone(), nil
}

// FindSyncOperation returns a copy of the record.
func (s *MemoryStore) FindSyncOperation(ctx context.Context, id string) (*models.SyncOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.ops[id]
	if !ok {
		return nil, ErrNotFound
	}
	return op.Clone(), nil
}

// FindOperations returns matching records ordered by CreatedAt then ID,
// so repeated reads of unchanged state are byte-identical.
func (s *MemoryStore) FindOperations(ctx context.Context, filter OperationFilter) ([]*models.SyncOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.SyncOperation
	for _, op := range s.ops {
		if filter.Matches(op) {
			out = append(out, op.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CreateMultiSyncJob stores a new job record.
func (s *MemoryStore) CreateMultiSyncJob(ctx context.Context, job *models.MultiSyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return ErrAlreadyExists
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

// UpdateMultiSyncJob applies patch under the store lock.
func (s *MemoryStore) UpdateMultiSyncJob(ctx context.Context, id string, patch func(*models.MultiSyncJob) error) (*models.MultiSyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	updated := job.Clone()
	if err := patch(updated); err != nil {
		return nil, err
	}
	s.jobs[id] = updated
	return updated.Clone(), nil
}

// FindMultiSyncJob returns a copy of the job record.
func (s *MemoryStore) FindMultiSyncJob(ctx context.Context, id string) (*models.MultiSyncJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return job.Clone(), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
