// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/menubridge/menubridge/internal/models"
)

// Key prefixes for BadgerDB storage.
const (
	opKeyPrefix  = "syncop:"
	jobKeyPrefix = "syncjob:"
)

// BadgerStore implements RecordStore on BadgerDB. Suitable for
// production: operation results survive restarts, which the startup
// reconciliation sweep relies on.
type BadgerStore struct {
	db *badger.DB
}

var _ RecordStore = (*BadgerStore)(nil)

// NewBadgerStore wraps an already-opened Badger database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// OpenBadger opens (or creates) the Badger directory and returns a
// store over it.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return NewBadgerStore(db), nil
}

// DB exposes the underlying database so other components (the menu
// provider) can share the same Badger directory.
func (s *BadgerStore) DB() *badger.DB {
	return s.db
}

func opKey(id string) []byte  { return []byte(opKeyPrefix + id) }
func jobKey(id string) []byte { return []byte(jobKeyPrefix + id) }

// CreateSyncOperation stores a new operation record.
func (s *BadgerStore) CreateSyncOperation(ctx context.Context, op *models.SyncOperation) error {
	data, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("marshal operation: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		key := opKey(op.ID)
		if _, err := txn.Get(key); err == nil {
			return ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check operation: %w", err)
		}
		return txn.Set(key, data)
	})
}

// UpdateSyncOperation applies patch inside one Badger transaction so
// concurrent writers on the same record serialize through the store.
func (s *BadgerStore) UpdateSyncOperation(ctx context.Context, id string, patch func(*models.SyncOperation) error) (*models.SyncOperation, error) {
	var updated *models.SyncOperation
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(opKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get operation: %w", err)
		}

		var op models.SyncOperation
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &op)
		}); err != nil {
			return fmt.Errorf("unmarshal operation: %w", err)
		}

		if err := patch(&op); err != nil {
			return err
		}

		data, err := json.Marshal(&op)
		if err != nil {
			return fmt.Errorf("marshal operation: %w", err)
		}
		if err := txn.Set(opKey(id), data); err != nil {
			return fmt.Errorf("set operation: %w", err)
		}
		updated = &op
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// FindSyncOperation retrieves one operation by id.
func (s *BadgerStore) FindSyncOperation(ctx context.Context, id string) (*models.SyncOperation, error) {
	var op models.SyncOperation
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(opKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get operation: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &op)
		})
	})
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// FindOperations scans the operation prefix and filters in-process.
// Records store keys are ordered, so iteration order (and therefore the
// result) is stable across identical reads.
func (s *BadgerStore) FindOperations(ctx context.Context, filter OperationFilter) ([]*models.SyncOperation, error) {
	var out []*models.SyncOperation
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(opKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var op models.SyncOperation
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &op)
			}); err != nil {
				return fmt.Errorf("unmarshal %s: %w", it.Item().Key(), err)
			}
			if filter.Matches(&op) {
				cp := op
				out = append(out, &cp)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateMultiSyncJob stores a new job record.
func (s *BadgerStore) CreateMultiSyncJob(ctx context.Context, job *models.MultiSyncJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		key := jobKey(job.ID)
		if _, err := txn.Get(key); err == nil {
			return ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check job: %w", err)
		}
		return txn.Set(key, data)
	})
}

// UpdateMultiSyncJob applies patch inside one transaction.
func (s *BadgerStore) UpdateMultiSyncJob(ctx context.Context, id string, patch func(*models.MultiSyncJob) error) (*models.MultiSyncJob, error) {
	var updated *models.MultiSyncJob
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(jobKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get job: %w", err)
		}

		var job models.MultiSyncJob
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &job)
		}); err != nil {
			return fmt.Errorf("unmarshal job: %w", err)
		}

		if err := patch(&job); err != nil {
			return err
		}

		data, err := json.Marshal(&job)
		if err != nil {
			return fmt.Errorf("marshal job: %w", err)
		}
		if err := txn.Set(jobKey(id), data); err != nil {
			return fmt.Errorf("set job: %w", err)
		}
		updated = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// FindMultiSyncJob retrieves one job by id.
func (s *BadgerStore) FindMultiSyncJob(ctx context.Context, id string) (*models.MultiSyncJob, error) {
	var job models.MultiSyncJob
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(jobKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get job: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &job)
		})
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Close closes the underlying Badger database.
func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil && !strings.Contains(err.Error(), "already closed") {
		return err
	}
	return nil
}
