// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

// Package menu provides the snapshot source consumed by the sync runner.
// Menu editing itself lives in the surrounding web application; the
// engine only ever reads the current snapshot for a menu id.
package menu

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/menubridge/menubridge/internal/models"
)

// ErrMenuNotFound is returned when no snapshot exists for a menu id.
var ErrMenuNotFound = errors.New("menu not found")

// Provider fetches the authoritative menu snapshot at the start of each
// sync attempt.
type Provider interface {
	GetMenuForSync(ctx context.Context, menuID string) (*models.MenuSnapshot, error)
}

const menuKeyPrefix = "menu:"

// BadgerProvider reads snapshots the surrounding application writes into
// the shared Badger database.
type BadgerProvider struct {
	db *badger.DB
}

var _ Provider = (*BadgerProvider)(nil)

// NewBadgerProvider wraps an opened Badger database.
func NewBadgerProvider(db *badger.DB) *BadgerProvider {
	return &BadgerProvider{db: db}
}

// GetMenuForSync loads the snapshot for menuID.
func (p *BadgerProvider) GetMenuForSync(ctx context.Context, menuID string) (*models.MenuSnapshot, error) {
	var snap models.MenuSnapshot
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(menuKeyPrefix + menuID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrMenuNotFound
		}
		if err != nil {
			return fmt.Errorf("get menu: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// PutMenu stores a snapshot. Exposed for seeding and tests.
func (p *BadgerProvider) PutMenu(ctx context.Context, snap *models.MenuSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal menu: %w", err)
	}
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(menuKeyPrefix+snap.MenuID), data)
	})
}

// StaticProvider serves snapshots from memory. Used in tests and as a
// seed source for demos.
type StaticProvider struct {
	mu    sync.RWMutex
	menus map[string]*models.MenuSnapshot
}

var _ Provider = (*StaticProvider)(nil)

// NewStaticProvider returns an empty in-memory provider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{menus: make(map[string]*models.MenuSnapshot)}
}

// Put registers or replaces a snapshot.
func (p *StaticProvider) Put(snap *models.MenuSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.menus[snap.MenuID] = snap
}

// GetMenuForSync returns the registered snapshot for menuID.
func (p *StaticProvider) GetMenuForSync(ctx context.Context, menuID string) (*models.MenuSnapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snap, ok := p.menus[menuID]
	if !ok {
		return nil, ErrMenuNotFound
	}
	return snap, nil
}
