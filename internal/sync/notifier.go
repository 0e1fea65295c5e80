// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package sync

import "github.com/menubridge/menubridge/internal/models"

// Notifier receives a progress event after every checkpoint and state
// transition of a sync operation, keyed by the owning company.
//
// Publish must not block the runner: slow transports buffer or drop on
// their side. The push view is derived from the same store writes that
// back the pull (status) view, so the two cannot diverge.
type Notifier interface {
	Publish(companyID string, event models.ProgressEvent)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) Publish(string, models.ProgressEvent) {}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(companyID string, event models.ProgressEvent)

func (f NotifierFunc) Publish(companyID string, event models.ProgressEvent) {
	f(companyID, event)
}
