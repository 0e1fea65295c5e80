// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package notify

import (
	"github.com/menubridge/menubridge/internal/models"
	syncengine "github.com/menubridge/menubridge/internal/sync"
)

// Fanout dispatches every event to each sink in order. Sinks are
// responsible for their own backpressure handling; the fanout itself
// never blocks beyond what a sink does.
type Fanout struct {
	sinks []syncengine.Notifier
}

// NewFanout builds a fanout over the given sinks. Nil sinks are
// skipped, which keeps wiring code free of conditionals for optional
// transports.
func NewFanout(sinks ...syncengine.Notifier) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

func (f *Fanout) Publish(companyID string, event models.ProgressEvent) {
	for _, s := range f.sinks {
		s.Publish(companyID, event)
	}
}
