// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package models

import "time"

// ProgressEvent is published through the progress notifier after every
// checkpoint and state transition of a sync operation.
//
// Within one attempt ProgressPercent is non-decreasing. A retry starts a
// new attempt: progress resets to 0 with Status Retrying, which observers
// must treat as a new-attempt marker, not a regression.
type ProgressEvent struct {
	JobID     string   `json:"job_id,omitempty"`
	SyncID    string   `json:"sync_id"`
	CompanyID string   `json:"company_id"`
	Platform  Platform `json:"platform"`

	Status          SyncStatus `json:"status"`
	ProgressPercent int        `json:"progress_percent"`
	ItemsProcessed  int        `json:"items_processed,omitempty"`
	RetryCount      int        `json:"retry_count,omitempty"`

	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}
