// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/menubridge/menubridge/internal/logging"
	"github.com/menubridge/menubridge/internal/models"
)

// staleLastError marks records the startup sweep failed.
const staleLastError = "abandoned by process restart"

// Reconcile sweeps records a previous process left non-terminal.
//
// Policy: in-flight scheduling state (retry queue, active registry) is
// process-local and lost on crash. Records still InProgress, Retrying or
// ScheduledRetry but older than staleAfter are marked Failed rather than
// re-queued: a blind re-queue could double-push a menu whose platform
// call actually landed before the crash, and the engine only promises
// at-least-once per sync id, not across ids. Operators re-run failed
// operations through the manual retry endpoint.
//
// Returns the number of records swept.
func Reconcile(ctx context.Context, s RecordStore, staleAfter time.Duration) (int, error) {
	cutoff := time.Now().Add(-staleAfter)
	swept := 0

	for _, status := range []models.SyncStatus{
		models.StatusInProgress,
		models.StatusRetrying,
		models.StatusScheduledRetry,
	} {
		ops, err := s.FindOperations(ctx, OperationFilter{Status: status})
		if err != nil {
			return swept, fmt.Errorf("reconcile scan %s: %w", status, err)
		}
		for _, op := range ops {
			ref := op.CreatedAt
			if op.StartedAt != nil {
				ref = *op.StartedAt
			}
			if ref.After(cutoff) {
				continue
			}

			_, err := s.UpdateSyncOperation(ctx, op.ID, func(rec *models.SyncOperation) error {
				if rec.Status.Terminal() {
					return nil
				}
				now := time.Now()
				rec.Status = models.StatusFailed
				rec.CompletedAt = &now
				rec.LastError = staleLastError
				rec.ErrorKind = string(models.KindInternal)
				return nil
			})
			if err != nil {
				return swept, fmt.Errorf("reconcile %s: %w", op.ID, err)
			}
			swept++
			logging.Warn().
				Str("operation_id", op.ID).
				Str("platform", string(op.Platform)).
				Str("was_status", string(status)).
				Msg("Reconciled stale sync operation to failed")
		}
	}

	if swept > 0 {
		logging.Info().Int("count", swept).Msg("Startup reconciliation sweep complete")
	}
	return swept, nil
}
