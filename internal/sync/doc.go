// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

// Package sync implements the platform synchronization engine: the
// per-platform rate limiters and circuit breakers, the retry scheduler,
// the sync operation runner, and the multi-platform coordinator that
// fans requests out and aggregates their status.
//
// Rate limiter, circuit breaker, retry queue and the active-job registry
// are process-local. When the engine runs as multiple processes each
// holds an independent view; durability of results is delegated to the
// record store, and in-flight scheduling state lost on crash is
// reconciled by the startup sweep in the store package.
package sync
