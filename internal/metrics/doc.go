// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

// Package metrics exposes Prometheus collectors for the sync engine.
// All collectors are registered at import via promauto.
package metrics
