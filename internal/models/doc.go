// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

// Package models defines the shared data types of the synchronization
// engine: sync operations, multi-platform jobs, progress events, menu
// snapshots, and the failure taxonomy used to classify every error at
// the runner boundary.
package models
