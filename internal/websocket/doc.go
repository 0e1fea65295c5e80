// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

// Package websocket streams sync progress events to connected dashboard
// clients. Clients subscribe to one company's stream; events for other
// tenants never reach them. The hub is one of the notifier fanout's
// sinks and implements suture.Service for supervised operation.
package websocket
