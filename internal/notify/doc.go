// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

// Package notify carries progress events from the sync engine to
// observers. Events fan out to the in-process transports (websocket
// hub) and, when NATS is enabled, to a JetStream stream keyed by
// company, so external consumers can tail a tenant's sync activity.
//
// Delivery is at-least-once with dedup by message id on the JetStream
// side. Transports must never block the runner: the NATS path buffers
// and drops under backpressure, counting drops.
package notify
