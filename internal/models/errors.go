// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package models

import (
	"errors"
	"fmt"
	"net/http"
)

// FailureKind classifies why a sync operation (or one of its phases)
// failed. The runner maps every error to exactly one kind before it
// reaches the coordinator; nothing escapes unclassified.
type FailureKind string

const (
	// KindValidation: the menu snapshot violates platform constraints.
	// Terminal, never retried - bad input data does not heal.
	KindValidation FailureKind = "validation"

	// KindTransient: timeout, 5xx, 429 or connection error. Retried up
	// to MaxRetries with backoff.
	KindTransient FailureKind = "transient"

	// KindPermanent: a 4xx other than 429, or payload rejected.
	// Terminal regardless of remaining retry budget.
	KindPermanent FailureKind = "permanent"

	// KindAdmission: rate-limited or circuit open. Not a failure of the
	// attempt itself; the operation is rescheduled.
	KindAdmission FailureKind = "admission_denied"

	// KindCancelled: the operation was cancelled mid-flight. Terminal,
	// never retried.
	KindCancelled FailureKind = "cancelled"

	// KindInternal: record store or scheduler fault. Terminal, surfaced
	// distinctly from platform-caused failures so operators can tell
	// "our bug" from "their outage".
	KindInternal FailureKind = "internal"
)

// SyncError carries the classification alongside the underlying cause.
type SyncError struct {
	Kind     FailureKind
	Platform Platform
	Err      error
}

func (e *SyncError) Error() string {
	if e.Platform != "" {
		return fmt.Sprintf("%s: %s: %v", e.Platform, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// NewSyncError wraps err with a classification.
func NewSyncError(kind FailureKind, platform Platform, err error) *SyncError {
	return &SyncError{Kind: kind, Platform: platform, Err: err}
}

// KindOf extracts the failure kind from err, defaulting to KindInternal
// for anything the pipeline did not classify itself.
func KindOf(err error) FailureKind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// Retryable reports whether err may succeed on a later attempt.
// Only transient platform errors and admission denials qualify.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTransient, KindAdmission:
		return true
	default:
		return false
	}
}

// ClassifyHTTPStatus maps a platform HTTP response status to a failure
// kind. 2xx is not a failure and must not be passed here.
func ClassifyHTTPStatus(status int) FailureKind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindTransient
	case status >= 500:
		return KindTransient
	case status >= 400:
		return KindPermanent
	default:
		// 3xx from a platform API is a misconfigured endpoint.
		return KindPermanent
	}
}

// ClassifyTransportError maps a transport-level error (no HTTP response)
// to a failure kind. Timeouts, refused connections, DNS failures and
// torn reads all land here, and all of them may heal, so every non-nil
// error is transient. Mid-call cancellation is detected on the
// operation handle before errors are classified.
func ClassifyTransportError(err error) FailureKind {
	if err == nil {
		return KindInternal
	}
	return KindTransient
}
