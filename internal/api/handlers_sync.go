// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/menubridge/menubridge/internal/models"
	"github.com/menubridge/menubridge/internal/store"
	syncengine "github.com/menubridge/menubridge/internal/sync"
)

// StartSync launches a single-platform sync.
//
// POST /api/v1/sync
func (h *Handler) StartSync(w http.ResponseWriter, r *http.Request) {
	var req SingleSyncRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p, err := models.ParsePlatform(req.Platform)
	if err != nil {
		respondError(w, http.StatusBadRequest, "PLATFORM_UNKNOWN", err.Error(), nil)
		return
	}

	op, err := h.coord.StartSingle(r.Context(), req.MenuID, req.CompanyID, p)
	if err != nil {
		h.respondCoordinatorError(w, err)
		return
	}
	respondData(w, http.StatusAccepted, op)
}

// StartMultiSync launches one job covering several platforms.
//
// POST /api/v1/sync/multi
func (h *Handler) StartMultiSync(w http.ResponseWriter, r *http.Request) {
	var req MultiSyncRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	platforms := make([]models.Platform, 0, len(req.Platforms))
	for _, s := range req.Platforms {
		p, err := models.ParsePlatform(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "PLATFORM_UNKNOWN", err.Error(), nil)
			return
		}
		platforms = append(platforms, p)
	}

	job, err := h.coord.StartMulti(r.Context(), req.MenuID, req.CompanyID, platforms, req.Options())
	if err != nil {
		h.respondCoordinatorError(w, err)
		return
	}
	respondData(w, http.StatusAccepted, job)
}

// SyncStatus returns the persisted state of one operation.
//
// GET /api/v1/sync/{id}
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	op, err := h.coord.OperationStatus(r.Context(), id)
	if err != nil {
		h.respondCoordinatorError(w, err)
		return
	}
	respondData(w, http.StatusOK, op)
}

// JobStatus returns the aggregate view of a multi-platform job.
//
// GET /api/v1/sync/jobs/{id}
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, err := h.coord.Status(r.Context(), id)
	if err != nil {
		h.respondCoordinatorError(w, err)
		return
	}
	respondData(w, http.StatusOK, status)
}

// CancelSync cancels one operation. Cancelling an already terminal
// operation is a no-op and still answers 200.
//
// POST /api/v1/sync/{id}/cancel
func (h *Handler) CancelSync(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.coord.CancelOperation(r.Context(), id); err != nil {
		h.respondCoordinatorError(w, err)
		return
	}
	op, err := h.coord.OperationStatus(r.Context(), id)
	if err != nil {
		h.respondCoordinatorError(w, err)
		return
	}
	respondData(w, http.StatusOK, op)
}

// CancelJob cancels every member of a job.
//
// POST /api/v1/sync/jobs/{id}/cancel
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.coord.Cancel(r.Context(), id); err != nil {
		h.respondCoordinatorError(w, err)
		return
	}
	status, err := h.coord.Status(r.Context(), id)
	if err != nil {
		h.respondCoordinatorError(w, err)
		return
	}
	respondData(w, http.StatusOK, status)
}

// RetrySync manually re-runs previously failed operations. Per-ID
// outcomes are reported individually; the response is 200 even when
// some IDs are rejected, so one bad ID never hides the accepted ones.
//
// POST /api/v1/sync/retry
func (h *Handler) RetrySync(w http.ResponseWriter, r *http.Request) {
	var req RetryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	results := h.coord.Retry(r.Context(), req.OperationIDs)
	respondData(w, http.StatusOK, results)
}

// ListOperations returns operations matching the query filter.
//
// GET /api/v1/sync/operations
func (h *Handler) ListOperations(w http.ResponseWriter, r *http.Request) {
	filter, err := operationFilterFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid date filter (want RFC3339)", err)
		return
	}
	ops, err := h.coord.Operations(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Listing operations failed", err)
		return
	}
	respondData(w, http.StatusOK, ops)
}

// respondCoordinatorError maps coordinator and store errors onto HTTP
// statuses.
func (h *Handler) respondCoordinatorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, syncengine.ErrUnknownPlatform):
		respondError(w, http.StatusBadRequest, "PLATFORM_UNKNOWN", err.Error(), nil)
	case errors.Is(err, syncengine.ErrJobNotFound), errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "No such sync operation or job", nil)
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Sync engine error", err)
	}
}
