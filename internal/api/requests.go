// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/menubridge/menubridge/internal/models"
	"github.com/menubridge/menubridge/internal/store"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// SingleSyncRequest starts one menu push to one platform.
type SingleSyncRequest struct {
	MenuID    string `json:"menu_id" validate:"required,max=128"`
	CompanyID string `json:"company_id" validate:"required,max=128"`
	Platform  string `json:"platform" validate:"required"`
}

// MultiSyncRequest starts one menu push to several platforms under a
// single job.
type MultiSyncRequest struct {
	MenuID    string   `json:"menu_id" validate:"required,max=128"`
	CompanyID string   `json:"company_id" validate:"required,max=128"`
	Platforms []string `json:"platforms" validate:"required,min=1,max=16,dive,required"`

	// Parallel defaults to true when omitted.
	Parallel         *bool `json:"parallel,omitempty"`
	StopOnFirstError bool  `json:"stop_on_first_error,omitempty"`
}

// Options translates the request flags to coordinator options.
func (r *MultiSyncRequest) Options() models.MultiSyncOptions {
	opts := models.DefaultMultiSyncOptions()
	if r.Parallel != nil {
		opts.Parallel = *r.Parallel
	}
	opts.StopOnFirstError = r.StopOnFirstError
	return opts
}

// RetryRequest asks for a manual retry of previously failed operations.
type RetryRequest struct {
	OperationIDs []string `json:"operation_ids" validate:"required,min=1,max=64,dive,required"`
}

// decodeAndValidate reads the JSON body into v and runs struct
// validation. It writes the error response itself and reports whether
// the handler should continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err)
		return false
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		msg := "Request validation failed"
		if errors.As(err, &verrs) && len(verrs) > 0 {
			msg = "Invalid field: " + verrs[0].Field()
		}
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", msg, nil)
		return false
	}
	return true
}

// operationFilterFromQuery builds a store filter from list-endpoint
// query parameters. Empty values mean "any"; bad dates are rejected by
// the caller via the returned error.
func operationFilterFromQuery(r *http.Request) (store.OperationFilter, error) {
	q := r.URL.Query()
	f := store.OperationFilter{
		CompanyID: q.Get("company_id"),
		Platform:  models.Platform(q.Get("platform")),
		Status:    models.SyncStatus(q.Get("status")),
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, err
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, err
		}
		f.To = t
	}
	return f, nil
}
