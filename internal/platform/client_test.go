// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/menubridge/menubridge/internal/config"
	"github.com/menubridge/menubridge/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(models.PlatformCareem, config.PlatformConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Timeout: 2 * time.Second,
	})
	return client, srv
}

func TestCallSuccess(t *testing.T) {
	var gotAuth, gotContentType string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"items_processed": 7}`)) //nolint:errcheck
	})

	resp, err := client.Call(context.Background(), "POST", "/v1/catalogs/m1", []byte(`{}`))
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
}

func TestCallClassifiesStatuses(t *testing.T) {
	cases := []struct {
		status int
		kind   models.FailureKind
	}{
		{http.StatusTooManyRequests, models.KindTransient},
		{http.StatusInternalServerError, models.KindTransient},
		{http.StatusBadGateway, models.KindTransient},
		{http.StatusBadRequest, models.KindPermanent},
		{http.StatusUnauthorized, models.KindPermanent},
		{http.StatusNotFound, models.KindPermanent},
	}
	for _, tc := range cases {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		_, err := client.Call(context.Background(), "PUT", "/v2/menus/m1", nil)
		if err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		if got := models.KindOf(err); got != tc.kind {
			t.Errorf("status %d: kind = %v, want %v", tc.status, got, tc.kind)
		}
	}
}

func TestCallTimeoutIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)
	client := NewClient(models.PlatformTalabat, config.PlatformConfig{
		BaseURL: srv.URL,
		Timeout: 20 * time.Millisecond,
	})

	_, err := client.Call(context.Background(), "PUT", "/v2/menus/m1", nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if got := models.KindOf(err); got != models.KindTransient {
		t.Errorf("kind = %v, want transient", got)
	}
}

func TestCallConnectionRefusedIsTransient(t *testing.T) {
	client := NewClient(models.PlatformJahez, config.PlatformConfig{
		// Closed port; dial fails immediately.
		BaseURL: "http://127.0.0.1:1",
		Timeout: time.Second,
	})
	_, err := client.Call(context.Background(), "POST", "/api/v1/menus/m1/publish", nil)
	if err == nil {
		t.Fatal("expected dial error")
	}
	if got := models.KindOf(err); got != models.KindTransient {
		t.Errorf("kind = %v, want transient", got)
	}
}
