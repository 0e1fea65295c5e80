// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package platform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/menubridge/menubridge/internal/config"
	"github.com/menubridge/menubridge/internal/models"
)

// Response is the classified result of a successful platform call.
type Response struct {
	StatusCode int
	Body       []byte
}

// Caller is the network boundary the runner talks to. Tests substitute
// scripted callers; production uses Client.
type Caller interface {
	Call(ctx context.Context, method, path string, body []byte) (*Response, error)
}

// Client is an HTTP client for one platform's menu API. Every error it
// returns is a *models.SyncError with a transient/permanent
// classification, so callers never re-interpret raw transport errors.
type Client struct {
	platform models.Platform
	baseURL  string
	apiKey   string
	timeout  time.Duration
	http     *http.Client
}

var _ Caller = (*Client)(nil)

// NewClient builds a client from the platform's typed config.
func NewClient(p models.Platform, cfg config.PlatformConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		platform: p,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		timeout:  timeout,
		// The per-request context carries the deadline; the net/http
		// client itself stays unbounded so the context is the single
		// source of timeout truth.
		http: &http.Client{},
	}
}

// Call performs one HTTP request against the platform API. The
// platform-specific timeout is applied here; a deadline hit classifies
// as transient.
func (c *Client) Call(ctx context.Context, method, path string, body []byte) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, models.NewSyncError(models.KindInternal, c.platform,
			fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, models.NewSyncError(models.ClassifyTransportError(err), c.platform, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	// Cap response reads; menu push responses are small.
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, models.NewSyncError(models.ClassifyTransportError(err), c.platform,
			fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= 400 {
		kind := models.ClassifyHTTPStatus(resp.StatusCode)
		return nil, models.NewSyncError(kind, c.platform,
			fmt.Errorf("platform returned %d: %s", resp.StatusCode, summarize(data)))
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// summarize trims a response body for error messages.
func summarize(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		s = "(empty body)"
	}
	return s
}
