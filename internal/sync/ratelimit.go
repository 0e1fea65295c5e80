// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package sync

import (
	gosync "sync"
	"time"

	"github.com/menubridge/menubridge/internal/config"
	"github.com/menubridge/menubridge/internal/metrics"
	"github.com/menubridge/menubridge/internal/models"
)

// Limiter is the per-platform sliding-window admission control. It
// holds no queue: a denied caller decides what to do with the false
// (the runner hands the operation to the retry scheduler).
type Limiter struct {
	mu      gosync.Mutex
	windows map[models.Platform]*admissionWindow

	// nowFn is swapped in tests to walk the window edge precisely.
	nowFn func() time.Time
}

type admissionWindow struct {
	window      time.Duration
	maxRequests int

	// stamps holds admission times, oldest first, lazily pruned so it
	// never carries entries older than the window at read time.
	stamps       []time.Time
	blockedUntil time.Time
}

// NewLimiter builds one window per enabled platform from config.
func NewLimiter(cfg config.PlatformsConfig) *Limiter {
	l := &Limiter{
		windows: make(map[models.Platform]*admissionWindow),
		nowFn:   time.Now,
	}
	for _, p := range models.AllPlatforms {
		pc, ok := cfg.ForPlatform(p)
		if !ok || !pc.Enabled {
			continue
		}
		l.windows[p] = &admissionWindow{
			window:      pc.RateWindow,
			maxRequests: pc.RateMaxRequests,
		}
	}
	return l
}

// Admit records an admission for p if the window has room. On denial it
// marks when the window frees up (oldest stamp plus window width) and
// leaves the window untouched.
func (l *Limiter) Admit(p models.Platform) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[p]
	if !ok {
		// Unknown platforms are rejected at admission, never deeper in
		// the pipeline.
		metrics.RateLimiterAdmissions.WithLabelValues(string(p), "blocked").Inc()
		return false
	}

	now := l.nowFn()
	w.prune(now)

	if len(w.stamps) >= w.maxRequests {
		w.blockedUntil = w.stamps[0].Add(w.window)
		metrics.RateLimiterAdmissions.WithLabelValues(string(p), "blocked").Inc()
		return false
	}

	w.stamps = append(w.stamps, now)
	w.blockedUntil = time.Time{}
	metrics.RateLimiterAdmissions.WithLabelValues(string(p), "admitted").Inc()
	return true
}

// Snapshot reports the current window state for p.
func (l *Limiter) Snapshot(p models.Platform) (models.RateLimiterSnapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[p]
	if !ok {
		return models.RateLimiterSnapshot{}, false
	}
	w.prune(l.nowFn())

	snap := models.RateLimiterSnapshot{
		Platform:    p,
		WindowMS:    w.window.Milliseconds(),
		MaxRequests: w.maxRequests,
		InWindow:    len(w.stamps),
	}
	if !w.blockedUntil.IsZero() && w.blockedUntil.After(l.nowFn()) {
		t := w.blockedUntil
		snap.BlockedUntil = &t
	}
	return snap, true
}

func (w *admissionWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}
