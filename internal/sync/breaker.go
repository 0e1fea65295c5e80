// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package sync

import (
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"

	"github.com/menubridge/menubridge/internal/config"
	"github.com/menubridge/menubridge/internal/logging"
	"github.com/menubridge/menubridge/internal/metrics"
	"github.com/menubridge/menubridge/internal/models"
)

// BreakerSet holds one circuit breaker per platform. Breakers are
// independent: careem tripping never blocks talabat.
//
// Success and failure are recorded exactly once per real network
// attempt, inside Do, so retry bookkeeping elsewhere cannot corrupt the
// thresholds.
type BreakerSet struct {
	breakers map[models.Platform]*gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerSet builds breakers for the given platforms.
func NewBreakerSet(cfg config.BreakerConfig, platforms []models.Platform) *BreakerSet {
	set := &BreakerSet{
		breakers: make(map[models.Platform]*gobreaker.CircuitBreaker[struct{}]),
	}
	for _, p := range platforms {
		settings := gobreaker.Settings{
			Name: string(p),
			// Probes admitted while HalfOpen. We close after this many
			// consecutive successes, so admitting more would let extra
			// traffic through before the breaker has proven recovery.
			MaxRequests: cfg.HalfOpenSuccesses,
			Timeout:     cfg.RecoveryTimeout,
			// Interval stays 0 so Closed-state counts accumulate until a
			// state change. Failures are cumulative: a success between
			// failures does not buy back budget, only a full reset on
			// re-entering Closed does.
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.TotalFailures >= cfg.FailureThreshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Info().
					Str("platform", name).
					Str("from", string(stateOf(from))).
					Str("to", string(stateOf(to))).
					Msg("circuit breaker state change")
				metrics.CircuitBreakerTransitions.
					WithLabelValues(name, string(stateOf(from)), string(stateOf(to))).Inc()
				metrics.CircuitBreakerState.WithLabelValues(name).Set(stateGauge(to))
			},
		}
		set.breakers[p] = gobreaker.NewCircuitBreaker[struct{}](settings)
		metrics.CircuitBreakerState.WithLabelValues(string(p)).Set(stateGauge(gobreaker.StateClosed))
	}
	return set
}

// CanAttempt reports whether p's breaker admits an attempt right now.
// Reading the state also performs the lazy Open to HalfOpen transition
// once the recovery timeout has elapsed.
func (s *BreakerSet) CanAttempt(p models.Platform) bool {
	cb, ok := s.breakers[p]
	if !ok {
		return false
	}
	return cb.State() != gobreaker.StateOpen
}

// Do runs fn through p's breaker. fn must perform exactly one network
// attempt; its error outcome is what the breaker counts. A rejection by
// the breaker itself (open, or half-open probe slots exhausted) comes
// back as an admission-denied error without running fn.
func (s *BreakerSet) Do(p models.Platform, fn func() error) error {
	cb, ok := s.breakers[p]
	if !ok {
		return models.NewSyncError(models.KindAdmission, p,
			fmt.Errorf("no circuit breaker for platform %q", p))
	}
	_, err := cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(string(p), "success").Inc()
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(string(p), "rejected").Inc()
		return models.NewSyncError(models.KindAdmission, p, err)
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(string(p), "failure").Inc()
		return err
	}
}

// State returns p's current breaker state.
func (s *BreakerSet) State(p models.Platform) models.CircuitState {
	cb, ok := s.breakers[p]
	if !ok {
		return models.CircuitOpen
	}
	return stateOf(cb.State())
}

// Snapshot returns a point-in-time view of p's breaker for status
// endpoints.
func (s *BreakerSet) Snapshot(p models.Platform) (models.CircuitBreakerSnapshot, bool) {
	cb, ok := s.breakers[p]
	if !ok {
		return models.CircuitBreakerSnapshot{}, false
	}
	counts := cb.Counts()
	return models.CircuitBreakerSnapshot{
		Platform:     p,
		State:        stateOf(cb.State()),
		FailureCount: counts.TotalFailures,
		SuccessCount: counts.TotalSuccesses,
	}, true
}

func stateOf(s gobreaker.State) models.CircuitState {
	switch s {
	case gobreaker.StateOpen:
		return models.CircuitOpen
	case gobreaker.StateHalfOpen:
		return models.CircuitHalfOpen
	default:
		return models.CircuitClosed
	}
}

func stateGauge(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 2
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 0
	}
}
