// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package sync

import (
	"errors"
	"testing"
	"time"

	"github.com/menubridge/menubridge/internal/config"
	"github.com/menubridge/menubridge/internal/models"
)

var errPlatformDown = errors.New("platform down")

func testBreakers(recovery time.Duration) *BreakerSet {
	return NewBreakerSet(config.BreakerConfig{
		FailureThreshold:  5,
		RecoveryTimeout:   recovery,
		HalfOpenSuccesses: 3,
	}, []models.Platform{models.PlatformCareem, models.PlatformTalabat})
}

func fail(s *BreakerSet, p models.Platform) error {
	return s.Do(p, func() error { return errPlatformDown })
}

func succeed(s *BreakerSet, p models.Platform) error {
	return s.Do(p, func() error { return nil })
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	s := testBreakers(time.Hour)
	for i := 0; i < 4; i++ {
		fail(s, models.PlatformCareem) //nolint:errcheck
		if !s.CanAttempt(models.PlatformCareem) {
			t.Fatalf("breaker opened after %d failures, threshold is 5", i+1)
		}
	}
	fail(s, models.PlatformCareem) //nolint:errcheck
	if s.CanAttempt(models.PlatformCareem) {
		t.Error("fifth failure should open the breaker")
	}
	if got := s.State(models.PlatformCareem); got != models.CircuitOpen {
		t.Errorf("state = %v, want open", got)
	}
}

func TestBreakerFailuresAccumulateAcrossSuccesses(t *testing.T) {
	s := testBreakers(time.Hour)
	for i := 0; i < 4; i++ {
		fail(s, models.PlatformCareem) //nolint:errcheck
	}
	if err := succeed(s, models.PlatformCareem); err != nil {
		t.Fatalf("closed breaker rejected a call: %v", err)
	}

	snap, ok := s.Snapshot(models.PlatformCareem)
	if !ok {
		t.Fatal("snapshot missing")
	}
	if snap.FailureCount != 4 {
		t.Errorf("failureCount after success while closed = %d, want 4", snap.FailureCount)
	}

	fail(s, models.PlatformCareem) //nolint:errcheck
	if got := s.State(models.PlatformCareem); got != models.CircuitOpen {
		t.Errorf("state after fifth cumulative failure = %v, want open", got)
	}
}

func TestBreakerRejectionIsAdmissionDenied(t *testing.T) {
	s := testBreakers(time.Hour)
	for i := 0; i < 5; i++ {
		fail(s, models.PlatformCareem) //nolint:errcheck
	}
	err := succeed(s, models.PlatformCareem)
	if err == nil {
		t.Fatal("open breaker should reject the call")
	}
	if got := models.KindOf(err); got != models.KindAdmission {
		t.Errorf("kind = %v, want admission_denied", got)
	}
}

func TestBreakerHalfOpensAfterRecoveryTimeout(t *testing.T) {
	s := testBreakers(30 * time.Millisecond)
	for i := 0; i < 5; i++ {
		fail(s, models.PlatformCareem) //nolint:errcheck
	}
	if s.CanAttempt(models.PlatformCareem) {
		t.Fatal("breaker should be open before the recovery timeout")
	}

	time.Sleep(50 * time.Millisecond)
	if !s.CanAttempt(models.PlatformCareem) {
		t.Fatal("breaker should admit a probe after the recovery timeout")
	}
	if got := s.State(models.PlatformCareem); got != models.CircuitHalfOpen {
		t.Errorf("state = %v, want half_open", got)
	}
}

func TestBreakerSingleHalfOpenFailureReopens(t *testing.T) {
	s := testBreakers(30 * time.Millisecond)
	for i := 0; i < 5; i++ {
		fail(s, models.PlatformCareem) //nolint:errcheck
	}
	time.Sleep(50 * time.Millisecond)
	s.CanAttempt(models.PlatformCareem) // half-open

	fail(s, models.PlatformCareem) //nolint:errcheck
	if got := s.State(models.PlatformCareem); got != models.CircuitOpen {
		t.Errorf("state after half-open failure = %v, want open", got)
	}
}

func TestBreakerClosesAfterHalfOpenSuccesses(t *testing.T) {
	s := testBreakers(30 * time.Millisecond)
	for i := 0; i < 5; i++ {
		fail(s, models.PlatformCareem) //nolint:errcheck
	}
	time.Sleep(50 * time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := succeed(s, models.PlatformCareem); err != nil {
			t.Fatalf("half-open probe %d rejected: %v", i+1, err)
		}
	}
	if got := s.State(models.PlatformCareem); got != models.CircuitClosed {
		t.Errorf("state = %v, want closed after three successes", got)
	}

	snap, ok := s.Snapshot(models.PlatformCareem)
	if !ok {
		t.Fatal("snapshot missing")
	}
	if snap.FailureCount != 0 {
		t.Errorf("failureCount = %d, want reset to 0 on close", snap.FailureCount)
	}
}

func TestBreakersAreIndependent(t *testing.T) {
	s := testBreakers(time.Hour)
	for i := 0; i < 5; i++ {
		fail(s, models.PlatformCareem) //nolint:errcheck
	}
	if !s.CanAttempt(models.PlatformTalabat) {
		t.Error("careem tripping must not block talabat")
	}
}

func TestBreakerUnknownPlatform(t *testing.T) {
	s := testBreakers(time.Hour)
	if s.CanAttempt(models.PlatformJahez) {
		t.Error("platform without a breaker must be denied")
	}
	if err := succeed(s, models.PlatformJahez); models.KindOf(err) != models.KindAdmission {
		t.Errorf("kind = %v, want admission_denied", models.KindOf(err))
	}
}
