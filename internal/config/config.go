// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package config

import (
	"time"

	"github.com/menubridge/menubridge/internal/models"
)

// Config is the root configuration for the sync engine.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	NATS      NATSConfig      `koanf:"nats"`
	Retry     RetryConfig     `koanf:"retry"`
	Breaker   BreakerConfig   `koanf:"breaker"`
	Reconcile ReconcileConfig `koanf:"reconcile"`
	Logging   LoggingConfig   `koanf:"logging"`
	Platforms PlatformsConfig `koanf:"platforms"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RateLimitReqs / RateLimitWindow bound inbound API requests per
	// client IP (httprate). Unrelated to the per-platform admission
	// windows in the sync core.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// StoreConfig configures the Badger-backed record store.
type StoreConfig struct {
	// Path is the Badger directory. Empty selects the in-memory store
	// (tests, ephemeral deployments).
	Path string `koanf:"path"`
}

// NATSConfig configures the optional JetStream progress transport.
// When disabled, progress events flow over the websocket hub only.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	StreamName     string `koanf:"stream_name"`
	SubjectPrefix  string `koanf:"subject_prefix"`

	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// RetryConfig configures the retry scheduler's backoff and dispatch.
type RetryConfig struct {
	BaseDelay  time.Duration `koanf:"base_delay"`
	MaxDelay   time.Duration `koanf:"max_delay"`
	Multiplier float64       `koanf:"multiplier"`

	// JitterFactor spreads delays by ±(delay*jitter)/2. The resulting
	// delay never drops below 1s.
	JitterFactor float64 `koanf:"jitter_factor"`

	// TickInterval is how often the queue is scanned for due entries.
	TickInterval time.Duration `koanf:"tick_interval"`

	// MaxConcurrentDispatch caps retries dispatched per tick.
	MaxConcurrentDispatch int `koanf:"max_concurrent_dispatch"`

	// RateLimitCooldown is the fixed reschedule delay when a retry is
	// still rate-limited at dispatch time (no exponential growth).
	RateLimitCooldown time.Duration `koanf:"rate_limit_cooldown"`
}

// BreakerConfig configures the per-platform circuit breakers.
type BreakerConfig struct {
	// FailureThreshold is the cumulative failure count that opens the
	// breaker from Closed. Successes in between do not reduce it; the
	// count clears only when the breaker re-enters Closed.
	FailureThreshold uint32 `koanf:"failure_threshold"`

	// RecoveryTimeout is how long an Open breaker waits before letting
	// a probe through (HalfOpen).
	RecoveryTimeout time.Duration `koanf:"recovery_timeout"`

	// HalfOpenSuccesses is the consecutive-success count in HalfOpen
	// that closes the breaker.
	HalfOpenSuccesses uint32 `koanf:"half_open_successes"`
}

// ReconcileConfig controls the startup sweep over records the previous
// process left non-terminal.
type ReconcileConfig struct {
	// StaleAfter: InProgress/Retrying/ScheduledRetry records older than
	// this at startup are marked Failed (re-queueing is rejected; see
	// store.Reconcile).
	StaleAfter time.Duration `koanf:"stale_after"`
}

// LoggingConfig mirrors logging.Config for the koanf layer.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// PlatformConfig is the strongly-typed per-platform configuration.
// Unknown platforms cannot be expressed: the set of fields below is the
// closed platform enum.
type PlatformConfig struct {
	Enabled bool   `koanf:"enabled"`
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`
	APIKey  string `koanf:"api_key"`

	// Timeout bounds each platform HTTP call. Platform-specific,
	// typically 20-30s. A timeout classifies as transient.
	Timeout time.Duration `koanf:"timeout" validate:"omitempty,min=1s,max=120s"`

	// RateWindow / RateMaxRequests define the sliding admission window.
	RateWindow      time.Duration `koanf:"rate_window"`
	RateMaxRequests int           `koanf:"rate_max_requests"`

	MaxRetries int `koanf:"max_retries" validate:"min=0,max=10"`
}

// PlatformsConfig holds one typed config per supported platform.
type PlatformsConfig struct {
	Careem     PlatformConfig `koanf:"careem"`
	Talabat    PlatformConfig `koanf:"talabat"`
	Deliveroo  PlatformConfig `koanf:"deliveroo"`
	Jahez      PlatformConfig `koanf:"jahez"`
	Website    PlatformConfig `koanf:"website"`
	CallCenter PlatformConfig `koanf:"callcenter"`
}

// ForPlatform returns the config for p. The bool is false for platforms
// outside the closed set.
func (pc *PlatformsConfig) ForPlatform(p models.Platform) (PlatformConfig, bool) {
	switch p {
	case models.PlatformCareem:
		return pc.Careem, true
	case models.PlatformTalabat:
		return pc.Talabat, true
	case models.PlatformDeliveroo:
		return pc.Deliveroo, true
	case models.PlatformJahez:
		return pc.Jahez, true
	case models.PlatformWebsite:
		return pc.Website, true
	case models.PlatformCallCenter:
		return pc.CallCenter, true
	default:
		return PlatformConfig{}, false
	}
}

// EnabledPlatforms returns the enabled platforms in stable order.
func (pc *PlatformsConfig) EnabledPlatforms() []models.Platform {
	var out []models.Platform
	for _, p := range models.AllPlatforms {
		if cfg, ok := pc.ForPlatform(p); ok && cfg.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// Default returns a Config with all defaults applied and no file or
// environment overrides. Platforms ship disabled; production enables
// them through config.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with all defaults applied. Defaults are
// layered first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	defaultPlatform := func(window time.Duration, maxReqs int, timeout time.Duration) PlatformConfig {
		return PlatformConfig{
			Enabled:         false,
			Timeout:         timeout,
			RateWindow:      window,
			RateMaxRequests: maxReqs,
			MaxRetries:      3,
		}
	}

	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8460,
			ShutdownTimeout: 10 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Store: StoreConfig{
			Path: "/data/menubridge",
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			StoreDir:       "/data/nats/jetstream",
			StreamName:     "MENUSYNC",
			SubjectPrefix:  "menusync.progress",
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,
		},
		Retry: RetryConfig{
			BaseDelay:             2 * time.Second,
			MaxDelay:              5 * time.Minute,
			Multiplier:            2.0,
			JitterFactor:          0.2,
			TickInterval:          30 * time.Second,
			MaxConcurrentDispatch: 5,
			RateLimitCooldown:     15 * time.Second,
		},
		Breaker: BreakerConfig{
			FailureThreshold:  5,
			RecoveryTimeout:   60 * time.Second,
			HalfOpenSuccesses: 3,
		},
		Reconcile: ReconcileConfig{
			StaleAfter: 15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Platforms: PlatformsConfig{
			// Third-party windows reflect each platform's published
			// API quotas.
			Careem:     defaultPlatform(time.Minute, 60, 30*time.Second),
			Talabat:    defaultPlatform(time.Minute, 40, 30*time.Second),
			Deliveroo:  defaultPlatform(time.Minute, 50, 20*time.Second),
			Jahez:      defaultPlatform(time.Minute, 40, 25*time.Second),
			Website:    defaultPlatform(time.Minute, 120, 20*time.Second),
			CallCenter: defaultPlatform(time.Minute, 120, 20*time.Second),
		},
	}
}
