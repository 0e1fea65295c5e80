// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/menubridge/menubridge/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for consistency. It rejects enabled
// platforms with missing endpoints and nonsense limiter/retry values so
// misconfiguration surfaces at startup, not mid-sync.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	if c.Retry.BaseDelay <= 0 {
		errs = append(errs, errors.New("retry.base_delay must be positive"))
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		errs = append(errs, errors.New("retry.max_delay must be >= retry.base_delay"))
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry.multiplier must be >= 1"))
	}
	if c.Retry.JitterFactor < 0 || c.Retry.JitterFactor > 1 {
		errs = append(errs, errors.New("retry.jitter_factor must be in [0,1]"))
	}
	if c.Retry.MaxConcurrentDispatch < 1 {
		errs = append(errs, errors.New("retry.max_concurrent_dispatch must be >= 1"))
	}

	if c.Breaker.FailureThreshold == 0 {
		errs = append(errs, errors.New("breaker.failure_threshold must be >= 1"))
	}
	if c.Breaker.HalfOpenSuccesses == 0 {
		errs = append(errs, errors.New("breaker.half_open_successes must be >= 1"))
	}
	if c.Breaker.RecoveryTimeout <= 0 {
		errs = append(errs, errors.New("breaker.recovery_timeout must be positive"))
	}

	for _, p := range models.AllPlatforms {
		pc, _ := c.Platforms.ForPlatform(p)
		if !pc.Enabled {
			continue
		}
		if pc.BaseURL == "" {
			errs = append(errs, fmt.Errorf("platforms.%s: base_url required when enabled", p))
		}
		if !p.Internal() && pc.APIKey == "" {
			errs = append(errs, fmt.Errorf("platforms.%s: api_key required when enabled", p))
		}
		if pc.RateWindow <= 0 || pc.RateMaxRequests <= 0 {
			errs = append(errs, fmt.Errorf("platforms.%s: rate window and max requests must be positive", p))
		}
		if err := validate.Struct(pc); err != nil {
			errs = append(errs, fmt.Errorf("platforms.%s: %w", p, err))
		}
	}

	return errors.Join(errs...)
}
