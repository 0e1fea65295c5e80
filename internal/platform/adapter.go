// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

// Package platform holds everything specific to one delivery platform:
// the HTTP client, menu validation rules, and the transformation from
// the internal menu snapshot to the platform's payload shape.
//
// The platform set is closed. Adapters are registered at startup from
// typed config; a request naming a platform without a registered
// adapter is rejected at admission, never deep inside the runner.
package platform

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/menubridge/menubridge/internal/config"
	"github.com/menubridge/menubridge/internal/models"
)

// Adapter is the per-platform validate/transform/push contract.
// Validate and Transform are pure: no network, no state.
type Adapter interface {
	Platform() models.Platform

	// Validate checks the snapshot against platform constraints and
	// returns structured errors and warnings. Errors are terminal for
	// the sync attempt (validation failures are not transient).
	Validate(snap *models.MenuSnapshot) models.ValidationResult

	// Transform converts the snapshot to the platform's payload.
	Transform(snap *models.MenuSnapshot) ([]byte, error)

	// PushRequest returns the method and path for pushing menuID.
	PushRequest(menuID string) (method, path string)

	// ItemsProcessed extracts the platform-reported accepted-item
	// count from a push response. Returns fallback when the response
	// does not report one.
	ItemsProcessed(resp *Response, fallback int) int
}

// Entry pairs an adapter with its client and config.
type Entry struct {
	Adapter Adapter
	Client  Caller
	Config  config.PlatformConfig
}

// Registry maps enabled platforms to their entries.
type Registry struct {
	entries map[models.Platform]*Entry
}

// NewRegistry builds entries for every enabled platform in cfg.
func NewRegistry(cfg config.PlatformsConfig) *Registry {
	r := &Registry{entries: make(map[models.Platform]*Entry)}
	for _, p := range models.AllPlatforms {
		pc, ok := cfg.ForPlatform(p)
		if !ok || !pc.Enabled {
			continue
		}
		r.Register(adapterFor(p), NewClient(p, pc), pc)
	}
	return r
}

// Register adds or replaces an entry. Exposed for tests, which swap the
// Caller for a scripted one.
func (r *Registry) Register(a Adapter, c Caller, cfg config.PlatformConfig) {
	r.entries[a.Platform()] = &Entry{Adapter: a, Client: c, Config: cfg}
}

// Get returns the entry for p, or false when p is not enabled.
func (r *Registry) Get(p models.Platform) (*Entry, bool) {
	e, ok := r.entries[p]
	return e, ok
}

// Platforms returns the registered platforms in stable order.
func (r *Registry) Platforms() []models.Platform {
	var out []models.Platform
	for _, p := range models.AllPlatforms {
		if _, ok := r.entries[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

func adapterFor(p models.Platform) Adapter {
	switch p {
	case models.PlatformCareem:
		return &careemAdapter{}
	case models.PlatformTalabat:
		return &talabatAdapter{}
	case models.PlatformDeliveroo:
		return &deliverooAdapter{}
	case models.PlatformJahez:
		return &jahezAdapter{}
	case models.PlatformWebsite:
		return &channelAdapter{platform: models.PlatformWebsite}
	case models.PlatformCallCenter:
		return &channelAdapter{platform: models.PlatformCallCenter}
	default:
		// Unreachable: NewRegistry iterates the closed set.
		panic(fmt.Sprintf("no adapter for platform %q", p))
	}
}

// itemsFromResponse decodes the common {"items_processed": n} response
// shape shared by several platforms.
func itemsFromResponse(resp *Response, fallback int) int {
	if resp == nil || len(resp.Body) == 0 {
		return fallback
	}
	var parsed struct {
		ItemsProcessed int `json:"items_processed"`
		Accepted       int `json:"accepted"`
	}
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return fallback
	}
	if parsed.ItemsProcessed > 0 {
		return parsed.ItemsProcessed
	}
	if parsed.Accepted > 0 {
		return parsed.Accepted
	}
	return fallback
}

// baseValidation holds the rules every platform shares: a menu must
// have at least one item, items need names, prices cannot be negative,
// and modifier ranges must be coherent.
func baseValidation(snap *models.MenuSnapshot) models.ValidationResult {
	var res models.ValidationResult

	if snap.ItemCount() == 0 {
		res.Errors = append(res.Errors, models.ValidationIssue{
			Field: "categories", Message: "menu has no items",
		})
		return res
	}

	for _, cat := range snap.Categories {
		for _, item := range cat.Items {
			field := fmt.Sprintf("categories.%s.items.%s", cat.ID, item.ID)
			if item.Name == "" {
				res.Errors = append(res.Errors, models.ValidationIssue{
					Field: field + ".name", Message: "item name is required",
				})
			}
			if item.PriceCents < 0 {
				res.Errors = append(res.Errors, models.ValidationIssue{
					Field: field + ".price_cents", Message: "price cannot be negative",
				})
			}
			for _, mod := range item.Modifiers {
				if mod.MaxSelect < mod.MinSelect {
					res.Errors = append(res.Errors, models.ValidationIssue{
						Field:   field + ".modifiers." + mod.ID,
						Message: "max_select cannot be below min_select",
					})
				}
			}
		}
	}
	return res
}
