// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package models

import "time"

// MenuSnapshot is the authoritative menu state fetched at the start of a
// sync attempt. Each attempt re-reads the snapshot so a retry pushes the
// menu as it is now, not as it was when the sync was first requested.
type MenuSnapshot struct {
	MenuID    string    `json:"menu_id"`
	CompanyID string    `json:"company_id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	UpdatedAt time.Time `json:"updated_at"`

	Categories []MenuCategory `json:"categories"`
}

// MenuCategory groups items within a menu.
type MenuCategory struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Items []MenuItem `json:"items"`
}

// MenuItem is one sellable product with pricing and modifiers.
type MenuItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	PriceCents  int64   `json:"price_cents"`
	ImageURL    string  `json:"image_url,omitempty"`
	Available   bool    `json:"available"`
	Modifiers   []Modifier `json:"modifiers,omitempty"`
}

// Modifier is an optional add-on or variation for an item.
type Modifier struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	MinSelect  int    `json:"min_select"`
	MaxSelect  int    `json:"max_select"`
}

// ItemCount returns the total number of items across categories. Used
// for progress accounting and for ItemsProcessed when a platform
// response does not report its own count.
func (m *MenuSnapshot) ItemCount() int {
	n := 0
	for _, c := range m.Categories {
		n += len(c.Items)
	}
	return n
}

// ValidationIssue is one structured error or warning from a platform
// validator.
type ValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult carries platform validation output. Any entry in
// Errors fails the sync fast with KindValidation; Warnings are logged
// and attached to progress events but do not block the push.
type ValidationResult struct {
	Errors   []ValidationIssue `json:"errors,omitempty"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
}

// OK reports whether the snapshot passed validation.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }
