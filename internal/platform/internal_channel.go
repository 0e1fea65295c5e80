// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package platform

import (
	"github.com/goccy/go-json"

	"github.com/menubridge/menubridge/internal/models"
)

// channelAdapter covers the internal distribution channels (website,
// call center). These consume the canonical snapshot directly, so
// validation is lenient and the transform is a passthrough.
type channelAdapter struct {
	platform models.Platform
}

func (a *channelAdapter) Platform() models.Platform { return a.platform }

func (a *channelAdapter) Validate(snap *models.MenuSnapshot) models.ValidationResult {
	res := baseValidation(snap)
	// Internal channels tolerate incomplete menus; downgrade errors to
	// warnings except for the empty-menu case.
	if len(res.Errors) > 0 && snap.ItemCount() > 0 {
		res.Warnings = append(res.Warnings, res.Errors...)
		res.Errors = nil
	}
	return res
}

func (a *channelAdapter) Transform(snap *models.MenuSnapshot) ([]byte, error) {
	return json.Marshal(snap)
}

func (a *channelAdapter) PushRequest(menuID string) (string, string) {
	return "PUT", "/internal/menus/" + menuID
}

func (a *channelAdapter) ItemsProcessed(resp *Response, fallback int) int {
	return itemsFromResponse(resp, fallback)
}
