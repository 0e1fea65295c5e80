// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package platform

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/menubridge/menubridge/internal/models"
)

// careemAdapter targets the Careem NOW catalog API.
type careemAdapter struct{}

const careemMaxNameLen = 100

func (a *careemAdapter) Platform() models.Platform { return models.PlatformCareem }

func (a *careemAdapter) Validate(snap *models.MenuSnapshot) models.ValidationResult {
	res := baseValidation(snap)
	for _, cat := range snap.Categories {
		for _, item := range cat.Items {
			field := fmt.Sprintf("categories.%s.items.%s", cat.ID, item.ID)
			if len(item.Name) > careemMaxNameLen {
				res.Errors = append(res.Errors, models.ValidationIssue{
					Field:   field + ".name",
					Message: fmt.Sprintf("name exceeds %d characters", careemMaxNameLen),
				})
			}
			if item.ImageURL == "" {
				res.Warnings = append(res.Warnings, models.ValidationIssue{
					Field: field + ".image_url", Message: "items without images rank lower in Careem search",
				})
			}
		}
	}
	return res
}

// careem catalog payload: flat item list grouped by section name.
type careemCatalog struct {
	MenuID   string          `json:"menu_id"`
	Currency string          `json:"currency"`
	Sections []careemSection `json:"sections"`
}

type careemSection struct {
	Name  string       `json:"name"`
	Items []careemItem `json:"items"`
}

type careemItem struct {
	SKU         string        `json:"sku"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Price       int64         `json:"price"`
	ImageURL    string        `json:"image_url,omitempty"`
	Active      bool          `json:"active"`
	Options     []careemGroup `json:"option_groups,omitempty"`
}

type careemGroup struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
}

func (a *careemAdapter) Transform(snap *models.MenuSnapshot) ([]byte, error) {
	catalog := careemCatalog{
		MenuID:   snap.MenuID,
		Currency: snap.Currency,
	}
	for _, cat := range snap.Categories {
		section := careemSection{Name: cat.Name}
		for _, item := range cat.Items {
			ci := careemItem{
				SKU:         item.ID,
				Title:       item.Name,
				Description: item.Description,
				Price:       item.PriceCents,
				ImageURL:    item.ImageURL,
				Active:      item.Available,
			}
			for _, mod := range item.Modifiers {
				ci.Options = append(ci.Options, careemGroup{
					ID: mod.ID, Name: mod.Name, Price: mod.PriceCents,
					Min: mod.MinSelect, Max: mod.MaxSelect,
				})
			}
			section.Items = append(section.Items, ci)
		}
		catalog.Sections = append(catalog.Sections, section)
	}
	return json.Marshal(catalog)
}

func (a *careemAdapter) PushRequest(menuID string) (string, string) {
	return "POST", "/v1/catalogs/" + menuID
}

func (a *careemAdapter) ItemsProcessed(resp *Response, fallback int) int {
	return itemsFromResponse(resp, fallback)
}
