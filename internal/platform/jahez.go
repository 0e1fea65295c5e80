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

// jahezAdapter targets the Jahez vendor menu API.
type jahezAdapter struct{}

func (a *jahezAdapter) Platform() models.Platform { return models.PlatformJahez }

func (a *jahezAdapter) Validate(snap *models.MenuSnapshot) models.ValidationResult {
	res := baseValidation(snap)
	if snap.Currency != "" && snap.Currency != "SAR" {
		res.Warnings = append(res.Warnings, models.ValidationIssue{
			Field:   "currency",
			Message: fmt.Sprintf("Jahez settles in SAR, got %q", snap.Currency),
		})
	}
	for _, cat := range snap.Categories {
		for _, item := range cat.Items {
			if item.ImageURL == "" {
				res.Errors = append(res.Errors, models.ValidationIssue{
					Field:   fmt.Sprintf("categories.%s.items.%s.image_url", cat.ID, item.ID),
					Message: "Jahez requires an image for every item",
				})
			}
		}
	}
	return res
}

type jahezMenu struct {
	BranchMenuID string          `json:"branch_menu_id"`
	Sections     []jahezSection  `json:"sections"`
}

type jahezSection struct {
	SectionID string       `json:"section_id"`
	NameEn    string       `json:"name_en"`
	Products  []jahezProduct `json:"products"`
}

type jahezProduct struct {
	ProductID   string       `json:"product_id"`
	NameEn      string       `json:"name_en"`
	Description string       `json:"description,omitempty"`
	Price       float64      `json:"price"`
	ImageURL    string       `json:"image_url"`
	IsAvailable bool         `json:"is_available"`
	Options     []jahezOption `json:"options,omitempty"`
}

type jahezOption struct {
	OptionID string  `json:"option_id"`
	NameEn   string  `json:"name_en"`
	Price    float64 `json:"price"`
	Min      int     `json:"min"`
	Max      int     `json:"max"`
}

func (a *jahezAdapter) Transform(snap *models.MenuSnapshot) ([]byte, error) {
	menu := jahezMenu{BranchMenuID: snap.MenuID}
	for _, cat := range snap.Categories {
		sec := jahezSection{SectionID: cat.ID, NameEn: cat.Name}
		for _, item := range cat.Items {
			jp := jahezProduct{
				ProductID:   item.ID,
				NameEn:      item.Name,
				Description: item.Description,
				Price:       float64(item.PriceCents) / 100,
				ImageURL:    item.ImageURL,
				IsAvailable: item.Available,
			}
			for _, mod := range item.Modifiers {
				jp.Options = append(jp.Options, jahezOption{
					OptionID: mod.ID,
					NameEn:   mod.Name,
					Price:    float64(mod.PriceCents) / 100,
					Min:      mod.MinSelect,
					Max:      mod.MaxSelect,
				})
			}
			sec.Products = append(sec.Products, jp)
		}
		menu.Sections = append(menu.Sections, sec)
	}
	return json.Marshal(menu)
}

func (a *jahezAdapter) PushRequest(menuID string) (string, string) {
	return "POST", "/api/v1/menus/" + menuID + "/publish"
}

func (a *jahezAdapter) ItemsProcessed(resp *Response, fallback int) int {
	return itemsFromResponse(resp, fallback)
}
