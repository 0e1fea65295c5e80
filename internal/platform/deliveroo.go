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

// deliverooAdapter targets the Deliveroo menu API.
type deliverooAdapter struct{}

var deliverooCurrencies = map[string]bool{
	"AED": true, "SAR": true, "KWD": true, "BHD": true,
	"QAR": true, "OMR": true, "GBP": true,
}

func (a *deliverooAdapter) Platform() models.Platform { return models.PlatformDeliveroo }

func (a *deliverooAdapter) Validate(snap *models.MenuSnapshot) models.ValidationResult {
	res := baseValidation(snap)
	if !deliverooCurrencies[snap.Currency] {
		res.Errors = append(res.Errors, models.ValidationIssue{
			Field:   "currency",
			Message: fmt.Sprintf("currency %q not supported by Deliveroo", snap.Currency),
		})
	}
	for _, cat := range snap.Categories {
		if len(cat.Items) == 0 {
			res.Warnings = append(res.Warnings, models.ValidationIssue{
				Field:   "categories." + cat.ID,
				Message: "empty categories are dropped by Deliveroo",
			})
		}
	}
	return res
}

type deliverooMenu struct {
	Name       string               `json:"name"`
	Currency   string               `json:"currency"`
	Categories []deliverooCategory  `json:"categories"`
	Items      []deliverooItem      `json:"items"`
	Modifiers  []deliverooModifier  `json:"modifiers,omitempty"`
}

type deliverooCategory struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	ItemIDs []string `json:"item_ids"`
}

type deliverooItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	PriceInfo   struct {
		Price int64 `json:"price"`
	} `json:"price_info"`
	Image       string   `json:"image,omitempty"`
	Available   bool     `json:"available"`
	ModifierIDs []string `json:"modifier_ids,omitempty"`
}

type deliverooModifier struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	MinChoice int    `json:"min_choice"`
	MaxChoice int    `json:"max_choice"`
}

// Transform flattens the category tree into Deliveroo's id-reference layout.
func (a *deliverooAdapter) Transform(snap *models.MenuSnapshot) ([]byte, error) {
	menu := deliverooMenu{Name: snap.Name, Currency: snap.Currency}
	seenMod := map[string]bool{}
	for _, cat := range snap.Categories {
		dc := deliverooCategory{ID: cat.ID, Name: cat.Name}
		for _, item := range cat.Items {
			di := deliverooItem{
				ID:          item.ID,
				Name:        item.Name,
				Description: item.Description,
				Image:       item.ImageURL,
				Available:   item.Available,
			}
			di.PriceInfo.Price = item.PriceCents
			for _, mod := range item.Modifiers {
				di.ModifierIDs = append(di.ModifierIDs, mod.ID)
				if !seenMod[mod.ID] {
					seenMod[mod.ID] = true
					menu.Modifiers = append(menu.Modifiers, deliverooModifier{
						ID:        mod.ID,
						Name:      mod.Name,
						Price:     mod.PriceCents,
						MinChoice: mod.MinSelect,
						MaxChoice: mod.MaxSelect,
					})
				}
			}
			dc.ItemIDs = append(dc.ItemIDs, item.ID)
			menu.Items = append(menu.Items, di)
		}
		menu.Categories = append(menu.Categories, dc)
	}
	return json.Marshal(menu)
}

func (a *deliverooAdapter) PushRequest(menuID string) (string, string) {
	return "PUT", "/v1/restaurants/menus/" + menuID
}

func (a *deliverooAdapter) ItemsProcessed(resp *Response, fallback int) int {
	return itemsFromResponse(resp, fallback)
}
