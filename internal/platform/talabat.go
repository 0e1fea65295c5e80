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

// talabatAdapter targets the Talabat partner menu API.
type talabatAdapter struct{}

// Talabat rejects menu submissions above this item count outright.
const talabatMaxItems = 500

func (a *talabatAdapter) Platform() models.Platform { return models.PlatformTalabat }

func (a *talabatAdapter) Validate(snap *models.MenuSnapshot) models.ValidationResult {
	res := baseValidation(snap)
	if n := snap.ItemCount(); n > talabatMaxItems {
		res.Errors = append(res.Errors, models.ValidationIssue{
			Field:   "categories",
			Message: fmt.Sprintf("menu has %d items, Talabat accepts at most %d", n, talabatMaxItems),
		})
	}
	for _, cat := range snap.Categories {
		for _, item := range cat.Items {
			if item.PriceCents == 0 {
				res.Warnings = append(res.Warnings, models.ValidationIssue{
					Field:   fmt.Sprintf("categories.%s.items.%s.price_cents", cat.ID, item.ID),
					Message: "zero-priced items are hidden from the Talabat storefront",
				})
			}
		}
	}
	return res
}

type talabatMenu struct {
	RestaurantMenuID string            `json:"restaurantMenuId"`
	Categories       []talabatCategory `json:"categories"`
}

type talabatCategory struct {
	CategoryID string            `json:"categoryId"`
	Title      string            `json:"title"`
	Products   []talabatProduct  `json:"products"`
}

type talabatProduct struct {
	ProductID   string           `json:"productId"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Price       float64          `json:"price"`
	Visible     bool             `json:"visible"`
	Toppings    []talabatTopping `json:"toppings,omitempty"`
}

type talabatTopping struct {
	ToppingID string  `json:"toppingId"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	MinQty    int     `json:"minQty"`
	MaxQty    int     `json:"maxQty"`
}

func (a *talabatAdapter) Transform(snap *models.MenuSnapshot) ([]byte, error) {
	menu := talabatMenu{RestaurantMenuID: snap.MenuID}
	for _, cat := range snap.Categories {
		tc := talabatCategory{CategoryID: cat.ID, Title: cat.Name}
		for _, item := range cat.Items {
			tp := talabatProduct{
				ProductID:   item.ID,
				Title:       item.Name,
				Description: item.Description,
				// Talabat prices are decimal major units.
				Price:   float64(item.PriceCents) / 100,
				Visible: item.Available,
			}
			for _, mod := range item.Modifiers {
				tp.Toppings = append(tp.Toppings, talabatTopping{
					ToppingID: mod.ID,
					Title:     mod.Name,
					Price:     float64(mod.PriceCents) / 100,
					MinQty:    mod.MinSelect,
					MaxQty:    mod.MaxSelect,
				})
			}
			tc.Products = append(tc.Products, tp)
		}
		menu.Categories = append(menu.Categories, tc)
	}
	return json.Marshal(menu)
}

func (a *talabatAdapter) PushRequest(menuID string) (string, string) {
	return "PUT", "/v2/menus/" + menuID
}

func (a *talabatAdapter) ItemsProcessed(resp *Response, fallback int) int {
	return itemsFromResponse(resp, fallback)
}
