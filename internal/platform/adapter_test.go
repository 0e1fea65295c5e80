// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package platform

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/menubridge/menubridge/internal/config"
	"github.com/menubridge/menubridge/internal/models"
)

func sampleMenu() *models.MenuSnapshot {
	return &models.MenuSnapshot{
		MenuID:    "menu-1",
		CompanyID: "co-1",
		Name:      "Lunch",
		Currency:  "AED",
		Categories: []models.MenuCategory{
			{
				ID:   "cat-1",
				Name: "Burgers",
				Items: []models.MenuItem{
					{
						ID:         "item-1",
						Name:       "Classic Burger",
						PriceCents: 3500,
						ImageURL:   "https://img.example/b.jpg",
						Available:  true,
						Modifiers: []models.Modifier{
							{ID: "mod-1", Name: "Extra Cheese", PriceCents: 500, MinSelect: 0, MaxSelect: 2},
						},
					},
					{
						ID:         "item-2",
						Name:       "Veggie Burger",
						PriceCents: 3000,
						ImageURL:   "https://img.example/v.jpg",
						Available:  true,
					},
				},
			},
		},
	}
}

func enableAll(pc *config.PlatformsConfig) {
	for _, p := range []*config.PlatformConfig{
		&pc.Careem, &pc.Talabat, &pc.Deliveroo, &pc.Jahez, &pc.Website, &pc.CallCenter,
	} {
		p.Enabled = true
		p.BaseURL = "http://localhost:0"
		p.APIKey = "k"
	}
}

func TestRegistryCoversEnabledPlatforms(t *testing.T) {
	cfg := config.Default()
	enableAll(&cfg.Platforms)
	reg := NewRegistry(cfg.Platforms)
	for _, p := range cfg.Platforms.EnabledPlatforms() {
		if _, ok := reg.Get(p); !ok {
			t.Errorf("registry missing enabled platform %s", p)
		}
	}
	if _, ok := reg.Get(models.Platform("grubhub")); ok {
		t.Error("registry returned entry for unknown platform")
	}
}

func TestBaseValidationRejectsEmptyMenu(t *testing.T) {
	snap := &models.MenuSnapshot{MenuID: "m", Name: "Empty"}
	res := baseValidation(snap)
	if res.OK() {
		t.Error("empty menu should fail validation")
	}
}

func TestCareemNameLengthLimit(t *testing.T) {
	a := &careemAdapter{}
	snap := sampleMenu()
	snap.Categories[0].Items[0].Name = strings.Repeat("x", 101)
	res := a.Validate(snap)
	if res.OK() {
		t.Error("expected name-length validation error")
	}
}

func TestTalabatItemCeiling(t *testing.T) {
	a := &talabatAdapter{}
	snap := sampleMenu()
	items := make([]models.MenuItem, talabatMaxItems+1)
	for i := range items {
		items[i] = models.MenuItem{ID: "i", Name: "n", PriceCents: 100}
	}
	snap.Categories[0].Items = items
	res := a.Validate(snap)
	if res.OK() {
		t.Errorf("menu with %d items should fail Talabat validation", len(items))
	}
}

func TestDeliverooCurrencyRestriction(t *testing.T) {
	a := &deliverooAdapter{}
	snap := sampleMenu()
	snap.Currency = "USD"
	if res := a.Validate(snap); res.OK() {
		t.Error("unsupported currency should fail Deliveroo validation")
	}
	snap.Currency = "AED"
	if res := a.Validate(snap); !res.OK() {
		t.Errorf("AED should pass, got errors %v", res.Errors)
	}
}

func TestJahezRequiresImages(t *testing.T) {
	a := &jahezAdapter{}
	snap := sampleMenu()
	snap.Categories[0].Items[1].ImageURL = ""
	if res := a.Validate(snap); res.OK() {
		t.Error("missing image should fail Jahez validation")
	}
}

func TestChannelAdapterIsLenient(t *testing.T) {
	a := &channelAdapter{platform: models.PlatformWebsite}
	snap := sampleMenu()
	// Negative price is a hard error on delivery platforms.
	snap.Categories[0].Items[0].PriceCents = -1
	res := a.Validate(snap)
	if !res.OK() {
		t.Errorf("internal channel should downgrade errors, got %v", res.Errors)
	}
	if len(res.Warnings) == 0 {
		t.Error("downgraded errors should surface as warnings")
	}
}

func TestTransformsProduceValidJSON(t *testing.T) {
	snap := sampleMenu()
	adapters := []Adapter{
		&careemAdapter{},
		&talabatAdapter{},
		&deliverooAdapter{},
		&jahezAdapter{},
		&channelAdapter{platform: models.PlatformWebsite},
	}
	for _, a := range adapters {
		payload, err := a.Transform(snap)
		if err != nil {
			t.Fatalf("%s: Transform() error = %v", a.Platform(), err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(payload, &decoded); err != nil {
			t.Errorf("%s: payload is not a JSON object: %v", a.Platform(), err)
		}
	}
}

func TestDeliverooTransformFlattensItems(t *testing.T) {
	a := &deliverooAdapter{}
	payload, err := a.Transform(sampleMenu())
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	var menu deliverooMenu
	if err := json.Unmarshal(payload, &menu); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(menu.Items) != 2 {
		t.Errorf("items = %d, want 2", len(menu.Items))
	}
	if len(menu.Categories) != 1 || len(menu.Categories[0].ItemIDs) != 2 {
		t.Errorf("category item refs = %+v", menu.Categories)
	}
	if len(menu.Modifiers) != 1 {
		t.Errorf("modifiers = %d, want 1 deduplicated entry", len(menu.Modifiers))
	}
	if menu.Items[0].PriceInfo.Price != 3500 {
		t.Errorf("price = %d, want cents unchanged", menu.Items[0].PriceInfo.Price)
	}
	if menu.Modifiers[0].Price != 500 {
		t.Errorf("modifier price = %d, want cents unchanged", menu.Modifiers[0].Price)
	}
}

func TestItemsFromResponse(t *testing.T) {
	cases := []struct {
		body string
		want int
	}{
		{`{"items_processed": 12}`, 12},
		{`{"accepted": 4}`, 4},
		{`{"status": "ok"}`, 9},
		{`not-json`, 9},
		{``, 9},
	}
	for _, tc := range cases {
		got := itemsFromResponse(&Response{StatusCode: 200, Body: []byte(tc.body)}, 9)
		if got != tc.want {
			t.Errorf("itemsFromResponse(%q) = %d, want %d", tc.body, got, tc.want)
		}
	}
	if got := itemsFromResponse(nil, 3); got != 3 {
		t.Errorf("nil response = %d, want fallback", got)
	}
}

func TestPushRequestsAreWellFormed(t *testing.T) {
	adapters := []Adapter{
		&careemAdapter{},
		&talabatAdapter{},
		&deliverooAdapter{},
		&jahezAdapter{},
		&channelAdapter{platform: models.PlatformCallCenter},
	}
	for _, a := range adapters {
		method, path := a.PushRequest("menu-1")
		if method != "POST" && method != "PUT" {
			t.Errorf("%s: method = %q", a.Platform(), method)
		}
		if !strings.HasPrefix(path, "/") || !strings.Contains(path, "menu-1") {
			t.Errorf("%s: path = %q", a.Platform(), path)
		}
	}
}
