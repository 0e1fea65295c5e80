// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package models

import "fmt"

// Platform identifies a delivery platform or internal ordering channel.
//
// The set is closed: configuration and API requests naming a platform
// outside this set are rejected at admission time, never deep inside the
// runner.
type Platform string

const (
	PlatformCareem     Platform = "careem"
	PlatformTalabat    Platform = "talabat"
	PlatformDeliveroo  Platform = "deliveroo"
	PlatformJahez      Platform = "jahez"
	PlatformWebsite    Platform = "website"
	PlatformCallCenter Platform = "callcenter"
)

// AllPlatforms lists every supported platform in a stable order.
// Used for config validation and deterministic status aggregation.
var AllPlatforms = []Platform{
	PlatformCareem,
	PlatformTalabat,
	PlatformDeliveroo,
	PlatformJahez,
	PlatformWebsite,
	PlatformCallCenter,
}

// ParsePlatform converts a string to a Platform, rejecting unknown values.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown platform %q", s)
	}
	return p, nil
}

// Valid reports whether p is a member of the closed platform set.
func (p Platform) Valid() bool {
	switch p {
	case PlatformCareem, PlatformTalabat, PlatformDeliveroo,
		PlatformJahez, PlatformWebsite, PlatformCallCenter:
		return true
	default:
		return false
	}
}

// Internal reports whether p is an internal channel rather than a
// third-party delivery platform. Internal channels go through the same
// sync pipeline but talk to in-house endpoints.
func (p Platform) Internal() bool {
	return p == PlatformWebsite || p == PlatformCallCenter
}

func (p Platform) String() string { return string(p) }
