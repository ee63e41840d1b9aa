// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package models

import (
	"time"

	"github.com/google/uuid"
)

// Platform identifies the membership platform a Destiny identity lives on.
// Values match the Bungie.net membershipType enumeration so they can be used
// directly in API requests and persisted without translation.
type Platform int

const (
	PlatformXbox     Platform = 1
	PlatformPSN      Platform = 2
	PlatformSteam    Platform = 3
	PlatformBlizzard Platform = 4
	PlatformStadia   Platform = 5
	PlatformBungie   Platform = 254
)

// AllPlatforms lists every supported platform in a fixed order.
// Iteration order matters for deterministic snapshot construction.
var AllPlatforms = []Platform{
	PlatformXbox,
	PlatformPSN,
	PlatformSteam,
	PlatformBlizzard,
	PlatformStadia,
	PlatformBungie,
}

// String returns the short platform name used in logs and API responses.
func (p Platform) String() string {
	switch p {
	case PlatformXbox:
		return "xbox"
	case PlatformPSN:
		return "psn"
	case PlatformSteam:
		return "steam"
	case PlatformBlizzard:
		return "blizzard"
	case PlatformStadia:
		return "stadia"
	case PlatformBungie:
		return "bungie"
	default:
		return "unknown"
	}
}

// ParsePlatform resolves a short platform name back to its Platform value.
func ParsePlatform(name string) (Platform, bool) {
	switch name {
	case "xbox":
		return PlatformXbox, true
	case "psn":
		return PlatformPSN, true
	case "steam":
		return PlatformSteam, true
	case "blizzard":
		return PlatformBlizzard, true
	case "stadia":
		return PlatformStadia, true
	case "bungie":
		return PlatformBungie, true
	default:
		return 0, false
	}
}

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformXbox, PlatformPSN, PlatformSteam, PlatformBlizzard, PlatformStadia, PlatformBungie:
		return true
	default:
		return false
	}
}

// Member is a person known to the system. A member may hold identities on
// several platforms simultaneously (cross-save); at most one member exists
// per (platform, membership id) pair.
//
// Members are never hard-deleted. Leaving a clan only removes the
// ClanMembership row so historical game records stay attributable.
type Member struct {
	ID        uuid.UUID `json:"id"`
	DiscordID *int64    `json:"discord_id,omitempty"`

	XboxID           *int64  `json:"xbox_id,omitempty"`
	XboxUsername     *string `json:"xbox_username,omitempty"`
	PSNID            *int64  `json:"psn_id,omitempty"`
	PSNUsername      *string `json:"psn_username,omitempty"`
	SteamID          *int64  `json:"steam_id,omitempty"`
	SteamUsername    *string `json:"steam_username,omitempty"`
	BlizzardID       *int64  `json:"blizzard_id,omitempty"`
	BlizzardUsername *string `json:"blizzard_username,omitempty"`
	StadiaID         *int64  `json:"stadia_id,omitempty"`
	StadiaUsername   *string `json:"stadia_username,omitempty"`
	BungieID         *int64  `json:"bungie_id,omitempty"`
	BungieUsername   *string `json:"bungie_username,omitempty"`

	IsActive     bool       `json:"is_active"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Identity is one (id, username) pair on a specific platform.
type Identity struct {
	Platform     Platform
	MembershipID int64
	Username     string
}

// IdentityOf returns the member's identity on the given platform, if any.
// The switch is exhaustive over the Platform enum; adding a platform without
// updating this function returns ok=false for it, which the tests catch.
func IdentityOf(m *Member, p Platform) (Identity, bool) {
	var id *int64
	var name *string

	switch p {
	case PlatformXbox:
		id, name = m.XboxID, m.XboxUsername
	case PlatformPSN:
		id, name = m.PSNID, m.PSNUsername
	case PlatformSteam:
		id, name = m.SteamID, m.SteamUsername
	case PlatformBlizzard:
		id, name = m.BlizzardID, m.BlizzardUsername
	case PlatformStadia:
		id, name = m.StadiaID, m.StadiaUsername
	case PlatformBungie:
		id, name = m.BungieID, m.BungieUsername
	default:
		return Identity{}, false
	}

	if id == nil {
		return Identity{}, false
	}

	ident := Identity{Platform: p, MembershipID: *id}
	if name != nil {
		ident.Username = *name
	}
	return ident, true
}

// SetIdentity stores an (id, username) pair on the member for the given
// platform. Returns false for an unknown platform.
func SetIdentity(m *Member, ident Identity) bool {
	id := ident.MembershipID
	name := ident.Username

	switch ident.Platform {
	case PlatformXbox:
		m.XboxID, m.XboxUsername = &id, &name
	case PlatformPSN:
		m.PSNID, m.PSNUsername = &id, &name
	case PlatformSteam:
		m.SteamID, m.SteamUsername = &id, &name
	case PlatformBlizzard:
		m.BlizzardID, m.BlizzardUsername = &id, &name
	case PlatformStadia:
		m.StadiaID, m.StadiaUsername = &id, &name
	case PlatformBungie:
		m.BungieID, m.BungieUsername = &id, &name
	default:
		return false
	}
	return true
}

// Identities returns every platform identity the member holds, in the fixed
// AllPlatforms order.
func Identities(m *Member) []Identity {
	out := make([]Identity, 0, len(AllPlatforms))
	for _, p := range AllPlatforms {
		if ident, ok := IdentityOf(m, p); ok {
			out = append(out, ident)
		}
	}
	return out
}
