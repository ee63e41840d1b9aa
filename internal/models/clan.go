// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package models

import (
	"time"

	"github.com/google/uuid"
)

// Clan is an external Bungie group mapped to at most one Discord guild.
// Clans are created on first link and never deleted, only unlinked.
type Clan struct {
	ID               int64    `json:"id"`
	GroupID          int64    `json:"group_id"`
	Name             string   `json:"name"`
	Callsign         string   `json:"callsign"`
	Platform         Platform `json:"platform"`
	GuildID          *int64   `json:"guild_id,omitempty"`
	ActivityTracking bool     `json:"activity_tracking"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClanMembership links a Member to a Clan. Unique per (clan, member).
// Created and removed by membership reconciliation; last-active and rank
// are updated in place by the activity-tracking jobs.
type ClanMembership struct {
	ClanID   int64     `json:"clan_id"`
	MemberID uuid.UUID `json:"member_id"`

	// Platform is the platform the member joined the clan on, used to build
	// the identity key for membership diffing.
	Platform     Platform   `json:"platform"`
	MemberType   int        `json:"member_type"`
	JoinDate     time.Time  `json:"join_date"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
	IsActive     bool       `json:"is_active"`

	// Member is the joined member row. Repository reads populate it;
	// writes ignore it.
	Member *Member `json:"member,omitempty"`
}

// IdentityKey is the tuple membership diffing operates on. Two reconciliation
// passes over the same roster and the same persisted state produce the same
// key sets.
type IdentityKey struct {
	ClanID       int64    `json:"clan_id"`
	Platform     Platform `json:"platform"`
	MembershipID int64    `json:"membership_id"`
}

// Key returns the identity key for this membership row. Returns ok=false
// when the joined member has no identity on the membership's platform,
// which indicates an inconsistent row.
func (cm *ClanMembership) Key() (IdentityKey, bool) {
	if cm.Member == nil {
		return IdentityKey{}, false
	}
	ident, ok := IdentityOf(cm.Member, cm.Platform)
	if !ok {
		return IdentityKey{}, false
	}
	return IdentityKey{ClanID: cm.ClanID, Platform: cm.Platform, MembershipID: ident.MembershipID}, true
}
