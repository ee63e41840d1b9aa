// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

/*
Package models defines data structures for Seraph Six.

It holds the persisted entities (Member, Clan, ClanMembership, Game,
GameParticipation), the closed Platform enum with its identity mapping,
the tracked game-mode table with per-mode eligibility thresholds, and the
Bungie.net API payload types consumed by the reconciliation engine. It is
the single source of truth for data structure definitions.

Invariants enforced elsewhere but defined here:

  - At most one Member per (platform, membership id) pair
  - ClanMembership unique per (clan, member)
  - Game unique by external instance id
  - GameParticipation unique per (game, member)
*/
package models
