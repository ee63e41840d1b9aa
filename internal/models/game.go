// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package models

import (
	"time"

	"github.com/google/uuid"
)

// Game is one canonical completed activity instance. It is unique by
// InstanceID: concurrent per-member scans racing to record the same instance
// converge on one row via the repository's uniqueness constraint.
//
// A Game is immutable after creation except for a late-arriving ReferenceID
// backfill (the activity history endpoint sometimes reports it before the
// carnage report does).
type Game struct {
	ID          uuid.UUID `json:"id"`
	InstanceID  int64     `json:"instance_id"`
	ModeID      int       `json:"mode_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	ReferenceID *int64    `json:"reference_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// GameParticipation links a Game to one clan-eligible participant.
// Unique per (game, member).
type GameParticipation struct {
	GameID   uuid.UUID `json:"game_id"`
	MemberID uuid.UUID `json:"member_id"`
}
