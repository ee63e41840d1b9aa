// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/henworth/seraphsix/internal/models"
)

// CreateGame inserts a canonical game row. Returns ErrConflict when another
// writer already recorded the same instance id; the caller should then read
// the existing row back and attach participations to it.
func (db *DB) CreateGame(ctx context.Context, g *models.Game) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	g.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO games (id, instance_id, mode_id, occurred_at, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		g.ID, g.InstanceID, g.ModeID, g.OccurredAt, g.ReferenceID, g.CreatedAt,
	)
	return translateError("create game", err)
}

// GetGameByInstanceID returns the game recorded for the given instance id,
// or ErrNotFound.
func (db *DB) GetGameByInstanceID(ctx context.Context, instanceID int64) (*models.Game, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var g models.Game
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, instance_id, mode_id, occurred_at, reference_id, created_at
		FROM games WHERE instance_id = $1`, instanceID,
	).Scan(&g.ID, &g.InstanceID, &g.ModeID, &g.OccurredAt, &g.ReferenceID, &g.CreatedAt)
	if err != nil {
		return nil, translateError("get game by instance id", err)
	}
	return &g, nil
}

// BackfillGameReference fills in a game's reference id when it was recorded
// without one. A game that already carries a reference id is left alone.
func (db *DB) BackfillGameReference(ctx context.Context, instanceID, referenceID int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		UPDATE games SET reference_id = $2
		WHERE instance_id = $1 AND reference_id IS NULL`,
		instanceID, referenceID,
	)
	return translateError("backfill game reference", err)
}

// CreateGameParticipation links a member to a recorded game. Returns
// ErrConflict when the link already exists.
func (db *DB) CreateGameParticipation(ctx context.Context, p *models.GameParticipation) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO game_members (game_id, member_id)
		VALUES ($1, $2)`,
		p.GameID, p.MemberID,
	)
	return translateError("create game participation", err)
}

// CountGamesForMember counts recorded games a member participated in,
// optionally restricted to the given modes. An empty mode list counts all.
func (db *DB) CountGamesForMember(ctx context.Context, memberID uuid.UUID, modeIDs ...int) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var (
		count int64
		err   error
	)
	if len(modeIDs) == 0 {
		err = db.conn.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM game_members gm
			JOIN games g ON g.id = gm.game_id
			WHERE gm.member_id = $1`, memberID,
		).Scan(&count)
	} else {
		ids := make([]int64, len(modeIDs))
		for i, m := range modeIDs {
			ids[i] = int64(m)
		}
		err = db.conn.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM game_members gm
			JOIN games g ON g.id = gm.game_id
			WHERE gm.member_id = $1 AND g.mode_id = ANY($2)`,
			memberID, pq.Array(ids),
		).Scan(&count)
	}
	if err != nil {
		return 0, translateError("count games for member", err)
	}
	return count, nil
}

// LastGameTime returns when the member's most recent recorded game occurred.
// Returns ErrNotFound when the member has no recorded games.
func (db *DB) LastGameTime(ctx context.Context, memberID uuid.UUID) (time.Time, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var t time.Time
	err := db.conn.QueryRowContext(ctx, `
		SELECT g.occurred_at FROM game_members gm
		JOIN games g ON g.id = gm.game_id
		WHERE gm.member_id = $1
		ORDER BY g.occurred_at DESC LIMIT 1`, memberID,
	).Scan(&t)
	if err != nil {
		return time.Time{}, translateError("last game time", err)
	}
	return t, nil
}
