// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package database

import (
	"context"
	"fmt"

	"github.com/henworth/seraphsix/internal/logging"
)

// schemaStatements creates the persisted-state layout. The uniqueness
// constraints here are load-bearing: concurrent reconciliation passes rely
// on them (plus conflict-tolerant retries) instead of in-process locking.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS members (
		id UUID PRIMARY KEY,
		discord_id BIGINT UNIQUE,
		xbox_id BIGINT UNIQUE,
		xbox_username TEXT,
		psn_id BIGINT UNIQUE,
		psn_username TEXT,
		steam_id BIGINT UNIQUE,
		steam_username TEXT,
		blizzard_id BIGINT UNIQUE,
		blizzard_username TEXT,
		stadia_id BIGINT UNIQUE,
		stadia_username TEXT,
		bungie_id BIGINT UNIQUE,
		bungie_username TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_active_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS clans (
		id BIGSERIAL PRIMARY KEY,
		group_id BIGINT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		callsign TEXT NOT NULL DEFAULT '',
		platform_id INT NOT NULL,
		guild_id BIGINT,
		activity_tracking BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS clan_members (
		clan_id BIGINT NOT NULL REFERENCES clans(id),
		member_id UUID NOT NULL REFERENCES members(id),
		platform_id INT NOT NULL,
		member_type INT NOT NULL DEFAULT 0,
		join_date TIMESTAMPTZ NOT NULL,
		last_active_at TIMESTAMPTZ,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		PRIMARY KEY (clan_id, member_id)
	)`,

	`CREATE TABLE IF NOT EXISTS games (
		id UUID PRIMARY KEY,
		instance_id BIGINT NOT NULL UNIQUE,
		mode_id INT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		reference_id BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS game_members (
		game_id UUID NOT NULL REFERENCES games(id),
		member_id UUID NOT NULL REFERENCES members(id),
		PRIMARY KEY (game_id, member_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_games_mode_occurred ON games(mode_id, occurred_at)`,
	`CREATE INDEX IF NOT EXISTS idx_game_members_member ON game_members(member_id)`,
	`CREATE INDEX IF NOT EXISTS idx_clan_members_clan ON clan_members(clan_id)`,
}

// Migrate applies the schema. Statements are idempotent, so running on
// every startup is safe.
func (db *DB) Migrate(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	logging.Info().Int("statements", len(schemaStatements)).Msg("Database schema applied")
	return nil
}
