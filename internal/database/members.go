// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/henworth/seraphsix/internal/models"
)

const memberColumns = `id, discord_id,
	xbox_id, xbox_username, psn_id, psn_username,
	steam_id, steam_username, blizzard_id, blizzard_username,
	stadia_id, stadia_username, bungie_id, bungie_username,
	is_active, last_active_at, created_at, updated_at`

// qualifyColumns prefixes each column in a comma-separated list with a table
// alias, for joined selects.
func qualifyColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// platformColumn maps a platform to its membership-id column. Callers pass
// a models.Platform, never user input, so the value interpolated into SQL
// is one of a fixed set of identifiers.
func platformColumn(p models.Platform) (string, error) {
	switch p {
	case models.PlatformXbox:
		return "xbox_id", nil
	case models.PlatformPSN:
		return "psn_id", nil
	case models.PlatformSteam:
		return "steam_id", nil
	case models.PlatformBlizzard:
		return "blizzard_id", nil
	case models.PlatformStadia:
		return "stadia_id", nil
	case models.PlatformBungie:
		return "bungie_id", nil
	default:
		return "", fmt.Errorf("unknown platform %d", p)
	}
}

func scanMember(row interface{ Scan(...any) error }) (*models.Member, error) {
	var m models.Member
	err := row.Scan(
		&m.ID, &m.DiscordID,
		&m.XboxID, &m.XboxUsername, &m.PSNID, &m.PSNUsername,
		&m.SteamID, &m.SteamUsername, &m.BlizzardID, &m.BlizzardUsername,
		&m.StadiaID, &m.StadiaUsername, &m.BungieID, &m.BungieUsername,
		&m.IsActive, &m.LastActiveAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMemberByPlatform looks up the member holding the given membership id on
// the given platform. Returns ErrNotFound when no member holds it.
func (db *DB) GetMemberByPlatform(ctx context.Context, platform models.Platform, membershipID int64) (*models.Member, error) {
	col, err := platformColumn(platform)
	if err != nil {
		return nil, fmt.Errorf("get member by platform: %w", err)
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM members WHERE %s = $1`, memberColumns, col)
	m, err := scanMember(db.conn.QueryRowContext(ctx, query, membershipID))
	if err != nil {
		return nil, translateError("get member by platform", err)
	}
	return m, nil
}

// CreateMember inserts a new member. The caller assigns the id. Returns
// ErrConflict when another writer already created a member with one of the
// same platform ids.
func (db *DB) CreateMember(ctx context.Context, m *models.Member) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	now := time.Now().UTC()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO members (
			id, discord_id,
			xbox_id, xbox_username, psn_id, psn_username,
			steam_id, steam_username, blizzard_id, blizzard_username,
			stadia_id, stadia_username, bungie_id, bungie_username,
			is_active, last_active_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		m.ID, m.DiscordID,
		m.XboxID, m.XboxUsername, m.PSNID, m.PSNUsername,
		m.SteamID, m.SteamUsername, m.BlizzardID, m.BlizzardUsername,
		m.StadiaID, m.StadiaUsername, m.BungieID, m.BungieUsername,
		m.IsActive, m.LastActiveAt, m.CreatedAt, m.UpdatedAt,
	)
	return translateError("create member", err)
}

// UpdateMember rewrites the member's mutable fields (identities, activity
// state). Returns ErrNotFound when the member does not exist.
func (db *DB) UpdateMember(ctx context.Context, m *models.Member) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	m.UpdatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE members SET
			discord_id = $2,
			xbox_id = $3, xbox_username = $4, psn_id = $5, psn_username = $6,
			steam_id = $7, steam_username = $8, blizzard_id = $9, blizzard_username = $10,
			stadia_id = $11, stadia_username = $12, bungie_id = $13, bungie_username = $14,
			is_active = $15, last_active_at = $16, updated_at = $17
		WHERE id = $1`,
		m.ID, m.DiscordID,
		m.XboxID, m.XboxUsername, m.PSNID, m.PSNUsername,
		m.SteamID, m.SteamUsername, m.BlizzardID, m.BlizzardUsername,
		m.StadiaID, m.StadiaUsername, m.BungieID, m.BungieUsername,
		m.IsActive, m.LastActiveAt, m.UpdatedAt,
	)
	if err != nil {
		return translateError("update member", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update member: %w", ErrNotFound)
	}
	return nil
}

// GetClanMembers returns every membership row for the given clans with the
// member rows joined in. An empty clan list yields an empty slice.
func (db *DB) GetClanMembers(ctx context.Context, clanIDs ...int64) ([]*models.ClanMembership, error) {
	if len(clanIDs) == 0 {
		return nil, nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT cm.clan_id, cm.member_id, cm.platform_id, cm.member_type,
			cm.join_date, cm.last_active_at, cm.is_active,
			%s
		FROM clan_members cm
		JOIN members m ON m.id = cm.member_id
		WHERE cm.clan_id = ANY($1)
		ORDER BY cm.clan_id, cm.member_id`,
		qualifyColumns("m", memberColumns))

	rows, err := db.conn.QueryContext(ctx, query, pq.Array(clanIDs))
	if err != nil {
		return nil, translateError("get clan members", err)
	}
	defer rows.Close()

	var out []*models.ClanMembership
	for rows.Next() {
		var cm models.ClanMembership
		var m models.Member
		err := rows.Scan(
			&cm.ClanID, &cm.MemberID, &cm.Platform, &cm.MemberType,
			&cm.JoinDate, &cm.LastActiveAt, &cm.IsActive,
			&m.ID, &m.DiscordID,
			&m.XboxID, &m.XboxUsername, &m.PSNID, &m.PSNUsername,
			&m.SteamID, &m.SteamUsername, &m.BlizzardID, &m.BlizzardUsername,
			&m.StadiaID, &m.StadiaUsername, &m.BungieID, &m.BungieUsername,
			&m.IsActive, &m.LastActiveAt, &m.CreatedAt, &m.UpdatedAt,
		)
		if err != nil {
			return nil, translateError("get clan members", err)
		}
		cm.Member = &m
		out = append(out, &cm)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("get clan members", err)
	}
	return out, nil
}

// CreateClanMembership inserts a membership link. Returns ErrConflict when
// the (clan, member) pair already exists.
func (db *DB) CreateClanMembership(ctx context.Context, cm *models.ClanMembership) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO clan_members (clan_id, member_id, platform_id, member_type, join_date, last_active_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		cm.ClanID, cm.MemberID, cm.Platform, cm.MemberType, cm.JoinDate, cm.LastActiveAt, cm.IsActive,
	)
	return translateError("create clan membership", err)
}

// UpdateClanMembership rewrites the mutable fields of a membership link.
func (db *DB) UpdateClanMembership(ctx context.Context, cm *models.ClanMembership) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE clan_members SET
			platform_id = $3, member_type = $4, join_date = $5,
			last_active_at = $6, is_active = $7
		WHERE clan_id = $1 AND member_id = $2`,
		cm.ClanID, cm.MemberID, cm.Platform, cm.MemberType, cm.JoinDate, cm.LastActiveAt, cm.IsActive,
	)
	if err != nil {
		return translateError("update clan membership", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update clan membership: %w", ErrNotFound)
	}
	return nil
}

// DeleteClanMembership removes a membership link. The member row itself is
// kept so historical games stay attributable. Deleting a link that does not
// exist is not an error; reconciliation may race with a manual removal.
func (db *DB) DeleteClanMembership(ctx context.Context, clanID int64, memberID uuid.UUID) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM clan_members WHERE clan_id = $1 AND member_id = $2`,
		clanID, memberID,
	)
	return translateError("delete clan membership", err)
}

// GetClans returns every registered clan, ordered by group id.
func (db *DB) GetClans(ctx context.Context) ([]*models.Clan, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, group_id, name, callsign, platform_id, guild_id, activity_tracking, created_at, updated_at
		FROM clans ORDER BY group_id`)
	if err != nil {
		return nil, translateError("get clans", err)
	}
	defer rows.Close()

	var out []*models.Clan
	for rows.Next() {
		var c models.Clan
		err := rows.Scan(&c.ID, &c.GroupID, &c.Name, &c.Callsign, &c.Platform,
			&c.GuildID, &c.ActivityTracking, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, translateError("get clans", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("get clans", err)
	}
	return out, nil
}

// UpsertClan inserts a clan or refreshes its name, callsign, and platform when
// the group id is already registered.
func (db *DB) UpsertClan(ctx context.Context, c *models.Clan) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO clans (group_id, name, callsign, platform_id, guild_id, activity_tracking)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (group_id) DO UPDATE SET
			name = EXCLUDED.name,
			callsign = EXCLUDED.callsign,
			platform_id = EXCLUDED.platform_id,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		c.GroupID, c.Name, c.Callsign, c.Platform, c.GuildID, c.ActivityTracking,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return translateError("upsert clan", err)
}
