// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package reconcile

import (
	"context"

	"github.com/google/uuid"

	"github.com/henworth/seraphsix/internal/database"
	"github.com/henworth/seraphsix/internal/models"
)

// Repository is the persistence contract the reconciliation engine consumes.
// Implementations signal uniqueness conflicts with database.ErrConflict and
// missing rows with database.ErrNotFound; the engine branches on those with
// errors.Is and never sees driver errors.
type Repository interface {
	GetMemberByPlatform(ctx context.Context, platform models.Platform, membershipID int64) (*models.Member, error)
	CreateMember(ctx context.Context, m *models.Member) error
	UpdateMember(ctx context.Context, m *models.Member) error

	GetClans(ctx context.Context) ([]*models.Clan, error)
	GetClanMembers(ctx context.Context, clanIDs ...int64) ([]*models.ClanMembership, error)
	CreateClanMembership(ctx context.Context, cm *models.ClanMembership) error
	UpdateClanMembership(ctx context.Context, cm *models.ClanMembership) error
	DeleteClanMembership(ctx context.Context, clanID int64, memberID uuid.UUID) error

	CreateGame(ctx context.Context, g *models.Game) error
	GetGameByInstanceID(ctx context.Context, instanceID int64) (*models.Game, error)
	BackfillGameReference(ctx context.Context, instanceID, referenceID int64) error
	CreateGameParticipation(ctx context.Context, p *models.GameParticipation) error
}

var _ Repository = (*database.DB)(nil)
