// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package api

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/henworth/seraphsix/internal/cache"
	"github.com/henworth/seraphsix/internal/database"
	"github.com/henworth/seraphsix/internal/jobs"
	"github.com/henworth/seraphsix/internal/models"
)

// Store is the repository surface the HTTP handlers need.
type Store interface {
	Ping(ctx context.Context) error
	GetClans(ctx context.Context) ([]*models.Clan, error)
	UpsertClan(ctx context.Context, c *models.Clan) error
	GetClanMembers(ctx context.Context, clanIDs ...int64) ([]*models.ClanMembership, error)
	GetMemberByPlatform(ctx context.Context, platform models.Platform, membershipID int64) (*models.Member, error)
	CountGamesForMember(ctx context.Context, memberID uuid.UUID, modeIDs ...int) (int64, error)
	LastGameTime(ctx context.Context, memberID uuid.UUID) (time.Time, error)
}

var _ Store = (*database.DB)(nil)

// Enqueuer submits background scan jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, req *jobs.ScanRequest) error
}

// BreakerStatus reports the upstream circuit breaker state for health checks.
type BreakerStatus interface {
	State() string
}

// Handler holds the dependencies shared by every endpoint.
type Handler struct {
	store      Store
	cache      *cache.Cache
	dispatcher Enqueuer
	breaker    BreakerStatus
	version    string
	startTime  time.Time
}

// NewHandler creates the API handler. cache, dispatcher, and breaker may be
// nil; the affected endpoints degrade rather than fail.
func NewHandler(store Store, c *cache.Cache, dispatcher Enqueuer, breaker BreakerStatus, version string) *Handler {
	return &Handler{
		store:      store,
		cache:      c,
		dispatcher: dispatcher,
		breaker:    breaker,
		version:    version,
		startTime:  time.Now(),
	}
}

// cacheGet wraps cache lookup behind the nil check.
func (h *Handler) cacheGet(key string) (interface{}, bool) {
	if h.cache == nil {
		return nil, false
	}
	return h.cache.Get(key)
}

func (h *Handler) cacheSet(key string, data interface{}) {
	if h.cache != nil {
		h.cache.Set(key, data)
	}
}
