// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/henworth/seraphsix/internal/jobs"
	"github.com/henworth/seraphsix/internal/logging"
	"github.com/henworth/seraphsix/internal/models"
)

// ListClans returns every registered clan.
func (h *Handler) ListClans(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	clans, err := h.store.GetClans(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(map[string]interface{}{
		"clans": clans,
		"count": len(clans),
	})
}

// RegisterClan links a Bungie group for tracking. Registering an already
// linked group updates its settings in place and re-triggers reconciliation.
func (h *Handler) RegisterClan(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req RegisterClanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("Request body must be valid JSON")
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	platform := models.PlatformSteam
	if req.Platform != "" {
		platform, _ = models.ParsePlatform(req.Platform)
	}

	clan := &models.Clan{
		GroupID:          req.GroupID,
		Name:             req.Name,
		Callsign:         req.Callsign,
		Platform:         platform,
		GuildID:          req.GuildID,
		ActivityTracking: req.ActivityTracking,
	}

	if err := h.store.UpsertClan(r.Context(), clan); err != nil {
		rw.DatabaseError(err)
		return
	}

	h.enqueueReconcile(r.Context(), clan)

	logging.Ctx(r.Context()).Info().
		Int64("group_id", clan.GroupID).
		Bool("activity_tracking", clan.ActivityTracking).
		Msg("Clan registered")

	rw.Created(clan)
}

// ClanMembers returns the persisted roster of one clan.
func (h *Handler) ClanMembers(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	clan, ok := h.findClan(rw, r)
	if !ok {
		return
	}

	cacheKey := fmt.Sprintf("clan:%d:members", clan.ID)
	if cached, ok := h.cacheGet(cacheKey); ok {
		rw.Success(cached)
		return
	}

	memberships, err := h.store.GetClanMembers(r.Context(), clan.ID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	payload := map[string]interface{}{
		"clan":    clan,
		"members": memberships,
		"count":   len(memberships),
	}
	h.cacheSet(cacheKey, payload)

	rw.Success(payload)
}

// TriggerReconcile enqueues a reconciliation pass for one clan. Duplicate
// requests while a pass is pending collapse into the existing job.
func (h *Handler) TriggerReconcile(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	clan, ok := h.findClan(rw, r)
	if !ok {
		return
	}

	if h.dispatcher == nil {
		rw.ServiceUnavailable("Job dispatcher is not running")
		return
	}

	if err := h.enqueueReconcile(r.Context(), clan); err != nil {
		rw.InternalError("Failed to enqueue reconciliation")
		return
	}

	rw.Accepted(map[string]interface{}{
		"group_id": clan.GroupID,
		"job":      jobs.JobReconcileClan,
	})
}

func (h *Handler) enqueueReconcile(ctx context.Context, clan *models.Clan) error {
	if h.dispatcher == nil {
		return nil
	}

	err := h.dispatcher.Enqueue(ctx, &jobs.ScanRequest{
		Job:     jobs.JobReconcileClan,
		ClanID:  clan.ID,
		GroupID: clan.GroupID,
	})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).
			Int64("group_id", clan.GroupID).
			Msg("Failed to enqueue clan reconciliation")
	}
	return err
}

// findClan resolves the {groupID} path parameter to a registered clan,
// writing the error response itself when resolution fails.
func (h *Handler) findClan(rw *ResponseWriter, r *http.Request) (*models.Clan, bool) {
	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil || groupID < 1 {
		rw.BadRequest("Group id must be a positive integer")
		return nil, false
	}

	clans, err := h.store.GetClans(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return nil, false
	}

	for _, clan := range clans {
		if clan.GroupID == groupID {
			return clan, true
		}
	}

	rw.NotFound(fmt.Sprintf("Clan with group id %d is not registered", groupID))
	return nil, false
}
