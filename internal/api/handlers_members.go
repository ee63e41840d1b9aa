// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/henworth/seraphsix/internal/database"
	"github.com/henworth/seraphsix/internal/models"
)

// MemberGamesResponse answers "how many tracked games has this member
// played", overall or for one mode.
type MemberGamesResponse struct {
	MemberID     string     `json:"member_id"`
	Platform     string     `json:"platform"`
	MembershipID int64      `json:"membership_id"`
	Username     string     `json:"username,omitempty"`
	Mode         string     `json:"mode"`
	GameCount    int64      `json:"game_count"`
	LastPlayedAt *time.Time `json:"last_played_at,omitempty"`
}

// MemberGames handles GET /api/v1/members/{platform}/{membershipID}/games.
// The optional mode query parameter restricts the count to one tracked
// mode; the default counts across all tracked modes.
func (h *Handler) MemberGames(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	platform, ok := models.ParsePlatform(chi.URLParam(r, "platform"))
	if !ok {
		rw.BadRequest("Unknown platform")
		return
	}

	membershipID, err := strconv.ParseInt(chi.URLParam(r, "membershipID"), 10, 64)
	if err != nil || membershipID < 1 {
		rw.BadRequest("Membership id must be a positive integer")
		return
	}

	req := MemberGamesRequest{Mode: r.URL.Query().Get("mode")}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}
	mode := req.Mode
	if mode == "" {
		mode = "all"
	}

	cacheKey := fmt.Sprintf("member:%d:%d:games:%s", platform, membershipID, mode)
	if cached, ok := h.cacheGet(cacheKey); ok {
		rw.Success(cached)
		return
	}

	member, err := h.store.GetMemberByPlatform(r.Context(), platform, membershipID)
	if errors.Is(err, database.ErrNotFound) {
		rw.NotFound("Member is not known")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	modeIDs, ok := resolveModeIDs(mode)
	if !ok {
		rw.BadRequest("Unknown mode")
		return
	}

	count, err := h.store.CountGamesForMember(r.Context(), member.ID, modeIDs...)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	resp := MemberGamesResponse{
		MemberID:     member.ID.String(),
		Platform:     platform.String(),
		MembershipID: membershipID,
		Mode:         mode,
		GameCount:    count,
	}
	if ident, ok := models.IdentityOf(member, platform); ok {
		resp.Username = ident.Username
	}

	lastPlayed, err := h.store.LastGameTime(r.Context(), member.ID)
	if err == nil && !lastPlayed.IsZero() {
		resp.LastPlayedAt = &lastPlayed
	}

	h.cacheSet(cacheKey, resp)
	rw.Success(resp)
}

// resolveModeIDs maps a mode name to the tracked mode ids it covers.
func resolveModeIDs(mode string) ([]int, bool) {
	tracked := models.TrackedModes()
	if mode == "all" {
		return tracked.IDs(), true
	}

	for _, gm := range tracked {
		if gm.Name == mode {
			return []int{gm.ID}, true
		}
	}
	return nil, false
}
