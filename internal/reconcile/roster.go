// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package reconcile

import (
	"context"
	"time"

	"github.com/henworth/seraphsix/internal/bungie"
	"github.com/henworth/seraphsix/internal/logging"
	"github.com/henworth/seraphsix/internal/models"
)

// RosterEntry is one normalized roster record: the platform identity the
// member joined on plus every cross-save identity resolved for them.
type RosterEntry struct {
	// Primary is the identity reported by the roster endpoint itself.
	Primary models.Identity

	// Identities holds all linked platform identities, Primary included,
	// in models.AllPlatforms order.
	Identities []models.Identity

	MemberType             int
	JoinDate               time.Time
	IsOnline               bool
	LastOnlineStatusChange time.Time
}

// RosterStream is a lazy single-pass sequence of roster entries for one
// clan. Each call to Next fetches at most one roster page and performs one
// identity-resolution lookup; exhausting the stream materializes the roster
// for one reconciliation pass. The stream is not restartable.
type RosterStream struct {
	client  bungie.ClientInterface
	groupID int64

	page    int
	pending []models.GroupMember
	hasMore bool
	started bool

	entry *RosterEntry
	err   error
}

// NewRosterStream creates a stream over the clan's current roster.
func NewRosterStream(client bungie.ClientInterface, groupID int64) *RosterStream {
	return &RosterStream{client: client, groupID: groupID, hasMore: true}
}

// Next advances to the next roster entry. It returns false when the roster
// is exhausted or a roster-page fetch failed; check Err to distinguish.
// Entries whose identity resolution fails are logged and skipped so one
// restricted account cannot abort the pass.
func (s *RosterStream) Next(ctx context.Context) bool {
	for {
		if len(s.pending) == 0 {
			if !s.fetchPage(ctx) {
				return false
			}
		}

		raw := s.pending[0]
		s.pending = s.pending[1:]

		entry, err := s.resolve(ctx, raw)
		if err != nil {
			if bungie.IsMaintenance(err) {
				s.err = err
				return false
			}
			logging.Warn().
				Err(err).
				Int64("group_id", s.groupID).
				Int64("membership_id", raw.DestinyUserInfo.MembershipID.Int64()).
				Msg("Roster entry skipped, identity resolution failed")
			continue
		}
		s.entry = entry
		return true
	}
}

// Entry returns the entry Next advanced to. Valid only after Next returned
// true.
func (s *RosterStream) Entry() *RosterEntry {
	return s.entry
}

// Err returns the error that terminated the stream, if any.
func (s *RosterStream) Err() error {
	return s.err
}

func (s *RosterStream) fetchPage(ctx context.Context) bool {
	// An empty page with more pages behind it is skipped, not a stream end.
	for len(s.pending) == 0 {
		if s.started && !s.hasMore {
			return false
		}

		s.page++
		s.started = true

		list, err := s.client.GetGroupMembers(ctx, s.groupID, s.page)
		if err != nil {
			s.err = err
			return false
		}

		s.pending = list.Results
		s.hasMore = list.HasMore
	}
	return true
}

// resolve normalizes one raw roster record, performing the cross-save
// identity lookup the roster endpoint does not supply.
func (s *RosterStream) resolve(ctx context.Context, raw models.GroupMember) (*RosterEntry, error) {
	platform := models.Platform(raw.DestinyUserInfo.MembershipType)
	membershipID := raw.DestinyUserInfo.MembershipID.Int64()

	primary := models.Identity{
		Platform:     platform,
		MembershipID: membershipID,
		Username:     raw.DestinyUserInfo.DisplayName,
	}

	data, err := s.client.GetMembershipsByID(ctx, membershipID, platform)
	if err != nil {
		return nil, err
	}

	// One scratch member collects identities so they come out in the fixed
	// platform order regardless of API ordering.
	var scratch models.Member
	models.SetIdentity(&scratch, primary)
	for _, card := range data.DestinyMemberships {
		ident := models.Identity{
			Platform:     models.Platform(card.MembershipType),
			MembershipID: card.MembershipID.Int64(),
			Username:     card.DisplayName,
		}
		if !ident.Platform.Valid() {
			continue
		}
		models.SetIdentity(&scratch, ident)
	}
	if data.BungieNetUser != nil {
		models.SetIdentity(&scratch, models.Identity{
			Platform:     models.PlatformBungie,
			MembershipID: data.BungieNetUser.MembershipID.Int64(),
			Username:     data.BungieNetUser.DisplayName,
		})
	}

	return &RosterEntry{
		Primary:                primary,
		Identities:             models.Identities(&scratch),
		MemberType:             raw.MemberType,
		JoinDate:               raw.JoinDate,
		IsOnline:               raw.IsOnline,
		LastOnlineStatusChange: time.Unix(raw.LastOnlineStatusChange.Int64(), 0).UTC(),
	}, nil
}
