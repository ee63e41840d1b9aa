// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/henworth/seraphsix/internal/bungie"
	"github.com/henworth/seraphsix/internal/metrics"
	"github.com/henworth/seraphsix/internal/models"
)

// snapshotKey matches carnage-report participants to clan members by
// platform and membership id.
type snapshotKey struct {
	Platform     models.Platform
	MembershipID int64
}

// Snapshot is an immutable view of one clan's membership, indexed by every
// platform identity each member holds so cross-save participants match
// regardless of which platform they played on.
type Snapshot struct {
	byIdentity map[snapshotKey]uuid.UUID
	joinDates  map[uuid.UUID]time.Time
}

// NewSnapshot builds a snapshot from persisted membership rows. Rows
// without a joined member are skipped.
func NewSnapshot(memberships []*models.ClanMembership) *Snapshot {
	s := &Snapshot{
		byIdentity: make(map[snapshotKey]uuid.UUID),
		joinDates:  make(map[uuid.UUID]time.Time),
	}
	for _, cm := range memberships {
		if cm.Member == nil {
			continue
		}
		for _, ident := range models.Identities(cm.Member) {
			s.byIdentity[snapshotKey{Platform: ident.Platform, MembershipID: ident.MembershipID}] = cm.MemberID
		}
		s.joinDates[cm.MemberID] = cm.JoinDate
	}
	return s
}

// Lookup resolves a platform identity to a clan member id.
func (s *Snapshot) Lookup(platform models.Platform, membershipID int64) (uuid.UUID, bool) {
	id, ok := s.byIdentity[snapshotKey{Platform: platform, MembershipID: membershipID}]
	return id, ok
}

// JoinDate returns when the member joined the clan.
func (s *Snapshot) JoinDate(memberID uuid.UUID) (time.Time, bool) {
	t, ok := s.joinDates[memberID]
	return t, ok
}

// Size returns the number of members in the snapshot.
func (s *Snapshot) Size() int {
	return len(s.joinDates)
}

// Candidate is an accepted activity instance ready for recording.
type Candidate struct {
	Game         models.Game
	Participants []uuid.UUID
}

// Evaluator applies the eligibility test to candidate activity instances.
type Evaluator struct {
	client bungie.ClientInterface
	modes  models.ModeMap
}

// NewEvaluator creates an evaluator over the given tracked-mode table.
func NewEvaluator(client bungie.ClientInterface, modes models.ModeMap) *Evaluator {
	return &Evaluator{client: client, modes: modes}
}

// Evaluate fetches the full participant report for one activity instance
// and decides whether it counts as a clan game for the evaluating member.
// Returns (nil, nil) when the instance is ineligible; only maintenance and
// transport failures surface as errors.
//
// Rejection rules, in order:
//   - canonical mode is not in the tracked-mode table;
//   - matched, completed clan participants < the mode's threshold;
//   - the instance occurred at or before the Forsaken release cutoff
//     (reference ids before that point are unreliable);
//   - the instance occurred before the evaluating member joined the clan
//     (a game at the join instant counts).
func (e *Evaluator) Evaluate(ctx context.Context, instanceID int64, memberID uuid.UUID, snap *Snapshot) (*Candidate, error) {
	report, err := e.client.GetCarnageReport(ctx, instanceID)
	if err != nil {
		if bungie.IsPrivate(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("carnage report %d: %w", instanceID, err)
	}

	modeID := models.CanonicalModeID(report.ActivityDetails.Mode, report.ActivityDetails.Modes)
	mode, tracked := e.modes[modeID]
	if !tracked {
		return nil, nil
	}

	participants := e.matchParticipants(report, snap)
	if len(participants) < mode.Threshold {
		metrics.GamesRejected.WithLabelValues("threshold").Inc()
		return nil, nil
	}

	if !report.Period.After(models.ForsakenReleaseDate) {
		metrics.GamesRejected.WithLabelValues("release_cutoff").Inc()
		return nil, nil
	}

	joinDate, ok := snap.JoinDate(memberID)
	if !ok || report.Period.Before(joinDate) {
		metrics.GamesRejected.WithLabelValues("join_cutoff").Inc()
		return nil, nil
	}

	game := models.Game{
		InstanceID: instanceID,
		ModeID:     modeID,
		OccurredAt: report.Period,
	}
	if ref := report.ActivityDetails.ReferenceID.Int64(); ref != 0 {
		game.ReferenceID = &ref
	}

	return &Candidate{Game: game, Participants: participants}, nil
}

// matchParticipants builds the set of report entries that both completed
// the activity and match a clan identity. Entries with an unresolvable
// display name are excluded, not errors. The result is deduplicated by
// member: a member playing two characters in one instance counts once.
func (e *Evaluator) matchParticipants(report *models.CarnageReport, snap *Snapshot) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID

	for i := range report.Entries {
		entry := &report.Entries[i]
		if !entry.Completed() {
			continue
		}
		info := entry.Player.DestinyUserInfo
		if info.DisplayName == "" {
			continue
		}
		memberID, ok := snap.Lookup(models.Platform(info.MembershipType), info.MembershipID.Int64())
		if !ok {
			continue
		}
		if _, dup := seen[memberID]; dup {
			continue
		}
		seen[memberID] = struct{}{}
		out = append(out, memberID)
	}
	return out
}
