// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/henworth/seraphsix/internal/bungie"
	"github.com/henworth/seraphsix/internal/cache"
	"github.com/henworth/seraphsix/internal/database"
	"github.com/henworth/seraphsix/internal/jobs"
	"github.com/henworth/seraphsix/internal/logging"
	"github.com/henworth/seraphsix/internal/metrics"
	"github.com/henworth/seraphsix/internal/models"
)

// Dispatcher is the slice of the job queue the differ produces to.
type Dispatcher interface {
	Enqueue(ctx context.Context, req *jobs.ScanRequest) error
}

// ReconcileResult reports what one reconciliation pass did. Only
// successfully processed identities appear; skipped units are logged.
type ReconcileResult struct {
	Added   []models.IdentityKey
	Removed []models.IdentityKey
	Changed []models.IdentityKey
}

// Differ reconciles a clan's persisted membership against the live Bungie
// roster.
type Differ struct {
	client     bungie.ClientInterface
	repo       Repository
	dispatcher Dispatcher
	cache      *cache.Cache
}

// NewDiffer creates a membership differ. The cache may be nil.
func NewDiffer(client bungie.ClientInterface, repo Repository, dispatcher Dispatcher, c *cache.Cache) *Differ {
	return &Differ{client: client, repo: repo, dispatcher: dispatcher, cache: c}
}

// Reconcile diffs the clan's live roster against persisted membership and
// applies the delta: adds create Member and ClanMembership rows and enqueue
// one history-scan job each, removals delete the ClanMembership row (the
// Member survives for historical games), and rank changes update in place.
//
// The diff itself is a hash-set difference over identity keys; external
// calls happen only while streaming the roster. One member's failure is
// contained and does not abort the rest of the pass.
func (d *Differ) Reconcile(ctx context.Context, clan *models.Clan) (*ReconcileResult, error) {
	persisted, err := d.repo.GetClanMembers(ctx, clan.ID)
	if err != nil {
		metrics.ReconcilePasses.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load persisted membership: %w", err)
	}

	persistedByKey := make(map[models.IdentityKey]*models.ClanMembership, len(persisted))
	for _, cm := range persisted {
		key, ok := cm.Key()
		if !ok {
			logging.Warn().
				Int64("clan_id", cm.ClanID).
				Str("member_id", cm.MemberID.String()).
				Msg("Membership row without a matching platform identity skipped")
			continue
		}
		persistedByKey[key] = cm
	}

	rosterByKey := make(map[models.IdentityKey]*RosterEntry)
	stream := NewRosterStream(d.client, clan.GroupID)
	for stream.Next(ctx) {
		entry := stream.Entry()
		key := models.IdentityKey{
			ClanID:       clan.ID,
			Platform:     entry.Primary.Platform,
			MembershipID: entry.Primary.MembershipID,
		}
		rosterByKey[key] = entry
	}
	if err := stream.Err(); err != nil {
		outcome := "error"
		if bungie.IsMaintenance(err) {
			outcome = "maintenance"
		}
		metrics.ReconcilePasses.WithLabelValues(outcome).Inc()
		return nil, fmt.Errorf("stream roster for group %d: %w", clan.GroupID, err)
	}

	result := &ReconcileResult{}

	// Tracks which member each added key resolved to, so a stale key left
	// behind by a platform migration is not mistaken for a departure.
	addedMembers := make(map[uuid.UUID]models.IdentityKey)

	for key, entry := range rosterByKey {
		if _, ok := persistedByKey[key]; ok {
			continue
		}
		memberID, err := d.addMember(ctx, clan, key, entry)
		if err != nil {
			logging.Error().
				Err(err).
				Int64("clan_id", clan.ID).
				Int64("membership_id", key.MembershipID).
				Str("platform", key.Platform.String()).
				Msg("Failed to add clan member")
			continue
		}
		addedMembers[memberID] = key
		result.Added = append(result.Added, key)
		metrics.MembersAdded.Inc()
	}

	for key, cm := range persistedByKey {
		if _, ok := rosterByKey[key]; ok {
			continue
		}
		if newKey, ok := addedMembers[cm.MemberID]; ok {
			// The member did not leave; their primary identity moved to
			// another platform. Realign the existing row to the new key so
			// the next pass diffs cleanly, and keep the original join date.
			d.migrateMembership(ctx, cm, newKey, rosterByKey[newKey])
			continue
		}
		if err := d.repo.DeleteClanMembership(ctx, cm.ClanID, cm.MemberID); err != nil {
			logging.Error().
				Err(err).
				Int64("clan_id", cm.ClanID).
				Str("member_id", cm.MemberID.String()).
				Msg("Failed to remove clan member")
			continue
		}
		result.Removed = append(result.Removed, key)
		metrics.MembersRemoved.Inc()
	}

	for key, cm := range persistedByKey {
		entry, ok := rosterByKey[key]
		if !ok {
			continue
		}
		if cm.MemberType == entry.MemberType {
			continue
		}
		cm.MemberType = entry.MemberType
		if err := d.repo.UpdateClanMembership(ctx, cm); err != nil {
			logging.Error().
				Err(err).
				Int64("clan_id", cm.ClanID).
				Str("member_id", cm.MemberID.String()).
				Msg("Failed to update clan member rank")
			continue
		}
		result.Changed = append(result.Changed, key)
		metrics.MembersChanged.Inc()
	}

	sortKeys(result.Added)
	sortKeys(result.Removed)
	sortKeys(result.Changed)

	if d.cache != nil && (len(result.Added) > 0 || len(result.Removed) > 0 || len(result.Changed) > 0) {
		d.cache.InvalidatePrefix(fmt.Sprintf("clan:%d:", clan.ID))
	}

	metrics.ReconcilePasses.WithLabelValues("success").Inc()
	logging.Info().
		Int64("clan_id", clan.ID).
		Int64("group_id", clan.GroupID).
		Int("added", len(result.Added)).
		Int("removed", len(result.Removed)).
		Int("changed", len(result.Changed)).
		Msg("Clan membership reconciled")

	return result, nil
}

// migrateMembership points an existing membership row at the member's new
// primary platform identity.
func (d *Differ) migrateMembership(ctx context.Context, cm *models.ClanMembership, newKey models.IdentityKey, entry *RosterEntry) {
	cm.Platform = newKey.Platform
	if entry != nil {
		cm.MemberType = entry.MemberType
	}
	if err := d.repo.UpdateClanMembership(ctx, cm); err != nil {
		logging.Error().
			Err(err).
			Int64("clan_id", cm.ClanID).
			Str("member_id", cm.MemberID.String()).
			Msg("Failed to realign membership after platform migration")
		return
	}
	logging.Info().
		Int64("clan_id", cm.ClanID).
		Str("member_id", cm.MemberID.String()).
		Str("platform", newKey.Platform.String()).
		Msg("Membership migrated to new primary platform")
}

// addMember locates or creates the Member behind a roster entry, creates
// its ClanMembership, and enqueues one history-scan job. Returns the id of
// the member the key resolved to.
func (d *Differ) addMember(ctx context.Context, clan *models.Clan, key models.IdentityKey, entry *RosterEntry) (uuid.UUID, error) {
	member, err := d.locateOrCreateMember(ctx, entry)
	if err != nil {
		return uuid.Nil, err
	}

	lastActive := entry.LastOnlineStatusChange
	cm := &models.ClanMembership{
		ClanID:     clan.ID,
		MemberID:   member.ID,
		Platform:   key.Platform,
		MemberType: entry.MemberType,
		JoinDate:   entry.JoinDate,
		IsActive:   true,
	}
	if !lastActive.IsZero() {
		cm.LastActiveAt = &lastActive
	}

	if err := d.repo.CreateClanMembership(ctx, cm); err != nil {
		// The member is already linked, either by a concurrent pass or
		// under an older platform identity.
		if !errors.Is(err, database.ErrConflict) {
			return uuid.Nil, fmt.Errorf("create clan membership: %w", err)
		}
	}

	if d.dispatcher != nil {
		req := &jobs.ScanRequest{
			Job:      jobs.JobScanMember,
			ClanID:   clan.ID,
			GroupID:  clan.GroupID,
			MemberID: member.ID,
		}
		if err := d.dispatcher.Enqueue(ctx, req); err != nil {
			// The scheduler's periodic full scan will pick the member up.
			logging.Warn().
				Err(err).
				Str("member_id", member.ID.String()).
				Msg("Failed to enqueue history scan for added member")
		}
	}
	return member.ID, nil
}

// locateOrCreateMember resolves the roster entry to a Member row. A create
// that loses a uniqueness race (cross-save: another identity of the same
// person was persisted first) is resolved by re-fetching the canonical row.
func (d *Differ) locateOrCreateMember(ctx context.Context, entry *RosterEntry) (*models.Member, error) {
	for _, ident := range entry.Identities {
		member, err := d.repo.GetMemberByPlatform(ctx, ident.Platform, ident.MembershipID)
		if err == nil {
			return d.refreshIdentities(ctx, member, entry), nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("lookup member: %w", err)
		}
	}

	member := &models.Member{IsActive: true}
	for _, ident := range entry.Identities {
		models.SetIdentity(member, ident)
	}

	err := d.repo.CreateMember(ctx, member)
	if err == nil {
		return member, nil
	}
	if !errors.Is(err, database.ErrConflict) {
		return nil, fmt.Errorf("create member: %w", err)
	}

	// Lost the race: fetch whichever identity now resolves.
	for _, ident := range entry.Identities {
		existing, lookupErr := d.repo.GetMemberByPlatform(ctx, ident.Platform, ident.MembershipID)
		if lookupErr == nil {
			return existing, nil
		}
		if !errors.Is(lookupErr, database.ErrNotFound) {
			return nil, fmt.Errorf("resolve member conflict: %w", lookupErr)
		}
	}
	return nil, fmt.Errorf("resolve member conflict: no identity resolves after %w", database.ErrConflict)
}

// refreshIdentities folds newly linked platform identities into an existing
// member row. Best-effort: a failed update leaves the stale row in place.
func (d *Differ) refreshIdentities(ctx context.Context, member *models.Member, entry *RosterEntry) *models.Member {
	updated := false
	for _, ident := range entry.Identities {
		if _, ok := models.IdentityOf(member, ident.Platform); !ok {
			models.SetIdentity(member, ident)
			updated = true
		}
	}
	if updated {
		if err := d.repo.UpdateMember(ctx, member); err != nil {
			logging.Warn().
				Err(err).
				Str("member_id", member.ID.String()).
				Msg("Failed to persist newly linked identities")
		}
	}
	return member
}

func sortKeys(keys []models.IdentityKey) {
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Platform != b.Platform {
			return a.Platform < b.Platform
		}
		return a.MembershipID < b.MembershipID
	})
}
