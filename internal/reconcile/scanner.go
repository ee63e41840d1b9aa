// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/henworth/seraphsix/internal/bungie"
	"github.com/henworth/seraphsix/internal/logging"
	"github.com/henworth/seraphsix/internal/models"
)

// defaultScanConcurrency bounds how many members are scanned at once.
const defaultScanConcurrency = 4

// Scanner drives fetch, evaluate, and record for clan members. Within one
// member the scan order is deterministic: platforms in the fixed enum
// order, modes in ascending id order, instances in API recency order.
// Scans of different members run concurrently with no relative ordering;
// the recorder's conflict tolerance makes that race safe.
type Scanner struct {
	client      bungie.ClientInterface
	repo        Repository
	fetcher     *ActivityFetcher
	evaluator   *Evaluator
	recorder    *Recorder
	modes       models.ModeMap
	concurrency int
}

// NewScanner creates a scanner. historyCount <= 0 and concurrency <= 0 use
// defaults.
func NewScanner(client bungie.ClientInterface, repo Repository, modes models.ModeMap, historyCount, concurrency int) *Scanner {
	if concurrency <= 0 {
		concurrency = defaultScanConcurrency
	}
	return &Scanner{
		client:      client,
		repo:        repo,
		fetcher:     NewActivityFetcher(client, historyCount),
		evaluator:   NewEvaluator(client, modes),
		recorder:    NewRecorder(repo),
		modes:       modes,
		concurrency: concurrency,
	}
}

// ScanMember runs one member's full activity scan against the snapshot.
// Per-instance failures are logged and skipped; maintenance aborts the
// member's scan immediately.
func (s *Scanner) ScanMember(ctx context.Context, cm *models.ClanMembership, snap *Snapshot) error {
	if cm.Member == nil {
		return fmt.Errorf("membership row for member %s has no joined member", cm.MemberID)
	}

	var latest time.Time
	modeIDs := s.modes.IDs()

	for _, ident := range models.Identities(cm.Member) {
		characterIDs, err := s.client.GetCharacterIDs(ctx, ident.Platform, ident.MembershipID)
		if err != nil {
			if bungie.IsMaintenance(err) {
				return fmt.Errorf("characters for %s/%d: %w", ident.Platform, ident.MembershipID, err)
			}
			logging.Warn().
				Err(err).
				Str("platform", ident.Platform.String()).
				Int64("membership_id", ident.MembershipID).
				Msg("Character list skipped")
			continue
		}
		if len(characterIDs) == 0 {
			continue
		}

		for _, modeID := range modeIDs {
			instances, err := s.fetcher.ListInstances(ctx, ident.Platform, ident.MembershipID, characterIDs, modeID)
			if err != nil {
				return err
			}

			for _, instanceID := range instances {
				occurred, err := s.processInstance(ctx, instanceID, cm.MemberID, snap)
				if err != nil {
					if bungie.IsMaintenance(err) {
						return err
					}
					logging.Warn().
						Err(err).
						Int64("instance_id", instanceID).
						Str("member_id", cm.MemberID.String()).
						Msg("Activity instance skipped")
					continue
				}
				if occurred.After(latest) {
					latest = occurred
				}
			}
		}
	}

	s.touchLastActive(ctx, cm, latest)
	return nil
}

// processInstance evaluates and records one instance. Returns the
// occurrence time of a recorded game, or zero when ineligible.
func (s *Scanner) processInstance(ctx context.Context, instanceID int64, memberID uuid.UUID, snap *Snapshot) (time.Time, error) {
	candidate, err := s.evaluator.Evaluate(ctx, instanceID, memberID, snap)
	if err != nil {
		return time.Time{}, err
	}
	if candidate == nil {
		return time.Time{}, nil
	}

	if _, err := s.recorder.Record(ctx, &candidate.Game, candidate.Participants); err != nil {
		return time.Time{}, err
	}
	return candidate.Game.OccurredAt, nil
}

// touchLastActive advances the membership's last-active timestamp to the
// newest recorded game. Best-effort.
func (s *Scanner) touchLastActive(ctx context.Context, cm *models.ClanMembership, latest time.Time) {
	if latest.IsZero() {
		return
	}
	if cm.LastActiveAt != nil && !latest.After(*cm.LastActiveAt) {
		return
	}
	cm.LastActiveAt = &latest
	if err := s.repo.UpdateClanMembership(ctx, cm); err != nil {
		logging.Warn().
			Err(err).
			Str("member_id", cm.MemberID.String()).
			Msg("Failed to update last-active timestamp")
	}
}

// ScanMemberByID loads the membership row for one member of one clan and
// scans it. This is the entry point the dispatched history-scan jobs use.
func (s *Scanner) ScanMemberByID(ctx context.Context, clanID int64, memberID uuid.UUID) error {
	memberships, err := s.repo.GetClanMembers(ctx, clanID)
	if err != nil {
		return fmt.Errorf("load clan %d membership: %w", clanID, err)
	}

	snap := NewSnapshot(memberships)
	for _, cm := range memberships {
		if cm.MemberID == memberID {
			return s.ScanMember(ctx, cm, snap)
		}
	}
	return fmt.Errorf("member %s is not in clan %d", memberID, clanID)
}

// ScanClan scans every member of the clan, fanning out across members with
// bounded concurrency and waiting for all of them. One member's failure is
// contained; maintenance short-circuits the remaining members and surfaces.
func (s *Scanner) ScanClan(ctx context.Context, clan *models.Clan) error {
	memberships, err := s.repo.GetClanMembers(ctx, clan.ID)
	if err != nil {
		return fmt.Errorf("load clan %d membership: %w", clan.ID, err)
	}

	snap := NewSnapshot(memberships)

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		maintenance error
	)
	sem := make(chan struct{}, s.concurrency)

	for _, cm := range memberships {
		mu.Lock()
		aborted := maintenance != nil
		mu.Unlock()
		if aborted {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(cm *models.ClanMembership) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.ScanMember(ctx, cm, snap); err != nil {
				if bungie.IsMaintenance(err) {
					mu.Lock()
					if maintenance == nil {
						maintenance = err
					}
					mu.Unlock()
					return
				}
				logging.Error().
					Err(err).
					Int64("clan_id", clan.ID).
					Str("member_id", cm.MemberID.String()).
					Msg("Member scan failed")
			}
		}(cm)
	}

	wg.Wait()
	if maintenance != nil {
		return fmt.Errorf("scan clan %d: %w", clan.ID, maintenance)
	}
	return nil
}
