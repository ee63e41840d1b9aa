// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/henworth/seraphsix/internal/jobs"
	"github.com/henworth/seraphsix/internal/logging"
	"github.com/henworth/seraphsix/internal/models"
)

// defaultScheduleInterval is how often every tracked clan is re-enqueued
// for reconciliation.
const defaultScheduleInterval = time.Hour

// Scheduler periodically enqueues a reconcile job for every clan with
// activity tracking enabled. It implements suture.Service; the supervision
// tree restarts it if the tick loop ever returns unexpectedly.
//
// The scheduler only enqueues: the dispatcher's dedup keys guarantee that a
// tick arriving while a clan's previous reconcile is still running is a
// no-op.
type Scheduler struct {
	repo       Repository
	dispatcher Dispatcher
	interval   time.Duration
}

// NewScheduler creates a scheduler. interval <= 0 uses the default.
func NewScheduler(repo Repository, dispatcher Dispatcher, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultScheduleInterval
	}
	return &Scheduler{repo: repo, dispatcher: dispatcher, interval: interval}
}

// Serve implements suture.Service. One tick fires immediately on startup so
// a fresh process does not wait a full interval before the first pass.
func (s *Scheduler) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	clans, err := s.repo.GetClans(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Scheduler failed to list clans")
		return
	}

	enqueued := 0
	for _, clan := range clans {
		if !clan.ActivityTracking {
			continue
		}
		req := &jobs.ScanRequest{
			Job:     jobs.JobReconcileClan,
			ClanID:  clan.ID,
			GroupID: clan.GroupID,
		}
		if err := s.dispatcher.Enqueue(ctx, req); err != nil {
			logging.Error().
				Err(err).
				Int64("clan_id", clan.ID).
				Msg("Scheduler failed to enqueue clan reconcile")
			continue
		}
		enqueued++
	}

	logging.Debug().Int("clans", enqueued).Msg("Scheduled clan reconciliation")
}

// String implements fmt.Stringer for supervision logs.
func (s *Scheduler) String() string {
	return "reconcile-scheduler"
}

// HandleJob is the dispatcher handler binding: reconcile-clan jobs run the
// differ then a full clan scan, member-scan jobs run one member's history
// scan.
func HandleJob(differ *Differ, scanner *Scanner, repo Repository) jobs.Handler {
	return func(ctx context.Context, req *jobs.ScanRequest) error {
		switch req.Job {
		case jobs.JobReconcileClan:
			clan, err := findClan(ctx, repo, req.ClanID)
			if err != nil {
				return err
			}
			if _, err := differ.Reconcile(ctx, clan); err != nil {
				return err
			}
			return scanner.ScanClan(ctx, clan)
		case jobs.JobScanMember:
			return scanner.ScanMemberByID(ctx, req.ClanID, req.MemberID)
		default:
			logging.Warn().Str("job", req.Job).Msg("Unknown job ignored")
			return nil
		}
	}
}

func findClan(ctx context.Context, repo Repository, clanID int64) (*models.Clan, error) {
	clans, err := repo.GetClans(ctx)
	if err != nil {
		return nil, err
	}
	for _, clan := range clans {
		if clan.ID == clanID {
			return clan, nil
		}
	}
	return nil, fmt.Errorf("clan %d is not registered", clanID)
}
