// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/henworth/seraphsix/internal/jobs"
	"github.com/henworth/seraphsix/internal/models"
)

func TestSchedulerEnqueuesTrackedClans(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.clans = []*models.Clan{
		{ID: 1, GroupID: 1000, ActivityTracking: true},
		{ID: 2, GroupID: 2000, ActivityTracking: false},
		{ID: 3, GroupID: 3000, ActivityTracking: true},
	}
	dispatcher := newFakeDispatcher()

	s := NewScheduler(repo, dispatcher, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	// The first tick fires on startup.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(dispatcher.enqueued()) == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Serve returned %v, want context.Canceled", err)
	}

	enqueued := dispatcher.enqueued()
	if len(enqueued) != 2 {
		t.Fatalf("enqueued %d jobs, want 2 (tracking-disabled clan skipped)", len(enqueued))
	}
	for _, req := range enqueued {
		if req.job != jobs.JobReconcileClan {
			t.Fatalf("job = %q, want %q", req.job, jobs.JobReconcileClan)
		}
		if req.clanID == 2 {
			t.Fatal("tracking-disabled clan was enqueued")
		}
	}
}

func TestHandleJobReconcileThenScan(t *testing.T) {
	t.Parallel()

	f := newScanFixture(t)
	f.repo.clans = []*models.Clan{f.clan}

	// A fourth player appears on the roster: reconcile should add them
	// before the scan runs.
	f.client.roster = []models.GroupMember{
		rosterMember(models.PlatformSteam, 1, "raider", 2, testJoin),
		rosterMember(models.PlatformSteam, 2, "raider", 2, testJoin),
		rosterMember(models.PlatformSteam, 3, "raider", 2, testJoin),
		rosterMember(models.PlatformSteam, 4, "recruit", 2, testJoin),
	}

	differ := NewDiffer(f.client, f.repo, newFakeDispatcher(), nil)
	scanner := NewScanner(f.client, f.repo, models.TrackedModes(), 10, 2)
	handler := HandleJob(differ, scanner, f.repo)

	err := handler(context.Background(), &jobs.ScanRequest{Job: jobs.JobReconcileClan, ClanID: f.clan.ID})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	if f.repo.membershipCount() != 4 {
		t.Fatalf("membership rows = %d, want 4 after reconcile", f.repo.membershipCount())
	}
	if f.repo.gameCount() != 1 {
		t.Fatalf("games = %d, want 1 after scan", f.repo.gameCount())
	}
}

func TestHandleJobUnknownClan(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	client := newFakeClient()
	differ := NewDiffer(client, repo, newFakeDispatcher(), nil)
	scanner := NewScanner(client, repo, models.TrackedModes(), 10, 1)

	err := HandleJob(differ, scanner, repo)(context.Background(), &jobs.ScanRequest{Job: jobs.JobReconcileClan, ClanID: 42})
	if err == nil {
		t.Fatal("reconcile of an unregistered clan succeeded")
	}
}
