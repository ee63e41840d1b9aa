// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package reconcile

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/henworth/seraphsix/internal/models"
)

func TestRecordCreatesGameAndParticipants(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	r := NewRecorder(repo)

	game := &models.Game{InstanceID: 5000, ModeID: models.ModeRaid, OccurredAt: afterForsaken}
	participants := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	result, err := r.Record(context.Background(), game, participants)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !result.Created {
		t.Fatal("first Record reported adopted, want created")
	}
	if repo.gameCount() != 1 || repo.participationCount() != 3 {
		t.Fatalf("games=%d participations=%d, want 1/3", repo.gameCount(), repo.participationCount())
	}
}

func TestRecordIdempotentUnionOfParticipants(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	r := NewRecorder(repo)

	shared := uuid.New()
	first := []uuid.UUID{shared, uuid.New()}
	second := []uuid.UUID{shared, uuid.New()}

	game := func() *models.Game {
		return &models.Game{InstanceID: 5000, ModeID: models.ModeRaid, OccurredAt: afterForsaken}
	}

	if _, err := r.Record(context.Background(), game(), first); err != nil {
		t.Fatalf("first Record: %v", err)
	}
	result, err := r.Record(context.Background(), game(), second)
	if err != nil {
		t.Fatalf("second Record: %v", err)
	}
	if result.Created {
		t.Fatal("second Record reported created, want adopted")
	}

	// One game row, participant set equal to the union of both attempts.
	if repo.gameCount() != 1 {
		t.Fatalf("games = %d, want 1", repo.gameCount())
	}
	if repo.participationCount() != 3 {
		t.Fatalf("participations = %d, want 3 (union, no duplicates)", repo.participationCount())
	}
}

func TestRecordConcurrentRaceConverges(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	r := NewRecorder(repo)

	participants := []uuid.UUID{uuid.New(), uuid.New()}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			game := &models.Game{InstanceID: 5000, ModeID: models.ModeRaid, OccurredAt: afterForsaken}
			_, errs[n] = r.Record(context.Background(), game, participants)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("racer %d: %v", i, err)
		}
	}
	if repo.gameCount() != 1 {
		t.Fatalf("games = %d, want exactly 1 after race", repo.gameCount())
	}
	if repo.participationCount() != 2 {
		t.Fatalf("participations = %d, want 2", repo.participationCount())
	}
}

func TestRecordBackfillsReference(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	r := NewRecorder(repo)

	// First writer had no reference id.
	bare := &models.Game{InstanceID: 5000, ModeID: models.ModeRaid, OccurredAt: afterForsaken}
	if _, err := r.Record(context.Background(), bare, nil); err != nil {
		t.Fatalf("first Record: %v", err)
	}

	ref := int64(777)
	withRef := &models.Game{InstanceID: 5000, ModeID: models.ModeRaid, OccurredAt: afterForsaken, ReferenceID: &ref}
	if _, err := r.Record(context.Background(), withRef, nil); err != nil {
		t.Fatalf("second Record: %v", err)
	}

	stored, err := repo.GetGameByInstanceID(context.Background(), 5000)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if stored.ReferenceID == nil || *stored.ReferenceID != 777 {
		t.Fatalf("reference id = %v, want 777 backfilled", stored.ReferenceID)
	}
}
