// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/henworth/seraphsix/internal/database"
	"github.com/henworth/seraphsix/internal/metrics"
	"github.com/henworth/seraphsix/internal/models"
)

// RecordResult reports whether Record created the Game row or adopted one a
// concurrent scan recorded first.
type RecordResult struct {
	Created bool
	GameID  uuid.UUID
}

// Recorder persists accepted activity instances idempotently.
type Recorder struct {
	repo Repository
}

// NewRecorder creates a game recorder.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

// Record creates the Game row and its participant links. A uniqueness
// conflict on the Game means a concurrent scan already recorded this
// instance; the existing row is adopted and any missing participant links
// are still created, each tolerating its own conflict. Recording the same
// instance twice, concurrently or sequentially, converges to one Game row
// and the union of both attempts' participants.
func (r *Recorder) Record(ctx context.Context, game *models.Game, participants []uuid.UUID) (*RecordResult, error) {
	result := &RecordResult{Created: true}

	err := r.repo.CreateGame(ctx, game)
	switch {
	case err == nil:
		result.GameID = game.ID
		metrics.GamesRecorded.Inc()
	case errors.Is(err, database.ErrConflict):
		existing, fetchErr := r.repo.GetGameByInstanceID(ctx, game.InstanceID)
		if fetchErr != nil {
			return nil, fmt.Errorf("adopt existing game %d: %w", game.InstanceID, fetchErr)
		}
		result.Created = false
		result.GameID = existing.ID
		metrics.GamesDuplicate.Inc()

		if existing.ReferenceID == nil && game.ReferenceID != nil {
			if backfillErr := r.repo.BackfillGameReference(ctx, game.InstanceID, *game.ReferenceID); backfillErr != nil {
				return nil, fmt.Errorf("backfill reference for game %d: %w", game.InstanceID, backfillErr)
			}
		}
	default:
		return nil, fmt.Errorf("create game %d: %w", game.InstanceID, err)
	}

	for _, memberID := range participants {
		p := &models.GameParticipation{GameID: result.GameID, MemberID: memberID}
		if err := r.repo.CreateGameParticipation(ctx, p); err != nil {
			if errors.Is(err, database.ErrConflict) {
				continue
			}
			return nil, fmt.Errorf("link participant %s to game %d: %w", memberID, game.InstanceID, err)
		}
	}
	return result, nil
}
