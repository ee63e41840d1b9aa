// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package reconcile

import (
	"context"
	"fmt"

	"github.com/henworth/seraphsix/internal/bungie"
	"github.com/henworth/seraphsix/internal/logging"
	"github.com/henworth/seraphsix/internal/models"
)

// defaultHistoryCount is the per-character, per-mode activity page size.
const defaultHistoryCount = 10

// ActivityFetcher enumerates a member's recent completed activity instances.
type ActivityFetcher struct {
	client bungie.ClientInterface
	count  int
}

// NewActivityFetcher creates a fetcher. count <= 0 uses the default page
// size.
func NewActivityFetcher(client bungie.ClientInterface, count int) *ActivityFetcher {
	if count <= 0 {
		count = defaultHistoryCount
	}
	return &ActivityFetcher{client: client, count: count}
}

// ListInstances returns recent activity instance ids for one identity and
// mode across all the member's characters, in API recency order per
// character, deduplicated across characters (a fireteam of the member's own
// characters reports the same instance once). A character whose history
// fetch fails is logged and skipped; private history contributes nothing.
func (f *ActivityFetcher) ListInstances(ctx context.Context, platform models.Platform, membershipID int64, characterIDs []int64, modeID int) ([]int64, error) {
	seen := make(map[int64]struct{})
	var instances []int64

	for _, characterID := range characterIDs {
		history, err := f.client.GetActivityHistory(ctx, platform, membershipID, characterID, modeID, f.count)
		if err != nil {
			if bungie.IsMaintenance(err) {
				return nil, fmt.Errorf("activity history for character %d: %w", characterID, err)
			}
			logging.Warn().
				Err(err).
				Int64("membership_id", membershipID).
				Int64("character_id", characterID).
				Int("mode_id", modeID).
				Msg("Character activity history skipped")
			continue
		}

		for _, entry := range history.Activities {
			instanceID := entry.ActivityDetails.InstanceID.Int64()
			if _, ok := seen[instanceID]; ok {
				continue
			}
			seen[instanceID] = struct{}{}
			instances = append(instances, instanceID)
		}
	}
	return instances, nil
}
