// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/henworth/seraphsix/internal/bungie"
	"github.com/henworth/seraphsix/internal/models"
)

func TestRosterStreamYieldsNormalizedEntries(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.roster = []models.GroupMember{
		rosterMember(models.PlatformSteam, 100, "alpha", 2, testJoin),
		rosterMember(models.PlatformXbox, 200, "bravo", 3, testJoin),
	}
	client.memberships[100] = &models.MembershipData{
		DestinyMemberships: []models.UserInfoCard{
			{MembershipType: int(models.PlatformSteam), MembershipID: 100, DisplayName: "alpha"},
			{MembershipType: int(models.PlatformPSN), MembershipID: 101, DisplayName: "alpha"},
		},
	}

	stream := NewRosterStream(client, 1000)
	var entries []*RosterEntry
	for stream.Next(context.Background()) {
		entries = append(entries, stream.Entry())
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	alpha := entries[0]
	if alpha.Primary.Platform != models.PlatformSteam || alpha.Primary.MembershipID != 100 {
		t.Fatalf("primary = %+v", alpha.Primary)
	}
	// Cross-save: the PSN identity comes from the lookup, not the roster.
	if len(alpha.Identities) != 2 {
		t.Fatalf("identities = %+v, want steam+psn", alpha.Identities)
	}
	if alpha.MemberType != 2 || !alpha.JoinDate.Equal(testJoin) {
		t.Fatalf("entry = %+v", alpha)
	}

	bravo := entries[1]
	if len(bravo.Identities) != 1 || bravo.Identities[0].Platform != models.PlatformXbox {
		t.Fatalf("bravo identities = %+v, want xbox only", bravo.Identities)
	}
}

func TestRosterStreamSkipsFailedResolution(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.roster = []models.GroupMember{
		rosterMember(models.PlatformSteam, 100, "alpha", 2, testJoin),
		rosterMember(models.PlatformSteam, 666, "broken", 2, testJoin),
		rosterMember(models.PlatformSteam, 300, "charlie", 2, testJoin),
	}
	client.membershipErr[666] = errors.New("malformed payload")

	stream := NewRosterStream(client, 1000)
	var got []int64
	for stream.Next(context.Background()) {
		got = append(got, stream.Entry().Primary.MembershipID)
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if len(got) != 2 || got[0] != 100 || got[1] != 300 {
		t.Fatalf("entries = %v, want [100 300]", got)
	}
}

func TestRosterStreamMaintenanceTerminates(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.roster = []models.GroupMember{
		rosterMember(models.PlatformSteam, 100, "alpha", 2, testJoin),
	}
	client.membershipErr[100] = bungie.ErrMaintenance

	stream := NewRosterStream(client, 1000)
	if stream.Next(context.Background()) {
		t.Fatal("Next returned true under maintenance")
	}
	if !errors.Is(stream.Err(), bungie.ErrMaintenance) {
		t.Fatalf("Err = %v, want maintenance", stream.Err())
	}
}

func TestRosterStreamEmptyRoster(t *testing.T) {
	t.Parallel()

	stream := NewRosterStream(newFakeClient(), 1000)
	if stream.Next(context.Background()) {
		t.Fatal("Next returned true for an empty roster")
	}
	if stream.Err() != nil {
		t.Fatalf("Err = %v, want nil", stream.Err())
	}
}
