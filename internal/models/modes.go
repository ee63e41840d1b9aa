// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package models

import "time"

// ForsakenReleaseDate is the content-release cutoff for game eligibility.
// Activity reference ids before this point are unreliable for cross-mode
// classification, so games that occurred strictly before it never count.
var ForsakenReleaseDate = time.Date(2018, time.September, 4, 17, 0, 0, 0, time.UTC)

// Destiny activity mode ids, as reported by the Bungie.net API.
// ModeNone is the generic sentinel some carnage reports carry instead of a
// concrete mode; callers fall back to the highest-valued entry of the
// report's modes list.
const (
	ModeNone           = 0
	ModeStrike         = 3
	ModeRaid           = 4
	ModeAllPvP         = 5
	ModeNightfall      = 46
	ModeGambit         = 63
	ModeCompetitivePvP = 69
	ModeQuickplayPvP   = 70
	ModeGambitPrime    = 75
	ModeDungeon        = 82
)

// GameMode describes one tracked activity mode: its fireteam size and the
// minimum number of clan members that must have completed the instance for
// it to count toward clan statistics.
type GameMode struct {
	ID   int    `json:"id"`
	Name string `json:"name"`

	// FireteamSize is the maximum player count of the mode.
	FireteamSize int `json:"fireteam_size"`

	// Threshold is the minimum completed clan participants required.
	Threshold int `json:"threshold"`
}

// ModeMap indexes tracked game modes by mode id.
type ModeMap map[int]GameMode

// TrackedModes returns the default mode table. Each entry carries an
// explicit per-mode threshold rather than deriving it from fireteam size.
func TrackedModes() ModeMap {
	modes := []GameMode{
		{ID: ModeStrike, Name: "strike", FireteamSize: 3, Threshold: 2},
		{ID: ModeRaid, Name: "raid", FireteamSize: 6, Threshold: 3},
		{ID: ModeNightfall, Name: "nightfall", FireteamSize: 3, Threshold: 2},
		{ID: ModeGambit, Name: "gambit", FireteamSize: 4, Threshold: 2},
		{ID: ModeCompetitivePvP, Name: "competitive", FireteamSize: 4, Threshold: 2},
		{ID: ModeQuickplayPvP, Name: "quickplay", FireteamSize: 6, Threshold: 2},
		{ID: ModeGambitPrime, Name: "gambit-prime", FireteamSize: 4, Threshold: 2},
		{ID: ModeDungeon, Name: "dungeon", FireteamSize: 3, Threshold: 2},
	}

	m := make(ModeMap, len(modes))
	for _, mode := range modes {
		m[mode.ID] = mode
	}
	return m
}

// IDs returns the mode ids in ascending order, giving every scan a fixed
// deterministic mode processing order.
func (m ModeMap) IDs() []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	// Insertion sort; the table is small.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

// CanonicalModeID resolves the mode a carnage report belongs to. When the
// reported mode is the ModeNone sentinel, the highest-valued entry of the
// modes list wins (documented fallback rule; ties resolve to the numeric
// maximum by construction).
func CanonicalModeID(reported int, modes []int) int {
	if reported != ModeNone {
		return reported
	}
	max := ModeNone
	for _, m := range modes {
		if m > max {
			max = m
		}
	}
	return max
}
