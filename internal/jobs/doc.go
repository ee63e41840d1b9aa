// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

// Package jobs is the dispatch layer between reconciliation and the
// activity scanners. Jobs flow through a Watermill Pub/Sub; a PendingSet
// collapses duplicate submissions so at most one scan per member (and one
// reconcile per clan) is in flight at a time.
//
// Deduplication is at-most-one-pending, not exactly-once: a key is released
// when its job finishes, successfully or not, and a TTL reclaims keys left
// behind by a crashed worker.
package jobs
