// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

/*
Package reconcile is the reconciliation engine: it diffs a clan's live
Bungie roster against persisted membership and ingests each member's
completed activities through a multi-factor eligibility test.

Pipeline, leaves first:

  - RosterStream: lazy single-pass roster fetch with per-entry cross-save
    identity resolution.
  - Differ: hash-set diff of identity keys into added/removed/changed,
    driving repository mutations and history-scan job dispatch.
  - ActivityFetcher: per member, per character, per mode enumeration of
    recent completed instances.
  - Evaluator: carnage-report fetch, canonical-mode resolution, and the
    threshold / release-cutoff / join-date eligibility rules.
  - Recorder: idempotent create-or-adopt of Game rows and participant
    links.
  - Scanner: fetch → evaluate → record for one member, fanned out across a
    clan with bounded concurrency.
  - Scheduler: periodic job enqueueing, supervised as a suture service.

Correctness under concurrent scans relies on the repository's uniqueness
constraints plus conflict-tolerant retries, not on in-process locking.
Failures are contained at the smallest unit: one member's error never
aborts a clan pass, one instance's error never aborts a member scan. Only
maintenance short-circuits, since every subsequent call would fail the
same way.
*/
package reconcile
