// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

// Package database is the persistence repository for members, clans,
// memberships, games, and participations, backed by PostgreSQL.
//
// Uniqueness lives in the schema, not in application locks: concurrent
// reconciliation passes and activity scans race freely, and writers treat
// ErrConflict as "someone else got there first" rather than a failure.
package database
