// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Sentinel errors callers branch on with errors.Is. ErrConflict is an
// expected control-flow signal for the membership differ and the game
// recorder, not a failure.
var (
	// ErrNotFound means no row matched the lookup.
	ErrNotFound = errors.New("database: not found")

	// ErrConflict means an insert violated a uniqueness constraint:
	// another writer already created the row.
	ErrConflict = errors.New("database: uniqueness conflict")
)

// uniqueViolation is the PostgreSQL error code for unique_violation.
const uniqueViolation = "23505"

// translateError maps driver errors onto the package sentinels so callers
// never import lib/pq.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s (%s): %w", op, pqErr.Constraint, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
