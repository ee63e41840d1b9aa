// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RegisterClanRequest is the body of POST /api/v1/clans. GroupID is the
// Bungie group id; registering the same group id twice updates the existing
// clan in place.
type RegisterClanRequest struct {
	GroupID          int64  `json:"group_id" validate:"required,min=1"`
	Name             string `json:"name" validate:"omitempty,max=100"`
	Callsign         string `json:"callsign" validate:"omitempty,max=10"`
	Platform         string `json:"platform" validate:"omitempty,oneof=xbox psn steam blizzard stadia"`
	GuildID          *int64 `json:"guild_id" validate:"omitempty,min=1"`
	ActivityTracking bool   `json:"activity_tracking"`
}

// MemberGamesRequest holds the validated query parameters of
// GET /api/v1/members/{platform}/{membershipID}/games.
type MemberGamesRequest struct {
	Mode string `validate:"omitempty,oneof=all strike raid nightfall gambit competitive quickplay gambit-prime dungeon"`
}

// fieldError is one entry of the validation details array.
type fieldError struct {
	Field  string `json:"field"`
	Tag    string `json:"tag"`
	Reason string `json:"reason"`
}

// validateRequest runs struct validation and converts failures into an
// APIError with per-field details.
func validateRequest(v interface{}) *APIError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	errors.As(err, &verrs)

	details := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fieldError{
			Field:  strings.ToLower(fe.Field()),
			Tag:    fe.Tag(),
			Reason: fmt.Sprintf("failed '%s' validation", fe.Tag()),
		})
	}

	return &APIError{
		Code:    ErrCodeValidationFailed,
		Message: "Request validation failed",
		Details: details,
	}
}
