// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package bungie

import (
	"context"
	"errors"
	"fmt"
)

// Bungie.net platform error codes relevant to the retry taxonomy.
// The full enumeration is at https://bungie-net.github.io/ under
// Exceptions.PlatformErrorCodes.
const (
	errorCodeSuccess             = 1
	errorCodeSystemDisabled      = 5
	errorCodeThrottleLimit       = 31
	errorCodePerEndpointThrottle = 36
	errorCodeDestinyThrottled    = 51
	errorCodePrivacyRestriction  = 1665
)

// Sentinel conditions surfaced to callers. Both are terminal for the retry
// loop: maintenance aborts the surrounding pass, private history converts to
// an empty result at the call site.
var (
	// ErrMaintenance signals the Bungie API is explicitly unavailable
	// (SystemDisabled). Never retried.
	ErrMaintenance = errors.New("bungie: system disabled for maintenance")

	// ErrPrivateHistory signals the target profile's history is not visible
	// to us. Never retried; treated as "no data" by callers.
	ErrPrivateHistory = errors.New("bungie: activity history is private")
)

// APIError is a non-success response from the Bungie platform, either an
// HTTP-level failure or a platform error envelope.
type APIError struct {
	// Code is the platform ErrorCode, or 0 for transport-level failures.
	Code int
	// Status is the platform ErrorStatus string, when present.
	Status string
	// Message is the human-readable platform message.
	Message string
	// HTTPStatus is the HTTP response code, when the request got that far.
	HTTPStatus int
	// ThrottleSeconds is the server-requested backoff, when rate limited.
	ThrottleSeconds int
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("bungie: %s (%d): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("bungie: http status %d", e.HTTPStatus)
}

// Retryable reports whether this failure is worth retrying with backoff:
// rate limiting, server-side errors, and transport failures. Maintenance and
// privacy responses are mapped to their sentinels before an APIError is
// built, so they never reach this check.
func (e *APIError) Retryable() bool {
	switch e.Code {
	case errorCodeThrottleLimit, errorCodePerEndpointThrottle, errorCodeDestinyThrottled:
		return true
	}
	if e.ThrottleSeconds > 0 {
		return true
	}
	// 5xx and 429 responses are transient.
	return e.HTTPStatus >= 500 || e.HTTPStatus == 429
}

// retryable classifies an arbitrary error from one API attempt. Transport
// errors (no APIError in the chain) are assumed transient.
func retryable(err error) bool {
	if errors.Is(err, ErrMaintenance) || errors.Is(err, ErrPrivateHistory) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// IsMaintenance reports whether err is the maintenance condition.
func IsMaintenance(err error) bool { return errors.Is(err, ErrMaintenance) }

// IsPrivate reports whether err is the private-history condition.
func IsPrivate(err error) bool { return errors.Is(err, ErrPrivateHistory) }
