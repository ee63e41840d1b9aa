// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package bungie

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func testPolicy(maxElapsed time.Duration) *RetryPolicy {
	return &RetryPolicy{
		MaxElapsed:       maxElapsed,
		InitialInterval:  time.Millisecond,
		LogWaitThreshold: time.Hour,
	}
}

func TestRetryPolicy_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	policy := testPolicy(5 * time.Second)

	attempts := 0
	err := policy.Execute(context.Background(), "test", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return &APIError{HTTPStatus: 503}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryPolicy_MaintenanceNotRetried(t *testing.T) {
	t.Parallel()

	policy := testPolicy(5 * time.Second)

	attempts := 0
	err := policy.Execute(context.Background(), "test", func(context.Context) error {
		attempts++
		return fmt.Errorf("roster: %w", ErrMaintenance)
	})
	if !errors.Is(err, ErrMaintenance) {
		t.Fatalf("expected ErrMaintenance, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (maintenance must not be retried)", attempts)
	}
}

func TestRetryPolicy_PrivateHistoryNotRetried(t *testing.T) {
	t.Parallel()

	policy := testPolicy(5 * time.Second)

	attempts := 0
	err := policy.Execute(context.Background(), "test", func(context.Context) error {
		attempts++
		return ErrPrivateHistory
	})
	if !errors.Is(err, ErrPrivateHistory) {
		t.Fatalf("expected ErrPrivateHistory, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetryPolicy_FatalPropagatesImmediately(t *testing.T) {
	t.Parallel()

	policy := testPolicy(5 * time.Second)
	fatal := &APIError{Code: 18, Status: "InvalidParameters", HTTPStatus: 200}

	attempts := 0
	err := policy.Execute(context.Background(), "test", func(context.Context) error {
		attempts++
		return fatal
	})

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != 18 {
		t.Fatalf("expected fatal APIError to propagate, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetryPolicy_ElapsedCapBecomesFatal(t *testing.T) {
	t.Parallel()

	policy := testPolicy(20 * time.Millisecond)

	attempts := 0
	err := policy.Execute(context.Background(), "test", func(context.Context) error {
		attempts++
		return &APIError{HTTPStatus: 503}
	})
	if err == nil {
		t.Fatal("expected error once the retry budget is exhausted")
	}
	if attempts < 1 {
		t.Errorf("attempts = %d, want at least 1", attempts)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected wrapped APIError, got %v", err)
	}
}

func TestThrottleBackOff_FloorOverridesShorterWait(t *testing.T) {
	t.Parallel()

	bo := &throttleBackOff{BackOff: backoff.NewConstantBackOff(10 * time.Millisecond)}

	bo.floor = 500 * time.Millisecond
	if got := bo.NextBackOff(); got != 500*time.Millisecond {
		t.Errorf("NextBackOff() = %v, want the 500ms floor", got)
	}
	// The floor is consumed; the schedule resumes.
	if got := bo.NextBackOff(); got != 10*time.Millisecond {
		t.Errorf("NextBackOff() = %v, want 10ms", got)
	}

	// A floor below the schedule does not shorten the wait.
	bo.floor = time.Millisecond
	if got := bo.NextBackOff(); got != 10*time.Millisecond {
		t.Errorf("NextBackOff() = %v, want 10ms", got)
	}
}

func TestThrottleBackOff_DoesNotResurrectStoppedSchedule(t *testing.T) {
	t.Parallel()

	bo := &throttleBackOff{BackOff: &backoff.StopBackOff{}, floor: time.Second}
	if got := bo.NextBackOff(); got != backoff.Stop {
		t.Errorf("NextBackOff() = %v, want Stop", got)
	}
}

func TestRetryPolicy_HonorsServerThrottleWait(t *testing.T) {
	t.Parallel()

	policy := testPolicy(10 * time.Second)

	attempts := 0
	start := time.Now()
	err := policy.Execute(context.Background(), "test", func(context.Context) error {
		attempts++
		if attempts == 1 {
			return &APIError{Code: errorCodeThrottleLimit, HTTPStatus: 200, ThrottleSeconds: 1}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after throttled retry, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
	// The 1ms initial interval must have been raised to the server's wait.
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("elapsed = %v, want at least the requested 1s throttle", elapsed)
	}
}

func TestRetryPolicy_ContextCancellation(t *testing.T) {
	t.Parallel()

	policy := testPolicy(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := policy.Execute(ctx, "test", func(context.Context) error {
		return &APIError{HTTPStatus: 503}
	})
	if err == nil {
		t.Fatal("expected error under canceled context")
	}
}

func TestAPIError_Retryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *APIError
		want bool
	}{
		{"throttle code", &APIError{Code: errorCodeThrottleLimit, HTTPStatus: 200}, true},
		{"destiny throttled", &APIError{Code: errorCodeDestinyThrottled, HTTPStatus: 200}, true},
		{"throttle seconds", &APIError{Code: 7, ThrottleSeconds: 10, HTTPStatus: 200}, true},
		{"server error", &APIError{HTTPStatus: 502}, true},
		{"too many requests", &APIError{HTTPStatus: 429}, true},
		{"bad request", &APIError{HTTPStatus: 400}, false},
		{"platform error", &APIError{Code: 18, HTTPStatus: 200}, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Retryable(); got != tt.want {
				t.Errorf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}
