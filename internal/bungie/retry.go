// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package bungie

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/henworth/seraphsix/internal/logging"
	"github.com/henworth/seraphsix/internal/metrics"
)

// RetryPolicy wraps every external API call with client-side rate limiting
// and bounded exponential backoff.
//
// Classification of failures:
//   - retryable (network, 5xx, rate limit): retried with backoff until the
//     wall-clock cap, then surfaced as fatal
//   - ErrMaintenance: surfaced immediately, never retried
//   - ErrPrivateHistory: surfaced immediately, never retried; call sites
//     convert it to an empty result
//   - anything else: fatal, propagates immediately
type RetryPolicy struct {
	// MaxElapsed caps total wall-clock time spent on one logical call,
	// including all backoff waits. Default: 60s.
	MaxElapsed time.Duration

	// InitialInterval seeds the exponential backoff. Default: 500ms.
	InitialInterval time.Duration

	// Limiter throttles outbound request attempts. Optional.
	Limiter *rate.Limiter

	// LogWaitThreshold is the backoff wait above which a retry is logged.
	// Logging is advisory only and never affects control flow.
	LogWaitThreshold time.Duration
}

// DefaultRetryPolicy returns the production policy: 60 second cap,
// 20 requests/second with a small burst, retries over one second logged.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxElapsed:       60 * time.Second,
		InitialInterval:  500 * time.Millisecond,
		Limiter:          rate.NewLimiter(rate.Limit(20), 5),
		LogWaitThreshold: time.Second,
	}
}

// throttleBackOff raises the next wait to a floor requested by the server.
// The floor is consumed on use; subsequent waits fall back to the wrapped
// schedule.
type throttleBackOff struct {
	backoff.BackOff
	floor time.Duration
}

func (b *throttleBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if b.floor > next {
		next = b.floor
	}
	b.floor = 0
	return next
}

// Execute runs op under the retry policy. The endpoint name is used for
// logging and metrics only.
func (p *RetryPolicy) Execute(ctx context.Context, endpoint string, op func(context.Context) error) error {
	maxElapsed := p.MaxElapsed
	if maxElapsed <= 0 {
		maxElapsed = 60 * time.Second
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxElapsed
	if p.InitialInterval > 0 {
		bo.InitialInterval = p.InitialInterval
	}
	tbo := &throttleBackOff{BackOff: bo}

	attempts := 0
	start := time.Now()

	attempt := func() error {
		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		attempts++

		err := op(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		// A throttled response carries the wait the server wants; it
		// overrides a shorter computed backoff.
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.ThrottleSeconds > 0 {
			tbo.floor = time.Duration(apiErr.ThrottleSeconds) * time.Second
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		metrics.APIRetries.WithLabelValues(endpoint).Inc()
		if wait >= p.LogWaitThreshold || attempts >= 3 {
			logging.Warn().
				Str("endpoint", endpoint).
				Int("attempt", attempts).
				Dur("wait", wait).
				Err(err).
				Msg("Backing off Bungie API call")
		}
	}

	err := backoff.RetryNotify(attempt, backoff.WithContext(tbo, ctx), notify)
	metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.APIRequests.WithLabelValues(endpoint, "success").Inc()
		return nil
	case IsMaintenance(err):
		metrics.APIRequests.WithLabelValues(endpoint, "maintenance").Inc()
		return err
	case IsPrivate(err):
		metrics.APIRequests.WithLabelValues(endpoint, "private").Inc()
		return err
	case retryable(err):
		// The backoff cap converted a still-transient failure into a fatal one.
		metrics.APIRequests.WithLabelValues(endpoint, "retryable").Inc()
		return fmt.Errorf("%s: retry budget exhausted after %d attempts: %w", endpoint, attempts, err)
	default:
		metrics.APIRequests.WithLabelValues(endpoint, "fatal").Inc()
		return err
	}
}
