// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package bungie

import (
	"context"
	"fmt"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/henworth/seraphsix/internal/logging"
	"github.com/henworth/seraphsix/internal/metrics"
	"github.com/henworth/seraphsix/internal/models"
)

// BreakerClient wraps Client with a circuit breaker so a misbehaving or
// slow Bungie API cannot pile up blocked reconciliation passes. The breaker
// sits outside the RetryPolicy: a call that exhausts its retry budget counts
// as one breaker failure.
//
// Maintenance and private-history sentinels are deliberate non-failures for
// the breaker; they are well-formed answers from a healthy service.
type BreakerClient struct {
	client ClientInterface
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

// Ensure BreakerClient implements ClientInterface
var _ ClientInterface = (*BreakerClient)(nil)

// NewBreakerClient wraps an existing client with circuit breaker protection.
// The breaker opens after a 60% failure rate over at least 10 requests and
// probes again after two minutes.
func NewBreakerClient(client ClientInterface) *BreakerClient {
	const cbName = "bungie-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Warn().Str("from", fromStr).Str("to", toStr).Msg("[circuit-breaker] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},

		IsSuccessful: func(err error) bool {
			return err == nil || IsMaintenance(err) || IsPrivate(err)
		},
	})

	return &BreakerClient{client: client, cb: cb, name: cbName}
}

// State reports the breaker state as a string ("closed", "half-open",
// "open"), for health reporting.
func (b *BreakerClient) State() string {
	return stateToString(b.cb.State())
}

// execute runs one API call through the breaker.
func (b *BreakerClient) execute(fn func() (any, error)) (any, error) {
	return b.cb.Execute(fn)
}

// castResult type-casts a breaker result with error checking.
func castResult[T any](result any, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// GetGroupMembers retrieves one roster page with breaker protection.
func (b *BreakerClient) GetGroupMembers(ctx context.Context, groupID int64, page int) (*models.GroupMemberList, error) {
	return castResult[models.GroupMemberList](b.execute(func() (any, error) {
		return b.client.GetGroupMembers(ctx, groupID, page)
	}))
}

// GetMembershipsByID resolves linked identities with breaker protection.
func (b *BreakerClient) GetMembershipsByID(ctx context.Context, membershipID int64, platform models.Platform) (*models.MembershipData, error) {
	return castResult[models.MembershipData](b.execute(func() (any, error) {
		return b.client.GetMembershipsByID(ctx, membershipID, platform)
	}))
}

// GetCharacterIDs lists profile characters with breaker protection.
func (b *BreakerClient) GetCharacterIDs(ctx context.Context, platform models.Platform, membershipID int64) ([]int64, error) {
	result, err := b.execute(func() (any, error) {
		return b.client.GetCharacterIDs(ctx, platform, membershipID)
	})
	if err != nil {
		return nil, err
	}
	ids, ok := result.([]int64)
	if !ok && result != nil {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return ids, nil
}

// GetActivityHistory retrieves activity history with breaker protection.
func (b *BreakerClient) GetActivityHistory(ctx context.Context, platform models.Platform, membershipID, characterID int64, modeID, count int) (*models.ActivityHistory, error) {
	return castResult[models.ActivityHistory](b.execute(func() (any, error) {
		return b.client.GetActivityHistory(ctx, platform, membershipID, characterID, modeID, count)
	}))
}

// GetCarnageReport retrieves a carnage report with breaker protection.
func (b *BreakerClient) GetCarnageReport(ctx context.Context, instanceID int64) (*models.CarnageReport, error) {
	return castResult[models.CarnageReport](b.execute(func() (any, error) {
		return b.client.GetCarnageReport(ctx, instanceID)
	}))
}
