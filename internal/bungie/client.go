// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

/*
client.go - Bungie.net REST API client

Implements the Platform endpoints the reconciliation engine consumes:
group roster, linked memberships, profile characters, per-character
activity history, and post-game carnage reports. Every call goes through
the RetryPolicy; maintenance and privacy responses are mapped to their
sentinel errors before the retry loop sees them.

API Reference: https://bungie-net.github.io/
*/

package bungie

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/henworth/seraphsix/internal/models"
)

// DefaultBaseURL is the Bungie.net platform root.
const DefaultBaseURL = "https://www.bungie.net/Platform"

// ClientInterface defines the Bungie API operations used by the
// reconciliation engine. Both Client and BreakerClient implement it.
type ClientInterface interface {
	GetGroupMembers(ctx context.Context, groupID int64, page int) (*models.GroupMemberList, error)
	GetMembershipsByID(ctx context.Context, membershipID int64, platform models.Platform) (*models.MembershipData, error)
	GetCharacterIDs(ctx context.Context, platform models.Platform, membershipID int64) ([]int64, error)
	GetActivityHistory(ctx context.Context, platform models.Platform, membershipID, characterID int64, modeID, count int) (*models.ActivityHistory, error)
	GetCarnageReport(ctx context.Context, instanceID int64) (*models.CarnageReport, error)
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// Client provides access to the Bungie.net REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	policy     *RetryPolicy
}

// NewClient creates a Bungie API client.
//
// Parameters:
//   - baseURL: platform root (DefaultBaseURL in production, a test server in tests)
//   - apiKey: Bungie.net application API key
//   - policy: retry policy applied to every call; nil uses DefaultRetryPolicy
func NewClient(baseURL, apiKey string, policy *RetryPolicy) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	if policy == nil {
		policy = DefaultRetryPolicy()
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		policy:  policy,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// envelope is the platform response wrapper every endpoint shares.
type envelope[T any] struct {
	Response        T      `json:"Response"`
	ErrorCode       int    `json:"ErrorCode"`
	ErrorStatus     string `json:"ErrorStatus"`
	Message         string `json:"Message"`
	ThrottleSeconds int    `json:"ThrottleSeconds"`
}

// apiGet performs one GET against the platform, decodes the envelope, and
// maps platform error codes onto the retry taxonomy. It runs under the
// client's RetryPolicy.
func apiGet[T any](ctx context.Context, c *Client, endpoint, path string) (*T, error) {
	var out *T

	err := c.policy.Execute(ctx, endpoint, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("X-API-Key", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s request failed: %w", endpoint, err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			// Drain the body so the connection can be reused.
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return &APIError{HTTPStatus: resp.StatusCode}
		}

		var env envelope[T]
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return fmt.Errorf("%s: decode response: %w", endpoint, err)
		}

		switch env.ErrorCode {
		case errorCodeSuccess:
			out = &env.Response
			return nil
		case errorCodeSystemDisabled:
			return fmt.Errorf("%s: %w", endpoint, ErrMaintenance)
		case errorCodePrivacyRestriction:
			return fmt.Errorf("%s: %w", endpoint, ErrPrivateHistory)
		default:
			return &APIError{
				Code:            env.ErrorCode,
				Status:          env.ErrorStatus,
				Message:         env.Message,
				HTTPStatus:      resp.StatusCode,
				ThrottleSeconds: env.ThrottleSeconds,
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetGroupMembers retrieves one page of a group's roster.
func (c *Client) GetGroupMembers(ctx context.Context, groupID int64, page int) (*models.GroupMemberList, error) {
	if page < 1 {
		page = 1
	}
	path := fmt.Sprintf("/GroupV2/%d/Members/?currentpage=%d", groupID, page)
	return apiGet[models.GroupMemberList](ctx, c, "group-members", path)
}

// GetMembershipsByID resolves every platform identity linked to one
// membership (cross-save). The roster endpoint alone does not disclose
// linked platforms, so reconciliation performs this lookup per entry.
func (c *Client) GetMembershipsByID(ctx context.Context, membershipID int64, platform models.Platform) (*models.MembershipData, error) {
	path := fmt.Sprintf("/User/GetMembershipsById/%d/%d/", membershipID, int(platform))
	return apiGet[models.MembershipData](ctx, c, "memberships-by-id", path)
}

// GetCharacterIDs lists the character ids of one Destiny profile.
// A private profile yields an empty list, not an error.
func (c *Client) GetCharacterIDs(ctx context.Context, platform models.Platform, membershipID int64) ([]int64, error) {
	path := fmt.Sprintf("/Destiny2/%d/Profile/%d/?components=100", int(platform), membershipID)
	profile, err := apiGet[models.ProfileData](ctx, c, "profile", path)
	if err != nil {
		if IsPrivate(err) {
			return nil, nil
		}
		return nil, err
	}

	raw := profile.Profile.Data.CharacterIDs
	ids := make([]int64, 0, len(raw))
	for _, id := range raw {
		ids = append(ids, id.Int64())
	}
	return ids, nil
}

// GetActivityHistory retrieves the most recent completed activities for one
// character in one mode. Private history yields an empty result; so does a
// response without an "activities" field.
func (c *Client) GetActivityHistory(ctx context.Context, platform models.Platform, membershipID, characterID int64, modeID, count int) (*models.ActivityHistory, error) {
	if count <= 0 {
		count = 10
	}
	path := fmt.Sprintf("/Destiny2/%d/Account/%d/Character/%d/Stats/Activities/?mode=%d&count=%d",
		int(platform), membershipID, characterID, modeID, count)
	history, err := apiGet[models.ActivityHistory](ctx, c, "activity-history", path)
	if err != nil {
		if IsPrivate(err) {
			return &models.ActivityHistory{}, nil
		}
		return nil, err
	}
	return history, nil
}

// GetCarnageReport retrieves the full participant report for one activity
// instance.
func (c *Client) GetCarnageReport(ctx context.Context, instanceID int64) (*models.CarnageReport, error) {
	path := fmt.Sprintf("/Destiny2/Stats/PostGameCarnageReport/%d/", instanceID)
	return apiGet[models.CarnageReport](ctx, c, "carnage-report", path)
}
