// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

/*
bungie_api.go - Bungie.net API payload types

Wire shapes for the Bungie.net Platform endpoints consumed by the
reconciliation engine: group roster, linked memberships, profile
characters, activity history, and post-game carnage reports.

API Reference: https://bungie-net.github.io/
*/

package models

import (
	"strconv"
	"time"
)

// Int64String is an int64 the API serializes as a JSON string
// (membership ids, instance ids, character ids).
type Int64String int64

// UnmarshalJSON accepts both string and numeric encodings.
func (v *Int64String) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		*v = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*v = Int64String(n)
	return nil
}

// Int64 returns the plain integer value.
func (v Int64String) Int64() int64 { return int64(v) }

// UserInfoCard identifies a player on one platform.
type UserInfoCard struct {
	MembershipType int         `json:"membershipType"`
	MembershipID   Int64String `json:"membershipId"`
	DisplayName    string      `json:"displayName"`
}

// GroupMember is one roster entry of a Bungie group.
type GroupMember struct {
	MemberType             int          `json:"memberType"`
	IsOnline               bool         `json:"isOnline"`
	LastOnlineStatusChange Int64String  `json:"lastOnlineStatusChange"`
	GroupID                Int64String  `json:"groupId"`
	DestinyUserInfo        UserInfoCard `json:"destinyUserInfo"`
	JoinDate               time.Time    `json:"joinDate"`
}

// GroupMemberList is the roster endpoint's result page.
type GroupMemberList struct {
	Results    []GroupMember `json:"results"`
	TotalCount int           `json:"totalResults"`
	HasMore    bool          `json:"hasMore"`
}

// MembershipData is the linked-identity lookup result. It discloses every
// platform identity unified under one Bungie.net account (cross-save),
// which the roster endpoint alone does not.
type MembershipData struct {
	DestinyMemberships []UserInfoCard `json:"destinyMemberships"`
	BungieNetUser      *struct {
		MembershipID Int64String `json:"membershipId"`
		DisplayName  string      `json:"displayName"`
	} `json:"bungieNetUser,omitempty"`
}

// ProfileData carries the character list of one Destiny profile.
type ProfileData struct {
	Profile struct {
		Data struct {
			CharacterIDs []Int64String `json:"characterIds"`
		} `json:"data"`
	} `json:"profile"`
}

// ActivityDetails identifies one activity instance and its mode
// classification.
type ActivityDetails struct {
	ReferenceID Int64String `json:"referenceId"`
	InstanceID  Int64String `json:"instanceId"`
	Mode        int         `json:"mode"`
	Modes       []int       `json:"modes"`
}

// ActivityHistoryEntry is one completed activity in a character's history.
type ActivityHistoryEntry struct {
	Period          time.Time       `json:"period"`
	ActivityDetails ActivityDetails `json:"activityDetails"`
}

// ActivityHistory is the per-character activity history result.
// A missing "activities" field means zero activity for that character and
// mode, not an error.
type ActivityHistory struct {
	Activities []ActivityHistoryEntry `json:"activities,omitempty"`
}

// CarnageReportEntry is one participant of a carnage report.
type CarnageReportEntry struct {
	Player struct {
		DestinyUserInfo UserInfoCard `json:"destinyUserInfo"`
	} `json:"player"`
	Values map[string]StatValue `json:"values"`
}

// StatValue is the nested stat encoding the API uses for entry values.
type StatValue struct {
	Basic struct {
		Value        float64 `json:"value"`
		DisplayValue string  `json:"displayValue"`
	} `json:"basic"`
}

// Completed reports whether this participant finished the activity.
func (e *CarnageReportEntry) Completed() bool {
	v, ok := e.Values["completed"]
	return ok && v.Basic.Value == 1
}

// CarnageReport is the full participant report for one activity instance.
type CarnageReport struct {
	Period          time.Time            `json:"period"`
	ActivityDetails ActivityDetails      `json:"activityDetails"`
	Entries         []CarnageReportEntry `json:"entries"`
}
