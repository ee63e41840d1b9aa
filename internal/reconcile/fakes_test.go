// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/henworth/seraphsix/internal/bungie"
	"github.com/henworth/seraphsix/internal/database"
	"github.com/henworth/seraphsix/internal/jobs"
	"github.com/henworth/seraphsix/internal/models"
)

// fakeRepo is an in-memory Repository with the same uniqueness semantics
// the PostgreSQL implementation enforces through constraints.
type fakeRepo struct {
	mu             sync.Mutex
	clans          []*models.Clan
	members        []*models.Member
	memberships    map[string]*models.ClanMembership
	games          map[int64]*models.Game
	participations map[string]*models.GameParticipation
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		memberships:    make(map[string]*models.ClanMembership),
		games:          make(map[int64]*models.Game),
		participations: make(map[string]*models.GameParticipation),
	}
}

func membershipKey(clanID int64, memberID uuid.UUID) string {
	return fmt.Sprintf("%d/%s", clanID, memberID)
}

func participationKey(gameID, memberID uuid.UUID) string {
	return fmt.Sprintf("%s/%s", gameID, memberID)
}

func (r *fakeRepo) GetMemberByPlatform(_ context.Context, platform models.Platform, membershipID int64) (*models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.members {
		if ident, ok := models.IdentityOf(m, platform); ok && ident.MembershipID == membershipID {
			clone := *m
			return &clone, nil
		}
	}
	return nil, database.ErrNotFound
}

func (r *fakeRepo) CreateMember(_ context.Context, m *models.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.members {
		for _, ident := range models.Identities(existing) {
			if got, ok := models.IdentityOf(m, ident.Platform); ok && got.MembershipID == ident.MembershipID {
				return database.ErrConflict
			}
		}
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	clone := *m
	r.members = append(r.members, &clone)
	return nil
}

func (r *fakeRepo) UpdateMember(_ context.Context, m *models.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.members {
		if existing.ID == m.ID {
			clone := *m
			r.members[i] = &clone
			return nil
		}
	}
	return database.ErrNotFound
}

func (r *fakeRepo) GetClans(_ context.Context) ([]*models.Clan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.Clan, len(r.clans))
	copy(out, r.clans)
	return out, nil
}

func (r *fakeRepo) GetClanMembers(_ context.Context, clanIDs ...int64) ([]*models.ClanMembership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.ClanMembership
	for _, cm := range r.memberships {
		for _, clanID := range clanIDs {
			if cm.ClanID != clanID {
				continue
			}
			clone := *cm
			for _, m := range r.members {
				if m.ID == cm.MemberID {
					mc := *m
					clone.Member = &mc
					break
				}
			}
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateClanMembership(_ context.Context, cm *models.ClanMembership) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := membershipKey(cm.ClanID, cm.MemberID)
	if _, ok := r.memberships[key]; ok {
		return database.ErrConflict
	}
	clone := *cm
	clone.Member = nil
	r.memberships[key] = &clone
	return nil
}

func (r *fakeRepo) UpdateClanMembership(_ context.Context, cm *models.ClanMembership) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := membershipKey(cm.ClanID, cm.MemberID)
	if _, ok := r.memberships[key]; !ok {
		return database.ErrNotFound
	}
	clone := *cm
	clone.Member = nil
	r.memberships[key] = &clone
	return nil
}

func (r *fakeRepo) DeleteClanMembership(_ context.Context, clanID int64, memberID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.memberships, membershipKey(clanID, memberID))
	return nil
}

func (r *fakeRepo) CreateGame(_ context.Context, g *models.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.games[g.InstanceID]; ok {
		return database.ErrConflict
	}
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	clone := *g
	r.games[g.InstanceID] = &clone
	return nil
}

func (r *fakeRepo) GetGameByInstanceID(_ context.Context, instanceID int64) (*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[instanceID]
	if !ok {
		return nil, database.ErrNotFound
	}
	clone := *g
	return &clone, nil
}

func (r *fakeRepo) BackfillGameReference(_ context.Context, instanceID, referenceID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.games[instanceID]; ok && g.ReferenceID == nil {
		ref := referenceID
		g.ReferenceID = &ref
	}
	return nil
}

func (r *fakeRepo) CreateGameParticipation(_ context.Context, p *models.GameParticipation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := participationKey(p.GameID, p.MemberID)
	if _, ok := r.participations[key]; ok {
		return database.ErrConflict
	}
	clone := *p
	r.participations[key] = &clone
	return nil
}

func (r *fakeRepo) gameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.games)
}

func (r *fakeRepo) participationCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participations)
}

func (r *fakeRepo) membershipCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.memberships)
}

var _ Repository = (*fakeRepo)(nil)

// fakeClient is a configurable in-memory bungie.ClientInterface.
type fakeClient struct {
	mu          sync.Mutex
	roster      []models.GroupMember
	memberships map[int64]*models.MembershipData
	characters  map[int64][]int64
	histories   map[string]*models.ActivityHistory
	reports     map[int64]*models.CarnageReport

	rosterErr      error
	membershipErr  map[int64]error
	reportErr      map[int64]error
	historyCalls   []string
	reportRequests []int64
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		memberships:   make(map[int64]*models.MembershipData),
		characters:    make(map[int64][]int64),
		histories:     make(map[string]*models.ActivityHistory),
		reports:       make(map[int64]*models.CarnageReport),
		membershipErr: make(map[int64]error),
		reportErr:     make(map[int64]error),
	}
}

func historyKey(membershipID, characterID int64, modeID int) string {
	return fmt.Sprintf("%d/%d/%d", membershipID, characterID, modeID)
}

func (c *fakeClient) GetGroupMembers(_ context.Context, _ int64, page int) (*models.GroupMemberList, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rosterErr != nil {
		return nil, c.rosterErr
	}
	if page > 1 {
		return &models.GroupMemberList{}, nil
	}
	return &models.GroupMemberList{Results: c.roster, TotalCount: len(c.roster)}, nil
}

func (c *fakeClient) GetMembershipsByID(_ context.Context, membershipID int64, _ models.Platform) (*models.MembershipData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.membershipErr[membershipID]; err != nil {
		return nil, err
	}
	if data, ok := c.memberships[membershipID]; ok {
		return data, nil
	}
	return &models.MembershipData{}, nil
}

func (c *fakeClient) GetCharacterIDs(_ context.Context, _ models.Platform, membershipID int64) ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.characters[membershipID], nil
}

func (c *fakeClient) GetActivityHistory(_ context.Context, _ models.Platform, membershipID, characterID int64, modeID, _ int) (*models.ActivityHistory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := historyKey(membershipID, characterID, modeID)
	c.historyCalls = append(c.historyCalls, key)
	if h, ok := c.histories[key]; ok {
		return h, nil
	}
	return &models.ActivityHistory{}, nil
}

func (c *fakeClient) GetCarnageReport(_ context.Context, instanceID int64) (*models.CarnageReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reportRequests = append(c.reportRequests, instanceID)
	if err := c.reportErr[instanceID]; err != nil {
		return nil, err
	}
	if r, ok := c.reports[instanceID]; ok {
		return r, nil
	}
	return &models.CarnageReport{}, nil
}

var _ bungie.ClientInterface = (*fakeClient)(nil)

// fakeDispatcher records enqueued jobs with the jobs package's dedup rule.
type fakeDispatcher struct {
	mu       sync.Mutex
	requests []jobRequest
	pending  map[string]bool
}

type jobRequest struct {
	job      string
	memberID uuid.UUID
	clanID   int64
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{pending: make(map[string]bool)}
}

// Enqueue applies the same at-most-one-pending rule as the real dispatcher
// so tests can assert duplicate submissions collapse.
func (d *fakeDispatcher) Enqueue(_ context.Context, req *jobs.ScanRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := req.DedupKey()
	if d.pending[key] {
		return nil
	}
	d.pending[key] = true
	d.requests = append(d.requests, jobRequest{job: req.Job, memberID: req.MemberID, clanID: req.ClanID})
	return nil
}

func (d *fakeDispatcher) enqueued() []jobRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]jobRequest, len(d.requests))
	copy(out, d.requests)
	return out
}

// rosterMember builds a raw roster record for tests.
func rosterMember(platform models.Platform, membershipID int64, name string, memberType int, joined time.Time) models.GroupMember {
	gm := models.GroupMember{
		MemberType: memberType,
		JoinDate:   joined,
	}
	gm.DestinyUserInfo = models.UserInfoCard{
		MembershipType: int(platform),
		MembershipID:   models.Int64String(membershipID),
		DisplayName:    name,
	}
	return gm
}

// carnageReport builds a report with the given completed participants.
func carnageReport(mode int, modes []int, period time.Time, referenceID int64, entries ...models.CarnageReportEntry) *models.CarnageReport {
	r := &models.CarnageReport{Period: period, Entries: entries}
	r.ActivityDetails.Mode = mode
	r.ActivityDetails.Modes = modes
	r.ActivityDetails.ReferenceID = models.Int64String(referenceID)
	return r
}

// reportEntry builds one carnage-report participant.
func reportEntry(platform models.Platform, membershipID int64, name string, completed bool) models.CarnageReportEntry {
	var e models.CarnageReportEntry
	e.Player.DestinyUserInfo = models.UserInfoCard{
		MembershipType: int(platform),
		MembershipID:   models.Int64String(membershipID),
		DisplayName:    name,
	}
	value := 0.0
	if completed {
		value = 1.0
	}
	e.Values = map[string]models.StatValue{"completed": statValue(value)}
	return e
}

func statValue(v float64) models.StatValue {
	var s models.StatValue
	s.Basic.Value = v
	return s
}
