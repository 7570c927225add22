// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package redevelopment

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/database"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

// mockStore is an in-memory Store with the same conditional-update
// semantics as the DuckDB implementation.
type mockStore struct {
	mu        sync.Mutex
	nextID    int
	members   map[string]map[string]models.MemberStatus
	projects  map[string]*models.RedevelopmentProject
	proposals map[string]*models.DeveloperProposal
	votes     map[string]*models.MemberVote

	// upsertConflicts makes the next N UpsertVote calls fail with ErrDuplicateKey.
	upsertConflicts int
	upsertCalls     int
	closeCalls      int
	updateConflicts int

	// beforeGuardedInsert runs at the start of CreateProposalWhile, after the
	// service has read the project.
	beforeGuardedInsert func()
}

func newMockStore() *mockStore {
	return &mockStore{
		members:   make(map[string]map[string]models.MemberStatus),
		projects:  make(map[string]*models.RedevelopmentProject),
		proposals: make(map[string]*models.DeveloperProposal),
		votes:     make(map[string]*models.MemberVote),
	}
}

func (m *mockStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *mockStore) addMembers(societyID string, n int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[societyID] == nil {
		m.members[societyID] = make(map[string]models.MemberStatus)
	}
	var ids []string
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("member-%02d", len(m.members[societyID]))
		m.members[societyID][id] = models.MemberActive
		ids = append(ids, id)
	}
	return ids
}

func cloneProject(p *models.RedevelopmentProject) *models.RedevelopmentProject {
	c := *p
	c.ExpectedAmenities = append([]string(nil), p.ExpectedAmenities...)
	c.Timeline.Phases = append([]models.TimelinePhase(nil), p.Timeline.Phases...)
	c.Updates = append([]models.ProjectUpdate(nil), p.Updates...)
	c.Queries = append([]models.ProjectQuery(nil), p.Queries...)
	c.Documents = append([]models.ProjectDocument(nil), p.Documents...)
	return &c
}

// --- MembershipDirectory ---

func (m *mockStore) CountActiveMembers(_ context.Context, societyID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, st := range m.members[societyID] {
		if st == models.MemberActive {
			n++
		}
	}
	return n, nil
}

func (m *mockStore) ListActiveMembers(_ context.Context, societyID string) ([]models.ActiveMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ActiveMember
	for id, st := range m.members[societyID] {
		if st == models.MemberActive {
			out = append(out, models.ActiveMember{UserID: id, Role: models.RoleSocietyMember})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *mockStore) IsActiveMember(_ context.Context, societyID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[societyID][userID] == models.MemberActive, nil
}

// --- ProjectRepository ---

func (m *mockStore) CreateProject(_ context.Context, p *models.RedevelopmentProject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = m.id("project")
	}
	p.Version = 1
	m.projects[p.ID] = cloneProject(p)
	return nil
}

func (m *mockStore) GetProject(_ context.Context, id string) (*models.RedevelopmentProject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return cloneProject(p), nil
}

func (m *mockStore) UpdateProject(_ context.Context, p *models.RedevelopmentProject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.projects[p.ID]
	if !ok {
		return database.ErrNotFound
	}
	if m.updateConflicts > 0 {
		m.updateConflicts--
		stored.Version++
	}
	if stored.Version != p.Version {
		return database.ErrVersionConflict
	}
	p.Version++
	m.projects[p.ID] = cloneProject(p)
	return nil
}

func (m *mockStore) CloseVotingIfOpen(_ context.Context, projectID string, result *models.VotingResult, closedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	p, ok := m.projects[projectID]
	if !ok || p.Status != models.ProjectVoting || p.VotingStatus != models.VotingOpen {
		return false, nil
	}
	p.Status = models.ProjectVotingClosed
	p.VotingStatus = models.VotingClosed
	p.VotingClosedAt = &closedAt
	r := *result
	p.VotingResult = &r
	p.Version++
	return true, nil
}

func (m *mockStore) AssignDeveloperIfClosed(_ context.Context, projectID, developerID, proposalID, selectedBy string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok || p.Status != models.ProjectVotingClosed || p.SelectedDeveloperID != "" {
		return false, nil
	}
	p.Status = models.ProjectDeveloperSelected
	p.SelectedDeveloperID = developerID
	p.SelectedProposalID = proposalID
	p.DeveloperSelectedAt = &at
	p.DeveloperSelectedBy = selectedBy
	p.Version++
	return true, nil
}

func (m *mockStore) MarkReminderSent(_ context.Context, projectID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok || p.ReminderSentAt != nil || p.VotingStatus != models.VotingOpen {
		return false, nil
	}
	p.ReminderSentAt = &at
	p.Version++
	return true, nil
}

// --- ProposalStore ---

func (m *mockStore) CreateProposal(_ context.Context, p *models.DeveloperProposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.proposals {
		if existing.ProjectID == p.ProjectID && existing.DeveloperID == p.DeveloperID {
			return database.ErrDuplicateKey
		}
	}
	if p.ID == "" {
		p.ID = m.id("proposal")
	}
	c := *p
	m.proposals[p.ID] = &c
	return nil
}

func (m *mockStore) CreateProposalWhile(ctx context.Context, p *models.DeveloperProposal, statuses ...models.ProjectStatus) error {
	if m.beforeGuardedInsert != nil {
		m.beforeGuardedInsert()
	}
	m.mu.Lock()
	project, ok := m.projects[p.ProjectID]
	accepting := ok && statusAllowed(project.Status, statuses)
	if accepting {
		project.Version++
	}
	m.mu.Unlock()
	if !accepting {
		return database.ErrNotAcceptingProposals
	}
	return m.CreateProposal(ctx, p)
}

func (m *mockStore) GetProposal(_ context.Context, id string) (*models.DeveloperProposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (m *mockStore) FindProposal(ctx context.Context, id, projectID, developerID string) (*models.DeveloperProposal, error) {
	p, err := m.GetProposal(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.ProjectID != projectID || p.DeveloperID != developerID {
		return nil, database.ErrNotFound
	}
	return p, nil
}

func (m *mockStore) sortedProposals(projectID string) []models.DeveloperProposal {
	var out []models.DeveloperProposal
	for _, p := range m.proposals {
		if p.ProjectID == projectID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *mockStore) ListProposals(_ context.Context, projectID string) ([]models.DeveloperProposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedProposals(projectID), nil
}

func (m *mockStore) ListProposalSummaries(_ context.Context, projectID string) ([]models.ProposalSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ProposalSummary
	for _, p := range m.sortedProposals(projectID) {
		out = append(out, models.ProposalSummary{
			ID: p.ID, DeveloperID: p.DeveloperID, Title: p.Title, Status: p.Status, SubmittedAt: p.SubmittedAt,
		})
	}
	return out, nil
}

func (m *mockStore) UpdateProposalStatus(_ context.Context, id string, status models.ProposalStatus, from ...models.ProposalStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return false, nil
	}
	if len(from) > 0 {
		match := false
		for _, f := range from {
			if p.Status == f {
				match = true
			}
		}
		if !match {
			return false, nil
		}
	}
	p.Status = status
	return true, nil
}

func (m *mockStore) ApplySelection(_ context.Context, projectID, winnerID string) ([]models.ProposalSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rejected []models.ProposalSummary
	for _, p := range m.sortedProposals(projectID) {
		stored := m.proposals[p.ID]
		if p.ID == winnerID {
			stored.Status = models.ProposalSelected
			continue
		}
		if !eligibleForVoting(p.Status) {
			continue
		}
		stored.Status = models.ProposalRejected
		rejected = append(rejected, models.ProposalSummary{
			ID: p.ID, DeveloperID: p.DeveloperID, Title: p.Title, Status: models.ProposalRejected, SubmittedAt: p.SubmittedAt,
		})
	}
	return rejected, nil
}

// --- VoteLedger ---

func voteKey(project, member, session, proposal string) string {
	return project + "|" + member + "|" + session + "|" + proposal
}

func (m *mockStore) UpsertVote(_ context.Context, v *models.MemberVote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	if m.upsertConflicts > 0 {
		m.upsertConflicts--
		return database.ErrDuplicateKey
	}
	key := voteKey(v.ProjectID, v.MemberID, v.VotingSession, v.ProposalID)
	if existing, ok := m.votes[key]; ok {
		existing.Vote = v.Vote
		existing.Reason = v.Reason
		existing.IsVerified = false
		*v = *existing
		return nil
	}
	v.ID = m.id("vote")
	c := *v
	m.votes[key] = &c
	return nil
}

func (m *mockStore) TallyVotes(_ context.Context, projectID, session string, proposalID *string) (models.VoteTally, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var t models.VoteTally
	for _, v := range m.votes {
		if v.ProjectID != projectID || v.VotingSession != session {
			continue
		}
		if proposalID != nil && v.ProposalID != *proposalID {
			continue
		}
		t.Add(v.Vote, 1)
	}
	return t, nil
}

func (m *mockStore) TallyByProposal(_ context.Context, projectID, session string) (map[string]models.VoteTally, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.VoteTally)
	for _, v := range m.votes {
		if v.ProjectID != projectID || v.VotingSession != session || v.ProposalID == "" {
			continue
		}
		t := out[v.ProposalID]
		t.Add(v.Vote, 1)
		out[v.ProposalID] = t
	}
	return out, nil
}

func (m *mockStore) voterSet(projectID, session string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, v := range m.votes {
		if v.ProjectID == projectID && v.VotingSession == session {
			set[v.MemberID] = struct{}{}
		}
	}
	return set
}

func (m *mockStore) CountVoters(_ context.Context, projectID, session string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voterSet(projectID, session)), nil
}

func (m *mockStore) ListVoterIDs(_ context.Context, projectID, session string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id := range m.voterSet(projectID, session) {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockStore) countVoteRecords(projectID, memberID, session string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.votes {
		if v.ProjectID == projectID && v.MemberID == memberID && v.VotingSession == session {
			n++
		}
	}
	return n
}

// recordingNotifier captures everything the Service emits.
type recordingNotifier struct {
	mu            sync.Mutex
	notifications []sentNotification
	pushes        []push
}

type sentNotification struct {
	Recipients   []string
	Notification models.Notification
}

type push struct {
	Scope  string
	Target string
	Event  models.RealtimeEvent
	Data   any
}

func (r *recordingNotifier) Notify(_ context.Context, recipients []string, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, sentNotification{Recipients: append([]string(nil), recipients...), Notification: n})
}

func (r *recordingNotifier) PushUser(_ context.Context, userID string, event models.RealtimeEvent, payload any) {
	r.record("user", userID, event, payload)
}

func (r *recordingNotifier) PushSociety(_ context.Context, societyID string, event models.RealtimeEvent, payload any) {
	r.record("society", societyID, event, payload)
}

func (r *recordingNotifier) PushProject(_ context.Context, projectID string, event models.RealtimeEvent, payload any) {
	r.record("project", projectID, event, payload)
}

func (r *recordingNotifier) record(scope, target string, event models.RealtimeEvent, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, push{Scope: scope, Target: target, Event: event, Data: payload})
}

func (r *recordingNotifier) ofType(t models.NotificationType) []sentNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentNotification
	for _, n := range r.notifications {
		if n.Notification.Type == t {
			out = append(out, n)
		}
	}
	return out
}

func (r *recordingNotifier) pushesOf(event models.RealtimeEvent) []push {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []push
	for _, p := range r.pushes {
		if p.Event == event {
			out = append(out, p)
		}
	}
	return out
}

func (r *recordingNotifier) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = nil
	r.pushes = nil
}

// fakeClock is a settable Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
