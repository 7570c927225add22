// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

// Package redevelopment implements the redevelopment project state machine:
// project lifecycle, proposal intake, member voting with tally aggregation,
// auto-close evaluation and manual developer selection.
//
// The Service owns no goroutines. Persistence is reached through Store and
// every side effect on users goes through Notifier, which is best-effort:
// notification failures are logged by the Notifier and never fail the
// mutation that caused them.
//
// Concurrency: ordinary mutations use the project's version column and are
// retried a few times on conflict. Closing voting and selecting a developer
// use status-guarded conditional updates instead, so exactly one caller
// performs each transition even across server instances.
package redevelopment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/database"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/logging"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/notification"
)

// MembershipDirectory answers vote-eligibility questions.
type MembershipDirectory interface {
	CountActiveMembers(ctx context.Context, societyID string) (int, error)
	ListActiveMembers(ctx context.Context, societyID string) ([]models.ActiveMember, error)
	IsActiveMember(ctx context.Context, societyID, userID string) (bool, error)
}

// ProposalStore holds developer proposals.
type ProposalStore interface {
	CreateProposal(ctx context.Context, p *models.DeveloperProposal) error
	CreateProposalWhile(ctx context.Context, p *models.DeveloperProposal, statuses ...models.ProjectStatus) error
	GetProposal(ctx context.Context, id string) (*models.DeveloperProposal, error)
	FindProposal(ctx context.Context, id, projectID, developerID string) (*models.DeveloperProposal, error)
	ListProposals(ctx context.Context, projectID string) ([]models.DeveloperProposal, error)
	ListProposalSummaries(ctx context.Context, projectID string) ([]models.ProposalSummary, error)
	UpdateProposalStatus(ctx context.Context, id string, status models.ProposalStatus, from ...models.ProposalStatus) (bool, error)
	ApplySelection(ctx context.Context, projectID, winnerID string) ([]models.ProposalSummary, error)
}

// VoteLedger records votes and aggregates tallies.
type VoteLedger interface {
	UpsertVote(ctx context.Context, v *models.MemberVote) error
	TallyVotes(ctx context.Context, projectID, session string, proposalID *string) (models.VoteTally, error)
	TallyByProposal(ctx context.Context, projectID, session string) (map[string]models.VoteTally, error)
	CountVoters(ctx context.Context, projectID, session string) (int, error)
	ListVoterIDs(ctx context.Context, projectID, session string) ([]string, error)
}

// ProjectRepository persists projects.
type ProjectRepository interface {
	CreateProject(ctx context.Context, p *models.RedevelopmentProject) error
	GetProject(ctx context.Context, id string) (*models.RedevelopmentProject, error)
	UpdateProject(ctx context.Context, p *models.RedevelopmentProject) error
	CloseVotingIfOpen(ctx context.Context, projectID string, result *models.VotingResult, closedAt time.Time) (bool, error)
	AssignDeveloperIfClosed(ctx context.Context, projectID, developerID, proposalID, selectedBy string, at time.Time) (bool, error)
	MarkReminderSent(ctx context.Context, projectID string, at time.Time) (bool, error)
}

// Store is everything the Service persists through. *database.DB satisfies it.
type Store interface {
	MembershipDirectory
	ProposalStore
	VoteLedger
	ProjectRepository
}

// Notifier delivers persisted notifications and realtime room events.
// Implementations log and swallow their own failures.
type Notifier interface {
	Notify(ctx context.Context, recipients []string, n models.Notification)
	PushUser(ctx context.Context, userID string, event models.RealtimeEvent, payload any)
	PushSociety(ctx context.Context, societyID string, event models.RealtimeEvent, payload any)
	PushProject(ctx context.Context, projectID string, event models.RealtimeEvent, payload any)
}

// Clock returns the current time.
type Clock func() time.Time

// Config holds the voting parameters.
type Config struct {
	// MinimumApprovalPercentage is stamped on new projects and decides
	// VotingResult.IsApproved.
	MinimumApprovalPercentage int

	// DefaultSession labels votes when OpenVoting is not given a session.
	DefaultSession string

	// ReminderWindow is how close to the deadline reminders go out.
	ReminderWindow time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(c Clock) Option {
	return func(s *Service) { s.now = c }
}

// maxUpdateAttempts bounds optimistic-concurrency retries.
const maxUpdateAttempts = 3

// Service implements the redevelopment workflow.
type Service struct {
	store    Store
	notifier Notifier
	cfg      Config
	now      Clock
	logger   zerolog.Logger
}

// NewService creates a Service.
func NewService(store Store, notifier Notifier, cfg Config, opts ...Option) *Service {
	if cfg.MinimumApprovalPercentage <= 0 || cfg.MinimumApprovalPercentage > 100 {
		cfg.MinimumApprovalPercentage = 51
	}
	if cfg.DefaultSession == "" {
		cfg.DefaultSession = models.SessionProposalSelection
	}
	if cfg.ReminderWindow <= 0 {
		cfg.ReminderWindow = 24 * time.Hour
	}
	s := &Service{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
		logger:   logging.WithComponent("redevelopment"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetProject returns a project by id.
func (s *Service) GetProject(ctx context.Context, projectID string) (*models.RedevelopmentProject, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}
		return nil, fmt.Errorf("load project: %w", err)
	}
	return p, nil
}

// mutate loads the project, checks its status against allowed, applies fn
// and writes it back with an optimistic version check. A conflict reloads
// and retries. An empty allowed list accepts any non-terminal status.
func (s *Service) mutate(ctx context.Context, projectID, op string, allowed []models.ProjectStatus, fn func(p *models.RedevelopmentProject) error) (*models.RedevelopmentProject, error) {
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		p, err := s.GetProject(ctx, projectID)
		if err != nil {
			return nil, err
		}
		if !statusAllowed(p.Status, allowed) {
			if len(allowed) == 0 {
				allowed = nonTerminalStatuses
			}
			return nil, transitionError(op, p.Status, allowed...)
		}
		if err := fn(p); err != nil {
			return nil, err
		}
		err = s.store.UpdateProject(ctx, p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, database.ErrVersionConflict) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		s.logger.Debug().Str("project_id", projectID).Str("op", op).Int("attempt", attempt).
			Msg("Project version conflict, retrying")
	}
	return nil, fmt.Errorf("%s: %w", op, ErrConcurrentUpdate)
}

var nonTerminalStatuses = []models.ProjectStatus{
	models.ProjectPlanning, models.ProjectTenderOpen, models.ProjectProposalsReceived,
	models.ProjectVoting, models.ProjectVotingClosed, models.ProjectDeveloperSelected,
	models.ProjectConstruction,
}

func statusAllowed(status models.ProjectStatus, allowed []models.ProjectStatus) bool {
	if len(allowed) == 0 {
		return !status.IsTerminal()
	}
	for _, a := range allowed {
		if status == a {
			return true
		}
	}
	return false
}

func subjectOf(p *models.RedevelopmentProject) notification.Subject {
	return notification.Subject{ProjectID: p.ID, ProjectTitle: p.Title, SocietyID: p.SocietyID}
}

// notify renders a notification and hands it to the Notifier. Rendering
// errors are programming mistakes; they are logged rather than returned.
func (s *Service) notify(ctx context.Context, recipients []string, t models.NotificationType, subj notification.Subject, sender string, payload models.Payload) {
	if len(recipients) == 0 {
		return
	}
	n, err := notification.Render(t, subj, payload)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("type", string(t)).Msg("Failed to render notification")
		return
	}
	n.SenderID = sender
	s.notifier.Notify(ctx, recipients, n)
}

// memberRecipients returns the active members of the project's society,
// plus the owner when includeOwner is set, without duplicates. A directory
// failure is logged and yields only the owner.
func (s *Service) memberRecipients(ctx context.Context, p *models.RedevelopmentProject, includeOwner bool) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if includeOwner {
		add(p.OwnerID)
	}
	members, err := s.store.ListActiveMembers(ctx, p.SocietyID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("project_id", p.ID).Str("society_id", p.SocietyID).
			Msg("Failed to list society members for notification")
		return out
	}
	for _, m := range members {
		add(m.UserID)
	}
	return out
}

// announceStatus pushes a status_changed event and persists a
// redevelopment_status_changed notification to the society.
func (s *Service) announceStatus(ctx context.Context, p *models.RedevelopmentProject, from models.ProjectStatus, by string) {
	evt := models.StatusEvent{ProjectID: p.ID, From: from, To: p.Status}
	s.notifier.PushProject(ctx, p.ID, models.EventStatusChanged, evt)
	s.notifier.PushSociety(ctx, p.SocietyID, models.EventStatusChanged, evt)
	s.notify(ctx, s.memberRecipients(ctx, p, true), models.NotifyStatusChanged, subjectOf(p), by,
		&models.StatusChangedPayload{From: from, To: p.Status})
}
