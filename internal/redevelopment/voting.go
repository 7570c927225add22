// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package redevelopment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/database"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/logging"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/metrics"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

// OpenVotingInput opens a voting round.
type OpenVotingInput struct {
	Deadline time.Time
	Session  string
	OpenedBy string
}

// OpenVoting moves a project from proposals_received to voting and notifies
// every active member.
func (s *Service) OpenVoting(ctx context.Context, projectID string, in OpenVotingInput) (*models.RedevelopmentProject, error) {
	now := s.now()
	if !in.Deadline.After(now) {
		return nil, ErrInvalidDeadline
	}
	session := in.Session
	if session == "" {
		session = s.cfg.DefaultSession
	}
	deadline := in.Deadline.UTC()

	var from models.ProjectStatus
	p, err := s.mutate(ctx, projectID, "open voting", []models.ProjectStatus{models.ProjectProposalsReceived},
		func(p *models.RedevelopmentProject) error {
			from = p.Status
			p.Status = models.ProjectVoting
			p.VotingStatus = models.VotingOpen
			p.VotingDeadline = &deadline
			p.VotingSession = session
			p.VotingClosedAt = nil
			p.VotingResult = nil
			p.ReminderSentAt = nil
			if p.MinimumApprovalPercentage <= 0 {
				p.MinimumApprovalPercentage = s.cfg.MinimumApprovalPercentage
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	open := 0
	if summaries, err := s.store.ListProposalSummaries(ctx, p.ID); err == nil {
		for _, sum := range summaries {
			if eligibleForVoting(sum.Status) {
				open++
			}
		}
	}

	logging.Ctx(ctx).Info().Str("project_id", p.ID).Str("session", session).
		Time("deadline", deadline).Str("from", string(from)).Msg("Voting opened")

	evt := models.VotingEvent{ProjectID: p.ID, Session: session, Deadline: &deadline}
	s.notifier.PushProject(ctx, p.ID, models.EventVotingOpened, evt)
	s.notifier.PushSociety(ctx, p.SocietyID, models.EventVotingOpened, evt)
	s.notify(ctx, s.memberRecipients(ctx, p, false), models.NotifyVotingOpened, subjectOf(p), in.OpenedBy,
		&models.VotingOpenedPayload{Session: session, Deadline: deadline, Proposals: open})
	return p, nil
}

// CastVoteInput is one member's vote.
type CastVoteInput struct {
	ProjectID  string
	MemberID   string
	Session    string
	Vote       models.VoteValue
	ProposalID string
	Reason     string
	IPAddress  string
	UserAgent  string
}

// CastVote records a vote, replacing the member's earlier vote under the
// same (session, proposal) key. After recording it broadcasts turnout to
// the project room and evaluates auto-close.
func (s *Service) CastVote(ctx context.Context, in CastVoteInput) (*models.MemberVote, error) {
	if !in.Vote.Valid() {
		return nil, fmt.Errorf("%w: vote must be yes, no or abstain", ErrInvalidInput)
	}
	p, err := s.GetProject(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if !p.IsVotingOpen() {
		return nil, transitionError("cast vote", p.Status, models.ProjectVoting)
	}
	session := in.Session
	if session == "" {
		session = p.VotingSession
	}
	if session != p.VotingSession {
		return nil, fmt.Errorf("%w: session %q is not open on this project", ErrInvalidInput, session)
	}

	active, err := s.store.IsActiveMember(ctx, p.SocietyID, in.MemberID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !active {
		return nil, ErrNotEligible
	}

	if in.ProposalID != "" {
		prop, err := s.store.GetProposal(ctx, in.ProposalID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrProposalNotFound, in.ProposalID)
			}
			return nil, fmt.Errorf("load proposal: %w", err)
		}
		if prop.ProjectID != p.ID || !eligibleForVoting(prop.Status) {
			return nil, fmt.Errorf("%w: %s", ErrProposalNotFound, in.ProposalID)
		}
	}

	vote := &models.MemberVote{
		ProjectID:     p.ID,
		MemberID:      in.MemberID,
		VotingSession: session,
		Vote:          in.Vote,
		ProposalID:    in.ProposalID,
		Reason:        in.Reason,
		IPAddress:     in.IPAddress,
		UserAgent:     in.UserAgent,
	}
	if err := s.upsertVote(ctx, vote); err != nil {
		return nil, err
	}
	metrics.VotesCast.WithLabelValues(session, string(vote.Vote)).Inc()

	s.broadcastTurnout(ctx, p, session, in.ProposalID)

	if _, err := s.CheckAndAutoClose(ctx, p.ID); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("project_id", p.ID).Msg("Auto-close evaluation after vote failed")
	}
	return vote, nil
}

// upsertVote writes the vote, retrying once when two first votes for the
// same key race on the unique index.
func (s *Service) upsertVote(ctx context.Context, v *models.MemberVote) error {
	err := s.store.UpsertVote(ctx, v)
	if err == nil {
		return nil
	}
	if !errors.Is(err, database.ErrDuplicateKey) {
		return fmt.Errorf("record vote: %w", err)
	}
	logging.Ctx(ctx).Debug().Str("project_id", v.ProjectID).Str("member_id", v.MemberID).
		Msg("Vote upsert conflicted, retrying once")
	if err := s.store.UpsertVote(ctx, v); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			return fmt.Errorf("%w: %v", ErrDuplicateVote, err)
		}
		return fmt.Errorf("record vote: %w", err)
	}
	return nil
}

// broadcastTurnout pushes vote_cast with counts only.
func (s *Service) broadcastTurnout(ctx context.Context, p *models.RedevelopmentProject, session, proposalID string) {
	voters, err := s.store.CountVoters(ctx, p.ID, session)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("project_id", p.ID).Msg("Failed to count voters for broadcast")
		return
	}
	evt := models.VoteCastEvent{ProjectID: p.ID, Session: session, ProposalID: proposalID, VotesCast: voters}
	var filter *string
	if proposalID != "" {
		filter = &proposalID
	}
	if t, err := s.store.TallyVotes(ctx, p.ID, session, filter); err == nil {
		evt.Tally = t
	}
	s.notifier.PushProject(ctx, p.ID, models.EventVoteCast, evt)
}

// CheckAndAutoClose closes voting when the deadline has passed or when at
// least half the active members (rounded up) have voted. It is a no-op for
// projects not currently voting.
func (s *Service) CheckAndAutoClose(ctx context.Context, projectID string) (models.AutoCloseOutcome, error) {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return models.AutoCloseOutcome{}, err
	}
	if !p.IsVotingOpen() {
		return models.AutoCloseOutcome{}, nil
	}

	var reason models.CloseReason
	if p.VotingDeadline != nil && s.now().After(*p.VotingDeadline) {
		reason = models.CloseDeadlinePassed
	} else {
		active, err := s.store.CountActiveMembers(ctx, p.SocietyID)
		if err != nil {
			return models.AutoCloseOutcome{}, fmt.Errorf("count active members: %w", err)
		}
		voters, err := s.store.CountVoters(ctx, p.ID, p.VotingSession)
		if err != nil {
			return models.AutoCloseOutcome{}, fmt.Errorf("count voters: %w", err)
		}
		if !majorityReached(voters, active) {
			return models.AutoCloseOutcome{}, nil
		}
		reason = models.CloseMajorityReached
	}

	result, err := s.closeVoting(ctx, p, reason, "")
	if err != nil {
		return models.AutoCloseOutcome{}, err
	}
	return models.AutoCloseOutcome{Closed: true, Reason: result.Reason, Result: result}, nil
}

// CloseVoting ends the open voting round. Calling it on a project whose
// voting already closed returns the stored result without recomputing or
// notifying again.
func (s *Service) CloseVoting(ctx context.Context, projectID string, reason models.CloseReason, closedBy string) (*models.VotingResult, error) {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		reason = models.CloseManual
	}
	return s.closeVoting(ctx, p, reason, closedBy)
}

func (s *Service) closeVoting(ctx context.Context, p *models.RedevelopmentProject, reason models.CloseReason, closedBy string) (*models.VotingResult, error) {
	if p.VotingStatus == models.VotingClosed && p.VotingResult != nil {
		return p.VotingResult, nil
	}
	if !p.IsVotingOpen() {
		return nil, transitionError("close voting", p.Status, models.ProjectVoting)
	}

	now := s.now().UTC()
	result, err := s.computeResult(ctx, p, reason, now)
	if err != nil {
		return nil, err
	}

	won, err := s.store.CloseVotingIfOpen(ctx, p.ID, result, now)
	if err != nil {
		return nil, fmt.Errorf("close voting: %w", err)
	}
	if !won {
		current, err := s.GetProject(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if current.VotingResult != nil {
			logging.Ctx(ctx).Debug().Str("project_id", p.ID).Msg("Voting already closed by another caller")
			return current.VotingResult, nil
		}
		return nil, transitionError("close voting", current.Status, models.ProjectVoting)
	}

	metrics.VotingClosed.WithLabelValues(string(result.Reason)).Inc()

	p.Status = models.ProjectVotingClosed
	p.VotingStatus = models.VotingClosed
	p.VotingClosedAt = &now
	p.VotingResult = result

	logging.Ctx(ctx).Info().Str("project_id", p.ID).Str("reason", string(result.Reason)).
		Int("approval_percentage", result.ApprovalPercentage).Bool("approved", result.IsApproved).
		Str("winning_proposal_id", result.WinningProposalID).Msg("Voting closed")

	outcome := &models.VotingOutcomePayload{
		Reason:             result.Reason,
		Tally:              result.Tally,
		ApprovalPercentage: result.ApprovalPercentage,
		IsApproved:         result.IsApproved,
		WinningProposalID:  result.WinningProposalID,
	}
	subj := subjectOf(p)
	s.notifier.PushProject(ctx, p.ID, models.EventVotingClosed, models.VotingEvent{
		ProjectID: p.ID, Session: result.Session, Result: result,
	})
	s.notify(ctx, []string{p.OwnerID}, models.NotifyVotingClosedManualPick, subj, closedBy, outcome)
	s.notify(ctx, s.memberRecipients(ctx, p, false), models.NotifyVotingResultsPublished, subj, closedBy, outcome)

	developers := make([]string, 0, len(result.Proposals))
	for _, pr := range result.Proposals {
		developers = append(developers, pr.DeveloperID)
	}
	s.notify(ctx, developers, models.NotifyVotingClosed, subj, closedBy, outcome)
	return result, nil
}

// SendVotingReminder reminds members who have not voted once the deadline
// is within the reminder window. Each project is reminded at most once. It
// returns the number of members reminded.
func (s *Service) SendVotingReminder(ctx context.Context, projectID string) (int, error) {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if !p.IsVotingOpen() || p.VotingDeadline == nil || p.ReminderSentAt != nil {
		return 0, nil
	}
	now := s.now()
	remaining := p.VotingDeadline.Sub(now)
	if remaining <= 0 || remaining > s.cfg.ReminderWindow {
		return 0, nil
	}

	marked, err := s.store.MarkReminderSent(ctx, p.ID, now)
	if err != nil {
		return 0, fmt.Errorf("mark reminder: %w", err)
	}
	if !marked {
		return 0, nil
	}

	voted, err := s.store.ListVoterIDs(ctx, p.ID, p.VotingSession)
	if err != nil {
		return 0, fmt.Errorf("list voters: %w", err)
	}
	skip := make(map[string]struct{}, len(voted))
	for _, id := range voted {
		skip[id] = struct{}{}
	}
	var pending []string
	for _, id := range s.memberRecipients(ctx, p, false) {
		if _, ok := skip[id]; !ok {
			pending = append(pending, id)
		}
	}

	metrics.RemindersSent.Add(float64(len(pending)))
	hours := int((remaining + time.Hour - 1) / time.Hour)
	s.notify(ctx, pending, models.NotifyVotingReminder, subjectOf(p), "", &models.VotingReminderPayload{
		Session: p.VotingSession, Deadline: *p.VotingDeadline, HoursRemaining: hours,
	})
	return len(pending), nil
}
