// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package redevelopment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

// majorityReached reports whether votesCast meets ceil(activeMembers/2).
// A society with no active members never reaches a majority.
func majorityReached(votesCast, activeMembers int) bool {
	if activeMembers <= 0 {
		return false
	}
	return votesCast >= (activeMembers+1)/2
}

// rankedBefore orders proposal results best first: higher approval
// percentage, then earlier submission, then lower proposal id.
func rankedBefore(a, b models.ProposalResult) bool {
	if a.ApprovalPercentage != b.ApprovalPercentage {
		return a.ApprovalPercentage > b.ApprovalPercentage
	}
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.Before(b.SubmittedAt)
	}
	return a.ProposalID < b.ProposalID
}

// rankProposals sorts results in place with rankedBefore and returns the
// winner. Proposals that received no votes cannot win.
func rankProposals(results []models.ProposalResult) (models.ProposalResult, bool) {
	sort.SliceStable(results, func(i, j int) bool { return rankedBefore(results[i], results[j]) })
	for _, r := range results {
		if r.Tally.Total() > 0 {
			return r, true
		}
	}
	return models.ProposalResult{}, false
}

// eligibleForVoting reports whether a proposal is still competing.
func eligibleForVoting(status models.ProposalStatus) bool {
	switch status {
	case models.ProposalDraft, models.ProposalWithdrawn, models.ProposalRejected:
		return false
	}
	return true
}

// GetTally counts votes in a session. With proposalID nil every vote in the
// session counts; otherwise only votes on that proposal.
func (s *Service) GetTally(ctx context.Context, projectID, session string, proposalID *string) (models.VoteTally, error) {
	if session == "" {
		p, err := s.GetProject(ctx, projectID)
		if err != nil {
			return models.VoteTally{}, err
		}
		session = p.VotingSession
		if session == "" {
			session = s.cfg.DefaultSession
		}
	}
	t, err := s.store.TallyVotes(ctx, projectID, session, proposalID)
	if err != nil {
		return models.VoteTally{}, fmt.Errorf("tally votes: %w", err)
	}
	return t, nil
}

// computeResult aggregates the final result of the project's open session.
// It reads only; the caller persists.
func (s *Service) computeResult(ctx context.Context, p *models.RedevelopmentProject, reason models.CloseReason, at time.Time) (*models.VotingResult, error) {
	session := p.VotingSession
	overall, err := s.store.TallyVotes(ctx, p.ID, session, nil)
	if err != nil {
		return nil, fmt.Errorf("tally votes: %w", err)
	}
	voters, err := s.store.CountVoters(ctx, p.ID, session)
	if err != nil {
		return nil, fmt.Errorf("count voters: %w", err)
	}
	active, err := s.store.CountActiveMembers(ctx, p.SocietyID)
	if err != nil {
		return nil, fmt.Errorf("count active members: %w", err)
	}
	byProposal, err := s.store.TallyByProposal(ctx, p.ID, session)
	if err != nil {
		return nil, fmt.Errorf("tally proposals: %w", err)
	}
	summaries, err := s.store.ListProposalSummaries(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}

	threshold := p.MinimumApprovalPercentage
	if threshold <= 0 {
		threshold = s.cfg.MinimumApprovalPercentage
	}

	result := &models.VotingResult{
		Session:                   session,
		Reason:                    reason,
		Tally:                     overall,
		VotesCast:                 voters,
		ActiveMembers:             active,
		ApprovalPercentage:        overall.ApprovalPercentage(),
		MinimumApprovalPercentage: threshold,
		ClosedAt:                  at,
	}
	result.IsApproved = result.ApprovalPercentage >= threshold

	for _, sum := range summaries {
		if !eligibleForVoting(sum.Status) {
			continue
		}
		t := byProposal[sum.ID]
		result.Proposals = append(result.Proposals, models.ProposalResult{
			ProposalID:         sum.ID,
			DeveloperID:        sum.DeveloperID,
			Title:              sum.Title,
			SubmittedAt:        sum.SubmittedAt,
			Tally:              t,
			ApprovalPercentage: t.ApprovalPercentage(),
		})
	}
	if winner, ok := rankProposals(result.Proposals); ok {
		result.WinningProposalID = winner.ProposalID
		result.WinningDeveloperID = winner.DeveloperID
	}
	return result, nil
}
