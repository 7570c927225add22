// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package redevelopment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/database"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/logging"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

// SubmitProposalInput is a developer's bid.
type SubmitProposalInput struct {
	ProjectID         string
	DeveloperID       string
	Title             string
	Description       string
	CorpusAmount      float64
	RentAmount        float64
	FSI               float64
	ProposedAmenities []string
	ProposedTimeline  models.ProposalTimeline
	Financials        models.FinancialBreakdown
	DeveloperInfo     models.DeveloperInfo
}

// SubmitProposal stores a developer proposal. The first proposal on a
// project moves it from tender_open to proposals_received.
func (s *Service) SubmitProposal(ctx context.Context, in SubmitProposalInput) (*models.DeveloperProposal, error) {
	if in.DeveloperID == "" || strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: developer and title are required", ErrInvalidInput)
	}
	p, err := s.GetProject(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	accepting := []models.ProjectStatus{models.ProjectTenderOpen, models.ProjectProposalsReceived}
	if !statusAllowed(p.Status, accepting) {
		return nil, transitionError("submit proposal", p.Status, accepting...)
	}

	proposal := &models.DeveloperProposal{
		ProjectID:         p.ID,
		DeveloperID:       in.DeveloperID,
		Title:             strings.TrimSpace(in.Title),
		Description:       in.Description,
		CorpusAmount:      in.CorpusAmount,
		RentAmount:        in.RentAmount,
		FSI:               in.FSI,
		ProposedAmenities: in.ProposedAmenities,
		ProposedTimeline:  in.ProposedTimeline,
		Financials:        in.Financials,
		DeveloperInfo:     in.DeveloperInfo,
		Status:            models.ProposalSubmitted,
		SubmittedAt:       s.now().UTC(),
	}
	// The insert re-checks the status so a vote opened since the read above
	// never gains a proposal.
	if err := s.store.CreateProposalWhile(ctx, proposal, accepting...); err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicateKey):
			return nil, ErrDuplicateProposal
		case errors.Is(err, database.ErrNotAcceptingProposals), errors.Is(err, database.ErrVersionConflict):
			status := p.Status
			if current, getErr := s.GetProject(ctx, p.ID); getErr == nil {
				status = current.Status
			}
			return nil, transitionError("submit proposal", status, accepting...)
		}
		return nil, fmt.Errorf("create proposal: %w", err)
	}

	if p.Status == models.ProjectTenderOpen {
		updated, _, err := s.transition(ctx, p.ID, "receive proposals", in.DeveloperID, models.ProjectProposalsReceived,
			[]models.ProjectStatus{models.ProjectTenderOpen}, nil)
		switch {
		case err == nil:
			p = updated
		case errors.Is(err, ErrInvalidStateTransition):
			// A concurrent submission already advanced the project.
		default:
			logging.Ctx(ctx).Warn().Err(err).Str("project_id", p.ID).Msg("Failed to advance project after first proposal")
		}
	}

	logging.Ctx(ctx).Info().Str("project_id", p.ID).Str("proposal_id", proposal.ID).
		Str("developer_id", in.DeveloperID).Msg("Developer proposal submitted")

	subj := subjectOf(p)
	subj.ProposalID = proposal.ID
	s.notify(ctx, []string{p.OwnerID}, models.NotifyProposalSubmitted, subj, in.DeveloperID, &models.ProposalPayload{
		ProposalTitle: proposal.Title, DeveloperID: in.DeveloperID,
		CorpusAmount: proposal.CorpusAmount, RentAmount: proposal.RentAmount,
	})
	s.notifier.PushProject(ctx, p.ID, models.EventNewProposal, models.ProposalEvent{
		ProjectID: p.ID, ProposalID: proposal.ID, DeveloperID: in.DeveloperID,
		Title: proposal.Title, Status: proposal.Status,
	})
	return proposal, nil
}

// ShortlistProposal marks a submitted or under-review proposal shortlisted.
func (s *Service) ShortlistProposal(ctx context.Context, projectID, proposalID, by string) (*models.DeveloperProposal, error) {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.Status.IsTerminal() {
		return nil, transitionError("shortlist proposal", p.Status, nonTerminalStatuses...)
	}
	proposal, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProposalNotFound, proposalID)
		}
		return nil, fmt.Errorf("load proposal: %w", err)
	}
	if proposal.ProjectID != projectID {
		return nil, fmt.Errorf("%w: %s", ErrProposalNotFound, proposalID)
	}

	changed, err := s.store.UpdateProposalStatus(ctx, proposalID, models.ProposalShortlisted,
		models.ProposalSubmitted, models.ProposalUnderReview)
	if err != nil {
		return nil, fmt.Errorf("shortlist proposal: %w", err)
	}
	if !changed {
		if proposal.Status == models.ProposalShortlisted {
			return proposal, nil
		}
		return nil, fmt.Errorf("%w: proposal is %s", ErrInvalidStateTransition, proposal.Status)
	}
	proposal.Status = models.ProposalShortlisted

	subj := subjectOf(p)
	subj.ProposalID = proposal.ID
	s.notify(ctx, []string{proposal.DeveloperID}, models.NotifyProposalShortlisted, subj, by, &models.ProposalPayload{
		ProposalTitle: proposal.Title, DeveloperID: proposal.DeveloperID,
	})
	s.notifier.PushProject(ctx, p.ID, models.EventNewProposal, models.ProposalEvent{
		ProjectID: p.ID, ProposalID: proposal.ID, DeveloperID: proposal.DeveloperID,
		Title: proposal.Title, Status: proposal.Status,
	})
	return proposal, nil
}

// ListProposals returns every proposal on a project.
func (s *Service) ListProposals(ctx context.Context, projectID string) ([]models.DeveloperProposal, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	out, err := s.store.ListProposals(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	return out, nil
}
