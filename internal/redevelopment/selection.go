// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package redevelopment

import (
	"context"
	"errors"
	"fmt"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/database"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/logging"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/metrics"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

// SelectDeveloper assigns the developer of proposalID to a project whose
// voting has closed. The proposal must belong to both the project and
// developerID. The winner is marked selected, every other live proposal is
// rejected, and all submitters are told the outcome.
func (s *Service) SelectDeveloper(ctx context.Context, projectID, developerID, proposalID, selectedBy string) (*models.RedevelopmentProject, error) {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.ProjectVotingClosed {
		return nil, transitionError("select developer", p.Status, models.ProjectVotingClosed)
	}

	proposal, err := s.store.FindProposal(ctx, proposalID, projectID, developerID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: proposal %s is not a proposal by developer %s on this project",
				ErrInvalidSelection, proposalID, developerID)
		}
		return nil, fmt.Errorf("load proposal: %w", err)
	}
	if !eligibleForVoting(proposal.Status) {
		return nil, fmt.Errorf("%w: proposal %s is %s", ErrInvalidSelection, proposalID, proposal.Status)
	}

	now := s.now().UTC()
	won, err := s.store.AssignDeveloperIfClosed(ctx, projectID, developerID, proposalID, selectedBy, now)
	if err != nil {
		return nil, fmt.Errorf("assign developer: %w", err)
	}
	if !won {
		current, err := s.GetProject(ctx, projectID)
		if err != nil {
			return nil, err
		}
		return nil, transitionError("select developer", current.Status, models.ProjectVotingClosed)
	}

	rejected, err := s.store.ApplySelection(ctx, projectID, proposalID)
	if err != nil {
		// The project already records the selection; proposal statuses can be
		// repaired by re-running ApplySelection.
		logging.Ctx(ctx).Error().Err(err).Str("project_id", projectID).Str("proposal_id", proposalID).
			Msg("Failed to update proposal statuses after selection")
	}

	metrics.DevelopersSelected.Inc()

	p.Status = models.ProjectDeveloperSelected
	p.SelectedDeveloperID = developerID
	p.SelectedProposalID = proposalID
	p.DeveloperSelectedAt = &now
	p.DeveloperSelectedBy = selectedBy
	p.Version++

	logging.Ctx(ctx).Info().Str("project_id", projectID).Str("developer_id", developerID).
		Str("proposal_id", proposalID).Str("selected_by", selectedBy).Int("rejected", len(rejected)).
		Msg("Developer selected")

	subj := subjectOf(p)
	winSubj := subj
	winSubj.ProposalID = proposalID
	s.notify(ctx, []string{developerID}, models.NotifyProposalSelected, winSubj, selectedBy, &models.ProposalPayload{
		ProposalTitle: proposal.Title, DeveloperID: developerID,
		CorpusAmount: proposal.CorpusAmount, RentAmount: proposal.RentAmount,
	})
	s.notifier.PushUser(ctx, developerID, models.EventProposalSelected, models.ProposalEvent{
		ProjectID: projectID, ProposalID: proposalID, DeveloperID: developerID,
		Title: proposal.Title, Status: models.ProposalSelected,
	})

	for _, r := range rejected {
		loseSubj := subj
		loseSubj.ProposalID = r.ID
		s.notify(ctx, []string{r.DeveloperID}, models.NotifyProposalRejected, loseSubj, selectedBy, &models.ProposalPayload{
			ProposalTitle: r.Title, DeveloperID: r.DeveloperID,
		})
		s.notifier.PushUser(ctx, r.DeveloperID, models.EventProposalRejected, models.ProposalEvent{
			ProjectID: projectID, ProposalID: r.ID, DeveloperID: r.DeveloperID,
			Title: r.Title, Status: models.ProposalRejected,
		})
	}

	evt := models.SelectionEvent{ProjectID: projectID, ProposalID: proposalID, DeveloperID: developerID, SelectedBy: selectedBy}
	s.notifier.PushSociety(ctx, p.SocietyID, models.EventDeveloperSelected, evt)
	s.notifier.PushProject(ctx, p.ID, models.EventDeveloperSelected, evt)
	s.announceStatus(ctx, p, models.ProjectVotingClosed, selectedBy)
	return p, nil
}
