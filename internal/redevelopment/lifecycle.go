// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package redevelopment

import (
	"context"
	"fmt"
	"strings"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/logging"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

// CreateProjectInput describes a new project.
type CreateProjectInput struct {
	SocietyID         string
	OwnerID           string
	Title             string
	Description       string
	ExpectedAmenities []string
	Timeline          models.Timeline
	EstimatedBudget   float64
	CorpusAmount      float64
	RentAmount        float64
}

// CreateProject creates a project in planning status and announces it to
// the society.
func (s *Service) CreateProject(ctx context.Context, in CreateProjectInput) (*models.RedevelopmentProject, error) {
	if in.SocietyID == "" || in.OwnerID == "" || strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: society, owner and title are required", ErrInvalidInput)
	}
	for i := range in.Timeline.Phases {
		if in.Timeline.Phases[i].Status == "" {
			in.Timeline.Phases[i].Status = models.PhasePending
		}
	}
	now := s.now().UTC()
	p := &models.RedevelopmentProject{
		SocietyID:                 in.SocietyID,
		OwnerID:                   in.OwnerID,
		Title:                     strings.TrimSpace(in.Title),
		Description:               in.Description,
		ExpectedAmenities:         in.ExpectedAmenities,
		Timeline:                  in.Timeline,
		Status:                    models.ProjectPlanning,
		EstimatedBudget:           in.EstimatedBudget,
		CorpusAmount:              in.CorpusAmount,
		RentAmount:                in.RentAmount,
		MinimumApprovalPercentage: s.cfg.MinimumApprovalPercentage,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	logging.Ctx(ctx).Info().Str("project_id", p.ID).Str("society_id", p.SocietyID).Msg("Redevelopment project created")

	s.notify(ctx, s.memberRecipients(ctx, p, false), models.NotifyProjectCreated, subjectOf(p), p.OwnerID,
		&models.ProjectCreatedPayload{ProjectTitle: p.Title, EstimatedBudget: p.EstimatedBudget})
	return p, nil
}

// transition moves a project between two statuses and announces the change.
func (s *Service) transition(ctx context.Context, projectID, op, by string, to models.ProjectStatus, allowed []models.ProjectStatus, fn func(p *models.RedevelopmentProject)) (*models.RedevelopmentProject, models.ProjectStatus, error) {
	var from models.ProjectStatus
	p, err := s.mutate(ctx, projectID, op, allowed, func(p *models.RedevelopmentProject) error {
		from = p.Status
		p.Status = to
		if fn != nil {
			fn(p)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	logging.Ctx(ctx).Info().Str("project_id", p.ID).Str("from", string(from)).Str("to", string(to)).
		Str("by", by).Msg("Project status changed")
	s.announceStatus(ctx, p, from, by)
	return p, from, nil
}

// OpenTender invites developer proposals.
func (s *Service) OpenTender(ctx context.Context, projectID, by string) (*models.RedevelopmentProject, error) {
	p, _, err := s.transition(ctx, projectID, "open tender", by, models.ProjectTenderOpen,
		[]models.ProjectStatus{models.ProjectPlanning}, nil)
	return p, err
}

// StartConstruction begins construction with the selected developer.
func (s *Service) StartConstruction(ctx context.Context, projectID, by string) (*models.RedevelopmentProject, error) {
	p, _, err := s.transition(ctx, projectID, "start construction", by, models.ProjectConstruction,
		[]models.ProjectStatus{models.ProjectDeveloperSelected}, nil)
	if err != nil {
		return nil, err
	}
	recipients := append(s.memberRecipients(ctx, p, true), p.SelectedDeveloperID)
	s.notify(ctx, recipients, models.NotifyConstructionStarted, subjectOf(p), by,
		&models.ConstructionPayload{Progress: p.Progress})
	return p, nil
}

// CompleteProject marks construction finished.
func (s *Service) CompleteProject(ctx context.Context, projectID, by string) (*models.RedevelopmentProject, error) {
	p, _, err := s.transition(ctx, projectID, "complete project", by, models.ProjectCompleted,
		[]models.ProjectStatus{models.ProjectConstruction}, func(p *models.RedevelopmentProject) {
			p.Progress = 100
			for i := range p.Timeline.Phases {
				p.Timeline.Phases[i].Status = models.PhaseCompleted
			}
		})
	if err != nil {
		return nil, err
	}
	recipients := append(s.memberRecipients(ctx, p, true), p.SelectedDeveloperID)
	s.notify(ctx, recipients, models.NotifyProjectCompleted, subjectOf(p), by,
		&models.ConstructionPayload{Progress: 100})
	return p, nil
}

// CancelProject cancels a project that has not reached a terminal status.
// Open voting is closed without a result.
func (s *Service) CancelProject(ctx context.Context, projectID, by string) (*models.RedevelopmentProject, error) {
	p, _, err := s.transition(ctx, projectID, "cancel project", by, models.ProjectCancelled, nil,
		func(p *models.RedevelopmentProject) {
			if p.VotingStatus == models.VotingOpen {
				now := s.now().UTC()
				p.VotingStatus = models.VotingClosed
				p.VotingClosedAt = &now
			}
		})
	return p, err
}

// UpdateProgress records construction progress and optionally names the
// milestone reached.
func (s *Service) UpdateProgress(ctx context.Context, projectID string, progress int, milestone, by string) (*models.RedevelopmentProject, error) {
	if progress < 0 || progress > 100 {
		return nil, fmt.Errorf("%w: progress must be between 0 and 100", ErrInvalidInput)
	}
	p, err := s.mutate(ctx, projectID, "update progress", []models.ProjectStatus{models.ProjectConstruction},
		func(p *models.RedevelopmentProject) error {
			p.Progress = progress
			return nil
		})
	if err != nil {
		return nil, err
	}
	recipients := append(s.memberRecipients(ctx, p, true), p.SelectedDeveloperID)
	s.notify(ctx, recipients, models.NotifyConstructionMilestone, subjectOf(p), by,
		&models.ConstructionPayload{Progress: progress, Milestone: milestone})
	s.notifier.PushProject(ctx, p.ID, models.EventProjectUpdate, models.ActivityEvent{
		ProjectID: p.ID, Title: milestone, Body: fmt.Sprintf("%d%%", progress),
	})
	return p, nil
}

// CompletePhase marks a timeline phase completed.
func (s *Service) CompletePhase(ctx context.Context, projectID, phase, by string) (*models.RedevelopmentProject, error) {
	p, err := s.mutate(ctx, projectID, "complete phase", nil, func(p *models.RedevelopmentProject) error {
		for i := range p.Timeline.Phases {
			if strings.EqualFold(p.Timeline.Phases[i].Name, phase) {
				p.Timeline.Phases[i].Status = models.PhaseCompleted
				return nil
			}
		}
		return fmt.Errorf("%w: unknown phase %q", ErrInvalidInput, phase)
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, s.memberRecipients(ctx, p, true), models.NotifyMilestoneCompleted, subjectOf(p), by,
		&models.ProjectActivityPayload{ItemTitle: phase})
	return p, nil
}
