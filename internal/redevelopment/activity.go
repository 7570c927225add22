// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package redevelopment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

// activeStatuses accept updates, queries and documents.
var activeStatuses = append(append([]models.ProjectStatus{}, nonTerminalStatuses...), models.ProjectCompleted)

// PostUpdate appends an announcement to the project.
func (s *Service) PostUpdate(ctx context.Context, projectID string, u models.ProjectUpdate) (*models.ProjectUpdate, error) {
	if strings.TrimSpace(u.Title) == "" || u.PostedBy == "" {
		return nil, fmt.Errorf("%w: update title and author are required", ErrInvalidInput)
	}
	u.ID = uuid.New().String()
	u.PostedAt = s.now().UTC()

	p, err := s.mutate(ctx, projectID, "post update", activeStatuses, func(p *models.RedevelopmentProject) error {
		p.Updates = append(p.Updates, u)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.PushProject(ctx, p.ID, models.EventProjectUpdate, models.ActivityEvent{
		ProjectID: p.ID, ItemID: u.ID, Title: u.Title, Body: u.Description, Important: u.IsImportant,
	})
	n := &models.ProjectActivityPayload{ItemID: u.ID, ItemTitle: u.Title, Important: u.IsImportant}
	s.notify(ctx, s.memberRecipients(ctx, p, false), models.NotifyUpdatePosted, subjectOf(p), u.PostedBy, n)
	return &u, nil
}

// RaiseQuery records a member question. Only active members and the owner
// may raise queries.
func (s *Service) RaiseQuery(ctx context.Context, projectID string, q models.ProjectQuery) (*models.ProjectQuery, error) {
	if strings.TrimSpace(q.Title) == "" || q.RaisedBy == "" {
		return nil, fmt.Errorf("%w: query title and author are required", ErrInvalidInput)
	}
	current, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if current.OwnerID != q.RaisedBy {
		ok, err := s.store.IsActiveMember(ctx, current.SocietyID, q.RaisedBy)
		if err != nil {
			return nil, fmt.Errorf("check membership: %w", err)
		}
		if !ok {
			return nil, ErrNotEligible
		}
	}

	q.ID = uuid.New().String()
	q.RaisedAt = s.now().UTC()
	q.Status = models.QueryOpen
	q.Response, q.RespondedBy, q.RespondedAt = "", "", nil

	p, err := s.mutate(ctx, projectID, "raise query", activeStatuses, func(p *models.RedevelopmentProject) error {
		p.Queries = append(p.Queries, q)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.PushProject(ctx, p.ID, models.EventNewQuery, models.ActivityEvent{
		ProjectID: p.ID, ItemID: q.ID, Title: q.Title, Body: q.Description,
	})
	s.notify(ctx, []string{p.OwnerID}, models.NotifyQueryRaised, subjectOf(p), q.RaisedBy,
		&models.ProjectActivityPayload{ItemID: q.ID, ItemTitle: q.Title})
	return &q, nil
}

// RespondToQuery answers a query and resolves it.
func (s *Service) RespondToQuery(ctx context.Context, projectID, queryID, response, by string) (*models.ProjectQuery, error) {
	if strings.TrimSpace(response) == "" || by == "" {
		return nil, fmt.Errorf("%w: response text and responder are required", ErrInvalidInput)
	}
	var answered models.ProjectQuery
	p, err := s.mutate(ctx, projectID, "respond to query", activeStatuses, func(p *models.RedevelopmentProject) error {
		q := p.FindQuery(queryID)
		if q == nil {
			return fmt.Errorf("%w: %s", ErrQueryNotFound, queryID)
		}
		now := s.now().UTC()
		q.Response = response
		q.RespondedBy = by
		q.RespondedAt = &now
		q.Status = models.QueryResolved
		answered = *q
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.PushProject(ctx, p.ID, models.EventQueryResponse, models.ActivityEvent{
		ProjectID: p.ID, ItemID: answered.ID, Title: answered.Title, Body: answered.Response,
	})
	s.notify(ctx, []string{answered.RaisedBy}, models.NotifyQueryResponded, subjectOf(p), by,
		&models.ProjectActivityPayload{ItemID: answered.ID, ItemTitle: answered.Title})
	return &answered, nil
}

// AddDocument attaches document metadata. The file itself lives in external
// storage. Public documents are announced to the society.
func (s *Service) AddDocument(ctx context.Context, projectID string, d models.ProjectDocument) (*models.ProjectDocument, error) {
	if strings.TrimSpace(d.Name) == "" || d.URL == "" || d.UploadedBy == "" {
		return nil, fmt.Errorf("%w: document name, url and uploader are required", ErrInvalidInput)
	}
	d.ID = uuid.New().String()
	d.UploadedAt = s.now().UTC()

	p, err := s.mutate(ctx, projectID, "add document", activeStatuses, func(p *models.RedevelopmentProject) error {
		p.Documents = append(p.Documents, d)
		return nil
	})
	if err != nil {
		return nil, err
	}

	recipients := []string{p.OwnerID}
	if d.IsPublic {
		recipients = s.memberRecipients(ctx, p, true)
	}
	s.notify(ctx, recipients, models.NotifyDocumentUploaded, subjectOf(p), d.UploadedBy,
		&models.ProjectActivityPayload{ItemID: d.ID, ItemTitle: d.Name})
	return &d, nil
}
