// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/redevelopment"
)

// CreateProject creates a project owned by the caller.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	var req createProjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p, err := h.service.CreateProject(r.Context(), redevelopment.CreateProjectInput{
		SocietyID:         req.SocietyID,
		OwnerID:           claims.UserID(),
		Title:             req.Title,
		Description:       req.Description,
		ExpectedAmenities: req.ExpectedAmenities,
		Timeline:          req.Timeline,
		EstimatedBudget:   req.EstimatedBudget,
		CorpusAmount:      req.CorpusAmount,
		RentAmount:        req.RentAmount,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/projects/"+p.ID)
	respondSuccess(w, r, http.StatusCreated, p)
}

// GetProject returns one project.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProject(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, p)
}

// ListProjects returns the projects of the society named by ?society_id=.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	societyID := r.URL.Query().Get("society_id")
	if societyID == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "society_id is required", nil)
		return
	}
	projects, err := h.db.ListProjects(r.Context(), societyID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if projects == nil {
		projects = []*models.RedevelopmentProject{}
	}
	respondList(w, r, projects, len(projects))
}

// lifecycleAction is a transition that takes only the project id and the
// acting user.
type lifecycleAction func(ctx context.Context, projectID, by string) (*models.RedevelopmentProject, error)

// ownerTransition wraps an owner-only lifecycle action as a handler.
func (h *Handler) ownerTransition(action lifecycleAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, claims, ok := h.requireProjectOwner(w, r)
		if !ok {
			return
		}
		updated, err := action(r.Context(), p.ID, claims.UserID())
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		respondSuccess(w, r, http.StatusOK, updated)
	}
}

// OpenTender moves a planning project to tender_open.
func (h *Handler) OpenTender(w http.ResponseWriter, r *http.Request) {
	h.ownerTransition(h.service.OpenTender)(w, r)
}

// StartConstruction moves a project with a selected developer to construction.
func (h *Handler) StartConstruction(w http.ResponseWriter, r *http.Request) {
	h.ownerTransition(h.service.StartConstruction)(w, r)
}

// CompleteProject closes out construction.
func (h *Handler) CompleteProject(w http.ResponseWriter, r *http.Request) {
	h.ownerTransition(h.service.CompleteProject)(w, r)
}

// CancelProject cancels a project from any non-terminal status.
func (h *Handler) CancelProject(w http.ResponseWriter, r *http.Request) {
	h.ownerTransition(h.service.CancelProject)(w, r)
}

// UpdateProgress records construction progress.
func (h *Handler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	p, claims, ok := h.requireProjectOwner(w, r)
	if !ok {
		return
	}
	var req progressRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	updated, err := h.service.UpdateProgress(r.Context(), p.ID, req.Progress, req.Milestone, claims.UserID())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, updated)
}

// CompletePhase marks the timeline phase named in the URL completed.
func (h *Handler) CompletePhase(w http.ResponseWriter, r *http.Request) {
	p, claims, ok := h.requireProjectOwner(w, r)
	if !ok {
		return
	}
	updated, err := h.service.CompletePhase(r.Context(), p.ID, chi.URLParam(r, "phase"), claims.UserID())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, updated)
}
