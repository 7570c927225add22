// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/redevelopment"
)

// SubmitProposal records the caller's bid on a project.
func (h *Handler) SubmitProposal(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	var req submitProposalRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	proposal, err := h.service.SubmitProposal(r.Context(), redevelopment.SubmitProposalInput{
		ProjectID:         chi.URLParam(r, "projectID"),
		DeveloperID:       claims.UserID(),
		Title:             req.Title,
		Description:       req.Description,
		CorpusAmount:      req.CorpusAmount,
		RentAmount:        req.RentAmount,
		FSI:               req.FSI,
		ProposedAmenities: req.ProposedAmenities,
		ProposedTimeline:  req.ProposedTimeline,
		Financials:        req.Financials,
		DeveloperInfo:     req.DeveloperInfo,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusCreated, proposal)
}

// ListProposals returns every proposal on a project.
func (h *Handler) ListProposals(w http.ResponseWriter, r *http.Request) {
	proposals, err := h.service.ListProposals(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if proposals == nil {
		proposals = []models.DeveloperProposal{}
	}
	respondList(w, r, proposals, len(proposals))
}

// ShortlistProposal marks a proposal shortlisted.
func (h *Handler) ShortlistProposal(w http.ResponseWriter, r *http.Request) {
	p, claims, ok := h.requireProjectOwner(w, r)
	if !ok {
		return
	}
	proposal, err := h.service.ShortlistProposal(r.Context(), p.ID, chi.URLParam(r, "proposalID"), claims.UserID())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, proposal)
}

// SelectDeveloper assigns the winning developer after voting closed.
func (h *Handler) SelectDeveloper(w http.ResponseWriter, r *http.Request) {
	p, claims, ok := h.requireProjectOwner(w, r)
	if !ok {
		return
	}
	var req selectDeveloperRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	updated, err := h.service.SelectDeveloper(r.Context(), p.ID, req.DeveloperID, req.ProposalID, claims.UserID())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, updated)
}
