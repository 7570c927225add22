// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

// PostUpdate publishes an announcement on the project.
func (h *Handler) PostUpdate(w http.ResponseWriter, r *http.Request) {
	p, claims, ok := h.requireProjectOwner(w, r)
	if !ok {
		return
	}
	var req postUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	u, err := h.service.PostUpdate(r.Context(), p.ID, models.ProjectUpdate{
		Title:       req.Title,
		Description: req.Description,
		PostedBy:    claims.UserID(),
		IsImportant: req.IsImportant,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusCreated, u)
}

// RaiseQuery records a member's question.
func (h *Handler) RaiseQuery(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	var req raiseQueryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	q, err := h.service.RaiseQuery(r.Context(), chi.URLParam(r, "projectID"), models.ProjectQuery{
		Title:       req.Title,
		Description: req.Description,
		RaisedBy:    claims.UserID(),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusCreated, q)
}

// RespondToQuery answers and resolves a query.
func (h *Handler) RespondToQuery(w http.ResponseWriter, r *http.Request) {
	p, claims, ok := h.requireProjectOwner(w, r)
	if !ok {
		return
	}
	var req respondQueryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	q, err := h.service.RespondToQuery(r.Context(), p.ID, chi.URLParam(r, "queryID"), req.Response, claims.UserID())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, q)
}

// AddDocument attaches document metadata to the project.
func (h *Handler) AddDocument(w http.ResponseWriter, r *http.Request) {
	p, claims, ok := h.requireProjectOwner(w, r)
	if !ok {
		return
	}
	var req addDocumentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	d, err := h.service.AddDocument(r.Context(), p.ID, models.ProjectDocument{
		Name:       req.Name,
		Type:       req.Type,
		URL:        req.URL,
		UploadedBy: claims.UserID(),
		IsPublic:   req.IsPublic,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusCreated, d)
}
