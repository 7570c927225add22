// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/logging"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

// UpsertMember creates or replaces a society membership. Status defaults to
// active. Only an admin or the society's own secretary or committee may call
// it.
func (h *Handler) UpsertMember(w http.ResponseWriter, r *http.Request) {
	societyID := chi.URLParam(r, "societyID")
	userID := chi.URLParam(r, "userID")
	claims, ok := h.requireSocietyManager(w, r, societyID)
	if !ok {
		return
	}
	var req upsertMemberRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	status := models.MemberStatus(req.Status)
	if status == "" {
		status = models.MemberActive
	}

	m := &models.SocietyMember{
		SocietyID:     societyID,
		UserID:        userID,
		Role:          models.MemberRole(req.Role),
		Status:        status,
		FlatNumber:    req.FlatNumber,
		BlockNumber:   req.BlockNumber,
		OwnershipType: req.OwnershipType,
	}
	if status == models.MemberRemoved {
		at := h.now().UTC()
		m.RemovedAt = &at
	}
	if err := h.db.UpsertMember(r.Context(), m); err != nil {
		respondServiceError(w, r, err)
		return
	}

	stored, err := h.db.GetMember(r.Context(), societyID, userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().
		Str("society_id", societyID).
		Str("user_id", userID).
		Str("status", string(stored.Status)).
		Str("by", claims.UserID()).
		Msg("Society membership updated")
	respondSuccess(w, r, http.StatusOK, stored)
}

// RemoveMember marks a membership removed. The record is kept so past votes
// stay attributable; removed members stop counting toward majority.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	societyID := chi.URLParam(r, "societyID")
	userID := chi.URLParam(r, "userID")
	claims, ok := h.requireSocietyManager(w, r, societyID)
	if !ok {
		return
	}

	if err := h.db.SetMemberStatus(r.Context(), societyID, userID, models.MemberRemoved, h.now()); err != nil {
		respondServiceError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().
		Str("society_id", societyID).
		Str("user_id", userID).
		Str("by", claims.UserID()).
		Msg("Society member removed")
	w.WriteHeader(http.StatusNoContent)
}
