// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package api

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/redevelopment"
)

// maxUserAgentLength truncates the stored user agent.
const maxUserAgentLength = 256

// OpenVoting starts a voting round with the given deadline.
func (h *Handler) OpenVoting(w http.ResponseWriter, r *http.Request) {
	p, claims, ok := h.requireProjectOwner(w, r)
	if !ok {
		return
	}
	var req openVotingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	updated, err := h.service.OpenVoting(r.Context(), p.ID, redevelopment.OpenVotingInput{
		Deadline: req.Deadline,
		Session:  req.Session,
		OpenedBy: claims.UserID(),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, updated)
}

// CloseVoting closes the round manually. Repeating the call returns the
// stored result.
func (h *Handler) CloseVoting(w http.ResponseWriter, r *http.Request) {
	p, claims, ok := h.requireProjectOwner(w, r)
	if !ok {
		return
	}
	result, err := h.service.CloseVoting(r.Context(), p.ID, models.CloseManual, claims.UserID())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, result)
}

// CheckVoting evaluates the auto-close rule now instead of waiting for the
// scheduler.
func (h *Handler) CheckVoting(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.service.CheckAndAutoClose(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, outcome)
}

// CastVote records the caller's vote.
func (h *Handler) CastVote(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	var req castVoteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ua := r.UserAgent()
	if len(ua) > maxUserAgentLength {
		ua = ua[:maxUserAgentLength]
	}
	vote, err := h.service.CastVote(r.Context(), redevelopment.CastVoteInput{
		ProjectID:  chi.URLParam(r, "projectID"),
		MemberID:   claims.UserID(),
		Session:    req.Session,
		Vote:       models.VoteValue(req.Vote),
		ProposalID: req.ProposalID,
		Reason:     req.Reason,
		IPAddress:  clientIP(r),
		UserAgent:  ua,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusCreated, vote)
}

// GetTally returns vote counts for a session, optionally for one proposal.
// The voters' individual choices are never exposed.
func (h *Handler) GetTally(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var proposalID *string
	if q.Has("proposal_id") {
		id := q.Get("proposal_id")
		proposalID = &id
	}
	tally, err := h.service.GetTally(r.Context(), chi.URLParam(r, "projectID"), q.Get("session"), proposalID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"yes":                 tally.Yes,
		"no":                  tally.No,
		"abstain":             tally.Abstain,
		"total":               tally.Total(),
		"approval_percentage": tally.ApprovalPercentage(),
	})
}

// clientIP returns the host part of RemoteAddr, which chi's RealIP
// middleware has already replaced with the forwarded address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
