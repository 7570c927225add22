// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/database"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/redevelopment"
)

// Error codes for API responses
const (
	ErrCodeBadRequest             = "BAD_REQUEST"
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeUnauthorized           = "UNAUTHORIZED"
	ErrCodeForbidden              = "FORBIDDEN"
	ErrCodeNotEligible            = "NOT_ELIGIBLE"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeConflict               = "CONFLICT"
	ErrCodeDuplicateProposal      = "DUPLICATE_PROPOSAL"
	ErrCodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	ErrCodeInvalidSelection       = "INVALID_SELECTION"
	ErrCodeTooManyRequests        = "TOO_MANY_REQUESTS"
	ErrCodeInternalError          = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable     = "SERVICE_UNAVAILABLE"
)

// errNotProjectOwner is returned when a lifecycle action is attempted by
// someone other than the project owner or an admin.
var errNotProjectOwner = errors.New("only the project owner can perform this action")

// errNotSocietyManager is returned when someone other than an admin or an
// active secretary or committee member of the society edits its membership.
var errNotSocietyManager = errors.New("only the society's secretary or committee can manage members")

var errDatabaseUnavailable = errors.New("database not configured")

// respondServiceError maps workflow and storage errors to HTTP responses.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var transition *redevelopment.TransitionError
	switch {
	case errors.As(err, &transition):
		allowed := make([]string, len(transition.Allowed))
		for i, s := range transition.Allowed {
			allowed[i] = string(s)
		}
		respondAPIError(w, r, http.StatusConflict, &models.APIError{
			Code:    ErrCodeInvalidStateTransition,
			Message: err.Error(),
			Details: map[string]interface{}{
				"operation": transition.Op,
				"status":    string(transition.From),
				"allowed":   allowed,
			},
		}, err)
	case errors.Is(err, redevelopment.ErrInvalidStateTransition):
		respondError(w, r, http.StatusConflict, ErrCodeInvalidStateTransition, err.Error(), err)
	case errors.Is(err, redevelopment.ErrInvalidSelection):
		respondError(w, r, http.StatusUnprocessableEntity, ErrCodeInvalidSelection, err.Error(), err)
	case errors.Is(err, redevelopment.ErrProjectNotFound),
		errors.Is(err, redevelopment.ErrProposalNotFound),
		errors.Is(err, redevelopment.ErrQueryNotFound),
		errors.Is(err, database.ErrNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, notFoundMessage(err), err)
	case errors.Is(err, redevelopment.ErrDuplicateProposal):
		respondError(w, r, http.StatusConflict, ErrCodeDuplicateProposal, err.Error(), err)
	case errors.Is(err, redevelopment.ErrDuplicateVote),
		errors.Is(err, redevelopment.ErrConcurrentUpdate):
		respondError(w, r, http.StatusConflict, ErrCodeConflict, err.Error(), err)
	case errors.Is(err, redevelopment.ErrInvalidDeadline),
		errors.Is(err, redevelopment.ErrInvalidInput):
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error(), err)
	case errors.Is(err, redevelopment.ErrNotEligible):
		respondError(w, r, http.StatusForbidden, ErrCodeNotEligible, err.Error(), err)
	case errors.Is(err, errNotProjectOwner), errors.Is(err, errNotSocietyManager):
		respondError(w, r, http.StatusForbidden, ErrCodeForbidden, err.Error(), err)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Request timed out", err)
	default:
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Internal server error", err)
	}
}

// notFoundMessage keeps storage details out of 404 bodies.
func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, redevelopment.ErrProjectNotFound):
		return redevelopment.ErrProjectNotFound.Error()
	case errors.Is(err, redevelopment.ErrProposalNotFound):
		return redevelopment.ErrProposalNotFound.Error()
	case errors.Is(err, redevelopment.ErrQueryNotFound):
		return redevelopment.ErrQueryNotFound.Error()
	}
	return "resource not found"
}
