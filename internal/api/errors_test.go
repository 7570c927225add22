// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/database"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/redevelopment"
)

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{
			name:   "transition error",
			err:    &redevelopment.TransitionError{Op: "open voting", From: models.ProjectPlanning, Allowed: []models.ProjectStatus{models.ProjectProposalsReceived}},
			status: http.StatusConflict,
			code:   ErrCodeInvalidStateTransition,
		},
		{"bare transition sentinel", redevelopment.ErrInvalidStateTransition, http.StatusConflict, ErrCodeInvalidStateTransition},
		{"invalid selection", fmt.Errorf("select: %w", redevelopment.ErrInvalidSelection), http.StatusUnprocessableEntity, ErrCodeInvalidSelection},
		{"project not found", fmt.Errorf("%w: p1", redevelopment.ErrProjectNotFound), http.StatusNotFound, ErrCodeNotFound},
		{"storage not found", fmt.Errorf("mark read: %w", database.ErrNotFound), http.StatusNotFound, ErrCodeNotFound},
		{"duplicate proposal", redevelopment.ErrDuplicateProposal, http.StatusConflict, ErrCodeDuplicateProposal},
		{"duplicate vote", redevelopment.ErrDuplicateVote, http.StatusConflict, ErrCodeConflict},
		{"concurrent update", redevelopment.ErrConcurrentUpdate, http.StatusConflict, ErrCodeConflict},
		{"invalid deadline", redevelopment.ErrInvalidDeadline, http.StatusBadRequest, ErrCodeValidation},
		{"not eligible", redevelopment.ErrNotEligible, http.StatusForbidden, ErrCodeNotEligible},
		{"not owner", errNotProjectOwner, http.StatusForbidden, ErrCodeForbidden},
		{"timeout", fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/p1/voting/open", nil)
			respondServiceError(rec, req, tt.err)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var resp models.APIResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != "error" || resp.Error == nil {
				t.Fatalf("response = %+v", resp)
			}
			if resp.Error.Code != tt.code {
				t.Errorf("code = %s, want %s", resp.Error.Code, tt.code)
			}
		})
	}
}

func TestRespondServiceError_HidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/p1", nil)
	respondServiceError(rec, req, fmt.Errorf("load project: %w: SELECT * FROM projects", database.ErrNotFound))

	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Message != "resource not found" {
		t.Errorf("message = %q", resp.Error.Message)
	}
}
