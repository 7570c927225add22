// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package api

import (
	"time"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

// Request bodies. Field names are the JSON names clients send; validation
// messages use the same names.

type upsertMemberRequest struct {
	Role          string `json:"role" validate:"required,member_role"`
	Status        string `json:"status" validate:"omitempty,member_status"`
	FlatNumber    string `json:"flat_number" validate:"max=32"`
	BlockNumber   string `json:"block_number" validate:"max=32"`
	OwnershipType string `json:"ownership_type" validate:"max=32"`
}

type createProjectRequest struct {
	SocietyID         string          `json:"society_id" validate:"required,max=64"`
	Title             string          `json:"title" validate:"required,min=3,max=200"`
	Description       string          `json:"description" validate:"max=5000"`
	ExpectedAmenities []string        `json:"expected_amenities" validate:"max=50,dive,max=100"`
	Timeline          models.Timeline `json:"timeline"`
	EstimatedBudget   float64         `json:"estimated_budget" validate:"gte=0"`
	CorpusAmount      float64         `json:"corpus_amount" validate:"gte=0"`
	RentAmount        float64         `json:"rent_amount" validate:"gte=0"`
}

type submitProposalRequest struct {
	Title             string                    `json:"title" validate:"required,min=3,max=200"`
	Description       string                    `json:"description" validate:"max=10000"`
	CorpusAmount      float64                   `json:"corpus_amount" validate:"gte=0"`
	RentAmount        float64                   `json:"rent_amount" validate:"gte=0"`
	FSI               float64                   `json:"fsi" validate:"gte=0"`
	ProposedAmenities []string                  `json:"proposed_amenities" validate:"max=50,dive,max=100"`
	ProposedTimeline  models.ProposalTimeline   `json:"proposed_timeline"`
	Financials        models.FinancialBreakdown `json:"financial_breakdown"`
	DeveloperInfo     models.DeveloperInfo      `json:"developer_info"`
}

type openVotingRequest struct {
	Deadline time.Time `json:"deadline" validate:"required,future"`
	Session  string    `json:"session" validate:"omitempty,max=64"`
}

type castVoteRequest struct {
	Vote       string `json:"vote" validate:"required,vote_choice"`
	ProposalID string `json:"proposal_id" validate:"omitempty,max=64"`
	Session    string `json:"session" validate:"omitempty,max=64"`
	Reason     string `json:"reason" validate:"max=1000"`
}

type selectDeveloperRequest struct {
	DeveloperID string `json:"developer_id" validate:"required,max=64"`
	ProposalID  string `json:"proposal_id" validate:"required,max=64"`
}

type progressRequest struct {
	Progress  int    `json:"progress" validate:"gte=0,lte=100"`
	Milestone string `json:"milestone" validate:"max=200"`
}

type postUpdateRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	IsImportant bool   `json:"is_important"`
}

type raiseQueryRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

type respondQueryRequest struct {
	Response string `json:"response" validate:"required,max=5000"`
}

type addDocumentRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Type     string `json:"type" validate:"required,max=64"`
	URL      string `json:"url" validate:"required,url,max=2048"`
	IsPublic bool   `json:"is_public"`
}
