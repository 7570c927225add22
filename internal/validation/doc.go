// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared by every handler; it caches struct
// metadata and is safe for concurrent use. Field names in messages are the
// JSON names of the request body, so a client sees "deadline is required"
// rather than the Go field name.
//
// # Domain tags
//
//	type CastVoteRequest struct {
//	    Vote       string `json:"vote" validate:"required,vote_choice"`
//	    ProposalID string `json:"proposal_id" validate:"omitempty,max=64"`
//	}
//
//	type OpenVotingRequest struct {
//	    Deadline time.Time `json:"deadline" validate:"required,future"`
//	}
//
// # Error format
//
// ValidateStruct returns *RequestValidationError; ToAPIError converts it to
// the VALIDATION_ERROR body used by the API:
//
//	{"code":"VALIDATION_ERROR","message":"vote must be one of: yes no abstain",
//	 "details":{"field":"vote","tag":"vote_choice","value":"maybe"}}
//
// Multiple failures are joined with "; " and listed under details.fields.
package validation
