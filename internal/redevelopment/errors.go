// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package redevelopment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

// Sentinel errors returned by the Service. Callers match them with errors.Is.
var (
	// ErrInvalidStateTransition is wrapped by every *TransitionError.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrInvalidSelection means the (developer, proposal) pair does not match
	// a live proposal on the project.
	ErrInvalidSelection = errors.New("invalid developer selection")

	// ErrDuplicateVote surfaces only if the ledger upsert conflicts twice.
	ErrDuplicateVote = errors.New("duplicate vote conflict")

	ErrProjectNotFound   = errors.New("redevelopment project not found")
	ErrProposalNotFound  = errors.New("developer proposal not found")
	ErrQueryNotFound     = errors.New("project query not found")
	ErrDuplicateProposal = errors.New("developer already submitted a proposal for this project")
	ErrInvalidDeadline   = errors.New("voting deadline must be in the future")
	ErrInvalidInput      = errors.New("invalid input")

	// ErrNotEligible means the voter is not an active member of the society.
	ErrNotEligible = errors.New("member is not eligible to vote")

	// ErrConcurrentUpdate is returned when optimistic retries are exhausted.
	ErrConcurrentUpdate = errors.New("project was modified concurrently")
)

// TransitionError describes a lifecycle operation attempted from the wrong
// project status.
type TransitionError struct {
	Op      string
	From    models.ProjectStatus
	Allowed []models.ProjectStatus
}

func (e *TransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("%s: cannot %s from status %q (allowed: %s)",
		ErrInvalidStateTransition, e.Op, e.From, strings.Join(allowed, ", "))
}

// Unwrap lets errors.Is match ErrInvalidStateTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}

func transitionError(op string, from models.ProjectStatus, allowed ...models.ProjectStatus) error {
	return &TransitionError{Op: op, From: from, Allowed: allowed}
}
