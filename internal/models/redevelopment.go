// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

// Package models holds the entities shared by the storage, workflow and
// transport layers of the redevelopment service.
package models

import "time"

// ProjectStatus is the lifecycle state of a redevelopment project.
type ProjectStatus string

const (
	ProjectPlanning          ProjectStatus = "planning"
	ProjectTenderOpen        ProjectStatus = "tender_open"
	ProjectProposalsReceived ProjectStatus = "proposals_received"
	ProjectVoting            ProjectStatus = "voting"
	ProjectVotingClosed      ProjectStatus = "voting_closed"
	ProjectDeveloperSelected ProjectStatus = "developer_selected"
	ProjectConstruction      ProjectStatus = "construction"
	ProjectCompleted         ProjectStatus = "completed"
	ProjectCancelled         ProjectStatus = "cancelled"
)

// IsTerminal reports whether no further transition is possible.
func (s ProjectStatus) IsTerminal() bool {
	return s == ProjectCompleted || s == ProjectCancelled
}

// Valid reports whether s is a known status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectTenderOpen, ProjectProposalsReceived, ProjectVoting,
		ProjectVotingClosed, ProjectDeveloperSelected, ProjectConstruction,
		ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

// VotingStatus is empty until voting is first opened.
type VotingStatus string

const (
	VotingNotStarted VotingStatus = ""
	VotingOpen       VotingStatus = "open"
	VotingClosed     VotingStatus = "closed"
)

// PhaseStatus tracks one phase of the project timeline.
type PhaseStatus string

const (
	PhasePending    PhaseStatus = "pending"
	PhaseInProgress PhaseStatus = "in_progress"
	PhaseCompleted  PhaseStatus = "completed"
	PhaseDelayed    PhaseStatus = "delayed"
)

// TimelinePhase is an ordered step in the project timeline.
type TimelinePhase struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	StartDate   *time.Time  `json:"start_date,omitempty"`
	EndDate     *time.Time  `json:"end_date,omitempty"`
	Status      PhaseStatus `json:"status"`
}

// Timeline is the planned schedule of a project.
type Timeline struct {
	StartDate          *time.Time      `json:"start_date,omitempty"`
	ExpectedCompletion *time.Time      `json:"expected_completion,omitempty"`
	Phases             []TimelinePhase `json:"phases,omitempty"`
}

// ProjectUpdate is an announcement posted on a project.
type ProjectUpdate struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PostedBy    string    `json:"posted_by"`
	PostedAt    time.Time `json:"posted_at"`
	IsImportant bool      `json:"is_important"`
}

// QueryStatus is the state of a member query.
type QueryStatus string

const (
	QueryOpen     QueryStatus = "open"
	QueryInReview QueryStatus = "in_review"
	QueryResolved QueryStatus = "resolved"
	QueryClosed   QueryStatus = "closed"
)

// ProjectQuery is a question raised by a member and answered by the owner.
type ProjectQuery struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	RaisedBy    string      `json:"raised_by"`
	RaisedAt    time.Time   `json:"raised_at"`
	Status      QueryStatus `json:"status"`
	Response    string      `json:"response,omitempty"`
	RespondedBy string      `json:"responded_by,omitempty"`
	RespondedAt *time.Time  `json:"responded_at,omitempty"`
}

// ProjectDocument references a file stored elsewhere.
type ProjectDocument struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	URL        string    `json:"url"`
	UploadedBy string    `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
	IsPublic   bool      `json:"is_public"`
}

// RedevelopmentProject is the unit of mutation for the voting workflow.
// SelectedDeveloperID and SelectedProposalID are either both set or both empty.
type RedevelopmentProject struct {
	ID                string   `json:"id"`
	SocietyID         string   `json:"society_id"`
	OwnerID           string   `json:"owner_id"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	ExpectedAmenities []string `json:"expected_amenities"`
	Timeline          Timeline `json:"timeline"`

	Status          ProjectStatus `json:"status"`
	Progress        int           `json:"progress"`
	EstimatedBudget float64       `json:"estimated_budget"`
	CorpusAmount    float64       `json:"corpus_amount"`
	RentAmount      float64       `json:"rent_amount"`

	VotingDeadline            *time.Time    `json:"voting_deadline,omitempty"`
	VotingStatus              VotingStatus  `json:"voting_status,omitempty"`
	VotingClosedAt            *time.Time    `json:"voting_closed_at,omitempty"`
	VotingSession             string        `json:"voting_session,omitempty"`
	MinimumApprovalPercentage int           `json:"minimum_approval_percentage"`
	VotingResult              *VotingResult `json:"voting_result,omitempty"`
	ReminderSentAt            *time.Time    `json:"reminder_sent_at,omitempty"`

	SelectedDeveloperID string     `json:"selected_developer_id,omitempty"`
	SelectedProposalID  string     `json:"selected_proposal_id,omitempty"`
	DeveloperSelectedAt *time.Time `json:"developer_selected_at,omitempty"`
	DeveloperSelectedBy string     `json:"developer_selected_by,omitempty"`

	Updates   []ProjectUpdate   `json:"updates"`
	Queries   []ProjectQuery    `json:"queries"`
	Documents []ProjectDocument `json:"documents"`

	// Version increments on every write and guards concurrent updates.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsVotingOpen reports whether votes are currently accepted.
func (p *RedevelopmentProject) IsVotingOpen() bool {
	return p.Status == ProjectVoting && p.VotingStatus == VotingOpen
}

// FindQuery returns the query with the given id, or nil.
func (p *RedevelopmentProject) FindQuery(id string) *ProjectQuery {
	for i := range p.Queries {
		if p.Queries[i].ID == id {
			return &p.Queries[i]
		}
	}
	return nil
}
