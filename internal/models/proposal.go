// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package models

import "time"

// ProposalStatus is the review state of a developer proposal.
type ProposalStatus string

const (
	ProposalDraft       ProposalStatus = "draft"
	ProposalSubmitted   ProposalStatus = "submitted"
	ProposalUnderReview ProposalStatus = "under_review"
	ProposalShortlisted ProposalStatus = "shortlisted"
	ProposalSelected    ProposalStatus = "selected"
	ProposalRejected    ProposalStatus = "rejected"
	ProposalWithdrawn   ProposalStatus = "withdrawn"
)

// ProposalPhase is one stage of the developer's construction plan.
type ProposalPhase struct {
	Name           string   `json:"name"`
	DurationMonths int      `json:"duration_months"`
	Milestones     []string `json:"milestones,omitempty"`
}

// ProposalTimeline is the developer's proposed schedule.
type ProposalTimeline struct {
	StartDate      *time.Time      `json:"start_date,omitempty"`
	CompletionDate *time.Time      `json:"completion_date,omitempty"`
	Phases         []ProposalPhase `json:"phases,omitempty"`
}

// PaymentMilestone is one entry of a payment schedule.
type PaymentMilestone struct {
	Milestone  string  `json:"milestone"`
	Percentage float64 `json:"percentage"`
	Amount     float64 `json:"amount"`
}

// FinancialBreakdown itemises the proposal's costs.
type FinancialBreakdown struct {
	ConstructionCost float64            `json:"construction_cost"`
	AmenitiesCost    float64            `json:"amenities_cost"`
	LegalCost        float64            `json:"legal_cost"`
	ContingencyCost  float64            `json:"contingency_cost"`
	TotalCost        float64            `json:"total_cost"`
	PaymentSchedule  []PaymentMilestone `json:"payment_schedule,omitempty"`
}

// DeveloperInfo is a snapshot of the developer at submission time.
type DeveloperInfo struct {
	CompanyName       string   `json:"company_name"`
	ExperienceYears   int      `json:"experience_years"`
	CompletedProjects int      `json:"completed_projects"`
	Credentials       []string `json:"credentials,omitempty"`
	ContactPerson     string   `json:"contact_person,omitempty"`
	ContactPhone      string   `json:"contact_phone,omitempty"`
	ContactEmail      string   `json:"contact_email,omitempty"`
}

// ProposalEvaluation is filled in by administrative review and has no
// bearing on member voting.
type ProposalEvaluation struct {
	TechnicalScore int       `json:"technical_score"`
	FinancialScore int       `json:"financial_score"`
	TimelineScore  int       `json:"timeline_score"`
	OverallScore   int       `json:"overall_score"`
	EvaluatedBy    string    `json:"evaluated_by"`
	EvaluatedAt    time.Time `json:"evaluated_at"`
	Comments       string    `json:"comments,omitempty"`
}

// DeveloperProposal is a bid on a project. At most one exists per
// (project, developer) pair.
type DeveloperProposal struct {
	ID                string              `json:"id"`
	ProjectID         string              `json:"project_id"`
	DeveloperID       string              `json:"developer_id"`
	Title             string              `json:"title"`
	Description       string              `json:"description"`
	CorpusAmount      float64             `json:"corpus_amount"`
	RentAmount        float64             `json:"rent_amount"`
	FSI               float64             `json:"fsi"`
	ProposedAmenities []string            `json:"proposed_amenities"`
	ProposedTimeline  ProposalTimeline    `json:"proposed_timeline"`
	Financials        FinancialBreakdown  `json:"financial_breakdown"`
	DeveloperInfo     DeveloperInfo       `json:"developer_info"`
	Status            ProposalStatus      `json:"status"`
	Evaluation        *ProposalEvaluation `json:"evaluation,omitempty"`
	SubmittedAt       time.Time           `json:"submitted_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// ProposalSummary is the slim view used when tallying and notifying.
type ProposalSummary struct {
	ID          string         `json:"id"`
	DeveloperID string         `json:"developer_id"`
	Title       string         `json:"title"`
	Status      ProposalStatus `json:"status"`
	SubmittedAt time.Time      `json:"submitted_at"`
}
