// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package models

import (
	"fmt"
	"reflect"
	"time"

	"github.com/goccy/go-json"
)

// NotificationType enumerates persisted notification kinds.
type NotificationType string

const (
	NotifyProjectCreated         NotificationType = "redevelopment_project_created"
	NotifyStatusChanged          NotificationType = "redevelopment_status_changed"
	NotifyProposalSubmitted      NotificationType = "developer_proposal_submitted"
	NotifyProposalShortlisted    NotificationType = "developer_proposal_shortlisted"
	NotifyProposalSelected       NotificationType = "developer_proposal_selected"
	NotifyProposalRejected       NotificationType = "developer_proposal_rejected"
	NotifyVotingOpened           NotificationType = "voting_opened"
	NotifyVotingReminder         NotificationType = "voting_reminder"
	NotifyVotingClosed           NotificationType = "voting_closed"
	NotifyVotingClosedManualPick NotificationType = "voting_closed_manual_selection"
	NotifyVotingResultsPublished NotificationType = "voting_results_published"
	NotifyMilestoneCompleted     NotificationType = "project_milestone_completed"
	NotifyDocumentUploaded       NotificationType = "project_document_uploaded"
	NotifyQueryRaised            NotificationType = "project_query_raised"
	NotifyQueryResponded         NotificationType = "project_query_responded"
	NotifyUpdatePosted           NotificationType = "project_update_posted"
	NotifyAgreementSigned        NotificationType = "agreement_signed"
	NotifyConstructionStarted    NotificationType = "construction_started"
	NotifyConstructionMilestone  NotificationType = "construction_milestone"
	NotifyProjectCompleted       NotificationType = "project_completed"
)

// Priority orders notifications in the inbox.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Payload is the typed metadata carried by a notification. Each
// NotificationType maps to exactly one payload struct; see payloadFactories.
type Payload interface {
	payload()
}

// ProjectCreatedPayload accompanies redevelopment_project_created.
type ProjectCreatedPayload struct {
	ProjectTitle    string  `json:"project_title"`
	EstimatedBudget float64 `json:"estimated_budget,omitempty"`
}

// StatusChangedPayload accompanies redevelopment_status_changed.
type StatusChangedPayload struct {
	From ProjectStatus `json:"from"`
	To   ProjectStatus `json:"to"`
}

// ProposalPayload accompanies the developer_proposal_* kinds.
type ProposalPayload struct {
	ProposalTitle string  `json:"proposal_title"`
	DeveloperID   string  `json:"developer_id"`
	CorpusAmount  float64 `json:"corpus_amount,omitempty"`
	RentAmount    float64 `json:"rent_amount,omitempty"`
}

// VotingOpenedPayload accompanies voting_opened.
type VotingOpenedPayload struct {
	Session   string    `json:"session"`
	Deadline  time.Time `json:"deadline"`
	Proposals int       `json:"proposals"`
}

// VotingReminderPayload accompanies voting_reminder.
type VotingReminderPayload struct {
	Session        string    `json:"session"`
	Deadline       time.Time `json:"deadline"`
	HoursRemaining int       `json:"hours_remaining"`
}

// VotingOutcomePayload accompanies voting_closed,
// voting_closed_manual_selection and voting_results_published.
type VotingOutcomePayload struct {
	Reason             CloseReason `json:"reason"`
	Tally              VoteTally   `json:"tally"`
	ApprovalPercentage int         `json:"approval_percentage"`
	IsApproved         bool        `json:"is_approved"`
	WinningProposalID  string      `json:"winning_proposal_id,omitempty"`
}

// ProjectActivityPayload accompanies updates, queries, documents and
// milestones posted on a project.
type ProjectActivityPayload struct {
	ItemID    string `json:"item_id"`
	ItemTitle string `json:"item_title"`
	Important bool   `json:"important,omitempty"`
}

// ConstructionPayload accompanies agreement, construction and completion kinds.
type ConstructionPayload struct {
	Progress  int    `json:"progress"`
	Milestone string `json:"milestone,omitempty"`
}

func (ProjectCreatedPayload) payload()  {}
func (StatusChangedPayload) payload()   {}
func (ProposalPayload) payload()        {}
func (VotingOpenedPayload) payload()    {}
func (VotingReminderPayload) payload()  {}
func (VotingOutcomePayload) payload()   {}
func (ProjectActivityPayload) payload() {}
func (ConstructionPayload) payload()    {}

var payloadFactories = map[NotificationType]func() Payload{
	NotifyProjectCreated:         func() Payload { return &ProjectCreatedPayload{} },
	NotifyStatusChanged:          func() Payload { return &StatusChangedPayload{} },
	NotifyProposalSubmitted:      func() Payload { return &ProposalPayload{} },
	NotifyProposalShortlisted:    func() Payload { return &ProposalPayload{} },
	NotifyProposalSelected:       func() Payload { return &ProposalPayload{} },
	NotifyProposalRejected:       func() Payload { return &ProposalPayload{} },
	NotifyVotingOpened:           func() Payload { return &VotingOpenedPayload{} },
	NotifyVotingReminder:         func() Payload { return &VotingReminderPayload{} },
	NotifyVotingClosed:           func() Payload { return &VotingOutcomePayload{} },
	NotifyVotingClosedManualPick: func() Payload { return &VotingOutcomePayload{} },
	NotifyVotingResultsPublished: func() Payload { return &VotingOutcomePayload{} },
	NotifyMilestoneCompleted:     func() Payload { return &ProjectActivityPayload{} },
	NotifyDocumentUploaded:       func() Payload { return &ProjectActivityPayload{} },
	NotifyQueryRaised:            func() Payload { return &ProjectActivityPayload{} },
	NotifyQueryResponded:         func() Payload { return &ProjectActivityPayload{} },
	NotifyUpdatePosted:           func() Payload { return &ProjectActivityPayload{} },
	NotifyAgreementSigned:        func() Payload { return &ConstructionPayload{} },
	NotifyConstructionStarted:    func() Payload { return &ConstructionPayload{} },
	NotifyConstructionMilestone:  func() Payload { return &ConstructionPayload{} },
	NotifyProjectCompleted:       func() Payload { return &ConstructionPayload{} },
}

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	_, ok := payloadFactories[t]
	return ok
}

// CheckPayload verifies that p is the variant registered for t. A nil
// payload is always accepted.
func CheckPayload(t NotificationType, p Payload) error {
	factory, ok := payloadFactories[t]
	if !ok {
		return fmt.Errorf("unknown notification type %q", t)
	}
	if p == nil {
		return nil
	}
	want := reflect.TypeOf(factory()).Elem()
	got := reflect.TypeOf(p)
	if got.Kind() == reflect.Pointer {
		got = got.Elem()
	}
	if got != want {
		return fmt.Errorf("notification type %q expects %s payload, got %s", t, want.Name(), got.Name())
	}
	return nil
}

// DecodePayload unmarshals stored metadata into the variant for t.
func DecodePayload(t NotificationType, raw []byte) (Payload, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	factory, ok := payloadFactories[t]
	if !ok {
		return nil, fmt.Errorf("unknown notification type %q", t)
	}
	p := factory()
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return p, nil
}

// NotificationData holds references to the entities a notification is about.
type NotificationData struct {
	ProjectID  string  `json:"redevelopment_project_id,omitempty"`
	ProposalID string  `json:"proposal_id,omitempty"`
	VoteID     string  `json:"vote_id,omitempty"`
	SocietyID  string  `json:"society_id,omitempty"`
	Metadata   Payload `json:"metadata,omitempty"`
}

// Notification is the durable record a client reads from its inbox.
type Notification struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipient"`
	SenderID    string           `json:"sender,omitempty"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Data        NotificationData `json:"data"`
	IsRead      bool             `json:"is_read"`
	ReadAt      *time.Time       `json:"read_at,omitempty"`
	Priority    Priority         `json:"priority"`
	ExpiresAt   *time.Time       `json:"expires_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// notificationFields has Notification's fields without its methods.
type notificationFields Notification

type storedNotification struct {
	notificationFields
	Data storedData `json:"data"`
}

type storedData struct {
	NotificationData
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// UnmarshalJSON decodes metadata into the variant selected by Type, so a
// record survives a round trip through the outbox.
func (n *Notification) UnmarshalJSON(b []byte) error {
	var s storedNotification
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*n = Notification(s.notificationFields)
	n.Data = s.Data.NotificationData
	p, err := DecodePayload(n.Type, s.Data.Metadata)
	if err != nil {
		return err
	}
	n.Data.Metadata = p
	return nil
}
