// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package models

import "time"

// VoteValue is a member's choice.
type VoteValue string

const (
	VoteYes     VoteValue = "yes"
	VoteNo      VoteValue = "no"
	VoteAbstain VoteValue = "abstain"
)

// Valid reports whether v is yes, no or abstain.
func (v VoteValue) Valid() bool {
	return v == VoteYes || v == VoteNo || v == VoteAbstain
}

// Well-known voting session labels.
const (
	SessionProposalSelection = "proposal_selection"
	SessionInitialApproval   = "initial_approval"
)

// MemberVote is one ledger entry. The ledger keeps a single row per
// (project, member, session, proposal); ProposalID is empty for a general
// project-approval vote. Recasting overwrites the row.
type MemberVote struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	MemberID      string    `json:"member_id"`
	VotingSession string    `json:"voting_session"`
	Vote          VoteValue `json:"vote"`
	ProposalID    string    `json:"proposal_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	IsVerified    bool      `json:"is_verified"`
	IPAddress     string    `json:"-"`
	UserAgent     string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// VoteTally counts votes by value.
type VoteTally struct {
	Yes     int `json:"yes"`
	No      int `json:"no"`
	Abstain int `json:"abstain"`
}

// Total is yes + no + abstain.
func (t VoteTally) Total() int {
	return t.Yes + t.No + t.Abstain
}

// ApprovalPercentage is round(yes / total * 100), or 0 when nothing was cast.
// Halves round up.
func (t VoteTally) ApprovalPercentage() int {
	total := t.Total()
	if total == 0 {
		return 0
	}
	return (t.Yes*200 + total) / (2 * total)
}

// Add increments the counter for v. Unknown values are ignored.
func (t *VoteTally) Add(v VoteValue, n int) {
	switch v {
	case VoteYes:
		t.Yes += n
	case VoteNo:
		t.No += n
	case VoteAbstain:
		t.Abstain += n
	}
}

// CloseReason records why voting ended.
type CloseReason string

const (
	CloseDeadlinePassed  CloseReason = "deadline_passed"
	CloseMajorityReached CloseReason = "majority_reached"
	CloseManual          CloseReason = "manual"
)

// ProposalResult is the final tally for one proposal.
type ProposalResult struct {
	ProposalID         string    `json:"proposal_id"`
	DeveloperID        string    `json:"developer_id"`
	Title              string    `json:"title"`
	SubmittedAt        time.Time `json:"submitted_at"`
	Tally              VoteTally `json:"tally"`
	ApprovalPercentage int       `json:"approval_percentage"`
}

// VotingResult is computed once when voting closes and stored on the project.
type VotingResult struct {
	Session                   string           `json:"session"`
	Reason                    CloseReason      `json:"reason"`
	Tally                     VoteTally        `json:"tally"`
	VotesCast                 int              `json:"votes_cast"`
	ActiveMembers             int              `json:"active_members"`
	ApprovalPercentage        int              `json:"approval_percentage"`
	MinimumApprovalPercentage int              `json:"minimum_approval_percentage"`
	IsApproved                bool             `json:"is_approved"`
	Proposals                 []ProposalResult `json:"proposals,omitempty"`
	WinningProposalID         string           `json:"winning_proposal_id,omitempty"`
	WinningDeveloperID        string           `json:"winning_developer_id,omitempty"`
	ClosedAt                  time.Time        `json:"closed_at"`
}

// AutoCloseOutcome is the answer of an auto-close evaluation.
type AutoCloseOutcome struct {
	Closed bool          `json:"closed"`
	Reason CloseReason   `json:"reason,omitempty"`
	Result *VotingResult `json:"result,omitempty"`
}
