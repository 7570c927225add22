// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package models

import "time"

// MemberRole is a member's capacity within a society.
type MemberRole string

const (
	RoleSocietyMember   MemberRole = "society_member"
	RoleCommitteeMember MemberRole = "committee_member"
	RoleTreasurer       MemberRole = "treasurer"
	RoleSecretary       MemberRole = "secretary"
)

// MemberStatus gates vote eligibility. Only active members count.
type MemberStatus string

const (
	MemberActive    MemberStatus = "active"
	MemberPending   MemberStatus = "pending"
	MemberRemoved   MemberStatus = "removed"
	MemberSuspended MemberStatus = "suspended"
)

// SocietyMember links a user to a society. One record per (society, user).
type SocietyMember struct {
	ID            string       `json:"id"`
	SocietyID     string       `json:"society_id"`
	UserID        string       `json:"user_id"`
	Role          MemberRole   `json:"role"`
	Status        MemberStatus `json:"status"`
	FlatNumber    string       `json:"flat_number,omitempty"`
	BlockNumber   string       `json:"block_number,omitempty"`
	OwnershipType string       `json:"ownership_type,omitempty"`
	JoinedAt      time.Time    `json:"joined_at"`
	RemovedAt     *time.Time   `json:"removed_at,omitempty"`
}

// ActiveMember is the projection returned by the membership directory.
type ActiveMember struct {
	UserID string     `json:"user_id"`
	Role   MemberRole `json:"role"`
}

// CanManageMembers reports whether m may edit its society's membership
// directory: an active secretary or committee member.
func (m *SocietyMember) CanManageMembers() bool {
	if m == nil || m.Status != MemberActive {
		return false
	}
	return m.Role == RoleSecretary || m.Role == RoleCommitteeMember
}
