// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// RealtimeEvent names a room-scoped push. These are never persisted.
type RealtimeEvent string

const (
	EventVoteCast          RealtimeEvent = "vote_cast"
	EventNewProposal       RealtimeEvent = "new_proposal"
	EventProjectUpdate     RealtimeEvent = "project_update"
	EventNewQuery          RealtimeEvent = "new_query"
	EventQueryResponse     RealtimeEvent = "query_response"
	EventDeveloperSelected RealtimeEvent = "developer_selected"
	EventProposalSelected  RealtimeEvent = "proposal_selected"
	EventProposalRejected  RealtimeEvent = "proposal_rejected"
	EventVotingOpened      RealtimeEvent = "voting_opened"
	EventVotingClosed      RealtimeEvent = "voting_closed"
	EventStatusChanged     RealtimeEvent = "status_changed"

	// EventNotification mirrors a freshly persisted notification to its
	// recipient so an open inbox can refresh without polling.
	EventNotification RealtimeEvent = "notification"
)

// VoteCastEvent reports turnout. It never reveals how a member voted.
type VoteCastEvent struct {
	ProjectID  string    `json:"project_id"`
	Session    string    `json:"session"`
	ProposalID string    `json:"proposal_id,omitempty"`
	VotesCast  int       `json:"votes_cast"`
	Tally      VoteTally `json:"tally"`
}

// ProposalEvent announces a new or changed proposal on a project.
type ProposalEvent struct {
	ProjectID   string         `json:"project_id"`
	ProposalID  string         `json:"proposal_id"`
	DeveloperID string         `json:"developer_id"`
	Title       string         `json:"title"`
	Status      ProposalStatus `json:"status"`
}

// VotingEvent announces voting opening or closing.
type VotingEvent struct {
	ProjectID string        `json:"project_id"`
	Session   string        `json:"session"`
	Deadline  *time.Time    `json:"deadline,omitempty"`
	Result    *VotingResult `json:"result,omitempty"`
}

// SelectionEvent announces the selected developer.
type SelectionEvent struct {
	ProjectID   string `json:"project_id"`
	ProposalID  string `json:"proposal_id"`
	DeveloperID string `json:"developer_id"`
	SelectedBy  string `json:"selected_by"`
}

// ActivityEvent carries an update, query or query response.
type ActivityEvent struct {
	ProjectID string `json:"project_id"`
	ItemID    string `json:"item_id"`
	Title     string `json:"title"`
	Body      string `json:"body,omitempty"`
	Important bool   `json:"important,omitempty"`
}

// StatusEvent announces a lifecycle transition.
type StatusEvent struct {
	ProjectID string        `json:"project_id"`
	From      ProjectStatus `json:"from"`
	To        ProjectStatus `json:"to"`
}

// RoomScope is the kind of room a realtime message targets.
type RoomScope string

const (
	RoomUser    RoomScope = "user"
	RoomSociety RoomScope = "society"
	RoomProject RoomScope = "project"
)

// Room returns the room name, e.g. "project:42".
func (s RoomScope) Room(id string) string {
	return string(s) + ":" + id
}

// Valid reports whether s is a known scope.
func (s RoomScope) Valid() bool {
	switch s {
	case RoomUser, RoomSociety, RoomProject:
		return true
	}
	return false
}

// RealtimeMessage is one room-scoped push as it travels between the
// domain, the relay bus and the websocket hub.
type RealtimeMessage struct {
	Scope         RoomScope       `json:"scope"`
	Target        string          `json:"target"`
	Event         RealtimeEvent   `json:"event"`
	Data          json.RawMessage `json:"data,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`

	// Origin identifies the publishing instance.
	Origin string `json:"origin,omitempty"`
}

// Room returns the destination room name.
func (m RealtimeMessage) Room() string {
	return m.Scope.Room(m.Target)
}
