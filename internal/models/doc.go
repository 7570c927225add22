// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

/*
Package models defines the data types shared by the store, the
redevelopment service, the API and the realtime layer.

  - redevelopment.go: RedevelopmentProject, its status machine and phases
  - proposal.go: DeveloperProposal
  - vote.go: MemberVote, VoteTally, VotingResult and AutoCloseOutcome
  - member.go: SocietyMember
  - notification.go: Notification, its types and typed payloads
  - realtime.go: RealtimeMessage, realtime events and room scopes
  - api_responses.go: APIResponse, the envelope every endpoint returns

JSON tags use snake_case. Timestamps are UTC.
*/
package models
