// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package database

import (
	"context"
	"fmt"
)

// JSON-shaped columns are stored as VARCHAR so the schema does not depend on
// the json extension being installable.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS society_members (
		id VARCHAR PRIMARY KEY,
		society_id VARCHAR NOT NULL,
		user_id VARCHAR NOT NULL,
		role VARCHAR NOT NULL,
		status VARCHAR NOT NULL,
		flat_number VARCHAR,
		block_number VARCHAR,
		ownership_type VARCHAR,
		joined_at TIMESTAMP NOT NULL,
		removed_at TIMESTAMP,
		UNIQUE (society_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS redevelopment_projects (
		id VARCHAR PRIMARY KEY,
		society_id VARCHAR NOT NULL,
		owner_id VARCHAR NOT NULL,
		title VARCHAR NOT NULL,
		description VARCHAR,
		expected_amenities VARCHAR,
		timeline VARCHAR,
		status VARCHAR NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		estimated_budget DOUBLE,
		corpus_amount DOUBLE,
		rent_amount DOUBLE,
		voting_deadline TIMESTAMP,
		voting_status VARCHAR NOT NULL DEFAULT '',
		voting_closed_at TIMESTAMP,
		voting_session VARCHAR,
		minimum_approval_percentage INTEGER NOT NULL,
		voting_result VARCHAR,
		reminder_sent_at TIMESTAMP,
		selected_developer_id VARCHAR,
		selected_proposal_id VARCHAR,
		developer_selected_at TIMESTAMP,
		developer_selected_by VARCHAR,
		updates VARCHAR,
		queries VARCHAR,
		documents VARCHAR,
		version BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS developer_proposals (
		id VARCHAR PRIMARY KEY,
		project_id VARCHAR NOT NULL,
		developer_id VARCHAR NOT NULL,
		title VARCHAR NOT NULL,
		description VARCHAR,
		corpus_amount DOUBLE,
		rent_amount DOUBLE,
		fsi DOUBLE,
		proposed_amenities VARCHAR,
		proposed_timeline VARCHAR,
		financial_breakdown VARCHAR,
		developer_info VARCHAR,
		status VARCHAR NOT NULL,
		evaluation VARCHAR,
		submitted_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (project_id, developer_id)
	)`,
	`CREATE TABLE IF NOT EXISTS member_votes (
		id VARCHAR PRIMARY KEY,
		project_id VARCHAR NOT NULL,
		member_id VARCHAR NOT NULL,
		voting_session VARCHAR NOT NULL,
		proposal_id VARCHAR NOT NULL DEFAULT '',
		vote VARCHAR NOT NULL,
		reason VARCHAR,
		is_verified BOOLEAN NOT NULL DEFAULT false,
		ip_address VARCHAR,
		user_agent VARCHAR,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (project_id, member_id, voting_session, proposal_id)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id VARCHAR PRIMARY KEY,
		recipient_id VARCHAR NOT NULL,
		sender_id VARCHAR,
		type VARCHAR NOT NULL,
		title VARCHAR NOT NULL,
		message VARCHAR NOT NULL,
		project_id VARCHAR,
		proposal_id VARCHAR,
		vote_id VARCHAR,
		society_id VARCHAR,
		metadata VARCHAR,
		is_read BOOLEAN NOT NULL DEFAULT false,
		read_at TIMESTAMP,
		priority VARCHAR NOT NULL,
		expires_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_society ON redevelopment_projects (society_id)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_session ON member_votes (project_id, voting_session)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications (recipient_id, created_at)`,
}

func (db *DB) createSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
