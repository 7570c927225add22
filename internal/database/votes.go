// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

// UpsertVote records v, replacing any earlier vote with the same
// (project, member, session, proposal) key. On return v holds the stored
// row, including the original id and created_at when an earlier vote existed.
// A concurrent insert of the same key surfaces as ErrDuplicateKey.
func (db *DB) UpsertVote(ctx context.Context, v *models.MemberVote) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	now := time.Now().UTC()
	id := uuid.New().String()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO member_votes (
			id, project_id, member_id, voting_session, proposal_id, vote, reason,
			is_verified, ip_address, user_agent, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, false, ?, ?, ?, ?)
		ON CONFLICT (project_id, member_id, voting_session, proposal_id) DO UPDATE SET
			vote = excluded.vote,
			reason = excluded.reason,
			is_verified = false,
			ip_address = excluded.ip_address,
			user_agent = excluded.user_agent,
			updated_at = excluded.updated_at`,
		id, v.ProjectID, v.MemberID, v.VotingSession, v.ProposalID, string(v.Vote),
		nullableString(v.Reason), nullableString(v.IPAddress), nullableString(v.UserAgent), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert vote: %w", classify(err))
	}

	stored, err := db.getVote(ctx, v.ProjectID, v.MemberID, v.VotingSession, v.ProposalID)
	if err != nil {
		return err
	}
	*v = *stored
	return nil
}

// GetVote returns the vote stored under a ledger key.
func (db *DB) GetVote(ctx context.Context, projectID, memberID, session, proposalID string) (*models.MemberVote, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.getVote(ctx, projectID, memberID, session, proposalID)
}

func (db *DB) getVote(ctx context.Context, projectID, memberID, session, proposalID string) (*models.MemberVote, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, project_id, member_id, voting_session, proposal_id, vote, reason,
			is_verified, ip_address, user_agent, created_at, updated_at
		FROM member_votes
		WHERE project_id = ? AND member_id = ? AND voting_session = ? AND proposal_id = ?`,
		projectID, memberID, session, proposalID)

	var v models.MemberVote
	var reason, ip, ua sql.NullString
	err := row.Scan(&v.ID, &v.ProjectID, &v.MemberID, &v.VotingSession, &v.ProposalID, &v.Vote,
		&reason, &v.IsVerified, &ip, &ua, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, classify(err)
	}
	v.Reason = reason.String
	v.IPAddress = ip.String
	v.UserAgent = ua.String
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
	return &v, nil
}

// CountVoteRecords returns the number of ledger rows for a key. Used to
// check the one-row-per-key rule.
func (db *DB) CountVoteRecords(ctx context.Context, projectID, memberID, session string) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM member_votes WHERE project_id = ? AND member_id = ? AND voting_session = ?`,
		projectID, memberID, session).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return n, nil
}

// MarkVoteVerified sets the only mutable field of a recorded vote.
func (db *DB) MarkVoteVerified(ctx context.Context, voteID string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `UPDATE member_votes SET is_verified = true WHERE id = ?`, voteID)
	if err != nil {
		return fmt.Errorf("failed to verify vote: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// TallyVotes counts votes in a session. With proposalID nil every vote in
// the session is counted; otherwise only votes against that proposal.
func (db *DB) TallyVotes(ctx context.Context, projectID, session string, proposalID *string) (models.VoteTally, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT vote, COUNT(*) FROM member_votes WHERE project_id = ? AND voting_session = ?`
	args := []any{projectID, session}
	if proposalID != nil {
		query += ` AND proposal_id = ?`
		args = append(args, *proposalID)
	}
	query += ` GROUP BY vote`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return models.VoteTally{}, fmt.Errorf("failed to tally votes: %w", err)
	}
	defer closeQuietly(rows)

	var tally models.VoteTally
	for rows.Next() {
		var vote models.VoteValue
		var n int
		if err := rows.Scan(&vote, &n); err != nil {
			return models.VoteTally{}, fmt.Errorf("failed to scan tally: %w", err)
		}
		tally.Add(vote, n)
	}
	return tally, rows.Err()
}

// TallyByProposal returns per-proposal tallies for a session. General
// (proposal-less) votes are not included.
func (db *DB) TallyByProposal(ctx context.Context, projectID, session string) (map[string]models.VoteTally, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT proposal_id, vote, COUNT(*) FROM member_votes
		WHERE project_id = ? AND voting_session = ? AND proposal_id <> ''
		GROUP BY proposal_id, vote`, projectID, session)
	if err != nil {
		return nil, fmt.Errorf("failed to tally proposals: %w", err)
	}
	defer closeQuietly(rows)

	out := make(map[string]models.VoteTally)
	for rows.Next() {
		var proposalID string
		var vote models.VoteValue
		var n int
		if err := rows.Scan(&proposalID, &vote, &n); err != nil {
			return nil, fmt.Errorf("failed to scan proposal tally: %w", err)
		}
		t := out[proposalID]
		t.Add(vote, n)
		out[proposalID] = t
	}
	return out, rows.Err()
}

// CountVoters returns how many distinct members voted in a session.
func (db *DB) CountVoters(ctx context.Context, projectID, session string) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT member_id) FROM member_votes WHERE project_id = ? AND voting_session = ?`,
		projectID, session).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count voters: %w", err)
	}
	return n, nil
}

// ListVoterIDs returns the distinct members who voted in a session.
func (db *DB) ListVoterIDs(ctx context.Context, projectID, session string) ([]string, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT member_id FROM member_votes WHERE project_id = ? AND voting_session = ? ORDER BY member_id`,
		projectID, session)
	if err != nil {
		return nil, fmt.Errorf("failed to list voters: %w", err)
	}
	defer closeQuietly(rows)
	return scanStrings(rows)
}
