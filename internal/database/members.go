// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

// UpsertMember inserts a membership or replaces the role, status and flat
// details of the existing (society, user) record.
func (db *DB) UpsertMember(ctx context.Context, m *models.SocietyMember) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO society_members (
			id, society_id, user_id, role, status, flat_number, block_number,
			ownership_type, joined_at, removed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (society_id, user_id) DO UPDATE SET
			role = excluded.role,
			status = excluded.status,
			flat_number = excluded.flat_number,
			block_number = excluded.block_number,
			ownership_type = excluded.ownership_type,
			removed_at = excluded.removed_at
	`
	_, err := db.conn.ExecContext(ctx, query,
		m.ID, m.SocietyID, m.UserID, string(m.Role), string(m.Status),
		nullableString(m.FlatNumber), nullableString(m.BlockNumber),
		nullableString(m.OwnershipType), m.JoinedAt.UTC(), nullableTime(m.RemovedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert society member: %w", classify(err))
	}
	return nil
}

// SetMemberStatus changes a member's status. Moving to removed stamps
// removed_at.
func (db *DB) SetMemberStatus(ctx context.Context, societyID, userID string, status models.MemberStatus, at time.Time) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var removedAt any
	if status == models.MemberRemoved {
		removedAt = at.UTC()
	}
	res, err := db.conn.ExecContext(ctx,
		`UPDATE society_members SET status = ?, removed_at = ? WHERE society_id = ? AND user_id = ?`,
		string(status), removedAt, societyID, userID)
	if err != nil {
		return fmt.Errorf("failed to update member status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetMember returns the (society, user) membership.
func (db *DB) GetMember(ctx context.Context, societyID, userID string) (*models.SocietyMember, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `
		SELECT id, society_id, user_id, role, status, flat_number, block_number,
			ownership_type, joined_at, removed_at
		FROM society_members WHERE society_id = ? AND user_id = ?`, societyID, userID)

	var m models.SocietyMember
	var flat, block, ownership sql.NullString
	var removedAt sql.NullTime
	err := row.Scan(&m.ID, &m.SocietyID, &m.UserID, &m.Role, &m.Status,
		&flat, &block, &ownership, &m.JoinedAt, &removedAt)
	if err != nil {
		return nil, classify(err)
	}
	m.FlatNumber = flat.String
	m.BlockNumber = block.String
	m.OwnershipType = ownership.String
	m.RemovedAt = timePtr(removedAt)
	return &m, nil
}

// CountActiveMembers returns the eligible-voter denominator for a society.
func (db *DB) CountActiveMembers(ctx context.Context, societyID string) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM society_members WHERE society_id = ? AND status = ?`,
		societyID, string(models.MemberActive)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count active members: %w", err)
	}
	return n, nil
}

// ListActiveMembers returns every active member of a society.
func (db *DB) ListActiveMembers(ctx context.Context, societyID string) ([]models.ActiveMember, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id, role FROM society_members WHERE society_id = ? AND status = ? ORDER BY joined_at, user_id`,
		societyID, string(models.MemberActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list active members: %w", err)
	}
	defer closeQuietly(rows)

	var members []models.ActiveMember
	for rows.Next() {
		var m models.ActiveMember
		if err := rows.Scan(&m.UserID, &m.Role); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// IsActiveMember reports whether userID may vote in societyID.
func (db *DB) IsActiveMember(ctx context.Context, societyID, userID string) (bool, error) {
	m, err := db.GetMember(ctx, societyID, userID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.Status == models.MemberActive, nil
}

// ListUserSocieties returns the societies in which userID is active.
func (db *DB) ListUserSocieties(ctx context.Context, userID string) ([]string, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT society_id FROM society_members WHERE user_id = ? AND status = ?
		UNION
		SELECT society_id FROM redevelopment_projects WHERE owner_id = ?
		ORDER BY 1`, userID, string(models.MemberActive), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user societies: %w", err)
	}
	defer closeQuietly(rows)
	return scanStrings(rows)
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
