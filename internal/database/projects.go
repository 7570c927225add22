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

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

const projectColumns = `
	id, society_id, owner_id, title, description, expected_amenities, timeline,
	status, progress, estimated_budget, corpus_amount, rent_amount,
	voting_deadline, voting_status, voting_closed_at, voting_session,
	minimum_approval_percentage, voting_result, reminder_sent_at,
	selected_developer_id, selected_proposal_id, developer_selected_at, developer_selected_by,
	updates, queries, documents, version, created_at, updated_at`

// projectJSON holds the serialised JSON-shaped columns of a project.
type projectJSON struct {
	amenities, timeline, result, updates, queries, documents any
}

func encodeProjectJSON(p *models.RedevelopmentProject) (projectJSON, error) {
	var out projectJSON
	var err error
	if out.amenities, err = marshalColumn(p.ExpectedAmenities, "expected_amenities"); err != nil {
		return out, err
	}
	if out.timeline, err = marshalColumn(p.Timeline, "timeline"); err != nil {
		return out, err
	}
	if p.VotingResult != nil {
		if out.result, err = marshalColumn(p.VotingResult, "voting_result"); err != nil {
			return out, err
		}
	}
	if out.updates, err = marshalColumn(p.Updates, "updates"); err != nil {
		return out, err
	}
	if out.queries, err = marshalColumn(p.Queries, "queries"); err != nil {
		return out, err
	}
	if out.documents, err = marshalColumn(p.Documents, "documents"); err != nil {
		return out, err
	}
	return out, nil
}

// CreateProject inserts a new project at version 1.
func (db *DB) CreateProject(ctx context.Context, p *models.RedevelopmentProject) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = p.CreatedAt
	p.Version = 1

	cols, err := encodeProjectJSON(p)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx, `INSERT INTO redevelopment_projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SocietyID, p.OwnerID, p.Title, p.Description, cols.amenities, cols.timeline,
		string(p.Status), p.Progress, p.EstimatedBudget, p.CorpusAmount, p.RentAmount,
		nullableTime(p.VotingDeadline), string(p.VotingStatus), nullableTime(p.VotingClosedAt), nullableString(p.VotingSession),
		p.MinimumApprovalPercentage, cols.result, nullableTime(p.ReminderSentAt),
		nullableString(p.SelectedDeveloperID), nullableString(p.SelectedProposalID),
		nullableTime(p.DeveloperSelectedAt), nullableString(p.DeveloperSelectedBy),
		cols.updates, cols.queries, cols.documents, p.Version, p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", classify(err))
	}
	return nil
}

// GetProject returns a project by id.
func (db *DB) GetProject(ctx context.Context, id string) (*models.RedevelopmentProject, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM redevelopment_projects WHERE id = ?`, id)
	return scanProject(row)
}

// UpdateProject writes every mutable column if the stored version still
// equals p.Version, then bumps p.Version. A stale write returns
// ErrVersionConflict and changes nothing.
func (db *DB) UpdateProject(ctx context.Context, p *models.RedevelopmentProject) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	cols, err := encodeProjectJSON(p)
	if err != nil {
		return err
	}
	updatedAt := time.Now().UTC()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE redevelopment_projects SET
			title = ?, description = ?, expected_amenities = ?, timeline = ?,
			status = ?, progress = ?, estimated_budget = ?, corpus_amount = ?, rent_amount = ?,
			voting_deadline = ?, voting_status = ?, voting_closed_at = ?, voting_session = ?,
			minimum_approval_percentage = ?, voting_result = ?, reminder_sent_at = ?,
			selected_developer_id = ?, selected_proposal_id = ?, developer_selected_at = ?, developer_selected_by = ?,
			updates = ?, queries = ?, documents = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		p.Title, p.Description, cols.amenities, cols.timeline,
		string(p.Status), p.Progress, p.EstimatedBudget, p.CorpusAmount, p.RentAmount,
		nullableTime(p.VotingDeadline), string(p.VotingStatus), nullableTime(p.VotingClosedAt), nullableString(p.VotingSession),
		p.MinimumApprovalPercentage, cols.result, nullableTime(p.ReminderSentAt),
		nullableString(p.SelectedDeveloperID), nullableString(p.SelectedProposalID),
		nullableTime(p.DeveloperSelectedAt), nullableString(p.DeveloperSelectedBy),
		cols.updates, cols.queries, cols.documents,
		updatedAt, p.ID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrVersionConflict
	}
	p.Version++
	p.UpdatedAt = updatedAt
	return nil
}

// CloseVotingIfOpen stores the final result and moves the project to
// voting_closed, but only while voting is still open. It reports whether
// this call performed the transition.
func (db *DB) CloseVotingIfOpen(ctx context.Context, projectID string, result *models.VotingResult, closedAt time.Time) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	raw, err := marshalColumn(result, "voting_result")
	if err != nil {
		return false, err
	}
	res, err := db.conn.ExecContext(ctx, `
		UPDATE redevelopment_projects SET
			status = ?, voting_status = ?, voting_closed_at = ?, voting_result = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND status = ? AND voting_status = ?`,
		string(models.ProjectVotingClosed), string(models.VotingClosed), closedAt.UTC(), raw,
		closedAt.UTC(), projectID, string(models.ProjectVoting), string(models.VotingOpen),
	)
	if err != nil {
		if isTransactionConflict(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to close voting: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

// AssignDeveloperIfClosed records the selection while the project is still
// in voting_closed. It reports whether this call performed the transition.
func (db *DB) AssignDeveloperIfClosed(ctx context.Context, projectID, developerID, proposalID, selectedBy string, at time.Time) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE redevelopment_projects SET
			status = ?, selected_developer_id = ?, selected_proposal_id = ?,
			developer_selected_at = ?, developer_selected_by = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND status = ? AND selected_developer_id IS NULL`,
		string(models.ProjectDeveloperSelected), developerID, proposalID,
		at.UTC(), selectedBy, at.UTC(), projectID, string(models.ProjectVotingClosed),
	)
	if err != nil {
		if isTransactionConflict(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to assign developer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

// MarkReminderSent stamps reminder_sent_at once. It reports whether the
// stamp was written by this call.
func (db *DB) MarkReminderSent(ctx context.Context, projectID string, at time.Time) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE redevelopment_projects SET reminder_sent_at = ?, version = version + 1
		WHERE id = ? AND reminder_sent_at IS NULL AND voting_status = ?`,
		at.UTC(), projectID, string(models.VotingOpen))
	if err != nil {
		if isTransactionConflict(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to mark reminder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListOpenVotingProjects returns projects with voting open. When dueBy is
// non-nil only projects whose deadline is at or before it are returned.
func (db *DB) ListOpenVotingProjects(ctx context.Context, dueBy *time.Time) ([]*models.RedevelopmentProject, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + projectColumns + ` FROM redevelopment_projects WHERE status = ? AND voting_status = ?`
	args := []any{string(models.ProjectVoting), string(models.VotingOpen)}
	if dueBy != nil {
		query += ` AND voting_deadline IS NOT NULL AND voting_deadline <= ?`
		args = append(args, dueBy.UTC())
	}
	query += ` ORDER BY voting_deadline NULLS LAST, id`

	return db.queryProjects(ctx, query, args...)
}

// ListProjects returns projects of a society, newest first.
func (db *DB) ListProjects(ctx context.Context, societyID string) ([]*models.RedevelopmentProject, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.queryProjects(ctx,
		`SELECT `+projectColumns+` FROM redevelopment_projects WHERE society_id = ? ORDER BY created_at DESC, id`,
		societyID)
}

// ListUserProjectIDs returns projects the user owns or whose society the
// user actively belongs to.
func (db *DB) ListUserProjectIDs(ctx context.Context, userID string) ([]string, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id FROM redevelopment_projects
		WHERE owner_id = ?
		   OR society_id IN (SELECT society_id FROM society_members WHERE user_id = ? AND status = ?)
		ORDER BY id`, userID, userID, string(models.MemberActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list user projects: %w", err)
	}
	defer closeQuietly(rows)
	return scanStrings(rows)
}

func (db *DB) queryProjects(ctx context.Context, query string, args ...any) ([]*models.RedevelopmentProject, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer closeQuietly(rows)

	var out []*models.RedevelopmentProject
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProject(row rowScanner) (*models.RedevelopmentProject, error) {
	var p models.RedevelopmentProject
	var description, session, selDev, selProp, selBy sql.NullString
	var amenities, timeline, result, updates, queries, documents sql.NullString
	var budget, corpus, rent sql.NullFloat64
	var deadline, closedAt, reminderAt, selectedAt sql.NullTime

	err := row.Scan(
		&p.ID, &p.SocietyID, &p.OwnerID, &p.Title, &description, &amenities, &timeline,
		&p.Status, &p.Progress, &budget, &corpus, &rent,
		&deadline, &p.VotingStatus, &closedAt, &session,
		&p.MinimumApprovalPercentage, &result, &reminderAt,
		&selDev, &selProp, &selectedAt, &selBy,
		&updates, &queries, &documents, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, classify(err)
	}

	p.Description = description.String
	p.VotingSession = session.String
	p.SelectedDeveloperID = selDev.String
	p.SelectedProposalID = selProp.String
	p.DeveloperSelectedBy = selBy.String
	p.EstimatedBudget = budget.Float64
	p.CorpusAmount = corpus.Float64
	p.RentAmount = rent.Float64
	p.VotingDeadline = timePtr(deadline)
	p.VotingClosedAt = timePtr(closedAt)
	p.ReminderSentAt = timePtr(reminderAt)
	p.DeveloperSelectedAt = timePtr(selectedAt)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()

	if err := unmarshalColumn(amenities, &p.ExpectedAmenities, "expected_amenities"); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(timeline, &p.Timeline, "timeline"); err != nil {
		return nil, err
	}
	if result.Valid && result.String != "" {
		p.VotingResult = &models.VotingResult{}
		if err := unmarshalColumn(result, p.VotingResult, "voting_result"); err != nil {
			return nil, err
		}
	}
	if err := unmarshalColumn(updates, &p.Updates, "updates"); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(queries, &p.Queries, "queries"); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(documents, &p.Documents, "documents"); err != nil {
		return nil, err
	}
	return &p, nil
}

// marshalColumn encodes v for a VARCHAR column.
func marshalColumn(v any, name string) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	return string(b), nil
}

func unmarshalColumn(field sql.NullString, dest any, name string) error {
	if !field.Valid || field.String == "" || field.String == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(field.String), dest); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}
