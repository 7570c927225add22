// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

const proposalColumns = `
	id, project_id, developer_id, title, description, corpus_amount, rent_amount, fsi,
	proposed_amenities, proposed_timeline, financial_breakdown, developer_info,
	status, evaluation, submitted_at, updated_at`

// CreateProposal inserts a proposal. A second proposal from the same
// developer on the same project fails with ErrDuplicateKey.
func (db *DB) CreateProposal(ctx context.Context, p *models.DeveloperProposal) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	args, err := proposalInsertArgs(p)
	if err != nil {
		return err
	}
	if _, err := db.conn.ExecContext(ctx, insertProposalSQL, args...); err != nil {
		return fmt.Errorf("failed to insert proposal: %w", classify(err))
	}
	return nil
}

// CreateProposalWhile inserts p only while its project is in one of
// statuses, otherwise it returns ErrNotAcceptingProposals. The project's
// version is bumped in the same transaction, so a status change racing the
// insert either conflicts with it or re-reads a project that already lists
// the proposal.
func (db *DB) CreateProposalWhile(ctx context.Context, p *models.DeveloperProposal, statuses ...models.ProjectStatus) error {
	if len(statuses) == 0 {
		return fmt.Errorf("%w: no project statuses given", ErrNotAcceptingProposals)
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	args, err := proposalInsertArgs(p)
	if err != nil {
		return err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin proposal insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	guard := make([]any, 0, len(statuses)+2)
	guard = append(guard, time.Now().UTC(), p.ProjectID)
	for _, st := range statuses {
		guard = append(guard, string(st))
	}
	res, err := tx.ExecContext(ctx, `UPDATE redevelopment_projects
		SET version = version + 1, updated_at = ?
		WHERE id = ? AND status IN (?`+strings.Repeat(", ?", len(statuses)-1)+`)`, guard...)
	if err != nil {
		return fmt.Errorf("failed to lock project for proposal: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotAcceptingProposals
	}

	if _, err := tx.ExecContext(ctx, insertProposalSQL, args...); err != nil {
		return fmt.Errorf("failed to insert proposal: %w", classify(err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit proposal: %w", classify(err))
	}
	return nil
}

const insertProposalSQL = `INSERT INTO developer_proposals (` + proposalColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// proposalInsertArgs fills defaults on p and returns the insert arguments.
func proposalInsertArgs(p *models.DeveloperProposal) ([]any, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.SubmittedAt.IsZero() {
		p.SubmittedAt = time.Now().UTC()
	}
	p.UpdatedAt = p.SubmittedAt

	amenities, err := marshalColumn(p.ProposedAmenities, "proposed_amenities")
	if err != nil {
		return nil, err
	}
	timeline, err := marshalColumn(p.ProposedTimeline, "proposed_timeline")
	if err != nil {
		return nil, err
	}
	financials, err := marshalColumn(p.Financials, "financial_breakdown")
	if err != nil {
		return nil, err
	}
	info, err := marshalColumn(p.DeveloperInfo, "developer_info")
	if err != nil {
		return nil, err
	}
	var evaluation any
	if p.Evaluation != nil {
		if evaluation, err = marshalColumn(p.Evaluation, "evaluation"); err != nil {
			return nil, err
		}
	}
	return []any{
		p.ID, p.ProjectID, p.DeveloperID, p.Title, p.Description, p.CorpusAmount, p.RentAmount, p.FSI,
		amenities, timeline, financials, info,
		string(p.Status), evaluation, p.SubmittedAt.UTC(), p.UpdatedAt.UTC(),
	}, nil
}

// GetProposal returns a proposal by id.
func (db *DB) GetProposal(ctx context.Context, id string) (*models.DeveloperProposal, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM developer_proposals WHERE id = ?`, id)
	return scanProposal(row)
}

// FindProposal returns the proposal only if it has the given id, belongs to
// projectID and was submitted by developerID.
func (db *DB) FindProposal(ctx context.Context, id, projectID, developerID string) (*models.DeveloperProposal, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+proposalColumns+` FROM developer_proposals WHERE id = ? AND project_id = ? AND developer_id = ?`,
		id, projectID, developerID)
	return scanProposal(row)
}

// ListProposals returns every proposal on a project in submission order.
func (db *DB) ListProposals(ctx context.Context, projectID string) ([]models.DeveloperProposal, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+proposalColumns+` FROM developer_proposals WHERE project_id = ? ORDER BY submitted_at, id`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.DeveloperProposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ListProposalSummaries returns the slim projection used for tallying.
func (db *DB) ListProposalSummaries(ctx context.Context, projectID string) ([]models.ProposalSummary, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, developer_id, title, status, submitted_at FROM developer_proposals
		 WHERE project_id = ? ORDER BY submitted_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposal summaries: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.ProposalSummary
	for rows.Next() {
		var s models.ProposalSummary
		if err := rows.Scan(&s.ID, &s.DeveloperID, &s.Title, &s.Status, &s.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan proposal summary: %w", err)
		}
		s.SubmittedAt = s.SubmittedAt.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountProposals returns how many proposals a project has.
func (db *DB) CountProposals(ctx context.Context, projectID string) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM developer_proposals WHERE project_id = ?`, projectID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count proposals: %w", err)
	}
	return n, nil
}

// UpdateProposalStatus moves a proposal to status if it is currently in one
// of from. It reports whether a row changed.
func (db *DB) UpdateProposalStatus(ctx context.Context, id string, status models.ProposalStatus, from ...models.ProposalStatus) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `UPDATE developer_proposals SET status = ?, updated_at = ? WHERE id = ?`
	args := []any{string(status), time.Now().UTC(), id}
	if len(from) > 0 {
		query += ` AND status IN (` + placeholders(len(from)) + `)`
		for _, f := range from {
			args = append(args, string(f))
		}
	}
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update proposal status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ApplySelection marks winnerID selected and every other live proposal on
// the project rejected. It returns the proposals that were rejected.
func (db *DB) ApplySelection(ctx context.Context, projectID, winnerID string) ([]models.ProposalSummary, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin selection: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	rows, err := tx.QueryContext(ctx, `
		SELECT id, developer_id, title, status, submitted_at FROM developer_proposals
		WHERE project_id = ? AND id <> ? AND status NOT IN (?, ?, ?)
		ORDER BY submitted_at, id`,
		projectID, winnerID,
		string(models.ProposalWithdrawn), string(models.ProposalRejected), string(models.ProposalDraft))
	if err != nil {
		return nil, fmt.Errorf("failed to list losing proposals: %w", err)
	}
	var rejected []models.ProposalSummary
	for rows.Next() {
		var s models.ProposalSummary
		if err := rows.Scan(&s.ID, &s.DeveloperID, &s.Title, &s.Status, &s.SubmittedAt); err != nil {
			closeQuietly(rows)
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		s.Status = models.ProposalRejected
		rejected = append(rejected, s)
	}
	closeQuietly(rows)

	if _, err := tx.ExecContext(ctx,
		`UPDATE developer_proposals SET status = ?, updated_at = ? WHERE id = ? AND project_id = ?`,
		string(models.ProposalSelected), now, winnerID, projectID); err != nil {
		return nil, fmt.Errorf("failed to mark selected proposal: %w", err)
	}
	for _, r := range rejected {
		if _, err := tx.ExecContext(ctx,
			`UPDATE developer_proposals SET status = ?, updated_at = ? WHERE id = ?`,
			string(models.ProposalRejected), now, r.ID); err != nil {
			return nil, fmt.Errorf("failed to mark rejected proposal: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit selection: %w", classify(err))
	}
	return rejected, nil
}

func scanProposal(row rowScanner) (*models.DeveloperProposal, error) {
	var p models.DeveloperProposal
	var description, amenities, timeline, financials, info, evaluation sql.NullString
	var corpus, rent, fsi sql.NullFloat64

	err := row.Scan(&p.ID, &p.ProjectID, &p.DeveloperID, &p.Title, &description,
		&corpus, &rent, &fsi, &amenities, &timeline, &financials, &info,
		&p.Status, &evaluation, &p.SubmittedAt, &p.UpdatedAt)
	if err != nil {
		return nil, classify(err)
	}
	p.Description = description.String
	p.CorpusAmount = corpus.Float64
	p.RentAmount = rent.Float64
	p.FSI = fsi.Float64
	p.SubmittedAt = p.SubmittedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()

	if err := unmarshalColumn(amenities, &p.ProposedAmenities, "proposed_amenities"); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(timeline, &p.ProposedTimeline, "proposed_timeline"); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(financials, &p.Financials, "financial_breakdown"); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(info, &p.DeveloperInfo, "developer_info"); err != nil {
		return nil, err
	}
	if evaluation.Valid && evaluation.String != "" && evaluation.String != "null" {
		p.Evaluation = &models.ProposalEvaluation{}
		if err := unmarshalColumn(evaluation, p.Evaluation, "evaluation"); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, '?')
	}
	return string(b)
}
