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

const notificationColumns = `
	id, recipient_id, sender_id, type, title, message,
	project_id, proposal_id, vote_id, society_id, metadata,
	is_read, read_at, priority, expires_at, created_at`

// CreateNotification inserts n and reports whether a row was written.
// Inserting an id that already exists is a no-op that returns false, so
// replays from the outbox are safe.
func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Priority == "" {
		n.Priority = models.PriorityMedium
	}

	var metadata any
	if n.Data.Metadata != nil {
		raw, err := marshalColumn(n.Data.Metadata, "metadata")
		if err != nil {
			return false, err
		}
		metadata = raw
	}

	res, err := db.conn.ExecContext(ctx, `INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		n.ID, n.RecipientID, nullableString(n.SenderID), string(n.Type), n.Title, n.Message,
		nullableString(n.Data.ProjectID), nullableString(n.Data.ProposalID),
		nullableString(n.Data.VoteID), nullableString(n.Data.SocietyID), metadata,
		n.IsRead, nullableTime(n.ReadAt), string(n.Priority), nullableTime(n.ExpiresAt), n.CreatedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert notification: %w", classify(err))
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return inserted > 0, nil
}

// NotificationFilter narrows ListNotifications.
type NotificationFilter struct {
	RecipientID string
	UnreadOnly  bool
	Type        models.NotificationType
	Limit       int
	Offset      int
}

// ListNotifications returns a page of a recipient's unexpired notifications,
// newest first, and the total matching count.
func (db *DB) ListNotifications(ctx context.Context, f NotificationFilter, now time.Time) ([]models.Notification, int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where := ` WHERE recipient_id = ? AND (expires_at IS NULL OR expires_at > ?)`
	args := []any{f.RecipientID, now.UTC()}
	if f.UnreadOnly {
		where += ` AND is_read = false`
	}
	if f.Type != "" {
		where += ` AND type = ?`
		args = append(args, string(f.Type))
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	pageArgs := append(append([]any{}, args...), limit, max(f.Offset, 0))
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications`+where+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *n)
	}
	return out, total, rows.Err()
}

// GetNotification returns a notification by id.
func (db *DB) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id)
	return scanNotification(row)
}

// CountUnread returns the recipient's unread, unexpired notifications.
func (db *DB) CountUnread(ctx context.Context, recipientID string, now time.Time) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE recipient_id = ? AND is_read = false AND (expires_at IS NULL OR expires_at > ?)`,
		recipientID, now.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread: %w", err)
	}
	return n, nil
}

// MarkNotificationRead marks one of the recipient's notifications read.
// Marking an already-read notification succeeds without changing read_at.
func (db *DB) MarkNotificationRead(ctx context.Context, id, recipientID string, at time.Time) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE notifications SET is_read = true, read_at = COALESCE(read_at, ?)
		WHERE id = ? AND recipient_id = ?`, at.UTC(), id, recipientID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification of a recipient
// read and returns how many changed.
func (db *DB) MarkAllNotificationsRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE notifications SET is_read = true, read_at = ? WHERE recipient_id = ? AND is_read = false`,
		at.UTC(), recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return res.RowsAffected()
}

// DeleteExpiredNotifications removes notifications whose expires_at passed.
func (db *DB) DeleteExpiredNotifications(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM notifications WHERE expires_at IS NOT NULL AND expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}
	return res.RowsAffected()
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var n models.Notification
	var sender, projectID, proposalID, voteID, societyID, metadata sql.NullString
	var readAt, expiresAt sql.NullTime

	err := row.Scan(&n.ID, &n.RecipientID, &sender, &n.Type, &n.Title, &n.Message,
		&projectID, &proposalID, &voteID, &societyID, &metadata,
		&n.IsRead, &readAt, &n.Priority, &expiresAt, &n.CreatedAt)
	if err != nil {
		return nil, classify(err)
	}
	n.SenderID = sender.String
	n.Data.ProjectID = projectID.String
	n.Data.ProposalID = proposalID.String
	n.Data.VoteID = voteID.String
	n.Data.SocietyID = societyID.String
	n.ReadAt = timePtr(readAt)
	n.ExpiresAt = timePtr(expiresAt)
	n.CreatedAt = n.CreatedAt.UTC()

	if metadata.Valid {
		p, err := models.DecodePayload(n.Type, []byte(metadata.String))
		if err != nil {
			return nil, err
		}
		n.Data.Metadata = p
	}
	return &n, nil
}
