// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/logging"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/metrics"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/outbox"
)

// ErrDeliveryFailed wraps any failure to persist a notification record.
var ErrDeliveryFailed = errors.New("notification delivery failed")

// Store persists notification records. Inserting an id that already exists
// must be a no-op that reports false.
type Store interface {
	CreateNotification(ctx context.Context, n *models.Notification) (bool, error)
}

// Publisher hands a realtime message to the room fan-out.
type Publisher interface {
	Publish(ctx context.Context, msg models.RealtimeMessage) error
}

// Outbox is the durable staging area written before the store.
type Outbox interface {
	Write(ctx context.Context, record any) (string, error)
	Confirm(ctx context.Context, entryID string) error
}

// Dispatcher persists one notification per recipient and mirrors domain
// events to websocket rooms. Failures never propagate to the caller: a
// notification that cannot be stored is logged and, when an outbox is
// configured, replayed later.
type Dispatcher struct {
	store     Store
	publisher Publisher
	outbox    Outbox
	ttl       time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithOutbox stages every record in o before writing it to the store.
func WithOutbox(o Outbox) DispatcherOption {
	return func(d *Dispatcher) { d.outbox = o }
}

// WithTTL stamps ExpiresAt on records. Zero keeps records forever.
func WithTTL(ttl time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.ttl = ttl }
}

// WithDispatcherClock replaces time.Now.
func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a Dispatcher. publisher may be nil when realtime
// delivery is not wired.
func NewDispatcher(store Store, publisher Publisher, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:     store,
		publisher: publisher,
		now:       time.Now,
		logger:    logging.WithComponent("notifications"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify stores a copy of n for each distinct, non-empty recipient and
// pushes it to that recipient's user room.
func (d *Dispatcher) Notify(ctx context.Context, recipients []string, n models.Notification) {
	seen := make(map[string]struct{}, len(recipients))
	for _, r := range recipients {
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}

		rec := d.prepare(n, r)
		if err := d.Deliver(ctx, &rec); err != nil {
			logging.Ctx(ctx).Error().Err(err).
				Str("recipient_id", r).
				Str("type", string(rec.Type)).
				Str("project_id", rec.Data.ProjectID).
				Msg("Failed to deliver notification")
			continue
		}
		d.PushUser(ctx, r, models.EventNotification, &rec)
	}
}

// prepare returns a per-recipient copy with its own id and timestamps.
func (d *Dispatcher) prepare(n models.Notification, recipient string) models.Notification {
	now := d.now().UTC()
	n.ID = uuid.New().String()
	n.RecipientID = recipient
	n.IsRead = false
	n.ReadAt = nil
	n.CreatedAt = now
	if n.Priority == "" {
		n.Priority = models.PriorityMedium
	}
	if d.ttl > 0 {
		exp := now.Add(d.ttl)
		n.ExpiresAt = &exp
	}
	return n
}

// Deliver persists one fully prepared record. With an outbox configured the
// record is staged first and confirmed only after the store accepts it.
func (d *Dispatcher) Deliver(ctx context.Context, n *models.Notification) error {
	var entryID string
	if d.outbox != nil {
		id, err := d.outbox.Write(ctx, n)
		if err != nil {
			metrics.NotificationFailures.WithLabelValues("outbox").Inc()
			d.logger.Warn().Err(err).Str("notification_id", n.ID).Msg("Outbox write failed, writing directly")
		} else {
			entryID = id
		}
	}

	if _, err := d.store.CreateNotification(ctx, n); err != nil {
		metrics.NotificationFailures.WithLabelValues("store").Inc()
		if entryID != "" {
			return fmt.Errorf("%w: %v (staged for retry)", ErrDeliveryFailed, err)
		}
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	metrics.NotificationsPersisted.WithLabelValues(string(n.Type)).Inc()

	if entryID != "" {
		// The retry loop may have replayed and confirmed it already.
		if err := d.outbox.Confirm(ctx, entryID); err != nil && !errors.Is(err, outbox.ErrEntryNotFound) {
			d.logger.Warn().Err(err).Str("entry_id", entryID).Msg("Failed to confirm outbox entry")
		}
	}
	return nil
}

// Replay implements outbox.Handler. A record the store already holds was
// delivered and pushed the first time, so only a fresh insert is pushed.
func (d *Dispatcher) Replay(ctx context.Context, entry *outbox.Entry) error {
	var n models.Notification
	if err := entry.UnmarshalPayload(&n); err != nil {
		return fmt.Errorf("decode outbox entry %s: %w", entry.ID, err)
	}
	inserted, err := d.store.CreateNotification(ctx, &n)
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}
	metrics.NotificationsPersisted.WithLabelValues(string(n.Type)).Inc()
	d.PushUser(ctx, n.RecipientID, models.EventNotification, &n)
	return nil
}

// PushUser sends event to one user's room.
func (d *Dispatcher) PushUser(ctx context.Context, userID string, event models.RealtimeEvent, payload any) {
	d.push(ctx, models.RoomUser, userID, event, payload)
}

// PushSociety sends event to every member connected to a society room.
func (d *Dispatcher) PushSociety(ctx context.Context, societyID string, event models.RealtimeEvent, payload any) {
	d.push(ctx, models.RoomSociety, societyID, event, payload)
}

// PushProject sends event to everyone following a project.
func (d *Dispatcher) PushProject(ctx context.Context, projectID string, event models.RealtimeEvent, payload any) {
	d.push(ctx, models.RoomProject, projectID, event, payload)
}

func (d *Dispatcher) push(ctx context.Context, scope models.RoomScope, target string, event models.RealtimeEvent, payload any) {
	if d.publisher == nil || target == "" {
		return
	}

	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			metrics.NotificationFailures.WithLabelValues("realtime").Inc()
			d.logger.Error().Err(err).Str("event", string(event)).Msg("Failed to encode realtime payload")
			return
		}
		data = raw
	}

	// Each event gets its own id; the caller's correlation id stays in the logs.
	msg := models.RealtimeMessage{
		Scope:         scope,
		Target:        target,
		Event:         event,
		Data:          data,
		CorrelationID: logging.GenerateCorrelationID(),
		Timestamp:     d.now().UTC(),
	}
	if err := d.publisher.Publish(ctx, msg); err != nil {
		metrics.NotificationFailures.WithLabelValues("realtime").Inc()
		logging.Ctx(ctx).Debug().Err(err).
			Str("room", msg.Room()).
			Str("event", string(event)).
			Str("event_id", msg.CorrelationID).
			Msg("Realtime push failed")
		return
	}
	metrics.RealtimePushes.WithLabelValues(string(scope)).Inc()
}
