// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/logging"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/metrics"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/websocket"
)

// ErrSubscriptionClosed is returned by Run when the transport stops
// delivering.
var ErrSubscriptionClosed = errors.New("relay subscription closed")

const breakerName = "realtime-relay"

// LocalSink delivers a message to this instance's live connections.
type LocalSink interface {
	Publish(ctx context.Context, msg models.RealtimeMessage) error
}

// Config configures a Relay.
type Config struct {
	Topic              string
	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration

	// InstanceID is stamped on outgoing messages. Generated when empty.
	InstanceID string
}

// Relay fans realtime messages out across instances. Publish sends to the
// bus; Run receives from it and hands each message to the local hub.
// While the breaker is open, messages go straight to the local hub so the
// publishing instance's own users still see them.
type Relay struct {
	transport *Transport
	sink      LocalSink
	topic     string
	origin    string
	breaker   *gobreaker.CircuitBreaker[any]
	logger    zerolog.Logger
	running   atomic.Bool
}

// NewRelay creates a relay over t delivering into sink.
func NewRelay(t *Transport, sink LocalSink, cfg Config) *Relay {
	if cfg.Topic == "" {
		cfg.Topic = "milkat.realtime"
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	logger := logging.WithComponent("realtime-relay")
	maxFailures := cfg.BreakerMaxFailures
	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerTransition(name, from.String(), to.String())
			logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("relay circuit breaker state changed")
		},
	})
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	return &Relay{
		transport: t,
		sink:      sink,
		topic:     cfg.Topic,
		origin:    cfg.InstanceID,
		breaker:   breaker,
		logger:    logger,
	}
}

// InstanceID returns the origin stamped on this relay's messages.
func (r *Relay) InstanceID() string {
	return r.origin
}

// BreakerState returns the publish breaker state name.
func (r *Relay) BreakerState() string {
	return r.breaker.State().String()
}

// IsRunning reports whether Run is consuming the subscription.
func (r *Relay) IsRunning() bool {
	return r.running.Load()
}

// Publish sends msg to every instance. It implements the notification
// Publisher. If the bus is unavailable the message is delivered locally
// and the local result is returned.
func (r *Relay) Publish(ctx context.Context, msg models.RealtimeMessage) error {
	if !msg.Scope.Valid() || msg.Target == "" {
		return fmt.Errorf("%w: %q", websocket.ErrInvalidRoom, msg.Room())
	}
	msg.Origin = r.origin
	if msg.CorrelationID == "" {
		msg.CorrelationID = logging.GenerateCorrelationID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode realtime message: %w", err)
	}
	wm := message.NewMessage(watermill.NewUUID(), payload)
	wm.Metadata.Set("room", msg.Room())
	wm.Metadata.Set("event", string(msg.Event))
	if msg.CorrelationID != "" {
		wm.Metadata.Set("correlation_id", msg.CorrelationID)
	}

	_, err = r.breaker.Execute(func() (any, error) {
		return nil, r.transport.Publisher.Publish(r.topic, wm)
	})
	if err == nil {
		return nil
	}

	r.logger.Warn().Err(err).Str("room", msg.Room()).Str("event", string(msg.Event)).Msg("relay publish failed, delivering locally")
	return r.sink.Publish(ctx, msg)
}

// Run consumes the topic until ctx is cancelled. Messages are acked after
// local delivery whether or not anyone was connected.
func (r *Relay) Run(ctx context.Context) error {
	messages, err := r.transport.Subscriber.Subscribe(ctx, r.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", r.topic, err)
	}

	r.running.Store(true)
	defer r.running.Store(false)
	r.logger.Info().Str("topic", r.topic).Str("instance_id", r.origin).Msg("realtime relay started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrSubscriptionClosed
			}
			r.handle(ctx, m)
		}
	}
}

func (r *Relay) handle(ctx context.Context, m *message.Message) {
	defer m.Ack()

	var msg models.RealtimeMessage
	if err := json.Unmarshal(m.Payload, &msg); err != nil {
		r.logger.Warn().Err(err).Str("message_uuid", m.UUID).Msg("dropping malformed relay message")
		return
	}

	if msg.CorrelationID != "" {
		ctx = logging.ContextWithCorrelationID(ctx, msg.CorrelationID)
	}
	err := r.sink.Publish(ctx, msg)
	switch {
	case err == nil:
	case errors.Is(err, websocket.ErrRecipientOffline):
		r.logger.Trace().Str("room", msg.Room()).Msg("no local connection for relay message")
	default:
		metrics.NotificationFailures.WithLabelValues("realtime").Inc()
		r.logger.Warn().Err(err).Str("room", msg.Room()).Str("origin", msg.Origin).Msg("local delivery of relay message failed")
	}
}
