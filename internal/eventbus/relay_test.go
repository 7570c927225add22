// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package eventbus

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/logging"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/metrics"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/websocket"
)

func TestMain(m *testing.M) {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
	os.Exit(m.Run())
}

type captureSink struct {
	mu   sync.Mutex
	msgs []models.RealtimeMessage
	err  error
}

func (s *captureSink) Publish(_ context.Context, msg models.RealtimeMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return s.err
}

func (s *captureSink) received() []models.RealtimeMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.RealtimeMessage(nil), s.msgs...)
}

type failingPublisher struct{}

func (failingPublisher) Publish(string, ...*message.Message) error { return errors.New("broker unreachable") }
func (failingPublisher) Close() error                              { return nil }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// startRelay runs r until the returned stop func is called.
func startRelay(t *testing.T, r *Relay) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	waitFor(t, "relay subscription", r.IsRunning)
	return func() {
		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Run() error = %v, want context.Canceled", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("relay did not stop")
		}
	}
}

func projectMessage(id string) models.RealtimeMessage {
	return models.RealtimeMessage{
		Scope:  models.RoomProject,
		Target: id,
		Event:  models.EventVoteCast,
		Data:   []byte(`{"project_id":"` + id + `","votes_cast":1}`),
	}
}

func TestRelay_LocalRoundTrip(t *testing.T) {
	transport := NewLocalTransport(NewLogger("test-bus"))
	defer transport.Close()

	sink := &captureSink{}
	relay := NewRelay(transport, sink, Config{Topic: "test.realtime", InstanceID: "instance-a"})
	stop := startRelay(t, relay)
	defer stop()

	ctx := logging.ContextWithCorrelationID(context.Background(), "corr-local")
	if err := relay.Publish(ctx, projectMessage("p-1")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	waitFor(t, "delivery", func() bool { return len(sink.received()) == 1 })
	got := sink.received()[0]
	if got.Room() != "project:p-1" || got.Origin != "instance-a" || got.CorrelationID == "" {
		t.Errorf("delivered = %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp should be stamped")
	}
	if !strings.Contains(string(got.Data), `"votes_cast":1`) {
		t.Errorf("data = %s", got.Data)
	}
}

func TestRelay_InvalidRoom(t *testing.T) {
	transport := NewLocalTransport(watermill.NopLogger{})
	defer transport.Close()

	sink := &captureSink{}
	relay := NewRelay(transport, sink, Config{})
	err := relay.Publish(context.Background(), models.RealtimeMessage{Scope: models.RoomProject})
	if !errors.Is(err, websocket.ErrInvalidRoom) {
		t.Errorf("Publish() error = %v, want ErrInvalidRoom", err)
	}
	if len(sink.received()) != 0 {
		t.Error("invalid message should not reach the sink")
	}
}

func TestRelay_BreakerFallsBackToLocal(t *testing.T) {
	transport := &Transport{Publisher: failingPublisher{}}
	sink := &captureSink{}
	relay := NewRelay(transport, sink, Config{BreakerMaxFailures: 2, BreakerTimeout: time.Minute})

	transitions := testutil.ToFloat64(metrics.CircuitBreakerTransitions.WithLabelValues(breakerName, "closed", "open"))

	for i := 0; i < 3; i++ {
		if err := relay.Publish(context.Background(), projectMessage("p-1")); err != nil {
			t.Fatalf("Publish() #%d error = %v", i, err)
		}
	}

	if got := len(sink.received()); got != 3 {
		t.Errorf("local deliveries = %d, want 3", got)
	}
	if relay.BreakerState() != "open" {
		t.Errorf("breaker state = %s, want open", relay.BreakerState())
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues(breakerName)); got != 2 {
		t.Errorf("breaker gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerTransitions.WithLabelValues(breakerName, "closed", "open")) - transitions; got != 1 {
		t.Errorf("closed->open transitions = %v, want 1", got)
	}
}

func TestRelay_FallbackReturnsLocalError(t *testing.T) {
	transport := &Transport{Publisher: failingPublisher{}}
	sink := &captureSink{err: websocket.ErrRecipientOffline}
	relay := NewRelay(transport, sink, Config{})

	msg := models.RealtimeMessage{Scope: models.RoomUser, Target: "u-1", Event: models.EventNotification}
	if err := relay.Publish(context.Background(), msg); !errors.Is(err, websocket.ErrRecipientOffline) {
		t.Errorf("Publish() error = %v, want ErrRecipientOffline", err)
	}
}

func TestRelay_DeliveryFailures(t *testing.T) {
	tests := []struct {
		name      string
		sinkErr   error
		wantDelta float64
	}{
		{"recipient offline is quiet", websocket.ErrRecipientOffline, 0},
		{"hub busy is counted", websocket.ErrHubBusy, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := NewLocalTransport(watermill.NopLogger{})
			defer transport.Close()

			sink := &captureSink{err: tt.sinkErr}
			relay := NewRelay(transport, sink, Config{Topic: "test.failures"})
			stop := startRelay(t, relay)
			defer stop()

			before := testutil.ToFloat64(metrics.NotificationFailures.WithLabelValues("realtime"))
			if err := relay.Publish(context.Background(), models.RealtimeMessage{Scope: models.RoomUser, Target: "u-1", Event: models.EventNotification}); err != nil {
				t.Fatalf("Publish() error = %v", err)
			}
			waitFor(t, "delivery", func() bool { return len(sink.received()) == 1 })
			// The counter is bumped after the sink returns.
			time.Sleep(20 * time.Millisecond)

			if got := testutil.ToFloat64(metrics.NotificationFailures.WithLabelValues("realtime")) - before; got != tt.wantDelta {
				t.Errorf("failure delta = %v, want %v", got, tt.wantDelta)
			}
		})
	}
}

func TestRelay_MalformedMessageAcked(t *testing.T) {
	transport := NewLocalTransport(watermill.NopLogger{})
	defer transport.Close()

	sink := &captureSink{}
	relay := NewRelay(transport, sink, Config{Topic: "test.malformed"})
	stop := startRelay(t, relay)
	defer stop()

	if err := transport.Publisher.Publish("test.malformed", message.NewMessage(watermill.NewUUID(), []byte("{not json"))); err != nil {
		t.Fatalf("raw Publish() error = %v", err)
	}
	if err := relay.Publish(context.Background(), projectMessage("p-2")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	waitFor(t, "valid message after malformed one", func() bool { return len(sink.received()) == 1 })
	if got := sink.received()[0].Target; got != "p-2" {
		t.Errorf("target = %q, want p-2", got)
	}
}

func TestRelay_NATSFanOut(t *testing.T) {
	srv, err := StartEmbeddedServer("127.0.0.1", -1)
	if err != nil {
		t.Fatalf("StartEmbeddedServer() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()
	if !srv.IsRunning() {
		t.Fatal("embedded server not running")
	}

	newInstance := func(id string) (*Relay, *captureSink, func()) {
		transport, err := NewNATSTransport(srv.ClientURL(), watermill.NopLogger{})
		if err != nil {
			t.Fatalf("NewNATSTransport() error = %v", err)
		}
		sink := &captureSink{}
		relay := NewRelay(transport, sink, Config{Topic: "test.fanout", InstanceID: id})
		stop := startRelay(t, relay)
		return relay, sink, func() {
			stop()
			_ = transport.Close()
		}
	}

	a, sinkA, stopA := newInstance("instance-a")
	defer stopA()
	_, sinkB, stopB := newInstance("instance-b")
	defer stopB()

	// Core NATS subscriptions are registered asynchronously; publish until
	// the other instance sees one.
	waitFor(t, "cross-instance delivery", func() bool {
		if err := a.Publish(context.Background(), projectMessage("p-7")); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		time.Sleep(50 * time.Millisecond)
		return len(sinkB.received()) > 0 && len(sinkA.received()) > 0
	})

	got := sinkB.received()[0]
	if got.Origin != "instance-a" || got.Room() != "project:p-7" {
		t.Errorf("instance-b received %+v", got)
	}
}

func TestZerologAdapter(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: "info", Format: "json", Output: &buf})
	defer logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})

	logger := NewLogger("bus-test").With(watermill.LogFields{"topic": "milkat.realtime"})
	logger.Error("publish failed", errors.New("boom"), watermill.LogFields{"attempt": 2})
	logger.Debug("suppressed at info", nil)

	out := buf.String()
	for _, want := range []string{`"component":"bus-test"`, `"topic":"milkat.realtime"`, `"attempt":2`, `"error":"boom"`, "publish failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
	if strings.Contains(out, "suppressed at info") {
		t.Error("debug message should not be written at info level")
	}
}
