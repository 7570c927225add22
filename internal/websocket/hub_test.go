// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package websocket

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/logging"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

func TestMain(m *testing.M) {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
	goleak.VerifyTestMain(m)
}

// runHub starts h and returns a stop func that waits for it to exit.
func runHub(t *testing.T, h *Hub) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.RunWithContext(ctx)
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("hub did not stop")
		}
	}
}

func newFakeClient(h *Hub, userID string, buffer int, rooms ...string) *Client {
	return &Client{
		id:           clientIDCounter.Add(1),
		hub:          h,
		send:         make(chan Message, buffer),
		userID:       userID,
		rooms:        make(map[string]struct{}),
		initialRooms: append([]string{models.RoomUser.Room(userID)}, rooms...),
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
	return Message{}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_RoomDelivery(t *testing.T) {
	h := NewHub(16)
	stop := runHub(t, h)
	defer stop()

	member := newFakeClient(h, "u-1", 8, "society:s-1", "project:p-1")
	other := newFakeClient(h, "u-2", 8, "society:s-2")
	h.Register <- member
	h.Register <- other
	waitFor(t, "registration", func() bool { return h.GetClientCount() == 2 })

	ctx := logging.ContextWithCorrelationID(context.Background(), "corr-9")
	if err := h.NotifyProject(ctx, "p-1", models.EventVoteCast, models.VoteCastEvent{ProjectID: "p-1", VotesCast: 3}); err != nil {
		t.Fatalf("NotifyProject() error = %v", err)
	}
	msg := receive(t, member)
	if msg.Type != string(models.EventVoteCast) || msg.Room != "project:p-1" || msg.CorrelationID == "" || msg.CorrelationID == "corr-9" {
		t.Errorf("message = %+v", msg)
	}
	assertNoMessage(t, other)

	if err := h.NotifySociety(context.Background(), "s-2", models.EventDeveloperSelected, nil); err != nil {
		t.Fatalf("NotifySociety() error = %v", err)
	}
	if got := receive(t, other); got.Room != "society:s-2" {
		t.Errorf("room = %q", got.Room)
	}
	assertNoMessage(t, member)
}

func TestHub_UserRoomSpansConnections(t *testing.T) {
	h := NewHub(16)
	stop := runHub(t, h)
	defer stop()

	phone := newFakeClient(h, "u-1", 8)
	laptop := newFakeClient(h, "u-1", 8)
	h.Register <- phone
	h.Register <- laptop
	waitFor(t, "registration", func() bool { return h.RoomSize("user:u-1") == 2 })

	if err := h.NotifyUser(context.Background(), "u-1", models.EventNotification, map[string]string{"id": "n-1"}); err != nil {
		t.Fatalf("NotifyUser() error = %v", err)
	}
	receive(t, phone)
	receive(t, laptop)
}

func TestHub_PublishErrors(t *testing.T) {
	h := NewHub(1)

	tests := []struct {
		name string
		msg  models.RealtimeMessage
		want error
	}{
		{"unknown scope", models.RealtimeMessage{Scope: "team", Target: "x"}, ErrInvalidRoom},
		{"missing target", models.RealtimeMessage{Scope: models.RoomProject}, ErrInvalidRoom},
		{"user offline", models.RealtimeMessage{Scope: models.RoomUser, Target: "nobody"}, ErrRecipientOffline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := h.Publish(context.Background(), tt.msg); !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}

	t.Run("queue full", func(t *testing.T) {
		msg := models.RealtimeMessage{Scope: models.RoomSociety, Target: "s-1", Event: models.EventStatusChanged}
		if err := h.Publish(context.Background(), msg); err != nil {
			t.Fatalf("first Publish() error = %v", err)
		}
		if err := h.Publish(context.Background(), msg); !errors.Is(err, ErrHubBusy) {
			t.Errorf("second Publish() error = %v, want ErrHubBusy", err)
		}
	})
}

func TestHub_JoinLeave(t *testing.T) {
	h := NewHub(16)
	stop := runHub(t, h)
	defer stop()

	c := newFakeClient(h, "u-1", 8)
	if h.Join(c, "project:p-9") {
		t.Error("Join() before registration should fail")
	}
	h.Register <- c
	waitFor(t, "registration", func() bool { return h.GetClientCount() == 1 })

	if !h.Join(c, "project:p-9") {
		t.Fatal("Join() = false")
	}
	if h.RoomSize("project:p-9") != 1 {
		t.Errorf("RoomSize = %d, want 1", h.RoomSize("project:p-9"))
	}
	if h.Leave(c, "user:u-1") {
		t.Error("Leave() of own user room should be refused")
	}
	if !h.Leave(c, "project:p-9") {
		t.Error("Leave() = false")
	}
	if h.Leave(c, "project:p-9") {
		t.Error("second Leave() should report false")
	}
	if h.RoomSize("project:p-9") != 0 {
		t.Error("empty room should be removed")
	}
}

func TestHub_SlowClientDisconnected(t *testing.T) {
	h := NewHub(16)
	stop := runHub(t, h)
	defer stop()

	slow := newFakeClient(h, "u-slow", 1, "project:p-1")
	fast := newFakeClient(h, "u-fast", 8, "project:p-1")
	h.Register <- slow
	h.Register <- fast
	waitFor(t, "registration", func() bool { return h.RoomSize("project:p-1") == 2 })

	for i := 0; i < 2; i++ {
		if err := h.NotifyProject(context.Background(), "p-1", models.EventNewProposal, nil); err != nil {
			t.Fatalf("NotifyProject() error = %v", err)
		}
	}
	waitFor(t, "slow client removal", func() bool { return h.GetClientCount() == 1 })

	receive(t, fast)
	receive(t, fast)
	<-slow.send
	if _, ok := <-slow.send; ok {
		t.Error("slow client channel should be closed")
	}
}

func TestClient_ReplyAfterRemoval(t *testing.T) {
	h := NewHub(16)
	stop := runHub(t, h)
	defer stop()

	c := newFakeClient(h, "u-1", 1, "project:p-1")
	h.Register <- c
	waitFor(t, "registration", func() bool { return h.GetClientCount() == 1 })

	for i := 0; i < 2; i++ {
		if err := h.NotifyProject(context.Background(), "p-1", models.EventNewProposal, nil); err != nil {
			t.Fatalf("NotifyProject() error = %v", err)
		}
	}
	waitFor(t, "slow client removal", func() bool { return h.GetClientCount() == 0 })

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("reply after removal panicked: %v", r)
		}
	}()
	c.handle(clientRequest{Type: MessageTypePing})
	c.handle(clientRequest{Type: "subscribe"})
	c.reply(MessageTypeError, "", map[string]string{"code": "RATE_LIMITED"})
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	h := NewHub(4)
	stop := runHub(t, h)

	c := newFakeClient(h, "u-1", 4, "society:s-1")
	h.Register <- c
	waitFor(t, "registration", func() bool { return h.GetClientCount() == 1 })

	stop()

	if _, ok := <-c.send; ok {
		t.Error("send channel should be closed on shutdown")
	}
	if h.GetClientCount() != 0 || h.RoomSize("society:s-1") != 0 {
		t.Error("hub should be empty after shutdown")
	}
}

func TestHub_UnregisterTwice(t *testing.T) {
	h := NewHub(4)
	stop := runHub(t, h)
	defer stop()

	c := newFakeClient(h, "u-1", 4)
	h.Register <- c
	waitFor(t, "registration", func() bool { return h.GetClientCount() == 1 })
	h.Unregister <- c
	h.Unregister <- c
	waitFor(t, "unregistration", func() bool { return h.GetClientCount() == 0 })
}
