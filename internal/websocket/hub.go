// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package websocket

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/logging"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/metrics"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

var (
	// ErrRecipientOffline is returned when a user-scoped push finds no live
	// connection for that user. The durable notification record still
	// reaches them later.
	ErrRecipientOffline = errors.New("recipient has no live connection")

	// ErrHubBusy is returned when the delivery queue is full.
	ErrHubBusy = errors.New("websocket hub delivery queue full")

	// ErrInvalidRoom is returned for messages without a known scope or target.
	ErrInvalidRoom = errors.New("invalid room")
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Control message types exchanged with clients. Domain pushes use the
// realtime event name as their type.
const (
	MessageTypePing   = "ping"
	MessageTypePong   = "pong"
	MessageTypeJoin   = "join"
	MessageTypeLeave  = "leave"
	MessageTypeJoined = "joined"
	MessageTypeLeft   = "left"
	MessageTypeError  = "error"
)

// Message is the envelope written to clients.
type Message struct {
	Type          string          `json:"type"`
	Room          string          `json:"room,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Hub tracks live clients and the rooms they belong to.
type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]struct{}
	deliver    chan models.RealtimeMessage
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a hub with a delivery queue of queueSize messages.
func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]struct{}),
		deliver:    make(chan models.RealtimeMessage, queueSize),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// RunWithContext processes registrations and deliveries until ctx is
// cancelled, then closes every client and returns ctx.Err().
//
// Lifecycle events are drained before deliveries so a client that has just
// registered receives messages published after its registration.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case msg := <-h.deliver:
			h.deliverToRoom(msg)
		}
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	for _, room := range c.initialRooms {
		h.joinLocked(c, room)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	logging.Info().
		Str("user_id", c.userID).
		Int("rooms", len(c.initialRooms)).
		Int("total_clients", total).
		Msg("websocket client connected")
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		h.removeLocked(c)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		logging.Info().Str("user_id", c.userID).Int("total_clients", total).Msg("websocket client disconnected")
	}
}

// removeLocked drops c from every room and closes its send channel.
func (h *Hub) removeLocked(c *Client) {
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	delete(h.clients, c)
	close(c.send)
	metrics.WSConnections.Dec()
}

func (h *Hub) joinLocked(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leaveLocked(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// Join subscribes a registered client to room.
func (h *Hub) Join(c *Client, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return false
	}
	h.joinLocked(c, room)
	return true
}

// Leave unsubscribes c from room. A client cannot leave its own user room.
func (h *Hub) Leave(c *Client, room string) bool {
	if room == models.RoomUser.Room(c.userID) {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, in := c.rooms[room]; !in {
		return false
	}
	h.leaveLocked(c, room)
	return true
}

// Publish queues msg for delivery to its room. It implements the
// notification Publisher.
func (h *Hub) Publish(ctx context.Context, msg models.RealtimeMessage) error {
	if !msg.Scope.Valid() || msg.Target == "" {
		return fmt.Errorf("%w: %q", ErrInvalidRoom, msg.Room())
	}
	if msg.Scope == models.RoomUser && h.RoomSize(msg.Room()) == 0 {
		return ErrRecipientOffline
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if msg.CorrelationID == "" {
		msg.CorrelationID = logging.GenerateCorrelationID()
	}

	select {
	case h.deliver <- msg:
		return nil
	default:
		metrics.WSErrors.WithLabelValues("queue_full").Inc()
		return ErrHubBusy
	}
}

// NotifyUser pushes event to userID's live connections only.
func (h *Hub) NotifyUser(ctx context.Context, userID string, event models.RealtimeEvent, payload any) error {
	return h.publish(ctx, models.RoomUser, userID, event, payload)
}

// NotifySociety pushes event to every live connection in the society room.
func (h *Hub) NotifySociety(ctx context.Context, societyID string, event models.RealtimeEvent, payload any) error {
	return h.publish(ctx, models.RoomSociety, societyID, event, payload)
}

// NotifyProject pushes event to every live connection in the project room.
func (h *Hub) NotifyProject(ctx context.Context, projectID string, event models.RealtimeEvent, payload any) error {
	return h.publish(ctx, models.RoomProject, projectID, event, payload)
}

func (h *Hub) publish(ctx context.Context, scope models.RoomScope, target string, event models.RealtimeEvent, payload any) error {
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", event, err)
		}
		data = raw
	}
	return h.Publish(ctx, models.RealtimeMessage{
		Scope:         scope,
		Target:        target,
		Event:         event,
		Data:          data,
		CorrelationID: logging.GenerateCorrelationID(),
		Timestamp:     time.Now().UTC(),
	})
}

// deliverToRoom sends to every client in the room in id order. Clients
// whose buffers are full are disconnected.
func (h *Hub) deliverToRoom(msg models.RealtimeMessage) {
	room := msg.Room()
	out := Message{
		Type:          string(msg.Event),
		Room:          room,
		Data:          msg.Data,
		CorrelationID: msg.CorrelationID,
		Timestamp:     msg.Timestamp,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.rooms[room]
	if len(members) == 0 {
		return
	}
	clients := make([]*Client, 0, len(members))
	for c := range members {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	var slow []*Client
	for _, c := range clients {
		select {
		case c.send <- out:
			metrics.WSMessagesSent.Inc()
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		metrics.WSErrors.WithLabelValues("slow_client").Inc()
		logging.Warn().Str("user_id", c.userID).Str("room", room).Msg("websocket client too slow, disconnecting")
		h.removeLocked(c)
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	for _, c := range clients {
		h.removeLocked(c)
	}
	h.mu.Unlock()

	reason := ShutdownReasonContextCanceled
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = ShutdownReasonContextDeadline
	}
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(reason)).
		Int("clients_closed", len(clients)).
		Msg("websocket hub stopped")
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of clients subscribed to room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
