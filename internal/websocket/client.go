// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package websocket

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/logging"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/metrics"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	joinTimeout    = 5 * time.Second
)

// clientIDCounter gives clients a stable delivery order.
var clientIDCounter atomic.Uint64

// JoinAuthorizer decides whether a user may subscribe to an extra room.
type JoinAuthorizer interface {
	CanJoin(ctx context.Context, userID, role, room string) (bool, error)
}

// clientRequest is what clients send.
type clientRequest struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	id     uint64
	hub    *Hub
	conn   *websocket.Conn
	send   chan Message
	userID string
	role   string

	// rooms is guarded by hub.mu.
	rooms        map[string]struct{}
	initialRooms []string

	limiter    *rate.Limiter
	authorizer JoinAuthorizer
}

// ClientOptions configures a new client.
type ClientOptions struct {
	UserID       string
	Role         string
	Rooms        []string
	SendBuffer   int
	MessageRate  float64
	MessageBurst int
	Authorizer   JoinAuthorizer
}

// NewClient creates a client for an authenticated connection. Rooms are
// joined when the hub processes the registration.
func NewClient(hub *Hub, conn *websocket.Conn, opts ClientOptions) *Client {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.MessageRate <= 0 {
		opts.MessageRate = 5
	}
	if opts.MessageBurst <= 0 {
		opts.MessageBurst = 10
	}
	return &Client{
		id:           clientIDCounter.Add(1),
		hub:          hub,
		conn:         conn,
		send:         make(chan Message, opts.SendBuffer),
		userID:       opts.UserID,
		role:         opts.Role,
		rooms:        make(map[string]struct{}),
		initialRooms: opts.Rooms,
		limiter:      rate.NewLimiter(rate.Limit(opts.MessageRate), opts.MessageBurst),
		authorizer:   opts.Authorizer,
	}
}

// ID returns the client's identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// UserID returns the authenticated user.
func (c *Client) UserID() string {
	return c.userID
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var req clientRequest
		if err := c.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				metrics.WSErrors.WithLabelValues("read").Inc()
				logging.Warn().Err(err).Str("user_id", c.userID).Msg("unexpected websocket close error")
			}
			return
		}
		metrics.WSMessagesReceived.Inc()

		if !c.limiter.Allow() {
			metrics.WSErrors.WithLabelValues("rate_limited").Inc()
			c.reply(MessageTypeError, req.Room, map[string]string{"code": "RATE_LIMITED", "message": "too many messages"})
			continue
		}
		c.handle(req)
	}
}

func (c *Client) handle(req clientRequest) {
	switch req.Type {
	case MessageTypePing:
		c.reply(MessageTypePong, "", nil)
	case MessageTypeJoin:
		c.join(req.Room)
	case MessageTypeLeave:
		if c.hub.Leave(c, req.Room) {
			c.reply(MessageTypeLeft, req.Room, nil)
		} else {
			c.reply(MessageTypeError, req.Room, map[string]string{"code": "NOT_JOINED", "message": "not a member of this room"})
		}
	default:
		c.reply(MessageTypeError, "", map[string]string{"code": "UNKNOWN_TYPE", "message": "unsupported message type"})
	}
}

// join handles an on-demand subscription. Only project rooms can be joined
// this way; user and society rooms follow from identity and membership.
func (c *Client) join(room string) {
	if !strings.HasPrefix(room, string(models.RoomProject)+":") || len(room) == len(models.RoomProject)+1 {
		c.reply(MessageTypeError, room, map[string]string{"code": "INVALID_ROOM", "message": "only project rooms can be joined"})
		return
	}
	if c.authorizer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
		ok, err := c.authorizer.CanJoin(ctx, c.userID, c.role, room)
		cancel()
		if err != nil {
			logging.Warn().Err(err).Str("user_id", c.userID).Str("room", room).Msg("room join check failed")
		}
		if err != nil || !ok {
			c.reply(MessageTypeError, room, map[string]string{"code": "FORBIDDEN", "message": "cannot join this room"})
			return
		}
	}
	if c.hub.Join(c, room) {
		c.reply(MessageTypeJoined, room, nil)
	}
}

// reply queues a control message without blocking the read loop.
//
// The hub closes send under its write lock when it drops a client, so the
// send happens under the read lock and only while c is still registered.
func (c *Client) reply(msgType, room string, data any) {
	msg := Message{Type: msgType, Room: room, Timestamp: time.Now().UTC()}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			msg.Data = raw
		}
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
