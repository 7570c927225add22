// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package websocket

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/auth"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/database"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/logging"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/metrics"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

const resolveTimeout = 5 * time.Second

// RoomResolver lists the rooms a user joins automatically on connect.
type RoomResolver interface {
	ListUserSocieties(ctx context.Context, userID string) ([]string, error)
	ListUserProjectIDs(ctx context.Context, userID string) ([]string, error)
}

// ProjectDirectory answers project room membership questions.
type ProjectDirectory interface {
	GetProject(ctx context.Context, id string) (*models.RedevelopmentProject, error)
	IsActiveMember(ctx context.Context, societyID, userID string) (bool, error)
	ListProposals(ctx context.Context, projectID string) ([]models.DeveloperProposal, error)
}

// HandlerConfig holds per-connection limits.
type HandlerConfig struct {
	AllowedOrigins []string
	SendBuffer     int
	MessageRate    float64
	MessageBurst   int
}

// Handler authenticates the handshake and attaches the connection to the hub.
type Handler struct {
	hub        *Hub
	tokens     auth.TokenValidator
	resolver   RoomResolver
	authorizer JoinAuthorizer
	cfg        HandlerConfig
	upgrader   websocket.Upgrader
}

// NewHandler creates the realtime handshake handler. resolver and
// authorizer may be nil, in which case clients join only their user room and
// any project room join is refused.
func NewHandler(hub *Hub, tokens auth.TokenValidator, resolver RoomResolver, authorizer JoinAuthorizer, cfg HandlerConfig) *Handler {
	h := &Handler{
		hub:        hub,
		tokens:     tokens,
		resolver:   resolver,
		authorizer: authorizer,
		cfg:        cfg,
	}
	if h.authorizer == nil {
		h.authorizer = denyAll{}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return h
}

// ServeHTTP rejects unauthenticated handshakes with 401 before upgrading.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := auth.TokenFromRequest(r)
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}
	claims, err := h.tokens.ValidateToken(raw)
	if err != nil {
		metrics.WSErrors.WithLabelValues("auth").Inc()
		logging.Ctx(r.Context()).Debug().Err(err).Msg("websocket handshake rejected")
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
		return
	}

	rooms, err := h.resolveRooms(r.Context(), claims.UserID())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("user_id", claims.UserID()).Msg("failed to resolve websocket rooms")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to resolve subscriptions")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.WSErrors.WithLabelValues("upgrade").Inc()
		logging.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := NewClient(h.hub, conn, ClientOptions{
		UserID:       claims.UserID(),
		Role:         claims.Role,
		Rooms:        rooms,
		SendBuffer:   h.cfg.SendBuffer,
		MessageRate:  h.cfg.MessageRate,
		MessageBurst: h.cfg.MessageBurst,
		Authorizer:   h.authorizer,
	})
	h.hub.Register <- client
	client.Start()
}

// resolveRooms returns user:<id>, then society and project rooms.
func (h *Handler) resolveRooms(ctx context.Context, userID string) ([]string, error) {
	rooms := []string{models.RoomUser.Room(userID)}
	if h.resolver == nil {
		return rooms, nil
	}

	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	societies, err := h.resolver.ListUserSocieties(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, id := range societies {
		rooms = append(rooms, models.RoomSociety.Room(id))
	}
	projects, err := h.resolver.ListUserProjectIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, id := range projects {
		rooms = append(rooms, models.RoomProject.Room(id))
	}
	return rooms, nil
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	logging.Warn().Str("origin", strings.ReplaceAll(origin, "\n", "")).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="milkat"`)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "error",
		"error":  map[string]string{"code": code, "message": msg},
	})
}

type denyAll struct{}

func (denyAll) CanJoin(context.Context, string, string, string) (bool, error) { return false, nil }

// ProjectRoomAuthorizer allows a project room join for admins, the project
// owner, active members of the project's society, and developers with a
// proposal on the project.
type ProjectRoomAuthorizer struct {
	dir ProjectDirectory
}

// NewProjectRoomAuthorizer creates an authorizer backed by dir.
func NewProjectRoomAuthorizer(dir ProjectDirectory) *ProjectRoomAuthorizer {
	return &ProjectRoomAuthorizer{dir: dir}
}

// CanJoin implements JoinAuthorizer.
func (a *ProjectRoomAuthorizer) CanJoin(ctx context.Context, userID, role, room string) (bool, error) {
	projectID, ok := strings.CutPrefix(room, string(models.RoomProject)+":")
	if !ok || projectID == "" {
		return false, nil
	}
	if role == auth.RoleAdmin {
		return true, nil
	}

	p, err := a.dir.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if p.OwnerID == userID {
		return true, nil
	}

	if role == auth.RoleDeveloper {
		proposals, err := a.dir.ListProposals(ctx, projectID)
		if err != nil {
			return false, err
		}
		for i := range proposals {
			if proposals[i].DeveloperID == userID {
				return true, nil
			}
		}
		return false, nil
	}
	return a.dir.IsActiveMember(ctx, p.SocietyID, userID)
}
