// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/auth"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/database"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/redevelopment"
)

// ReadinessCheck reports whether one dependency can serve traffic.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files by resource:
//   - handlers_members.go: membership directory writes
//   - handlers_projects.go: project lifecycle
//   - handlers_proposals.go: proposals, shortlisting and developer selection
//   - handlers_voting.go: voting rounds, votes and tallies
//   - handlers_activity.go: updates, queries and documents
//   - handlers_notifications.go: notification inbox
//   - handlers_health.go: liveness and readiness
type Handler struct {
	service   *redevelopment.Service
	db        *database.DB
	readiness []ReadinessCheck
	startTime time.Time
	now       func() time.Time
}

// NewHandler creates the API handler. The database answers membership and
// inbox requests directly; everything touching the workflow goes through
// service.
func NewHandler(service *redevelopment.Service, db *database.DB) *Handler {
	return &Handler{
		service:   service,
		db:        db,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// AddReadinessCheck registers a dependency probed by /health/ready. The
// database is always probed.
func (h *Handler) AddReadinessCheck(name string, check func(ctx context.Context) error) {
	h.readiness = append(h.readiness, ReadinessCheck{Name: name, Check: check})
}

// caller returns the authenticated claims. Routes are mounted behind
// auth.Middleware, so a missing claim is a wiring error.
func caller(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required", nil)
		return nil, false
	}
	return claims, true
}

// requireProjectOwner loads the project named in the URL and checks the
// caller owns it. Admins pass for every project.
func (h *Handler) requireProjectOwner(w http.ResponseWriter, r *http.Request) (*models.RedevelopmentProject, *auth.Claims, bool) {
	claims, ok := caller(w, r)
	if !ok {
		return nil, nil, false
	}
	p, err := h.service.GetProject(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		respondServiceError(w, r, err)
		return nil, nil, false
	}
	if claims.Role != auth.RoleAdmin && claims.UserID() != p.OwnerID {
		respondServiceError(w, r, errNotProjectOwner)
		return nil, nil, false
	}
	return p, claims, true
}

// requireSocietyManager checks the caller may edit the membership of
// societyID: an admin, or an active secretary or committee member of that
// society. Active membership decides who may vote, so a role claim alone is
// not enough.
func (h *Handler) requireSocietyManager(w http.ResponseWriter, r *http.Request, societyID string) (*auth.Claims, bool) {
	claims, ok := caller(w, r)
	if !ok {
		return nil, false
	}
	if claims.Role == auth.RoleAdmin {
		return claims, true
	}
	m, err := h.db.GetMember(r.Context(), societyID, claims.UserID())
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		respondServiceError(w, r, err)
		return nil, false
	}
	if err != nil || !m.CanManageMembers() {
		respondServiceError(w, r, errNotSocietyManager)
		return nil, false
	}
	return claims, true
}
