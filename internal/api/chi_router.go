// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/auth"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/authz"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/middleware"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	authn         *auth.Middleware
	authz         *authz.Middleware
	websocket     http.Handler
}

// NewRouter creates a router. ws may be nil, in which case /api/v1/ws is
// not mounted.
func NewRouter(handler *Handler, chiMW *ChiMiddleware, authn *auth.Middleware, authzMW *authz.Middleware, ws http.Handler) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: chiMW,
		authn:         authn,
		authz:         authzMW,
		websocket:     ws,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight

	// ========================
	// Health Endpoints
	// ========================
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit("health"))
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// The websocket handler validates its own token and origin.
	if router.websocket != nil {
		r.With(router.chiMiddleware.RateLimit("ws")).Handle("/api/v1/ws", router.websocket)
	}

	// ========================
	// Core API Endpoints
	// ========================
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit("api"))
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.authn.Authenticate)
		r.Use(router.authz.AuthorizeRequest)

		r.Route("/societies/{societyID}/members/{userID}", func(r chi.Router) {
			r.Put("/", router.handler.UpsertMember)
			r.Delete("/", router.handler.RemoveMember)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", router.handler.ListProjects)
			r.Post("/", router.handler.CreateProject)

			r.Route("/{projectID}", router.projectRoutes)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", router.handler.ListNotifications)
			r.Get("/unread-count", router.handler.UnreadCount)
			r.Put("/read-all", router.handler.MarkAllNotificationsRead)
			r.Put("/{notificationID}/read", router.handler.MarkNotificationRead)
		})
	})

	// ========================
	// Observability
	// ========================
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// projectRoutes registers everything under /api/v1/projects/{projectID}.
func (router *Router) projectRoutes(r chi.Router) {
	h := router.handler

	r.Get("/", h.GetProject)

	// Lifecycle
	r.Post("/tender", h.OpenTender)
	r.Post("/construction", h.StartConstruction)
	r.Post("/complete", h.CompleteProject)
	r.Post("/cancel", h.CancelProject)
	r.Put("/progress", h.UpdateProgress)
	r.Post("/phases/{phase}/complete", h.CompletePhase)

	// Proposals
	r.Get("/proposals", h.ListProposals)
	r.Post("/proposals", h.SubmitProposal)
	r.Post("/proposals/{proposalID}/shortlist", h.ShortlistProposal)
	r.Post("/developer", h.SelectDeveloper)

	// Voting
	r.Post("/voting/open", h.OpenVoting)
	r.Post("/voting/close", h.CloseVoting)
	r.Post("/voting/check", h.CheckVoting)
	r.Post("/votes", h.CastVote)
	r.Get("/votes/tally", h.GetTally)

	// Activity
	r.Post("/updates", h.PostUpdate)
	r.Post("/queries", h.RaiseQuery)
	r.Post("/queries/{queryID}/response", h.RespondToQuery)
	r.Post("/documents", h.AddDocument)
}
