// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

/*
Package api provides the HTTP REST API layer for Milkat.

It exposes the redevelopment workflow to society owners, members and
developers: membership writes, the project lifecycle, developer proposals,
voting rounds, project activity and the notification inbox.

Key Components:

  - Router: chi route table and middleware stack
  - Handler: request handlers, split by resource across handlers_*.go
  - Response formatting: models.APIResponse envelopes with request ids
  - Error mapping: workflow errors to HTTP status codes and error codes
  - Rate limiting: httprate per route group (health, ws, api)

Middleware order for /api/v1:

	RequestID -> RealIP -> Recoverer -> CORS ->
	RateLimit -> APISecurityHeaders -> PrometheusMetrics ->
	Authenticate -> AuthorizeRequest -> handler

Authorization is two layered. Casbin decides whether a role may call a
route at all; handlers that mutate a project additionally require the
caller to own it (admins pass). Membership-dependent rules such as vote
eligibility are enforced by the redevelopment service and surface as
403 NOT_ELIGIBLE.

Error Mapping:

	invalid state transition  409 INVALID_STATE_TRANSITION
	developer not selectable  422 INVALID_SELECTION
	duplicate vote            409 CONFLICT
	duplicate proposal        409 DUPLICATE_PROPOSAL
	not an active member      403 NOT_ELIGIBLE
	unknown project/proposal  404 NOT_FOUND
	validation failure        400 VALIDATION_ERROR

Usage Example:

	handler := api.NewHandler(service, db)
	router := api.NewRouter(
	    handler,
	    api.NewChiMiddlewareFromConfig(&cfg.Security),
	    auth.NewMiddleware(jwtManager),
	    authz.NewMiddleware(enforcer),
	    wsHandler,
	)
	srv := &http.Server{Addr: ":8080", Handler: router.SetupChi()}

Thread Safety:

Handler and Router are safe for concurrent use once constructed.
AddReadinessCheck must be called before the server starts.
*/
package api
