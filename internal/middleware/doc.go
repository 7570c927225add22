// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

/*
Package middleware provides HTTP middleware shared by every route.

  - RequestID: request id header plus request and correlation ids in the
    logging context
  - PrometheusMetrics: request count, latency and in-flight gauge, labelled
    by chi route pattern

Both are chi-compatible (func(http.Handler) http.Handler). The API router
installs RequestID globally and PrometheusMetrics on the /api/v1 group:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(middleware.PrometheusMetrics)
	    ...
	})

Authentication and authorization live in internal/auth and internal/authz.
*/
package middleware
