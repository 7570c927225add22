// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package authz

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/auth"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/logging"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/metrics"
)

// Decider is satisfied by *Enforcer.
type Decider interface {
	Enforce(role, path, action string) (bool, error)
}

// Middleware enforces route permissions for authenticated requests.
type Middleware struct {
	decider Decider
}

// NewMiddleware creates authorization middleware.
func NewMiddleware(d Decider) *Middleware {
	return &Middleware{decider: d}
}

// AuthorizeRequest derives the action from the HTTP method and checks the
// caller's role against the request path. It must run after
// auth.Middleware.Authenticate.
func (m *Middleware) AuthorizeRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok {
			metrics.AuthzDecisions.WithLabelValues("deny").Inc()
			writeForbidden(w, "no authentication context")
			return
		}

		action := MethodToAction(r.Method)
		allowed, err := m.decider.Enforce(claims.Role, r.URL.Path, action)
		if err != nil {
			metrics.AuthzDecisions.WithLabelValues("error").Inc()
			logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if !allowed {
			metrics.AuthzDecisions.WithLabelValues("deny").Inc()
			logging.Ctx(r.Context()).Debug().
				Str("user_id", claims.UserID()).
				Str("role", claims.Role).
				Str("path", r.URL.Path).
				Str("action", action).
				Msg("Authorization denied")
			writeForbidden(w, "insufficient permissions")
			return
		}

		metrics.AuthzDecisions.WithLabelValues("allow").Inc()
		next.ServeHTTP(w, r)
	})
}

// MethodToAction maps HTTP methods to policy actions.
func MethodToAction(method string) string {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return ActionWrite
	case http.MethodDelete:
		return ActionDelete
	default:
		return ActionRead
	}
}

func writeForbidden(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "error",
		"error":  map[string]string{"code": "FORBIDDEN", "message": msg},
	})
}
