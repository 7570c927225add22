// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/logging"
)

type contextKey string

// ClaimsContextKey stores *Claims on authenticated requests.
const ClaimsContextKey contextKey = "claims"

// TokenValidator validates a raw access token.
type TokenValidator interface {
	ValidateToken(token string) (*Claims, error)
}

// Middleware authenticates requests with a bearer token.
type Middleware struct {
	validator TokenValidator
}

// NewMiddleware creates authentication middleware.
func NewMiddleware(v TokenValidator) *Middleware {
	return &Middleware{validator: v}
}

// Authenticate rejects requests without a valid token with 401. The token
// is read from the Authorization header, or from the "token" query
// parameter for websocket handshakes where browsers cannot set headers.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := TokenFromRequest(r)
		if raw == "" {
			writeUnauthorized(w, "authentication required")
			return
		}

		claims, err := m.validator.ValidateToken(raw)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected access token")
			writeUnauthorized(w, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

// TokenFromRequest extracts the raw token, preferring the header.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// ContextWithClaims attaches claims to ctx.
func ContextWithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey, c)
}

// ClaimsFromContext returns the authenticated claims, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return c, ok && c != nil
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="milkat"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "error",
		"error":  map[string]string{"code": "UNAUTHORIZED", "message": msg},
	})
}
