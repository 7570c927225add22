// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package authz

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/auth"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/metrics"
)

type errDecider struct{}

func (errDecider) Enforce(string, string, string) (bool, error) {
	return false, errors.New("policy store unavailable")
}

func TestMethodToAction(t *testing.T) {
	tests := map[string]string{
		http.MethodGet:     ActionRead,
		http.MethodHead:    ActionRead,
		http.MethodPost:    ActionWrite,
		http.MethodPut:     ActionWrite,
		http.MethodPatch:   ActionWrite,
		http.MethodDelete:  ActionDelete,
		http.MethodOptions: ActionRead,
	}
	for method, want := range tests {
		if got := MethodToAction(method); got != want {
			t.Errorf("MethodToAction(%s) = %s, want %s", method, got, want)
		}
	}
}

func TestAuthorizeRequest(t *testing.T) {
	e := newTestEnforcer(t)
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name     string
		decider  Decider
		role     string
		method   string
		path     string
		wantCode int
		wantDec  string
	}{
		{"member votes", e, auth.RoleMember, http.MethodPost, "/api/v1/projects/p-1/votes", http.StatusNoContent, "allow"},
		{"developer cannot vote", e, auth.RoleDeveloper, http.MethodPost, "/api/v1/projects/p-1/votes", http.StatusForbidden, "deny"},
		{"owner removes member", e, auth.RoleSocietyOwner, http.MethodDelete, "/api/v1/societies/s-1/members/u-2", http.StatusNoContent, "allow"},
		{"no claims", e, "", http.MethodGet, "/api/v1/projects/p-1", http.StatusForbidden, "deny"},
		{"enforcer error", errDecider{}, auth.RoleMember, http.MethodGet, "/api/v1/projects/p-1", http.StatusInternalServerError, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(metrics.AuthzDecisions.WithLabelValues(tt.wantDec))

			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.role != "" {
				claims := &auth.Claims{Role: tt.role, RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"}}
				req = req.WithContext(auth.ContextWithClaims(req.Context(), claims))
			}
			rec := httptest.NewRecorder()
			NewMiddleware(tt.decider).AuthorizeRequest(ok).ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := testutil.ToFloat64(metrics.AuthzDecisions.WithLabelValues(tt.wantDec)) - before; got != 1 {
				t.Errorf("%s decisions delta = %v, want 1", tt.wantDec, got)
			}
		})
	}
}
