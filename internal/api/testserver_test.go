// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/auth"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/authz"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/config"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/database"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/notification"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/redevelopment"
)

const testSocietyID = "soc-1"

// testEnv is a full API stack over an in-memory DuckDB.
type testEnv struct {
	t       *testing.T
	db      *database.DB
	handler *Handler
	router  http.Handler
	tokens  *auth.JWTManager
}

// envelope mirrors models.APIResponse with Data left raw.
type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB", Threads: 2})
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	tokens, err := auth.NewJWTManager(&config.SecurityConfig{JWTSecret: "test-secret-at-least-32-bytes-long!!", SessionTimeout: time.Hour})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	enforcer, err := authz.NewEnforcer(&authz.EnforcerConfig{})
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	t.Cleanup(enforcer.Close)

	dispatcher := notification.NewDispatcher(db, nil)
	service := redevelopment.NewService(db, dispatcher, redevelopment.Config{MinimumApprovalPercentage: 51})

	handler := NewHandler(service, db)
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	router := NewRouter(handler, NewChiMiddleware(cfg), auth.NewMiddleware(tokens), authz.NewMiddleware(enforcer), nil)

	return &testEnv{t: t, db: db, handler: handler, router: router.SetupChi(), tokens: tokens}
}

func (e *testEnv) token(userID, role string) string {
	e.t.Helper()
	tok, err := e.tokens.GenerateToken(userID, userID, role)
	if err != nil {
		e.t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}

// do sends a request as userID with role. An empty role sends no token.
func (e *testEnv) do(method, path, userID, role string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			e.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(userID, role))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// expect checks the status code and decodes the envelope, and data into
// out when out is non-nil.
func (e *testEnv) expect(rec *httptest.ResponseRecorder, status int, out any) envelope {
	e.t.Helper()
	if rec.Code != status {
		e.t.Fatalf("status = %d, want %d; body: %s", rec.Code, status, rec.Body.String())
	}
	var env envelope
	if rec.Body.Len() == 0 {
		return env
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		e.t.Fatalf("decode envelope: %v; body: %s", err, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			e.t.Fatalf("decode data: %v; data: %s", err, env.Data)
		}
	}
	return env
}

func (e *testEnv) seedMembers(ids ...string) {
	e.t.Helper()
	for _, id := range ids {
		if err := e.db.UpsertMember(context.Background(), &models.SocietyMember{
			SocietyID: testSocietyID, UserID: id, Role: models.RoleSocietyMember, Status: models.MemberActive,
		}); err != nil {
			e.t.Fatalf("UpsertMember: %v", err)
		}
	}
}

// seedManager makes userID an active secretary of the test society.
func (e *testEnv) seedManager(userID string) {
	e.t.Helper()
	if err := e.db.UpsertMember(context.Background(), &models.SocietyMember{
		SocietyID: testSocietyID, UserID: userID, Role: models.RoleSecretary, Status: models.MemberActive,
	}); err != nil {
		e.t.Fatalf("UpsertMember: %v", err)
	}
}

// createProject creates a project owned by owner and returns it.
func (e *testEnv) createProject(owner string) models.RedevelopmentProject {
	e.t.Helper()
	var p models.RedevelopmentProject
	e.expect(e.do(http.MethodPost, "/api/v1/projects", owner, auth.RoleSocietyOwner, map[string]any{
		"society_id": testSocietyID,
		"title":      "Tower A redevelopment",
	}), http.StatusCreated, &p)
	return p
}

// projectWithProposal returns a project in proposals_received with one
// proposal from developer.
func (e *testEnv) projectWithProposal(owner, developer string) (models.RedevelopmentProject, models.DeveloperProposal) {
	e.t.Helper()
	p := e.createProject(owner)
	e.expect(e.do(http.MethodPost, "/api/v1/projects/"+p.ID+"/tender", owner, auth.RoleSocietyOwner, nil), http.StatusOK, nil)

	var prop models.DeveloperProposal
	e.expect(e.do(http.MethodPost, "/api/v1/projects/"+p.ID+"/proposals", developer, auth.RoleDeveloper, map[string]any{
		"title":         "Twin towers with podium parking",
		"corpus_amount": 2500000,
		"rent_amount":   35000,
	}), http.StatusCreated, &prop)
	return p, prop
}

// newRawRequest sends body verbatim, for malformed-input cases.
func newRawRequest(t *testing.T, e *testEnv, method, path, body, userID, role string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token(userID, role))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
