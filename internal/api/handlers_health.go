// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

// readinessTimeout bounds all readiness probes together.
const readinessTimeout = 3 * time.Second

// HealthLive handles liveness probe requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style)
// Returns 200 OK only if the database and every registered dependency
// answer; otherwise 503 with the failing checks listed.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := make(map[string]string, len(h.readiness)+1)
	ready := true
	record := func(name string, err error) {
		if err != nil {
			checks[name] = err.Error()
			ready = false
			return
		}
		checks[name] = "ok"
	}

	if h.db == nil {
		record("database", errDatabaseUnavailable)
	} else {
		record("database", h.db.Ping(ctx))
	}
	for _, c := range h.readiness {
		record(c.Name, c.Check(ctx))
	}

	data := map[string]interface{}{
		"ready":  ready,
		"checks": checks,
	}
	if !ready {
		respondJSON(w, r, http.StatusServiceUnavailable, &models.APIResponse{
			Status: "error",
			Data:   data,
			Error:  &models.APIError{Code: ErrCodeServiceUnavailable, Message: "Service is not ready"},
		})
		return
	}
	respondSuccess(w, r, http.StatusOK, data)
}
