// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package api

import (
	"net/http"
)

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Syncing   bool   `json:"syncing"`
	Instances int    `json:"instances"`
}

// handleHealth reports overall status: store reachability, sync activity,
// registered instance count.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := &HealthResponse{Status: "ok", Database: "ok"}

	if rt.deps.Store != nil {
		if err := rt.deps.Store.Ping(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Database = "unreachable"
		}
	}
	if rt.deps.Sync != nil {
		resp.Syncing = rt.deps.Sync.IsSyncing()
	}
	if rt.deps.Registry != nil {
		resp.Instances = len(rt.deps.Registry.IDs())
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, &APIResponse{Success: resp.Status == "ok", Data: resp})
}

// handleLive is the liveness probe: the process answers, nothing more.
func (rt *Router) handleLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, map[string]string{"status": "ok"})
}

// handleReady is the readiness probe: the store must answer.
func (rt *Router) handleReady(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Store != nil {
		if err := rt.deps.Store.Ping(r.Context()); err != nil {
			respondError(w, r, http.StatusServiceUnavailable, ErrCodeInternalError,
				"store unreachable")
			return
		}
	}
	respondData(w, map[string]string{"status": "ready"})
}
