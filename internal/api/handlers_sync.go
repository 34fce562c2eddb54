// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/curator-app/curator/internal/logging"
	"github.com/curator-app/curator/internal/models"
	syncpkg "github.com/curator-app/curator/internal/sync"
)

// SyncStatusResponse is the /sync/status payload.
type SyncStatusResponse struct {
	Syncing bool               `json:"syncing"`
	Kinds   []models.SyncState `json:"kinds"`
}

// handleSyncStatus reports whether a sync runs and the per-kind cursors.
func (rt *Router) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	syncing, states, err := rt.deps.Sync.Status(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, &SyncStatusResponse{Syncing: syncing, Kinds: states})
}

// startSync launches a sync run in the background. The engine's own gate
// decides the race when two triggers arrive together; the loser's run logs
// ErrSyncInProgress and stops.
func (rt *Router) startSync(w http.ResponseWriter, r *http.Request, mode string,
	run func(ctx context.Context) error) {

	if rt.deps.Sync.IsSyncing() {
		respondError(w, r, http.StatusConflict, ErrCodeConflict, "a sync is already running")
		return
	}

	instance := chi.URLParam(r, "instance")
	go func() {
		// Detached from the request context: the run outlives the trigger.
		err := run(context.Background())
		switch {
		case err == nil:
		case errors.Is(err, syncpkg.ErrSyncInProgress), errors.Is(err, syncpkg.ErrSyncCancelled):
			logging.Info().Str("mode", mode).Str("instance", instance).
				Msg("Triggered sync did not complete")
		default:
			logging.Err(err).Str("mode", mode).Str("instance", instance).
				Msg("Triggered sync failed")
		}
	}()

	respondAccepted(w, map[string]string{"mode": mode, "instance": instance})
}

// handleFullSync triggers a full sync of all instances, or of the one named
// in the path.
func (rt *Router) handleFullSync(w http.ResponseWriter, r *http.Request) {
	if instance := chi.URLParam(r, "instance"); instance != "" {
		rt.startSync(w, r, "full", func(ctx context.Context) error {
			return rt.deps.Sync.FullSync(ctx, instance)
		})
		return
	}
	rt.startSync(w, r, "full", rt.deps.Sync.FullSyncAll)
}

// handleIncrementalSync triggers an incremental sync, all instances or one.
func (rt *Router) handleIncrementalSync(w http.ResponseWriter, r *http.Request) {
	if instance := chi.URLParam(r, "instance"); instance != "" {
		rt.startSync(w, r, "incremental", func(ctx context.Context) error {
			return rt.deps.Sync.IncrementalSync(ctx, instance)
		})
		return
	}
	rt.startSync(w, r, "incremental", rt.deps.Sync.IncrementalSyncAll)
}

// EntitySyncRequest names one upstream entity to refresh immediately.
type EntitySyncRequest struct {
	Instance string `json:"instance"`
	Kind     string `json:"kind"`
	ID       string `json:"id"`
}

// handleEntitySync refreshes a single entity synchronously; the call is
// small enough to complete within the request.
func (rt *Router) handleEntitySync(w http.ResponseWriter, r *http.Request) {
	var req EntitySyncRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	kind := models.Kind(req.Kind)
	if !models.ValidKind(kind) || req.ID == "" || req.Instance == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest,
			"instance, kind, and id are required")
		return
	}

	if err := rt.deps.Sync.SingleEntitySync(r.Context(), req.Instance, kind, req.ID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, map[string]string{"instance": req.Instance, "kind": req.Kind, "id": req.ID})
}

// handleSyncAbort cancels the running sync, if any.
func (rt *Router) handleSyncAbort(w http.ResponseWriter, r *http.Request) {
	aborted := rt.deps.Sync.Abort()
	respondData(w, map[string]bool{"aborted": aborted})
}

// handleReprobe re-classifies clip previews for one instance synchronously
// and reports how many clips flipped state.
func (rt *Router) handleReprobe(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Reprober == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeInternalError,
			"preview prober not configured")
		return
	}

	changed, err := rt.deps.Reprober.Run(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, map[string]int{"changed": changed})
}
