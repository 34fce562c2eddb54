// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/curator-app/curator/internal/logging"
	"github.com/curator-app/curator/internal/models"
)

// InstanceRequest creates or updates an upstream instance. The API key is
// accepted here but never echoed back (models.Instance omits it).
type InstanceRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	BaseURL  string `json:"baseUrl"`
	APIKey   string `json:"apiKey"`
	Enabled  bool   `json:"enabled"`
	Priority int    `json:"priority"`
}

// handleListInstances returns the stored instance rows, including disabled
// ones; the registry only carries the enabled subset.
func (rt *Router) handleListInstances(w http.ResponseWriter, r *http.Request) {
	rows, err := rt.deps.Store.ListInstances(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, rows)
}

// handleUpsertInstance stores an instance and refreshes the registry so the
// next sync run sees it without a restart.
func (rt *Router) handleUpsertInstance(w http.ResponseWriter, r *http.Request) {
	var req InstanceRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if req.BaseURL == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "baseUrl is required")
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	inst := models.Instance{
		ID:       req.ID,
		Name:     req.Name,
		BaseURL:  req.BaseURL,
		APIKey:   req.APIKey,
		Enabled:  req.Enabled,
		Priority: req.Priority,
	}
	if err := rt.deps.Store.UpsertInstance(r.Context(), &inst); err != nil {
		respondServiceError(w, r, err)
		return
	}
	if rt.deps.Registry != nil {
		rt.deps.Registry.Put(inst, rt.deps.Upstream)
	}

	logging.Info().Str("instance", inst.ID).Bool("enabled", inst.Enabled).
		Msg("Instance upserted")
	respondData(w, inst)
}

// handleDeleteInstance removes the instance row and registry entry. The
// mirrored data stays until an explicit clear.
func (rt *Router) handleDeleteInstance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := rt.deps.Store.DeleteInstance(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	if rt.deps.Registry != nil {
		rt.deps.Registry.Remove(id)
	}

	logging.Info().Str("instance", id).Msg("Instance deleted")
	respondData(w, map[string]string{"id": id})
}

// handleClearInstance hard-deletes every mirrored row belonging to one
// instance: entities, junctions, sync cursors, user rows scoped to it.
func (rt *Router) handleClearInstance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := rt.deps.Store.ClearInstanceData(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}

	logging.Warn().Str("instance", id).Msg("Instance data cleared")
	respondData(w, map[string]string{"id": id})
}
