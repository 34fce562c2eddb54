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

// HiddenEntityRequest names one entity a user hides or unhides. An empty
// instance applies across all upstreams.
type HiddenEntityRequest struct {
	Kind     string `json:"entityType"`
	EntityID string `json:"entityId"`
	Instance string `json:"instance"`
}

func (req *HiddenEntityRequest) validate() (models.Kind, bool) {
	kind := models.Kind(req.Kind)
	return kind, models.ValidKind(kind) && req.EntityID != ""
}

// handleListHidden returns the user's explicit hides.
func (rt *Router) handleListHidden(w http.ResponseWriter, r *http.Request) {
	rows, err := rt.deps.Store.ListHiddenEntities(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, rows)
}

// handleHideEntity records a hide and runs the incremental exclusion path,
// so the entity and its cascade disappear before the response returns.
func (rt *Router) handleHideEntity(w http.ResponseWriter, r *http.Request) {
	var req HiddenEntityRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	kind, ok := req.validate()
	if !ok {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest,
			"entityType and entityId are required")
		return
	}

	userID := chi.URLParam(r, "userID")
	if err := rt.deps.Exclusions.AddHiddenEntity(r.Context(), userID, kind, req.EntityID, req.Instance); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, map[string]string{"userId": userID, "entityId": req.EntityID})
}

// handleUnhideEntity removes a hide. Parameters travel in the query string;
// the full recompute that restores visibility runs before responding.
func (rt *Router) handleUnhideEntity(w http.ResponseWriter, r *http.Request) {
	req := HiddenEntityRequest{
		Kind:     r.URL.Query().Get("kind"),
		EntityID: r.URL.Query().Get("entity_id"),
		Instance: r.URL.Query().Get("instance"),
	}
	kind, ok := req.validate()
	if !ok {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest,
			"kind and entity_id are required")
		return
	}

	userID := chi.URLParam(r, "userID")
	if err := rt.deps.Exclusions.RemoveHiddenEntity(r.Context(), userID, kind, req.EntityID, req.Instance); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, map[string]string{"userId": userID, "entityId": req.EntityID})
}

// RestrictionRequest creates or updates a content restriction rule.
type RestrictionRequest struct {
	ID            string   `json:"id"`
	KindPlural    string   `json:"entityType"`
	Mode          string   `json:"mode"`
	EntityIDs     []string `json:"entityIds"`
	RestrictEmpty bool     `json:"restrictEmpty"`
}

// handleListRestrictions returns the user's restriction rules.
func (rt *Router) handleListRestrictions(w http.ResponseWriter, r *http.Request) {
	rows, err := rt.deps.Store.ListContentRestrictions(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, rows)
}

// handleUpsertRestriction stores a rule and recomputes the user's exclusion
// index in the same request.
func (rt *Router) handleUpsertRestriction(w http.ResponseWriter, r *http.Request) {
	var req RestrictionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if _, ok := models.KindFromPlural(req.KindPlural); !ok {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "unknown entityType")
		return
	}
	mode := models.RestrictionMode(req.Mode)
	if mode != models.RestrictionInclude && mode != models.RestrictionExclude {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest,
			"mode must be INCLUDE or EXCLUDE")
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	userID := chi.URLParam(r, "userID")
	restriction := models.ContentRestriction{
		ID:            req.ID,
		UserID:        userID,
		KindPlural:    req.KindPlural,
		Mode:          mode,
		EntityIDs:     req.EntityIDs,
		RestrictEmpty: req.RestrictEmpty,
	}
	if err := rt.deps.Store.UpsertContentRestriction(r.Context(), &restriction); err != nil {
		respondServiceError(w, r, err)
		return
	}
	if err := rt.deps.Exclusions.RecomputeUser(r.Context(), userID); err != nil {
		respondServiceError(w, r, err)
		return
	}

	logging.Info().Str("user", userID).Str("restriction", restriction.ID).
		Msg("Content restriction upserted")
	respondData(w, restriction)
}

// handleDeleteRestriction removes a rule. When the owning user is named in
// the "user" parameter, their index is recomputed immediately; otherwise the
// stale exclusions persist until the next recompute.
func (rt *Router) handleDeleteRestriction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := rt.deps.Store.DeleteContentRestriction(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}

	if userID := r.URL.Query().Get("user"); userID != "" {
		if err := rt.deps.Exclusions.RecomputeUser(r.Context(), userID); err != nil {
			respondServiceError(w, r, err)
			return
		}
	}
	respondData(w, map[string]string{"id": id})
}

// handleRecomputeUser rebuilds one user's exclusion index on demand.
func (rt *Router) handleRecomputeUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := rt.deps.Exclusions.RecomputeUser(r.Context(), userID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, map[string]string{"userId": userID})
}

// OverlayRequest sets a user's rating/favorite on one entity.
type OverlayRequest struct {
	Kind     string `json:"entityType"`
	EntityID string `json:"entityId"`
	Instance string `json:"instance"`
	Rating   *int   `json:"rating"`
	Favorite bool   `json:"favorite"`
}

// handleUpsertOverlay stores the overlay row; list queries pick it up on
// the next read through the overlay join.
func (rt *Router) handleUpsertOverlay(w http.ResponseWriter, r *http.Request) {
	var req OverlayRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	kind := models.Kind(req.Kind)
	if !models.ValidKind(kind) || req.EntityID == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest,
			"entityType and entityId are required")
		return
	}
	if req.Rating != nil && (*req.Rating < 0 || *req.Rating > 100) {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest,
			"rating must be between 0 and 100")
		return
	}

	overlay := models.UserOverlay{
		UserID:   chi.URLParam(r, "userID"),
		Kind:     kind,
		EntityID: req.EntityID,
		Instance: req.Instance,
		Rating:   req.Rating,
		Favorite: req.Favorite,
	}
	if err := rt.deps.Store.UpsertOverlay(r.Context(), &overlay); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, overlay)
}

// handleEntityStats returns the user's visible-entity counts per kind and
// instance, refreshed by the last exclusion swap.
func (rt *Router) handleEntityStats(w http.ResponseWriter, r *http.Request) {
	rows, err := rt.deps.Store.ListEntityStats(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, rows)
}
