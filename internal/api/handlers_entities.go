// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/curator-app/curator/internal/query"
)

// handleList runs one list endpoint: parse the option bag, delegate, wrap.
func handleList[T any](w http.ResponseWriter, r *http.Request,
	list func(context.Context, query.Options) (*query.Result[T], error)) {

	opts, err := parseListOptions(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	result, err := list(r.Context(), opts)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, result)
}

// handleByID runs one by-id endpoint. The optional "instance" parameter
// disambiguates when several upstreams reuse an id.
func handleByID[T any](w http.ResponseWriter, r *http.Request,
	get func(ctx context.Context, userID, id, instance string) (*T, error)) {

	entity, err := get(r.Context(), userFrom(r), chi.URLParam(r, "id"), r.URL.Query().Get("instance"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, entity)
}

func (rt *Router) handleListScenes(w http.ResponseWriter, r *http.Request) {
	handleList(w, r, rt.deps.Entities.ListScenes)
}

func (rt *Router) handleSceneByID(w http.ResponseWriter, r *http.Request) {
	handleByID(w, r, rt.deps.Entities.SceneByID)
}

func (rt *Router) handleListImages(w http.ResponseWriter, r *http.Request) {
	handleList(w, r, rt.deps.Entities.ListImages)
}

func (rt *Router) handleImageByID(w http.ResponseWriter, r *http.Request) {
	handleByID(w, r, rt.deps.Entities.ImageByID)
}

func (rt *Router) handleListGalleries(w http.ResponseWriter, r *http.Request) {
	handleList(w, r, rt.deps.Entities.ListGalleries)
}

func (rt *Router) handleGalleryByID(w http.ResponseWriter, r *http.Request) {
	handleByID(w, r, rt.deps.Entities.GalleryByID)
}

func (rt *Router) handleListPerformers(w http.ResponseWriter, r *http.Request) {
	handleList(w, r, rt.deps.Entities.ListPerformers)
}

func (rt *Router) handlePerformerByID(w http.ResponseWriter, r *http.Request) {
	handleByID(w, r, rt.deps.Entities.PerformerByID)
}

func (rt *Router) handleListStudios(w http.ResponseWriter, r *http.Request) {
	handleList(w, r, rt.deps.Entities.ListStudios)
}

func (rt *Router) handleStudioByID(w http.ResponseWriter, r *http.Request) {
	handleByID(w, r, rt.deps.Entities.StudioByID)
}

func (rt *Router) handleListTags(w http.ResponseWriter, r *http.Request) {
	handleList(w, r, rt.deps.Entities.ListTags)
}

func (rt *Router) handleTagByID(w http.ResponseWriter, r *http.Request) {
	handleByID(w, r, rt.deps.Entities.TagByID)
}

func (rt *Router) handleListGroups(w http.ResponseWriter, r *http.Request) {
	handleList(w, r, rt.deps.Entities.ListGroups)
}

func (rt *Router) handleGroupByID(w http.ResponseWriter, r *http.Request) {
	handleByID(w, r, rt.deps.Entities.GroupByID)
}

func (rt *Router) handleListClips(w http.ResponseWriter, r *http.Request) {
	handleList(w, r, rt.deps.Entities.ListClips)
}

// handleClipsForScene lists a scene's clips. Visibility follows the parent
// scene: a hidden scene yields 404, never a partial clip list.
func (rt *Router) handleClipsForScene(w http.ResponseWriter, r *http.Request) {
	clips, err := rt.deps.Entities.ClipsForScene(
		r.Context(), userFrom(r), chi.URLParam(r, "id"), r.URL.Query().Get("instance"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, clips)
}
