// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

/*
queries.go - Per-Kind Find Operations

Each browsable kind exposes four operations: paged find, id-only paged
scan (for deleted-reconciliation), find-one by id, and count. Every paged
response must carry a total count; a missing count is ErrMissingCount and
aborts the sync rather than risking an unterminated pagination loop.
*/
package stash

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

const sceneFields = `
	id title code date details director
	studio { id }
	performers { id }
	tags { id }
	groups { group { id } }
	galleries { id }
	files { path video_codec width height bit_rate size duration fingerprints { type value } }
	paths { screenshot preview sprite vtt stream caption }
	play_count play_duration o_counter
	created_at updated_at`

const imageFields = `
	id title date details photographer
	studio { id }
	performers { id }
	tags { id }
	galleries { id }
	visual_files { path width height size }
	paths { thumbnail preview image }
	o_counter
	created_at updated_at`

const galleryFields = `
	id title date details photographer
	studio { id }
	folder { path }
	files { path }
	cover { id }
	performers { id }
	tags { id }
	scenes { id }
	image_count
	created_at updated_at`

const performerFields = `
	id name disambiguation gender birthdate country details image_path
	tags { id }
	scene_count image_count
	created_at updated_at`

const studioFields = `
	id name url details image_path
	parent_studio { id }
	tags { id }
	scene_count image_count
	created_at updated_at`

const tagFields = `
	id name description image_path
	parents { id }
	scene_count image_count
	created_at updated_at`

const groupFields = `
	id name date details
	studio { id }
	front_image_path back_image_path
	tags { id }
	containing_groups { group { id } }
	scene_count
	created_at updated_at`

const markerFields = `
	id title seconds end_seconds
	scene { id }
	primary_tag { id }
	tags { id }
	paths { preview screenshot stream }
	created_at updated_at`

// findPage runs one paged find document and splits the root payload into
// count and item list. root is the query field (e.g. "findScenes"), items
// the list field within it (e.g. "scenes").
func findPage[T any](ctx context.Context, c *Client, document, root, items string, vars map[string]any) ([]T, int, error) {
	var data map[string]json.RawMessage
	if err := c.query(ctx, document, vars, &data); err != nil {
		return nil, 0, err
	}

	rootRaw, ok := data[root]
	if !ok || len(rootRaw) == 0 {
		return nil, 0, fmt.Errorf("upstream response missing %s", root)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(rootRaw, &fields); err != nil {
		return nil, 0, fmt.Errorf("failed to decode %s payload: %w", root, err)
	}

	var count *int
	if countRaw, ok := fields["count"]; ok {
		if err := json.Unmarshal(countRaw, &count); err != nil {
			return nil, 0, fmt.Errorf("failed to decode %s count: %w", root, err)
		}
	}
	if count == nil {
		return nil, 0, fmt.Errorf("%s: %w", root, ErrMissingCount)
	}

	var list []T
	if itemsRaw, ok := fields[items]; ok {
		if err := json.Unmarshal(itemsRaw, &list); err != nil {
			return nil, 0, fmt.Errorf("failed to decode %s items: %w", root, err)
		}
	}
	return list, *count, nil
}

// findOne runs a single-entity lookup. A null result means the entity does
// not exist upstream.
func findOne[T any](ctx context.Context, c *Client, document, root, id string) (*T, error) {
	var data map[string]json.RawMessage
	if err := c.query(ctx, document, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	raw, ok := data[root]
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", root, err)
	}
	return &item, nil
}

// pageVars assembles the variables for one paged find call. filterName is
// the kind-filter variable (scene_filter, tag_filter, ...).
func pageVars(filterName, updatedAfter string, page, perPage int) map[string]any {
	vars := map[string]any{"filter": findFilter(page, perPage)}
	if kf := updatedAfterFilter(updatedAfter); kf != nil {
		vars[filterName] = kf
	}
	return vars
}

func findDocument(opName, root, filterVar, filterType, fields string) string {
	return fmt.Sprintf(`query %s($filter: FindFilterType, $%s: %s) {
		%s(filter: $filter, %s: $%s) { count %s }
	}`, opName, filterVar, filterType, root, filterVar, filterVar, fields)
}

// Scenes.

var (
	findScenesDoc   = findDocument("FindScenes", "findScenes", "scene_filter", "SceneFilterType", "scenes { "+sceneFields+" }")
	sceneIDsDoc     = findDocument("SceneIds", "findScenes", "scene_filter", "SceneFilterType", "scenes { id }")
	findSceneDoc    = `query FindScene($id: ID!) { findScene(id: $id) { ` + sceneFields + ` } }`
)

func (c *Client) FindScenes(ctx context.Context, updatedAfter string, page, perPage int) ([]RawScene, int, error) {
	return findPage[RawScene](ctx, c, findScenesDoc, "findScenes", "scenes",
		pageVars("scene_filter", updatedAfter, page, perPage))
}

func (c *Client) SceneIDs(ctx context.Context, page, perPage int) ([]string, int, error) {
	refs, total, err := findPage[IDRef](ctx, c, sceneIDsDoc, "findScenes", "scenes",
		pageVars("scene_filter", "", page, perPage))
	return refIDs(refs), total, err
}

func (c *Client) FindScene(ctx context.Context, id string) (*RawScene, error) {
	return findOne[RawScene](ctx, c, findSceneDoc, "findScene", id)
}

func (c *Client) CountScenes(ctx context.Context, updatedAfter string) (int, error) {
	_, total, err := findPage[IDRef](ctx, c, sceneIDsDoc, "findScenes", "scenes",
		pageVars("scene_filter", updatedAfter, 1, 0))
	return total, err
}

// Images.

var (
	findImagesDoc = findDocument("FindImages", "findImages", "image_filter", "ImageFilterType", "images { "+imageFields+" }")
	imageIDsDoc   = findDocument("ImageIds", "findImages", "image_filter", "ImageFilterType", "images { id }")
	findImageDoc  = `query FindImage($id: ID!) { findImage(id: $id) { ` + imageFields + ` } }`
)

func (c *Client) FindImages(ctx context.Context, updatedAfter string, page, perPage int) ([]RawImage, int, error) {
	return findPage[RawImage](ctx, c, findImagesDoc, "findImages", "images",
		pageVars("image_filter", updatedAfter, page, perPage))
}

func (c *Client) ImageIDs(ctx context.Context, page, perPage int) ([]string, int, error) {
	refs, total, err := findPage[IDRef](ctx, c, imageIDsDoc, "findImages", "images",
		pageVars("image_filter", "", page, perPage))
	return refIDs(refs), total, err
}

func (c *Client) FindImage(ctx context.Context, id string) (*RawImage, error) {
	return findOne[RawImage](ctx, c, findImageDoc, "findImage", id)
}

func (c *Client) CountImages(ctx context.Context, updatedAfter string) (int, error) {
	_, total, err := findPage[IDRef](ctx, c, imageIDsDoc, "findImages", "images",
		pageVars("image_filter", updatedAfter, 1, 0))
	return total, err
}

// Galleries.

var (
	findGalleriesDoc = findDocument("FindGalleries", "findGalleries", "gallery_filter", "GalleryFilterType", "galleries { "+galleryFields+" }")
	galleryIDsDoc    = findDocument("GalleryIds", "findGalleries", "gallery_filter", "GalleryFilterType", "galleries { id }")
	findGalleryDoc   = `query FindGallery($id: ID!) { findGallery(id: $id) { ` + galleryFields + ` } }`
)

func (c *Client) FindGalleries(ctx context.Context, updatedAfter string, page, perPage int) ([]RawGallery, int, error) {
	return findPage[RawGallery](ctx, c, findGalleriesDoc, "findGalleries", "galleries",
		pageVars("gallery_filter", updatedAfter, page, perPage))
}

func (c *Client) GalleryIDs(ctx context.Context, page, perPage int) ([]string, int, error) {
	refs, total, err := findPage[IDRef](ctx, c, galleryIDsDoc, "findGalleries", "galleries",
		pageVars("gallery_filter", "", page, perPage))
	return refIDs(refs), total, err
}

func (c *Client) FindGallery(ctx context.Context, id string) (*RawGallery, error) {
	return findOne[RawGallery](ctx, c, findGalleryDoc, "findGallery", id)
}

func (c *Client) CountGalleries(ctx context.Context, updatedAfter string) (int, error) {
	_, total, err := findPage[IDRef](ctx, c, galleryIDsDoc, "findGalleries", "galleries",
		pageVars("gallery_filter", updatedAfter, 1, 0))
	return total, err
}

// Performers.

var (
	findPerformersDoc = findDocument("FindPerformers", "findPerformers", "performer_filter", "PerformerFilterType", "performers { "+performerFields+" }")
	performerIDsDoc   = findDocument("PerformerIds", "findPerformers", "performer_filter", "PerformerFilterType", "performers { id }")
	findPerformerDoc  = `query FindPerformer($id: ID!) { findPerformer(id: $id) { ` + performerFields + ` } }`
)

func (c *Client) FindPerformers(ctx context.Context, updatedAfter string, page, perPage int) ([]RawPerformer, int, error) {
	return findPage[RawPerformer](ctx, c, findPerformersDoc, "findPerformers", "performers",
		pageVars("performer_filter", updatedAfter, page, perPage))
}

func (c *Client) PerformerIDs(ctx context.Context, page, perPage int) ([]string, int, error) {
	refs, total, err := findPage[IDRef](ctx, c, performerIDsDoc, "findPerformers", "performers",
		pageVars("performer_filter", "", page, perPage))
	return refIDs(refs), total, err
}

func (c *Client) FindPerformer(ctx context.Context, id string) (*RawPerformer, error) {
	return findOne[RawPerformer](ctx, c, findPerformerDoc, "findPerformer", id)
}

func (c *Client) CountPerformers(ctx context.Context, updatedAfter string) (int, error) {
	_, total, err := findPage[IDRef](ctx, c, performerIDsDoc, "findPerformers", "performers",
		pageVars("performer_filter", updatedAfter, 1, 0))
	return total, err
}

// Studios.

var (
	findStudiosDoc = findDocument("FindStudios", "findStudios", "studio_filter", "StudioFilterType", "studios { "+studioFields+" }")
	studioIDsDoc   = findDocument("StudioIds", "findStudios", "studio_filter", "StudioFilterType", "studios { id }")
	findStudioDoc  = `query FindStudio($id: ID!) { findStudio(id: $id) { ` + studioFields + ` } }`
)

func (c *Client) FindStudios(ctx context.Context, updatedAfter string, page, perPage int) ([]RawStudio, int, error) {
	return findPage[RawStudio](ctx, c, findStudiosDoc, "findStudios", "studios",
		pageVars("studio_filter", updatedAfter, page, perPage))
}

func (c *Client) StudioIDs(ctx context.Context, page, perPage int) ([]string, int, error) {
	refs, total, err := findPage[IDRef](ctx, c, studioIDsDoc, "findStudios", "studios",
		pageVars("studio_filter", "", page, perPage))
	return refIDs(refs), total, err
}

func (c *Client) FindStudio(ctx context.Context, id string) (*RawStudio, error) {
	return findOne[RawStudio](ctx, c, findStudioDoc, "findStudio", id)
}

func (c *Client) CountStudios(ctx context.Context, updatedAfter string) (int, error) {
	_, total, err := findPage[IDRef](ctx, c, studioIDsDoc, "findStudios", "studios",
		pageVars("studio_filter", updatedAfter, 1, 0))
	return total, err
}

// Tags.

var (
	findTagsDoc = findDocument("FindTags", "findTags", "tag_filter", "TagFilterType", "tags { "+tagFields+" }")
	tagIDsDoc   = findDocument("TagIds", "findTags", "tag_filter", "TagFilterType", "tags { id }")
	findTagDoc  = `query FindTag($id: ID!) { findTag(id: $id) { ` + tagFields + ` } }`
)

func (c *Client) FindTags(ctx context.Context, updatedAfter string, page, perPage int) ([]RawTag, int, error) {
	return findPage[RawTag](ctx, c, findTagsDoc, "findTags", "tags",
		pageVars("tag_filter", updatedAfter, page, perPage))
}

func (c *Client) TagIDs(ctx context.Context, page, perPage int) ([]string, int, error) {
	refs, total, err := findPage[IDRef](ctx, c, tagIDsDoc, "findTags", "tags",
		pageVars("tag_filter", "", page, perPage))
	return refIDs(refs), total, err
}

func (c *Client) FindTag(ctx context.Context, id string) (*RawTag, error) {
	return findOne[RawTag](ctx, c, findTagDoc, "findTag", id)
}

func (c *Client) CountTags(ctx context.Context, updatedAfter string) (int, error) {
	_, total, err := findPage[IDRef](ctx, c, tagIDsDoc, "findTags", "tags",
		pageVars("tag_filter", updatedAfter, 1, 0))
	return total, err
}

// Groups.

var (
	findGroupsDoc = findDocument("FindGroups", "findGroups", "group_filter", "GroupFilterType", "groups { "+groupFields+" }")
	groupIDsDoc   = findDocument("GroupIds", "findGroups", "group_filter", "GroupFilterType", "groups { id }")
	findGroupDoc  = `query FindGroup($id: ID!) { findGroup(id: $id) { ` + groupFields + ` } }`
)

func (c *Client) FindGroups(ctx context.Context, updatedAfter string, page, perPage int) ([]RawGroup, int, error) {
	return findPage[RawGroup](ctx, c, findGroupsDoc, "findGroups", "groups",
		pageVars("group_filter", updatedAfter, page, perPage))
}

func (c *Client) GroupIDs(ctx context.Context, page, perPage int) ([]string, int, error) {
	refs, total, err := findPage[IDRef](ctx, c, groupIDsDoc, "findGroups", "groups",
		pageVars("group_filter", "", page, perPage))
	return refIDs(refs), total, err
}

func (c *Client) FindGroup(ctx context.Context, id string) (*RawGroup, error) {
	return findOne[RawGroup](ctx, c, findGroupDoc, "findGroup", id)
}

func (c *Client) CountGroups(ctx context.Context, updatedAfter string) (int, error) {
	_, total, err := findPage[IDRef](ctx, c, groupIDsDoc, "findGroups", "groups",
		pageVars("group_filter", updatedAfter, 1, 0))
	return total, err
}

// Markers (clips).

var (
	findMarkersDoc = findDocument("FindSceneMarkers", "findSceneMarkers", "scene_marker_filter", "SceneMarkerFilterType", "scene_markers { "+markerFields+" }")
	markerIDsDoc   = findDocument("SceneMarkerIds", "findSceneMarkers", "scene_marker_filter", "SceneMarkerFilterType", "scene_markers { id }")
	findMarkerDoc  = `query FindSceneMarker($id: ID!) { findSceneMarker(id: $id) { ` + markerFields + ` } }`
)

func (c *Client) FindMarkers(ctx context.Context, updatedAfter string, page, perPage int) ([]RawMarker, int, error) {
	return findPage[RawMarker](ctx, c, findMarkersDoc, "findSceneMarkers", "scene_markers",
		pageVars("scene_marker_filter", updatedAfter, page, perPage))
}

func (c *Client) MarkerIDs(ctx context.Context, page, perPage int) ([]string, int, error) {
	refs, total, err := findPage[IDRef](ctx, c, markerIDsDoc, "findSceneMarkers", "scene_markers",
		pageVars("scene_marker_filter", "", page, perPage))
	return refIDs(refs), total, err
}

func (c *Client) FindMarker(ctx context.Context, id string) (*RawMarker, error) {
	return findOne[RawMarker](ctx, c, findMarkerDoc, "findSceneMarker", id)
}

func (c *Client) CountMarkers(ctx context.Context, updatedAfter string) (int, error) {
	_, total, err := findPage[IDRef](ctx, c, markerIDsDoc, "findSceneMarkers", "scene_markers",
		pageVars("scene_marker_filter", updatedAfter, 1, 0))
	return total, err
}

func refIDs(refs []IDRef) []string {
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}
	return ids
}
