// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

/*
hydrate.go - Relation Hydration

Fills the lightweight related-entity refs on one page of primaries with a
fixed number of batched reads: one junction scan plus one ref fetch per
relation, never per row. Lookups carry the composite (id, instance) key
with the legacy empty-instance fallback used everywhere else. Refs whose
target row is soft-deleted or missing are dropped silently; a dangling
junction row must never surface a ghost relation.
*/
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/curator-app/curator/internal/database"
	"github.com/curator-app/curator/internal/models"
)

const hydrateChunkSize = 100

// refSource names the columns a kind contributes to an EntityRef.
type refSource struct {
	table    string
	nameCol  string
	imageCol string
}

var refSources = map[models.Kind]refSource{
	models.KindPerformer: {table: "performers", nameCol: "name", imageCol: "image_path"},
	models.KindStudio:    {table: "studios", nameCol: "name", imageCol: "image_path"},
	models.KindTag:       {table: "tags", nameCol: "name", imageCol: "image_path"},
	models.KindGroup:     {table: "groups", nameCol: "name", imageCol: "front_path"},
	models.KindGallery:   {table: "galleries", nameCol: "title", imageCol: "NULL"},
	models.KindScene:     {table: "scenes", nameCol: "title", imageCol: "screenshot_path"},
}

// entityKey is a composite (id, instance) row key.
type entityKey struct {
	id       string
	instance string
}

// Hydrator batches the junction and ref reads behind list responses.
type Hydrator struct {
	db *database.DB
}

// NewHydrator builds a relation hydrator.
func NewHydrator(db *database.DB) *Hydrator {
	return &Hydrator{db: db}
}

// lookupRef resolves a key against a ref map, falling back to the legacy
// global key when the scoped row is absent.
func lookupRef(refs map[string]models.EntityRef, id, instance string) (models.EntityRef, bool) {
	if r, ok := refs[models.RefKey(id, instance)]; ok {
		return r, true
	}
	r, ok := refs[models.RefKey(id, "")]
	return r, ok
}

// fetchRefs loads live EntityRefs for the given keys.
func (h *Hydrator) fetchRefs(ctx context.Context, kind models.Kind, keys []entityKey) (map[string]models.EntityRef, error) {
	src, ok := refSources[kind]
	if !ok {
		return nil, fmt.Errorf("no ref source for kind %s", kind)
	}

	refs := make(map[string]models.EntityRef, len(keys))
	for start := 0; start < len(keys); start += hydrateChunkSize {
		end := min(start+hydrateChunkSize, len(keys))
		chunk := keys[start:end]

		conds := make([]string, len(chunk))
		args := make([]interface{}, 0, len(chunk)*3)
		for i, k := range chunk {
			conds[i] = "(id = ? AND (instance = ? OR instance = '' OR ? = ''))"
			args = append(args, k.id, k.instance, k.instance)
		}

		query := fmt.Sprintf(
			"SELECT id, instance, COALESCE(%s, ''), %s FROM %s WHERE deleted_at IS NULL AND (%s)",
			src.nameCol, src.imageCol, src.table, strings.Join(conds, " OR "))

		rows, err := h.db.Conn().QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s refs: %w", kind, err)
		}
		for rows.Next() {
			var ref models.EntityRef
			if err := rows.Scan(&ref.ID, &ref.Instance, &ref.Name, &ref.ImagePath); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("failed to scan %s ref: %w", kind, err)
			}
			refs[models.RefKey(ref.ID, ref.Instance)] = ref
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, err
		}
		_ = rows.Close()
	}
	return refs, nil
}

// fetchLinks scans one junction table for the given parent keys and returns
// related keys grouped per parent ref key.
func (h *Hydrator) fetchLinks(ctx context.Context, table, parentCol, relatedCol string, parents []entityKey) (map[string][]entityKey, error) {
	links := make(map[string][]entityKey, len(parents))
	for start := 0; start < len(parents); start += hydrateChunkSize {
		end := min(start+hydrateChunkSize, len(parents))
		chunk := parents[start:end]

		conds := make([]string, len(chunk))
		args := make([]interface{}, 0, len(chunk)*3)
		for i, k := range chunk {
			conds[i] = fmt.Sprintf("(%s = ? AND (parent_instance = ? OR parent_instance = '' OR ? = ''))", parentCol)
			args = append(args, k.id, k.instance, k.instance)
		}

		query := fmt.Sprintf("SELECT %s, parent_instance, %s, related_instance FROM %s WHERE %s",
			parentCol, relatedCol, table, strings.Join(conds, " OR "))

		rows, err := h.db.Conn().QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to scan junction %s: %w", table, err)
		}
		for rows.Next() {
			var parentID, parentInstance, relatedID, relatedInstance string
			if err := rows.Scan(&parentID, &parentInstance, &relatedID, &relatedInstance); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("failed to scan junction row: %w", err)
			}
			pk := models.RefKey(parentID, parentInstance)
			links[pk] = append(links[pk], entityKey{id: relatedID, instance: relatedInstance})
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, err
		}
		_ = rows.Close()
	}
	return links, nil
}

// resolveRelation runs one junction scan plus one ref fetch and returns
// name-sorted refs per parent key. Orphaned links resolve to nothing.
func (h *Hydrator) resolveRelation(ctx context.Context, table, parentCol, relatedCol string,
	kind models.Kind, parents []entityKey) (map[string][]models.EntityRef, error) {
	if len(parents) == 0 {
		return nil, nil
	}

	links, err := h.fetchLinks(ctx, table, parentCol, relatedCol, parents)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var relatedKeys []entityKey
	for _, related := range links {
		for _, k := range related {
			rk := models.RefKey(k.id, k.instance)
			if _, dup := seen[rk]; dup {
				continue
			}
			seen[rk] = struct{}{}
			relatedKeys = append(relatedKeys, k)
		}
	}
	if len(relatedKeys) == 0 {
		return nil, nil
	}

	refs, err := h.fetchRefs(ctx, kind, relatedKeys)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]models.EntityRef, len(links))
	for pk, related := range links {
		for _, k := range related {
			if ref, ok := lookupRef(refs, k.id, k.instance); ok {
				out[pk] = append(out[pk], ref)
			}
		}
		sortRefs(out[pk])
	}
	return out, nil
}

func sortRefs(refs []models.EntityRef) {
	sort.Slice(refs, func(i, j int) bool {
		a, b := strings.ToLower(refs[i].Name), strings.ToLower(refs[j].Name)
		if a != b {
			return a < b
		}
		return refs[i].ID < refs[j].ID
	})
}

// studioRefs resolves direct studio_id columns to refs for the given
// (studioID, rowInstance) pairs. Rows without a studio are skipped.
func (h *Hydrator) studioRefs(ctx context.Context, keys []entityKey) (map[string]models.EntityRef, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	return h.fetchRefs(ctx, models.KindStudio, keys)
}

// HydrateScenes fills studio, performer, tag, group, and gallery refs plus
// the inherited-tag IDs for one page of scenes.
func (h *Hydrator) HydrateScenes(ctx context.Context, scenes []*models.Scene) error {
	if len(scenes) == 0 {
		return nil
	}

	parents := make([]entityKey, len(scenes))
	var studioKeys []entityKey
	for i, s := range scenes {
		parents[i] = entityKey{id: s.ID, instance: s.Instance}
		if s.StudioID != nil && *s.StudioID != "" {
			studioKeys = append(studioKeys, entityKey{id: *s.StudioID, instance: s.Instance})
		}
	}

	performers, err := h.resolveRelation(ctx, "scene_performers", "scene_id", "performer_id", models.KindPerformer, parents)
	if err != nil {
		return err
	}
	tags, err := h.resolveRelation(ctx, "scene_tags", "scene_id", "tag_id", models.KindTag, parents)
	if err != nil {
		return err
	}
	groups, err := h.resolveRelation(ctx, "scene_groups", "scene_id", "group_id", models.KindGroup, parents)
	if err != nil {
		return err
	}
	galleries, err := h.resolveRelation(ctx, "scene_galleries", "scene_id", "gallery_id", models.KindGallery, parents)
	if err != nil {
		return err
	}
	inherited, err := h.fetchLinks(ctx, "scene_inherited_tags", "scene_id", "tag_id", parents)
	if err != nil {
		return err
	}
	studios, err := h.studioRefs(ctx, studioKeys)
	if err != nil {
		return err
	}

	for _, s := range scenes {
		pk := models.RefKey(s.ID, s.Instance)
		s.Performers = performers[pk]
		s.Tags = tags[pk]
		s.Groups = groups[pk]
		s.Galleries = galleries[pk]
		for _, k := range inherited[pk] {
			s.InheritedTagIDs = append(s.InheritedTagIDs, k.id)
		}
		sort.Strings(s.InheritedTagIDs)
		if s.StudioID != nil {
			if ref, ok := lookupRef(studios, *s.StudioID, s.Instance); ok {
				s.Studio = &ref
			}
		}
	}
	return nil
}

// HydrateImages fills studio, performer, tag, and gallery refs.
func (h *Hydrator) HydrateImages(ctx context.Context, images []*models.Image) error {
	if len(images) == 0 {
		return nil
	}

	parents := make([]entityKey, len(images))
	var studioKeys []entityKey
	for i, img := range images {
		parents[i] = entityKey{id: img.ID, instance: img.Instance}
		if img.StudioID != nil && *img.StudioID != "" {
			studioKeys = append(studioKeys, entityKey{id: *img.StudioID, instance: img.Instance})
		}
	}

	performers, err := h.resolveRelation(ctx, "image_performers", "image_id", "performer_id", models.KindPerformer, parents)
	if err != nil {
		return err
	}
	tags, err := h.resolveRelation(ctx, "image_tags", "image_id", "tag_id", models.KindTag, parents)
	if err != nil {
		return err
	}
	galleries, err := h.resolveRelation(ctx, "image_galleries", "image_id", "gallery_id", models.KindGallery, parents)
	if err != nil {
		return err
	}
	studios, err := h.studioRefs(ctx, studioKeys)
	if err != nil {
		return err
	}

	for _, img := range images {
		pk := models.RefKey(img.ID, img.Instance)
		img.Performers = performers[pk]
		img.Tags = tags[pk]
		img.Galleries = galleries[pk]
		if img.StudioID != nil {
			if ref, ok := lookupRef(studios, *img.StudioID, img.Instance); ok {
				img.Studio = &ref
			}
		}
	}
	return nil
}

// HydrateGalleries fills studio, performer, and tag refs.
func (h *Hydrator) HydrateGalleries(ctx context.Context, galleries []*models.Gallery) error {
	if len(galleries) == 0 {
		return nil
	}

	parents := make([]entityKey, len(galleries))
	var studioKeys []entityKey
	for i, g := range galleries {
		parents[i] = entityKey{id: g.ID, instance: g.Instance}
		if g.StudioID != nil && *g.StudioID != "" {
			studioKeys = append(studioKeys, entityKey{id: *g.StudioID, instance: g.Instance})
		}
	}

	performers, err := h.resolveRelation(ctx, "gallery_performers", "gallery_id", "performer_id", models.KindPerformer, parents)
	if err != nil {
		return err
	}
	tags, err := h.resolveRelation(ctx, "gallery_tags", "gallery_id", "tag_id", models.KindTag, parents)
	if err != nil {
		return err
	}
	studios, err := h.studioRefs(ctx, studioKeys)
	if err != nil {
		return err
	}

	for _, g := range galleries {
		pk := models.RefKey(g.ID, g.Instance)
		g.Performers = performers[pk]
		g.Tags = tags[pk]
		if g.StudioID != nil {
			if ref, ok := lookupRef(studios, *g.StudioID, g.Instance); ok {
				g.Studio = &ref
			}
		}
	}
	return nil
}

// HydratePerformers fills tag refs.
func (h *Hydrator) HydratePerformers(ctx context.Context, performers []*models.Performer) error {
	if len(performers) == 0 {
		return nil
	}
	parents := make([]entityKey, len(performers))
	for i, p := range performers {
		parents[i] = entityKey{id: p.ID, instance: p.Instance}
	}
	tags, err := h.resolveRelation(ctx, "performer_tags", "performer_id", "tag_id", models.KindTag, parents)
	if err != nil {
		return err
	}
	for _, p := range performers {
		p.Tags = tags[models.RefKey(p.ID, p.Instance)]
	}
	return nil
}

// HydrateStudios fills tag refs.
func (h *Hydrator) HydrateStudios(ctx context.Context, studios []*models.Studio) error {
	if len(studios) == 0 {
		return nil
	}
	parents := make([]entityKey, len(studios))
	for i, st := range studios {
		parents[i] = entityKey{id: st.ID, instance: st.Instance}
	}
	tags, err := h.resolveRelation(ctx, "studio_tags", "studio_id", "tag_id", models.KindTag, parents)
	if err != nil {
		return err
	}
	for _, st := range studios {
		st.Tags = tags[models.RefKey(st.ID, st.Instance)]
	}
	return nil
}

// HydrateTags fills parent-tag IDs.
func (h *Hydrator) HydrateTags(ctx context.Context, tags []*models.Tag) error {
	if len(tags) == 0 {
		return nil
	}
	parents := make([]entityKey, len(tags))
	for i, t := range tags {
		parents[i] = entityKey{id: t.ID, instance: t.Instance}
	}
	links, err := h.fetchLinks(ctx, "tag_parents", "tag_id", "parent_id", parents)
	if err != nil {
		return err
	}
	for _, t := range tags {
		for _, k := range links[models.RefKey(t.ID, t.Instance)] {
			t.ParentIDs = append(t.ParentIDs, k.id)
		}
		sort.Strings(t.ParentIDs)
	}
	return nil
}

// HydrateGroups fills tag refs and containing-group IDs.
func (h *Hydrator) HydrateGroups(ctx context.Context, groups []*models.Group) error {
	if len(groups) == 0 {
		return nil
	}

	parents := make([]entityKey, len(groups))
	for i, g := range groups {
		parents[i] = entityKey{id: g.ID, instance: g.Instance}
	}

	tags, err := h.resolveRelation(ctx, "group_tags", "group_id", "tag_id", models.KindTag, parents)
	if err != nil {
		return err
	}
	containing, err := h.fetchLinks(ctx, "group_parents", "group_id", "parent_id", parents)
	if err != nil {
		return err
	}

	for _, g := range groups {
		pk := models.RefKey(g.ID, g.Instance)
		g.Tags = tags[pk]
		for _, k := range containing[pk] {
			g.ContainingGroupIDs = append(g.ContainingGroupIDs, k.id)
		}
		sort.Strings(g.ContainingGroupIDs)
	}
	return nil
}

// HydrateClips fills tag refs.
func (h *Hydrator) HydrateClips(ctx context.Context, clips []*models.Clip) error {
	if len(clips) == 0 {
		return nil
	}
	parents := make([]entityKey, len(clips))
	for i, c := range clips {
		parents[i] = entityKey{id: c.ID, instance: c.Instance}
	}
	tags, err := h.resolveRelation(ctx, "clip_tags", "clip_id", "tag_id", models.KindTag, parents)
	if err != nil {
		return err
	}
	for _, c := range clips {
		c.Tags = tags[models.RefKey(c.ID, c.Instance)]
	}
	return nil
}
