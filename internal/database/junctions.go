// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package database

import (
	"context"
	"fmt"
)

// JunctionRow is one association between a batch parent and a related
// entity. RelatedInstance is normally the parent's instance but is kept
// explicit because legacy rows carry ''.
type JunctionRow struct {
	ParentID        string
	RelatedID       string
	RelatedInstance string
}

// JunctionTableSpec names a junction table and its key columns.
type JunctionTableSpec struct {
	Table      string
	ParentCol  string
	RelatedCol string
}

// Junction table specs keyed by parent kind, in the order the sync batch
// processor rewrites them.
var (
	SceneJunctions = []JunctionTableSpec{
		{Table: "scene_performers", ParentCol: "scene_id", RelatedCol: "performer_id"},
		{Table: "scene_tags", ParentCol: "scene_id", RelatedCol: "tag_id"},
		{Table: "scene_groups", ParentCol: "scene_id", RelatedCol: "group_id"},
		{Table: "scene_galleries", ParentCol: "scene_id", RelatedCol: "gallery_id"},
	}
	ImageJunctions = []JunctionTableSpec{
		{Table: "image_performers", ParentCol: "image_id", RelatedCol: "performer_id"},
		{Table: "image_tags", ParentCol: "image_id", RelatedCol: "tag_id"},
		{Table: "image_galleries", ParentCol: "image_id", RelatedCol: "gallery_id"},
	}
	GalleryJunctions = []JunctionTableSpec{
		{Table: "gallery_performers", ParentCol: "gallery_id", RelatedCol: "performer_id"},
		{Table: "gallery_tags", ParentCol: "gallery_id", RelatedCol: "tag_id"},
	}
	PerformerJunctions = []JunctionTableSpec{
		{Table: "performer_tags", ParentCol: "performer_id", RelatedCol: "tag_id"},
	}
	StudioJunctions = []JunctionTableSpec{
		{Table: "studio_tags", ParentCol: "studio_id", RelatedCol: "tag_id"},
	}
	GroupJunctions = []JunctionTableSpec{
		{Table: "group_tags", ParentCol: "group_id", RelatedCol: "tag_id"},
		{Table: "group_parents", ParentCol: "group_id", RelatedCol: "parent_id"},
	}
	TagJunctions = []JunctionTableSpec{
		{Table: "tag_parents", ParentCol: "tag_id", RelatedCol: "parent_id"},
	}
	ClipJunctions = []JunctionTableSpec{
		{Table: "clip_tags", ParentCol: "clip_id", RelatedCol: "tag_id"},
	}
)

// DeleteJunctionRows removes every junction row owned by the batch parents.
// Runs inside the batch transaction so the delete-then-reinsert sequence is
// atomic with the entity upsert.
func DeleteJunctionRows(ctx context.Context, ex execer, spec JunctionTableSpec, parentIDs []string, parentInstance string) error {
	for _, chunk := range chunkStrings(parentIDs, upsertChunkSize) {
		in, args := inPlaceholders(chunk)
		args = append(args, parentInstance)
		query := fmt.Sprintf("DELETE FROM %s WHERE %s IN %s AND parent_instance = ?",
			spec.Table, spec.ParentCol, in)
		if _, err := ex.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to delete junction rows from %s: %w", spec.Table, err)
		}
	}
	return nil
}

// InsertJunctionRows bulk-inserts junction rows with ON CONFLICT DO NOTHING
// so replays and duplicate upstream lists stay idempotent.
func InsertJunctionRows(ctx context.Context, ex execer, spec JunctionTableSpec, parentInstance string, rows []JunctionRow) error {
	if len(rows) == 0 {
		return nil
	}
	for start := 0; start < len(rows); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		query := fmt.Sprintf(
			"INSERT INTO %s (%s, parent_instance, %s, related_instance) VALUES %s ON CONFLICT DO NOTHING",
			spec.Table, spec.ParentCol, spec.RelatedCol, multiRowValues(len(chunk), 4),
		)
		args := make([]any, 0, len(chunk)*4)
		for _, row := range chunk {
			args = append(args, row.ParentID, parentInstance, row.RelatedID, row.RelatedInstance)
		}
		if _, err := ex.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert junction rows into %s: %w", spec.Table, err)
		}
	}
	return nil
}
