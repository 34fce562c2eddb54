// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

/*
empty.go - Empty-Entity Pruning

The last compute phase: organizational entities left with zero visible
content after restrictions, hides, and cascades are excluded too. The sets
accumulated so far are staged into connection-scoped temp tables so the
emptiness checks are plain NOT EXISTS SQL against the mirror; temp tables
and the queries reading them must share one acquired connection.

Rules:
  - gallery: no surviving image;
  - performer, studio: no surviving scene and no surviving image;
  - group: no surviving scene;
  - tag: unattached to any surviving scene/performer/studio/group, and no
    child tags (hierarchy parents are always kept).
*/
package exclusion

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/curator-app/curator/internal/models"
)

// excludedScope is the instance-match predicate between a staged exclusion
// row x and a mirror row aliased m: a global exclusion covers every
// instance, and a legacy empty-instance mirror row matches any scope.
const excludedScope = "(x.instance = %[1]s.instance OR x.instance = '' OR %[1]s.instance = '')"

// tempKinds are the kinds staged for the emptiness checks.
var tempKinds = []models.Kind{
	models.KindScene, models.KindImage, models.KindPerformer,
	models.KindStudio, models.KindGroup,
}

// appendEmpty adds reason-4 rows to the set.
func (e *Engine) appendEmpty(ctx context.Context, set *exclusionSet) error {
	conn, err := e.db.Conn().Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for empty pass: %w", err)
	}
	defer func() { _ = conn.Close() }()

	for _, kind := range tempKinds {
		if err := stageExcluded(ctx, conn, kind, set.byKind(kind)); err != nil {
			return err
		}
	}
	defer dropStaged(conn)

	checks := []struct {
		kind  models.Kind
		query string
	}{
		{models.KindGallery, emptyGalleryQuery},
		{models.KindPerformer, emptyPerformerQuery},
		{models.KindStudio, emptyStudioQuery},
		{models.KindGroup, emptyGroupQuery},
		{models.KindTag, emptyTagQuery},
	}
	for _, check := range checks {
		if err := collectEmpty(ctx, conn, set, check.kind, check.query); err != nil {
			return err
		}
	}
	return nil
}

// stageExcluded loads one kind's excluded refs into its temp table.
func stageExcluded(ctx context.Context, conn *sql.Conn, kind models.Kind, refs []entityRef) error {
	table := "temp_excluded_" + string(kind)
	if _, err := conn.ExecContext(ctx, fmt.Sprintf(
		"CREATE OR REPLACE TEMP TABLE %s (id TEXT, instance TEXT)", table)); err != nil {
		return fmt.Errorf("failed to create %s: %w", table, err)
	}

	for start := 0; start < len(refs); start += cascadeChunkSize {
		end := start + cascadeChunkSize
		if end > len(refs) {
			end = len(refs)
		}
		chunk := refs[start:end]

		values := ""
		args := make([]any, 0, len(chunk)*2)
		for i, ref := range chunk {
			if i > 0 {
				values += ", "
			}
			values += "(?, ?)"
			args = append(args, ref.ID, ref.Instance)
		}
		if _, err := conn.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (id, instance) VALUES %s", table, values), args...); err != nil {
			return fmt.Errorf("failed to stage rows into %s: %w", table, err)
		}
	}
	return nil
}

func dropStaged(conn *sql.Conn) {
	ctx := context.Background()
	for _, kind := range tempKinds {
		_, _ = conn.ExecContext(ctx, "DROP TABLE IF EXISTS temp_excluded_"+string(kind))
	}
}

// collectEmpty runs one emptiness query and adds its hits.
func collectEmpty(ctx context.Context, conn *sql.Conn, set *exclusionSet, kind models.Kind, query string) error {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("empty check for %s failed: %w", kind, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var ref entityRef
		if err := rows.Scan(&ref.ID, &ref.Instance); err != nil {
			return fmt.Errorf("failed to scan empty %s: %w", kind, err)
		}
		set.add(kind, ref.ID, ref.Instance, models.ReasonEmpty)
	}
	return rows.Err()
}

var emptyGalleryQuery = fmt.Sprintf(`
	SELECT g.id, g.instance FROM galleries g
	WHERE g.deleted_at IS NULL
	  AND NOT EXISTS (
		SELECT 1 FROM image_galleries ig
		JOIN images i ON i.id = ig.image_id AND i.instance = ig.parent_instance
		WHERE ig.gallery_id = g.id AND ig.related_instance = g.instance
		  AND i.deleted_at IS NULL
		  AND NOT EXISTS (SELECT 1 FROM temp_excluded_image x WHERE x.id = i.id AND %s))`,
	fmt.Sprintf(excludedScope, "i"))

var emptyPerformerQuery = fmt.Sprintf(`
	SELECT p.id, p.instance FROM performers p
	WHERE p.deleted_at IS NULL
	  AND NOT EXISTS (
		SELECT 1 FROM scene_performers sp
		JOIN scenes s ON s.id = sp.scene_id AND s.instance = sp.parent_instance
		WHERE sp.performer_id = p.id AND sp.related_instance = p.instance
		  AND s.deleted_at IS NULL
		  AND NOT EXISTS (SELECT 1 FROM temp_excluded_scene x WHERE x.id = s.id AND %s))
	  AND NOT EXISTS (
		SELECT 1 FROM image_performers ip
		JOIN images i ON i.id = ip.image_id AND i.instance = ip.parent_instance
		WHERE ip.performer_id = p.id AND ip.related_instance = p.instance
		  AND i.deleted_at IS NULL
		  AND NOT EXISTS (SELECT 1 FROM temp_excluded_image x WHERE x.id = i.id AND %s))`,
	fmt.Sprintf(excludedScope, "s"), fmt.Sprintf(excludedScope, "i"))

var emptyStudioQuery = fmt.Sprintf(`
	SELECT st.id, st.instance FROM studios st
	WHERE st.deleted_at IS NULL
	  AND NOT EXISTS (
		SELECT 1 FROM scenes s
		WHERE s.studio_id = st.id AND s.instance = st.instance
		  AND s.deleted_at IS NULL
		  AND NOT EXISTS (SELECT 1 FROM temp_excluded_scene x WHERE x.id = s.id AND %s))
	  AND NOT EXISTS (
		SELECT 1 FROM images i
		WHERE i.studio_id = st.id AND i.instance = st.instance
		  AND i.deleted_at IS NULL
		  AND NOT EXISTS (SELECT 1 FROM temp_excluded_image x WHERE x.id = i.id AND %s))`,
	fmt.Sprintf(excludedScope, "s"), fmt.Sprintf(excludedScope, "i"))

var emptyGroupQuery = fmt.Sprintf(`
	SELECT g.id, g.instance FROM groups g
	WHERE g.deleted_at IS NULL
	  AND NOT EXISTS (
		SELECT 1 FROM scene_groups sg
		JOIN scenes s ON s.id = sg.scene_id AND s.instance = sg.parent_instance
		WHERE sg.group_id = g.id AND sg.related_instance = g.instance
		  AND s.deleted_at IS NULL
		  AND NOT EXISTS (SELECT 1 FROM temp_excluded_scene x WHERE x.id = s.id AND %s))`,
	fmt.Sprintf(excludedScope, "s"))

var emptyTagQuery = fmt.Sprintf(`
	SELECT t.id, t.instance FROM tags t
	WHERE t.deleted_at IS NULL
	  AND NOT EXISTS (
		SELECT 1 FROM tag_parents tp
		WHERE tp.parent_id = t.id AND tp.related_instance = t.instance)
	  AND NOT EXISTS (
		SELECT 1 FROM scene_tags st
		JOIN scenes s ON s.id = st.scene_id AND s.instance = st.parent_instance
		WHERE st.tag_id = t.id AND st.related_instance = t.instance
		  AND s.deleted_at IS NULL
		  AND NOT EXISTS (SELECT 1 FROM temp_excluded_scene x WHERE x.id = s.id AND %[1]s))
	  AND NOT EXISTS (
		SELECT 1 FROM scene_inherited_tags it
		JOIN scenes s ON s.id = it.scene_id AND s.instance = it.parent_instance
		WHERE it.tag_id = t.id AND it.related_instance = t.instance
		  AND s.deleted_at IS NULL
		  AND NOT EXISTS (SELECT 1 FROM temp_excluded_scene x WHERE x.id = s.id AND %[1]s))
	  AND NOT EXISTS (
		SELECT 1 FROM performer_tags pt
		JOIN performers p ON p.id = pt.performer_id AND p.instance = pt.parent_instance
		WHERE pt.tag_id = t.id AND pt.related_instance = t.instance
		  AND p.deleted_at IS NULL
		  AND NOT EXISTS (SELECT 1 FROM temp_excluded_performer x WHERE x.id = p.id AND %[2]s))
	  AND NOT EXISTS (
		SELECT 1 FROM studio_tags stt
		JOIN studios sd ON sd.id = stt.studio_id AND sd.instance = stt.parent_instance
		WHERE stt.tag_id = t.id AND stt.related_instance = t.instance
		  AND sd.deleted_at IS NULL
		  AND NOT EXISTS (SELECT 1 FROM temp_excluded_studio x WHERE x.id = sd.id AND %[3]s))
	  AND NOT EXISTS (
		SELECT 1 FROM group_tags gt
		JOIN groups g ON g.id = gt.group_id AND g.instance = gt.parent_instance
		WHERE gt.tag_id = t.id AND gt.related_instance = t.instance
		  AND g.deleted_at IS NULL
		  AND NOT EXISTS (SELECT 1 FROM temp_excluded_group x WHERE x.id = g.id AND %[4]s))`,
	fmt.Sprintf(excludedScope, "s"), fmt.Sprintf(excludedScope, "p"),
	fmt.Sprintf(excludedScope, "sd"), fmt.Sprintf(excludedScope, "g"))
