// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

/*
cascade.go - Exclusion Cascade Closure

Fixed edge set, followed to a fixpoint over a frontier worklist:

	performer -> scenes featuring them
	studio    -> scenes of that studio
	tag       -> scenes tagged directly or through inherited tags,
	             performers/studios/groups carrying the tag
	group     -> scenes in the group
	gallery   -> scenes linked to it, images in it

A globally-scoped source (empty instance) cascades across every instance;
an instance-scoped source only within its own. Soft-deleted targets never
enter the set.
*/
package exclusion

import (
	"context"
	"fmt"
	"strings"

	"github.com/curator-app/curator/internal/models"
)

const cascadeChunkSize = 100

// edge is one cascade rule. The query selects target (id, instance) pairs
// for a chunk of source IDs; scopeCol is constrained when the source is
// instance-scoped.
type edge struct {
	target   models.Kind
	query    string
	scopeCol string
}

var cascadeEdges = map[models.Kind][]edge{
	models.KindPerformer: {
		{
			target: models.KindScene,
			query: `SELECT DISTINCT sp.scene_id, sp.parent_instance
				FROM scene_performers sp
				JOIN scenes s ON s.id = sp.scene_id AND s.instance = sp.parent_instance
				WHERE s.deleted_at IS NULL AND sp.performer_id IN (%s)`,
			scopeCol: "sp.related_instance",
		},
	},
	models.KindStudio: {
		{
			target: models.KindScene,
			query: `SELECT DISTINCT s.id, s.instance FROM scenes s
				WHERE s.deleted_at IS NULL AND s.studio_id IN (%s)`,
			scopeCol: "s.instance",
		},
	},
	models.KindTag: {
		{
			target: models.KindScene,
			query: `SELECT DISTINCT st.scene_id, st.parent_instance
				FROM scene_tags st
				JOIN scenes s ON s.id = st.scene_id AND s.instance = st.parent_instance
				WHERE s.deleted_at IS NULL AND st.tag_id IN (%s)`,
			scopeCol: "st.related_instance",
		},
		{
			target: models.KindScene,
			query: `SELECT DISTINCT it.scene_id, it.parent_instance
				FROM scene_inherited_tags it
				JOIN scenes s ON s.id = it.scene_id AND s.instance = it.parent_instance
				WHERE s.deleted_at IS NULL AND it.tag_id IN (%s)`,
			scopeCol: "it.related_instance",
		},
		{
			target: models.KindPerformer,
			query: `SELECT DISTINCT pt.performer_id, pt.parent_instance
				FROM performer_tags pt
				JOIN performers p ON p.id = pt.performer_id AND p.instance = pt.parent_instance
				WHERE p.deleted_at IS NULL AND pt.tag_id IN (%s)`,
			scopeCol: "pt.related_instance",
		},
		{
			target: models.KindStudio,
			query: `SELECT DISTINCT st.studio_id, st.parent_instance
				FROM studio_tags st
				JOIN studios s ON s.id = st.studio_id AND s.instance = st.parent_instance
				WHERE s.deleted_at IS NULL AND st.tag_id IN (%s)`,
			scopeCol: "st.related_instance",
		},
		{
			target: models.KindGroup,
			query: `SELECT DISTINCT gt.group_id, gt.parent_instance
				FROM group_tags gt
				JOIN groups g ON g.id = gt.group_id AND g.instance = gt.parent_instance
				WHERE g.deleted_at IS NULL AND gt.tag_id IN (%s)`,
			scopeCol: "gt.related_instance",
		},
	},
	models.KindGroup: {
		{
			target: models.KindScene,
			query: `SELECT DISTINCT sg.scene_id, sg.parent_instance
				FROM scene_groups sg
				JOIN scenes s ON s.id = sg.scene_id AND s.instance = sg.parent_instance
				WHERE s.deleted_at IS NULL AND sg.group_id IN (%s)`,
			scopeCol: "sg.related_instance",
		},
	},
	models.KindGallery: {
		{
			target: models.KindScene,
			query: `SELECT DISTINCT sg.scene_id, sg.parent_instance
				FROM scene_galleries sg
				JOIN scenes s ON s.id = sg.scene_id AND s.instance = sg.parent_instance
				WHERE s.deleted_at IS NULL AND sg.gallery_id IN (%s)`,
			scopeCol: "sg.related_instance",
		},
		{
			target: models.KindImage,
			query: `SELECT DISTINCT ig.image_id, ig.parent_instance
				FROM image_galleries ig
				JOIN images i ON i.id = ig.image_id AND i.instance = ig.parent_instance
				WHERE i.deleted_at IS NULL AND ig.gallery_id IN (%s)`,
			scopeCol: "ig.related_instance",
		},
	},
}

// cascade expands the set to its closure over the edge rules. The frontier
// starts as every row currently in the set; rows reached through an edge
// join the next frontier so multi-hop paths (tag -> performer -> scene)
// resolve.
func (e *Engine) cascade(ctx context.Context, set *exclusionSet) error {
	frontier := make(map[models.Kind][]entityRef)
	for _, row := range set.sorted() {
		frontier[row.Kind] = append(frontier[row.Kind], entityRef{ID: row.EntityID, Instance: row.Instance})
	}

	for len(frontier) > 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		next := make(map[models.Kind][]entityRef)

		for kind, refs := range frontier {
			for _, eg := range cascadeEdges[kind] {
				for scope, ids := range groupByInstance(refs) {
					targets, err := e.edgeTargets(ctx, eg, ids, scope)
					if err != nil {
						return err
					}
					for _, t := range targets {
						if set.add(eg.target, t.ID, t.Instance, models.ReasonCascade) {
							next[eg.target] = append(next[eg.target], t)
						}
					}
				}
			}
		}
		frontier = next
	}
	return nil
}

// edgeTargets runs one edge query for a set of source IDs sharing an
// instance scope.
func (e *Engine) edgeTargets(ctx context.Context, eg edge, ids []string, scope string) ([]entityRef, error) {
	var targets []entityRef
	for start := 0; start < len(ids); start += cascadeChunkSize {
		end := start + cascadeChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		query := fmt.Sprintf(eg.query, placeholders(len(chunk)))
		args := make([]any, 0, len(chunk)+1)
		for _, id := range chunk {
			args = append(args, id)
		}
		if scope != "" {
			query += fmt.Sprintf(" AND %s = ?", eg.scopeCol)
			args = append(args, scope)
		}

		rows, err := e.db.Conn().QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("cascade edge query failed: %w", err)
		}
		for rows.Next() {
			var ref entityRef
			if err := rows.Scan(&ref.ID, &ref.Instance); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("failed to scan cascade target: %w", err)
			}
			targets = append(targets, ref)
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, err
		}
		_ = rows.Close()
	}
	return targets, nil
}

// groupByInstance splits refs into per-scope ID lists; the empty scope is
// the global one.
func groupByInstance(refs []entityRef) map[string][]string {
	groups := make(map[string][]string)
	for _, ref := range refs {
		groups[ref.Instance] = append(groups[ref.Instance], ref.ID)
	}
	return groups
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
