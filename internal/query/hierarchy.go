// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/curator-app/curator/internal/database"
)

// Expander resolves hierarchical filter IDs to their descendant sets before
// a clause is emitted. Tags form a multi-parent DAG that can contain cycles
// in upstream data, so every traversal carries a visited set; termination
// never relies on the graph being acyclic.
type Expander struct {
	db *database.DB
}

// NewExpander builds a hierarchy expander.
func NewExpander(db *database.DB) *Expander {
	return &Expander{db: db}
}

// ExpandTagIDs returns ids plus tag descendants down to depth levels
// (negative = unbounded). Depth 0 returns the input unchanged.
func (e *Expander) ExpandTagIDs(ctx context.Context, ids []string, depth int) ([]string, error) {
	return e.expand(ctx, ids, depth, e.tagChildren)
}

// ExpandStudioIDs returns ids plus studio descendants via the parent_id
// column.
func (e *Expander) ExpandStudioIDs(ctx context.Context, ids []string, depth int) ([]string, error) {
	return e.expand(ctx, ids, depth, e.studioChildren)
}

// ExpandGroupIDs returns ids plus contained groups via group_parents.
func (e *Expander) ExpandGroupIDs(ctx context.Context, ids []string, depth int) ([]string, error) {
	return e.expand(ctx, ids, depth, e.groupChildren)
}

// expand walks children() breadth-first to the requested depth, guarding
// against cycles with the visited set.
func (e *Expander) expand(ctx context.Context, ids []string, depth int,
	children func(context.Context, []string) ([]string, error)) ([]string, error) {
	if depth == 0 || len(ids) == 0 {
		return ids, nil
	}

	visited := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		visited[id] = struct{}{}
	}

	// The frontier is rewritten in place each level, so it must own its
	// backing array instead of sharing the caller's.
	frontier := append([]string(nil), ids...)
	for level := 0; depth < 0 || level < depth; level++ {
		if len(frontier) == 0 {
			break
		}
		found, err := children(ctx, frontier)
		if err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, id := range found {
			if _, seen := visited[id]; seen {
				continue
			}
			visited[id] = struct{}{}
			frontier = append(frontier, id)
		}
	}

	out := make([]string, 0, len(visited))
	for id := range visited {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (e *Expander) tagChildren(ctx context.Context, parents []string) ([]string, error) {
	return e.childQuery(ctx,
		"SELECT DISTINCT tag_id FROM tag_parents WHERE parent_id IN (%s)", parents)
}

func (e *Expander) studioChildren(ctx context.Context, parents []string) ([]string, error) {
	return e.childQuery(ctx,
		"SELECT DISTINCT id FROM studios WHERE deleted_at IS NULL AND parent_id IN (%s)", parents)
}

func (e *Expander) groupChildren(ctx context.Context, parents []string) ([]string, error) {
	return e.childQuery(ctx,
		"SELECT DISTINCT group_id FROM group_parents WHERE parent_id IN (%s)", parents)
}

func (e *Expander) childQuery(ctx context.Context, template string, parents []string) ([]string, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(parents)), ", ")
	args := make([]any, len(parents))
	for i, p := range parents {
		args[i] = p
	}

	rows, err := e.db.Conn().QueryContext(ctx, fmt.Sprintf(template, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("hierarchy expansion failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan hierarchy child: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
