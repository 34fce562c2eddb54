// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package exclusion

import (
	"context"
	"fmt"

	"github.com/curator-app/curator/internal/logging"
	"github.com/curator-app/curator/internal/models"
)

// compute assembles the complete exclusion set for one user: restriction
// rows, hides, the cascade closure over both, then empty-entity pruning.
// Pure reads; the caller commits the result.
func (e *Engine) compute(ctx context.Context, userID string) ([]models.ExcludedEntity, error) {
	set := newExclusionSet(userID)

	restrictions, err := e.db.ListContentRestrictions(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range restrictions {
		if err := e.applyRestriction(ctx, set, &restrictions[i]); err != nil {
			return nil, err
		}
	}

	hidden, err := e.db.ListHiddenEntities(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, h := range hidden {
		set.add(h.Kind, h.EntityID, h.Instance, models.ReasonHidden)
	}

	if err := e.cascade(ctx, set); err != nil {
		return nil, err
	}

	if err := e.appendEmpty(ctx, set); err != nil {
		return nil, err
	}

	return set.sorted(), nil
}

// applyRestriction adds one administrator rule's rows. Restrictions are
// global scope (empty instance): the same ID is blocked on every upstream.
func (e *Engine) applyRestriction(ctx context.Context, set *exclusionSet, r *models.ContentRestriction) error {
	kind, ok := models.KindFromPlural(r.KindPlural)
	if !ok {
		logging.Warn().Str("user", r.UserID).Str("entity_type", r.KindPlural).Msg("Skipping restriction with unknown entity type")
		return nil
	}

	switch r.Mode {
	case models.RestrictionExclude:
		for _, id := range r.EntityIDs {
			set.add(kind, id, "", models.ReasonRestricted)
		}
	case models.RestrictionInclude:
		mirrorIDs, err := e.db.ListLiveEntityIDs(ctx, kind)
		if err != nil {
			return err
		}
		for _, id := range invertAllowList(mirrorIDs, r.EntityIDs) {
			set.add(kind, id, "", models.ReasonRestricted)
		}
	default:
		logging.Warn().Str("user", r.UserID).Str("mode", string(r.Mode)).Msg("Skipping restriction with unknown mode")
		return nil
	}

	if r.RestrictEmpty {
		return e.applyRestrictEmpty(ctx, set, kind)
	}
	return nil
}

// orphanQueries selects live entities carrying no parent of a given kind.
// A restriction with restrictEmpty set pulls these in too: when access is
// gated on, say, studios, content with no studio at all is ungoverned by
// the rule and therefore blocked.
var orphanQueries = map[models.Kind][]struct {
	target models.Kind
	query  string
}{
	models.KindStudio: {
		{models.KindScene, `SELECT id, instance FROM scenes
			WHERE deleted_at IS NULL AND studio_id IS NULL`},
		{models.KindImage, `SELECT id, instance FROM images
			WHERE deleted_at IS NULL AND studio_id IS NULL`},
	},
	models.KindPerformer: {
		{models.KindScene, `SELECT s.id, s.instance FROM scenes s
			WHERE s.deleted_at IS NULL AND NOT EXISTS (
				SELECT 1 FROM scene_performers sp
				WHERE sp.scene_id = s.id AND sp.parent_instance = s.instance)`},
	},
	models.KindTag: {
		{models.KindScene, `SELECT s.id, s.instance FROM scenes s
			WHERE s.deleted_at IS NULL AND NOT EXISTS (
				SELECT 1 FROM scene_tags st
				WHERE st.scene_id = s.id AND st.parent_instance = s.instance)
			AND NOT EXISTS (
				SELECT 1 FROM scene_inherited_tags it
				WHERE it.scene_id = s.id AND it.parent_instance = s.instance)`},
	},
	models.KindGroup: {
		{models.KindScene, `SELECT s.id, s.instance FROM scenes s
			WHERE s.deleted_at IS NULL AND NOT EXISTS (
				SELECT 1 FROM scene_groups sg
				WHERE sg.scene_id = s.id AND sg.parent_instance = s.instance)`},
	},
	models.KindGallery: {
		{models.KindImage, `SELECT i.id, i.instance FROM images i
			WHERE i.deleted_at IS NULL AND NOT EXISTS (
				SELECT 1 FROM image_galleries ig
				WHERE ig.image_id = i.id AND ig.parent_instance = i.instance)`},
	},
}

// applyRestrictEmpty adds parentless dependents for one restricted kind.
// Kinds with no dependent content (scenes, images, clips) have no rows
// here and the flag is a no-op for them.
func (e *Engine) applyRestrictEmpty(ctx context.Context, set *exclusionSet, kind models.Kind) error {
	for _, oq := range orphanQueries[kind] {
		rows, err := e.db.Conn().QueryContext(ctx, oq.query)
		if err != nil {
			return fmt.Errorf("orphan query for %s failed: %w", kind, err)
		}
		for rows.Next() {
			var id, instance string
			if err := rows.Scan(&id, &instance); err != nil {
				_ = rows.Close()
				return fmt.Errorf("failed to scan orphan row: %w", err)
			}
			set.add(oq.target, id, instance, models.ReasonRestricted)
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return err
		}
		_ = rows.Close()
	}
	return nil
}

// invertAllowList returns every mirror ID absent from the allow list,
// preserving mirror order.
func invertAllowList(mirrorIDs, allowed []string) []string {
	allow := make(map[string]struct{}, len(allowed))
	for _, id := range allowed {
		allow[id] = struct{}{}
	}
	var excluded []string
	for _, id := range mirrorIDs {
		if _, ok := allow[id]; !ok {
			excluded = append(excluded, id)
		}
	}
	return excluded
}
