// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

// Package derive materializes the denormalized fields the mirror exposes to
// the query layer: scene inherited tags, gallery-to-image inheritance, and
// the aggregate counts that fold gallery membership into per-entity totals.
//
// Passes run sequentially after a sync touched content kinds; each pass is a
// pure function over the mirror and is safe to re-run.
package derive

import (
	"context"
	"fmt"
	"time"

	"github.com/curator-app/curator/internal/database"
	"github.com/curator-app/curator/internal/logging"
	"github.com/curator-app/curator/internal/metrics"
)

// Runner executes the derivation passes against the mirror store.
type Runner struct {
	db *database.DB
}

// NewRunner builds a derivation runner.
func NewRunner(db *database.DB) *Runner {
	return &Runner{db: db}
}

// RunAll executes every pass in dependency order: inherited tags first
// (exclusion cascades read them), then gallery inheritance, then the
// aggregate counts that depend on the inherited junctions.
func (r *Runner) RunAll(ctx context.Context) error {
	passes := []struct {
		name string
		run  func(context.Context) error
	}{
		{"scene_inherited_tags", r.rebuildSceneInheritedTags},
		{"gallery_image_inheritance", r.inheritGalleryFieldsToImages},
		{"gallery_image_counts", r.refreshGalleryImageCounts},
		{"tag_scene_count_via_performer", r.refreshTagSceneCountViaPerformer},
	}

	for _, pass := range passes {
		start := time.Now()
		if err := pass.run(ctx); err != nil {
			return fmt.Errorf("derivation pass %s failed: %w", pass.name, err)
		}
		duration := time.Since(start)
		metrics.DerivationDuration.WithLabelValues(pass.name).Observe(duration.Seconds())
		logging.Debug().Str("pass", pass.name).Dur("duration", duration).Msg("Derivation pass completed")
	}
	return nil
}

// rebuildSceneInheritedTags rematerializes the derived tag junction: every
// tag a live scene carries through its performers, studio, or groups, minus
// the scene's own direct tags. Full delete-and-rebuild inside one
// transaction so readers never see a partial set.
func (r *Runner) rebuildSceneInheritedTags(ctx context.Context) error {
	tx, txCtx, cancel, err := r.db.BeginTx(ctx, database.ClearDataTimeout)
	if err != nil {
		return err
	}
	defer cancel()
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(txCtx, "DELETE FROM scene_inherited_tags"); err != nil {
		return fmt.Errorf("failed to clear inherited tags: %w", err)
	}

	sources := []string{
		// Via performers.
		`SELECT sp.scene_id, sp.parent_instance, pt.tag_id, pt.related_instance
		 FROM scene_performers sp
		 JOIN performer_tags pt
		   ON pt.performer_id = sp.performer_id AND pt.parent_instance = sp.related_instance`,
		// Via the owning studio.
		`SELECT s.id, s.instance, st.tag_id, st.related_instance
		 FROM scenes s
		 JOIN studio_tags st
		   ON st.studio_id = s.studio_id AND st.parent_instance = s.instance`,
		// Via groups.
		`SELECT sg.scene_id, sg.parent_instance, gt.tag_id, gt.related_instance
		 FROM scene_groups sg
		 JOIN group_tags gt
		   ON gt.group_id = sg.group_id AND gt.parent_instance = sg.related_instance`,
	}

	for _, source := range sources {
		query := fmt.Sprintf(`
			INSERT INTO scene_inherited_tags (scene_id, parent_instance, tag_id, related_instance)
			SELECT DISTINCT src.* FROM (%s) src(scene_id, parent_instance, tag_id, related_instance)
			JOIN scenes sc ON sc.id = src.scene_id AND sc.instance = src.parent_instance
			WHERE sc.deleted_at IS NULL
			  AND NOT EXISTS (
				SELECT 1 FROM scene_tags dt
				WHERE dt.scene_id = src.scene_id AND dt.parent_instance = src.parent_instance
				  AND dt.tag_id = src.tag_id AND dt.related_instance = src.related_instance)
			ON CONFLICT DO NOTHING`, source)
		if _, err := tx.ExecContext(txCtx, query); err != nil {
			return fmt.Errorf("failed to insert inherited tags: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit inherited tag rebuild: %w", err)
	}
	return nil
}

// imageInheritableFields are the scalar fields an image null-fills from its
// first-by-id containing gallery.
var imageInheritableFields = []string{"studio_id", "date", "photographer", "details"}

// inheritGalleryFieldsToImages null-fills image scalars from the first
// containing gallery that has a value, and copies gallery performer/tag
// junctions onto images that have none of that kind. Existing image values
// and junctions are never overwritten.
func (r *Runner) inheritGalleryFieldsToImages(ctx context.Context) error {
	tx, txCtx, cancel, err := r.db.BeginTx(ctx, database.ClearDataTimeout)
	if err != nil {
		return err
	}
	defer cancel()
	defer func() { _ = tx.Rollback() }()

	for _, field := range imageInheritableFields {
		query := fmt.Sprintf(`
			UPDATE images SET %[1]s = (
				SELECT g.%[1]s FROM image_galleries ig
				JOIN galleries g ON g.id = ig.gallery_id AND g.instance = ig.related_instance
				WHERE ig.image_id = images.id AND ig.parent_instance = images.instance
				  AND g.%[1]s IS NOT NULL AND g.deleted_at IS NULL
				ORDER BY g.id LIMIT 1)
			WHERE %[1]s IS NULL AND deleted_at IS NULL
			  AND EXISTS (
				SELECT 1 FROM image_galleries ig
				JOIN galleries g ON g.id = ig.gallery_id AND g.instance = ig.related_instance
				WHERE ig.image_id = images.id AND ig.parent_instance = images.instance
				  AND g.%[1]s IS NOT NULL AND g.deleted_at IS NULL)`, field)
		if _, err := tx.ExecContext(txCtx, query); err != nil {
			return fmt.Errorf("failed to inherit %s from galleries: %w", field, err)
		}
	}

	junctionCopies := []struct{ target, source, relatedCol string }{
		{"image_performers", "gallery_performers", "performer_id"},
		{"image_tags", "gallery_tags", "tag_id"},
	}
	for _, jc := range junctionCopies {
		query := fmt.Sprintf(`
			INSERT INTO %[1]s (image_id, parent_instance, %[3]s, related_instance)
			SELECT DISTINCT ig.image_id, ig.parent_instance, gj.%[3]s, gj.related_instance
			FROM image_galleries ig
			JOIN %[2]s gj ON gj.gallery_id = ig.gallery_id AND gj.parent_instance = ig.related_instance
			WHERE NOT EXISTS (
				SELECT 1 FROM %[1]s own
				WHERE own.image_id = ig.image_id AND own.parent_instance = ig.parent_instance)
			ON CONFLICT DO NOTHING`, jc.target, jc.source, jc.relatedCol)
		if _, err := tx.ExecContext(txCtx, query); err != nil {
			return fmt.Errorf("failed to copy %s onto images: %w", jc.source, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit gallery inheritance: %w", err)
	}
	return nil
}

// refreshGalleryImageCounts recomputes, per performer/studio/tag, the count
// of distinct live images that reference the entity directly or belong to a
// gallery that does.
func (r *Runner) refreshGalleryImageCounts(ctx context.Context) error {
	queries := map[string]string{
		"performers": `
			UPDATE performers SET gallery_image_count = (
				SELECT COUNT(*) FROM (
					SELECT ip.image_id, ip.parent_instance FROM image_performers ip
					WHERE ip.performer_id = performers.id AND ip.related_instance = performers.instance
					UNION
					SELECT ig.image_id, ig.parent_instance FROM image_galleries ig
					JOIN gallery_performers gp
					  ON gp.gallery_id = ig.gallery_id AND gp.parent_instance = ig.related_instance
					WHERE gp.performer_id = performers.id AND gp.related_instance = performers.instance
				) u
				JOIN images i ON i.id = u.image_id AND i.instance = u.parent_instance
				WHERE i.deleted_at IS NULL)`,
		"studios": `
			UPDATE studios SET gallery_image_count = (
				SELECT COUNT(*) FROM (
					SELECT i.id AS image_id, i.instance AS parent_instance FROM images i
					WHERE i.studio_id = studios.id AND i.instance = studios.instance
					UNION
					SELECT ig.image_id, ig.parent_instance FROM image_galleries ig
					JOIN galleries g ON g.id = ig.gallery_id AND g.instance = ig.related_instance
					WHERE g.studio_id = studios.id AND g.instance = studios.instance AND g.deleted_at IS NULL
				) u
				JOIN images i ON i.id = u.image_id AND i.instance = u.parent_instance
				WHERE i.deleted_at IS NULL)`,
		"tags": `
			UPDATE tags SET gallery_image_count = (
				SELECT COUNT(*) FROM (
					SELECT it.image_id, it.parent_instance FROM image_tags it
					WHERE it.tag_id = tags.id AND it.related_instance = tags.instance
					UNION
					SELECT ig.image_id, ig.parent_instance FROM image_galleries ig
					JOIN gallery_tags gt
					  ON gt.gallery_id = ig.gallery_id AND gt.parent_instance = ig.related_instance
					WHERE gt.tag_id = tags.id AND gt.related_instance = tags.instance
				) u
				JOIN images i ON i.id = u.image_id AND i.instance = u.parent_instance
				WHERE i.deleted_at IS NULL)`,
	}

	for table, query := range queries {
		if _, err := r.db.Conn().ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to refresh gallery image counts for %s: %w", table, err)
		}
	}
	return nil
}

// refreshTagSceneCountViaPerformer recomputes, per tag, the count of
// distinct live scenes whose performers carry that tag.
func (r *Runner) refreshTagSceneCountViaPerformer(ctx context.Context) error {
	query := `
		UPDATE tags SET scene_count_via_performer = (
			SELECT COUNT(*) FROM (
				SELECT DISTINCT sp.scene_id, sp.parent_instance
				FROM scene_performers sp
				JOIN performer_tags pt
				  ON pt.performer_id = sp.performer_id AND pt.parent_instance = sp.related_instance
				WHERE pt.tag_id = tags.id AND pt.related_instance = tags.instance
			) u
			JOIN scenes s ON s.id = u.scene_id AND s.instance = u.parent_instance
			WHERE s.deleted_at IS NULL)`
	if _, err := r.db.Conn().ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to refresh scene counts via performer: %w", err)
	}
	return nil
}
