// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

/*
schema.go - Mirror Store Schema Management

Tables:
  - Entity tables (scenes, images, galleries, performers, studios, tags,
    groups, clips): one row per upstream entity, keyed (id, instance). An
    empty instance marks a legacy single-instance row. deleted_at is the
    soft-delete marker; readers always filter on it.
  - Junction tables: many-to-many associations carrying the composite key of
    both sides. Junctions are deleted and reinserted per sync batch.
  - scene_inherited_tags: derived junction materialized by the post-sync
    inheritance pass; never written by the sync batch processor.
  - sync_state: per (instance, entity_type) cursors and last-run stats.
  - user_*: hides, restrictions, the materialized exclusion index, visible
    counts, and the rating/favorite overlay.
  - instances: upstream server configs loaded into the registry at startup.

Index Strategy:
  - (id, instance) primary keys on every entity table.
  - deleted_at partial-filter columns indexed for the visibility predicate.
  - Junction columns indexed on both parent and child keys for exclusion
    cascades and query joins.
*/
package database

import (
	"context"
	"fmt"
)

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), schemaOpTimeout)
}

// createTables creates the core mirror tables.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema statement: %s: %w", query[:min(len(query), 80)], err)
		}
	}
	return nil
}

func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS scenes (
			id TEXT NOT NULL,
			instance TEXT NOT NULL DEFAULT '',
			title TEXT,
			code TEXT,
			date TEXT,
			details TEXT,
			director TEXT,
			studio_id TEXT,
			path TEXT,
			video_codec TEXT,
			width INTEGER,
			height INTEGER,
			bitrate BIGINT,
			size BIGINT,
			duration DOUBLE,
			screenshot_path TEXT,
			preview_path TEXT,
			sprite_path TEXT,
			vtt_path TEXT,
			stream_path TEXT,
			captions_path TEXT,
			play_count INTEGER,
			play_duration DOUBLE,
			o_counter INTEGER,
			phash TEXT,
			fingerprints TEXT,
			created_at TEXT,
			updated_at TEXT,
			deleted_at TIMESTAMP,
			PRIMARY KEY (id, instance)
		)`,

		`CREATE TABLE IF NOT EXISTS images (
			id TEXT NOT NULL,
			instance TEXT NOT NULL DEFAULT '',
			title TEXT,
			date TEXT,
			details TEXT,
			photographer TEXT,
			studio_id TEXT,
			path TEXT,
			width INTEGER,
			height INTEGER,
			size BIGINT,
			thumbnail_path TEXT,
			preview_path TEXT,
			image_path TEXT,
			o_counter INTEGER,
			created_at TEXT,
			updated_at TEXT,
			deleted_at TIMESTAMP,
			PRIMARY KEY (id, instance)
		)`,

		`CREATE TABLE IF NOT EXISTS galleries (
			id TEXT NOT NULL,
			instance TEXT NOT NULL DEFAULT '',
			title TEXT,
			date TEXT,
			details TEXT,
			photographer TEXT,
			studio_id TEXT,
			cover_image_id TEXT,
			image_count INTEGER DEFAULT 0,
			created_at TEXT,
			updated_at TEXT,
			deleted_at TIMESTAMP,
			PRIMARY KEY (id, instance)
		)`,

		`CREATE TABLE IF NOT EXISTS performers (
			id TEXT NOT NULL,
			instance TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			disambiguation TEXT,
			gender TEXT,
			birthdate TEXT,
			country TEXT,
			details TEXT,
			image_path TEXT,
			scene_count INTEGER DEFAULT 0,
			image_count INTEGER DEFAULT 0,
			gallery_image_count INTEGER DEFAULT 0,
			created_at TEXT,
			updated_at TEXT,
			deleted_at TIMESTAMP,
			PRIMARY KEY (id, instance)
		)`,

		`CREATE TABLE IF NOT EXISTS studios (
			id TEXT NOT NULL,
			instance TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			url TEXT,
			details TEXT,
			parent_id TEXT,
			image_path TEXT,
			scene_count INTEGER DEFAULT 0,
			image_count INTEGER DEFAULT 0,
			gallery_image_count INTEGER DEFAULT 0,
			created_at TEXT,
			updated_at TEXT,
			deleted_at TIMESTAMP,
			PRIMARY KEY (id, instance)
		)`,

		`CREATE TABLE IF NOT EXISTS tags (
			id TEXT NOT NULL,
			instance TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			description TEXT,
			image_path TEXT,
			scene_count INTEGER DEFAULT 0,
			image_count INTEGER DEFAULT 0,
			scene_count_via_performer INTEGER DEFAULT 0,
			gallery_image_count INTEGER DEFAULT 0,
			created_at TEXT,
			updated_at TEXT,
			deleted_at TIMESTAMP,
			PRIMARY KEY (id, instance)
		)`,

		`CREATE TABLE IF NOT EXISTS groups (
			id TEXT NOT NULL,
			instance TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			date TEXT,
			details TEXT,
			studio_id TEXT,
			front_path TEXT,
			back_path TEXT,
			scene_count INTEGER DEFAULT 0,
			created_at TEXT,
			updated_at TEXT,
			deleted_at TIMESTAMP,
			PRIMARY KEY (id, instance)
		)`,

		`CREATE TABLE IF NOT EXISTS clips (
			id TEXT NOT NULL,
			instance TEXT NOT NULL DEFAULT '',
			scene_id TEXT NOT NULL,
			title TEXT,
			seconds DOUBLE NOT NULL DEFAULT 0,
			end_seconds DOUBLE,
			primary_tag_id TEXT,
			preview_path TEXT,
			screenshot_path TEXT,
			stream_path TEXT,
			is_generated BOOLEAN,
			created_at TEXT,
			updated_at TEXT,
			deleted_at TIMESTAMP,
			PRIMARY KEY (id, instance)
		)`,

		// Junction tables. parent columns first, related columns second;
		// both carry (id, instance).
		junctionTable("scene_performers", "scene_id", "performer_id"),
		junctionTable("scene_tags", "scene_id", "tag_id"),
		junctionTable("scene_groups", "scene_id", "group_id"),
		junctionTable("scene_galleries", "scene_id", "gallery_id"),
		junctionTable("scene_inherited_tags", "scene_id", "tag_id"),
		junctionTable("image_performers", "image_id", "performer_id"),
		junctionTable("image_tags", "image_id", "tag_id"),
		junctionTable("image_galleries", "image_id", "gallery_id"),
		junctionTable("gallery_performers", "gallery_id", "performer_id"),
		junctionTable("gallery_tags", "gallery_id", "tag_id"),
		junctionTable("performer_tags", "performer_id", "tag_id"),
		junctionTable("studio_tags", "studio_id", "tag_id"),
		junctionTable("group_tags", "group_id", "tag_id"),
		junctionTable("clip_tags", "clip_id", "tag_id"),
		junctionTable("tag_parents", "tag_id", "parent_id"),
		junctionTable("group_parents", "group_id", "parent_id"),

		`CREATE TABLE IF NOT EXISTS sync_state (
			instance TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			full_cursor TEXT,
			incremental_cursor TEXT,
			last_run_at TIMESTAMP,
			last_run_duration_ms BIGINT DEFAULT 0,
			last_run_count INTEGER DEFAULT 0,
			last_error TEXT,
			PRIMARY KEY (instance, entity_type)
		)`,

		`CREATE TABLE IF NOT EXISTS user_hidden_entities (
			user_id TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			instance TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, entity_type, entity_id, instance)
		)`,

		`CREATE TABLE IF NOT EXISTS user_content_restrictions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			mode TEXT NOT NULL,
			entity_ids TEXT NOT NULL,
			restrict_empty BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS user_excluded_entities (
			user_id TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			instance TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL,
			PRIMARY KEY (user_id, entity_type, entity_id, instance)
		)`,

		`CREATE TABLE IF NOT EXISTS user_entity_stats (
			user_id TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			instance TEXT NOT NULL DEFAULT '',
			visible_count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, entity_type, instance)
		)`,

		`CREATE TABLE IF NOT EXISTS user_overlays (
			user_id TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			instance TEXT NOT NULL DEFAULT '',
			rating INTEGER,
			favorite BOOLEAN DEFAULT FALSE,
			PRIMARY KEY (user_id, entity_type, entity_id, instance)
		)`,

		`CREATE TABLE IF NOT EXISTS instances (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			base_url TEXT NOT NULL,
			api_key TEXT,
			enabled BOOLEAN DEFAULT TRUE,
			priority INTEGER DEFAULT 0
		)`,
	}
}

// junctionTable builds a CREATE TABLE statement for a four-column junction.
func junctionTable(name, parentCol, relatedCol string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		%s TEXT NOT NULL,
		parent_instance TEXT NOT NULL DEFAULT '',
		%s TEXT NOT NULL,
		related_instance TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (%s, parent_instance, %s, related_instance)
	)`, name, parentCol, relatedCol, parentCol, relatedCol)
}

// createIndexes creates secondary indexes for visibility predicates,
// exclusion joins, and junction lookups.
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_scenes_deleted ON scenes(deleted_at)",
		"CREATE INDEX IF NOT EXISTS idx_scenes_studio ON scenes(studio_id, instance)",
		"CREATE INDEX IF NOT EXISTS idx_scenes_phash ON scenes(phash)",
		"CREATE INDEX IF NOT EXISTS idx_scenes_updated ON scenes(instance, updated_at)",
		"CREATE INDEX IF NOT EXISTS idx_images_deleted ON images(deleted_at)",
		"CREATE INDEX IF NOT EXISTS idx_images_studio ON images(studio_id, instance)",
		"CREATE INDEX IF NOT EXISTS idx_galleries_deleted ON galleries(deleted_at)",
		"CREATE INDEX IF NOT EXISTS idx_performers_deleted ON performers(deleted_at)",
		"CREATE INDEX IF NOT EXISTS idx_studios_deleted ON studios(deleted_at)",
		"CREATE INDEX IF NOT EXISTS idx_studios_parent ON studios(parent_id, instance)",
		"CREATE INDEX IF NOT EXISTS idx_tags_deleted ON tags(deleted_at)",
		"CREATE INDEX IF NOT EXISTS idx_groups_deleted ON groups(deleted_at)",
		"CREATE INDEX IF NOT EXISTS idx_clips_deleted ON clips(deleted_at)",
		"CREATE INDEX IF NOT EXISTS idx_clips_scene ON clips(scene_id, instance)",
		"CREATE INDEX IF NOT EXISTS idx_excluded_lookup ON user_excluded_entities(user_id, entity_type, entity_id, instance)",
		"CREATE INDEX IF NOT EXISTS idx_hidden_user ON user_hidden_entities(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_overlays_lookup ON user_overlays(user_id, entity_type, entity_id, instance)",
		"CREATE INDEX IF NOT EXISTS idx_scene_performers_related ON scene_performers(performer_id, related_instance)",
		"CREATE INDEX IF NOT EXISTS idx_scene_tags_related ON scene_tags(tag_id, related_instance)",
		"CREATE INDEX IF NOT EXISTS idx_scene_groups_related ON scene_groups(group_id, related_instance)",
		"CREATE INDEX IF NOT EXISTS idx_scene_galleries_related ON scene_galleries(gallery_id, related_instance)",
		"CREATE INDEX IF NOT EXISTS idx_scene_inherited_tags_related ON scene_inherited_tags(tag_id, related_instance)",
		"CREATE INDEX IF NOT EXISTS idx_image_galleries_related ON image_galleries(gallery_id, related_instance)",
		"CREATE INDEX IF NOT EXISTS idx_image_performers_related ON image_performers(performer_id, related_instance)",
		"CREATE INDEX IF NOT EXISTS idx_image_tags_related ON image_tags(tag_id, related_instance)",
		"CREATE INDEX IF NOT EXISTS idx_performer_tags_related ON performer_tags(tag_id, related_instance)",
		"CREATE INDEX IF NOT EXISTS idx_studio_tags_related ON studio_tags(tag_id, related_instance)",
		"CREATE INDEX IF NOT EXISTS idx_group_tags_related ON group_tags(tag_id, related_instance)",
		"CREATE INDEX IF NOT EXISTS idx_gallery_tags_related ON gallery_tags(tag_id, related_instance)",
		"CREATE INDEX IF NOT EXISTS idx_gallery_performers_related ON gallery_performers(performer_id, related_instance)",
		"CREATE INDEX IF NOT EXISTS idx_tag_parents_related ON tag_parents(parent_id, related_instance)",
		"CREATE INDEX IF NOT EXISTS idx_group_parents_related ON group_parents(parent_id, related_instance)",
	}

	for _, idx := range indexes {
		if _, err := db.conn.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", idx, err)
		}
	}
	return nil
}
