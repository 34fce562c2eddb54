// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

/*
crud_entities.go - Batch Entity Upserts

One upsert per entity kind, each a multi-row INSERT ... ON CONFLICT
(id, instance) DO UPDATE. Every upsert clears deleted_at: an entity present
in an upstream fetch is alive by definition. Upserts run inside the sync
batch transaction supplied by the caller.
*/
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/curator-app/curator/internal/models"
)

// execer is satisfied by both *sql.Tx and *sql.DB so upserts can run inside
// the sync batch transaction or standalone (single-entity sync).
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// upsertRows issues chunked multi-row upserts for one table. updateCols are
// the non-key columns rewritten on conflict.
func upsertRows(ctx context.Context, ex execer, table string, columns []string, updateCols []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	sets := make([]string, 0, len(updateCols)+1)
	for _, col := range updateCols {
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", col, col))
	}
	sets = append(sets, "deleted_at = NULL")

	for start := 0; start < len(rows); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		query := fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES %s ON CONFLICT (id, instance) DO UPDATE SET %s",
			table, strings.Join(columns, ", "), multiRowValues(len(chunk), len(columns)), strings.Join(sets, ", "),
		)

		args := make([]any, 0, len(chunk)*len(columns))
		for _, row := range chunk {
			args = append(args, row...)
		}
		if _, err := ex.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to upsert into %s: %w", table, err)
		}
	}
	return nil
}

var sceneColumns = []string{
	"id", "instance", "title", "code", "date", "details", "director", "studio_id",
	"path", "video_codec", "width", "height", "bitrate", "size", "duration",
	"screenshot_path", "preview_path", "sprite_path", "vtt_path", "stream_path", "captions_path",
	"play_count", "play_duration", "o_counter", "phash", "fingerprints",
	"created_at", "updated_at",
}

// UpsertScenes writes a batch of scenes. Inherited tags are not touched
// here; the derivation pass owns scene_inherited_tags.
func (db *DB) UpsertScenes(ctx context.Context, ex execer, scenes []models.Scene) error {
	rows := make([][]any, 0, len(scenes))
	for i := range scenes {
		s := &scenes[i]
		fingerprints, err := marshalStringList(s.Fingerprints)
		if err != nil {
			return err
		}
		rows = append(rows, []any{
			s.ID, s.Instance, s.Title, s.Code, s.Date, s.Details, s.Director, s.StudioID,
			s.Path, s.VideoCodec, s.Width, s.Height, s.Bitrate, s.Size, s.Duration,
			s.ScreenshotPath, s.PreviewPath, s.SpritePath, s.VTTPath, s.StreamPath, s.CaptionsPath,
			s.PlayCount, s.PlayDuration, s.OCounter, s.Phash, fingerprints,
			s.CreatedAt, s.UpdatedAt,
		})
	}
	return upsertRows(ctx, ex, "scenes", sceneColumns, sceneColumns[2:], rows)
}

var imageColumns = []string{
	"id", "instance", "title", "date", "details", "photographer", "studio_id",
	"path", "width", "height", "size", "thumbnail_path", "preview_path", "image_path",
	"o_counter", "created_at", "updated_at",
}

// UpsertImages writes a batch of images.
func (db *DB) UpsertImages(ctx context.Context, ex execer, images []models.Image) error {
	rows := make([][]any, 0, len(images))
	for i := range images {
		im := &images[i]
		rows = append(rows, []any{
			im.ID, im.Instance, im.Title, im.Date, im.Details, im.Photographer, im.StudioID,
			im.Path, im.Width, im.Height, im.Size, im.ThumbnailPath, im.PreviewPath, im.ImagePath,
			im.OCounter, im.CreatedAt, im.UpdatedAt,
		})
	}
	return upsertRows(ctx, ex, "images", imageColumns, imageColumns[2:], rows)
}

var galleryColumns = []string{
	"id", "instance", "title", "date", "details", "photographer", "studio_id",
	"cover_image_id", "image_count", "created_at", "updated_at",
}

// UpsertGalleries writes a batch of galleries.
func (db *DB) UpsertGalleries(ctx context.Context, ex execer, galleries []models.Gallery) error {
	rows := make([][]any, 0, len(galleries))
	for i := range galleries {
		g := &galleries[i]
		rows = append(rows, []any{
			g.ID, g.Instance, g.Title, g.Date, g.Details, g.Photographer, g.StudioID,
			g.CoverImageID, g.ImageCount, g.CreatedAt, g.UpdatedAt,
		})
	}
	return upsertRows(ctx, ex, "galleries", galleryColumns, galleryColumns[2:], rows)
}

var performerColumns = []string{
	"id", "instance", "name", "disambiguation", "gender", "birthdate", "country",
	"details", "image_path", "scene_count", "image_count", "created_at", "updated_at",
}

// UpsertPerformers writes a batch of performers. Derived counts are not in
// the update set; the derivation pass owns gallery_image_count.
func (db *DB) UpsertPerformers(ctx context.Context, ex execer, performers []models.Performer) error {
	rows := make([][]any, 0, len(performers))
	for i := range performers {
		p := &performers[i]
		rows = append(rows, []any{
			p.ID, p.Instance, p.Name, p.Disambiguation, p.Gender, p.Birthdate, p.Country,
			p.Details, p.ImagePath, p.SceneCount, p.ImageCount, p.CreatedAt, p.UpdatedAt,
		})
	}
	return upsertRows(ctx, ex, "performers", performerColumns, performerColumns[2:], rows)
}

var studioColumns = []string{
	"id", "instance", "name", "url", "details", "parent_id", "image_path",
	"scene_count", "image_count", "created_at", "updated_at",
}

// UpsertStudios writes a batch of studios.
func (db *DB) UpsertStudios(ctx context.Context, ex execer, studios []models.Studio) error {
	rows := make([][]any, 0, len(studios))
	for i := range studios {
		s := &studios[i]
		rows = append(rows, []any{
			s.ID, s.Instance, s.Name, s.URL, s.Details, s.ParentID, s.ImagePath,
			s.SceneCount, s.ImageCount, s.CreatedAt, s.UpdatedAt,
		})
	}
	return upsertRows(ctx, ex, "studios", studioColumns, studioColumns[2:], rows)
}

var tagColumns = []string{
	"id", "instance", "name", "description", "image_path",
	"scene_count", "image_count", "created_at", "updated_at",
}

// UpsertTags writes a batch of tags. Parent links are junction rows
// (tag_parents) written by the batch processor alongside.
func (db *DB) UpsertTags(ctx context.Context, ex execer, tags []models.Tag) error {
	rows := make([][]any, 0, len(tags))
	for i := range tags {
		t := &tags[i]
		rows = append(rows, []any{
			t.ID, t.Instance, t.Name, t.Description, t.ImagePath,
			t.SceneCount, t.ImageCount, t.CreatedAt, t.UpdatedAt,
		})
	}
	return upsertRows(ctx, ex, "tags", tagColumns, tagColumns[2:], rows)
}

var groupColumns = []string{
	"id", "instance", "name", "date", "details", "studio_id",
	"front_path", "back_path", "scene_count", "created_at", "updated_at",
}

// UpsertGroups writes a batch of groups.
func (db *DB) UpsertGroups(ctx context.Context, ex execer, groups []models.Group) error {
	rows := make([][]any, 0, len(groups))
	for i := range groups {
		g := &groups[i]
		rows = append(rows, []any{
			g.ID, g.Instance, g.Name, g.Date, g.Details, g.StudioID,
			g.FrontPath, g.BackPath, g.SceneCount, g.CreatedAt, g.UpdatedAt,
		})
	}
	return upsertRows(ctx, ex, "groups", groupColumns, groupColumns[2:], rows)
}

var clipColumns = []string{
	"id", "instance", "scene_id", "title", "seconds", "end_seconds", "primary_tag_id",
	"preview_path", "screenshot_path", "stream_path", "created_at", "updated_at",
}

// UpsertClips writes a batch of clips. is_generated is preserved across
// upserts; only the prober writes it.
func (db *DB) UpsertClips(ctx context.Context, ex execer, clips []models.Clip) error {
	rows := make([][]any, 0, len(clips))
	for i := range clips {
		c := &clips[i]
		rows = append(rows, []any{
			c.ID, c.Instance, c.SceneID, c.Title, c.Seconds, c.EndSeconds, c.PrimaryTagID,
			c.PreviewPath, c.ScreenshotPath, c.StreamPath, c.CreatedAt, c.UpdatedAt,
		})
	}
	return upsertRows(ctx, ex, "clips", clipColumns, clipColumns[2:], rows)
}

// SetClipGenerated persists a prober classification.
func (db *DB) SetClipGenerated(ctx context.Context, id, instance string, generated bool) error {
	_, err := db.conn.ExecContext(ctx,
		"UPDATE clips SET is_generated = ? WHERE id = ? AND instance = ?",
		generated, id, instance)
	if err != nil {
		return fmt.Errorf("failed to set clip is_generated: %w", err)
	}
	return nil
}

// ListLiveEntityIDs returns the distinct IDs of live rows of one kind,
// across all instances. Used by INCLUDE-mode restrictions to invert the
// allow-list against the mirror.
func (db *DB) ListLiveEntityIDs(ctx context.Context, kind models.Kind) ([]string, error) {
	table, err := TableFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf(
		"SELECT DISTINCT id FROM %s WHERE deleted_at IS NULL ORDER BY id", table))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s ids: %w", table, err)
	}
	defer closeRows(rows)

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UngeneratedClipPreviews returns (id, instance, preview_path) for live
// clips whose prober classification is missing or negative.
func (db *DB) UngeneratedClipPreviews(ctx context.Context, instance string) ([]models.Clip, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, instance, scene_id, preview_path
		FROM clips
		WHERE deleted_at IS NULL
		  AND preview_path IS NOT NULL
		  AND (is_generated IS NULL OR is_generated = FALSE)
		  AND (? = '' OR instance = ? OR instance = '')`,
		instance, instance)
	if err != nil {
		return nil, fmt.Errorf("failed to query ungenerated clips: %w", err)
	}
	defer closeRows(rows)

	var clips []models.Clip
	for rows.Next() {
		var c models.Clip
		if err := rows.Scan(&c.ID, &c.Instance, &c.SceneID, &c.PreviewPath); err != nil {
			return nil, fmt.Errorf("failed to scan clip row: %w", err)
		}
		clips = append(clips, c)
	}
	return clips, rows.Err()
}
