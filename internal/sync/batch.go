// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

/*
batch.go - Per-Kind Batch Processors

One fetched page is one batch. Every batch runs the same transactional
sequence: delete every junction row the batch parents own, upsert the
entity rows, reinsert junction rows reconstructed from the fetched objects.
The delete-then-reinsert keeps junctions exactly mirroring the upstream
view; ON CONFLICT DO NOTHING keeps replays idempotent.

ID policy: entity ids failing validation are dropped with a warning before
the transaction. Related ids in junctions are validated the same way and
dropped silently; a dangling reference resolves on the next sync of the
referenced kind.
*/
package sync

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/curator-app/curator/internal/database"
	"github.com/curator-app/curator/internal/logging"
	"github.com/curator-app/curator/internal/metrics"
	"github.com/curator-app/curator/internal/models"
)

// entityBatch is one page of converted entities ready for the store.
type entityBatch interface {
	Kind() models.Kind
	Len() int
	// MaxUpdatedAt is the maximum raw updated_at in the batch; the cursor
	// candidate for this page.
	MaxUpdatedAt() string
	// Process writes the batch inside one transaction.
	Process(ctx context.Context, db *database.DB, instance string) error
}

// dropInvalid filters items whose primary id fails validation, warning per
// dropped row.
func dropInvalid[T any](kind models.Kind, items []T, id func(*T) string) []T {
	valid := items[:0]
	for i := range items {
		if models.ValidID(id(&items[i])) {
			valid = append(valid, items[i])
			continue
		}
		metrics.SyncInvalidIDs.WithLabelValues(string(kind)).Inc()
		logging.Warn().
			Str("kind", string(kind)).
			Str("id", id(&items[i])).
			Msg("Dropping entity with invalid id")
	}
	return valid
}

// junctionRows builds junction rows from related-id lists, dropping invalid
// related ids silently.
func junctionRows(parentID, instance string, relatedIDs []string) []database.JunctionRow {
	rows := make([]database.JunctionRow, 0, len(relatedIDs))
	for _, rid := range relatedIDs {
		if !models.ValidID(rid) {
			continue
		}
		rows = append(rows, database.JunctionRow{
			ParentID:        parentID,
			RelatedID:       rid,
			RelatedInstance: instance,
		})
	}
	return rows
}

// runBatchTx wraps the delete/upsert/insert sequence in the batch
// transaction.
func runBatchTx(ctx context.Context, db *database.DB, instance string,
	specs []database.JunctionTableSpec, parentIDs []string,
	upsert func(ctx context.Context, tx *sql.Tx) error,
	rowsPerSpec map[string][]database.JunctionRow) error {

	tx, txCtx, cancel, err := db.BeginTx(ctx, database.BatchTxTimeout)
	if err != nil {
		return err
	}
	defer cancel()
	defer func() { _ = tx.Rollback() }()

	for _, spec := range specs {
		if err := database.DeleteJunctionRows(txCtx, tx, spec, parentIDs, instance); err != nil {
			return err
		}
	}

	if err := upsert(txCtx, tx); err != nil {
		return err
	}

	for _, spec := range specs {
		if err := database.InsertJunctionRows(txCtx, tx, spec, instance, rowsPerSpec[spec.Table]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sync batch: %w", err)
	}
	return nil
}

// sceneBatch is one page of scenes.
type sceneBatch struct {
	items []models.Scene
}

func (b *sceneBatch) Kind() models.Kind { return models.KindScene }
func (b *sceneBatch) Len() int          { return len(b.items) }

func (b *sceneBatch) MaxUpdatedAt() string {
	var cursor string
	for i := range b.items {
		cursor = maxCursor(cursor, b.items[i].UpdatedAt)
	}
	return cursor
}

func (b *sceneBatch) Process(ctx context.Context, db *database.DB, instance string) error {
	b.items = dropInvalid(models.KindScene, b.items, func(s *models.Scene) string { return s.ID })
	if len(b.items) == 0 {
		return nil
	}

	parentIDs := make([]string, len(b.items))
	rows := map[string][]database.JunctionRow{}
	for i := range b.items {
		s := &b.items[i]
		parentIDs[i] = s.ID
		rows["scene_performers"] = append(rows["scene_performers"], junctionRows(s.ID, instance, s.PerformerIDs)...)
		rows["scene_tags"] = append(rows["scene_tags"], junctionRows(s.ID, instance, s.TagIDs)...)
		rows["scene_groups"] = append(rows["scene_groups"], junctionRows(s.ID, instance, s.GroupIDs)...)
		rows["scene_galleries"] = append(rows["scene_galleries"], junctionRows(s.ID, instance, s.GalleryIDs)...)
	}

	return runBatchTx(ctx, db, instance, database.SceneJunctions, parentIDs,
		func(txCtx context.Context, tx *sql.Tx) error {
			return db.UpsertScenes(txCtx, tx, b.items)
		}, rows)
}

// imageBatch is one page of images.
type imageBatch struct {
	items []models.Image
}

func (b *imageBatch) Kind() models.Kind { return models.KindImage }
func (b *imageBatch) Len() int          { return len(b.items) }

func (b *imageBatch) MaxUpdatedAt() string {
	var cursor string
	for i := range b.items {
		cursor = maxCursor(cursor, b.items[i].UpdatedAt)
	}
	return cursor
}

func (b *imageBatch) Process(ctx context.Context, db *database.DB, instance string) error {
	b.items = dropInvalid(models.KindImage, b.items, func(im *models.Image) string { return im.ID })
	if len(b.items) == 0 {
		return nil
	}

	parentIDs := make([]string, len(b.items))
	rows := map[string][]database.JunctionRow{}
	for i := range b.items {
		im := &b.items[i]
		parentIDs[i] = im.ID
		rows["image_performers"] = append(rows["image_performers"], junctionRows(im.ID, instance, im.PerformerIDs)...)
		rows["image_tags"] = append(rows["image_tags"], junctionRows(im.ID, instance, im.TagIDs)...)
		rows["image_galleries"] = append(rows["image_galleries"], junctionRows(im.ID, instance, im.GalleryIDs)...)
	}

	return runBatchTx(ctx, db, instance, database.ImageJunctions, parentIDs,
		func(txCtx context.Context, tx *sql.Tx) error {
			return db.UpsertImages(txCtx, tx, b.items)
		}, rows)
}

// galleryBatch is one page of galleries.
type galleryBatch struct {
	items []models.Gallery
}

func (b *galleryBatch) Kind() models.Kind { return models.KindGallery }
func (b *galleryBatch) Len() int          { return len(b.items) }

func (b *galleryBatch) MaxUpdatedAt() string {
	var cursor string
	for i := range b.items {
		cursor = maxCursor(cursor, b.items[i].UpdatedAt)
	}
	return cursor
}

func (b *galleryBatch) Process(ctx context.Context, db *database.DB, instance string) error {
	b.items = dropInvalid(models.KindGallery, b.items, func(g *models.Gallery) string { return g.ID })
	if len(b.items) == 0 {
		return nil
	}

	parentIDs := make([]string, len(b.items))
	rows := map[string][]database.JunctionRow{}
	for i := range b.items {
		g := &b.items[i]
		parentIDs[i] = g.ID
		rows["gallery_performers"] = append(rows["gallery_performers"], junctionRows(g.ID, instance, g.PerformerIDs)...)
		rows["gallery_tags"] = append(rows["gallery_tags"], junctionRows(g.ID, instance, g.TagIDs)...)
	}

	return runBatchTx(ctx, db, instance, database.GalleryJunctions, parentIDs,
		func(txCtx context.Context, tx *sql.Tx) error {
			return db.UpsertGalleries(txCtx, tx, b.items)
		}, rows)
}

// performerBatch is one page of performers.
type performerBatch struct {
	items []models.Performer
}

func (b *performerBatch) Kind() models.Kind { return models.KindPerformer }
func (b *performerBatch) Len() int          { return len(b.items) }

func (b *performerBatch) MaxUpdatedAt() string {
	var cursor string
	for i := range b.items {
		cursor = maxCursor(cursor, b.items[i].UpdatedAt)
	}
	return cursor
}

func (b *performerBatch) Process(ctx context.Context, db *database.DB, instance string) error {
	b.items = dropInvalid(models.KindPerformer, b.items, func(p *models.Performer) string { return p.ID })
	if len(b.items) == 0 {
		return nil
	}

	parentIDs := make([]string, len(b.items))
	rows := map[string][]database.JunctionRow{}
	for i := range b.items {
		p := &b.items[i]
		parentIDs[i] = p.ID
		rows["performer_tags"] = append(rows["performer_tags"], junctionRows(p.ID, instance, p.TagIDs)...)
	}

	return runBatchTx(ctx, db, instance, database.PerformerJunctions, parentIDs,
		func(txCtx context.Context, tx *sql.Tx) error {
			return db.UpsertPerformers(txCtx, tx, b.items)
		}, rows)
}

// studioBatch is one page of studios.
type studioBatch struct {
	items []models.Studio
}

func (b *studioBatch) Kind() models.Kind { return models.KindStudio }
func (b *studioBatch) Len() int          { return len(b.items) }

func (b *studioBatch) MaxUpdatedAt() string {
	var cursor string
	for i := range b.items {
		cursor = maxCursor(cursor, b.items[i].UpdatedAt)
	}
	return cursor
}

func (b *studioBatch) Process(ctx context.Context, db *database.DB, instance string) error {
	b.items = dropInvalid(models.KindStudio, b.items, func(s *models.Studio) string { return s.ID })
	if len(b.items) == 0 {
		return nil
	}

	parentIDs := make([]string, len(b.items))
	rows := map[string][]database.JunctionRow{}
	for i := range b.items {
		s := &b.items[i]
		parentIDs[i] = s.ID
		rows["studio_tags"] = append(rows["studio_tags"], junctionRows(s.ID, instance, s.TagIDs)...)
	}

	return runBatchTx(ctx, db, instance, database.StudioJunctions, parentIDs,
		func(txCtx context.Context, tx *sql.Tx) error {
			return db.UpsertStudios(txCtx, tx, b.items)
		}, rows)
}

// tagBatch is one page of tags.
type tagBatch struct {
	items []models.Tag
}

func (b *tagBatch) Kind() models.Kind { return models.KindTag }
func (b *tagBatch) Len() int          { return len(b.items) }

func (b *tagBatch) MaxUpdatedAt() string {
	var cursor string
	for i := range b.items {
		cursor = maxCursor(cursor, b.items[i].UpdatedAt)
	}
	return cursor
}

func (b *tagBatch) Process(ctx context.Context, db *database.DB, instance string) error {
	b.items = dropInvalid(models.KindTag, b.items, func(t *models.Tag) string { return t.ID })
	if len(b.items) == 0 {
		return nil
	}

	parentIDs := make([]string, len(b.items))
	rows := map[string][]database.JunctionRow{}
	for i := range b.items {
		t := &b.items[i]
		parentIDs[i] = t.ID
		rows["tag_parents"] = append(rows["tag_parents"], junctionRows(t.ID, instance, t.ParentIDs)...)
	}

	return runBatchTx(ctx, db, instance, database.TagJunctions, parentIDs,
		func(txCtx context.Context, tx *sql.Tx) error {
			return db.UpsertTags(txCtx, tx, b.items)
		}, rows)
}

// groupBatch is one page of groups.
type groupBatch struct {
	items []models.Group
}

func (b *groupBatch) Kind() models.Kind { return models.KindGroup }
func (b *groupBatch) Len() int          { return len(b.items) }

func (b *groupBatch) MaxUpdatedAt() string {
	var cursor string
	for i := range b.items {
		cursor = maxCursor(cursor, b.items[i].UpdatedAt)
	}
	return cursor
}

func (b *groupBatch) Process(ctx context.Context, db *database.DB, instance string) error {
	b.items = dropInvalid(models.KindGroup, b.items, func(g *models.Group) string { return g.ID })
	if len(b.items) == 0 {
		return nil
	}

	parentIDs := make([]string, len(b.items))
	rows := map[string][]database.JunctionRow{}
	for i := range b.items {
		g := &b.items[i]
		parentIDs[i] = g.ID
		rows["group_tags"] = append(rows["group_tags"], junctionRows(g.ID, instance, g.TagIDs)...)
		rows["group_parents"] = append(rows["group_parents"], junctionRows(g.ID, instance, g.ContainingGroupIDs)...)
	}

	return runBatchTx(ctx, db, instance, database.GroupJunctions, parentIDs,
		func(txCtx context.Context, tx *sql.Tx) error {
			return db.UpsertGroups(txCtx, tx, b.items)
		}, rows)
}

// clipBatch is one page of clips (scene markers).
type clipBatch struct {
	items []models.Clip
}

func (b *clipBatch) Kind() models.Kind { return models.KindClip }
func (b *clipBatch) Len() int          { return len(b.items) }

func (b *clipBatch) MaxUpdatedAt() string {
	var cursor string
	for i := range b.items {
		cursor = maxCursor(cursor, b.items[i].UpdatedAt)
	}
	return cursor
}

func (b *clipBatch) Process(ctx context.Context, db *database.DB, instance string) error {
	b.items = dropInvalid(models.KindClip, b.items, func(c *models.Clip) string { return c.ID })
	if len(b.items) == 0 {
		return nil
	}

	parentIDs := make([]string, len(b.items))
	rows := map[string][]database.JunctionRow{}
	for i := range b.items {
		c := &b.items[i]
		parentIDs[i] = c.ID
		rows["clip_tags"] = append(rows["clip_tags"], junctionRows(c.ID, instance, c.TagIDs)...)
	}

	return runBatchTx(ctx, db, instance, database.ClipJunctions, parentIDs,
		func(txCtx context.Context, tx *sql.Tx) error {
			return db.UpsertClips(txCtx, tx, b.items)
		}, rows)
}
