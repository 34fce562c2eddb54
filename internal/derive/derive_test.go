// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package derive

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/curator-app/curator/internal/config"
	"github.com/curator-app/curator/internal/database"
	"github.com/curator-app/curator/internal/models"
)

func newTestRunner(t *testing.T) (*Runner, *database.DB) {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{
		Path:      filepath.Join(t.TempDir(), "curator.db"),
		MaxMemory: "512MB",
		Threads:   1,
	})
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewRunner(db), db
}

func strp(s string) *string { return &s }

func insertJunction(t *testing.T, db *database.DB, table, parentCol, relatedCol string, rows []database.JunctionRow) {
	t.Helper()
	spec := database.JunctionTableSpec{Table: table, ParentCol: parentCol, RelatedCol: relatedCol}
	if err := database.InsertJunctionRows(context.Background(), db.Conn(), spec, "main", rows); err != nil {
		t.Fatalf("InsertJunctionRows %s: %v", table, err)
	}
}

func TestSceneInheritedTags(t *testing.T) {
	r, db := newTestRunner(t)
	ctx := context.Background()

	if err := db.UpsertTags(ctx, db.Conn(), []models.Tag{
		{ID: "t1", Instance: "main", Name: "from performer"},
		{ID: "t2", Instance: "main", Name: "from studio"},
		{ID: "t3", Instance: "main", Name: "direct"},
	}); err != nil {
		t.Fatalf("UpsertTags: %v", err)
	}
	if err := db.UpsertPerformers(ctx, db.Conn(), []models.Performer{
		{ID: "p1", Instance: "main", Name: "One"},
	}); err != nil {
		t.Fatalf("UpsertPerformers: %v", err)
	}
	if err := db.UpsertStudios(ctx, db.Conn(), []models.Studio{
		{ID: "st1", Instance: "main", Name: "Studio"},
	}); err != nil {
		t.Fatalf("UpsertStudios: %v", err)
	}
	if err := db.UpsertScenes(ctx, db.Conn(), []models.Scene{
		{ID: "sc1", Instance: "main", StudioID: strp("st1")},
	}); err != nil {
		t.Fatalf("UpsertScenes: %v", err)
	}

	insertJunction(t, db, "scene_performers", "scene_id", "performer_id",
		[]database.JunctionRow{{ParentID: "sc1", RelatedID: "p1", RelatedInstance: "main"}})
	insertJunction(t, db, "performer_tags", "performer_id", "tag_id",
		[]database.JunctionRow{{ParentID: "p1", RelatedID: "t1", RelatedInstance: "main"}})
	insertJunction(t, db, "studio_tags", "studio_id", "tag_id",
		[]database.JunctionRow{{ParentID: "st1", RelatedID: "t2", RelatedInstance: "main"}})
	// t3 is a direct scene tag and must not also appear as inherited.
	insertJunction(t, db, "scene_tags", "scene_id", "tag_id",
		[]database.JunctionRow{{ParentID: "sc1", RelatedID: "t3", RelatedInstance: "main"}})
	insertJunction(t, db, "performer_tags", "performer_id", "tag_id",
		[]database.JunctionRow{{ParentID: "p1", RelatedID: "t3", RelatedInstance: "main"}})

	if err := r.RunAll(ctx); err != nil {
		t.Fatalf("RunAll: %v", err)
	}

	rows, err := db.Conn().QueryContext(ctx,
		"SELECT tag_id FROM scene_inherited_tags WHERE scene_id = 'sc1' ORDER BY tag_id")
	if err != nil {
		t.Fatalf("query inherited: %v", err)
	}
	defer func() { _ = rows.Close() }()
	var got []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, id)
	}
	if len(got) != 2 || got[0] != "t1" || got[1] != "t2" {
		t.Errorf("inherited tags = %v, want [t1 t2]", got)
	}
}

func TestGalleryInheritanceNullFillOnly(t *testing.T) {
	r, db := newTestRunner(t)
	ctx := context.Background()

	if err := db.UpsertGalleries(ctx, db.Conn(), []models.Gallery{
		{ID: "g1", Instance: "main", Date: strp("2024-05-01"), Photographer: strp("ansel")},
		{ID: "g2", Instance: "main", Date: strp("2024-06-01")},
	}); err != nil {
		t.Fatalf("UpsertGalleries: %v", err)
	}
	if err := db.UpsertImages(ctx, db.Conn(), []models.Image{
		// i1 has no date; inherits from first-by-id gallery g1.
		{ID: "i1", Instance: "main"},
		// i2 has its own date; never overwritten.
		{ID: "i2", Instance: "main", Date: strp("2020-01-01")},
	}); err != nil {
		t.Fatalf("UpsertImages: %v", err)
	}
	insertJunction(t, db, "image_galleries", "image_id", "gallery_id",
		[]database.JunctionRow{
			{ParentID: "i1", RelatedID: "g2", RelatedInstance: "main"},
			{ParentID: "i1", RelatedID: "g1", RelatedInstance: "main"},
			{ParentID: "i2", RelatedID: "g1", RelatedInstance: "main"},
		})

	if err := r.RunAll(ctx); err != nil {
		t.Fatalf("RunAll: %v", err)
	}

	var date, photographer string
	if err := db.Conn().QueryRowContext(ctx,
		"SELECT date, photographer FROM images WHERE id = 'i1'").Scan(&date, &photographer); err != nil {
		t.Fatalf("scan i1: %v", err)
	}
	if date != "2024-05-01" || photographer != "ansel" {
		t.Errorf("i1 inherited = %q %q, want g1's values (first by gallery id)", date, photographer)
	}

	if err := db.Conn().QueryRowContext(ctx,
		"SELECT date FROM images WHERE id = 'i2'").Scan(&date); err != nil {
		t.Fatalf("scan i2: %v", err)
	}
	if date != "2020-01-01" {
		t.Errorf("i2 date = %q, own value overwritten", date)
	}
}

func TestGalleryJunctionCopySkipsImagesWithOwn(t *testing.T) {
	r, db := newTestRunner(t)
	ctx := context.Background()

	if err := db.UpsertGalleries(ctx, db.Conn(), []models.Gallery{
		{ID: "g1", Instance: "main"},
	}); err != nil {
		t.Fatalf("UpsertGalleries: %v", err)
	}
	if err := db.UpsertImages(ctx, db.Conn(), []models.Image{
		{ID: "bare", Instance: "main"},
		{ID: "tagged", Instance: "main"},
	}); err != nil {
		t.Fatalf("UpsertImages: %v", err)
	}
	if err := db.UpsertTags(ctx, db.Conn(), []models.Tag{
		{ID: "t1", Instance: "main", Name: "gallery tag"},
		{ID: "t2", Instance: "main", Name: "own tag"},
	}); err != nil {
		t.Fatalf("UpsertTags: %v", err)
	}

	insertJunction(t, db, "image_galleries", "image_id", "gallery_id",
		[]database.JunctionRow{
			{ParentID: "bare", RelatedID: "g1", RelatedInstance: "main"},
			{ParentID: "tagged", RelatedID: "g1", RelatedInstance: "main"},
		})
	insertJunction(t, db, "gallery_tags", "gallery_id", "tag_id",
		[]database.JunctionRow{{ParentID: "g1", RelatedID: "t1", RelatedInstance: "main"}})
	insertJunction(t, db, "image_tags", "image_id", "tag_id",
		[]database.JunctionRow{{ParentID: "tagged", RelatedID: "t2", RelatedInstance: "main"}})

	if err := r.RunAll(ctx); err != nil {
		t.Fatalf("RunAll: %v", err)
	}

	count := func(imageID string) int {
		var n int
		if err := db.Conn().QueryRowContext(ctx,
			"SELECT COUNT(*) FROM image_tags WHERE image_id = ?", imageID).Scan(&n); err != nil {
			t.Fatalf("count image_tags for %s: %v", imageID, err)
		}
		return n
	}
	if n := count("bare"); n != 1 {
		t.Errorf("bare image tag rows = %d, want copied gallery tag", n)
	}
	// An image with its own tags keeps exactly those.
	if n := count("tagged"); n != 1 {
		t.Errorf("tagged image tag rows = %d, want only its own", n)
	}
}

func TestGalleryImageCounts(t *testing.T) {
	r, db := newTestRunner(t)
	ctx := context.Background()

	if err := db.UpsertPerformers(ctx, db.Conn(), []models.Performer{
		{ID: "p1", Instance: "main", Name: "One"},
	}); err != nil {
		t.Fatalf("UpsertPerformers: %v", err)
	}
	if err := db.UpsertGalleries(ctx, db.Conn(), []models.Gallery{
		{ID: "g1", Instance: "main"},
	}); err != nil {
		t.Fatalf("UpsertGalleries: %v", err)
	}
	if err := db.UpsertImages(ctx, db.Conn(), []models.Image{
		{ID: "direct", Instance: "main"},
		{ID: "viagallery", Instance: "main"},
		{ID: "both", Instance: "main"},
	}); err != nil {
		t.Fatalf("UpsertImages: %v", err)
	}

	insertJunction(t, db, "image_performers", "image_id", "performer_id",
		[]database.JunctionRow{
			{ParentID: "direct", RelatedID: "p1", RelatedInstance: "main"},
			{ParentID: "both", RelatedID: "p1", RelatedInstance: "main"},
		})
	insertJunction(t, db, "gallery_performers", "gallery_id", "performer_id",
		[]database.JunctionRow{{ParentID: "g1", RelatedID: "p1", RelatedInstance: "main"}})
	insertJunction(t, db, "image_galleries", "image_id", "gallery_id",
		[]database.JunctionRow{
			{ParentID: "viagallery", RelatedID: "g1", RelatedInstance: "main"},
			{ParentID: "both", RelatedID: "g1", RelatedInstance: "main"},
		})

	if err := r.RunAll(ctx); err != nil {
		t.Fatalf("RunAll: %v", err)
	}

	var n int
	if err := db.Conn().QueryRowContext(ctx,
		"SELECT gallery_image_count FROM performers WHERE id = 'p1'").Scan(&n); err != nil {
		t.Fatalf("scan count: %v", err)
	}
	// direct, viagallery, both: the union is distinct, so 3 not 4.
	if n != 3 {
		t.Errorf("gallery_image_count = %d, want 3", n)
	}
}

func TestTagSceneCountViaPerformer(t *testing.T) {
	r, db := newTestRunner(t)
	ctx := context.Background()

	if err := db.UpsertTags(ctx, db.Conn(), []models.Tag{
		{ID: "t1", Instance: "main", Name: "tag"},
	}); err != nil {
		t.Fatalf("UpsertTags: %v", err)
	}
	if err := db.UpsertPerformers(ctx, db.Conn(), []models.Performer{
		{ID: "p1", Instance: "main", Name: "One"},
		{ID: "p2", Instance: "main", Name: "Two"},
	}); err != nil {
		t.Fatalf("UpsertPerformers: %v", err)
	}
	if err := db.UpsertScenes(ctx, db.Conn(), []models.Scene{
		{ID: "sc1", Instance: "main"},
		{ID: "sc2", Instance: "main"},
	}); err != nil {
		t.Fatalf("UpsertScenes: %v", err)
	}

	insertJunction(t, db, "performer_tags", "performer_id", "tag_id",
		[]database.JunctionRow{
			{ParentID: "p1", RelatedID: "t1", RelatedInstance: "main"},
			{ParentID: "p2", RelatedID: "t1", RelatedInstance: "main"},
		})
	// Both performers appear in sc1; the distinct scene count is 2, not 3.
	insertJunction(t, db, "scene_performers", "scene_id", "performer_id",
		[]database.JunctionRow{
			{ParentID: "sc1", RelatedID: "p1", RelatedInstance: "main"},
			{ParentID: "sc1", RelatedID: "p2", RelatedInstance: "main"},
			{ParentID: "sc2", RelatedID: "p2", RelatedInstance: "main"},
		})

	if err := r.RunAll(ctx); err != nil {
		t.Fatalf("RunAll: %v", err)
	}

	var n int
	if err := db.Conn().QueryRowContext(ctx,
		"SELECT scene_count_via_performer FROM tags WHERE id = 't1'").Scan(&n); err != nil {
		t.Fatalf("scan count: %v", err)
	}
	if n != 2 {
		t.Errorf("scene_count_via_performer = %d, want 2", n)
	}
}
