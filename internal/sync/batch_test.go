// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package sync

import (
	"testing"

	"github.com/curator-app/curator/internal/models"
)

func TestDropInvalid(t *testing.T) {
	items := []models.Scene{
		{ID: "1"},
		{ID: ""},
		{ID: "abc; DROP TABLE scenes"},
		{ID: "42"},
	}

	valid := dropInvalid(models.KindScene, items, func(s *models.Scene) string { return s.ID })

	if len(valid) != 2 {
		t.Fatalf("expected 2 valid items, got %d", len(valid))
	}
	if valid[0].ID != "1" || valid[1].ID != "42" {
		t.Errorf("unexpected surviving ids: %q, %q", valid[0].ID, valid[1].ID)
	}
}

func TestJunctionRowsDropsInvalidRelated(t *testing.T) {
	rows := junctionRows("10", "main", []string{"20", "", "x y", "30"})

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.ParentID != "10" {
			t.Errorf("parent id = %q, want 10", row.ParentID)
		}
		if row.RelatedInstance != "main" {
			t.Errorf("related instance = %q, want main", row.RelatedInstance)
		}
	}
	if rows[0].RelatedID != "20" || rows[1].RelatedID != "30" {
		t.Errorf("unexpected related ids: %q, %q", rows[0].RelatedID, rows[1].RelatedID)
	}
}

func TestSceneBatchMaxUpdatedAt(t *testing.T) {
	b := &sceneBatch{items: []models.Scene{
		{ID: "1", UpdatedAt: "2025-01-10T12:00:00-08:00"}, // 20:00 UTC
		{ID: "2", UpdatedAt: "2025-01-10T19:30:00Z"},
		{ID: "3", UpdatedAt: ""},
	}}

	if got := b.MaxUpdatedAt(); got != "2025-01-10T12:00:00-08:00" {
		t.Errorf("MaxUpdatedAt() = %q, want the later instant's raw value", got)
	}
}

func TestOpsForUnknownKind(t *testing.T) {
	if _, err := opsFor(nil, "main", models.Kind("widget")); err == nil {
		t.Error("expected error for unknown kind")
	}
}
