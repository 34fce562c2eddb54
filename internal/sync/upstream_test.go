// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package sync

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	stdsync "sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/curator-app/curator/internal/config"
	"github.com/curator-app/curator/internal/database"
	"github.com/curator-app/curator/internal/instances"
	"github.com/curator-app/curator/internal/models"
)

// upstreamScene is one scene the stub upstream serves.
type upstreamScene struct {
	ID        string
	UpdatedAt string
	Phash     string
}

// stubUpstream answers the GraphQL documents the engine issues. Scenes come
// from the configurable list; every other kind reports zero rows.
type stubUpstream struct {
	mu     stdsync.Mutex
	scenes []upstreamScene
}

func (s *stubUpstream) setScenes(scenes []upstreamScene) {
	s.mu.Lock()
	s.scenes = scenes
	s.mu.Unlock()
}

var upstreamRoots = []string{
	"findScenes", "findImages", "findGalleries", "findPerformers",
	"findStudios", "findTags", "findGroups", "findSceneMarkers",
}

func (s *stubUpstream) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if strings.Contains(req.Query, "findScenes(") {
			s.mu.Lock()
			scenes := s.scenes
			s.mu.Unlock()

			items := make([]map[string]any, len(scenes))
			for i, sc := range scenes {
				item := map[string]any{"id": sc.ID, "updated_at": sc.UpdatedAt}
				if sc.Phash != "" {
					item["files"] = []map[string]any{{
						"fingerprints": []map[string]string{{"type": "phash", "value": sc.Phash}},
					}}
				}
				items[i] = item
			}
			payload := map[string]any{"data": map[string]any{
				"findScenes": map[string]any{"count": len(scenes), "scenes": items},
			}}
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(payload); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}

		for _, root := range upstreamRoots {
			if strings.Contains(req.Query, root+"(") {
				fmt.Fprintf(w, `{"data": {"%s": {"count": 0}}}`, root)
				return
			}
		}
		http.Error(w, "unexpected document", http.StatusBadRequest)
	}
}

// newUpstreamEngine builds an engine backed by a temp-file store and a stub
// upstream registered as instance "main".
func newUpstreamEngine(t *testing.T, stub *stubUpstream) (*Engine, *database.DB) {
	t.Helper()

	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)

	db, err := database.New(&config.DatabaseConfig{
		Path:      filepath.Join(t.TempDir(), "curator.db"),
		MaxMemory: "512MB",
		Threads:   1,
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	registry := instances.New()
	registry.Put(models.Instance{ID: "main", Name: "Main", BaseURL: server.URL, Enabled: true},
		&config.UpstreamConfig{
			RequestTimeout:          5 * time.Second,
			RateLimit:               1000,
			RateBurst:               1000,
			BreakerFailureThreshold: 5,
			BreakerOpenTimeout:      time.Second,
		})

	return NewEngine(db, registry, testSyncConfig(), nil, nil, nil), db
}

func seedCursors(t *testing.T, db *database.DB, cursor string) {
	t.Helper()
	ctx := context.Background()
	for _, kind := range models.SyncOrder {
		state := &models.SyncState{Instance: "main", Kind: kind, IncrementalCursor: cursor}
		if err := db.UpsertSyncState(ctx, state); err != nil {
			t.Fatalf("seed sync state for %s: %v", kind, err)
		}
	}
}

func TestIncrementalKeepsCursorWhenNothingChanged(t *testing.T) {
	stub := &stubUpstream{}
	engine, db := newUpstreamEngine(t, stub)
	ctx := context.Background()

	const seeded = "2025-01-05T12:00:00Z"
	seedCursors(t, db, seeded)

	if err := engine.IncrementalSync(ctx, "main"); err != nil {
		t.Fatalf("IncrementalSync: %v", err)
	}

	for _, kind := range models.SyncOrder {
		state, err := db.GetSyncState(ctx, "main", kind)
		if err != nil {
			t.Fatalf("GetSyncState(%s): %v", kind, err)
		}
		if state.IncrementalCursor != seeded {
			t.Errorf("%s cursor = %q after empty run, want %q", kind, state.IncrementalCursor, seeded)
		}
		if state.LastRunAt == nil {
			t.Errorf("%s run not recorded", kind)
		}
		if state.LastRunCount != 0 {
			t.Errorf("%s LastRunCount = %d, want 0", kind, state.LastRunCount)
		}
	}
}

func TestIncrementalAdvancesCursorToMaxUpdatedAt(t *testing.T) {
	stub := &stubUpstream{}
	engine, db := newUpstreamEngine(t, stub)
	ctx := context.Background()

	const seeded = "2025-01-05T12:00:00Z"
	seedCursors(t, db, seeded)

	// The offset form is the later instant (13:00 UTC) even though it sorts
	// lexically before the Z form.
	stub.setScenes([]upstreamScene{
		{ID: "s1", UpdatedAt: "2025-02-01T10:00:00Z"},
		{ID: "s2", UpdatedAt: "2025-02-02T08:00:00-05:00"},
	})

	if err := engine.IncrementalSync(ctx, "main"); err != nil {
		t.Fatalf("IncrementalSync: %v", err)
	}

	state, err := db.GetSyncState(ctx, "main", models.KindScene)
	if err != nil {
		t.Fatalf("GetSyncState: %v", err)
	}
	if state.IncrementalCursor != "2025-02-02T08:00:00-05:00" {
		t.Errorf("scene cursor = %q, want max raw updated_at", state.IncrementalCursor)
	}
	if state.FullCursor != "" {
		t.Errorf("FullCursor = %q after incremental run, want empty", state.FullCursor)
	}
	if state.LastRunCount != 2 {
		t.Errorf("LastRunCount = %d, want 2", state.LastRunCount)
	}

	// Kinds with no changes keep their cursor.
	tagState, err := db.GetSyncState(ctx, "main", models.KindTag)
	if err != nil {
		t.Fatalf("GetSyncState: %v", err)
	}
	if tagState.IncrementalCursor != seeded {
		t.Errorf("tag cursor = %q, want %q", tagState.IncrementalCursor, seeded)
	}
}

func TestIncrementalWithoutCursorPromotesToFull(t *testing.T) {
	stub := &stubUpstream{}
	engine, db := newUpstreamEngine(t, stub)
	ctx := context.Background()

	stub.setScenes([]upstreamScene{{ID: "s1", UpdatedAt: "2025-03-01T00:00:00Z"}})

	if err := engine.IncrementalSync(ctx, "main"); err != nil {
		t.Fatalf("IncrementalSync: %v", err)
	}

	state, err := db.GetSyncState(ctx, "main", models.KindScene)
	if err != nil {
		t.Fatalf("GetSyncState: %v", err)
	}
	// A promoted kind runs the full path and records both cursors.
	if state.FullCursor != "2025-03-01T00:00:00Z" {
		t.Errorf("FullCursor = %q, want promoted full run to record it", state.FullCursor)
	}
	if state.IncrementalCursor != "2025-03-01T00:00:00Z" {
		t.Errorf("IncrementalCursor = %q", state.IncrementalCursor)
	}

	var live int
	if err := db.Conn().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM scenes WHERE id = 's1' AND deleted_at IS NULL").Scan(&live); err != nil {
		t.Fatalf("count scenes: %v", err)
	}
	if live != 1 {
		t.Errorf("scene rows = %d, want 1", live)
	}
}

func TestFullSyncMovesUserRowsToMergeSurvivor(t *testing.T) {
	stub := &stubUpstream{}
	engine, db := newUpstreamEngine(t, stub)
	ctx := context.Background()

	// The retired duplicate lives locally with user rows attached.
	phash := "cafebabe12345678"
	if err := db.UpsertScenes(ctx, db.Conn(), []models.Scene{{
		ID:        "old",
		Instance:  "main",
		Phash:     &phash,
		UpdatedAt: "2025-01-01T00:00:00Z",
	}}); err != nil {
		t.Fatalf("seed scene: %v", err)
	}
	rating := 5
	if err := db.UpsertOverlay(ctx, &models.UserOverlay{
		UserID: "alice", Kind: models.KindScene, EntityID: "old", Instance: "main",
		Rating: &rating, Favorite: true,
	}); err != nil {
		t.Fatalf("seed overlay: %v", err)
	}
	if err := db.UpsertHiddenEntity(ctx, &models.HiddenEntity{
		UserID: "bob", Kind: models.KindScene, EntityID: "old", Instance: "main",
	}); err != nil {
		t.Fatalf("seed hide: %v", err)
	}

	// Upstream merged "old" into "new": same perceptual hash, old id gone.
	stub.setScenes([]upstreamScene{{ID: "new", UpdatedAt: "2025-03-01T00:00:00Z", Phash: phash}})

	if err := engine.FullSync(ctx, "main"); err != nil {
		t.Fatalf("FullSync: %v", err)
	}

	var entityID string
	var gotRating int
	err := db.Conn().QueryRowContext(ctx, `
		SELECT entity_id, rating FROM user_overlays
		WHERE user_id = 'alice' AND entity_type = ?`, models.KindScene).Scan(&entityID, &gotRating)
	if err != nil {
		t.Fatalf("overlay row: %v", err)
	}
	if entityID != "new" || gotRating != 5 {
		t.Errorf("overlay = (%q, %d), want reassigned to survivor", entityID, gotRating)
	}

	hides, err := db.ListHiddenEntities(ctx, "bob")
	if err != nil {
		t.Fatalf("ListHiddenEntities: %v", err)
	}
	if len(hides) != 1 || hides[0].EntityID != "new" {
		t.Errorf("hides = %+v, want one row on the survivor", hides)
	}

	var oldDeleted, newDeleted bool
	if err := db.Conn().QueryRowContext(ctx,
		"SELECT deleted_at IS NOT NULL FROM scenes WHERE id = 'old' AND instance = 'main'").Scan(&oldDeleted); err != nil {
		t.Fatalf("old scene row: %v", err)
	}
	if err := db.Conn().QueryRowContext(ctx,
		"SELECT deleted_at IS NOT NULL FROM scenes WHERE id = 'new' AND instance = 'main'").Scan(&newDeleted); err != nil {
		t.Fatalf("new scene row: %v", err)
	}
	if !oldDeleted {
		t.Error("retired duplicate not soft-deleted")
	}
	if newDeleted {
		t.Error("survivor soft-deleted")
	}
}
