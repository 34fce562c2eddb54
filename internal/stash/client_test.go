// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package stash

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/curator-app/curator/internal/config"
	"github.com/curator-app/curator/internal/models"
)

func testUpstreamConfig() *config.UpstreamConfig {
	return &config.UpstreamConfig{
		RequestTimeout:          5 * time.Second,
		RateLimit:               1000,
		RateBurst:               1000,
		BreakerFailureThreshold: 5,
		BreakerOpenTimeout:      time.Second,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(models.Instance{
		ID:      "test",
		BaseURL: server.URL,
		APIKey:  "secret",
	}, testUpstreamConfig())
	return client, server
}

func TestFindScenes(t *testing.T) {
	var gotAPIKey string
	var gotRequest graphqlRequest

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("ApiKey")
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"data": {"findScenes": {"count": 2, "scenes": [
			{"id": "s1", "title": "First", "updated_at": "2025-01-10T12:00:00-08:00"},
			{"id": "s2", "updated_at": "2025-01-11T09:30:00-08:00"}
		]}}}`))
	})

	scenes, total, err := client.FindScenes(context.Background(), "2025-01-01T00:00:00.999", 1, 500)
	if err != nil {
		t.Fatalf("FindScenes failed: %v", err)
	}
	if total != 2 {
		t.Errorf("Expected total 2, got %d", total)
	}
	if len(scenes) != 2 {
		t.Fatalf("Expected 2 scenes, got %d", len(scenes))
	}
	if scenes[0].ID != "s1" || scenes[0].Title == nil || *scenes[0].Title != "First" {
		t.Errorf("Unexpected first scene: %+v", scenes[0])
	}
	if scenes[1].UpdatedAt != "2025-01-11T09:30:00-08:00" {
		t.Errorf("Expected raw updated_at passthrough, got %q", scenes[1].UpdatedAt)
	}

	if gotAPIKey != "secret" {
		t.Errorf("Expected ApiKey header, got %q", gotAPIKey)
	}
	sceneFilter, ok := gotRequest.Variables["scene_filter"].(map[string]any)
	if !ok {
		t.Fatalf("Expected scene_filter variable, got %v", gotRequest.Variables)
	}
	updatedAt, _ := sceneFilter["updated_at"].(map[string]any)
	if updatedAt["value"] != "2025-01-01T00:00:00.999" {
		t.Errorf("Expected normalized cursor in filter, got %v", updatedAt["value"])
	}
}

func TestFindScenesMissingCount(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"findScenes": {"scenes": []}}}`))
	})

	_, _, err := client.FindScenes(context.Background(), "", 1, 500)
	if !errors.Is(err, ErrMissingCount) {
		t.Errorf("Expected ErrMissingCount, got %v", err)
	}
}

func TestFindSceneNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"findScene": null}}`))
	})

	scene, err := client.FindScene(context.Background(), "missing")
	if err != nil {
		t.Fatalf("FindScene failed: %v", err)
	}
	if scene != nil {
		t.Errorf("Expected nil for missing scene, got %+v", scene)
	}
}

func TestQueryGraphQLError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors": [{"message": "unknown field"}]}`))
	})

	_, _, err := client.FindScenes(context.Background(), "", 1, 500)
	if err == nil {
		t.Fatal("Expected error for GraphQL error response")
	}
}

func TestQueryHTTPError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, _, err := client.FindScenes(context.Background(), "", 1, 500)
	if err == nil {
		t.Fatal("Expected error for HTTP 500")
	}
}

func TestCircuitBreakerOpens(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})

	for i := 0; i < 5; i++ {
		_, _, _ = client.FindScenes(context.Background(), "", 1, 500)
	}

	_, _, err := client.FindScenes(context.Background(), "", 1, 500)
	if err == nil {
		t.Fatal("Expected circuit-open error")
	}
}

func TestCountScenes(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"findScenes": {"count": 42, "scenes": []}}}`))
	})

	total, err := client.CountScenes(context.Background(), "2025-01-01T00:00:00.999")
	if err != nil {
		t.Fatalf("CountScenes failed: %v", err)
	}
	if total != 42 {
		t.Errorf("Expected 42, got %d", total)
	}
}

func TestSceneIDs(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"findScenes": {"count": 3, "scenes": [
			{"id": "a"}, {"id": "b"}, {"id": "c"}
		]}}}`))
	})

	ids, total, err := client.SceneIDs(context.Background(), 1, 5000)
	if err != nil {
		t.Fatalf("SceneIDs failed: %v", err)
	}
	if total != 3 || len(ids) != 3 {
		t.Fatalf("Expected 3 ids, got total=%d len=%d", total, len(ids))
	}
	if ids[0] != "a" || ids[2] != "c" {
		t.Errorf("Unexpected ids: %v", ids)
	}
}
