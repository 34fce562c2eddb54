// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/curator-app/curator/internal/models"
	"github.com/curator-app/curator/internal/query"
)

// stubEntities records the last call and returns canned data.
type stubEntities struct {
	err      error
	scenes   *query.Result[models.Scene]
	scene    *models.Scene
	clips    []*models.Clip
	gotOpts  query.Options
	gotUser  string
	gotID    string
	gotScope string
}

func (s *stubEntities) list(opts query.Options) error {
	s.gotOpts = opts
	return s.err
}

func (s *stubEntities) get(userID, id, instance string) error {
	s.gotUser, s.gotID, s.gotScope = userID, id, instance
	return s.err
}

func (s *stubEntities) ListScenes(_ context.Context, opts query.Options) (*query.Result[models.Scene], error) {
	if err := s.list(opts); err != nil {
		return nil, err
	}
	return s.scenes, nil
}

func (s *stubEntities) SceneByID(_ context.Context, userID, id, instance string) (*models.Scene, error) {
	if err := s.get(userID, id, instance); err != nil {
		return nil, err
	}
	return s.scene, nil
}

func (s *stubEntities) ListImages(_ context.Context, opts query.Options) (*query.Result[models.Image], error) {
	return &query.Result[models.Image]{}, s.list(opts)
}

func (s *stubEntities) ImageByID(_ context.Context, userID, id, instance string) (*models.Image, error) {
	return &models.Image{}, s.get(userID, id, instance)
}

func (s *stubEntities) ListGalleries(_ context.Context, opts query.Options) (*query.Result[models.Gallery], error) {
	return &query.Result[models.Gallery]{}, s.list(opts)
}

func (s *stubEntities) GalleryByID(_ context.Context, userID, id, instance string) (*models.Gallery, error) {
	return &models.Gallery{}, s.get(userID, id, instance)
}

func (s *stubEntities) ListPerformers(_ context.Context, opts query.Options) (*query.Result[models.Performer], error) {
	return &query.Result[models.Performer]{}, s.list(opts)
}

func (s *stubEntities) PerformerByID(_ context.Context, userID, id, instance string) (*models.Performer, error) {
	return &models.Performer{}, s.get(userID, id, instance)
}

func (s *stubEntities) ListStudios(_ context.Context, opts query.Options) (*query.Result[models.Studio], error) {
	return &query.Result[models.Studio]{}, s.list(opts)
}

func (s *stubEntities) StudioByID(_ context.Context, userID, id, instance string) (*models.Studio, error) {
	return &models.Studio{}, s.get(userID, id, instance)
}

func (s *stubEntities) ListTags(_ context.Context, opts query.Options) (*query.Result[models.Tag], error) {
	return &query.Result[models.Tag]{}, s.list(opts)
}

func (s *stubEntities) TagByID(_ context.Context, userID, id, instance string) (*models.Tag, error) {
	return &models.Tag{}, s.get(userID, id, instance)
}

func (s *stubEntities) ListGroups(_ context.Context, opts query.Options) (*query.Result[models.Group], error) {
	return &query.Result[models.Group]{}, s.list(opts)
}

func (s *stubEntities) GroupByID(_ context.Context, userID, id, instance string) (*models.Group, error) {
	return &models.Group{}, s.get(userID, id, instance)
}

func (s *stubEntities) ListClips(_ context.Context, opts query.Options) (*query.Result[models.Clip], error) {
	return &query.Result[models.Clip]{}, s.list(opts)
}

func (s *stubEntities) ClipsForScene(_ context.Context, userID, sceneID, instance string) ([]*models.Clip, error) {
	if err := s.get(userID, sceneID, instance); err != nil {
		return nil, err
	}
	return s.clips, nil
}

// stubSync records triggered runs on a channel.
type stubSync struct {
	syncing bool
	err     error
	states  []models.SyncState
	runs    chan string
}

func newStubSync() *stubSync {
	return &stubSync{runs: make(chan string, 8)}
}

func (s *stubSync) record(mode string) error {
	select {
	case s.runs <- mode:
	default:
	}
	return s.err
}

func (s *stubSync) IsSyncing() bool { return s.syncing }
func (s *stubSync) Abort() bool     { return s.syncing }

func (s *stubSync) Status(context.Context) (bool, []models.SyncState, error) {
	return s.syncing, s.states, s.err
}

func (s *stubSync) FullSync(_ context.Context, instanceID string) error {
	return s.record("full:" + instanceID)
}

func (s *stubSync) FullSyncAll(context.Context) error { return s.record("full") }

func (s *stubSync) IncrementalSync(_ context.Context, instanceID string) error {
	return s.record("incremental:" + instanceID)
}

func (s *stubSync) IncrementalSyncAll(context.Context) error { return s.record("incremental") }

func (s *stubSync) SingleEntitySync(_ context.Context, instanceID string, kind models.Kind, id string) error {
	return s.record("entity:" + instanceID + ":" + string(kind) + ":" + id)
}

// stubExclusions records hide/unhide/recompute calls.
type stubExclusions struct {
	err   error
	calls []string
}

func (s *stubExclusions) AddHiddenEntity(_ context.Context, userID string, kind models.Kind, entityID, instance string) error {
	s.calls = append(s.calls, "add:"+userID+":"+string(kind)+":"+entityID+":"+instance)
	return s.err
}

func (s *stubExclusions) RemoveHiddenEntity(_ context.Context, userID string, kind models.Kind, entityID, instance string) error {
	s.calls = append(s.calls, "remove:"+userID+":"+string(kind)+":"+entityID+":"+instance)
	return s.err
}

func (s *stubExclusions) RecomputeUser(_ context.Context, userID string) error {
	s.calls = append(s.calls, "recompute:"+userID)
	return s.err
}

// stubStore is an in-memory Store.
type stubStore struct {
	pingErr      error
	err          error
	hidden       []models.HiddenEntity
	restrictions []models.ContentRestriction
	stats        []models.EntityStats
	overlays     []models.UserOverlay
	instances    []models.Instance
	cleared      []string
	deleted      []string
}

func (s *stubStore) Ping(context.Context) error { return s.pingErr }

func (s *stubStore) ListHiddenEntities(_ context.Context, userID string) ([]models.HiddenEntity, error) {
	return s.hidden, s.err
}

func (s *stubStore) UpsertContentRestriction(_ context.Context, r *models.ContentRestriction) error {
	if s.err == nil {
		s.restrictions = append(s.restrictions, *r)
	}
	return s.err
}

func (s *stubStore) ListContentRestrictions(_ context.Context, userID string) ([]models.ContentRestriction, error) {
	return s.restrictions, s.err
}

func (s *stubStore) DeleteContentRestriction(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return s.err
}

func (s *stubStore) ListEntityStats(_ context.Context, userID string) ([]models.EntityStats, error) {
	return s.stats, s.err
}

func (s *stubStore) UpsertOverlay(_ context.Context, o *models.UserOverlay) error {
	if s.err == nil {
		s.overlays = append(s.overlays, *o)
	}
	return s.err
}

func (s *stubStore) UpsertInstance(_ context.Context, inst *models.Instance) error {
	if s.err == nil {
		s.instances = append(s.instances, *inst)
	}
	return s.err
}

func (s *stubStore) ListInstances(context.Context) ([]models.Instance, error) {
	return s.instances, s.err
}

func (s *stubStore) DeleteInstance(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return s.err
}

func (s *stubStore) ClearInstanceData(_ context.Context, instance string) error {
	s.cleared = append(s.cleared, instance)
	return s.err
}

// testEnv bundles the stubs behind a running handler.
type testEnv struct {
	entities   *stubEntities
	sync       *stubSync
	exclusions *stubExclusions
	store      *stubStore
	handler    http.Handler
}

func newTestEnv() *testEnv {
	env := &testEnv{
		entities:   &stubEntities{scenes: &query.Result[models.Scene]{Page: 1, PerPage: 40}},
		sync:       newStubSync(),
		exclusions: &stubExclusions{},
		store:      &stubStore{},
	}
	env.handler = NewRouter(Deps{
		Entities:   env.entities,
		Sync:       env.sync,
		Exclusions: env.exclusions,
		Store:      env.store,
	}).Handler()
	return env
}

// envelope mirrors APIResponse with raw data for per-test decoding.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func doRequest(t *testing.T, handler http.Handler, method, target, body string) (*httptest.ResponseRecorder, *envelope) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	env := &envelope{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), env); err != nil {
			t.Fatalf("decoding %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func TestListScenes(t *testing.T) {
	env := newTestEnv()
	env.entities.scenes = &query.Result[models.Scene]{
		Items:   []*models.Scene{{ID: "7", Title: strPtr("Night Run")}},
		Total:   1,
		Page:    1,
		PerPage: 40,
	}

	rec, body := doRequest(t, env.handler, "GET", "/api/v1/scenes?user=alice&page=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !body.Success {
		t.Error("success = false")
	}
	if env.entities.gotOpts.UserID != "alice" || env.entities.gotOpts.Page != 2 {
		t.Errorf("opts = %+v", env.entities.gotOpts)
	}
	if !env.entities.gotOpts.ApplyExclusions {
		t.Error("exclusions not applied")
	}

	var result query.Result[models.Scene]
	if err := json.Unmarshal(body.Data, &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if result.Total != 1 || len(result.Items) != 1 || result.Items[0].ID != "7" {
		t.Errorf("result = %+v", result)
	}
}

func strPtr(s string) *string { return &s }

func TestListScenesBadFilters(t *testing.T) {
	env := newTestEnv()
	rec, body := doRequest(t, env.handler, "GET", "/api/v1/scenes?filters=%7Bnope", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if body.Error == nil || body.Error.Code != ErrCodeBadRequest {
		t.Errorf("error = %+v", body.Error)
	}
}

func TestListScenesUnknownFilterKey(t *testing.T) {
	env := newTestEnv()
	env.entities.err = query.ErrInvalidOptions

	rec, _ := doRequest(t, env.handler, "GET", "/api/v1/scenes", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSceneByID(t *testing.T) {
	env := newTestEnv()
	env.entities.scene = &models.Scene{ID: "42"}

	rec, _ := doRequest(t, env.handler, "GET", "/api/v1/scenes/42?instance=main&user=bob", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if env.entities.gotID != "42" || env.entities.gotScope != "main" || env.entities.gotUser != "bob" {
		t.Errorf("call = (%q, %q, %q)", env.entities.gotUser, env.entities.gotID, env.entities.gotScope)
	}
}

func TestSceneByIDNotFound(t *testing.T) {
	env := newTestEnv()
	env.entities.err = query.ErrNotFound

	rec, body := doRequest(t, env.handler, "GET", "/api/v1/scenes/404", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if body.Error == nil || body.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v", body.Error)
	}
}

func TestClipsForScene(t *testing.T) {
	env := newTestEnv()
	env.entities.clips = []*models.Clip{{ID: "c1"}, {ID: "c2"}}

	rec, body := doRequest(t, env.handler, "GET", "/api/v1/scenes/9/clips", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if env.entities.gotID != "9" {
		t.Errorf("scene id = %q", env.entities.gotID)
	}
	var clips []*models.Clip
	if err := json.Unmarshal(body.Data, &clips); err != nil {
		t.Fatalf("decoding clips: %v", err)
	}
	if len(clips) != 2 {
		t.Errorf("clips = %d", len(clips))
	}
}

func TestSyncTriggerAccepted(t *testing.T) {
	env := newTestEnv()

	rec, _ := doRequest(t, env.handler, "POST", "/api/v1/sync/incremental/main", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}

	select {
	case mode := <-env.sync.runs:
		if mode != "incremental:main" {
			t.Errorf("mode = %q", mode)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sync never ran")
	}
}

func TestSyncTriggerAllInstances(t *testing.T) {
	env := newTestEnv()

	rec, _ := doRequest(t, env.handler, "POST", "/api/v1/sync/full", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}

	select {
	case mode := <-env.sync.runs:
		if mode != "full" {
			t.Errorf("mode = %q", mode)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sync never ran")
	}
}

func TestSyncTriggerConflict(t *testing.T) {
	env := newTestEnv()
	env.sync.syncing = true

	rec, body := doRequest(t, env.handler, "POST", "/api/v1/sync/full", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	if body.Error == nil || body.Error.Code != ErrCodeConflict {
		t.Errorf("error = %+v", body.Error)
	}
}

func TestSyncStatus(t *testing.T) {
	env := newTestEnv()
	env.sync.syncing = true

	rec, body := doRequest(t, env.handler, "GET", "/api/v1/sync/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status SyncStatusResponse
	if err := json.Unmarshal(body.Data, &status); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if !status.Syncing {
		t.Error("syncing = false")
	}
}

func TestEntitySync(t *testing.T) {
	env := newTestEnv()

	rec, _ := doRequest(t, env.handler, "POST", "/api/v1/sync/entity",
		`{"instance":"main","kind":"scene","id":"5"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	select {
	case mode := <-env.sync.runs:
		if mode != "entity:main:scene:5" {
			t.Errorf("mode = %q", mode)
		}
	default:
		t.Fatal("entity sync never ran")
	}
}

func TestEntitySyncValidation(t *testing.T) {
	env := newTestEnv()

	for _, body := range []string{
		`{"instance":"main","kind":"nope","id":"5"}`,
		`{"instance":"","kind":"scene","id":"5"}`,
		`{"instance":"main","kind":"scene","id":""}`,
		`not json`,
	} {
		rec, _ := doRequest(t, env.handler, "POST", "/api/v1/sync/entity", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestHideEntity(t *testing.T) {
	env := newTestEnv()

	rec, _ := doRequest(t, env.handler, "POST", "/api/v1/users/alice/hidden",
		`{"entityType":"performer","entityId":"p9","instance":"main"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(env.exclusions.calls) != 1 || env.exclusions.calls[0] != "add:alice:performer:p9:main" {
		t.Errorf("calls = %v", env.exclusions.calls)
	}
}

func TestUnhideEntity(t *testing.T) {
	env := newTestEnv()

	rec, _ := doRequest(t, env.handler, "DELETE",
		"/api/v1/users/alice/hidden?kind=performer&entity_id=p9", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(env.exclusions.calls) != 1 || env.exclusions.calls[0] != "remove:alice:performer:p9:" {
		t.Errorf("calls = %v", env.exclusions.calls)
	}
}

func TestUnhideEntityValidation(t *testing.T) {
	env := newTestEnv()
	rec, _ := doRequest(t, env.handler, "DELETE", "/api/v1/users/alice/hidden", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUpsertRestrictionRecomputes(t *testing.T) {
	env := newTestEnv()

	rec, _ := doRequest(t, env.handler, "POST", "/api/v1/users/alice/restrictions",
		`{"entityType":"tags","mode":"EXCLUDE","entityIds":["t1"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(env.store.restrictions) != 1 {
		t.Fatalf("restrictions stored = %d", len(env.store.restrictions))
	}
	stored := env.store.restrictions[0]
	if stored.ID == "" || stored.UserID != "alice" || stored.Mode != models.RestrictionExclude {
		t.Errorf("stored = %+v", stored)
	}
	if len(env.exclusions.calls) != 1 || env.exclusions.calls[0] != "recompute:alice" {
		t.Errorf("calls = %v", env.exclusions.calls)
	}
}

func TestUpsertRestrictionValidation(t *testing.T) {
	env := newTestEnv()

	for _, body := range []string{
		`{"entityType":"widgets","mode":"EXCLUDE"}`,
		`{"entityType":"tags","mode":"MAYBE"}`,
	} {
		rec, _ := doRequest(t, env.handler, "POST", "/api/v1/users/alice/restrictions", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestDeleteRestrictionWithRecompute(t *testing.T) {
	env := newTestEnv()

	rec, _ := doRequest(t, env.handler, "DELETE", "/api/v1/restrictions/r1?user=alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(env.store.deleted) != 1 || env.store.deleted[0] != "r1" {
		t.Errorf("deleted = %v", env.store.deleted)
	}
	if len(env.exclusions.calls) != 1 || env.exclusions.calls[0] != "recompute:alice" {
		t.Errorf("calls = %v", env.exclusions.calls)
	}
}

func TestUpsertOverlay(t *testing.T) {
	env := newTestEnv()

	rec, _ := doRequest(t, env.handler, "PUT", "/api/v1/users/alice/overlays",
		`{"entityType":"scene","entityId":"7","rating":85,"favorite":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(env.store.overlays) != 1 {
		t.Fatalf("overlays stored = %d", len(env.store.overlays))
	}
	o := env.store.overlays[0]
	if o.UserID != "alice" || o.Rating == nil || *o.Rating != 85 || !o.Favorite {
		t.Errorf("overlay = %+v", o)
	}
}

func TestUpsertOverlayRatingRange(t *testing.T) {
	env := newTestEnv()

	rec, _ := doRequest(t, env.handler, "PUT", "/api/v1/users/alice/overlays",
		`{"entityType":"scene","entityId":"7","rating":150}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUpsertInstanceValidation(t *testing.T) {
	env := newTestEnv()

	rec, _ := doRequest(t, env.handler, "POST", "/api/v1/instances/",
		`{"name":"no url"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUpsertInstanceGeneratesID(t *testing.T) {
	env := newTestEnv()

	rec, _ := doRequest(t, env.handler, "POST", "/api/v1/instances/",
		`{"name":"main","baseUrl":"http://stash.local","enabled":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(env.store.instances) != 1 || env.store.instances[0].ID == "" {
		t.Errorf("instances = %+v", env.store.instances)
	}
}

func TestClearInstance(t *testing.T) {
	env := newTestEnv()

	rec, _ := doRequest(t, env.handler, "POST", "/api/v1/instances/main/clear", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(env.store.cleared) != 1 || env.store.cleared[0] != "main" {
		t.Errorf("cleared = %v", env.store.cleared)
	}
}

func TestHealthReady(t *testing.T) {
	env := newTestEnv()

	rec, _ := doRequest(t, env.handler, "GET", "/api/v1/health/ready", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}

	env.store.pingErr = context.DeadlineExceeded
	rec, _ = doRequest(t, env.handler, "GET", "/api/v1/health/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded status = %d, want 503", rec.Code)
	}
}

func TestHealthReportsDegradedStore(t *testing.T) {
	env := newTestEnv()
	env.store.pingErr = context.DeadlineExceeded

	rec, body := doRequest(t, env.handler, "GET", "/api/v1/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	var health HealthResponse
	if err := json.Unmarshal(body.Data, &health); err != nil {
		t.Fatalf("decoding health: %v", err)
	}
	if health.Database != "unreachable" {
		t.Errorf("database = %q", health.Database)
	}
}

func TestRequestIDOnResponse(t *testing.T) {
	env := newTestEnv()
	rec, _ := doRequest(t, env.handler, "GET", "/api/v1/health/live", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("no X-Request-ID header on response")
	}
}
