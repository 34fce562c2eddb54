// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

// Package api is the HTTP surface: per-kind browse endpoints, the by-id
// lookups, sync administration, instance and user administration, the
// websocket feed, and the upstream media proxy. Viewer identity arrives in
// the X-Curator-User header; every browse response is already filtered
// through that viewer's exclusion index.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/curator-app/curator/internal/config"
	"github.com/curator-app/curator/internal/instances"
	"github.com/curator-app/curator/internal/middleware"
	"github.com/curator-app/curator/internal/models"
	"github.com/curator-app/curator/internal/proxyurl"
	"github.com/curator-app/curator/internal/query"
	"github.com/curator-app/curator/internal/websocket"
)

// EntityService serves filtered, hydrated entity reads. Implemented by
// query.Service.
type EntityService interface {
	ListScenes(ctx context.Context, opts query.Options) (*query.Result[models.Scene], error)
	SceneByID(ctx context.Context, userID, id, instance string) (*models.Scene, error)
	ListImages(ctx context.Context, opts query.Options) (*query.Result[models.Image], error)
	ImageByID(ctx context.Context, userID, id, instance string) (*models.Image, error)
	ListGalleries(ctx context.Context, opts query.Options) (*query.Result[models.Gallery], error)
	GalleryByID(ctx context.Context, userID, id, instance string) (*models.Gallery, error)
	ListPerformers(ctx context.Context, opts query.Options) (*query.Result[models.Performer], error)
	PerformerByID(ctx context.Context, userID, id, instance string) (*models.Performer, error)
	ListStudios(ctx context.Context, opts query.Options) (*query.Result[models.Studio], error)
	StudioByID(ctx context.Context, userID, id, instance string) (*models.Studio, error)
	ListTags(ctx context.Context, opts query.Options) (*query.Result[models.Tag], error)
	TagByID(ctx context.Context, userID, id, instance string) (*models.Tag, error)
	ListGroups(ctx context.Context, opts query.Options) (*query.Result[models.Group], error)
	GroupByID(ctx context.Context, userID, id, instance string) (*models.Group, error)
	ListClips(ctx context.Context, opts query.Options) (*query.Result[models.Clip], error)
	ClipsForScene(ctx context.Context, userID, sceneID, instance string) ([]*models.Clip, error)
}

// SyncEngine exposes the sync orchestration surface. Implemented by
// sync.Engine.
type SyncEngine interface {
	IsSyncing() bool
	Abort() bool
	Status(ctx context.Context) (bool, []models.SyncState, error)
	FullSync(ctx context.Context, instanceID string) error
	FullSyncAll(ctx context.Context) error
	IncrementalSync(ctx context.Context, instanceID string) error
	IncrementalSyncAll(ctx context.Context) error
	SingleEntitySync(ctx context.Context, instanceID string, kind models.Kind, id string) error
}

// ExclusionManager maintains per-user exclusion indexes. Implemented by
// exclusion.Engine.
type ExclusionManager interface {
	AddHiddenEntity(ctx context.Context, userID string, kind models.Kind, entityID, instance string) error
	RemoveHiddenEntity(ctx context.Context, userID string, kind models.Kind, entityID, instance string) error
	RecomputeUser(ctx context.Context, userID string) error
}

// PreviewReprober re-classifies clip previews for one instance. Implemented
// by preview.Reprober.
type PreviewReprober interface {
	Run(ctx context.Context, instanceID string) (int, error)
}

// Store is the slice of the database layer the handlers touch directly:
// user administration rows and instance rows. Implemented by database.DB.
type Store interface {
	Ping(ctx context.Context) error

	ListHiddenEntities(ctx context.Context, userID string) ([]models.HiddenEntity, error)
	UpsertContentRestriction(ctx context.Context, r *models.ContentRestriction) error
	ListContentRestrictions(ctx context.Context, userID string) ([]models.ContentRestriction, error)
	DeleteContentRestriction(ctx context.Context, id string) error
	ListEntityStats(ctx context.Context, userID string) ([]models.EntityStats, error)
	UpsertOverlay(ctx context.Context, o *models.UserOverlay) error

	UpsertInstance(ctx context.Context, inst *models.Instance) error
	ListInstances(ctx context.Context) ([]models.Instance, error)
	DeleteInstance(ctx context.Context, id string) error
	ClearInstanceData(ctx context.Context, instance string) error
}

// Deps carries everything the router wires handlers to. Reprober and Hub
// may be nil; their routes then answer 503 and 404 respectively.
type Deps struct {
	Entities   EntityService
	Sync       SyncEngine
	Exclusions ExclusionManager
	Reprober   PreviewReprober
	Store      Store
	Registry   *instances.Registry
	Hub        *websocket.Hub
	Server     *config.ServerConfig
	Upstream   *config.UpstreamConfig
}

// Router builds the chi handler tree.
type Router struct {
	deps Deps
}

// NewRouter creates the router. Missing Server config falls back to
// defaults so tests can construct a router from a zero Deps.
func NewRouter(deps Deps) *Router {
	if deps.Server == nil {
		deps.Server = &config.ServerConfig{AdminRateLimit: 60}
	}
	return &Router{deps: deps}
}

// browseRateLimit is generous: list endpoints back every catalog page load.
var browseRateLimit = struct {
	requests int
	window   time.Duration
}{1000, time.Minute}

// Handler assembles the full route tree.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(chimiddleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.deps.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", userHeader},
		MaxAge:         86400,
	}))

	r.Handle("/metrics", promhttp.Handler())
	r.Get(proxyurl.Prefix, rt.handleProxy)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(browseRateLimit.requests, browseRateLimit.window))

			r.Get("/health", rt.handleHealth)
			r.Get("/health/live", rt.handleLive)
			r.Get("/health/ready", rt.handleReady)

			rt.browseRoutes(r)
		})

		r.Get("/ws", rt.handleWebsocket)

		// Administration: stricter limit, includes every mutating route.
		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(rt.deps.Server.AdminRateLimit, time.Minute))

			r.Route("/sync", func(r chi.Router) {
				r.Get("/status", rt.handleSyncStatus)
				r.Post("/full", rt.handleFullSync)
				r.Post("/full/{instance}", rt.handleFullSync)
				r.Post("/incremental", rt.handleIncrementalSync)
				r.Post("/incremental/{instance}", rt.handleIncrementalSync)
				r.Post("/entity", rt.handleEntitySync)
				r.Post("/abort", rt.handleSyncAbort)
			})

			r.Route("/instances", func(r chi.Router) {
				r.Get("/", rt.handleListInstances)
				r.Post("/", rt.handleUpsertInstance)
				r.Delete("/{id}", rt.handleDeleteInstance)
				r.Post("/{id}/clear", rt.handleClearInstance)
				r.Post("/{id}/reprobe", rt.handleReprobe)
			})

			r.Route("/users/{userID}", func(r chi.Router) {
				r.Get("/hidden", rt.handleListHidden)
				r.Post("/hidden", rt.handleHideEntity)
				r.Delete("/hidden", rt.handleUnhideEntity)
				r.Get("/restrictions", rt.handleListRestrictions)
				r.Post("/restrictions", rt.handleUpsertRestriction)
				r.Post("/recompute", rt.handleRecomputeUser)
				r.Put("/overlays", rt.handleUpsertOverlay)
				r.Get("/stats", rt.handleEntityStats)
			})

			r.Delete("/restrictions/{id}", rt.handleDeleteRestriction)
		})
	})

	return r
}

// browseRoutes mounts the per-kind list and by-id routes.
func (rt *Router) browseRoutes(r chi.Router) {
	r.Get("/scenes", rt.handleListScenes)
	r.Get("/scenes/{id}", rt.handleSceneByID)
	r.Get("/scenes/{id}/clips", rt.handleClipsForScene)

	r.Get("/images", rt.handleListImages)
	r.Get("/images/{id}", rt.handleImageByID)

	r.Get("/galleries", rt.handleListGalleries)
	r.Get("/galleries/{id}", rt.handleGalleryByID)

	r.Get("/performers", rt.handleListPerformers)
	r.Get("/performers/{id}", rt.handlePerformerByID)

	r.Get("/studios", rt.handleListStudios)
	r.Get("/studios/{id}", rt.handleStudioByID)

	r.Get("/tags", rt.handleListTags)
	r.Get("/tags/{id}", rt.handleTagByID)

	r.Get("/groups", rt.handleListGroups)
	r.Get("/groups/{id}", rt.handleGroupByID)

	r.Get("/clips", rt.handleListClips)
}

// handleWebsocket upgrades the connection and attaches it to the hub.
func (rt *Router) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Hub == nil {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "websocket feed not enabled")
		return
	}
	websocket.ServeWS(rt.deps.Hub, w, r)
}
