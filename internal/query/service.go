// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

/*
service.go - List Execution

Runs one list request end to end: hierarchy expansion of relation filter
IDs, SQL synthesis, page scan, total count, relation hydration, and the
media-path rewrite that keeps upstream URLs from ever leaving the
process. Counts share the page's WHERE clause, so the total always
agrees with what pagination walks.
*/
package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/curator-app/curator/internal/database"
	dbquery "github.com/curator-app/curator/internal/database/query"
	"github.com/curator-app/curator/internal/logging"
	"github.com/curator-app/curator/internal/metrics"
	"github.com/curator-app/curator/internal/models"
	"github.com/curator-app/curator/internal/proxyurl"
)

// ErrNotFound marks a by-ID lookup that matched no visible row. A row
// excluded for the requesting user is indistinguishable from a missing one.
var ErrNotFound = errors.New("entity not found")

// Service executes list and lookup queries against the mirror store.
type Service struct {
	db       *database.DB
	expander *Expander
	hydrator *Hydrator
}

// NewService builds the query service.
func NewService(db *database.DB) *Service {
	return &Service{
		db:       db,
		expander: NewExpander(db),
		hydrator: NewHydrator(db),
	}
}

// Result is one page of a list response.
type Result[T any] struct {
	Items   []*T `json:"items"`
	Total   int  `json:"total"`
	Page    int  `json:"page"`
	PerPage int  `json:"perPage"`
}

// expandRelations widens hierarchical relation filter IDs in place before
// the builder runs. Depth 0 leaves the IDs untouched.
func (s *Service) expandRelations(ctx context.Context, spec *kindSpec, opts *Options) error {
	for key, f := range opts.Filters.Relation {
		rs, ok := spec.relations[key]
		if !ok || rs.hierarchy == "" || f.Depth == 0 || len(f.IDs) == 0 {
			continue
		}

		var expanded []string
		var err error
		switch rs.hierarchy {
		case "tag":
			expanded, err = s.expander.ExpandTagIDs(ctx, f.IDs, f.Depth)
		case "studio":
			expanded, err = s.expander.ExpandStudioIDs(ctx, f.IDs, f.Depth)
		case "group":
			expanded, err = s.expander.ExpandGroupIDs(ctx, f.IDs, f.Depth)
		default:
			err = fmt.Errorf("unknown hierarchy %q", rs.hierarchy)
		}
		if err != nil {
			return fmt.Errorf("failed to expand %s filter: %w", key, err)
		}
		f.IDs = expanded
	}
	return nil
}

// listKind runs the shared list pipeline for one kind.
func listKind[T any](ctx context.Context, s *Service, spec *kindSpec, opts Options,
	scan func(rowScanner, bool) (*T, error)) (*Result[T], error) {
	start := time.Now()
	label := string(spec.kind) + ".list"

	result, err := runList(ctx, s, spec, &opts, scan)
	metrics.RecordQuery(label, time.Since(start), err)
	if err != nil {
		logging.Err(err).Str("kind", string(spec.kind)).Msg("list query failed")
		return nil, err
	}
	return result, nil
}

func runList[T any](ctx context.Context, s *Service, spec *kindSpec, opts *Options,
	scan func(rowScanner, bool) (*T, error)) (*Result[T], error) {
	if err := s.expandRelations(ctx, spec, opts); err != nil {
		return nil, err
	}

	built, err := buildList(spec, opts)
	if err != nil {
		return nil, err
	}
	withOverlay := opts.UserID != ""

	rows, err := s.db.Conn().QueryContext(ctx, built.list.sql, built.list.args...)
	if err != nil {
		return nil, fmt.Errorf("list query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*T, 0, opts.PerPage)
	for rows.Next() {
		item, err := scan(rows, withOverlay)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", spec.kind, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var total int
	if err := s.db.Conn().QueryRowContext(ctx, built.count.sql, built.count.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count query failed: %w", err)
	}

	return &Result[T]{Items: items, Total: total, Page: opts.Page, PerPage: opts.PerPage}, nil
}

// getByID runs the shared lookup pipeline. The scoped row wins over a
// legacy empty-instance row when both exist.
func getByID[T any](ctx context.Context, s *Service, spec *kindSpec, userID, id, instance string,
	scan func(rowScanner, bool) (*T, error)) (*T, error) {
	start := time.Now()
	label := string(spec.kind) + ".get"

	item, err := runGet(ctx, s, spec, userID, id, instance, scan)
	metrics.RecordQuery(label, time.Since(start), err)
	return item, err
}

func runGet[T any](ctx context.Context, s *Service, spec *kindSpec, userID, id, instance string,
	scan func(rowScanner, bool) (*T, error)) (*T, error) {
	wb := dbquery.NewWhereBuilder()
	wb.AddNotDeleted(spec.alias)
	wb.AddClause(spec.alias+".id = ?", id)
	if instance != "" {
		wb.AddClause(fmt.Sprintf("(%s.instance = ? OR %s.instance = '')", spec.alias, spec.alias), instance)
	}
	wb.AddExcludedFilter(spec.alias, userID, string(spec.kind))
	where, whereArgs := wb.Build()

	withOverlay := userID != ""
	cols := ""
	for _, c := range spec.selectColumns {
		cols += spec.alias + "." + c + ", "
	}
	cols = cols[:len(cols)-2]

	join := ""
	args := []interface{}{}
	if withOverlay {
		cols += ", uo.rating, uo.favorite"
		join = fmt.Sprintf(overlayJoin, spec.alias)
		args = append(args, userID, string(spec.kind))
	}
	args = append(args, whereArgs...)

	query := fmt.Sprintf("SELECT %s FROM %s %s%s WHERE %s ORDER BY %s.instance DESC LIMIT 1",
		cols, spec.table, spec.alias, join, where, spec.alias)

	item, err := scan(s.db.Conn().QueryRowContext(ctx, query, args...), withOverlay)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup failed for %s %s: %w", spec.kind, id, err)
	}
	return item, nil
}

// ListScenes returns one page of scenes with hydrated relations and
// proxied media paths.
func (s *Service) ListScenes(ctx context.Context, opts Options) (*Result[models.Scene], error) {
	result, err := listKind(ctx, s, &sceneSpec, opts, scanScene)
	if err != nil {
		return nil, err
	}
	if err := s.hydrator.HydrateScenes(ctx, result.Items); err != nil {
		return nil, err
	}
	for _, sc := range result.Items {
		rewriteScene(sc)
	}
	return result, nil
}

// SceneByID returns one scene or ErrNotFound.
func (s *Service) SceneByID(ctx context.Context, userID, id, instance string) (*models.Scene, error) {
	sc, err := getByID(ctx, s, &sceneSpec, userID, id, instance, scanScene)
	if err != nil {
		return nil, err
	}
	if err := s.hydrator.HydrateScenes(ctx, []*models.Scene{sc}); err != nil {
		return nil, err
	}
	rewriteScene(sc)
	return sc, nil
}

// ListImages returns one page of images.
func (s *Service) ListImages(ctx context.Context, opts Options) (*Result[models.Image], error) {
	result, err := listKind(ctx, s, &imageSpec, opts, scanImage)
	if err != nil {
		return nil, err
	}
	if err := s.hydrator.HydrateImages(ctx, result.Items); err != nil {
		return nil, err
	}
	for _, img := range result.Items {
		rewriteImage(img)
	}
	return result, nil
}

// ImageByID returns one image or ErrNotFound.
func (s *Service) ImageByID(ctx context.Context, userID, id, instance string) (*models.Image, error) {
	img, err := getByID(ctx, s, &imageSpec, userID, id, instance, scanImage)
	if err != nil {
		return nil, err
	}
	if err := s.hydrator.HydrateImages(ctx, []*models.Image{img}); err != nil {
		return nil, err
	}
	rewriteImage(img)
	return img, nil
}

// ListGalleries returns one page of galleries.
func (s *Service) ListGalleries(ctx context.Context, opts Options) (*Result[models.Gallery], error) {
	result, err := listKind(ctx, s, &gallerySpec, opts, scanGallery)
	if err != nil {
		return nil, err
	}
	if err := s.hydrator.HydrateGalleries(ctx, result.Items); err != nil {
		return nil, err
	}
	for _, g := range result.Items {
		rewriteGallery(g)
	}
	return result, nil
}

// GalleryByID returns one gallery or ErrNotFound.
func (s *Service) GalleryByID(ctx context.Context, userID, id, instance string) (*models.Gallery, error) {
	g, err := getByID(ctx, s, &gallerySpec, userID, id, instance, scanGallery)
	if err != nil {
		return nil, err
	}
	if err := s.hydrator.HydrateGalleries(ctx, []*models.Gallery{g}); err != nil {
		return nil, err
	}
	rewriteGallery(g)
	return g, nil
}

// ListPerformers returns one page of performers.
func (s *Service) ListPerformers(ctx context.Context, opts Options) (*Result[models.Performer], error) {
	result, err := listKind(ctx, s, &performerSpec, opts, scanPerformer)
	if err != nil {
		return nil, err
	}
	if err := s.hydrator.HydratePerformers(ctx, result.Items); err != nil {
		return nil, err
	}
	for _, p := range result.Items {
		rewritePerformer(p)
	}
	return result, nil
}

// PerformerByID returns one performer or ErrNotFound.
func (s *Service) PerformerByID(ctx context.Context, userID, id, instance string) (*models.Performer, error) {
	p, err := getByID(ctx, s, &performerSpec, userID, id, instance, scanPerformer)
	if err != nil {
		return nil, err
	}
	if err := s.hydrator.HydratePerformers(ctx, []*models.Performer{p}); err != nil {
		return nil, err
	}
	rewritePerformer(p)
	return p, nil
}

// ListStudios returns one page of studios.
func (s *Service) ListStudios(ctx context.Context, opts Options) (*Result[models.Studio], error) {
	result, err := listKind(ctx, s, &studioSpec, opts, scanStudio)
	if err != nil {
		return nil, err
	}
	if err := s.hydrator.HydrateStudios(ctx, result.Items); err != nil {
		return nil, err
	}
	for _, st := range result.Items {
		rewriteStudio(st)
	}
	return result, nil
}

// StudioByID returns one studio or ErrNotFound.
func (s *Service) StudioByID(ctx context.Context, userID, id, instance string) (*models.Studio, error) {
	st, err := getByID(ctx, s, &studioSpec, userID, id, instance, scanStudio)
	if err != nil {
		return nil, err
	}
	if err := s.hydrator.HydrateStudios(ctx, []*models.Studio{st}); err != nil {
		return nil, err
	}
	rewriteStudio(st)
	return st, nil
}

// ListTags returns one page of tags.
func (s *Service) ListTags(ctx context.Context, opts Options) (*Result[models.Tag], error) {
	result, err := listKind(ctx, s, &tagSpec, opts, scanTag)
	if err != nil {
		return nil, err
	}
	if err := s.hydrator.HydrateTags(ctx, result.Items); err != nil {
		return nil, err
	}
	for _, t := range result.Items {
		rewriteTag(t)
	}
	return result, nil
}

// TagByID returns one tag or ErrNotFound.
func (s *Service) TagByID(ctx context.Context, userID, id, instance string) (*models.Tag, error) {
	t, err := getByID(ctx, s, &tagSpec, userID, id, instance, scanTag)
	if err != nil {
		return nil, err
	}
	if err := s.hydrator.HydrateTags(ctx, []*models.Tag{t}); err != nil {
		return nil, err
	}
	rewriteTag(t)
	return t, nil
}

// ListGroups returns one page of groups.
func (s *Service) ListGroups(ctx context.Context, opts Options) (*Result[models.Group], error) {
	result, err := listKind(ctx, s, &groupSpec, opts, scanGroup)
	if err != nil {
		return nil, err
	}
	if err := s.hydrator.HydrateGroups(ctx, result.Items); err != nil {
		return nil, err
	}
	for _, g := range result.Items {
		rewriteGroup(g)
	}
	return result, nil
}

// GroupByID returns one group or ErrNotFound.
func (s *Service) GroupByID(ctx context.Context, userID, id, instance string) (*models.Group, error) {
	g, err := getByID(ctx, s, &groupSpec, userID, id, instance, scanGroup)
	if err != nil {
		return nil, err
	}
	if err := s.hydrator.HydrateGroups(ctx, []*models.Group{g}); err != nil {
		return nil, err
	}
	rewriteGroup(g)
	return g, nil
}

// ListClips returns one page of clips.
func (s *Service) ListClips(ctx context.Context, opts Options) (*Result[models.Clip], error) {
	result, err := listKind(ctx, s, &clipSpec, opts, scanClip)
	if err != nil {
		return nil, err
	}
	if err := s.hydrator.HydrateClips(ctx, result.Items); err != nil {
		return nil, err
	}
	for _, c := range result.Items {
		rewriteClip(c)
	}
	return result, nil
}

// ClipsForScene returns every clip of one scene ordered by start time,
// honoring the requesting user's exclusions on the parent scene.
func (s *Service) ClipsForScene(ctx context.Context, userID, sceneID, instance string) ([]*models.Clip, error) {
	start := time.Now()

	clips, err := s.clipsForScene(ctx, userID, sceneID, instance)
	metrics.RecordQuery("clip.for_scene", time.Since(start), err)
	return clips, err
}

func (s *Service) clipsForScene(ctx context.Context, userID, sceneID, instance string) ([]*models.Clip, error) {
	// The parent scene gates visibility: an excluded scene hides its clips.
	if _, err := s.SceneByID(ctx, userID, sceneID, instance); err != nil {
		return nil, err
	}

	wb := dbquery.NewWhereBuilder()
	wb.AddNotDeleted("c")
	wb.AddClause("c.scene_id = ?", sceneID)
	if instance != "" {
		wb.AddClause("(c.instance = ? OR c.instance = '')", instance)
	}
	where, args := wb.BuildWithPrefix()

	cols := ""
	for _, col := range clipSpec.selectColumns {
		cols += "c." + col + ", "
	}
	query := fmt.Sprintf("SELECT %s FROM clips c %s ORDER BY c.seconds ASC, c.id ASC",
		cols[:len(cols)-2], where)

	rows, err := s.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("clip query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var clips []*models.Clip
	for rows.Next() {
		c, err := scanClip(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan clip row: %w", err)
		}
		clips = append(clips, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.hydrator.HydrateClips(ctx, clips); err != nil {
		return nil, err
	}
	for _, c := range clips {
		rewriteClip(c)
	}
	return clips, nil
}

func rewriteRefs(refs []models.EntityRef) {
	for i := range refs {
		refs[i].ImagePath = proxyurl.Rewrite(refs[i].ImagePath, refs[i].Instance)
	}
}

func rewriteScene(s *models.Scene) {
	s.ScreenshotPath = proxyurl.Rewrite(s.ScreenshotPath, s.Instance)
	s.PreviewPath = proxyurl.Rewrite(s.PreviewPath, s.Instance)
	s.SpritePath = proxyurl.Rewrite(s.SpritePath, s.Instance)
	s.VTTPath = proxyurl.Rewrite(s.VTTPath, s.Instance)
	s.StreamPath = proxyurl.Rewrite(s.StreamPath, s.Instance)
	s.CaptionsPath = proxyurl.Rewrite(s.CaptionsPath, s.Instance)
	if s.Studio != nil {
		s.Studio.ImagePath = proxyurl.Rewrite(s.Studio.ImagePath, s.Studio.Instance)
	}
	rewriteRefs(s.Performers)
	rewriteRefs(s.Tags)
	rewriteRefs(s.Groups)
	rewriteRefs(s.Galleries)
}

func rewriteImage(i *models.Image) {
	i.ThumbnailPath = proxyurl.Rewrite(i.ThumbnailPath, i.Instance)
	i.PreviewPath = proxyurl.Rewrite(i.PreviewPath, i.Instance)
	i.ImagePath = proxyurl.Rewrite(i.ImagePath, i.Instance)
	if i.Studio != nil {
		i.Studio.ImagePath = proxyurl.Rewrite(i.Studio.ImagePath, i.Studio.Instance)
	}
	rewriteRefs(i.Performers)
	rewriteRefs(i.Tags)
	rewriteRefs(i.Galleries)
}

func rewriteGallery(g *models.Gallery) {
	if g.Studio != nil {
		g.Studio.ImagePath = proxyurl.Rewrite(g.Studio.ImagePath, g.Studio.Instance)
	}
	rewriteRefs(g.Performers)
	rewriteRefs(g.Tags)
}

func rewritePerformer(p *models.Performer) {
	p.ImagePath = proxyurl.Rewrite(p.ImagePath, p.Instance)
	rewriteRefs(p.Tags)
}

func rewriteStudio(st *models.Studio) {
	st.ImagePath = proxyurl.Rewrite(st.ImagePath, st.Instance)
	rewriteRefs(st.Tags)
}

func rewriteTag(t *models.Tag) {
	t.ImagePath = proxyurl.Rewrite(t.ImagePath, t.Instance)
}

func rewriteGroup(g *models.Group) {
	g.FrontPath = proxyurl.Rewrite(g.FrontPath, g.Instance)
	g.BackPath = proxyurl.Rewrite(g.BackPath, g.Instance)
	rewriteRefs(g.Tags)
}

func rewriteClip(c *models.Clip) {
	c.PreviewPath = proxyurl.Rewrite(c.PreviewPath, c.Instance)
	c.ScreenshotPath = proxyurl.Rewrite(c.ScreenshotPath, c.Instance)
	c.StreamPath = proxyurl.Rewrite(c.StreamPath, c.Instance)
	rewriteRefs(c.Tags)
}
