// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

/*
kinds.go - Kind Operation Table

Binds each entity kind to its upstream fetch operations and batch
constructor, so the engine's page loop is kind-agnostic.
*/
package sync

import (
	"context"
	"fmt"

	"github.com/curator-app/curator/internal/models"
	"github.com/curator-app/curator/internal/stash"
)

// kindOps are the upstream operations for one kind against one instance.
type kindOps struct {
	kind models.Kind

	// count returns how many entities changed since updatedAfter.
	count func(ctx context.Context, updatedAfter string) (int, error)
	// fetchPage returns one converted page and the upstream total.
	fetchPage func(ctx context.Context, updatedAfter string, page, perPage int) (entityBatch, int, error)
	// scanIDs returns one id-only page for deleted-reconciliation.
	scanIDs func(ctx context.Context, page, perPage int) ([]string, int, error)
	// fetchOne returns a batch of one, or nil when the entity is gone
	// upstream.
	fetchOne func(ctx context.Context, id string) (entityBatch, error)
}

// opsFor builds the operation table for one kind. instance tags converted
// rows with their source.
func opsFor(client *stash.Client, instance string, kind models.Kind) (*kindOps, error) {
	switch kind {
	case models.KindScene:
		return &kindOps{
			kind:  kind,
			count: client.CountScenes,
			fetchPage: func(ctx context.Context, after string, page, perPage int) (entityBatch, int, error) {
				raws, total, err := client.FindScenes(ctx, after, page, perPage)
				if err != nil {
					return nil, 0, err
				}
				items := make([]models.Scene, len(raws))
				for i := range raws {
					items[i] = stash.ToScene(&raws[i], instance)
				}
				return &sceneBatch{items: items}, total, nil
			},
			scanIDs: client.SceneIDs,
			fetchOne: func(ctx context.Context, id string) (entityBatch, error) {
				raw, err := client.FindScene(ctx, id)
				if err != nil || raw == nil {
					return nil, err
				}
				return &sceneBatch{items: []models.Scene{stash.ToScene(raw, instance)}}, nil
			},
		}, nil

	case models.KindImage:
		return &kindOps{
			kind:  kind,
			count: client.CountImages,
			fetchPage: func(ctx context.Context, after string, page, perPage int) (entityBatch, int, error) {
				raws, total, err := client.FindImages(ctx, after, page, perPage)
				if err != nil {
					return nil, 0, err
				}
				items := make([]models.Image, len(raws))
				for i := range raws {
					items[i] = stash.ToImage(&raws[i], instance)
				}
				return &imageBatch{items: items}, total, nil
			},
			scanIDs: client.ImageIDs,
			fetchOne: func(ctx context.Context, id string) (entityBatch, error) {
				raw, err := client.FindImage(ctx, id)
				if err != nil || raw == nil {
					return nil, err
				}
				return &imageBatch{items: []models.Image{stash.ToImage(raw, instance)}}, nil
			},
		}, nil

	case models.KindGallery:
		return &kindOps{
			kind:  kind,
			count: client.CountGalleries,
			fetchPage: func(ctx context.Context, after string, page, perPage int) (entityBatch, int, error) {
				raws, total, err := client.FindGalleries(ctx, after, page, perPage)
				if err != nil {
					return nil, 0, err
				}
				items := make([]models.Gallery, len(raws))
				for i := range raws {
					items[i] = stash.ToGallery(&raws[i], instance)
				}
				return &galleryBatch{items: items}, total, nil
			},
			scanIDs: client.GalleryIDs,
			fetchOne: func(ctx context.Context, id string) (entityBatch, error) {
				raw, err := client.FindGallery(ctx, id)
				if err != nil || raw == nil {
					return nil, err
				}
				return &galleryBatch{items: []models.Gallery{stash.ToGallery(raw, instance)}}, nil
			},
		}, nil

	case models.KindPerformer:
		return &kindOps{
			kind:  kind,
			count: client.CountPerformers,
			fetchPage: func(ctx context.Context, after string, page, perPage int) (entityBatch, int, error) {
				raws, total, err := client.FindPerformers(ctx, after, page, perPage)
				if err != nil {
					return nil, 0, err
				}
				items := make([]models.Performer, len(raws))
				for i := range raws {
					items[i] = stash.ToPerformer(&raws[i], instance)
				}
				return &performerBatch{items: items}, total, nil
			},
			scanIDs: client.PerformerIDs,
			fetchOne: func(ctx context.Context, id string) (entityBatch, error) {
				raw, err := client.FindPerformer(ctx, id)
				if err != nil || raw == nil {
					return nil, err
				}
				return &performerBatch{items: []models.Performer{stash.ToPerformer(raw, instance)}}, nil
			},
		}, nil

	case models.KindStudio:
		return &kindOps{
			kind:  kind,
			count: client.CountStudios,
			fetchPage: func(ctx context.Context, after string, page, perPage int) (entityBatch, int, error) {
				raws, total, err := client.FindStudios(ctx, after, page, perPage)
				if err != nil {
					return nil, 0, err
				}
				items := make([]models.Studio, len(raws))
				for i := range raws {
					items[i] = stash.ToStudio(&raws[i], instance)
				}
				return &studioBatch{items: items}, total, nil
			},
			scanIDs: client.StudioIDs,
			fetchOne: func(ctx context.Context, id string) (entityBatch, error) {
				raw, err := client.FindStudio(ctx, id)
				if err != nil || raw == nil {
					return nil, err
				}
				return &studioBatch{items: []models.Studio{stash.ToStudio(raw, instance)}}, nil
			},
		}, nil

	case models.KindTag:
		return &kindOps{
			kind:  kind,
			count: client.CountTags,
			fetchPage: func(ctx context.Context, after string, page, perPage int) (entityBatch, int, error) {
				raws, total, err := client.FindTags(ctx, after, page, perPage)
				if err != nil {
					return nil, 0, err
				}
				items := make([]models.Tag, len(raws))
				for i := range raws {
					items[i] = stash.ToTag(&raws[i], instance)
				}
				return &tagBatch{items: items}, total, nil
			},
			scanIDs: client.TagIDs,
			fetchOne: func(ctx context.Context, id string) (entityBatch, error) {
				raw, err := client.FindTag(ctx, id)
				if err != nil || raw == nil {
					return nil, err
				}
				return &tagBatch{items: []models.Tag{stash.ToTag(raw, instance)}}, nil
			},
		}, nil

	case models.KindGroup:
		return &kindOps{
			kind:  kind,
			count: client.CountGroups,
			fetchPage: func(ctx context.Context, after string, page, perPage int) (entityBatch, int, error) {
				raws, total, err := client.FindGroups(ctx, after, page, perPage)
				if err != nil {
					return nil, 0, err
				}
				items := make([]models.Group, len(raws))
				for i := range raws {
					items[i] = stash.ToGroup(&raws[i], instance)
				}
				return &groupBatch{items: items}, total, nil
			},
			scanIDs: client.GroupIDs,
			fetchOne: func(ctx context.Context, id string) (entityBatch, error) {
				raw, err := client.FindGroup(ctx, id)
				if err != nil || raw == nil {
					return nil, err
				}
				return &groupBatch{items: []models.Group{stash.ToGroup(raw, instance)}}, nil
			},
		}, nil

	case models.KindClip:
		return &kindOps{
			kind:  kind,
			count: client.CountMarkers,
			fetchPage: func(ctx context.Context, after string, page, perPage int) (entityBatch, int, error) {
				raws, total, err := client.FindMarkers(ctx, after, page, perPage)
				if err != nil {
					return nil, 0, err
				}
				items := make([]models.Clip, len(raws))
				for i := range raws {
					items[i] = stash.ToClip(&raws[i], instance)
				}
				return &clipBatch{items: items}, total, nil
			},
			scanIDs: client.MarkerIDs,
			fetchOne: func(ctx context.Context, id string) (entityBatch, error) {
				raw, err := client.FindMarker(ctx, id)
				if err != nil || raw == nil {
					return nil, err
				}
				return &clipBatch{items: []models.Clip{stash.ToClip(raw, instance)}}, nil
			},
		}, nil
	}

	return nil, fmt.Errorf("unknown entity kind %q", kind)
}
