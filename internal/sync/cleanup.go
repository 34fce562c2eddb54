// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

/*
cleanup.go - Deleted-Entity Reconciliation

Full syncs end each kind with a reconciliation pass: the complete upstream
ID set is streamed into a temp table and local live rows absent from it are
soft-deleted. Scenes additionally run merge detection before the delete, so
user overlays survive upstream duplicate merges.
*/
package sync

import (
	"context"
	"fmt"

	"github.com/curator-app/curator/internal/instances"
	"github.com/curator-app/curator/internal/logging"
	"github.com/curator-app/curator/internal/metrics"
	"github.com/curator-app/curator/internal/models"
)

// cleanupDeleted soft-deletes local rows of one kind that no longer exist
// upstream on the given instance.
func (e *Engine) cleanupDeleted(ctx context.Context, entry *instances.Entry, ops *kindOps, kind models.Kind) error {
	instanceID := entry.Instance.ID

	scan, err := e.db.BeginIDScan(ctx, kind)
	if err != nil {
		return err
	}
	defer scan.Close()

	for page := 1; ; page++ {
		if err := checkCancelled(ctx); err != nil {
			return err
		}

		var ids []string
		var total int
		err := e.retryWithBackoff(ctx, func() error {
			var ferr error
			ids, total, ferr = ops.scanIDs(ctx, page, e.cfg.CleanupPageSize)
			return ferr
		})
		if err != nil {
			return fmt.Errorf("id scan for %s failed: %w", kind, err)
		}
		if len(ids) > 0 {
			if err := scan.AddIDs(ctx, ids); err != nil {
				return err
			}
		}
		if len(ids) == 0 || page*e.cfg.CleanupPageSize >= total {
			break
		}
	}

	missing, err := scan.MissingLocalIDs(ctx, kind, instanceID)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}

	if kind == models.KindScene {
		if err := e.reassignMergedScenes(ctx, instanceID, missing); err != nil {
			return err
		}
	}

	for i := 0; i < len(missing); i += e.cfg.PageSize {
		if err := checkCancelled(ctx); err != nil {
			return err
		}
		end := i + e.cfg.PageSize
		if end > len(missing) {
			end = len(missing)
		}
		if err := e.db.SoftDeleteBatch(ctx, kind, instanceID, missing[i:end]); err != nil {
			return err
		}
	}

	metrics.SyncSoftDeletes.WithLabelValues(instanceID, string(kind)).Add(float64(len(missing)))
	logging.Info().Str("instance", instanceID).Str("kind", string(kind)).Int("count", len(missing)).Msg("Soft-deleted entities missing upstream")
	return nil
}

// reassignMergedScenes detects upstream scene merges among the
// soon-to-be-deleted set. A disappearing scene whose perceptual hash still
// exists on a live scene was merged, not removed, so its user overlay and
// hidden rows move to the survivor.
func (e *Engine) reassignMergedScenes(ctx context.Context, instanceID string, missing []string) error {
	for _, id := range missing {
		phash, err := e.db.ScenePhash(ctx, id, instanceID)
		if err != nil {
			return err
		}
		if phash == nil || *phash == "" {
			continue
		}

		survivors, err := e.db.SceneIDsByPhash(ctx, *phash, instanceID, id)
		if err != nil {
			return err
		}
		if len(survivors) == 0 {
			continue
		}

		if err := e.db.ReassignUserRows(ctx, models.KindScene, id, survivors[0], instanceID); err != nil {
			return err
		}
		metrics.SyncMerges.Inc()
		logging.Info().Str("instance", instanceID).Str("from", id).Str("to", survivors[0]).Msg("Reassigned user rows after scene merge")
	}
	return nil
}
