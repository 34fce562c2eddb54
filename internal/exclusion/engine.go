// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

// Package exclusion materializes per-user visibility: administrator
// restrictions, explicit hides, graph cascades, and empty-entity pruning are
// folded into the user_excluded_entities index that every list query joins
// against.
//
// Recomputes are split into a compute phase (pure reads, may be slow) and a
// commit phase (one short atomic swap), so write locks never cover graph
// traversal.
package exclusion

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/curator-app/curator/internal/database"
	"github.com/curator-app/curator/internal/logging"
	"github.com/curator-app/curator/internal/metrics"
	"github.com/curator-app/curator/internal/models"
)

// recomputeTimeout bounds the fire-and-forget recompute spawned by an
// unhide.
const recomputeTimeout = 5 * time.Minute

// inflight is one running recompute; late callers wait on done and share
// err.
type inflight struct {
	done chan struct{}
	err  error
}

// Engine computes and persists exclusion rows.
type Engine struct {
	db *database.DB

	mu      stdsync.Mutex
	running map[string]*inflight
}

// NewEngine builds the exclusion engine.
func NewEngine(db *database.DB) *Engine {
	return &Engine{
		db:      db,
		running: make(map[string]*inflight),
	}
}

// RecomputeUser rebuilds the full exclusion set for one user. Concurrent
// calls for the same user join the running recompute and share its result.
func (e *Engine) RecomputeUser(ctx context.Context, userID string) error {
	e.mu.Lock()
	if call, ok := e.running[userID]; ok {
		e.mu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	call := &inflight{done: make(chan struct{})}
	e.running[userID] = call
	e.mu.Unlock()

	call.err = e.recompute(ctx, userID)

	e.mu.Lock()
	delete(e.running, userID)
	e.mu.Unlock()
	close(call.done)

	return call.err
}

func (e *Engine) recompute(ctx context.Context, userID string) error {
	start := time.Now()

	rows, err := e.compute(ctx, userID)
	if err != nil {
		metrics.ExclusionRecomputes.WithLabelValues("failure").Inc()
		return fmt.Errorf("exclusion compute for %s failed: %w", userID, err)
	}

	if err := e.db.SwapExcludedEntities(ctx, userID, rows); err != nil {
		metrics.ExclusionRecomputes.WithLabelValues("failure").Inc()
		return fmt.Errorf("exclusion swap for %s failed: %w", userID, err)
	}

	duration := time.Since(start)
	metrics.ExclusionRecomputes.WithLabelValues("success").Inc()
	metrics.ExclusionRecomputeDuration.Observe(duration.Seconds())
	metrics.ExclusionRowCount.WithLabelValues(userID).Set(float64(len(rows)))
	logging.Info().Str("user", userID).Int("rows", len(rows)).Dur("duration", duration).Msg("Exclusion index rebuilt")
	return nil
}

// RecomputeAllUsers rebuilds every known user's exclusion set serially. A
// single user's failure is logged and counted, never aborts the run.
func (e *Engine) RecomputeAllUsers(ctx context.Context) error {
	userIDs, err := e.db.ListUserIDs(ctx)
	if err != nil {
		return err
	}

	var failures int
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := e.RecomputeUser(ctx, userID); err != nil {
			failures++
			logging.Error().Err(err).Str("user", userID).Msg("Exclusion recompute failed for user")
		}
	}

	logging.Info().Int("users", len(userIDs)).Int("failures", failures).Msg("All-user exclusion recompute finished")
	if failures > 0 {
		return fmt.Errorf("exclusion recompute failed for %d of %d users", failures, len(userIDs))
	}
	return nil
}

// AddHiddenEntity records a hide and applies it incrementally: the direct
// row plus its cascade closure are upserted in one short transaction,
// skipping the full recompute. Hiding an entity absent from the mirror is
// an idempotent no-op beyond the stored hide.
func (e *Engine) AddHiddenEntity(ctx context.Context, userID string, kind models.Kind, entityID, instance string) error {
	if !models.ValidKind(kind) {
		return fmt.Errorf("unknown entity kind %q", kind)
	}
	if !models.ValidID(entityID) {
		return fmt.Errorf("invalid entity id %q", entityID)
	}

	if err := e.db.UpsertHiddenEntity(ctx, &models.HiddenEntity{
		UserID:   userID,
		Kind:     kind,
		EntityID: entityID,
		Instance: instance,
	}); err != nil {
		return err
	}

	set := newExclusionSet(userID)
	set.add(kind, entityID, instance, models.ReasonHidden)
	if err := e.cascade(ctx, set); err != nil {
		return err
	}

	return e.db.AddExcludedEntities(ctx, userID, set.sorted())
}

// RemoveHiddenEntity deletes a hide and schedules an async full recompute:
// other hides or restrictions may still cascade onto the same targets, so
// the incremental shortcut only works in one direction.
func (e *Engine) RemoveHiddenEntity(ctx context.Context, userID string, kind models.Kind, entityID, instance string) error {
	if err := e.db.DeleteHiddenEntity(ctx, userID, kind, entityID, instance); err != nil {
		return err
	}

	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), recomputeTimeout)
		defer cancel()
		if err := e.RecomputeUser(bgCtx, userID); err != nil {
			logging.Error().Err(err).Str("user", userID).Msg("Post-unhide recompute failed")
		}
	}()
	return nil
}
