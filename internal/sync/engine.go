// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

/*
engine.go - Sync Engine Orchestration

Three invokable modes share one process-wide gate:
  - Full sync: refetch every kind in dependency order, reconcile deletes
    after each kind, persist per-kind state as it completes.
  - Smart incremental: per kind, count changes past the stored cursor and
    fetch only when needed; a kind with no cursor is promoted to full.
  - Single entity: one id through the same batch processor (batch of 1).

Cancellation is a sentinel (ErrSyncCancelled), checked at every page
boundary and before each long pass. An aborted run is logged as aborted,
not failed, and keeps the per-kind state already committed.
*/
package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/curator-app/curator/internal/config"
	"github.com/curator-app/curator/internal/database"
	"github.com/curator-app/curator/internal/instances"
	"github.com/curator-app/curator/internal/logging"
	"github.com/curator-app/curator/internal/metrics"
	"github.com/curator-app/curator/internal/models"
)

var (
	// ErrSyncInProgress is returned when a sync is requested while another
	// runs. At most one sync runs process-wide, across instances and modes.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrSyncCancelled is the cancellation sentinel. Top-level handlers
	// report it as aborted, never as failure.
	ErrSyncCancelled = errors.New("sync cancelled")

	errUnknownInstance = errors.New("unknown instance")
)

// Deriver runs the post-sync derivation passes.
type Deriver interface {
	RunAll(ctx context.Context) error
}

// ExclusionRecomputer rebuilds the exclusion index for every known user.
type ExclusionRecomputer interface {
	RecomputeAllUsers(ctx context.Context) error
}

// Event is one sync progress notification, fanned out to websocket
// subscribers.
type Event struct {
	Type     string    `json:"type"`
	Instance string    `json:"instance,omitempty"`
	Kind     string    `json:"kind,omitempty"`
	Count    int       `json:"count,omitempty"`
	Message  string    `json:"message,omitempty"`
	Time     time.Time `json:"time"`
}

// EventSink receives sync events. Implementations must not block.
type EventSink interface {
	Publish(event Event)
}

// Engine orchestrates sync runs against the instance registry.
type Engine struct {
	db       *database.DB
	registry *instances.Registry
	cfg      *config.SyncConfig

	deriver    Deriver
	exclusions ExclusionRecomputer
	events     EventSink

	mu      stdsync.Mutex
	syncing bool
	cancel  context.CancelFunc
}

// NewEngine builds the sync engine. deriver, exclusions, and events may be
// nil in tests.
func NewEngine(db *database.DB, registry *instances.Registry, cfg *config.SyncConfig,
	deriver Deriver, exclusions ExclusionRecomputer, events EventSink) *Engine {
	return &Engine{
		db:         db,
		registry:   registry,
		cfg:        cfg,
		deriver:    deriver,
		exclusions: exclusions,
		events:     events,
	}
}

// IsSyncing reports whether a sync run is active.
func (e *Engine) IsSyncing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncing
}

// Abort cancels the running sync, if any. Returns false when idle.
func (e *Engine) Abort() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.syncing || e.cancel == nil {
		return false
	}
	e.cancel()
	return true
}

// Status returns the recorded per-kind sync states and the gate flag.
func (e *Engine) Status(ctx context.Context) (bool, []models.SyncState, error) {
	states, err := e.db.ListSyncStates(ctx)
	if err != nil {
		return false, nil, err
	}
	return e.IsSyncing(), states, nil
}

// begin acquires the process-wide sync gate and derives the cancellable
// run context.
func (e *Engine) begin(ctx context.Context) (context.Context, func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.syncing {
		return nil, nil, ErrSyncInProgress
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.syncing = true
	e.cancel = cancel
	metrics.SyncInProgress.Set(1)

	return runCtx, func() {
		cancel()
		e.mu.Lock()
		e.syncing = false
		e.cancel = nil
		e.mu.Unlock()
		metrics.SyncInProgress.Set(0)
	}, nil
}

// checkCancelled converts context cancellation into the sentinel.
func checkCancelled(ctx context.Context) error {
	if ctx.Err() != nil {
		return ErrSyncCancelled
	}
	return nil
}

// publish fans out one event when a sink is attached.
func (e *Engine) publish(event Event) {
	if e.events == nil {
		return
	}
	event.Time = time.Now().UTC()
	e.events.Publish(event)
}

// FullSync refetches one instance completely.
func (e *Engine) FullSync(ctx context.Context, instanceID string) error {
	runCtx, done, err := e.begin(ctx)
	if err != nil {
		return err
	}
	defer done()
	return e.runGated(runCtx, "full", func() (int, error) {
		return e.fullSyncInstance(runCtx, instanceID)
	})
}

// FullSyncAll refetches every enabled instance, in priority order.
func (e *Engine) FullSyncAll(ctx context.Context) error {
	runCtx, done, err := e.begin(ctx)
	if err != nil {
		return err
	}
	defer done()
	return e.runGated(runCtx, "full", func() (int, error) {
		var processed int
		for _, entry := range e.registry.All() {
			n, err := e.fullSyncInstance(runCtx, entry.Instance.ID)
			processed += n
			if err != nil {
				return processed, err
			}
		}
		return processed, nil
	})
}

// IncrementalSync syncs one instance's changed entities.
func (e *Engine) IncrementalSync(ctx context.Context, instanceID string) error {
	runCtx, done, err := e.begin(ctx)
	if err != nil {
		return err
	}
	defer done()
	return e.runGated(runCtx, "incremental", func() (int, error) {
		return e.incrementalSyncInstance(runCtx, instanceID)
	})
}

// IncrementalSyncAll syncs every enabled instance incrementally.
func (e *Engine) IncrementalSyncAll(ctx context.Context) error {
	runCtx, done, err := e.begin(ctx)
	if err != nil {
		return err
	}
	defer done()
	return e.runGated(runCtx, "incremental", func() (int, error) {
		var processed int
		for _, entry := range e.registry.All() {
			n, err := e.incrementalSyncInstance(runCtx, entry.Instance.ID)
			processed += n
			if err != nil {
				return processed, err
			}
		}
		return processed, nil
	})
}

// SingleEntitySync fetches one entity (webhook path) and runs it through
// the standard batch processor. A missing upstream entity is a no-op.
func (e *Engine) SingleEntitySync(ctx context.Context, instanceID string, kind models.Kind, id string) error {
	if !models.ValidID(id) {
		return fmt.Errorf("invalid entity id %q", id)
	}

	runCtx, done, err := e.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	return e.runGated(runCtx, "single", func() (int, error) {
		entry, ok := e.registry.Get(instanceID)
		if !ok {
			return 0, fmt.Errorf("%w: %s", errUnknownInstance, instanceID)
		}
		ops, err := opsFor(entry.Client, instanceID, kind)
		if err != nil {
			return 0, err
		}

		batch, err := ops.fetchOne(runCtx, id)
		if err != nil {
			return 0, err
		}
		if batch == nil {
			logging.Debug().Str("kind", string(kind)).Str("id", id).Msg("Entity gone upstream, skipping single sync")
			return 0, nil
		}
		if err := batch.Process(runCtx, e.db, instanceID); err != nil {
			return 0, err
		}

		if kind == models.KindScene || kind == models.KindGallery || kind == models.KindImage {
			if err := e.runDerivations(runCtx); err != nil {
				return batch.Len(), err
			}
		}
		return batch.Len(), nil
	})
}

// runGated wraps one gated run with outcome classification, metrics, and
// events.
func (e *Engine) runGated(ctx context.Context, mode string, run func() (int, error)) error {
	start := time.Now()
	e.publish(Event{Type: "sync.started", Message: mode})
	logging.Info().Str("mode", mode).Msg("Sync started")

	processed, err := run()
	duration := time.Since(start)

	switch {
	case errors.Is(err, ErrSyncCancelled) || errors.Is(err, context.Canceled):
		metrics.RecordSyncRun(mode, "aborted", duration)
		e.publish(Event{Type: "sync.aborted", Count: processed})
		logging.Info().Str("mode", mode).Int("processed", processed).Dur("duration", duration).Msg("Sync aborted")
		return ErrSyncCancelled
	case err != nil:
		metrics.RecordSyncRun(mode, "failure", duration)
		e.publish(Event{Type: "sync.failed", Count: processed, Message: err.Error()})
		logging.Error().Err(err).Str("mode", mode).Int("processed", processed).Dur("duration", duration).Msg("Sync failed")
		return err
	default:
		metrics.RecordSyncRun(mode, "success", duration)
		e.publish(Event{Type: "sync.completed", Count: processed})
		logging.Info().Str("mode", mode).Int("processed", processed).Dur("duration", duration).Msg("Sync completed")
		return nil
	}
}

// fullSyncInstance refetches every kind of one instance in dependency
// order, reconciling deletes and saving state after each kind.
func (e *Engine) fullSyncInstance(ctx context.Context, instanceID string) (int, error) {
	entry, ok := e.registry.Get(instanceID)
	if !ok {
		return 0, fmt.Errorf("%w: %s", errUnknownInstance, instanceID)
	}

	var processed int
	for _, kind := range models.SyncOrder {
		if err := checkCancelled(ctx); err != nil {
			return processed, err
		}

		n, err := e.syncKind(ctx, entry, kind, true)
		processed += n
		if err != nil {
			return processed, err
		}
	}

	if err := e.runDerivations(ctx); err != nil {
		return processed, err
	}
	return processed, nil
}

// incrementalSyncInstance syncs changed entities of one instance. Kinds
// keep independent cursors, so a failure in one kind leaves already-fresh
// kinds committed.
func (e *Engine) incrementalSyncInstance(ctx context.Context, instanceID string) (int, error) {
	entry, ok := e.registry.Get(instanceID)
	if !ok {
		return 0, fmt.Errorf("%w: %s", errUnknownInstance, instanceID)
	}

	var processed, contentChanged int
	for _, kind := range models.SyncOrder {
		if err := checkCancelled(ctx); err != nil {
			return processed, err
		}

		n, err := e.syncKind(ctx, entry, kind, false)
		processed += n
		if kind == models.KindScene || kind == models.KindGallery || kind == models.KindImage {
			contentChanged += n
		}
		if err != nil {
			return processed, err
		}
	}

	if contentChanged > 0 {
		if err := e.runDerivations(ctx); err != nil {
			return processed, err
		}
	}
	return processed, nil
}

// syncKind runs one kind of one instance. full forces a complete refetch
// plus the deleted-reconciliation pass; otherwise the stored cursor drives
// an incremental fetch, with promotion to full when no cursor exists.
func (e *Engine) syncKind(ctx context.Context, entry *instances.Entry, kind models.Kind, full bool) (int, error) {
	instanceID := entry.Instance.ID
	ops, err := opsFor(entry.Client, instanceID, kind)
	if err != nil {
		return 0, err
	}

	state, err := e.db.GetSyncState(ctx, instanceID, kind)
	if err != nil {
		return 0, err
	}

	cursor := state.IncrementalCursor
	if cursor == "" {
		cursor = state.FullCursor
	}
	promoted := !full && cursor == ""
	if promoted {
		logging.Info().Str("instance", instanceID).Str("kind", string(kind)).Msg("No cursor recorded, promoting kind to full sync")
	}

	runFull := full || promoted
	start := time.Now()

	var processed int
	var maxRaw string
	var runErr error

	if runFull {
		processed, maxRaw, runErr = e.pageThrough(ctx, ops, instanceID, "")
		if runErr == nil {
			runErr = e.cleanupDeleted(ctx, entry, ops, kind)
		}
	} else {
		filter := NormalizeCursor(cursor)
		var changed int
		changed, runErr = ops.count(ctx, filter)
		if runErr == nil && changed > 0 {
			processed, maxRaw, runErr = e.pageThrough(ctx, ops, instanceID, filter)
		}
	}

	// Cancellation keeps the prior state untouched; everything else is
	// recorded, including the error, so status surfaces it.
	if errors.Is(runErr, ErrSyncCancelled) || errors.Is(runErr, context.Canceled) {
		return processed, ErrSyncCancelled
	}

	now := time.Now().UTC()
	state.LastRunAt = &now
	state.LastRunDuration = time.Since(start).Milliseconds()
	state.LastRunCount = processed
	state.LastError = nil
	if runErr != nil {
		msg := runErr.Error()
		state.LastError = &msg
	}
	// The cursor only advances when items were actually processed.
	if processed > 0 && maxRaw != "" {
		if runFull {
			state.FullCursor = maxCursor(state.FullCursor, maxRaw)
		}
		state.IncrementalCursor = maxCursor(state.IncrementalCursor, maxRaw)
	}

	if err := e.db.UpsertSyncState(ctx, state); err != nil {
		if runErr != nil {
			return processed, runErr
		}
		return processed, err
	}

	metrics.SyncEntitiesProcessed.WithLabelValues(instanceID, string(kind)).Add(float64(processed))
	e.publish(Event{Type: "sync.kind", Instance: instanceID, Kind: string(kind), Count: processed})
	return processed, runErr
}

// pageThrough fetches and processes pages until the upstream total is
// reached. Returns the processed count and the maximum raw updated_at.
func (e *Engine) pageThrough(ctx context.Context, ops *kindOps, instanceID, updatedAfter string) (int, string, error) {
	var processed int
	var maxRaw string

	for page := 1; ; page++ {
		if err := checkCancelled(ctx); err != nil {
			return processed, maxRaw, err
		}

		var batch entityBatch
		var total int
		err := e.retryWithBackoff(ctx, func() error {
			var ferr error
			batch, total, ferr = ops.fetchPage(ctx, updatedAfter, page, e.cfg.PageSize)
			return ferr
		})
		if err != nil {
			return processed, maxRaw, err
		}

		if batch.Len() > 0 {
			if err := batch.Process(ctx, e.db, instanceID); err != nil {
				return processed, maxRaw, err
			}
			processed += batch.Len()
			maxRaw = maxCursor(maxRaw, batch.MaxUpdatedAt())
		}

		if batch.Len() == 0 || page*e.cfg.PageSize >= total {
			return processed, maxRaw, nil
		}
	}
}

// runDerivations runs the post-sync derivation sequence, then the
// all-users exclusion recompute.
func (e *Engine) runDerivations(ctx context.Context) error {
	if err := checkCancelled(ctx); err != nil {
		return err
	}
	if e.deriver != nil {
		if err := e.deriver.RunAll(ctx); err != nil {
			return fmt.Errorf("derivation passes failed: %w", err)
		}
	}
	if err := checkCancelled(ctx); err != nil {
		return err
	}
	if e.exclusions != nil {
		if err := e.exclusions.RecomputeAllUsers(ctx); err != nil {
			return fmt.Errorf("exclusion recompute failed: %w", err)
		}
	}
	return nil
}

// retryWithBackoff executes fn with exponential backoff on failure. The
// context cancels backoff waits.
func (e *Engine) retryWithBackoff(ctx context.Context, fn func() error) error {
	var err error
	delay := e.cfg.RetryDelay

	for attempt := 0; attempt < e.cfg.RetryAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err = fn()
		if err == nil {
			return nil
		}

		if attempt < e.cfg.RetryAttempts-1 {
			logging.Warn().Err(err).Int("attempt", attempt+1).Int("max_attempts", e.cfg.RetryAttempts).Dur("delay", delay).Msg("Retrying upstream fetch")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}

	return fmt.Errorf("max retry attempts reached: %w", err)
}
