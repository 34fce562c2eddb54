// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

// Package scheduler drives the periodic incremental sync. It is a suture
// service: the supervisor restarts it if a run panics, and a run already in
// flight (for example an operator-triggered full sync) is skipped rather
// than queued.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/curator-app/curator/internal/config"
	"github.com/curator-app/curator/internal/logging"
	syncpkg "github.com/curator-app/curator/internal/sync"
)

// SyncRunner is the slice of the sync engine the scheduler drives.
type SyncRunner interface {
	IncrementalSyncAll(ctx context.Context) error
}

// Scheduler ticks the incremental sync on a fixed interval after an initial
// startup delay.
type Scheduler struct {
	runner SyncRunner
	cfg    *config.SyncConfig
}

// New builds a sync scheduler.
func New(runner SyncRunner, cfg *config.SyncConfig) *Scheduler {
	return &Scheduler{runner: runner, cfg: cfg}
}

// Serve implements suture.Service. It blocks until the context is
// cancelled; per-run errors are logged, never fatal.
func (s *Scheduler) Serve(ctx context.Context) error {
	logging.Info().
		Dur("interval", s.cfg.Interval).
		Dur("startup_delay", s.cfg.StartupDelay).
		Msg("sync scheduler starting")

	select {
	case <-time.After(s.cfg.StartupDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	s.run(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.run(ctx)
		case <-ctx.Done():
			logging.Info().Msg("sync scheduler stopping")
			return ctx.Err()
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	err := s.runner.IncrementalSyncAll(ctx)
	switch {
	case err == nil:
	case errors.Is(err, syncpkg.ErrSyncInProgress):
		logging.Debug().Msg("scheduled sync skipped, another sync is running")
	case errors.Is(err, syncpkg.ErrSyncCancelled), errors.Is(err, context.Canceled):
		logging.Info().Msg("scheduled sync aborted")
	default:
		logging.Err(err).Msg("scheduled sync failed")
	}
}
