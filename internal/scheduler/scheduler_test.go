// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/curator-app/curator/internal/config"
	syncpkg "github.com/curator-app/curator/internal/sync"
)

type stubRunner struct {
	runs atomic.Int64
	err  error
}

func (r *stubRunner) IncrementalSyncAll(ctx context.Context) error {
	r.runs.Add(1)
	return r.err
}

func TestServeRunsAfterStartupDelay(t *testing.T) {
	runner := &stubRunner{}
	s := New(runner, &config.SyncConfig{Interval: 10 * time.Millisecond, StartupDelay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	deadline := time.After(2 * time.Second)
	for runner.runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("runs = %d, want at least 2", runner.runs.Load())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v", err)
	}
}

func TestServeToleratesBusyEngine(t *testing.T) {
	runner := &stubRunner{err: syncpkg.ErrSyncInProgress}
	s := New(runner, &config.SyncConfig{Interval: 5 * time.Millisecond, StartupDelay: 0})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := s.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve returned %v", err)
	}
	if runner.runs.Load() < 2 {
		t.Errorf("runs = %d, busy engine must not stop the schedule", runner.runs.Load())
	}
}

func TestServeCancelDuringStartupDelay(t *testing.T) {
	runner := &stubRunner{}
	s := New(runner, &config.SyncConfig{Interval: time.Hour, StartupDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v", err)
	}
	if runner.runs.Load() != 0 {
		t.Errorf("runs = %d, want 0", runner.runs.Load())
	}
}
