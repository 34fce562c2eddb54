// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package sync

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/curator-app/curator/internal/config"
)

func testSyncConfig() *config.SyncConfig {
	return &config.SyncConfig{
		Interval:        time.Hour,
		PageSize:        500,
		CleanupPageSize: 5000,
		RetryAttempts:   3,
		RetryDelay:      time.Millisecond,
	}
}

func TestBeginGate(t *testing.T) {
	e := NewEngine(nil, nil, testSyncConfig(), nil, nil, nil)

	_, done, err := e.begin(context.Background())
	if err != nil {
		t.Fatalf("first begin: %v", err)
	}
	if !e.IsSyncing() {
		t.Error("IsSyncing() = false during run")
	}

	if _, _, err := e.begin(context.Background()); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("second begin error = %v, want ErrSyncInProgress", err)
	}

	done()
	if e.IsSyncing() {
		t.Error("IsSyncing() = true after done")
	}

	if _, done2, err := e.begin(context.Background()); err != nil {
		t.Errorf("begin after done: %v", err)
	} else {
		done2()
	}
}

func TestAbortIdle(t *testing.T) {
	e := NewEngine(nil, nil, testSyncConfig(), nil, nil, nil)
	if e.Abort() {
		t.Error("Abort() on idle engine = true, want false")
	}
}

func TestAbortCancelsRunContext(t *testing.T) {
	e := NewEngine(nil, nil, testSyncConfig(), nil, nil, nil)

	runCtx, done, err := e.begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer done()

	if !e.Abort() {
		t.Fatal("Abort() during run = false, want true")
	}
	select {
	case <-runCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("run context not cancelled after Abort")
	}
	if err := checkCancelled(runCtx); !errors.Is(err, ErrSyncCancelled) {
		t.Errorf("checkCancelled = %v, want ErrSyncCancelled", err)
	}
}

func TestRetryWithBackoffSucceedsAfterFailures(t *testing.T) {
	e := NewEngine(nil, nil, testSyncConfig(), nil, nil, nil)

	calls := 0
	err := e.retryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retryWithBackoff: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryWithBackoffExhausted(t *testing.T) {
	e := NewEngine(nil, nil, testSyncConfig(), nil, nil, nil)

	base := errors.New("upstream down")
	calls := 0
	err := e.retryWithBackoff(context.Background(), func() error {
		calls++
		return base
	})
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if !errors.Is(err, base) {
		t.Errorf("error does not wrap the last failure: %v", err)
	}
	if !strings.Contains(err.Error(), "max retry attempts reached") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestRetryWithBackoffCancelled(t *testing.T) {
	e := NewEngine(nil, nil, testSyncConfig(), nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.retryWithBackoff(ctx, func() error { return errors.New("never retried") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
