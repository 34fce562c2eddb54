// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/curator-app/curator/internal/models"
)

// GetSyncState loads the sync state for one (instance, kind); returns a
// zero-value state when none has been recorded yet.
func (db *DB) GetSyncState(ctx context.Context, instance string, kind models.Kind) (*models.SyncState, error) {
	state := &models.SyncState{Instance: instance, Kind: kind}
	var full, incr sql.NullString
	err := db.conn.QueryRowContext(ctx, `
		SELECT full_cursor, incremental_cursor, last_run_at, last_run_duration_ms, last_run_count, last_error
		FROM sync_state WHERE instance = ? AND entity_type = ?`,
		instance, kind).Scan(&full, &incr, &state.LastRunAt, &state.LastRunDuration, &state.LastRunCount, &state.LastError)
	if err == sql.ErrNoRows {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sync state: %w", err)
	}
	state.FullCursor = full.String
	state.IncrementalCursor = incr.String
	return state, nil
}

// UpsertSyncState persists the state for one (instance, kind). Called after
// each kind completes so a crash mid-run loses at most one kind's progress.
func (db *DB) UpsertSyncState(ctx context.Context, state *models.SyncState) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sync_state (instance, entity_type, full_cursor, incremental_cursor, last_run_at, last_run_duration_ms, last_run_count, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (instance, entity_type) DO UPDATE SET
			full_cursor = excluded.full_cursor,
			incremental_cursor = excluded.incremental_cursor,
			last_run_at = excluded.last_run_at,
			last_run_duration_ms = excluded.last_run_duration_ms,
			last_run_count = excluded.last_run_count,
			last_error = excluded.last_error`,
		state.Instance, state.Kind, nullIfEmpty(state.FullCursor), nullIfEmpty(state.IncrementalCursor),
		state.LastRunAt, state.LastRunDuration, state.LastRunCount, state.LastError)
	if err != nil {
		return fmt.Errorf("failed to upsert sync state: %w", err)
	}
	return nil
}

// ListSyncStates returns all recorded sync states, ordered for the status
// endpoint.
func (db *DB) ListSyncStates(ctx context.Context) ([]models.SyncState, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT instance, entity_type, full_cursor, incremental_cursor, last_run_at, last_run_duration_ms, last_run_count, last_error
		FROM sync_state ORDER BY instance, entity_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync states: %w", err)
	}
	defer closeRows(rows)

	var states []models.SyncState
	for rows.Next() {
		var s models.SyncState
		var full, incr sql.NullString
		if err := rows.Scan(&s.Instance, &s.Kind, &full, &incr, &s.LastRunAt, &s.LastRunDuration, &s.LastRunCount, &s.LastError); err != nil {
			return nil, fmt.Errorf("failed to scan sync state: %w", err)
		}
		s.FullCursor = full.String
		s.IncrementalCursor = incr.String
		states = append(states, s)
	}
	return states, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
