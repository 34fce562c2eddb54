// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

/*
cleanup.go - Soft-Delete Reconciliation Support

The deleted-reconciliation pass streams every upstream ID for one kind into
a session-scoped temp table, then soft-deletes local live rows absent from
it. Temp tables are connection-scoped in DuckDB, so the whole pass runs on a
single acquired *sql.Conn.
*/
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/curator-app/curator/internal/models"
)

// IDScanSession holds one pooled connection for a temp-table id scan.
type IDScanSession struct {
	conn  *sql.Conn
	table string
}

// BeginIDScan acquires a connection and creates the temp id table on it.
func (db *DB) BeginIDScan(ctx context.Context, kind models.Kind) (*IDScanSession, error) {
	conn, err := db.conn.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection for id scan: %w", err)
	}

	table := fmt.Sprintf("temp_upstream_%s_ids", kind)
	if _, err := conn.ExecContext(ctx, fmt.Sprintf(
		"CREATE OR REPLACE TEMP TABLE %s (id TEXT PRIMARY KEY)", table)); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to create temp id table: %w", err)
	}
	return &IDScanSession{conn: conn, table: table}, nil
}

// AddIDs appends one upstream page of IDs to the temp table.
func (s *IDScanSession) AddIDs(ctx context.Context, ids []string) error {
	for _, chunk := range chunkStrings(ids, upsertChunkSize) {
		query := fmt.Sprintf("INSERT INTO %s (id) VALUES %s ON CONFLICT DO NOTHING",
			s.table, multiRowValues(len(chunk), 1))
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		if _, err := s.conn.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to stage upstream ids: %w", err)
		}
	}
	return nil
}

// MissingLocalIDs returns live local IDs for the instance that are absent
// from the staged upstream set. These are the soft-delete candidates.
func (s *IDScanSession) MissingLocalIDs(ctx context.Context, kind models.Kind, instance string) ([]string, error) {
	table, err := TableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT e.id FROM %s e
		WHERE e.instance = ? AND e.deleted_at IS NULL
		  AND NOT EXISTS (SELECT 1 FROM %s t WHERE t.id = e.id)
		ORDER BY e.id`, table, s.table)

	rows, err := s.conn.QueryContext(ctx, query, instance)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for missing ids: %w", err)
	}
	defer closeRows(rows)

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close drops the temp table and releases the connection.
func (s *IDScanSession) Close() {
	if s.conn == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_, _ = s.conn.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", s.table))
	cancel()
	closeQuietly(s.conn)
	s.conn = nil
}

// SoftDeleteBatch marks up to one batch of rows deleted.
func (db *DB) SoftDeleteBatch(ctx context.Context, kind models.Kind, instance string, ids []string) error {
	table, err := TableFor(kind)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, chunk := range chunkStrings(ids, upsertChunkSize) {
		in, args := inPlaceholders(chunk)
		args = append([]any{now}, args...)
		args = append(args, instance)
		query := fmt.Sprintf("UPDATE %s SET deleted_at = ? WHERE id IN %s AND instance = ?", table, in)
		if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to soft-delete from %s: %w", table, err)
		}
	}
	return nil
}

// ScenePhash returns the perceptual hash of a live scene, or nil.
func (db *DB) ScenePhash(ctx context.Context, id, instance string) (*string, error) {
	var phash *string
	err := db.conn.QueryRowContext(ctx,
		"SELECT phash FROM scenes WHERE id = ? AND instance = ?", id, instance).Scan(&phash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read scene phash: %w", err)
	}
	return phash, nil
}

// SceneIDsByPhash returns live scene IDs for the instance sharing a phash,
// excluding one ID. Used by merge detection: the disappearing scene's
// overlays move to the first survivor.
func (db *DB) SceneIDsByPhash(ctx context.Context, phash, instance, excludeID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id FROM scenes
		WHERE phash = ? AND instance = ? AND id <> ? AND deleted_at IS NULL
		ORDER BY id`, phash, instance, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenes by phash: %w", err)
	}
	defer closeRows(rows)

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan scene id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ReassignUserRows moves user overlay and hidden rows keyed on a retired
// entity ID to its merge survivor. Rows already present under the new key
// stay; the stale rows are removed.
func (db *DB) ReassignUserRows(ctx context.Context, kind models.Kind, oldID, newID, instance string) error {
	tx, txCtx, cancel, err := db.BeginTx(ctx, SwapTxTimeout)
	if err != nil {
		return err
	}
	defer cancel()
	defer rollbackQuietly(tx)

	for _, table := range []string{"user_overlays", "user_hidden_entities"} {
		insert := fmt.Sprintf(`
			INSERT INTO %s SELECT * REPLACE (? AS entity_id) FROM %s
			WHERE entity_type = ? AND entity_id = ? AND instance = ?
			ON CONFLICT DO NOTHING`, table, table)
		if _, err := tx.ExecContext(txCtx, insert, newID, kind, oldID, instance); err != nil {
			return fmt.Errorf("failed to reassign %s rows: %w", table, err)
		}
		del := fmt.Sprintf(
			"DELETE FROM %s WHERE entity_type = ? AND entity_id = ? AND instance = ?", table)
		if _, err := tx.ExecContext(txCtx, del, kind, oldID, instance); err != nil {
			return fmt.Errorf("failed to remove stale %s rows: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit overlay reassignment: %w", err)
	}
	return nil
}

// ClearInstanceData hard-deletes every mirror row belonging to one upstream
// instance. The only hard-delete path in the system.
func (db *DB) ClearInstanceData(ctx context.Context, instance string) error {
	tx, txCtx, cancel, err := db.BeginTx(ctx, ClearDataTimeout)
	if err != nil {
		return err
	}
	defer cancel()
	defer rollbackQuietly(tx)

	junctionTables := []string{
		"scene_performers", "scene_tags", "scene_groups", "scene_galleries", "scene_inherited_tags",
		"image_performers", "image_tags", "image_galleries",
		"gallery_performers", "gallery_tags",
		"performer_tags", "studio_tags", "group_tags", "clip_tags",
		"tag_parents", "group_parents",
	}
	for _, table := range junctionTables {
		if _, err := tx.ExecContext(txCtx,
			fmt.Sprintf("DELETE FROM %s WHERE parent_instance = ?", table), instance); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, table := range kindTables {
		if _, err := tx.ExecContext(txCtx,
			fmt.Sprintf("DELETE FROM %s WHERE instance = ?", table), instance); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(txCtx, "DELETE FROM sync_state WHERE instance = ?", instance); err != nil {
		return fmt.Errorf("failed to clear sync state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit instance clear: %w", err)
	}
	return nil
}
