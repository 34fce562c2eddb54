// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

/*
users.go - User Overlay, Hides, Restrictions, Exclusion Index

The exclusion index is only written here, and only through the atomic swap:
delete all rows for the user, insert the recomputed set, refresh the stats
snapshot, in one short transaction. Readers joining the index either see the
old full snapshot or the new one.
*/
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/curator-app/curator/internal/models"
)

// UpsertHiddenEntity records an explicit hide. Idempotent: hiding an entity
// twice (or one that no longer exists upstream) is not an error.
func (db *DB) UpsertHiddenEntity(ctx context.Context, h *models.HiddenEntity) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO user_hidden_entities (user_id, entity_type, entity_id, instance, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		h.UserID, h.Kind, h.EntityID, h.Instance, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert hidden entity: %w", err)
	}
	return nil
}

// DeleteHiddenEntity removes an explicit hide.
func (db *DB) DeleteHiddenEntity(ctx context.Context, userID string, kind models.Kind, entityID, instance string) error {
	_, err := db.conn.ExecContext(ctx, `
		DELETE FROM user_hidden_entities
		WHERE user_id = ? AND entity_type = ? AND entity_id = ? AND instance = ?`,
		userID, kind, entityID, instance)
	if err != nil {
		return fmt.Errorf("failed to delete hidden entity: %w", err)
	}
	return nil
}

// ListHiddenEntities returns a user's explicit hides.
func (db *DB) ListHiddenEntities(ctx context.Context, userID string) ([]models.HiddenEntity, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, entity_type, entity_id, instance, created_at
		FROM user_hidden_entities WHERE user_id = ?
		ORDER BY entity_type, entity_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list hidden entities: %w", err)
	}
	defer closeRows(rows)

	var hides []models.HiddenEntity
	for rows.Next() {
		var h models.HiddenEntity
		if err := rows.Scan(&h.UserID, &h.Kind, &h.EntityID, &h.Instance, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan hidden entity: %w", err)
		}
		hides = append(hides, h)
	}
	return hides, rows.Err()
}

// UpsertContentRestriction stores an administrator restriction rule.
func (db *DB) UpsertContentRestriction(ctx context.Context, r *models.ContentRestriction) error {
	ids, err := json.Marshal(r.EntityIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal restriction ids: %w", err)
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO user_content_restrictions (id, user_id, entity_type, mode, entity_ids, restrict_empty, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			user_id = excluded.user_id,
			entity_type = excluded.entity_type,
			mode = excluded.mode,
			entity_ids = excluded.entity_ids,
			restrict_empty = excluded.restrict_empty`,
		r.ID, r.UserID, r.KindPlural, r.Mode, string(ids), r.RestrictEmpty, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert content restriction: %w", err)
	}
	return nil
}

// ListContentRestrictions returns all restriction rules for a user.
func (db *DB) ListContentRestrictions(ctx context.Context, userID string) ([]models.ContentRestriction, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, entity_type, mode, entity_ids, restrict_empty, created_at
		FROM user_content_restrictions WHERE user_id = ?
		ORDER BY entity_type, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list content restrictions: %w", err)
	}
	defer closeRows(rows)

	var restrictions []models.ContentRestriction
	for rows.Next() {
		var r models.ContentRestriction
		var rawIDs string
		if err := rows.Scan(&r.ID, &r.UserID, &r.KindPlural, &r.Mode, &rawIDs, &r.RestrictEmpty, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan content restriction: %w", err)
		}
		if err := json.Unmarshal([]byte(rawIDs), &r.EntityIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal restriction ids: %w", err)
		}
		restrictions = append(restrictions, r)
	}
	return restrictions, rows.Err()
}

// DeleteContentRestriction removes a restriction rule.
func (db *DB) DeleteContentRestriction(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM user_content_restrictions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete content restriction: %w", err)
	}
	return nil
}

// SwapExcludedEntities atomically replaces the exclusion index for one user
// and refreshes the per-kind visible-count snapshot. The computation that
// produced rows ran outside this transaction.
func (db *DB) SwapExcludedEntities(ctx context.Context, userID string, rows []models.ExcludedEntity) error {
	tx, txCtx, cancel, err := db.BeginTx(ctx, SwapTxTimeout)
	if err != nil {
		return err
	}
	defer cancel()
	defer rollbackQuietly(tx)

	if _, err := tx.ExecContext(txCtx,
		"DELETE FROM user_excluded_entities WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to clear prior exclusions: %w", err)
	}

	if err := insertExcludedRows(txCtx, tx, rows); err != nil {
		return err
	}

	if err := refreshEntityStats(txCtx, tx, userID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit exclusion swap: %w", err)
	}
	return nil
}

// InsertExcludedEntities adds rows to the index without clearing it. Used by
// the incremental hide path, inside its own transaction.
func insertExcludedRows(ctx context.Context, ex execer, rows []models.ExcludedEntity) error {
	if len(rows) == 0 {
		return nil
	}
	for start := 0; start < len(rows); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		query := fmt.Sprintf(`
			INSERT INTO user_excluded_entities (user_id, entity_type, entity_id, instance, reason)
			VALUES %s ON CONFLICT DO NOTHING`, multiRowValues(len(chunk), 5))
		args := make([]any, 0, len(chunk)*5)
		for _, r := range chunk {
			args = append(args, r.UserID, r.Kind, r.EntityID, r.Instance, r.Reason)
		}
		if _, err := ex.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert excluded entities: %w", err)
		}
	}
	return nil
}

// AddExcludedEntities upserts exclusion rows and refreshes stats in one
// short transaction. The incremental path for a single hide.
func (db *DB) AddExcludedEntities(ctx context.Context, userID string, rows []models.ExcludedEntity) error {
	tx, txCtx, cancel, err := db.BeginTx(ctx, SwapTxTimeout)
	if err != nil {
		return err
	}
	defer cancel()
	defer rollbackQuietly(tx)

	if err := insertExcludedRows(txCtx, tx, rows); err != nil {
		return err
	}
	if err := refreshEntityStats(txCtx, tx, userID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit incremental exclusions: %w", err)
	}
	return nil
}

// refreshEntityStats rebuilds user_entity_stats for one user from the live
// mirror minus the (possibly just-rewritten) exclusion index.
func refreshEntityStats(ctx context.Context, ex execer, userID string) error {
	if _, err := ex.ExecContext(ctx,
		"DELETE FROM user_entity_stats WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to clear entity stats: %w", err)
	}

	for kind, table := range kindTables {
		query := fmt.Sprintf(`
			INSERT INTO user_entity_stats (user_id, entity_type, instance, visible_count)
			SELECT ?, ?, e.instance, COUNT(*)
			FROM %s e
			WHERE e.deleted_at IS NULL
			  AND NOT EXISTS (
				SELECT 1 FROM user_excluded_entities x
				WHERE x.user_id = ? AND x.entity_type = ?
				  AND x.entity_id = e.id
				  AND (x.instance = e.instance OR x.instance = '' OR e.instance = '')
			  )
			GROUP BY e.instance`, table)
		if _, err := ex.ExecContext(ctx, query, userID, kind, userID, kind); err != nil {
			return fmt.Errorf("failed to refresh stats for %s: %w", kind, err)
		}
	}
	return nil
}

// ListEntityStats returns the visible-count snapshot for a user.
func (db *DB) ListEntityStats(ctx context.Context, userID string) ([]models.EntityStats, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, entity_type, instance, visible_count
		FROM user_entity_stats WHERE user_id = ?
		ORDER BY entity_type, instance`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entity stats: %w", err)
	}
	defer closeRows(rows)

	var stats []models.EntityStats
	for rows.Next() {
		var s models.EntityStats
		if err := rows.Scan(&s.UserID, &s.Kind, &s.Instance, &s.VisibleCount); err != nil {
			return nil, fmt.Errorf("failed to scan entity stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// ListExcludedEntities returns the materialized exclusion rows for a user.
func (db *DB) ListExcludedEntities(ctx context.Context, userID string) ([]models.ExcludedEntity, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, entity_type, entity_id, instance, reason
		FROM user_excluded_entities WHERE user_id = ?
		ORDER BY entity_type, entity_id, instance`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list excluded entities: %w", err)
	}
	defer closeRows(rows)

	var excluded []models.ExcludedEntity
	for rows.Next() {
		var e models.ExcludedEntity
		if err := rows.Scan(&e.UserID, &e.Kind, &e.EntityID, &e.Instance, &e.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan excluded entity: %w", err)
		}
		excluded = append(excluded, e)
	}
	return excluded, rows.Err()
}

// ListUserIDs returns every user that has overlay, hide, or restriction
// rows; the population for all-users exclusion recomputes.
func (db *DB) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT user_id FROM (
			SELECT user_id FROM user_hidden_entities
			UNION SELECT user_id FROM user_content_restrictions
			UNION SELECT user_id FROM user_overlays
			UNION SELECT user_id FROM user_excluded_entities
		) ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	defer closeRows(rows)

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpsertOverlay stores a user's rating/favorite for an entity.
func (db *DB) UpsertOverlay(ctx context.Context, o *models.UserOverlay) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO user_overlays (user_id, entity_type, entity_id, instance, rating, favorite)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, entity_type, entity_id, instance) DO UPDATE SET
			rating = excluded.rating,
			favorite = excluded.favorite`,
		o.UserID, o.Kind, o.EntityID, o.Instance, o.Rating, o.Favorite)
	if err != nil {
		return fmt.Errorf("failed to upsert user overlay: %w", err)
	}
	return nil
}
