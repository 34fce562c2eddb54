// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package database

import (
	"context"
	"fmt"

	"github.com/curator-app/curator/internal/models"
)

// UpsertInstance stores an upstream server config row. Called at startup to
// reconcile configured instances into the store.
func (db *DB) UpsertInstance(ctx context.Context, inst *models.Instance) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO instances (id, name, base_url, api_key, enabled, priority)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			base_url = excluded.base_url,
			api_key = excluded.api_key,
			enabled = excluded.enabled,
			priority = excluded.priority`,
		inst.ID, inst.Name, inst.BaseURL, inst.APIKey, inst.Enabled, inst.Priority)
	if err != nil {
		return fmt.Errorf("failed to upsert instance %s: %w", inst.ID, err)
	}
	return nil
}

// ListInstances returns every configured instance, highest priority first.
func (db *DB) ListInstances(ctx context.Context) ([]models.Instance, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, name, base_url, api_key, enabled, priority
		FROM instances ORDER BY priority DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	defer closeRows(rows)

	var instances []models.Instance
	for rows.Next() {
		var inst models.Instance
		var apiKey *string
		if err := rows.Scan(&inst.ID, &inst.Name, &inst.BaseURL, &apiKey, &inst.Enabled, &inst.Priority); err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		if apiKey != nil {
			inst.APIKey = *apiKey
		}
		instances = append(instances, inst)
	}
	return instances, rows.Err()
}

// DeleteInstance removes an instance config row. Mirror data for the
// instance is cleared separately via ClearInstanceData.
func (db *DB) DeleteInstance(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM instances WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete instance %s: %w", id, err)
	}
	return nil
}
