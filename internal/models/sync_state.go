// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package models

import "time"

// SyncState tracks sync progress per (instance, kind). Cursors are opaque
// upstream timestamp strings, normalized before use as a filter (timezone
// stripped, .999 subsecond padding); they are only advanced when a run
// processed at least one item.
type SyncState struct {
	Instance string `json:"instance"`
	Kind     Kind   `json:"entityType"`

	FullCursor        string `json:"fullCursor,omitempty"`
	IncrementalCursor string `json:"incrementalCursor,omitempty"`

	LastRunAt       *time.Time `json:"lastRunAt,omitempty"`
	LastRunDuration int64      `json:"lastRunDurationMs"`
	LastRunCount    int        `json:"lastRunCount"`
	LastError       *string    `json:"lastError,omitempty"`
}

// Instance is one configured upstream server. Rows live in the store and are
// loaded once at startup into the process registry.
type Instance struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	BaseURL  string `json:"baseUrl"`
	APIKey   string `json:"-"`
	Enabled  bool   `json:"enabled"`
	Priority int    `json:"priority"`
}
