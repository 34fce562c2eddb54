// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package models

import "time"

// RestrictionMode controls how a content restriction's ID list is applied.
type RestrictionMode string

const (
	// RestrictionInclude hides everything of the kind except the listed IDs.
	RestrictionInclude RestrictionMode = "INCLUDE"
	// RestrictionExclude hides exactly the listed IDs.
	RestrictionExclude RestrictionMode = "EXCLUDE"
)

// ExclusionReason records why an entity is excluded for a user. When several
// reasons apply, the first in this order wins: restricted, hidden, cascade,
// empty.
type ExclusionReason string

const (
	ReasonRestricted ExclusionReason = "restricted"
	ReasonHidden     ExclusionReason = "hidden"
	ReasonCascade    ExclusionReason = "cascade"
	ReasonEmpty      ExclusionReason = "empty"
)

// HiddenEntity is a user's explicit hide. An empty Instance applies to all
// instances.
type HiddenEntity struct {
	UserID    string    `json:"userId"`
	Kind      Kind      `json:"entityType"`
	EntityID  string    `json:"entityId"`
	Instance  string    `json:"instance"`
	CreatedAt time.Time `json:"createdAt"`
}

// ContentRestriction is an administrator rule. Kind is stored in plural form
// to match the administration surface.
type ContentRestriction struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	KindPlural    string          `json:"entityType"`
	Mode          RestrictionMode `json:"mode"`
	EntityIDs     []string        `json:"entityIds"`
	RestrictEmpty bool            `json:"restrictEmpty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ExcludedEntity is one row of the materialized exclusion index. Unique on
// (UserID, Kind, EntityID, Instance); produced only by the exclusion engine.
type ExcludedEntity struct {
	UserID   string          `json:"userId"`
	Kind     Kind            `json:"entityType"`
	EntityID string          `json:"entityId"`
	Instance string          `json:"instance"`
	Reason   ExclusionReason `json:"reason"`
}

// EntityStats is the per-user visible-entity count snapshot, refreshed inside
// the exclusion swap transaction.
type EntityStats struct {
	UserID       string `json:"userId"`
	Kind         Kind   `json:"entityType"`
	Instance     string `json:"instance"`
	VisibleCount int    `json:"visibleCount"`
}

// UserOverlay is the per-user rating/favorite overlay on a mirrored entity.
// These rows are reassigned when merge detection retires a scene ID.
type UserOverlay struct {
	UserID   string `json:"userId"`
	Kind     Kind   `json:"entityType"`
	EntityID string `json:"entityId"`
	Instance string `json:"instance"`
	Rating   *int   `json:"rating,omitempty"`
	Favorite bool   `json:"favorite"`
}
