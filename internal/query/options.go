// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

// Package query synthesizes the per-kind list SQL behind every browse
// endpoint: typed filters, exclusion joins, deterministic random ordering,
// pagination, and the relation hydration that fills list responses.
package query

import (
	"errors"
	"fmt"
)

// Modifier selects how a filter value is applied.
type Modifier string

const (
	ModIncludes    Modifier = "INCLUDES"
	ModIncludesAll Modifier = "INCLUDES_ALL"
	ModExcludes    Modifier = "EXCLUDES"
	ModEquals      Modifier = "EQUALS"
	ModNotEquals   Modifier = "NOT_EQUALS"
	ModGreaterThan Modifier = "GREATER_THAN"
	ModLessThan    Modifier = "LESS_THAN"
	ModBetween     Modifier = "BETWEEN"
	ModNotBetween  Modifier = "NOT_BETWEEN"
	ModIsNull      Modifier = "IS_NULL"
	ModNotNull     Modifier = "NOT_NULL"
)

// SortDirection is ASC or DESC; anything else falls back to ASC.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// IDFilter matches the entity's own ID against a set.
type IDFilter struct {
	Modifier Modifier // INCLUDES | EXCLUDES
	Values   []string
}

// TextFilter matches one text column, case-insensitively.
type TextFilter struct {
	Modifier Modifier // INCLUDES | EXCLUDES | EQUALS | NOT_EQUALS | IS_NULL | NOT_NULL
	Value    string
}

// NumericFilter matches one numeric column or the overlay rating.
type NumericFilter struct {
	Modifier Modifier // EQUALS | NOT_EQUALS | GREATER_THAN | LESS_THAN | BETWEEN | NOT_BETWEEN
	Value    float64
	Value2   float64 // upper bound for BETWEEN variants
}

// DateFilter matches one date column; values are ISO date strings.
type DateFilter struct {
	Modifier Modifier // numeric modifiers plus IS_NULL | NOT_NULL
	Value    string
	Value2   string
}

// RelationFilter matches through a junction table or hierarchy column.
// Depth applies to hierarchical relations only (tags, studios, groups):
// 0 keeps the listed IDs, n>0 expands to descendants n levels deep,
// negative expands fully.
type RelationFilter struct {
	Modifier Modifier // INCLUDES | INCLUDES_ALL | EXCLUDES
	IDs      []string
	Depth    int
}

// Filters is the typed filter bag. Map keys name columns or relations and
// are validated against the kind's closed set; an unknown key is a
// parameterization error.
type Filters struct {
	IDs      *IDFilter
	Text     map[string]*TextFilter
	Numeric  map[string]*NumericFilter
	Date     map[string]*DateFilter
	Rating   *NumericFilter
	Favorite *bool
	Relation map[string]*RelationFilter
}

// Options is the option bag one list request carries.
type Options struct {
	// UserID scopes the overlay join and the exclusion filter; empty means
	// anonymous (no overlay, no exclusions).
	UserID string

	// ApplyExclusions joins the user's materialized exclusion index. On by
	// default for user-facing lists.
	ApplyExclusions bool

	Filters Filters

	// Search is a free-text substring ORed across the kind's search
	// columns.
	Search string

	SortBy  string
	SortDir SortDirection
	// RandomSeed drives the deterministic random sort; the same seed
	// yields a stable ordering across pages.
	RandomSeed int64

	Page    int
	PerPage int

	// AllowedInstanceIDs restricts results to these upstreams; empty means
	// all. SpecificInstanceID pins to exactly one.
	AllowedInstanceIDs []string
	SpecificInstanceID string
}

// normalize applies pagination defaults in place.
func (o *Options) normalize() {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.PerPage < 1 {
		o.PerPage = defaultPerPage
	}
	if o.PerPage > maxPerPage {
		o.PerPage = maxPerPage
	}
	if o.SortDir != SortDesc {
		o.SortDir = SortAsc
	}
}

const (
	defaultPerPage = 40
	maxPerPage     = 500
)

// ErrInvalidOptions marks parameterization errors, as opposed to execution
// failures; callers translate it to a client error.
var ErrInvalidOptions = errors.New("invalid query options")

// errUnknownFilter reports a filter key outside the kind's closed set.
func errUnknownFilter(kind, key string) error {
	return fmt.Errorf("%w: unknown %s filter %q", ErrInvalidOptions, kind, key)
}
