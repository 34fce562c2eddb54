// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

// Package query provides SQL query building utilities for the database and
// listing layers. It reduces code duplication and provides type-safe query
// construction.
package query

import (
	"fmt"
	"strings"
)

// WhereBuilder constructs SQL WHERE clauses with parameterized arguments.
// It ensures consistent parameter handling and reduces SQL injection risks.
//
// Example usage:
//
//	wb := query.NewWhereBuilder()
//	wb.AddNotDeleted("s")
//	wb.AddInstances("s", []string{"main"})
//	whereClause, args := wb.Build()
//	// s.deleted_at IS NULL AND (s.instance IN (?) OR s.instance = '')
type WhereBuilder struct {
	clauses []string
	args    []interface{}
}

// NewWhereBuilder creates a new WhereBuilder instance.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{
		clauses: []string{},
		args:    []interface{}{},
	}
}

// AddClause adds a raw WHERE clause with its arguments.
// This is useful for custom conditions not covered by helper methods.
func (wb *WhereBuilder) AddClause(clause string, args ...interface{}) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddNotDeleted restricts results to live rows of the aliased entity table.
// Every listing query carries this clause.
func (wb *WhereBuilder) AddNotDeleted(alias string) *WhereBuilder {
	wb.clauses = append(wb.clauses, fmt.Sprintf("%s.deleted_at IS NULL", alias))
	return wb
}

// AddInstances restricts results to the given upstream instances. Rows with
// an empty instance predate multi-instance support and always match.
func (wb *WhereBuilder) AddInstances(alias string, instances []string) *WhereBuilder {
	if len(instances) == 0 {
		return wb
	}
	placeholders := make([]string, len(instances))
	for i, inst := range instances {
		placeholders[i] = "?"
		wb.args = append(wb.args, inst)
	}
	wb.clauses = append(wb.clauses, fmt.Sprintf("(%s.instance IN (%s) OR %s.instance = '')",
		alias, strings.Join(placeholders, ", "), alias))
	return wb
}

// AddIn adds an IN filter on one column.
func (wb *WhereBuilder) AddIn(column string, values []string) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		wb.args = append(wb.args, v)
	}
	wb.clauses = append(wb.clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
	return wb
}

// AddNotIn adds a NOT IN filter on one column. NULL column values pass, so
// the clause is wrapped with an IS NULL alternative.
func (wb *WhereBuilder) AddNotIn(column string, values []string) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		wb.args = append(wb.args, v)
	}
	wb.clauses = append(wb.clauses, fmt.Sprintf("(%s IS NULL OR %s NOT IN (%s))",
		column, column, strings.Join(placeholders, ", ")))
	return wb
}

// AddSearch adds a case-insensitive substring match ORed across the given
// columns. An empty term is skipped.
func (wb *WhereBuilder) AddSearch(term string, columns ...string) *WhereBuilder {
	if term == "" || len(columns) == 0 {
		return wb
	}
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("%s ILIKE ?", col)
		wb.args = append(wb.args, "%"+term+"%")
	}
	wb.clauses = append(wb.clauses, "("+strings.Join(parts, " OR ")+")")
	return wb
}

// AddExcludedFilter removes rows present in a user's materialized exclusion
// index. The entity alias must expose id and instance columns.
func (wb *WhereBuilder) AddExcludedFilter(alias, userID, entityType string) *WhereBuilder {
	if userID == "" {
		return wb
	}
	wb.clauses = append(wb.clauses, fmt.Sprintf(`NOT EXISTS (
		SELECT 1 FROM user_excluded_entities x
		WHERE x.user_id = ? AND x.entity_type = ?
		  AND x.entity_id = %s.id
		  AND (x.instance = %s.instance OR x.instance = '' OR %s.instance = ''))`,
		alias, alias, alias))
	wb.args = append(wb.args, userID, entityType)
	return wb
}

// AddJunctionIncludes keeps rows having at least one junction link to the
// given related IDs.
func (wb *WhereBuilder) AddJunctionIncludes(alias, table, parentCol, relatedCol string, ids []string) *WhereBuilder {
	if len(ids) == 0 {
		return wb
	}
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		wb.args = append(wb.args, id)
	}
	wb.clauses = append(wb.clauses, fmt.Sprintf(`EXISTS (
		SELECT 1 FROM %s j
		WHERE j.%s = %s.id AND j.parent_instance = %s.instance
		  AND j.%s IN (%s))`,
		table, parentCol, alias, alias, relatedCol, strings.Join(placeholders, ", ")))
	return wb
}

// AddJunctionIncludesAll keeps rows linked to every one of the given related
// IDs.
func (wb *WhereBuilder) AddJunctionIncludesAll(alias, table, parentCol, relatedCol string, ids []string) *WhereBuilder {
	if len(ids) == 0 {
		return wb
	}
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		wb.args = append(wb.args, id)
	}
	wb.args = append(wb.args, len(ids))
	wb.clauses = append(wb.clauses, fmt.Sprintf(`(
		SELECT COUNT(DISTINCT j.%s) FROM %s j
		WHERE j.%s = %s.id AND j.parent_instance = %s.instance
		  AND j.%s IN (%s)) = ?`,
		relatedCol, table, parentCol, alias, alias, relatedCol, strings.Join(placeholders, ", ")))
	return wb
}

// AddJunctionExcludes removes rows having any junction link to the given
// related IDs.
func (wb *WhereBuilder) AddJunctionExcludes(alias, table, parentCol, relatedCol string, ids []string) *WhereBuilder {
	if len(ids) == 0 {
		return wb
	}
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		wb.args = append(wb.args, id)
	}
	wb.clauses = append(wb.clauses, fmt.Sprintf(`NOT EXISTS (
		SELECT 1 FROM %s j
		WHERE j.%s = %s.id AND j.parent_instance = %s.instance
		  AND j.%s IN (%s))`,
		table, parentCol, alias, alias, relatedCol, strings.Join(placeholders, ", ")))
	return wb
}

// Build constructs the final WHERE clause and returns it with arguments.
// Clauses are joined with "AND". Returns ("1=1", []) if no clauses were added.
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "1=1", []interface{}{}
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// BuildWithPrefix returns the WHERE clause with "WHERE " prefix.
func (wb *WhereBuilder) BuildWithPrefix() (string, []interface{}) {
	whereClause, args := wb.Build()
	return "WHERE " + whereClause, args
}

// Count returns the number of clauses added to the builder.
func (wb *WhereBuilder) Count() int {
	return len(wb.clauses)
}

// IsEmpty returns true if no clauses have been added.
func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}
