// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

/*
builder.go - List and Count SQL Synthesis

Turns one Options bag plus a kindSpec into two statements: the paged list
SELECT and the matching COUNT. Both share the same WHERE clause so the
total can never disagree with the page contents. The overlay join is
emitted only when a user is present; the count variant drops it again
unless an overlay column appears in the WHERE, which keeps the common
count path a single-table scan.

Placeholder order is positional: overlay-join args, then WHERE args, then
the random-sort seed. LIMIT and OFFSET are validated integers inlined as
literals.
*/
package query

import (
	"fmt"
	"strings"

	dbquery "github.com/curator-app/curator/internal/database/query"
)

// statement is one executable SQL string with its positional args.
type statement struct {
	sql  string
	args []interface{}
}

// built carries the list and count statements for one request.
type built struct {
	list  statement
	count statement
}

// overlayJoin matches the overlay row for the current user. The instance
// tri-match mirrors the exclusion filter: a global overlay row covers
// scoped entities and legacy rows match any overlay scope.
const overlayJoin = ` LEFT JOIN user_overlays uo ON uo.user_id = ?
	AND uo.entity_type = ? AND uo.entity_id = %[1]s.id
	AND (uo.instance = %[1]s.instance OR uo.instance = '' OR %[1]s.instance = '')`

// buildList assembles the list and count SQL for one kind. Relation filter
// IDs must already be hierarchy-expanded.
func buildList(spec *kindSpec, opts *Options) (*built, error) {
	opts.normalize()

	hasUser := opts.UserID != ""
	usesOverlay := false

	wb := dbquery.NewWhereBuilder()
	wb.AddNotDeleted(spec.alias)

	if opts.SpecificInstanceID != "" {
		wb.AddInstances(spec.alias, []string{opts.SpecificInstanceID})
	} else if len(opts.AllowedInstanceIDs) > 0 {
		wb.AddInstances(spec.alias, opts.AllowedInstanceIDs)
	}

	if opts.ApplyExclusions && hasUser {
		wb.AddExcludedFilter(spec.alias, opts.UserID, string(spec.kind))
	}

	if f := opts.Filters.IDs; f != nil && len(f.Values) > 0 {
		switch f.Modifier {
		case ModExcludes:
			wb.AddNotIn(spec.alias+".id", f.Values)
		default:
			wb.AddIn(spec.alias+".id", f.Values)
		}
	}

	if err := addTextFilters(wb, spec, opts.Filters.Text); err != nil {
		return nil, err
	}
	if err := addNumericFilters(wb, spec, opts.Filters.Numeric); err != nil {
		return nil, err
	}
	if err := addDateFilters(wb, spec, opts.Filters.Date); err != nil {
		return nil, err
	}

	if f := opts.Filters.Rating; f != nil {
		if hasUser {
			if err := addComparable(wb, "uo.rating", f.Modifier, f.Value, f.Value2); err != nil {
				return nil, err
			}
			usesOverlay = true
		} else if ratingRequiresValue(f.Modifier) {
			// Anonymous requests have no overlay rows, so any filter
			// demanding a rating matches nothing.
			wb.AddClause("1=0")
		}
	}

	if f := opts.Filters.Favorite; f != nil {
		switch {
		case !hasUser && *f:
			wb.AddClause("1=0")
		case !hasUser:
			// Everything is unfavorited for anonymous users.
		case *f:
			wb.AddClause("uo.favorite = TRUE")
			usesOverlay = true
		default:
			wb.AddClause("(uo.favorite = FALSE OR uo.favorite IS NULL)")
			usesOverlay = true
		}
	}

	if err := addRelationFilters(wb, spec, opts.Filters.Relation); err != nil {
		return nil, err
	}

	wb.AddSearch(opts.Search, spec.searchColumns...)

	where, whereArgs := wb.Build()

	orderBy, orderArgs, sortsOverlay := orderClause(spec, opts)
	usesOverlay = usesOverlay || sortsOverlay

	cols := make([]string, 0, len(spec.selectColumns)+2)
	for _, c := range spec.selectColumns {
		cols = append(cols, spec.alias+"."+c)
	}
	if hasUser {
		cols = append(cols, "uo.rating", "uo.favorite")
	}

	from := spec.table + " " + spec.alias
	joinArgs := []interface{}{}
	join := ""
	if hasUser {
		join = fmt.Sprintf(overlayJoin, spec.alias)
		joinArgs = append(joinArgs, opts.UserID, string(spec.kind))
	}

	listSQL := fmt.Sprintf("SELECT %s FROM %s%s WHERE %s ORDER BY %s LIMIT %d OFFSET %d",
		strings.Join(cols, ", "), from, join, where, orderBy,
		opts.PerPage, (opts.Page-1)*opts.PerPage)

	listArgs := make([]interface{}, 0, len(joinArgs)+len(whereArgs)+len(orderArgs))
	listArgs = append(listArgs, joinArgs...)
	listArgs = append(listArgs, whereArgs...)
	listArgs = append(listArgs, orderArgs...)

	countJoin := ""
	countArgs := make([]interface{}, 0, len(joinArgs)+len(whereArgs))
	if usesOverlay {
		countJoin = join
		countArgs = append(countArgs, joinArgs...)
	}
	countArgs = append(countArgs, whereArgs...)
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s%s WHERE %s", from, countJoin, where)

	return &built{
		list:  statement{sql: listSQL, args: listArgs},
		count: statement{sql: countSQL, args: countArgs},
	}, nil
}

// SortRandom is the sort key selecting the seeded shuffle.
const SortRandom = "random"

// orderClause resolves the ORDER BY expression. Every ordering ends with
// the row's id so pagination is total even when the sort column ties.
func orderClause(spec *kindSpec, opts *Options) (string, []interface{}, bool) {
	dir := string(opts.SortDir)

	if opts.SortBy == SortRandom {
		return fmt.Sprintf("%s %s, %s.id %s", randomOrderExpr(spec.alias), dir, spec.alias, dir),
			[]interface{}{opts.RandomSeed}, false
	}

	if opts.SortBy == "rating" && opts.UserID != "" {
		order := fmt.Sprintf("uo.rating %s NULLS LAST", dir)
		if spec.nameExpr != "" {
			order += ", " + spec.nameExpr + " ASC"
		}
		return order + fmt.Sprintf(", %s.id ASC", spec.alias), nil, true
	}

	expr, ok := spec.sortColumns[opts.SortBy]
	if !ok {
		expr = spec.sortColumns[spec.defaultSort]
	}

	order := expr + " " + dir
	if spec.nameExpr != "" && spec.nameExpr != expr {
		order += ", " + spec.nameExpr + " ASC"
	}
	return order + fmt.Sprintf(", %s.id ASC", spec.alias), nil, false
}

func addTextFilters(wb *dbquery.WhereBuilder, spec *kindSpec, filters map[string]*TextFilter) error {
	for key, f := range filters {
		col, ok := spec.textColumns[key]
		if !ok {
			return errUnknownFilter(string(spec.kind), key)
		}
		switch f.Modifier {
		case ModIncludes:
			wb.AddClause(col+" ILIKE ?", "%"+f.Value+"%")
		case ModExcludes:
			wb.AddClause("("+col+" NOT ILIKE ? OR "+col+" IS NULL)", "%"+f.Value+"%")
		case ModEquals:
			wb.AddClause(col+" = ?", f.Value)
		case ModNotEquals:
			wb.AddClause("("+col+" != ? OR "+col+" IS NULL)", f.Value)
		case ModIsNull:
			wb.AddClause("(" + col + " IS NULL OR " + col + " = '')")
		case ModNotNull:
			wb.AddClause("(" + col + " IS NOT NULL AND " + col + " != '')")
		default:
			return fmt.Errorf("text filter %q: unsupported modifier %q", key, f.Modifier)
		}
	}
	return nil
}

func addNumericFilters(wb *dbquery.WhereBuilder, spec *kindSpec, filters map[string]*NumericFilter) error {
	for key, f := range filters {
		col, ok := spec.numericColumns[key]
		if !ok {
			return errUnknownFilter(string(spec.kind), key)
		}
		if err := addComparable(wb, col, f.Modifier, f.Value, f.Value2); err != nil {
			return fmt.Errorf("numeric filter %q: %w", key, err)
		}
	}
	return nil
}

func addDateFilters(wb *dbquery.WhereBuilder, spec *kindSpec, filters map[string]*DateFilter) error {
	for key, f := range filters {
		col, ok := spec.dateColumns[key]
		if !ok {
			return errUnknownFilter(string(spec.kind), key)
		}
		if err := addComparable(wb, col, f.Modifier, f.Value, f.Value2); err != nil {
			return fmt.Errorf("date filter %q: %w", key, err)
		}
	}
	return nil
}

// addComparable emits one ordered-comparison clause; value types flow
// through as-is so it serves numeric and date columns alike.
func addComparable(wb *dbquery.WhereBuilder, col string, mod Modifier, v, v2 interface{}) error {
	switch mod {
	case ModEquals:
		wb.AddClause(col+" = ?", v)
	case ModNotEquals:
		wb.AddClause("("+col+" != ? OR "+col+" IS NULL)", v)
	case ModGreaterThan:
		wb.AddClause(col+" > ?", v)
	case ModLessThan:
		wb.AddClause(col+" < ?", v)
	case ModBetween:
		wb.AddClause(col+" BETWEEN ? AND ?", v, v2)
	case ModNotBetween:
		wb.AddClause("("+col+" NOT BETWEEN ? AND ? OR "+col+" IS NULL)", v, v2)
	case ModIsNull:
		wb.AddClause(col + " IS NULL")
	case ModNotNull:
		wb.AddClause(col + " IS NOT NULL")
	default:
		return fmt.Errorf("unsupported modifier %q", mod)
	}
	return nil
}

// ratingRequiresValue reports whether a rating modifier can only match rows
// that actually carry a rating.
func ratingRequiresValue(mod Modifier) bool {
	switch mod {
	case ModEquals, ModGreaterThan, ModLessThan, ModBetween, ModNotNull:
		return true
	}
	return false
}

func addRelationFilters(wb *dbquery.WhereBuilder, spec *kindSpec, filters map[string]*RelationFilter) error {
	for key, f := range filters {
		rs, ok := spec.relations[key]
		if !ok {
			return errUnknownFilter(string(spec.kind), key)
		}
		if len(f.IDs) == 0 {
			continue
		}

		if rs.table != "" {
			switch f.Modifier {
			case ModIncludesAll:
				wb.AddJunctionIncludesAll(spec.alias, rs.table, rs.parentCol, rs.relatedCol, f.IDs)
			case ModExcludes:
				wb.AddJunctionExcludes(spec.alias, rs.table, rs.parentCol, rs.relatedCol, f.IDs)
			default:
				wb.AddJunctionIncludes(spec.alias, rs.table, rs.parentCol, rs.relatedCol, f.IDs)
			}
			continue
		}

		// Direct-column relation: one parent per row.
		switch f.Modifier {
		case ModExcludes:
			wb.AddNotIn(rs.column, f.IDs)
		case ModIncludesAll:
			if len(f.IDs) > 1 {
				// A single-valued column cannot match several parents.
				wb.AddClause("1=0")
			} else {
				wb.AddIn(rs.column, f.IDs)
			}
		default:
			wb.AddIn(rs.column, f.IDs)
		}
	}
	return nil
}
