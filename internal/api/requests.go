// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/curator-app/curator/internal/query"
)

// userHeader carries the viewer identity resolved by the fronting proxy.
// The "user" query parameter is an escape hatch for direct API use.
const userHeader = "X-Curator-User"

// userFrom resolves the viewer identity; empty means anonymous.
func userFrom(r *http.Request) string {
	if id := r.Header.Get(userHeader); id != "" {
		return id
	}
	return r.URL.Query().Get("user")
}

// wireFilters is the JSON shape of the "filters" query parameter. Field
// names mirror the query option bag one to one.
type wireFilters struct {
	IDs       *wireIDFilter                  `json:"ids,omitempty"`
	Text      map[string]*wireTextFilter     `json:"text,omitempty"`
	Numeric   map[string]*wireNumericFilter  `json:"numeric,omitempty"`
	Date      map[string]*wireDateFilter     `json:"date,omitempty"`
	Rating    *wireNumericFilter             `json:"rating,omitempty"`
	Favorite  *bool                          `json:"favorite,omitempty"`
	Relations map[string]*wireRelationFilter `json:"relations,omitempty"`
}

type wireIDFilter struct {
	Modifier string   `json:"modifier"`
	Values   []string `json:"values"`
}

type wireTextFilter struct {
	Modifier string `json:"modifier"`
	Value    string `json:"value"`
}

type wireNumericFilter struct {
	Modifier string  `json:"modifier"`
	Value    float64 `json:"value"`
	Value2   float64 `json:"value2,omitempty"`
}

type wireDateFilter struct {
	Modifier string `json:"modifier"`
	Value    string `json:"value"`
	Value2   string `json:"value2,omitempty"`
}

type wireRelationFilter struct {
	Modifier string   `json:"modifier"`
	IDs      []string `json:"ids"`
	Depth    int      `json:"depth,omitempty"`
}

// toFilters converts the wire shape into typed filters.
func (wf *wireFilters) toFilters() query.Filters {
	f := query.Filters{Favorite: wf.Favorite}

	if wf.IDs != nil {
		f.IDs = &query.IDFilter{
			Modifier: query.Modifier(wf.IDs.Modifier),
			Values:   wf.IDs.Values,
		}
	}
	if wf.Rating != nil {
		f.Rating = &query.NumericFilter{
			Modifier: query.Modifier(wf.Rating.Modifier),
			Value:    wf.Rating.Value,
			Value2:   wf.Rating.Value2,
		}
	}
	if len(wf.Text) > 0 {
		f.Text = make(map[string]*query.TextFilter, len(wf.Text))
		for key, t := range wf.Text {
			f.Text[key] = &query.TextFilter{
				Modifier: query.Modifier(t.Modifier),
				Value:    t.Value,
			}
		}
	}
	if len(wf.Numeric) > 0 {
		f.Numeric = make(map[string]*query.NumericFilter, len(wf.Numeric))
		for key, n := range wf.Numeric {
			f.Numeric[key] = &query.NumericFilter{
				Modifier: query.Modifier(n.Modifier),
				Value:    n.Value,
				Value2:   n.Value2,
			}
		}
	}
	if len(wf.Date) > 0 {
		f.Date = make(map[string]*query.DateFilter, len(wf.Date))
		for key, d := range wf.Date {
			f.Date[key] = &query.DateFilter{
				Modifier: query.Modifier(d.Modifier),
				Value:    d.Value,
				Value2:   d.Value2,
			}
		}
	}
	if len(wf.Relations) > 0 {
		f.Relation = make(map[string]*query.RelationFilter, len(wf.Relations))
		for key, rel := range wf.Relations {
			f.Relation[key] = &query.RelationFilter{
				Modifier: query.Modifier(rel.Modifier),
				IDs:      rel.IDs,
				Depth:    rel.Depth,
			}
		}
	}
	return f
}

// parseListOptions builds the list option bag from query parameters:
//
//	page, per_page  pagination
//	sort, dir       sort column and ASC|DESC; sort=random uses seed
//	seed            deterministic random-sort seed (int64)
//	q               free-text search
//	instance        pin results to one upstream
//	instances       comma-separated allow list of upstreams
//	filters         JSON filter object (see wireFilters)
//	include_hidden  "true" skips the viewer's exclusion index
func parseListOptions(r *http.Request) (query.Options, error) {
	q := r.URL.Query()
	userID := userFrom(r)

	opts := query.Options{
		UserID:             userID,
		ApplyExclusions:    userID != "" && q.Get("include_hidden") != "true",
		Search:             q.Get("q"),
		SortBy:             q.Get("sort"),
		SpecificInstanceID: q.Get("instance"),
	}

	var err error
	if opts.Page, err = intParam(q.Get("page"), 0); err != nil {
		return opts, fmt.Errorf("invalid page: %w", err)
	}
	if opts.PerPage, err = intParam(q.Get("per_page"), 0); err != nil {
		return opts, fmt.Errorf("invalid per_page: %w", err)
	}

	if dir := strings.ToUpper(q.Get("dir")); dir == string(query.SortDesc) {
		opts.SortDir = query.SortDesc
	}

	if raw := q.Get("seed"); raw != "" {
		opts.RandomSeed, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid seed: %w", err)
		}
	} else if opts.SortBy == query.SortRandom {
		// No seed supplied: pick one. The client reads it back from the
		// response if it wants stable ordering across pages.
		opts.RandomSeed = time.Now().UnixNano()
	}

	if raw := q.Get("instances"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				opts.AllowedInstanceIDs = append(opts.AllowedInstanceIDs, id)
			}
		}
	}

	if raw := q.Get("filters"); raw != "" {
		var wf wireFilters
		if err := json.Unmarshal([]byte(raw), &wf); err != nil {
			return opts, fmt.Errorf("invalid filters: %w", err)
		}
		opts.Filters = wf.toFilters()
	}

	return opts, nil
}

// intParam parses a non-negative integer parameter, returning def for "".
func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return n, nil
}
