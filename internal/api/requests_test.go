// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package api

import (
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/curator-app/curator/internal/query"
)

func TestParseListOptionsDefaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/scenes", nil)

	opts, err := parseListOptions(r)
	if err != nil {
		t.Fatalf("parseListOptions: %v", err)
	}
	if opts.UserID != "" {
		t.Errorf("UserID = %q, want empty", opts.UserID)
	}
	if opts.ApplyExclusions {
		t.Error("exclusions applied for anonymous request")
	}
	if opts.Page != 0 || opts.PerPage != 0 {
		t.Errorf("page = %d per_page = %d, want zero (normalized downstream)", opts.Page, opts.PerPage)
	}
	if opts.SortDir == query.SortDesc {
		t.Error("default sort direction is DESC")
	}
}

func TestParseListOptionsUserHeader(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/scenes", nil)
	r.Header.Set(userHeader, "alice")

	opts, err := parseListOptions(r)
	if err != nil {
		t.Fatalf("parseListOptions: %v", err)
	}
	if opts.UserID != "alice" {
		t.Errorf("UserID = %q", opts.UserID)
	}
	if !opts.ApplyExclusions {
		t.Error("exclusions not applied for identified viewer")
	}
}

func TestParseListOptionsIncludeHidden(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/scenes?user=alice&include_hidden=true", nil)

	opts, err := parseListOptions(r)
	if err != nil {
		t.Fatalf("parseListOptions: %v", err)
	}
	if opts.UserID != "alice" {
		t.Errorf("UserID = %q", opts.UserID)
	}
	if opts.ApplyExclusions {
		t.Error("include_hidden=true should skip exclusions")
	}
}

func TestParseListOptionsHeaderBeatsQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/scenes?user=bob", nil)
	r.Header.Set(userHeader, "alice")

	opts, _ := parseListOptions(r)
	if opts.UserID != "alice" {
		t.Errorf("UserID = %q, want alice", opts.UserID)
	}
}

func TestParseListOptionsPaginationAndSort(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/scenes?page=3&per_page=25&sort=title&dir=desc&q=noir", nil)

	opts, err := parseListOptions(r)
	if err != nil {
		t.Fatalf("parseListOptions: %v", err)
	}
	if opts.Page != 3 || opts.PerPage != 25 {
		t.Errorf("page = %d per_page = %d", opts.Page, opts.PerPage)
	}
	if opts.SortBy != "title" || opts.SortDir != query.SortDesc {
		t.Errorf("sort = %q %q", opts.SortBy, opts.SortDir)
	}
	if opts.Search != "noir" {
		t.Errorf("search = %q", opts.Search)
	}
}

func TestParseListOptionsRandomSeed(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/scenes?sort=random&seed=42", nil)
	opts, err := parseListOptions(r)
	if err != nil {
		t.Fatalf("parseListOptions: %v", err)
	}
	if opts.RandomSeed != 42 {
		t.Errorf("seed = %d", opts.RandomSeed)
	}

	// Without a seed, random sort still gets one.
	r = httptest.NewRequest("GET", "/api/v1/scenes?sort=random", nil)
	opts, err = parseListOptions(r)
	if err != nil {
		t.Fatalf("parseListOptions: %v", err)
	}
	if opts.RandomSeed == 0 {
		t.Error("no seed generated for random sort")
	}
}

func TestParseListOptionsInstances(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/scenes?instances=main,%20backup,&instance=main", nil)

	opts, err := parseListOptions(r)
	if err != nil {
		t.Fatalf("parseListOptions: %v", err)
	}
	if len(opts.AllowedInstanceIDs) != 2 ||
		opts.AllowedInstanceIDs[0] != "main" || opts.AllowedInstanceIDs[1] != "backup" {
		t.Errorf("AllowedInstanceIDs = %v", opts.AllowedInstanceIDs)
	}
	if opts.SpecificInstanceID != "main" {
		t.Errorf("SpecificInstanceID = %q", opts.SpecificInstanceID)
	}
}

func TestParseListOptionsFilters(t *testing.T) {
	filters := `{
		"ids": {"modifier": "INCLUDES", "values": ["1", "2"]},
		"text": {"title": {"modifier": "INCLUDES", "value": "night"}},
		"numeric": {"duration": {"modifier": "BETWEEN", "value": 60, "value2": 300}},
		"rating": {"modifier": "GREATER_THAN", "value": 3},
		"favorite": true,
		"relations": {"tags": {"modifier": "INCLUDES", "ids": ["9"], "depth": -1}}
	}`
	r := httptest.NewRequest("GET", "/api/v1/scenes?filters="+url.QueryEscape(filters), nil)

	opts, err := parseListOptions(r)
	if err != nil {
		t.Fatalf("parseListOptions: %v", err)
	}

	f := opts.Filters
	if f.IDs == nil || f.IDs.Modifier != query.ModIncludes || len(f.IDs.Values) != 2 {
		t.Errorf("IDs filter = %+v", f.IDs)
	}
	if f.Text["title"] == nil || f.Text["title"].Value != "night" {
		t.Errorf("text filter = %+v", f.Text)
	}
	if n := f.Numeric["duration"]; n == nil || n.Modifier != query.ModBetween || n.Value2 != 300 {
		t.Errorf("numeric filter = %+v", f.Numeric)
	}
	if f.Rating == nil || f.Rating.Modifier != query.ModGreaterThan {
		t.Errorf("rating filter = %+v", f.Rating)
	}
	if f.Favorite == nil || !*f.Favorite {
		t.Errorf("favorite = %v", f.Favorite)
	}
	if rel := f.Relation["tags"]; rel == nil || rel.Depth != -1 || len(rel.IDs) != 1 {
		t.Errorf("relation filter = %+v", f.Relation)
	}
}

func TestParseListOptionsErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"bad page", "page=abc"},
		{"negative page", "page=-1"},
		{"bad per_page", "per_page=x"},
		{"bad seed", "seed=notanumber"},
		{"bad filters", "filters=%7Bnope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/v1/scenes?"+tt.query, nil)
			if _, err := parseListOptions(r); err == nil {
				t.Errorf("no error for %q", tt.query)
			}
		})
	}
}
