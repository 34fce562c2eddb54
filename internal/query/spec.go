// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

/*
spec.go - Per-Kind Query Specifications

One spec per browsable kind: the closed set of filterable columns, the
search columns, the sort map, and the relations reachable through junction
tables or hierarchy columns. The builder consults nothing else, so what a
kind exposes is auditable in one place.
*/
package query

import "github.com/curator-app/curator/internal/models"

// relationSpec describes one filterable relation. Junction relations carry
// the four-column junction table; column relations filter a direct foreign
// key. hierarchy names the expansion applied to filter IDs before the
// clause is emitted.
type relationSpec struct {
	table      string
	parentCol  string
	relatedCol string
	column     string // direct FK column, mutually exclusive with table
	hierarchy  string // "", "tag", "studio", "group"
}

// kindSpec is the closed filter surface of one kind.
type kindSpec struct {
	kind  models.Kind
	table string
	alias string

	// selectColumns in scan order; every column prefixed with the alias at
	// build time.
	selectColumns []string

	textColumns    map[string]string
	numericColumns map[string]string
	dateColumns    map[string]string
	searchColumns  []string

	// sortColumns maps exposed sort keys to ORDER BY expressions. Unknown
	// keys fall back to defaultSort.
	sortColumns map[string]string
	defaultSort string
	// nameExpr is the case-insensitive tie-break column, empty for kinds
	// without a display name.
	nameExpr string

	relations map[string]relationSpec
}

var sceneSpec = kindSpec{
	kind:  models.KindScene,
	table: "scenes",
	alias: "s",
	selectColumns: []string{
		"id", "instance", "title", "code", "date", "details", "director", "studio_id",
		"path", "video_codec", "width", "height", "bitrate", "size", "duration",
		"screenshot_path", "preview_path", "sprite_path", "vtt_path", "stream_path", "captions_path",
		"play_count", "play_duration", "o_counter", "phash", "fingerprints",
		"created_at", "updated_at",
	},
	textColumns: map[string]string{
		"title":    "s.title",
		"code":     "s.code",
		"details":  "s.details",
		"director": "s.director",
		"path":     "s.path",
	},
	numericColumns: map[string]string{
		"duration":   "s.duration",
		"play_count": "s.play_count",
		"o_counter":  "s.o_counter",
		"width":      "s.width",
		"height":     "s.height",
		"bitrate":    "s.bitrate",
		"size":       "s.size",
	},
	dateColumns: map[string]string{
		"date": "s.date",
	},
	searchColumns: []string{"s.title", "s.details", "s.path", "s.code"},
	sortColumns: map[string]string{
		"title":      "LOWER(s.title)",
		"date":       "s.date",
		"duration":   "s.duration",
		"size":       "s.size",
		"play_count": "s.play_count",
		"o_counter":  "s.o_counter",
		"created_at": "s.created_at",
		"updated_at": "s.updated_at",
	},
	defaultSort: "updated_at",
	nameExpr:    "LOWER(s.title)",
	relations: map[string]relationSpec{
		"performers": {table: "scene_performers", parentCol: "scene_id", relatedCol: "performer_id"},
		"tags":       {table: "scene_tags", parentCol: "scene_id", relatedCol: "tag_id", hierarchy: "tag"},
		"groups":     {table: "scene_groups", parentCol: "scene_id", relatedCol: "group_id", hierarchy: "group"},
		"galleries":  {table: "scene_galleries", parentCol: "scene_id", relatedCol: "gallery_id"},
		"studios":    {column: "s.studio_id", hierarchy: "studio"},
	},
}

var imageSpec = kindSpec{
	kind:  models.KindImage,
	table: "images",
	alias: "i",
	selectColumns: []string{
		"id", "instance", "title", "date", "details", "photographer", "studio_id",
		"path", "width", "height", "size",
		"thumbnail_path", "preview_path", "image_path", "o_counter",
		"created_at", "updated_at",
	},
	textColumns: map[string]string{
		"title":        "i.title",
		"details":      "i.details",
		"photographer": "i.photographer",
		"path":         "i.path",
	},
	numericColumns: map[string]string{
		"o_counter": "i.o_counter",
		"width":     "i.width",
		"height":    "i.height",
		"size":      "i.size",
	},
	dateColumns: map[string]string{
		"date": "i.date",
	},
	searchColumns: []string{"i.title", "i.details", "i.path", "i.photographer"},
	sortColumns: map[string]string{
		"title":      "LOWER(i.title)",
		"date":       "i.date",
		"size":       "i.size",
		"o_counter":  "i.o_counter",
		"created_at": "i.created_at",
		"updated_at": "i.updated_at",
	},
	defaultSort: "updated_at",
	nameExpr:    "LOWER(i.title)",
	relations: map[string]relationSpec{
		"performers": {table: "image_performers", parentCol: "image_id", relatedCol: "performer_id"},
		"tags":       {table: "image_tags", parentCol: "image_id", relatedCol: "tag_id", hierarchy: "tag"},
		"galleries":  {table: "image_galleries", parentCol: "image_id", relatedCol: "gallery_id"},
		"studios":    {column: "i.studio_id", hierarchy: "studio"},
	},
}

var gallerySpec = kindSpec{
	kind:  models.KindGallery,
	table: "galleries",
	alias: "g",
	selectColumns: []string{
		"id", "instance", "title", "date", "details", "photographer", "studio_id",
		"cover_image_id", "image_count", "created_at", "updated_at",
	},
	textColumns: map[string]string{
		"title":        "g.title",
		"details":      "g.details",
		"photographer": "g.photographer",
	},
	numericColumns: map[string]string{
		"image_count": "g.image_count",
	},
	dateColumns: map[string]string{
		"date": "g.date",
	},
	searchColumns: []string{"g.title", "g.details", "g.photographer"},
	sortColumns: map[string]string{
		"title":       "LOWER(g.title)",
		"date":        "g.date",
		"image_count": "g.image_count",
		"created_at":  "g.created_at",
		"updated_at":  "g.updated_at",
	},
	defaultSort: "updated_at",
	nameExpr:    "LOWER(g.title)",
	relations: map[string]relationSpec{
		"performers": {table: "gallery_performers", parentCol: "gallery_id", relatedCol: "performer_id"},
		"tags":       {table: "gallery_tags", parentCol: "gallery_id", relatedCol: "tag_id", hierarchy: "tag"},
		"studios":    {column: "g.studio_id", hierarchy: "studio"},
	},
}

var performerSpec = kindSpec{
	kind:  models.KindPerformer,
	table: "performers",
	alias: "p",
	selectColumns: []string{
		"id", "instance", "name", "disambiguation", "gender", "birthdate", "country",
		"details", "image_path", "scene_count", "image_count", "gallery_image_count",
		"created_at", "updated_at",
	},
	textColumns: map[string]string{
		"name":           "p.name",
		"disambiguation": "p.disambiguation",
		"gender":         "p.gender",
		"country":        "p.country",
		"details":        "p.details",
	},
	numericColumns: map[string]string{
		"scene_count":         "p.scene_count",
		"image_count":         "p.image_count",
		"gallery_image_count": "p.gallery_image_count",
	},
	dateColumns: map[string]string{
		"birthdate": "p.birthdate",
	},
	searchColumns: []string{"p.name", "p.disambiguation", "p.details"},
	sortColumns: map[string]string{
		"name":                "LOWER(p.name)",
		"birthdate":           "p.birthdate",
		"scene_count":         "p.scene_count",
		"image_count":         "p.image_count",
		"gallery_image_count": "p.gallery_image_count",
		"created_at":          "p.created_at",
		"updated_at":          "p.updated_at",
	},
	defaultSort: "name",
	nameExpr:    "LOWER(p.name)",
	relations: map[string]relationSpec{
		"tags": {table: "performer_tags", parentCol: "performer_id", relatedCol: "tag_id", hierarchy: "tag"},
	},
}

var studioSpec = kindSpec{
	kind:  models.KindStudio,
	table: "studios",
	alias: "st",
	selectColumns: []string{
		"id", "instance", "name", "url", "details", "parent_id", "image_path",
		"scene_count", "image_count", "gallery_image_count",
		"created_at", "updated_at",
	},
	textColumns: map[string]string{
		"name":    "st.name",
		"details": "st.details",
		"url":     "st.url",
	},
	numericColumns: map[string]string{
		"scene_count":         "st.scene_count",
		"image_count":         "st.image_count",
		"gallery_image_count": "st.gallery_image_count",
	},
	dateColumns:   map[string]string{},
	searchColumns: []string{"st.name", "st.details"},
	sortColumns: map[string]string{
		"name":        "LOWER(st.name)",
		"scene_count": "st.scene_count",
		"created_at":  "st.created_at",
		"updated_at":  "st.updated_at",
	},
	defaultSort: "name",
	nameExpr:    "LOWER(st.name)",
	relations: map[string]relationSpec{
		"tags":    {table: "studio_tags", parentCol: "studio_id", relatedCol: "tag_id", hierarchy: "tag"},
		"parents": {column: "st.parent_id", hierarchy: "studio"},
	},
}

var tagSpec = kindSpec{
	kind:  models.KindTag,
	table: "tags",
	alias: "t",
	selectColumns: []string{
		"id", "instance", "name", "description", "image_path",
		"scene_count", "image_count", "scene_count_via_performer", "gallery_image_count",
		"created_at", "updated_at",
	},
	textColumns: map[string]string{
		"name":        "t.name",
		"description": "t.description",
	},
	numericColumns: map[string]string{
		"scene_count":               "t.scene_count",
		"image_count":               "t.image_count",
		"scene_count_via_performer": "t.scene_count_via_performer",
		"gallery_image_count":       "t.gallery_image_count",
	},
	dateColumns:   map[string]string{},
	searchColumns: []string{"t.name", "t.description"},
	sortColumns: map[string]string{
		"name":        "LOWER(t.name)",
		"scene_count": "t.scene_count",
		"image_count": "t.image_count",
		"created_at":  "t.created_at",
		"updated_at":  "t.updated_at",
	},
	defaultSort: "name",
	nameExpr:    "LOWER(t.name)",
	relations: map[string]relationSpec{
		"parents": {table: "tag_parents", parentCol: "tag_id", relatedCol: "parent_id", hierarchy: "tag"},
	},
}

var groupSpec = kindSpec{
	kind:  models.KindGroup,
	table: "groups",
	alias: "gr",
	selectColumns: []string{
		"id", "instance", "name", "date", "details", "studio_id",
		"front_path", "back_path", "scene_count",
		"created_at", "updated_at",
	},
	textColumns: map[string]string{
		"name":    "gr.name",
		"details": "gr.details",
	},
	numericColumns: map[string]string{
		"scene_count": "gr.scene_count",
	},
	dateColumns: map[string]string{
		"date": "gr.date",
	},
	searchColumns: []string{"gr.name", "gr.details"},
	sortColumns: map[string]string{
		"name":        "LOWER(gr.name)",
		"date":        "gr.date",
		"scene_count": "gr.scene_count",
		"created_at":  "gr.created_at",
		"updated_at":  "gr.updated_at",
	},
	defaultSort: "name",
	nameExpr:    "LOWER(gr.name)",
	relations: map[string]relationSpec{
		"tags":    {table: "group_tags", parentCol: "group_id", relatedCol: "tag_id", hierarchy: "tag"},
		"studios": {column: "gr.studio_id", hierarchy: "studio"},
	},
}

var clipSpec = kindSpec{
	kind:  models.KindClip,
	table: "clips",
	alias: "c",
	selectColumns: []string{
		"id", "instance", "scene_id", "title", "seconds", "end_seconds", "primary_tag_id",
		"preview_path", "screenshot_path", "stream_path", "is_generated",
		"created_at", "updated_at",
	},
	textColumns: map[string]string{
		"title": "c.title",
	},
	numericColumns: map[string]string{
		"seconds": "c.seconds",
	},
	dateColumns:   map[string]string{},
	searchColumns: []string{"c.title"},
	sortColumns: map[string]string{
		"title":      "LOWER(c.title)",
		"seconds":    "c.seconds",
		"created_at": "c.created_at",
		"updated_at": "c.updated_at",
	},
	defaultSort: "seconds",
	nameExpr:    "LOWER(c.title)",
	relations: map[string]relationSpec{
		"tags":         {table: "clip_tags", parentCol: "clip_id", relatedCol: "tag_id", hierarchy: "tag"},
		"scenes":       {column: "c.scene_id"},
		"primary_tags": {column: "c.primary_tag_id", hierarchy: "tag"},
	},
}
