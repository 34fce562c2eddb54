// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package database

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/curator-app/curator/internal/models"
)

// kindTables maps entity kinds to their mirror tables.
var kindTables = map[models.Kind]string{
	models.KindScene:     "scenes",
	models.KindImage:     "images",
	models.KindGallery:   "galleries",
	models.KindPerformer: "performers",
	models.KindStudio:    "studios",
	models.KindTag:       "tags",
	models.KindGroup:     "groups",
	models.KindClip:      "clips",
}

// TableFor returns the mirror table for a kind.
func TableFor(kind models.Kind) (string, error) {
	t, ok := kindTables[kind]
	if !ok {
		return "", fmt.Errorf("unknown entity kind %q", kind)
	}
	return t, nil
}

// placeholders returns "(?, ?, ...)" with n markers.
func placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = "?"
	}
	return "(" + strings.Join(marks, ", ") + ")"
}

// multiRowValues returns "(?, ...), (?, ...)" for rows x cols markers.
func multiRowValues(rows, cols int) string {
	row := placeholders(cols)
	all := make([]string, rows)
	for i := range all {
		all[i] = row
	}
	return strings.Join(all, ", ")
}

// upsertChunkSize caps rows per multi-row statement so parameter counts stay
// well under driver limits even for the widest table.
const upsertChunkSize = 100

// marshalStringList serializes a string slice for a TEXT column. Nil and
// empty serialize to NULL so the column stays cheap to scan.
func marshalStringList(values []string) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal string list: %w", err)
	}
	return string(data), nil
}

// unmarshalStringList reverses marshalStringList.
func unmarshalStringList(raw *string) ([]string, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(*raw), &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal string list: %w", err)
	}
	return out, nil
}

// inPlaceholders builds an "IN (?, ...)" fragment and the matching args.
func inPlaceholders(values []string) (string, []any) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return placeholders(len(values)), args
}

// chunkStrings splits ids into batches of at most size.
func chunkStrings(ids []string, size int) [][]string {
	if size <= 0 || len(ids) == 0 {
		return nil
	}
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
