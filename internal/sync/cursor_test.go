// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package sync

import "testing"

func TestNormalizeCursor(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "negative offset stripped",
			raw:  "2025-01-10T12:00:00-08:00",
			want: "2025-01-10T12:00:00.999",
		},
		{
			name: "positive offset stripped",
			raw:  "2025-01-10T12:00:00+02:00",
			want: "2025-01-10T12:00:00.999",
		},
		{
			name: "zulu stripped",
			raw:  "2025-01-10T12:00:00Z",
			want: "2025-01-10T12:00:00.999",
		},
		{
			name: "existing fraction replaced",
			raw:  "2025-01-10T12:00:00.5-08:00",
			want: "2025-01-10T12:00:00.999",
		},
		{
			name: "no timezone",
			raw:  "2025-01-10T12:00:00",
			want: "2025-01-10T12:00:00.999",
		},
		{
			name: "empty stays empty",
			raw:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeCursor(tt.raw); got != tt.want {
				t.Errorf("NormalizeCursor(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeCursorIdempotentFilter(t *testing.T) {
	// The documented incremental scenario: a stored whole-second cursor
	// must exclude an upstream row whose raw timestamp shares that second
	// with higher sub-second precision, breaking refetch loops.
	stored := "2025-01-10T12:00:00"
	filter := NormalizeCursor(stored)
	if filter != "2025-01-10T12:00:00.999" {
		t.Fatalf("unexpected filter value %q", filter)
	}

	rowInstant, ok := parseCursor("2025-01-10T12:00:00.5")
	if !ok {
		t.Fatal("failed to parse row instant")
	}
	filterInstant, ok := parseCursor(filter)
	if !ok {
		t.Fatal("failed to parse filter instant")
	}
	if rowInstant.After(filterInstant) {
		t.Error("row with .5 fraction must not sort after the .999 filter")
	}
}

func TestMaxCursor(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want string
	}{
		{
			name: "later instant wins across offsets",
			a:    "2025-01-10T12:00:00-08:00", // 20:00 UTC
			b:    "2025-01-10T19:00:00Z",      // 19:00 UTC
			want: "2025-01-10T12:00:00-08:00",
		},
		{
			name: "empty loses",
			a:    "",
			b:    "2025-01-10T12:00:00Z",
			want: "2025-01-10T12:00:00Z",
		},
		{
			name: "unparsable falls back to lexical",
			a:    "not-a-time",
			b:    "zz-later",
			want: "zz-later",
		},
		{
			name: "equal keeps first",
			a:    "2025-01-10T12:00:00Z",
			b:    "2025-01-10T12:00:00Z",
			want: "2025-01-10T12:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maxCursor(tt.a, tt.b); got != tt.want {
				t.Errorf("maxCursor(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
