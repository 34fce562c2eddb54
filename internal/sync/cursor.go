// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package sync

import (
	"strings"
	"time"
)

// cursorLayouts are the accepted upstream timestamp shapes, tried in order
// when parsing a cursor for comparison.
var cursorLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// NormalizeCursor turns a raw upstream updated_at into a filter value:
// the timezone suffix is stripped and the fractional seconds forced to
// .999. The upstream truncates sub-second precision on output, so filtering
// with > T.999 guarantees every row sharing that whole second is skipped
// instead of refetched forever.
func NormalizeCursor(raw string) string {
	if raw == "" {
		return ""
	}

	s := stripTimezone(raw)

	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		s = s[:dot]
	}
	return s + ".999"
}

// stripTimezone removes a trailing Z or ±HH:MM offset. The offset sign is
// only a timezone when it appears after the time separator, so the date's
// own dashes are left alone.
func stripTimezone(s string) string {
	if strings.HasSuffix(s, "Z") {
		return s[:len(s)-1]
	}
	t := strings.IndexByte(s, 'T')
	if t < 0 {
		return s
	}
	for i := len(s) - 1; i > t; i-- {
		if s[i] == '+' || s[i] == '-' {
			return s[:i]
		}
	}
	return s
}

// parseCursor parses a stored or raw cursor as an absolute instant.
// Offset-less values are taken as UTC.
func parseCursor(s string) (time.Time, bool) {
	for _, layout := range cursorLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// maxCursor returns the later of two raw cursors. Comparison is on parsed
// instants; when either side does not parse, the lexically greater raw
// string wins so the cursor still advances.
func maxCursor(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	ta, okA := parseCursor(a)
	tb, okB := parseCursor(b)
	if okA && okB {
		if tb.After(ta) {
			return b
		}
		return a
	}
	if b > a {
		return b
	}
	return a
}
