// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package proxyurl

import "testing"

func strPtr(s string) *string { return &s }

func TestRewrite(t *testing.T) {
	tests := []struct {
		name     string
		raw      *string
		instance string
		want     *string
	}{
		{
			name: "nil passes through",
			raw:  nil,
			want: nil,
		},
		{
			name: "absolute url",
			raw:  strPtr("http://stash.local:9999/scene/42/screenshot?t=123"),
			want: strPtr("/api/proxy/stash?path=%2Fscene%2F42%2Fscreenshot%3Ft%3D123"),
		},
		{
			name: "relative path",
			raw:  strPtr("/scene/42/stream"),
			want: strPtr("/api/proxy/stash?path=%2Fscene%2F42%2Fstream"),
		},
		{
			name:     "instance id appended",
			raw:      strPtr("/scene/42/stream"),
			instance: "main",
			want:     strPtr("/api/proxy/stash?path=%2Fscene%2F42%2Fstream&instanceId=main"),
		},
		{
			name: "already proxied unchanged",
			raw:  strPtr("/api/proxy/stash?path=%2Fscene%2F42%2Fstream"),
			want: strPtr("/api/proxy/stash?path=%2Fscene%2F42%2Fstream"),
		},
		{
			name: "empty unchanged",
			raw:  strPtr(""),
			want: strPtr(""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rewrite(tt.raw, tt.instance)
			switch {
			case got == nil && tt.want == nil:
			case got == nil || tt.want == nil:
				t.Errorf("Rewrite = %v, want %v", got, tt.want)
			case *got != *tt.want:
				t.Errorf("Rewrite = %q, want %q", *got, *tt.want)
			}
		})
	}
}

func TestRewriteIdempotent(t *testing.T) {
	raw := strPtr("http://stash.local:9999/image/7/thumbnail?x=1")
	once := Rewrite(raw, "main")
	twice := Rewrite(once, "main")
	if *once != *twice {
		t.Errorf("second rewrite changed the url: %q -> %q", *once, *twice)
	}
}
