// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/curator-app/curator/internal/instances"
	"github.com/curator-app/curator/internal/logging"
)

// proxyClient streams media bodies. No overall timeout: a seeked video
// stream legitimately stays open for a long time.
var proxyClient = &http.Client{}

// proxyPassHeaders are the upstream response headers forwarded to the
// client. Range support headers matter for video seeking.
var proxyPassHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Content-Range",
	"Accept-Ranges",
	"ETag",
	"Last-Modified",
	"Cache-Control",
}

// handleProxy streams one upstream media asset. Every media URL in an API
// response has been rewritten onto this route, so browsers never need the
// upstream's address or API key.
//
//	GET /api/proxy/stash?path=/scene/42/screenshot&instanceId=main
func (rt *Router) handleProxy(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if !strings.HasPrefix(path, "/") {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest,
			"path must be upstream-relative")
		return
	}

	entry := rt.proxyTarget(r.URL.Query().Get("instanceId"))
	if entry == nil {
		respondError(w, r, http.StatusBadGateway, ErrCodeBadGateway,
			"no upstream instance available")
		return
	}

	target := strings.TrimRight(entry.Instance.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid media path")
		return
	}
	if entry.Instance.APIKey != "" {
		req.Header.Set("ApiKey", entry.Instance.APIKey)
	}
	for _, h := range []string{"Range", "If-None-Match", "If-Modified-Since", "Accept"} {
		if v := r.Header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}

	resp, err := proxyClient.Do(req)
	if err != nil {
		logging.Err(err).Str("instance", entry.Instance.ID).Str("path", path).
			Msg("Media proxy request failed")
		respondError(w, r, http.StatusBadGateway, ErrCodeBadGateway, "upstream unreachable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	for _, h := range proxyPassHeaders {
		if v := resp.Header.Get(h); v != "" {
			w.Header().Set(h, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		// Client went away mid-stream; nothing to answer anymore.
		logging.Debug().Err(err).Str("path", path).Msg("Media proxy stream interrupted")
	}
}

// proxyTarget picks the upstream: the named instance, or the
// highest-priority one when the URL predates multi-instance rewrites.
func (rt *Router) proxyTarget(instanceID string) *instances.Entry {
	if rt.deps.Registry == nil {
		return nil
	}
	if instanceID != "" {
		entry, ok := rt.deps.Registry.Get(instanceID)
		if !ok {
			return nil
		}
		return entry
	}
	all := rt.deps.Registry.All()
	if len(all) == 0 {
		return nil
	}
	return all[0]
}
