// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

// Package proxyurl rewrites upstream media URLs into the local proxy form.
// Raw upstream URLs never leave the process: every media path handed to a
// client goes through Rewrite first.
package proxyurl

import (
	"net/url"
	"strings"
)

// Prefix is the local proxy route media URLs are rewritten onto.
const Prefix = "/api/proxy/stash"

// Rewrite maps an upstream URL or path to its proxied form. Nil stays nil,
// an already-proxied value is returned unchanged (Rewrite is idempotent),
// and the upstream path+query is carried percent-encoded in the path
// parameter. instance, when set, is appended as instanceId so the proxy
// can route to the right upstream.
func Rewrite(raw *string, instance string) *string {
	if raw == nil {
		return nil
	}
	if *raw == "" || strings.HasPrefix(*raw, Prefix) {
		return raw
	}

	target := pathAndQuery(*raw)

	rewritten := Prefix + "?path=" + url.QueryEscape(target)
	if instance != "" {
		rewritten += "&instanceId=" + url.QueryEscape(instance)
	}
	return &rewritten
}

// pathAndQuery reduces an absolute URL to its path plus query; a relative
// path passes through with its own query intact.
func pathAndQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	target := u.EscapedPath()
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return target
}
