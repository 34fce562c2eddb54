// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package preview

import (
	"context"
	"strings"

	"github.com/curator-app/curator/internal/database"
	"github.com/curator-app/curator/internal/instances"
	"github.com/curator-app/curator/internal/logging"
)

// Reprober re-runs classification over clips whose preview is still marked
// ungenerated, persisting positives. Upstreams generate previews lazily, so
// a clip probed too early flips once the media exists.
type Reprober struct {
	db       *database.DB
	registry *instances.Registry
	prober   *Prober
}

// NewReprober wires the re-probe flow.
func NewReprober(db *database.DB, registry *instances.Registry, prober *Prober) *Reprober {
	return &Reprober{db: db, registry: registry, prober: prober}
}

// Run probes ungenerated clips. instanceID limits the pass to one upstream;
// empty means all. Returns how many clips flipped to generated.
func (r *Reprober) Run(ctx context.Context, instanceID string) (int, error) {
	var flipped int
	for _, entry := range r.registry.All() {
		if instanceID != "" && entry.Instance.ID != instanceID {
			continue
		}

		clips, err := r.db.UngeneratedClipPreviews(ctx, entry.Instance.ID)
		if err != nil {
			return flipped, err
		}
		if len(clips) == 0 {
			continue
		}

		urls := make([]string, 0, len(clips))
		byURL := make(map[string][]int)
		for i := range clips {
			if clips[i].PreviewPath == nil {
				continue
			}
			u := absoluteURL(entry.Instance.BaseURL, *clips[i].PreviewPath)
			if _, seen := byURL[u]; !seen {
				urls = append(urls, u)
			}
			byURL[u] = append(byURL[u], i)
		}

		results := r.prober.ClassifyAll(ctx, urls)
		for u, generated := range results {
			if !generated {
				continue
			}
			for _, i := range byURL[u] {
				if err := r.db.SetClipGenerated(ctx, clips[i].ID, clips[i].Instance, true); err != nil {
					return flipped, err
				}
				flipped++
			}
		}

		logging.Info().Str("instance", entry.Instance.ID).Int("probed", len(urls)).Int("generated", flipped).Msg("Clip preview re-probe finished")
	}
	return flipped, nil
}

// absoluteURL joins an upstream base with a preview path, passing through
// paths that are already absolute URLs.
func absoluteURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
