// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

// Package instances holds the per-process registry of configured upstream
// instances. Instance rows live in the store; the registry is loaded at
// startup and mutated only through Put and Remove when an administrator
// changes the instance set.
package instances

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/curator-app/curator/internal/config"
	"github.com/curator-app/curator/internal/database"
	"github.com/curator-app/curator/internal/logging"
	"github.com/curator-app/curator/internal/models"
	"github.com/curator-app/curator/internal/stash"
)

// Registry maps instance ids to their config and upstream client.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// Entry is one registered upstream instance.
type Entry struct {
	Instance models.Instance
	Client   *stash.Client
}

// New returns an empty registry, populated through Put.
func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Load seeds configured instances into the store, then builds the registry
// from the store's instance rows.
func Load(ctx context.Context, db *database.DB, cfg *config.Config) (*Registry, error) {
	for _, seed := range cfg.Instances {
		inst := models.Instance{
			ID:       seed.ID,
			Name:     seed.Name,
			BaseURL:  seed.BaseURL,
			APIKey:   seed.APIKey,
			Enabled:  seed.Enabled,
			Priority: seed.Priority,
		}
		if err := db.UpsertInstance(ctx, &inst); err != nil {
			return nil, fmt.Errorf("failed to seed instance %s: %w", seed.ID, err)
		}
	}

	rows, err := db.ListInstances(ctx)
	if err != nil {
		return nil, err
	}

	reg := &Registry{entries: make(map[string]*Entry, len(rows))}
	for _, inst := range rows {
		if !inst.Enabled {
			logging.Info().Str("instance", inst.ID).Msg("Skipping disabled instance")
			continue
		}
		reg.entries[inst.ID] = &Entry{
			Instance: inst,
			Client:   stash.NewClient(inst, &cfg.Upstream),
		}
	}

	logging.Info().Int("count", len(reg.entries)).Msg("Instance registry loaded")
	return reg, nil
}

// Get returns the entry for one instance id.
func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// All returns every enabled entry ordered by priority (highest first), then
// id for determinism.
func (r *Registry) All() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Instance.Priority != entries[j].Instance.Priority {
			return entries[i].Instance.Priority > entries[j].Instance.Priority
		}
		return entries[i].Instance.ID < entries[j].Instance.ID
	})
	return entries
}

// Put registers or replaces an instance and its client. A disabled instance
// is removed instead, so Get and All only ever see enabled entries.
func (r *Registry) Put(inst models.Instance, upstream *config.UpstreamConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !inst.Enabled {
		delete(r.entries, inst.ID)
		return
	}
	r.entries[inst.ID] = &Entry{
		Instance: inst,
		Client:   stash.NewClient(inst, upstream),
	}
}

// Remove drops an instance from the registry.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// IDs returns the enabled instance ids in priority order.
func (r *Registry) IDs() []string {
	entries := r.All()
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.Instance.ID
	}
	return ids
}
