// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package exclusion

import (
	"sort"

	"github.com/curator-app/curator/internal/models"
)

// exclusionSet accumulates rows for one user. An entity reached through
// several reasons keeps the first one recorded; callers add in precedence
// order (restricted, hidden, cascade, empty).
type exclusionSet struct {
	userID string
	rows   map[string]models.ExcludedEntity
}

func newExclusionSet(userID string) *exclusionSet {
	return &exclusionSet{userID: userID, rows: make(map[string]models.ExcludedEntity)}
}

func setKey(kind models.Kind, entityID, instance string) string {
	return string(kind) + "\x00" + entityID + "\x00" + instance
}

// add records one row; returns false when the entity is already excluded
// under this or a covering scope.
func (s *exclusionSet) add(kind models.Kind, entityID, instance string, reason models.ExclusionReason) bool {
	if s.contains(kind, entityID, instance) {
		return false
	}
	s.rows[setKey(kind, entityID, instance)] = models.ExcludedEntity{
		UserID:   s.userID,
		Kind:     kind,
		EntityID: entityID,
		Instance: instance,
		Reason:   reason,
	}
	return true
}

// contains reports whether the entity is excluded in the given scope. A
// global row (empty instance) covers every instance-scoped lookup.
func (s *exclusionSet) contains(kind models.Kind, entityID, instance string) bool {
	if _, ok := s.rows[setKey(kind, entityID, instance)]; ok {
		return true
	}
	if instance != "" {
		_, ok := s.rows[setKey(kind, entityID, "")]
		return ok
	}
	return false
}

// byKind returns the excluded (id, instance) pairs of one kind.
func (s *exclusionSet) byKind(kind models.Kind) []entityRef {
	var refs []entityRef
	for _, row := range s.rows {
		if row.Kind == kind {
			refs = append(refs, entityRef{ID: row.EntityID, Instance: row.Instance})
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].ID != refs[j].ID {
			return refs[i].ID < refs[j].ID
		}
		return refs[i].Instance < refs[j].Instance
	})
	return refs
}

// sorted returns the accumulated rows in a deterministic order for the
// commit phase.
func (s *exclusionSet) sorted() []models.ExcludedEntity {
	rows := make([]models.ExcludedEntity, 0, len(s.rows))
	for _, row := range s.rows {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Kind != rows[j].Kind {
			return rows[i].Kind < rows[j].Kind
		}
		if rows[i].EntityID != rows[j].EntityID {
			return rows[i].EntityID < rows[j].EntityID
		}
		return rows[i].Instance < rows[j].Instance
	})
	return rows
}

// entityRef is one (id, instance) pair in the mirror. An empty instance is
// the global scope.
type entityRef struct {
	ID       string
	Instance string
}
