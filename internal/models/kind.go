// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package models

import "regexp"

// Kind identifies a mirrored entity type. Values are the singular names used
// in exclusion rows and query builders; administrator restrictions use the
// plural form (see PluralKind).
type Kind string

const (
	KindScene     Kind = "scene"
	KindImage     Kind = "image"
	KindGallery   Kind = "gallery"
	KindPerformer Kind = "performer"
	KindStudio    Kind = "studio"
	KindTag       Kind = "tag"
	KindGroup     Kind = "group"
	KindClip      Kind = "clip"
)

// SyncOrder is the dependency order for full syncs: parents before the
// entities that reference them, scenes before clips.
var SyncOrder = []Kind{
	KindTag,
	KindStudio,
	KindPerformer,
	KindGroup,
	KindGallery,
	KindScene,
	KindClip,
	KindImage,
}

// kindPlurals maps singular kinds to the plural form used by
// UserContentRestriction rows and the upstream API.
var kindPlurals = map[Kind]string{
	KindScene:     "scenes",
	KindImage:     "images",
	KindGallery:   "galleries",
	KindPerformer: "performers",
	KindStudio:    "studios",
	KindTag:       "tags",
	KindGroup:     "groups",
	KindClip:      "clips",
}

// Plural returns the plural form of the kind, or the kind itself when
// unknown.
func (k Kind) Plural() string {
	if p, ok := kindPlurals[k]; ok {
		return p
	}
	return string(k)
}

// KindFromPlural resolves a plural entity-type name to its singular Kind.
// The second return is false for unknown names.
func KindFromPlural(plural string) (Kind, bool) {
	for k, p := range kindPlurals {
		if p == plural {
			return k, true
		}
	}
	return "", false
}

// ValidKind reports whether k names a mirrored entity type.
func ValidKind(k Kind) bool {
	_, ok := kindPlurals[k]
	return ok
}

// idPattern is the only shape of upstream ID accepted into the mirror.
// IDs are interpolated into batch SQL, so anything else is dropped.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidID reports whether an upstream ID is safe to mirror.
func ValidID(id string) bool {
	return id != "" && idPattern.MatchString(id)
}
