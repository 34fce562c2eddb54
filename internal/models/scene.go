// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package models

import "time"

// Scene is a mirrored scene row. The mirror key is (ID, Instance); an empty
// Instance marks a legacy single-instance row that matches every instance
// filter.
type Scene struct {
	ID       string `json:"id"`
	Instance string `json:"instance"`

	Title    *string `json:"title,omitempty"`
	Code     *string `json:"code,omitempty"`
	Date     *string `json:"date,omitempty"`
	Details  *string `json:"details,omitempty"`
	Director *string `json:"director,omitempty"`
	StudioID *string `json:"studioId,omitempty"`

	// First-file metadata, flattened from the upstream file list.
	Path       *string  `json:"path,omitempty"`
	VideoCodec *string  `json:"videoCodec,omitempty"`
	Width      *int     `json:"width,omitempty"`
	Height     *int     `json:"height,omitempty"`
	Bitrate    *int64   `json:"bitrate,omitempty"`
	Size       *int64   `json:"size,omitempty"`
	Duration   *float64 `json:"duration,omitempty"`

	// Derived media paths, rewritten to the local proxy form before they
	// leave the process.
	ScreenshotPath *string `json:"screenshotPath,omitempty"`
	PreviewPath    *string `json:"previewPath,omitempty"`
	SpritePath     *string `json:"spritePath,omitempty"`
	VTTPath        *string `json:"vttPath,omitempty"`
	StreamPath     *string `json:"streamPath,omitempty"`
	CaptionsPath   *string `json:"captionsPath,omitempty"`

	PlayCount    *int     `json:"playCount,omitempty"`
	PlayDuration *float64 `json:"playDuration,omitempty"`
	OCounter     *int     `json:"oCounter,omitempty"`

	// Phash is the first perceptual-hash fingerprint; Fingerprints carries
	// every fingerprint for merge detection.
	Phash        *string  `json:"phash,omitempty"`
	Fingerprints []string `json:"fingerprints,omitempty"`

	// Raw upstream timestamps. UpdatedAt keeps the verbatim upstream string
	// because incremental cursors are the maximum raw value observed.
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`

	DeletedAt *time.Time `json:"deletedAt,omitempty"`

	// InheritedTagIDs is materialized by the derivation pass: tags carried
	// via performers, studio, and groups, minus the scene's direct tags.
	InheritedTagIDs []string `json:"inheritedTagIds,omitempty"`

	// Relation IDs captured at sync time; persisted as junction rows.
	PerformerIDs []string `json:"performerIds,omitempty"`
	TagIDs       []string `json:"tagIds,omitempty"`
	GroupIDs     []string `json:"groupIds,omitempty"`
	GalleryIDs   []string `json:"galleryIds,omitempty"`

	// Hydrated relations for list responses.
	Studio     *EntityRef  `json:"studio,omitempty"`
	Performers []EntityRef `json:"performers,omitempty"`
	Tags       []EntityRef `json:"tags,omitempty"`
	Groups     []EntityRef `json:"groups,omitempty"`
	Galleries  []EntityRef `json:"galleries,omitempty"`

	// User overlay, joined per request.
	Rating   *int  `json:"rating,omitempty"`
	Favorite *bool `json:"favorite,omitempty"`
}

// Clip is a scene marker: a tagged sub-range of a scene.
type Clip struct {
	ID       string `json:"id"`
	Instance string `json:"instance"`

	SceneID      string   `json:"sceneId"`
	Title        *string  `json:"title,omitempty"`
	Seconds      float64  `json:"seconds"`
	EndSeconds   *float64 `json:"endSeconds,omitempty"`
	PrimaryTagID *string  `json:"primaryTagId,omitempty"`

	PreviewPath    *string `json:"previewPath,omitempty"`
	ScreenshotPath *string `json:"screenshotPath,omitempty"`
	StreamPath     *string `json:"streamPath,omitempty"`

	// IsGenerated is set by the preview prober: true when the upstream has a
	// real generated preview rather than the placeholder artifact.
	IsGenerated *bool `json:"isGenerated,omitempty"`

	CreatedAt string     `json:"createdAt,omitempty"`
	UpdatedAt string     `json:"updatedAt,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`

	TagIDs []string    `json:"tagIds,omitempty"`
	Tags   []EntityRef `json:"tags,omitempty"`
}

// EntityRef is the lightweight related-entity shape used by hydration.
type EntityRef struct {
	ID        string  `json:"id"`
	Instance  string  `json:"instance"`
	Name      string  `json:"name"`
	ImagePath *string `json:"imagePath,omitempty"`
}

// RefKey returns the composite map key used when stitching hydrated
// relations onto primaries.
func RefKey(id, instance string) string {
	return id + ":" + instance
}
