// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package models

import "time"

// Image is a mirrored image row. Studio, Date, Photographer, and Details are
// inheritable: the derivation pass fills them from the first containing
// gallery when they are null.
type Image struct {
	ID       string `json:"id"`
	Instance string `json:"instance"`

	Title        *string `json:"title,omitempty"`
	Date         *string `json:"date,omitempty"`
	Details      *string `json:"details,omitempty"`
	Photographer *string `json:"photographer,omitempty"`
	StudioID     *string `json:"studioId,omitempty"`

	Path   *string `json:"path,omitempty"`
	Width  *int    `json:"width,omitempty"`
	Height *int    `json:"height,omitempty"`
	Size   *int64  `json:"size,omitempty"`

	ThumbnailPath *string `json:"thumbnailPath,omitempty"`
	PreviewPath   *string `json:"previewPath,omitempty"`
	ImagePath     *string `json:"imagePath,omitempty"`

	OCounter *int `json:"oCounter,omitempty"`

	CreatedAt string     `json:"createdAt,omitempty"`
	UpdatedAt string     `json:"updatedAt,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`

	PerformerIDs []string `json:"performerIds,omitempty"`
	TagIDs       []string `json:"tagIds,omitempty"`
	GalleryIDs   []string `json:"galleryIds,omitempty"`

	Studio     *EntityRef  `json:"studio,omitempty"`
	Performers []EntityRef `json:"performers,omitempty"`
	Tags       []EntityRef `json:"tags,omitempty"`
	Galleries  []EntityRef `json:"galleries,omitempty"`

	Rating   *int  `json:"rating,omitempty"`
	Favorite *bool `json:"favorite,omitempty"`
}

// Gallery is a mirrored gallery row. Title falls back to the folder or file
// basename when the upstream leaves it empty.
type Gallery struct {
	ID       string `json:"id"`
	Instance string `json:"instance"`

	Title        *string `json:"title,omitempty"`
	Date         *string `json:"date,omitempty"`
	Details      *string `json:"details,omitempty"`
	Photographer *string `json:"photographer,omitempty"`
	StudioID     *string `json:"studioId,omitempty"`
	CoverImageID *string `json:"coverImageId,omitempty"`

	ImageCount int `json:"imageCount"`

	CreatedAt string     `json:"createdAt,omitempty"`
	UpdatedAt string     `json:"updatedAt,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`

	PerformerIDs []string `json:"performerIds,omitempty"`
	TagIDs       []string `json:"tagIds,omitempty"`
	SceneIDs     []string `json:"sceneIds,omitempty"`

	Studio     *EntityRef  `json:"studio,omitempty"`
	Performers []EntityRef `json:"performers,omitempty"`
	Tags       []EntityRef `json:"tags,omitempty"`

	Rating   *int  `json:"rating,omitempty"`
	Favorite *bool `json:"favorite,omitempty"`
}

// Performer is a mirrored performer row.
type Performer struct {
	ID       string `json:"id"`
	Instance string `json:"instance"`

	Name           string  `json:"name"`
	Disambiguation *string `json:"disambiguation,omitempty"`
	Gender         *string `json:"gender,omitempty"`
	Birthdate      *string `json:"birthdate,omitempty"`
	Country        *string `json:"country,omitempty"`
	Details        *string `json:"details,omitempty"`
	ImagePath      *string `json:"imagePath,omitempty"`

	SceneCount int `json:"sceneCount"`
	ImageCount int `json:"imageCount"`
	// GalleryImageCount is the derived count of distinct images reachable
	// directly or through a gallery the performer appears in.
	GalleryImageCount int `json:"galleryImageCount"`

	CreatedAt string     `json:"createdAt,omitempty"`
	UpdatedAt string     `json:"updatedAt,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`

	TagIDs []string    `json:"tagIds,omitempty"`
	Tags   []EntityRef `json:"tags,omitempty"`

	Rating   *int  `json:"rating,omitempty"`
	Favorite *bool `json:"favorite,omitempty"`
}

// Studio is a mirrored studio row with a single-parent hierarchy pointer.
type Studio struct {
	ID       string `json:"id"`
	Instance string `json:"instance"`

	Name      string  `json:"name"`
	URL       *string `json:"url,omitempty"`
	Details   *string `json:"details,omitempty"`
	ParentID  *string `json:"parentId,omitempty"`
	ImagePath *string `json:"imagePath,omitempty"`

	SceneCount        int `json:"sceneCount"`
	ImageCount        int `json:"imageCount"`
	GalleryImageCount int `json:"galleryImageCount"`

	CreatedAt string     `json:"createdAt,omitempty"`
	UpdatedAt string     `json:"updatedAt,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`

	TagIDs []string    `json:"tagIds,omitempty"`
	Tags   []EntityRef `json:"tags,omitempty"`

	Rating   *int  `json:"rating,omitempty"`
	Favorite *bool `json:"favorite,omitempty"`
}

// Tag is a mirrored tag row. Tags form a multi-parent DAG via ParentIDs;
// traversals must carry a visited set because upstream data can contain
// cycles.
type Tag struct {
	ID       string `json:"id"`
	Instance string `json:"instance"`

	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	ImagePath   *string `json:"imagePath,omitempty"`

	ParentIDs []string `json:"parentIds,omitempty"`

	SceneCount int `json:"sceneCount"`
	ImageCount int `json:"imageCount"`
	// SceneCountViaPerformer counts distinct scenes whose performers carry
	// this tag; derived post-sync.
	SceneCountViaPerformer int `json:"sceneCountViaPerformer"`
	GalleryImageCount      int `json:"galleryImageCount"`

	CreatedAt string     `json:"createdAt,omitempty"`
	UpdatedAt string     `json:"updatedAt,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`

	Favorite *bool `json:"favorite,omitempty"`
}

// Group is a mirrored group row with a single-parent hierarchy via
// ContainingGroupIDs.
type Group struct {
	ID       string `json:"id"`
	Instance string `json:"instance"`

	Name      string  `json:"name"`
	Date      *string `json:"date,omitempty"`
	Details   *string `json:"details,omitempty"`
	StudioID  *string `json:"studioId,omitempty"`
	FrontPath *string `json:"frontPath,omitempty"`
	BackPath  *string `json:"backPath,omitempty"`

	ContainingGroupIDs []string `json:"containingGroupIds,omitempty"`

	SceneCount int `json:"sceneCount"`

	CreatedAt string     `json:"createdAt,omitempty"`
	UpdatedAt string     `json:"updatedAt,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`

	TagIDs []string    `json:"tagIds,omitempty"`
	Tags   []EntityRef `json:"tags,omitempty"`

	Rating   *int  `json:"rating,omitempty"`
	Favorite *bool `json:"favorite,omitempty"`
}
