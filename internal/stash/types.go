// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

/*
types.go - Raw Upstream GraphQL Shapes

These structs mirror the upstream wire format verbatim. IDs stay strings and
timestamps stay raw strings: the sync engine owns timezone normalization,
and the incremental cursor is the maximum raw updated_at observed.
Conversion to mirror rows happens in convert.go.
*/
package stash

// IDRef is a bare id reference.
type IDRef struct {
	ID string `json:"id"`
}

// NamedRef is an id plus display fields, used where the upstream inlines a
// related entity.
type NamedRef struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	ImagePath *string `json:"image_path"`
}

// RawFile is one media file attached to a scene or image. Only the first
// file is flattened into the mirror row.
type RawFile struct {
	Path       string   `json:"path"`
	VideoCodec *string  `json:"video_codec"`
	Width      *int     `json:"width"`
	Height     *int     `json:"height"`
	BitRate    *int64   `json:"bit_rate"`
	Size       *int64   `json:"size"`
	Duration   *float64 `json:"duration"`
	// Fingerprints carries perceptual hashes; the first phash-typed entry
	// becomes the mirror row's phash.
	Fingerprints []RawFingerprint `json:"fingerprints"`
}

// RawFingerprint is one file fingerprint. Type "phash" drives merge
// detection.
type RawFingerprint struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// RawScenePaths are the upstream-derived media URLs for a scene.
type RawScenePaths struct {
	Screenshot *string `json:"screenshot"`
	Preview    *string `json:"preview"`
	Sprite     *string `json:"sprite"`
	VTT        *string `json:"vtt"`
	Stream     *string `json:"stream"`
	Caption    *string `json:"caption"`
}

// RawScene is the upstream scene shape.
type RawScene struct {
	ID       string  `json:"id"`
	Title    *string `json:"title"`
	Code     *string `json:"code"`
	Date     *string `json:"date"`
	Details  *string `json:"details"`
	Director *string `json:"director"`

	Studio     *IDRef  `json:"studio"`
	Performers []IDRef `json:"performers"`
	Tags       []IDRef `json:"tags"`
	Groups     []struct {
		Group IDRef `json:"group"`
	} `json:"groups"`
	Galleries []IDRef `json:"galleries"`

	Files []RawFile     `json:"files"`
	Paths RawScenePaths `json:"paths"`

	PlayCount    *int     `json:"play_count"`
	PlayDuration *float64 `json:"play_duration"`
	OCounter     *int     `json:"o_counter"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// RawImagePaths are the upstream-derived media URLs for an image.
type RawImagePaths struct {
	Thumbnail *string `json:"thumbnail"`
	Preview   *string `json:"preview"`
	Image     *string `json:"image"`
}

// RawImage is the upstream image shape.
type RawImage struct {
	ID           string  `json:"id"`
	Title        *string `json:"title"`
	Date         *string `json:"date"`
	Details      *string `json:"details"`
	Photographer *string `json:"photographer"`

	Studio     *IDRef  `json:"studio"`
	Performers []IDRef `json:"performers"`
	Tags       []IDRef `json:"tags"`
	Galleries  []IDRef `json:"galleries"`

	VisualFiles []RawFile     `json:"visual_files"`
	Paths       RawImagePaths `json:"paths"`

	OCounter *int `json:"o_counter"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// RawGallery is the upstream gallery shape. A nil Title falls back to the
// folder basename, then the first file basename.
type RawGallery struct {
	ID           string  `json:"id"`
	Title        *string `json:"title"`
	Date         *string `json:"date"`
	Details      *string `json:"details"`
	Photographer *string `json:"photographer"`

	Studio *IDRef `json:"studio"`
	Folder *struct {
		Path string `json:"path"`
	} `json:"folder"`
	Files []struct {
		Path string `json:"path"`
	} `json:"files"`

	Cover *IDRef `json:"cover"`

	Performers []IDRef `json:"performers"`
	Tags       []IDRef `json:"tags"`
	Scenes     []IDRef `json:"scenes"`

	ImageCount int `json:"image_count"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// RawPerformer is the upstream performer shape.
type RawPerformer struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Disambiguation *string `json:"disambiguation"`
	Gender         *string `json:"gender"`
	Birthdate      *string `json:"birthdate"`
	Country        *string `json:"country"`
	Details        *string `json:"details"`
	ImagePath      *string `json:"image_path"`

	Tags []IDRef `json:"tags"`

	SceneCount int `json:"scene_count"`
	ImageCount int `json:"image_count"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// RawStudio is the upstream studio shape.
type RawStudio struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	URL       *string `json:"url"`
	Details   *string `json:"details"`
	ImagePath *string `json:"image_path"`

	ParentStudio *IDRef  `json:"parent_studio"`
	Tags         []IDRef `json:"tags"`

	SceneCount int `json:"scene_count"`
	ImageCount int `json:"image_count"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// RawTag is the upstream tag shape. Parents form a multi-parent DAG.
type RawTag struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	ImagePath   *string `json:"image_path"`

	Parents []IDRef `json:"parents"`

	SceneCount int `json:"scene_count"`
	ImageCount int `json:"image_count"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// RawGroup is the upstream group shape.
type RawGroup struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Date    *string `json:"date"`
	Details *string `json:"details"`

	Studio          *IDRef  `json:"studio"`
	FrontImagePath  *string `json:"front_image_path"`
	BackImagePath   *string `json:"back_image_path"`
	Tags            []IDRef `json:"tags"`
	ContainingGroups []struct {
		Group IDRef `json:"group"`
	} `json:"containing_groups"`

	SceneCount int `json:"scene_count"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// RawMarkerPaths are the upstream-derived media URLs for a scene marker.
type RawMarkerPaths struct {
	Preview    *string `json:"preview"`
	Screenshot *string `json:"screenshot"`
	Stream     *string `json:"stream"`
}

// RawMarker is the upstream scene-marker shape, mirrored as a clip.
type RawMarker struct {
	ID         string   `json:"id"`
	Title      *string  `json:"title"`
	Seconds    float64  `json:"seconds"`
	EndSeconds *float64 `json:"end_seconds"`

	Scene      IDRef  `json:"scene"`
	PrimaryTag *IDRef `json:"primary_tag"`
	Tags       []IDRef `json:"tags"`

	Paths RawMarkerPaths `json:"paths"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}
