// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

/*
convert.go - Raw Upstream Shapes to Mirror Rows

Flattening rules:
  - First file wins for file metadata.
  - The first phash-typed fingerprint becomes the row phash; all
    fingerprint values are kept for merge detection.
  - Gallery titles fall back to the folder basename, then the first file
    basename.
  - Timestamps pass through raw; the sync engine normalizes cursors.
*/
package stash

import (
	"path"

	"github.com/curator-app/curator/internal/models"
)

// ToScene converts a raw upstream scene to a mirror row.
func ToScene(raw *RawScene, instance string) models.Scene {
	s := models.Scene{
		ID:       raw.ID,
		Instance: instance,
		Title:    raw.Title,
		Code:     raw.Code,
		Date:     raw.Date,
		Details:  raw.Details,
		Director: raw.Director,

		ScreenshotPath: raw.Paths.Screenshot,
		PreviewPath:    raw.Paths.Preview,
		SpritePath:     raw.Paths.Sprite,
		VTTPath:        raw.Paths.VTT,
		StreamPath:     raw.Paths.Stream,
		CaptionsPath:   raw.Paths.Caption,

		PlayCount:    raw.PlayCount,
		PlayDuration: raw.PlayDuration,
		OCounter:     raw.OCounter,

		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,

		PerformerIDs: refIDs(raw.Performers),
		TagIDs:       refIDs(raw.Tags),
		GalleryIDs:   refIDs(raw.Galleries),
	}
	if raw.Studio != nil {
		s.StudioID = &raw.Studio.ID
	}
	for _, g := range raw.Groups {
		s.GroupIDs = append(s.GroupIDs, g.Group.ID)
	}

	if len(raw.Files) > 0 {
		f := raw.Files[0]
		s.Path = &f.Path
		s.VideoCodec = f.VideoCodec
		s.Width = f.Width
		s.Height = f.Height
		s.Bitrate = f.BitRate
		s.Size = f.Size
		s.Duration = f.Duration
	}
	for _, f := range raw.Files {
		for _, fp := range f.Fingerprints {
			if fp.Type == "phash" && s.Phash == nil {
				v := fp.Value
				s.Phash = &v
			}
			s.Fingerprints = append(s.Fingerprints, fp.Value)
		}
	}
	return s
}

// ToImage converts a raw upstream image to a mirror row.
func ToImage(raw *RawImage, instance string) models.Image {
	im := models.Image{
		ID:           raw.ID,
		Instance:     instance,
		Title:        raw.Title,
		Date:         raw.Date,
		Details:      raw.Details,
		Photographer: raw.Photographer,

		ThumbnailPath: raw.Paths.Thumbnail,
		PreviewPath:   raw.Paths.Preview,
		ImagePath:     raw.Paths.Image,

		OCounter: raw.OCounter,

		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,

		PerformerIDs: refIDs(raw.Performers),
		TagIDs:       refIDs(raw.Tags),
		GalleryIDs:   refIDs(raw.Galleries),
	}
	if raw.Studio != nil {
		im.StudioID = &raw.Studio.ID
	}
	if len(raw.VisualFiles) > 0 {
		f := raw.VisualFiles[0]
		im.Path = &f.Path
		im.Width = f.Width
		im.Height = f.Height
		im.Size = f.Size
	}
	return im
}

// ToGallery converts a raw upstream gallery to a mirror row.
func ToGallery(raw *RawGallery, instance string) models.Gallery {
	g := models.Gallery{
		ID:           raw.ID,
		Instance:     instance,
		Title:        galleryTitle(raw),
		Date:         raw.Date,
		Details:      raw.Details,
		Photographer: raw.Photographer,
		ImageCount:   raw.ImageCount,

		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,

		PerformerIDs: refIDs(raw.Performers),
		TagIDs:       refIDs(raw.Tags),
		SceneIDs:     refIDs(raw.Scenes),
	}
	if raw.Studio != nil {
		g.StudioID = &raw.Studio.ID
	}
	if raw.Cover != nil {
		g.CoverImageID = &raw.Cover.ID
	}
	return g
}

// galleryTitle resolves a display title: explicit title, else the folder
// basename, else the first file basename.
func galleryTitle(raw *RawGallery) *string {
	if raw.Title != nil && *raw.Title != "" {
		return raw.Title
	}
	if raw.Folder != nil && raw.Folder.Path != "" {
		base := path.Base(raw.Folder.Path)
		return &base
	}
	if len(raw.Files) > 0 && raw.Files[0].Path != "" {
		base := path.Base(raw.Files[0].Path)
		return &base
	}
	return nil
}

// ToPerformer converts a raw upstream performer to a mirror row.
func ToPerformer(raw *RawPerformer, instance string) models.Performer {
	return models.Performer{
		ID:             raw.ID,
		Instance:       instance,
		Name:           raw.Name,
		Disambiguation: raw.Disambiguation,
		Gender:         raw.Gender,
		Birthdate:      raw.Birthdate,
		Country:        raw.Country,
		Details:        raw.Details,
		ImagePath:      raw.ImagePath,
		SceneCount:     raw.SceneCount,
		ImageCount:     raw.ImageCount,
		CreatedAt:      raw.CreatedAt,
		UpdatedAt:      raw.UpdatedAt,
		TagIDs:         refIDs(raw.Tags),
	}
}

// ToStudio converts a raw upstream studio to a mirror row.
func ToStudio(raw *RawStudio, instance string) models.Studio {
	s := models.Studio{
		ID:         raw.ID,
		Instance:   instance,
		Name:       raw.Name,
		URL:        raw.URL,
		Details:    raw.Details,
		ImagePath:  raw.ImagePath,
		SceneCount: raw.SceneCount,
		ImageCount: raw.ImageCount,
		CreatedAt:  raw.CreatedAt,
		UpdatedAt:  raw.UpdatedAt,
		TagIDs:     refIDs(raw.Tags),
	}
	if raw.ParentStudio != nil {
		s.ParentID = &raw.ParentStudio.ID
	}
	return s
}

// ToTag converts a raw upstream tag to a mirror row.
func ToTag(raw *RawTag, instance string) models.Tag {
	return models.Tag{
		ID:          raw.ID,
		Instance:    instance,
		Name:        raw.Name,
		Description: raw.Description,
		ImagePath:   raw.ImagePath,
		ParentIDs:   refIDs(raw.Parents),
		SceneCount:  raw.SceneCount,
		ImageCount:  raw.ImageCount,
		CreatedAt:   raw.CreatedAt,
		UpdatedAt:   raw.UpdatedAt,
	}
}

// ToGroup converts a raw upstream group to a mirror row.
func ToGroup(raw *RawGroup, instance string) models.Group {
	g := models.Group{
		ID:         raw.ID,
		Instance:   instance,
		Name:       raw.Name,
		Date:       raw.Date,
		Details:    raw.Details,
		FrontPath:  raw.FrontImagePath,
		BackPath:   raw.BackImagePath,
		SceneCount: raw.SceneCount,
		CreatedAt:  raw.CreatedAt,
		UpdatedAt:  raw.UpdatedAt,
		TagIDs:     refIDs(raw.Tags),
	}
	if raw.Studio != nil {
		g.StudioID = &raw.Studio.ID
	}
	for _, cg := range raw.ContainingGroups {
		g.ContainingGroupIDs = append(g.ContainingGroupIDs, cg.Group.ID)
	}
	return g
}

// ToClip converts a raw upstream scene marker to a mirror clip row.
func ToClip(raw *RawMarker, instance string) models.Clip {
	c := models.Clip{
		ID:         raw.ID,
		Instance:   instance,
		SceneID:    raw.Scene.ID,
		Title:      raw.Title,
		Seconds:    raw.Seconds,
		EndSeconds: raw.EndSeconds,

		PreviewPath:    raw.Paths.Preview,
		ScreenshotPath: raw.Paths.Screenshot,
		StreamPath:     raw.Paths.Stream,

		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,

		TagIDs: refIDs(raw.Tags),
	}
	if raw.PrimaryTag != nil {
		c.PrimaryTagID = &raw.PrimaryTag.ID
	}
	return c
}
