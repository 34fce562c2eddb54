// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

/*
scan.go - Row Scanning

One scan function per kind, matching the kindSpec select order exactly.
The overlay columns trail the entity columns whenever a user is present;
scanners take withOverlay so list and anonymous paths share one code path.
*/
package query

import (
	"database/sql"

	json "github.com/goccy/go-json"

	"github.com/curator-app/curator/internal/models"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// overlayDest appends the trailing overlay destinations when present.
func overlayDest(dest []interface{}, withOverlay bool, rating **int, favorite **bool) []interface{} {
	if withOverlay {
		dest = append(dest, rating, favorite)
	}
	return dest
}

// decodeStringList parses a JSON-encoded TEXT column written by the sync
// batch layer. NULL and malformed values decode to nil.
func decodeStringList(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil
	}
	return out
}

func scanScene(row rowScanner, withOverlay bool) (*models.Scene, error) {
	var s models.Scene
	var fingerprints, createdAt, updatedAt sql.NullString

	dest := []interface{}{
		&s.ID, &s.Instance, &s.Title, &s.Code, &s.Date, &s.Details, &s.Director, &s.StudioID,
		&s.Path, &s.VideoCodec, &s.Width, &s.Height, &s.Bitrate, &s.Size, &s.Duration,
		&s.ScreenshotPath, &s.PreviewPath, &s.SpritePath, &s.VTTPath, &s.StreamPath, &s.CaptionsPath,
		&s.PlayCount, &s.PlayDuration, &s.OCounter, &s.Phash, &fingerprints,
		&createdAt, &updatedAt,
	}
	if err := row.Scan(overlayDest(dest, withOverlay, &s.Rating, &s.Favorite)...); err != nil {
		return nil, err
	}
	s.Fingerprints = decodeStringList(fingerprints)
	s.CreatedAt = createdAt.String
	s.UpdatedAt = updatedAt.String
	return &s, nil
}

func scanImage(row rowScanner, withOverlay bool) (*models.Image, error) {
	var i models.Image
	var createdAt, updatedAt sql.NullString

	dest := []interface{}{
		&i.ID, &i.Instance, &i.Title, &i.Date, &i.Details, &i.Photographer, &i.StudioID,
		&i.Path, &i.Width, &i.Height, &i.Size,
		&i.ThumbnailPath, &i.PreviewPath, &i.ImagePath, &i.OCounter,
		&createdAt, &updatedAt,
	}
	if err := row.Scan(overlayDest(dest, withOverlay, &i.Rating, &i.Favorite)...); err != nil {
		return nil, err
	}
	i.CreatedAt = createdAt.String
	i.UpdatedAt = updatedAt.String
	return &i, nil
}

func scanGallery(row rowScanner, withOverlay bool) (*models.Gallery, error) {
	var g models.Gallery
	var createdAt, updatedAt sql.NullString

	dest := []interface{}{
		&g.ID, &g.Instance, &g.Title, &g.Date, &g.Details, &g.Photographer, &g.StudioID,
		&g.CoverImageID, &g.ImageCount, &createdAt, &updatedAt,
	}
	if err := row.Scan(overlayDest(dest, withOverlay, &g.Rating, &g.Favorite)...); err != nil {
		return nil, err
	}
	g.CreatedAt = createdAt.String
	g.UpdatedAt = updatedAt.String
	return &g, nil
}

func scanPerformer(row rowScanner, withOverlay bool) (*models.Performer, error) {
	var p models.Performer
	var createdAt, updatedAt sql.NullString

	dest := []interface{}{
		&p.ID, &p.Instance, &p.Name, &p.Disambiguation, &p.Gender, &p.Birthdate, &p.Country,
		&p.Details, &p.ImagePath, &p.SceneCount, &p.ImageCount, &p.GalleryImageCount,
		&createdAt, &updatedAt,
	}
	if err := row.Scan(overlayDest(dest, withOverlay, &p.Rating, &p.Favorite)...); err != nil {
		return nil, err
	}
	p.CreatedAt = createdAt.String
	p.UpdatedAt = updatedAt.String
	return &p, nil
}

func scanStudio(row rowScanner, withOverlay bool) (*models.Studio, error) {
	var st models.Studio
	var createdAt, updatedAt sql.NullString

	dest := []interface{}{
		&st.ID, &st.Instance, &st.Name, &st.URL, &st.Details, &st.ParentID, &st.ImagePath,
		&st.SceneCount, &st.ImageCount, &st.GalleryImageCount,
		&createdAt, &updatedAt,
	}
	if err := row.Scan(overlayDest(dest, withOverlay, &st.Rating, &st.Favorite)...); err != nil {
		return nil, err
	}
	st.CreatedAt = createdAt.String
	st.UpdatedAt = updatedAt.String
	return &st, nil
}

func scanTag(row rowScanner, withOverlay bool) (*models.Tag, error) {
	var t models.Tag
	var createdAt, updatedAt sql.NullString
	// Tags have no rating overlay field; the column is still selected and
	// discarded so all kinds share one select shape.
	var rating *int

	dest := []interface{}{
		&t.ID, &t.Instance, &t.Name, &t.Description, &t.ImagePath,
		&t.SceneCount, &t.ImageCount, &t.SceneCountViaPerformer, &t.GalleryImageCount,
		&createdAt, &updatedAt,
	}
	if err := row.Scan(overlayDest(dest, withOverlay, &rating, &t.Favorite)...); err != nil {
		return nil, err
	}
	t.CreatedAt = createdAt.String
	t.UpdatedAt = updatedAt.String
	return &t, nil
}

func scanGroup(row rowScanner, withOverlay bool) (*models.Group, error) {
	var g models.Group
	var createdAt, updatedAt sql.NullString

	dest := []interface{}{
		&g.ID, &g.Instance, &g.Name, &g.Date, &g.Details, &g.StudioID,
		&g.FrontPath, &g.BackPath, &g.SceneCount,
		&createdAt, &updatedAt,
	}
	if err := row.Scan(overlayDest(dest, withOverlay, &g.Rating, &g.Favorite)...); err != nil {
		return nil, err
	}
	g.CreatedAt = createdAt.String
	g.UpdatedAt = updatedAt.String
	return &g, nil
}

func scanClip(row rowScanner, withOverlay bool) (*models.Clip, error) {
	var c models.Clip
	var createdAt, updatedAt sql.NullString
	// Clips carry no overlay fields of their own.
	var rating *int
	var favorite *bool

	dest := []interface{}{
		&c.ID, &c.Instance, &c.SceneID, &c.Title, &c.Seconds, &c.EndSeconds, &c.PrimaryTagID,
		&c.PreviewPath, &c.ScreenshotPath, &c.StreamPath, &c.IsGenerated,
		&createdAt, &updatedAt,
	}
	if err := row.Scan(overlayDest(dest, withOverlay, &rating, &favorite)...); err != nil {
		return nil, err
	}
	c.CreatedAt = createdAt.String
	c.UpdatedAt = updatedAt.String
	return &c, nil
}
