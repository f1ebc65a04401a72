package models

import "path/filepath"

// Track is a single library entry with its metadata references.
//
// Tracks are immutable once placed in a published snapshot; a reload
// replaces records rather than mutating them in place.
type Track struct {
	ID              string
	ProfileID       string
	FilePath        string
	Title           string
	AlbumID         string
	ArtistID        string
	GenreID         string
	DurationSeconds int
	Liked           bool
	CoverID         string
}

// Folder returns the directory containing the track's file, or the empty
// string when the track has no file path.
func (t Track) Folder() string {
	if t.FilePath == "" {
		return ""
	}
	return filepath.Dir(t.FilePath)
}

// Album is a grouping of tracks sharing a release.
type Album struct {
	ID       string
	Title    string
	ArtistID string
	Year     int
	CoverID  string
}

// Artist is a performing or composing artist.
type Artist struct {
	ID   string
	Name string
}

// Genre is a musical genre label.
type Genre struct {
	ID   string
	Name string
}

// Profile is a user profile scoping the library view and its blacklist.
type Profile struct {
	ID   string
	Name string
}
