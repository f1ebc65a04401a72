// Package models defines domain entities and provider interfaces for the quaver library cache.
//
// The package contains two categories of types:
//
// 1. Library records: immutable rows loaded from the backing store
//   - [Track] : file path, references, duration, liked flag, cover reference
//   - [Album] / [Artist] / [Genre] : metadata tables referenced by tracks
//   - [Profile] : the user profile scoping tracks and blacklists
//
// 2. Provider interfaces: the narrow seams through which the cache
// coordinator reaches the backing store ([TrackProvider], [AlbumProvider],
// [ArtistProvider], [GenreProvider], [BlacklistProvider], [ProfileResolver]).
// [LibraryProvider] bundles all of them for convenience.
package models
