package models

import "context"

// TrackProvider fetches all track rows for a profile, with metadata
// references resolved.
type TrackProvider interface {
	GetAllTracksWithMetadata(ctx context.Context, profileID string) ([]Track, error)
}

// AlbumProvider fetches the full album table.
type AlbumProvider interface {
	GetAllAlbums(ctx context.Context) ([]Album, error)
}

// ArtistProvider fetches the full artist table.
type ArtistProvider interface {
	GetAllArtists(ctx context.Context) ([]Artist, error)
}

// GenreProvider fetches the full genre table.
type GenreProvider interface {
	GetAllGenres(ctx context.Context) ([]Genre, error)
}

// BlacklistProvider fetches the blacklisted folder paths for a profile.
type BlacklistProvider interface {
	GetBlacklistedDirectories(ctx context.Context, profileID string) ([]string, error)
}

// ProfileResolver resolves the currently active profile.
// Returns (nil, nil) when no profile is active.
type ProfileResolver interface {
	GetCurrentProfile(ctx context.Context) (*Profile, error)
}

// LibraryProvider bundles every provider the cache coordinator consumes.
type LibraryProvider interface {
	TrackProvider
	AlbumProvider
	ArtistProvider
	GenreProvider
	BlacklistProvider
	ProfileResolver
}
