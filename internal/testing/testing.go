// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/quaverd/quaver/internal/models"
)

// MockLibrary is a configurable test double for [models.LibraryProvider].
//
// Unset hooks fall back to returning the struct's data fields. TrackFetches
// counts GetAllTracksWithMetadata calls for single-flight assertions.
type MockLibrary struct {
	Profile   *models.Profile
	Tracks    []models.Track
	Albums    []models.Album
	Artists   []models.Artist
	Genres    []models.Genre
	Blacklist []string

	TracksFn    func(ctx context.Context, profileID string) ([]models.Track, error)
	AlbumsFn    func(ctx context.Context) ([]models.Album, error)
	ArtistsFn   func(ctx context.Context) ([]models.Artist, error)
	GenresFn    func(ctx context.Context) ([]models.Genre, error)
	BlacklistFn func(ctx context.Context, profileID string) ([]string, error)
	ProfileFn   func(ctx context.Context) (*models.Profile, error)

	TrackFetches atomic.Int32
}

func (m *MockLibrary) GetAllTracksWithMetadata(ctx context.Context, profileID string) ([]models.Track, error) {
	m.TrackFetches.Add(1)
	if m.TracksFn != nil {
		return m.TracksFn(ctx, profileID)
	}
	return m.Tracks, nil
}

func (m *MockLibrary) GetAllAlbums(ctx context.Context) ([]models.Album, error) {
	if m.AlbumsFn != nil {
		return m.AlbumsFn(ctx)
	}
	return m.Albums, nil
}

func (m *MockLibrary) GetAllArtists(ctx context.Context) ([]models.Artist, error) {
	if m.ArtistsFn != nil {
		return m.ArtistsFn(ctx)
	}
	return m.Artists, nil
}

func (m *MockLibrary) GetAllGenres(ctx context.Context) ([]models.Genre, error) {
	if m.GenresFn != nil {
		return m.GenresFn(ctx)
	}
	return m.Genres, nil
}

func (m *MockLibrary) GetBlacklistedDirectories(ctx context.Context, profileID string) ([]string, error) {
	if m.BlacklistFn != nil {
		return m.BlacklistFn(ctx, profileID)
	}
	return m.Blacklist, nil
}

func (m *MockLibrary) GetCurrentProfile(ctx context.Context) (*models.Profile, error) {
	if m.ProfileFn != nil {
		return m.ProfileFn(ctx)
	}
	return m.Profile, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}
