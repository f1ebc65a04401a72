package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/quaverd/quaver/internal/models"
	"github.com/quaverd/quaver/internal/shared"
)

// Store implements the library provider interfaces over a [Manager].
//
// Every query goes through CreateCommand so a dropped connection is
// reopened transparently and NULL columns bind/scan explicitly.
type Store struct {
	manager *Manager
	logger  *log.Logger
}

// NewStore creates a Store backed by the given manager.
func NewStore(m *Manager, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{manager: m, logger: logger}
}

// GetAllTracksWithMetadata returns every track row for the profile.
func (s *Store) GetAllTracksWithMetadata(ctx context.Context, profileID string) ([]models.Track, error) {
	cmd, err := s.manager.CreateCommand(ctx, `
		SELECT id, profile_id, file_path, title, album_id, artist_id, genre_id, duration_seconds, liked, cover_id
		FROM tracks
		WHERE profile_id = ?
	`, profileID)
	if err != nil {
		return nil, err
	}

	rows, err := cmd.Query(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.Track
	for rows.Next() {
		var t models.Track
		var album, artist, genre, cover sql.NullString
		if err := rows.Scan(&t.ID, &t.ProfileID, &t.FilePath, &t.Title, &album, &artist, &genre, &t.DurationSeconds, &t.Liked, &cover); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		t.AlbumID = album.String
		t.ArtistID = artist.String
		t.GenreID = genre.String
		t.CoverID = cover.String
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// GetAllAlbums returns the full album table.
func (s *Store) GetAllAlbums(ctx context.Context) ([]models.Album, error) {
	cmd, err := s.manager.CreateCommand(ctx, "SELECT id, title, artist_id, year, cover_id FROM albums")
	if err != nil {
		return nil, err
	}

	rows, err := cmd.Query(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	var albums []models.Album
	for rows.Next() {
		var a models.Album
		var artist, cover sql.NullString
		var year sql.NullInt64
		if err := rows.Scan(&a.ID, &a.Title, &artist, &year, &cover); err != nil {
			return nil, fmt.Errorf("failed to scan album: %w", err)
		}
		a.ArtistID = artist.String
		a.Year = int(year.Int64)
		a.CoverID = cover.String
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

// GetAllArtists returns the full artist table.
func (s *Store) GetAllArtists(ctx context.Context) ([]models.Artist, error) {
	return scanNamed[models.Artist](ctx, s, "SELECT id, name FROM artists", func(id, name string) models.Artist {
		return models.Artist{ID: id, Name: name}
	})
}

// GetAllGenres returns the full genre table.
func (s *Store) GetAllGenres(ctx context.Context) ([]models.Genre, error) {
	return scanNamed[models.Genre](ctx, s, "SELECT id, name FROM genres", func(id, name string) models.Genre {
		return models.Genre{ID: id, Name: name}
	})
}

func scanNamed[T any](ctx context.Context, s *Store, query string, mk func(id, name string) T) ([]T, error) {
	cmd, err := s.manager.CreateCommand(ctx, query)
	if err != nil {
		return nil, err
	}

	rows, err := cmd.Query(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, mk(id, name))
	}
	return out, rows.Err()
}

// GetBlacklistedDirectories returns the excluded folder paths for a profile.
func (s *Store) GetBlacklistedDirectories(ctx context.Context, profileID string) ([]string, error) {
	cmd, err := s.manager.CreateCommand(ctx, "SELECT path FROM blacklisted_directories WHERE profile_id = ?", profileID)
	if err != nil {
		return nil, err
	}

	rows, err := cmd.Query(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query blacklist: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan blacklist path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// GetCurrentProfile returns the active profile, or (nil, nil) when none is marked active.
func (s *Store) GetCurrentProfile(ctx context.Context) (*models.Profile, error) {
	cmd, err := s.manager.CreateCommand(ctx, "SELECT id, name FROM profiles WHERE is_active = 1 LIMIT 1")
	if err != nil {
		return nil, err
	}

	var p models.Profile
	if err := cmd.QueryRow(ctx).Scan(&p.ID, &p.Name); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	return &p, nil
}

// SaveProfile inserts a profile, optionally marking it active.
func (s *Store) SaveProfile(ctx context.Context, name string, active bool) (*models.Profile, error) {
	p := models.Profile{ID: shared.GenerateID(), Name: name}
	cmd, err := s.manager.CreateCommand(ctx, "INSERT INTO profiles (id, name, is_active) VALUES (?, ?, ?)", p.ID, p.Name, active)
	if err != nil {
		return nil, err
	}
	if _, err := cmd.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to insert profile: %w", err)
	}
	return &p, nil
}

// SaveTrack inserts a track row. Empty reference fields bind as NULL via
// nil pointers so foreign keys stay honest.
func (s *Store) SaveTrack(ctx context.Context, t models.Track) (string, error) {
	if t.ID == "" {
		t.ID = shared.GenerateID()
	}
	cmd, err := s.manager.CreateCommand(ctx, `
		INSERT INTO tracks (id, profile_id, file_path, title, album_id, artist_id, genre_id, duration_seconds, liked, cover_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.ProfileID, t.FilePath, t.Title,
		nullable(t.AlbumID), nullable(t.ArtistID), nullable(t.GenreID),
		t.DurationSeconds, t.Liked, nullable(t.CoverID))
	if err != nil {
		return "", err
	}
	if _, err := cmd.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to insert track: %w", err)
	}
	return t.ID, nil
}

// SaveAlbum inserts an album row.
func (s *Store) SaveAlbum(ctx context.Context, a models.Album) (string, error) {
	if a.ID == "" {
		a.ID = shared.GenerateID()
	}
	cmd, err := s.manager.CreateCommand(ctx,
		"INSERT INTO albums (id, title, artist_id, year, cover_id) VALUES (?, ?, ?, ?, ?)",
		a.ID, a.Title, nullable(a.ArtistID), a.Year, nullable(a.CoverID))
	if err != nil {
		return "", err
	}
	if _, err := cmd.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to insert album: %w", err)
	}
	return a.ID, nil
}

// SaveArtist inserts an artist row.
func (s *Store) SaveArtist(ctx context.Context, a models.Artist) (string, error) {
	if a.ID == "" {
		a.ID = shared.GenerateID()
	}
	cmd, err := s.manager.CreateCommand(ctx, "INSERT INTO artists (id, name) VALUES (?, ?)", a.ID, a.Name)
	if err != nil {
		return "", err
	}
	if _, err := cmd.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to insert artist: %w", err)
	}
	return a.ID, nil
}

// SaveGenre inserts a genre row.
func (s *Store) SaveGenre(ctx context.Context, g models.Genre) (string, error) {
	if g.ID == "" {
		g.ID = shared.GenerateID()
	}
	cmd, err := s.manager.CreateCommand(ctx, "INSERT INTO genres (id, name) VALUES (?, ?)", g.ID, g.Name)
	if err != nil {
		return "", err
	}
	if _, err := cmd.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to insert genre: %w", err)
	}
	return g.ID, nil
}

// AddBlacklistedDirectory records an excluded folder for a profile.
func (s *Store) AddBlacklistedDirectory(ctx context.Context, profileID, path string) error {
	cmd, err := s.manager.CreateCommand(ctx,
		"INSERT OR IGNORE INTO blacklisted_directories (id, profile_id, path) VALUES (?, ?, ?)",
		shared.GenerateID(), profileID, path)
	if err != nil {
		return err
	}
	if _, err := cmd.Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert blacklist entry: %w", err)
	}
	return nil
}

// nullable returns a pointer for non-empty strings and nil otherwise, so
// CreateCommand binds empty references as SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
