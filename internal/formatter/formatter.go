// package formatter exports library snapshots to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/quaverd/quaver/internal/models"
	"github.com/quaverd/quaver/internal/shared"
)

// LibraryExport bundles a snapshot of one profile's library for export.
type LibraryExport struct {
	Profile models.Profile
	Tracks  []models.Track
	Albums  []models.Album
	Artists []models.Artist
	Genres  []models.Genre
}

// row is a track with its album, artist, and genre references resolved to names.
type row struct {
	track  models.Track
	album  string
	artist string
	genre  string
}

func (e *LibraryExport) rows() []row {
	albums := make(map[string]string, len(e.Albums))
	for _, a := range e.Albums {
		albums[a.ID] = a.Title
	}
	artists := make(map[string]string, len(e.Artists))
	for _, a := range e.Artists {
		artists[a.ID] = a.Name
	}
	genres := make(map[string]string, len(e.Genres))
	for _, g := range e.Genres {
		genres[g.ID] = g.Name
	}

	rows := make([]row, 0, len(e.Tracks))
	for _, t := range e.Tracks {
		rows = append(rows, row{
			track:  t,
			album:  albums[t.AlbumID],
			artist: artists[t.ArtistID],
			genre:  genres[t.GenreID],
		})
	}
	return rows
}

// ExportToCSV converts a LibraryExport to CSV format with columns: Title, Artist, Album, Genre, Duration, Liked, Path
func ExportToCSV(export *LibraryExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Title", "Artist", "Album", "Genre", "Duration", "Liked", "Path"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range export.rows() {
		record := []string{
			r.track.Title,
			r.artist,
			r.album,
			r.genre,
			strconv.Itoa(r.track.DurationSeconds),
			strconv.FormatBool(r.track.Liked),
			r.track.FilePath,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a LibraryExport to Markdown format
func ExportToMarkdown(export *LibraryExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", export.Profile.Name))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", len(export.Tracks)))
	buf.WriteString(fmt.Sprintf("**Albums**: %d\n", len(export.Albums)))
	buf.WriteString(fmt.Sprintf("**Artists**: %d\n\n", len(export.Artists)))

	buf.WriteString("## Tracks\n\n")
	for i, r := range export.rows() {
		duration := shared.FormatDuration(r.track.DurationSeconds)
		albumPart := ""
		if r.album != "" {
			albumPart = fmt.Sprintf(" (%s)", r.album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n", i+1, r.artist, r.track.Title, albumPart, duration))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a LibraryExport to plain text format
func ExportToText(export *LibraryExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Library: %s\n", export.Profile.Name))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(export.Tracks)))

	for i, r := range export.rows() {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, r.artist, r.track.Title))
	}

	return buf.Bytes(), nil
}

// WriteExport renders the snapshot in the given format ("csv", "markdown",
// or "text") and writes it to filepath.
//
// Defaults to {profile.Name}_library.{ext} as the filename.
func WriteExport(export *LibraryExport, format string, filepath string) (string, error) {
	var data []byte
	var err error
	var ext string

	switch format {
	case "csv":
		data, err = ExportToCSV(export)
		ext = "csv"
	case "markdown", "md":
		data, err = ExportToMarkdown(export)
		ext = "md"
	case "text", "":
		data, err = ExportToText(export)
		ext = "txt"
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidInput, format)
	}
	if err != nil {
		return "", fmt.Errorf("failed to render export: %w", err)
	}

	if filepath == "" {
		filepath = fmt.Sprintf("%s_library.%s", export.Profile.Name, ext)
	}
	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return filepath, nil
}
