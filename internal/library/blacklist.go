package library

import (
	"os"
	"path/filepath"
	"strings"
)

// NormalizeFolderPath canonicalizes a folder path for blacklist matching.
//
// Separators are unified, trailing separators stripped, and the path is
// resolved through symlinks when it exists on disk. Resolution is best
// effort: a path that cannot be resolved keeps its cleaned form.
// Normalizing an already-normalized path is a no-op.
func NormalizeFolderPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}

	p = strings.ReplaceAll(p, "\\", "/")
	p = filepath.Clean(filepath.FromSlash(p))

	// Keep drive/volume roots as-is ("C:", "/"); strip other trailing separators.
	if len(p) > 1 && p != string(filepath.Separator) {
		p = strings.TrimRight(p, string(filepath.Separator))
	}

	if _, err := os.Stat(p); err == nil {
		if resolved, err := filepath.EvalSymlinks(p); err == nil {
			p = resolved
		}
	}
	return p
}

// pathSegments splits a normalized path into its ordered segments,
// dropping the empty leading segment of absolute paths.
func pathSegments(p string) []string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.ReplaceAll(p, string(filepath.Separator), "/")
	parts := strings.Split(p, "/")
	segments := parts[:0]
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// IsExcluded reports whether folderPath equals or is nested under any
// blacklist entry.
//
// Matching is case-insensitive on ordered path segments: an entry excludes
// the candidate when its segments are a prefix of the candidate's. An empty
// candidate cannot be validated and is conservatively excluded; an empty
// blacklist excludes nothing.
func IsExcluded(folderPath string, blacklist []string) bool {
	if strings.TrimSpace(folderPath) == "" {
		return true
	}
	if len(blacklist) == 0 {
		return false
	}

	candidate := NormalizeFolderPath(folderPath)
	candidateSegments := pathSegments(candidate)

	for _, entry := range blacklist {
		normalized := NormalizeFolderPath(entry)
		if normalized == "" {
			continue
		}
		// Fast path before segment comparison.
		if strings.EqualFold(normalized, candidate) {
			return true
		}
		if segmentsArePrefix(pathSegments(normalized), candidateSegments) {
			return true
		}
	}
	return false
}

func segmentsArePrefix(prefix, segments []string) bool {
	if len(prefix) == 0 || len(prefix) > len(segments) {
		return false
	}
	for i, seg := range prefix {
		if !strings.EqualFold(seg, segments[i]) {
			return false
		}
	}
	return true
}

// FilterTracks returns the tracks whose containing folder is not excluded
// by the blacklist. Tracks without a file path are dropped.
func FilterTracks[T interface{ Folder() string }](tracks []T, blacklist []string) []T {
	if len(blacklist) == 0 {
		survivors := make([]T, 0, len(tracks))
		for _, t := range tracks {
			if t.Folder() != "" {
				survivors = append(survivors, t)
			}
		}
		return survivors
	}

	survivors := make([]T, 0, len(tracks))
	for _, t := range tracks {
		if !IsExcluded(t.Folder(), blacklist) {
			survivors = append(survivors, t)
		}
	}
	return survivors
}
