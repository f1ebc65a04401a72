package main

import (
	"context"
	"fmt"
	"os"

	"github.com/quaverd/quaver/internal/formatter"
	"github.com/quaverd/quaver/internal/models"
	"github.com/quaverd/quaver/internal/shared"
	"github.com/quaverd/quaver/internal/storage"
	"github.com/quaverd/quaver/internal/watch"
	"github.com/urfave/cli/v3"
)

// Setup initializes the database, runs migrations, and creates the initial
// active profile when none exists.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		}
	}
	r.reloadConfig(cmd)

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	_, store, manager, err := r.openLibrary(ctx)
	if err != nil {
		return err
	}
	defer manager.Close()

	db, err := manager.Open(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("running database migrations")
	if err := storage.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	profile, err := store.GetCurrentProfile(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve profile: %w", err)
	}
	if profile == nil {
		profile, err = store.SaveProfile(ctx, cmd.String("profile"), true)
		if err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		r.logger.Info("created active profile", "id", profile.ID, "name", profile.Name)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return nil
}

// LibraryLoad loads (or reloads with --force) the library snapshot.
func (r *Runner) LibraryLoad(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	cache, _, manager, err := r.openLibrary(ctx)
	if err != nil {
		return err
	}
	defer manager.Close()

	ok, err := cache.LoadTracks(ctx, cmd.Bool("force"))
	if err != nil {
		return fmt.Errorf("failed to load library: %w", err)
	}

	stats := snapshotStats(cache)
	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}

	if !ok {
		r.writePlainln("Library is empty.")
		return nil
	}
	r.writePlainln("✓ Library loaded")
	r.writePlain("  Tracks:  %d\n  Albums:  %d\n  Artists: %d\n  Genres:  %d\n",
		stats.Tracks, stats.Albums, stats.Artists, stats.Genres)
	return nil
}

// LibraryStats prints the current snapshot sizes without forcing a reload.
func (r *Runner) LibraryStats(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	cache, _, manager, err := r.openLibrary(ctx)
	if err != nil {
		return err
	}
	defer manager.Close()

	if _, err := cache.LoadTracks(ctx, false); err != nil {
		return fmt.Errorf("failed to load library: %w", err)
	}

	stats := snapshotStats(cache)
	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}
	r.writePlainln("Tracks: %d  Albums: %d  Artists: %d  Genres: %d",
		stats.Tracks, stats.Albums, stats.Artists, stats.Genres)
	return nil
}

// LibraryExport loads the snapshot and writes it out in the requested format.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	cache, store, manager, err := r.openLibrary(ctx)
	if err != nil {
		return err
	}
	defer manager.Close()

	profile, err := store.GetCurrentProfile(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve profile: %w", err)
	}
	if profile == nil {
		return shared.ErrNoActiveProfile
	}

	if _, err := cache.LoadTracks(ctx, false); err != nil {
		return fmt.Errorf("failed to load library: %w", err)
	}

	export := &formatter.LibraryExport{
		Profile: *profile,
		Tracks:  cache.AllTracks(),
		Albums:  cache.AllAlbums(),
		Artists: cache.AllArtists(),
		Genres:  cache.AllGenres(),
	}
	written, err := formatter.WriteExport(export, cmd.String("format"), cmd.String("out"))
	if err != nil {
		return err
	}

	r.writePlainln("✓ Exported %d track(s) to %s", len(export.Tracks), written)
	return nil
}

// LibraryWatch watches the configured folders and invalidates the cache on
// filesystem changes until interrupted.
func (r *Runner) LibraryWatch(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	if len(r.config.Watcher.Paths) == 0 {
		return fmt.Errorf("%w: no watcher paths configured", shared.ErrInvalidConfig)
	}

	cache, _, manager, err := r.openLibrary(ctx)
	if err != nil {
		return err
	}
	defer manager.Close()

	watcher, err := watch.New(cache, r.logger, r.config.Watcher.Debounce())
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, path := range r.config.Watcher.Paths {
		if err := watcher.Add(path); err != nil {
			r.logger.Warn("skipping unwatchable folder", "path", path, "error", err)
		}
	}

	r.writePlainln("Watching %d folder(s). Press Ctrl+C to stop.", len(r.config.Watcher.Paths))
	watcher.Run(ctx)
	return nil
}

// BlacklistAdd records a folder exclusion for a profile.
func (r *Runner) BlacklistAdd(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	cache, store, manager, err := r.openLibrary(ctx)
	if err != nil {
		return err
	}
	defer manager.Close()

	profileID, err := r.resolveProfileID(ctx, store, cmd.String("profile"))
	if err != nil {
		return err
	}

	path := cmd.String("path")
	if err := store.AddBlacklistedDirectory(ctx, profileID, path); err != nil {
		return fmt.Errorf("failed to blacklist folder: %w", err)
	}
	cache.InvalidateAllCaches()

	r.writePlainln("✓ Blacklisted: %s", path)
	return nil
}

// BlacklistValidate lists the tracks surviving the profile's blacklist.
func (r *Runner) BlacklistValidate(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	cache, store, manager, err := r.openLibrary(ctx)
	if err != nil {
		return err
	}
	defer manager.Close()

	profileID, err := r.resolveProfileID(ctx, store, cmd.String("profile"))
	if err != nil {
		return err
	}

	survivors, err := cache.ValidateBlacklist(ctx, profileID)
	if err != nil {
		return fmt.Errorf("failed to validate blacklist: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(survivors, true)
	}
	r.writePlainln("%d track(s) survive the blacklist", len(survivors))
	for _, t := range survivors {
		r.writePlain("  %s\n", t.FilePath)
	}
	return nil
}

func (r *Runner) resolveProfileID(ctx context.Context, resolver models.ProfileResolver, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	profile, err := resolver.GetCurrentProfile(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve profile: %w", err)
	}
	if profile == nil {
		return "", shared.ErrNoActiveProfile
	}
	return profile.ID, nil
}

type libraryStats struct {
	Tracks  int `json:"tracks"`
	Albums  int `json:"albums"`
	Artists int `json:"artists"`
	Genres  int `json:"genres"`
}

type snapshotReader interface {
	AllTracks() []models.Track
	AllAlbums() []models.Album
	AllArtists() []models.Artist
	AllGenres() []models.Genre
}

func snapshotStats(cache snapshotReader) libraryStats {
	return libraryStats{
		Tracks:  len(cache.AllTracks()),
		Albums:  len(cache.AllAlbums()),
		Artists: len(cache.AllArtists()),
		Genres:  len(cache.AllGenres()),
	}
}
