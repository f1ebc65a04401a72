package library

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/quaverd/quaver/internal/models"
	"github.com/quaverd/quaver/internal/shared"
)

// Options configures a [Coordinator].
type Options struct {
	Provider models.LibraryProvider
	Sink     shared.Sink
	// InitTimeout bounds how long a caller waits for the first-ever
	// initialization. Zero means wait indefinitely.
	InitTimeout time.Duration
}

// Coordinator owns the four published library snapshots and is their sole
// writer.
//
// Reloads are single-flight: the first caller performs the load while
// concurrent callers await its result. Failed reloads fall back to the last
// good snapshot; readers never observe a partially updated state.
type Coordinator struct {
	provider    models.LibraryProvider
	sink        shared.Sink
	initTimeout time.Duration
	notifier    *Notifier

	mu           sync.Mutex
	tracks       []models.Track
	albums       []models.Album
	artists      []models.Artist
	genres       []models.Genre
	tracksValid  bool
	albumsValid  bool
	artistsValid bool
	genresValid  bool
	initialized  bool
	inflight     *loadFuture
}

// loadFuture is the shared result of one in-flight reload. The ok/err
// fields are written before done is closed and read only after.
type loadFuture struct {
	done chan struct{}
	ok   bool
	err  error
}

// New creates a Coordinator over the given provider.
func New(opts Options) *Coordinator {
	if opts.Sink == nil {
		opts.Sink = shared.NewLogSink(nil)
	}
	return &Coordinator{
		provider:    opts.Provider,
		sink:        opts.Sink,
		initTimeout: opts.InitTimeout,
		notifier:    NewNotifier(),
	}
}

// LoadTracks ensures a track snapshot is published, reloading from storage
// when needed.
//
// It returns true when a valid, non-empty snapshot is available afterwards,
// whether freshly loaded or retained from cache. Reload failures after a
// successful initialization are absorbed: the previous snapshot stays
// published and the failure goes to the sink. Only a first-ever
// initialization failure is returned as an error.
func (c *Coordinator) LoadTracks(ctx context.Context, forceRefresh bool) (bool, error) {
	c.mu.Lock()
	if c.servableLocked(forceRefresh) {
		c.mu.Unlock()
		return true, nil
	}
	if f := c.inflight; f != nil {
		firstInit := !c.initialized
		c.mu.Unlock()
		return c.await(ctx, f, firstInit)
	}

	f := &loadFuture{done: make(chan struct{})}
	c.inflight = f
	firstInit := !c.initialized
	c.mu.Unlock()

	var ok bool
	var err error
	defer func() {
		// Clear the in-flight slot on every exit path before waking waiters.
		f.ok, f.err = ok, err
		c.mu.Lock()
		c.inflight = nil
		c.mu.Unlock()
		close(f.done)
	}()

	if firstInit && c.initTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.initTimeout)
		defer cancel()
	}

	ok, err = c.reload(ctx, forceRefresh, firstInit)
	if firstInit && errors.Is(err, context.DeadlineExceeded) {
		err = shared.ErrInitializationTimeout
	}
	return ok, err
}

// servableLocked is the reload fast path. Callers must hold c.mu.
func (c *Coordinator) servableLocked(forceRefresh bool) bool {
	return c.initialized && c.tracksValid && !forceRefresh && len(c.tracks) > 0
}

// await blocks until the given in-flight reload completes and shares its
// result. Waiting for the first-ever initialization is bounded by the
// configured timeout.
func (c *Coordinator) await(ctx context.Context, f *loadFuture, firstInit bool) (bool, error) {
	var timeout <-chan time.Time
	if firstInit && c.initTimeout > 0 {
		t := time.NewTimer(c.initTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-f.done:
		return f.ok, f.err
	case <-ctx.Done():
		c.mu.Lock()
		ok := c.tracksValid && len(c.tracks) > 0
		c.mu.Unlock()
		return ok, ctx.Err()
	case <-timeout:
		return false, shared.ErrInitializationTimeout
	}
}

// reload performs one full load: tracks, blacklist filtering, then the
// three derived collections.
func (c *Coordinator) reload(ctx context.Context, forceRefresh, firstInit bool) (bool, error) {
	// Another reload may have completed between the caller's fast-path
	// check and this one claiming the in-flight slot.
	c.mu.Lock()
	if c.servableLocked(forceRefresh) {
		c.mu.Unlock()
		return true, nil
	}
	c.mu.Unlock()

	profile, err := c.provider.GetCurrentProfile(ctx)
	if err != nil {
		return c.fallback(firstInit, "failed to resolve active profile", err)
	}
	if profile == nil {
		c.sink.Log(shared.SeverityInfo, "no active profile", "publishing empty library snapshot", nil, false)
		c.publishEmpty()
		return false, nil
	}

	survivors, err := c.ValidateBlacklist(ctx, profile.ID)
	if err != nil {
		return c.fallback(firstInit, "failed to load tracks", err)
	}
	if len(survivors) == 0 {
		c.sink.Log(shared.SeverityInfo, "library empty", "no tracks survived loading and filtering", nil, false)
		c.publishEmpty()
		return false, nil
	}

	albums, artists, genres, err := c.loadDerived(ctx, survivors)
	if err != nil {
		return c.fallback(firstInit, "failed to load derived collections", err)
	}

	// Swap all four in as a completed group so readers never mix
	// generations.
	c.mu.Lock()
	c.tracks = survivors
	c.albums = albums
	c.artists = artists
	c.genres = genres
	c.tracksValid = true
	c.albumsValid = true
	c.artistsValid = true
	c.genresValid = true
	c.initialized = true
	c.mu.Unlock()

	return true, nil
}

// loadDerived recomputes the album/artist/genre subsets referenced by the
// surviving tracks. The three loads run concurrently; a collection whose
// validity flag is still set and whose cache is non-empty is reused as-is.
func (c *Coordinator) loadDerived(ctx context.Context, tracks []models.Track) ([]models.Album, []models.Artist, []models.Genre, error) {
	albumIDs := make(map[string]struct{}, len(tracks))
	artistIDs := make(map[string]struct{}, len(tracks))
	genreIDs := make(map[string]struct{}, len(tracks))
	for _, t := range tracks {
		if t.AlbumID != "" {
			albumIDs[t.AlbumID] = struct{}{}
		}
		if t.ArtistID != "" {
			artistIDs[t.ArtistID] = struct{}{}
		}
		if t.GenreID != "" {
			genreIDs[t.GenreID] = struct{}{}
		}
	}

	c.mu.Lock()
	albums := c.albums
	artists := c.artists
	genres := c.genres
	reuseAlbums := c.albumsValid && len(albums) > 0
	reuseArtists := c.artistsValid && len(artists) > 0
	reuseGenres := c.genresValid && len(genres) > 0
	c.mu.Unlock()

	var wg sync.WaitGroup
	var albumErr, artistErr, genreErr error

	if !reuseAlbums {
		wg.Add(1)
		go func() {
			defer wg.Done()
			all, err := c.provider.GetAllAlbums(ctx)
			if err != nil {
				albumErr = err
				return
			}
			albums = albums[:0:0]
			for _, a := range all {
				if _, ok := albumIDs[a.ID]; ok {
					albums = append(albums, a)
				}
			}
		}()
	}
	if !reuseArtists {
		wg.Add(1)
		go func() {
			defer wg.Done()
			all, err := c.provider.GetAllArtists(ctx)
			if err != nil {
				artistErr = err
				return
			}
			artists = artists[:0:0]
			for _, a := range all {
				if _, ok := artistIDs[a.ID]; ok {
					artists = append(artists, a)
				}
			}
		}()
	}
	if !reuseGenres {
		wg.Add(1)
		go func() {
			defer wg.Done()
			all, err := c.provider.GetAllGenres(ctx)
			if err != nil {
				genreErr = err
				return
			}
			genres = genres[:0:0]
			for _, g := range all {
				if _, ok := genreIDs[g.ID]; ok {
					genres = append(genres, g)
				}
			}
		}()
	}
	wg.Wait()

	for _, err := range []error{albumErr, artistErr, genreErr} {
		if err != nil {
			return nil, nil, nil, err
		}
	}
	return albums, artists, genres, nil
}

// fallback converts a reload failure into "serve the last good snapshot".
// A superseding cancellation stays silent; everything else is logged
// Critical. Only a failure before any snapshot ever existed returns an
// error to the caller.
func (c *Coordinator) fallback(firstInit bool, title string, err error) (bool, error) {
	if errors.Is(err, context.Canceled) {
		c.mu.Lock()
		ok := c.tracksValid && len(c.tracks) > 0
		c.mu.Unlock()
		return ok, err
	}

	c.mu.Lock()
	hadPrior := c.initialized
	ok := len(c.tracks) > 0
	c.mu.Unlock()

	if firstInit && !hadPrior {
		c.sink.Log(shared.SeverityCritical, title, "no prior snapshot, publishing empty library", err, true)
		c.publishEmptyInvalid()
		return false, err
	}

	c.sink.Log(shared.SeverityCritical, title, "serving last good snapshot", err, true)
	return ok, nil
}

// publishEmpty publishes a valid, empty snapshot (no rows is not an error).
func (c *Coordinator) publishEmpty() {
	c.mu.Lock()
	c.tracks = nil
	c.albums = nil
	c.artists = nil
	c.genres = nil
	c.tracksValid = true
	c.albumsValid = true
	c.artistsValid = true
	c.genresValid = true
	c.initialized = true
	c.mu.Unlock()
}

// publishEmptyInvalid publishes an empty snapshot but leaves the validity
// flags cleared so the next LoadTracks retries storage.
func (c *Coordinator) publishEmptyInvalid() {
	c.mu.Lock()
	c.tracks = nil
	c.albums = nil
	c.artists = nil
	c.genres = nil
	c.tracksValid = false
	c.albumsValid = false
	c.artistsValid = false
	c.genresValid = false
	c.mu.Unlock()
}

// AllTracks returns a copy of the published track snapshot.
func (c *Coordinator) AllTracks() []models.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.tracks)
}

// AllAlbums returns a copy of the published album snapshot.
func (c *Coordinator) AllAlbums() []models.Album {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.albums)
}

// AllArtists returns a copy of the published artist snapshot.
func (c *Coordinator) AllArtists() []models.Artist {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.artists)
}

// AllGenres returns a copy of the published genre snapshot.
func (c *Coordinator) AllGenres() []models.Genre {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.genres)
}

// InvalidateAllCaches clears every validity flag and notifies subscribers.
// It does not trigger a reload.
func (c *Coordinator) InvalidateAllCaches() {
	c.mu.Lock()
	c.tracksValid = false
	c.albumsValid = false
	c.artistsValid = false
	c.genresValid = false
	c.mu.Unlock()

	c.notifier.Publish()
	c.sink.Log(shared.SeverityInfo, "library invalidated", "all cache validity flags cleared", nil, false)
}

// SubscribeInvalidation registers for zero-payload invalidation signals.
func (c *Coordinator) SubscribeInvalidation() (<-chan struct{}, func()) {
	return c.notifier.Subscribe()
}

// ValidateBlacklist loads the raw tracks for a profile and returns those
// whose folders survive the profile's blacklist.
func (c *Coordinator) ValidateBlacklist(ctx context.Context, profileID string) ([]models.Track, error) {
	raw, err := c.provider.GetAllTracksWithMetadata(ctx, profileID)
	if err != nil {
		return nil, err
	}
	blacklist, err := c.provider.GetBlacklistedDirectories(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return FilterTracks(raw, blacklist), nil
}
