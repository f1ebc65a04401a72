// package watch invalidates the library cache when watched folders change
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Invalidator is the slice of the cache coordinator the watcher needs.
type Invalidator interface {
	InvalidateAllCaches()
}

// Watcher observes library folders and invalidates the cache after changes,
// debouncing bursts of filesystem events into a single invalidation.
type Watcher struct {
	fsw      *fsnotify.Watcher
	cache    Invalidator
	logger   *log.Logger
	debounce time.Duration
}

// New creates a Watcher over the given cache.
// A non-positive debounce defaults to 500ms.
func New(cache Invalidator, logger *log.Logger, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fs watcher: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{fsw: fsw, cache: cache, logger: logger, debounce: debounce}, nil
}

// Add registers a folder to watch.
func (w *Watcher) Add(path string) error {
	if err := w.fsw.Add(path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	w.logger.Info("watching folder", "path", path)
	return nil
}

// Run processes filesystem events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("fs event", "op", event.Op, "path", event.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				pending = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-pending:
			timer = nil
			pending = nil
			w.logger.Info("library folders changed, invalidating cache")
			w.cache.InvalidateAllCaches()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("fs watcher error", "err", err)
		case <-ctx.Done():
			return
		}
	}
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
