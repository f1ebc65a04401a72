package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

type signalInvalidator struct {
	hits chan struct{}
}

func (s *signalInvalidator) InvalidateAllCaches() {
	select {
	case s.hits <- struct{}{}:
	default:
	}
}

func TestWatcher(t *testing.T) {
	newWatcher := func(t *testing.T, debounce time.Duration) (*Watcher, *signalInvalidator, string) {
		t.Helper()

		inv := &signalInvalidator{hits: make(chan struct{}, 1)}
		w, err := New(inv, log.New(io.Discard), debounce)
		if err != nil {
			t.Fatalf("failed to create watcher: %v", err)
		}
		t.Cleanup(func() { w.Close() })

		dir := t.TempDir()
		if err := w.Add(dir); err != nil {
			t.Fatalf("failed to watch %s: %v", dir, err)
		}
		return w, inv, dir
	}

	t.Run("invalidates after a file change", func(t *testing.T) {
		w, inv, dir := newWatcher(t, 20*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		if err := os.WriteFile(filepath.Join(dir, "track.flac"), []byte("audio"), 0644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}

		select {
		case <-inv.hits:
		case <-time.After(2 * time.Second):
			t.Fatal("expected an invalidation after the file change")
		}
	})

	t.Run("debounces bursts into one invalidation", func(t *testing.T) {
		w, inv, dir := newWatcher(t, 100*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		for i := 0; i < 5; i++ {
			name := filepath.Join(dir, "track"+string(rune('a'+i))+".mp3")
			if err := os.WriteFile(name, []byte("audio"), 0644); err != nil {
				t.Fatalf("failed to write file: %v", err)
			}
			time.Sleep(5 * time.Millisecond)
		}

		select {
		case <-inv.hits:
		case <-time.After(2 * time.Second):
			t.Fatal("expected an invalidation after the burst")
		}

		// The burst fits inside one debounce window, so no second signal
		// should arrive.
		select {
		case <-inv.hits:
			t.Error("expected the burst to collapse into a single invalidation")
		case <-time.After(300 * time.Millisecond):
		}
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		w, _, _ := newWatcher(t, 20*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			w.Run(ctx)
			close(done)
		}()

		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("expected Run to return after cancellation")
		}
	})

	t.Run("Add rejects a missing folder", func(t *testing.T) {
		inv := &signalInvalidator{hits: make(chan struct{}, 1)}
		w, err := New(inv, log.New(io.Discard), 0)
		if err != nil {
			t.Fatalf("failed to create watcher: %v", err)
		}
		defer w.Close()

		if err := w.Add(filepath.Join(t.TempDir(), "absent")); err == nil {
			t.Error("expected an error for a missing folder")
		}
	})
}
