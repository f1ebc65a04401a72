package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/quaverd/quaver/internal/shared"
	"github.com/quaverd/quaver/internal/storage"
	qt "github.com/quaverd/quaver/internal/testing"
)

func TestNewRunner(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		r := NewRunner(RunnerOpts{})

		if r.config == nil {
			t.Error("expected a default config")
		}
		if r.logger == nil {
			t.Error("expected a default logger")
		}
		if r.output != os.Stdout {
			t.Error("expected output to default to stdout")
		}
		if r.breaker == nil {
			t.Error("expected a breaker built from config")
		}
	})

	t.Run("keeps provided dependencies", func(t *testing.T) {
		config := shared.DefaultConfig()
		breaker := storage.NewBreaker(1, time.Minute)
		out := &bytes.Buffer{}

		r := NewRunner(RunnerOpts{Config: config, Output: out, Breaker: breaker})

		if r.config != config {
			t.Error("expected the provided config")
		}
		if r.output != out {
			t.Error("expected the provided output writer")
		}
		if r.breaker != breaker {
			t.Error("expected the provided breaker")
		}
	})
}

func TestOpenLibrary(t *testing.T) {
	t.Run("unreachable database reports storage unavailable", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Database.Path = filepath.Join(t.TempDir(), "missing", "library.db")
		config.Retry.MaxAttempts = 1
		config.Retry.InitialDelayMS = 1
		config.Retry.MaxJitterMS = 1

		r := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}})

		_, _, _, err := r.openLibrary(context.Background())
		if !errors.Is(err, shared.ErrStorageUnavailable) {
			t.Fatalf("expected ErrStorageUnavailable, got %v", err)
		}
	})
}

func TestRunnerOutput(t *testing.T) {
	t.Run("writeJSON", func(t *testing.T) {
		out := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Output: out})

		if err := r.writeJSON(map[string]int{"tracks": 2}, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := out.String(); got != "{\"tracks\":2}\n" {
			t.Errorf("unexpected output: %q", got)
		}
	})

	t.Run("writeJSON pretty", func(t *testing.T) {
		out := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Output: out})

		if err := r.writeJSON(map[string]int{"tracks": 2}, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "  \"tracks\": 2") {
			t.Errorf("expected indented output, got %q", out.String())
		}
	})

	t.Run("write failures surface", func(t *testing.T) {
		r := NewRunner(RunnerOpts{Output: &qt.FWriter{}})

		if err := r.writeJSON(map[string]int{}, false); err == nil {
			t.Error("expected writeJSON to report the write failure")
		}
		if err := r.writePlain("library loaded"); err == nil {
			t.Error("expected writePlain to report the write failure")
		}
		if err := r.writePlainln("library loaded"); err == nil {
			t.Error("expected writePlainln to report the write failure")
		}
	})
}
