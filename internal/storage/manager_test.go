package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/quaverd/quaver/internal/shared"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		BackoffFactor: 2.0,
		MaxJitter:     time.Millisecond,
	}
}

func TestManager(t *testing.T) {
	ctx := context.Background()

	t.Run("Open", func(t *testing.T) {
		t.Run("succeeds and resets the breaker", func(t *testing.T) {
			breaker := NewBreaker(2, time.Minute)
			breaker.RecordFailure()

			m := NewManager(ManagerOpts{
				Path:    filepath.Join(t.TempDir(), "library.db"),
				Breaker: breaker,
				Retry:   fastRetry(1),
				Logger:  quietLogger(),
			})
			defer m.Close()

			db, err := m.Open(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if db == nil {
				t.Fatal("expected a database handle")
			}
			if breaker.Failures() != 0 {
				t.Errorf("expected breaker reset on success, got %d failures", breaker.Failures())
			}
		})

		t.Run("returns the same handle while usable", func(t *testing.T) {
			m := NewManager(ManagerOpts{
				Path:   filepath.Join(t.TempDir(), "library.db"),
				Retry:  fastRetry(1),
				Logger: quietLogger(),
			})
			defer m.Close()

			first, err := m.Open(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			second, err := m.Open(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if first != second {
				t.Error("expected the open handle to be reused")
			}
		})

		t.Run("classifies failure after exhausting retries", func(t *testing.T) {
			m := NewManager(ManagerOpts{
				Path:   filepath.Join(t.TempDir(), "missing", "nested", "library.db"),
				Retry:  fastRetry(2),
				Logger: quietLogger(),
			})

			_, err := m.Open(ctx)
			var cerr *ConnError
			if !errors.As(err, &cerr) {
				t.Fatalf("expected ConnError, got %v", err)
			}
		})

		t.Run("exhausted retries count one breaker failure", func(t *testing.T) {
			breaker := NewBreaker(2, time.Minute)
			m := NewManager(ManagerOpts{
				Path:    filepath.Join(t.TempDir(), "missing", "library.db"),
				Breaker: breaker,
				Retry:   fastRetry(3),
				Logger:  quietLogger(),
			})

			m.Open(ctx)
			if breaker.Failures() != 1 {
				t.Errorf("retries within one Open must count once, got %d", breaker.Failures())
			}
		})

		t.Run("fails fast while the circuit is open", func(t *testing.T) {
			breaker := NewBreaker(1, time.Minute)
			badPath := filepath.Join(t.TempDir(), "missing", "library.db")

			m := NewManager(ManagerOpts{Path: badPath, Breaker: breaker, Retry: fastRetry(1), Logger: quietLogger()})
			m.Open(ctx) // trips the breaker

			other := NewManager(ManagerOpts{Path: badPath, Breaker: breaker, Retry: fastRetry(1), Logger: quietLogger()})
			_, err := other.Open(ctx)
			var coe *CircuitOpenError
			if !errors.As(err, &coe) {
				t.Fatalf("expected CircuitOpenError for every sharing manager, got %v", err)
			}
		})

		t.Run("cancelled context stops retrying", func(t *testing.T) {
			m := NewManager(ManagerOpts{
				Path: filepath.Join(t.TempDir(), "missing", "library.db"),
				Retry: RetryPolicy{
					MaxAttempts:   3,
					InitialDelay:  time.Hour, // cancellation must win, not the backoff
					BackoffFactor: 2.0,
					MaxJitter:     time.Millisecond,
				},
				Logger: quietLogger(),
			})

			cancelled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()

			start := time.Now()
			_, err := m.Open(cancelled)
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("expected DeadlineExceeded, got %v", err)
			}
			if !errors.Is(err, shared.ErrTimeout) {
				t.Errorf("expected deadline expiry to surface ErrTimeout, got %v", err)
			}
			if time.Since(start) > time.Second {
				t.Error("cancellation did not interrupt the backoff delay")
			}
		})

		t.Run("plain cancellation is not a timeout", func(t *testing.T) {
			m := NewManager(ManagerOpts{
				Path: filepath.Join(t.TempDir(), "missing", "library.db"),
				Retry: RetryPolicy{
					MaxAttempts:   3,
					InitialDelay:  time.Hour,
					BackoffFactor: 2.0,
					MaxJitter:     time.Millisecond,
				},
				Logger: quietLogger(),
			})

			cancelled, cancel := context.WithCancel(ctx)
			go func() {
				time.Sleep(20 * time.Millisecond)
				cancel()
			}()

			_, err := m.Open(cancelled)
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("expected Canceled, got %v", err)
			}
			if errors.Is(err, shared.ErrTimeout) {
				t.Error("cancellation must not be reported as a timeout")
			}
		})
	})

	t.Run("CreateCommand", func(t *testing.T) {
		t.Run("binds nil pointers as NULL", func(t *testing.T) {
			m := NewManager(ManagerOpts{Path: filepath.Join(t.TempDir(), "library.db"), Retry: fastRetry(1), Logger: quietLogger()})
			defer m.Close()

			setup, err := m.CreateCommand(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, note TEXT)")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, err := setup.Exec(ctx); err != nil {
				t.Fatalf("failed to create table: %v", err)
			}

			var missing *string
			insert, err := m.CreateCommand(ctx, "INSERT INTO t (id, note) VALUES (?, ?)", 1, missing)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, err := insert.Exec(ctx); err != nil {
				t.Fatalf("failed to insert: %v", err)
			}

			check, err := m.CreateCommand(ctx, "SELECT COUNT(*) FROM t WHERE note IS NULL")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var count int
			if err := check.QueryRow(ctx).Scan(&count); err != nil {
				t.Fatalf("failed to scan: %v", err)
			}
			if count != 1 {
				t.Errorf("expected nil pointer to bind as NULL, count = %d", count)
			}
		})

		t.Run("dereferences non-nil pointers", func(t *testing.T) {
			note := "liner notes"
			if got := normalizeArg(&note); got != "liner notes" {
				t.Errorf("expected dereferenced value, got %v", got)
			}
			if got := normalizeArg(nil); got != nil {
				t.Errorf("expected nil to stay nil, got %v", got)
			}
			if got := normalizeArg(42); got != 42 {
				t.Errorf("expected plain value passthrough, got %v", got)
			}
		})

		t.Run("reopens a closed connection", func(t *testing.T) {
			m := NewManager(ManagerOpts{
				Path:   filepath.Join(t.TempDir(), "library.db"),
				Retry:  fastRetry(1),
				Logger: quietLogger(),
			})
			if _, err := m.Open(ctx); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			m.Close()

			cmd, err := m.CreateCommand(ctx, "SELECT 1")
			if err != nil {
				t.Fatalf("expected transparent reopen, got %v", err)
			}
			var one int
			if err := cmd.QueryRow(ctx).Scan(&one); err != nil || one != 1 {
				t.Errorf("expected round trip after reopen, got %d, %v", one, err)
			}
		})
	})

	t.Run("ValidateConnection", func(t *testing.T) {
		t.Run("true for a live connection", func(t *testing.T) {
			m := NewManager(ManagerOpts{Path: filepath.Join(t.TempDir(), "library.db"), Retry: fastRetry(1), Logger: quietLogger()})
			defer m.Close()

			if _, err := m.Open(ctx); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !m.ValidateConnection(ctx) {
				t.Error("expected validation to pass")
			}
		})

		t.Run("false before any open", func(t *testing.T) {
			m := NewManager(ManagerOpts{Path: ":memory:", Retry: fastRetry(1), Logger: quietLogger()})
			if m.ValidateConnection(ctx) {
				t.Error("expected validation to fail without a connection")
			}
		})
	})

	t.Run("Classify", func(t *testing.T) {
		t.Run("unknown errors", func(t *testing.T) {
			cerr := Classify(errors.New("mystery"))
			if cerr.Kind != KindUnknown {
				t.Errorf("expected KindUnknown, got %v", cerr.Kind)
			}
		})

		t.Run("passes through classified errors", func(t *testing.T) {
			original := &ConnError{Kind: KindLocked, Err: errors.New("busy")}
			if got := Classify(original); got != original {
				t.Error("expected already-classified error to pass through")
			}
		})
	})
}
