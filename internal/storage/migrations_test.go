package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func migratedManager(t *testing.T) *Manager {
	t.Helper()

	m := NewManager(ManagerOpts{
		Path:   filepath.Join(t.TempDir(), "library.db"),
		Retry:  fastRetry(1),
		Logger: quietLogger(),
	})
	t.Cleanup(func() { m.Close() })

	db, err := m.Open(context.Background())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return m
}

func TestMigrations(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the library schema", func(t *testing.T) {
		m := migratedManager(t)

		for _, table := range []string{"profiles", "tracks", "albums", "artists", "genres", "blacklisted_directories"} {
			cmd, err := m.CreateCommand(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name = ?", table)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var count int
			if err := cmd.QueryRow(ctx).Scan(&count); err != nil {
				t.Fatalf("failed to check table %s: %v", table, err)
			}
			if count != 1 {
				t.Errorf("expected table %s to exist", table)
			}
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		m := migratedManager(t)

		db, err := m.Open(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := RunMigrations(db); err != nil {
			t.Errorf("re-running migrations should be a no-op: %v", err)
		}
	})

	t.Run("semicolons inside comments do not split statements", func(t *testing.T) {
		m := NewManager(ManagerOpts{
			Path:   filepath.Join(t.TempDir(), "library.db"),
			Retry:  fastRetry(1),
			Logger: quietLogger(),
		})
		defer m.Close()

		db, err := m.Open(ctx)
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		if _, err := db.Exec("CREATE TABLE schema_migrations (version INTEGER PRIMARY KEY)"); err != nil {
			t.Fatalf("failed to create migrations table: %v", err)
		}

		script := `-- Covers profiles; tracks and the
-- rest of the schema.
CREATE TABLE semi (
    id TEXT PRIMARY KEY -- natural key; never rewritten
);
CREATE INDEX idx_semi ON semi(id);`
		if err := applyStatements(db, script, "INSERT INTO schema_migrations (version) VALUES (?)", 99); err != nil {
			t.Fatalf("script with commented semicolons should apply: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name IN ('semi', 'idx_semi')").Scan(&count); err != nil {
			t.Fatalf("failed to check objects: %v", err)
		}
		if count != 2 {
			t.Errorf("expected both statements applied, got %d objects", count)
		}
	})

	t.Run("rollback drops the schema", func(t *testing.T) {
		m := migratedManager(t)

		db, err := m.Open(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name = 'tracks'").Scan(&count); err != nil {
			t.Fatalf("failed to check tables: %v", err)
		}
		if count != 0 {
			t.Error("expected tracks table to be dropped")
		}

		if err := RollbackMigration(db); err == nil {
			t.Error("expected rollback with nothing applied to fail")
		}
	})
}
