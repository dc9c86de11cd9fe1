package db

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpen_MigratesToLatest(t *testing.T) {
	ctx := context.Background()
	d, err := Open(ctx, filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = Close(d) })

	sqlDB, err := d.DB()
	if err != nil {
		t.Fatal(err)
	}
	v, err := Version(ctx, sqlDB)
	if err != nil {
		t.Fatal(err)
	}
	if v != 2 {
		t.Fatalf("expected schema version 2, got %d", v)
	}
	for _, table := range []string{"drafts", "submission_attempts"} {
		if !d.Migrator().HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}
	// Re-running is a no-op.
	if err := Migrate(ctx, sqlDB, nil); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestDSN(t *testing.T) {
	if got := dsn("a.db"); got != "a.db?_busy_timeout=5000&_foreign_keys=on" {
		t.Fatalf("dsn = %s", got)
	}
	if got := dsn("file:a.db?mode=rwc"); got != "file:a.db?mode=rwc&_busy_timeout=5000&_foreign_keys=on" {
		t.Fatalf("dsn = %s", got)
	}
}
