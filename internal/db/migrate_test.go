package db_test

import (
	"context"
	"testing"
	"testing/fstest"

	dbfs "github.com/garnizeh/ats/db"
	"github.com/garnizeh/ats/internal/db"
)

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()

	d, err := db.New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	defer d.Close()

	for i := 0; i < 2; i++ {
		if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SandboxMigrations); err != nil {
			t.Fatalf("migrate run %d failed: %v", i+1, err)
		}
	}

	var count int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("scan schema_migrations count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 sandbox migrations recorded, got %d", count)
	}

	for _, table := range []string{"users", "jobs", "applicants", "tasks", "dead_letter_tasks"} {
		var name string
		if err := d.QueryRow(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name); err != nil {
			t.Fatalf("expected %s table: %v", table, err)
		}
	}
}

func TestMigrate_ClientAndSandboxShareTracking(t *testing.T) {
	ctx := context.Background()
	d, err := db.New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.ClientMigrations); err != nil {
		t.Fatalf("client migrate: %v", err)
	}
	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SandboxMigrations); err != nil {
		t.Fatalf("sandbox migrate: %v", err)
	}

	var count int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 migrations recorded, got %d", count)
	}
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	d, err := db.New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SandboxMigrations); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := db.Seed(ctx, d, dbfs.SeedFiles, dbfs.SandboxSeed); err != nil {
			t.Fatalf("seed run %d: %v", i+1, err)
		}
	}

	var count int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM jobs`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 seeded jobs, got %d", count)
	}

	if err := db.Seed(ctx, d, fstest.MapFS{}, "missing"); err != nil {
		t.Fatalf("missing seed dir must be ignored, got %v", err)
	}
}

func TestMigrate_BadSQL(t *testing.T) {
	ctx := context.Background()
	d, err := db.New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	fsys := fstest.MapFS{"m/0001_bad.sql": {Data: []byte("CREATE TABLE (")}}
	if err := db.Migrate(ctx, d, fsys, "m"); err == nil {
		t.Fatalf("expected error for invalid migration")
	}
}
