package db

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Migrate applies the .sql files found in dir of fsys, in lexical order, that
// are not yet recorded in the `schema_migrations` table. The version key is
// dir plus the file name without extension, so several schemas can share one
// tracking table.
func Migrate(ctx context.Context, d *DB, fsys fs.FS, dir string) error {
	if _, err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	files, err := sqlFiles(fsys, dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	for _, fname := range files {
		version := path.Join(dir, strings.TrimSuffix(fname, path.Ext(fname)))

		var count int
		if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, version).Scan(&count); err != nil {
			return fmt.Errorf("scan migration applied count: %w", err)
		}
		if count > 0 {
			continue
		}

		b, err := fs.ReadFile(fsys, path.Join(dir, fname))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", fname, err)
		}
		if _, err := d.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("exec migration %s: %w", fname, err)
		}

		if _, err := d.Exec(ctx, `INSERT INTO schema_migrations (version, applied) VALUES (?, strftime('%s','now'))`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", fname, err)
		}
	}

	return nil
}

// Seed executes every .sql file in dir of fsys. Seed files must be
// idempotent (INSERT OR IGNORE and the like); a missing dir is not an error.
func Seed(ctx context.Context, d *DB, fsys fs.FS, dir string) error {
	files, err := sqlFiles(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read seed dir: %w", err)
	}

	for _, fname := range files {
		b, err := fs.ReadFile(fsys, path.Join(dir, fname))
		if err != nil {
			return fmt.Errorf("read seed %s: %w", fname, err)
		}
		if _, err := d.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("exec seed %s: %w", fname, err)
		}
	}
	return nil
}

func sqlFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name := e.Name(); strings.HasSuffix(strings.ToLower(name), ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files, nil
}
