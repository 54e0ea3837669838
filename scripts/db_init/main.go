package main

import (
	"context"
	"fmt"
	"os"

	dbfs "github.com/garnizeh/ats/db"
	"github.com/garnizeh/ats/internal/config"
	"github.com/garnizeh/ats/internal/db"
)

func main() {
	ctx := context.Background()
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	targets := []struct {
		path string
		dir  string
		seed bool
	}{
		{cfg.Sandbox.DatabasePath, dbfs.SandboxMigrations, true},
		{cfg.Client.SessionPath, dbfs.ClientMigrations, false},
	}
	for _, tgt := range targets {
		if err := initDB(ctx, tgt.path, tgt.dir, tgt.seed); err != nil {
			fmt.Fprintf(os.Stderr, "DB init error (%s): %v\n", tgt.path, err)
			os.Exit(1)
		}
		fmt.Printf("Initialized %s\n", tgt.path)
	}

	fmt.Println("Databases initialized successfully.")
}

func initDB(ctx context.Context, path, dir string, seed bool) error {
	database, err := db.New(ctx, path)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.Migrate(ctx, database, dbfs.Migrations, dir); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if seed {
		if err := db.Seed(ctx, database, dbfs.SeedFiles, dbfs.SandboxSeed); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}
	return nil
}
