package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/garnizeh/ats/internal/config"
	"github.com/garnizeh/ats/internal/db"
)

func main() {
	out := flag.String("out", "", "Backup file (default: <sandbox db>.bak)")
	flag.Parse()

	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	src := cfg.Sandbox.DatabasePath
	dst := *out
	if dst == "" {
		dst = src + ".bak"
	}
	// VACUUM INTO refuses to overwrite
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	database, err := db.New(ctx, src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	// a consistent copy even while the sandbox is serving
	if _, err := database.Exec(ctx, `VACUUM INTO ?`, dst); err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Database backup written to %s.\n", dst)
}
