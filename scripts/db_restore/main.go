package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/garnizeh/ats/internal/config"
)

func main() {
	from := flag.String("from", "", "Backup file (default: <sandbox db>.bak)")
	flag.Parse()

	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	dst := cfg.Sandbox.DatabasePath
	src := *from
	if src == "" {
		src = dst + ".bak"
	}

	srcFile, err := os.Open(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}

	// stale WAL files would be replayed over the restored copy
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(dst + suffix)
	}

	fmt.Printf("Database restored from %s. Restart the sandbox.\n", src)
}
