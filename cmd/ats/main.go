package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/garnizeh/ats/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	streams := cli.IO{In: os.Stdin, Out: os.Stdout, ErrOut: os.Stderr}
	if err := cli.Execute(ctx, streams, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "ats: %v\n", err)
		os.Exit(1)
	}
}
