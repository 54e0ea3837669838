package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/garnizeh/ats/api"
	dbfs "github.com/garnizeh/ats/db"
	"github.com/garnizeh/ats/internal/config"
	"github.com/garnizeh/ats/internal/db"
	"github.com/garnizeh/ats/internal/repository/sqlite"
	"github.com/garnizeh/ats/internal/scoring"
	"github.com/garnizeh/ats/internal/storage"
	"github.com/garnizeh/ats/internal/tasks"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	var seed = flag.Bool("seed", true, "Insert the sample job postings")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	api.SetLogger(logger)
	logger.Info("starting ATS sandbox", "version", version, "build_time", buildTime)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open database connection
	conn, err := db.New(ctx, cfg.Sandbox.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Error("closing DB", "err", err)
		}
	}()

	if err := db.Migrate(ctx, conn, dbfs.Migrations, dbfs.SandboxMigrations); err != nil {
		log.Fatalf("Failed to migrate DB: %v", err)
	}
	if *seed {
		if err := db.Seed(ctx, conn, dbfs.SeedFiles, dbfs.SandboxSeed); err != nil {
			log.Fatalf("Failed to seed DB: %v", err)
		}
	}

	resumes, err := storage.NewResumes(cfg.Sandbox.ResumeDir)
	if err != nil {
		log.Fatalf("Failed to prepare resume storage: %v", err)
	}

	repo := sqlite.New(conn, logger)
	pool := tasks.NewWorkerPool(repo, map[string]tasks.Handler{
		tasks.TypeScoreApplicant: scoring.NewTaskHandler(repo, repo, resumes, logger),
	}, logger, cfg.Sandbox.Workers)

	server := &http.Server{
		Addr:         cfg.Sandbox.Addr,
		Handler:      api.SetupRoutes(cfg, version, buildTime, conn, resumes, pool),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	pool.Start(ctx)
	defer pool.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", cfg.Sandbox.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		// Give outstanding requests 30 seconds to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
	logger.Info("server exited")
}
