package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/gridedit/internal/codec"
	"github.com/JonMunkholm/gridedit/internal/config"
	"github.com/JonMunkholm/gridedit/internal/core"
	"github.com/JonMunkholm/gridedit/internal/logging"
	"github.com/JonMunkholm/gridedit/internal/storage"
	"github.com/JonMunkholm/gridedit/internal/web"
)

func main() {
	// Overload lets a local .env win over the shell environment.
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	snapshots, err := storage.Open(ctx, cfg.Snapshot)
	if err != nil {
		slog.Error("failed to open snapshot store", "error", err)
		os.Exit(1)
	}

	opts := []core.Option{
		core.WithFiles(codec.NewFiles(codec.WithMaxBytes(cfg.IO.MaxFileSize))),
		core.WithReindexer(cfg.Reindex.Workers, cfg.Reindex.PollInterval),
		core.WithIOLimiter(core.NewIOLimiter(cfg.IO.MaxConcurrent, cfg.IO.MaxWaitTime)),
	}
	var lister web.SnapshotLister
	if snapshots != nil {
		opts = append(opts, core.WithSnapshots(snapshots))
		lister = snapshots
	}
	workbook := core.NewWorkbook(opts...)

	// Background jobs stop when jobCtx is cancelled.
	jobCtx, cancelJobs := context.WithCancel(ctx)
	jobsDone := make(chan struct{})
	go func() {
		defer close(jobsDone)
		if err := workbook.Run(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("reindexer stopped", "error", err)
		}
	}()

	if snapshots != nil && cfg.Snapshot.Autosave() {
		go func() {
			err := workbook.RunAutosave(jobCtx, core.AutosaveConfig{
				Interval: cfg.Snapshot.Interval,
				Key:      cfg.Snapshot.Key,
			})
			if err != nil {
				slog.Error("autosave stopped", "error", err)
			}
		}()
	}

	server := web.NewServer(workbook, lister, cfg)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// A final snapshot before the store goes away.
		if snapshots != nil {
			if key, err := workbook.SnapshotIfDirty(shutdownCtx, cfg.Snapshot.Key); err != nil {
				slog.Warn("final snapshot failed", "error", err)
			} else if key != "" {
				slog.Info("final snapshot written", "key", key)
			}
		}

		status := workbook.Limiter().Status()
		if status.Active > 0 {
			slog.Info("waiting for file operations to complete", "active", status.Active)
			if err := workbook.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("file operations did not complete in time", "error", err)
			}
		}

		cancelJobs()
		<-jobsDone
	}()

	exitCode := 0
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		exitCode = 1
		cancelJobs()
	}

	// Start returns as soon as Shutdown begins; wait for the drain above.
	<-jobsDone
	if snapshots != nil {
		if err := snapshots.Close(); err != nil {
			slog.Warn("closing snapshot store", "error", err)
		}
	}
	slog.Info("server stopped")
	os.Exit(exitCode)
}
