package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/alamicos/scoreboard/internal/config"
	"github.com/alamicos/scoreboard/internal/handler/health"
	"github.com/alamicos/scoreboard/internal/scoreboard"
	"github.com/alamicos/scoreboard/internal/server"
	"github.com/alamicos/scoreboard/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	boards, err := cfg.BoardList()
	if err != nil {
		return fmt.Errorf("loading boards: %w", err)
	}

	// --- Backing store ---
	// A nil store is local-storage mode, not an error.
	var st scoreboard.Store
	checks := map[string]health.Checker{}
	if cfg.StoreURL == "" {
		logger.Warn("no STORE_URL configured, clients will keep scores locally")
	} else {
		backend, err := store.Open(ctx, cfg.StoreDriver, cfg.StoreURL)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer backend.Close()
		logger.Info("connected to store", "driver", cfg.StoreDriver)

		st = backend
		checks[cfg.StoreDriver] = backend
	}

	svc, err := scoreboard.NewService(st, boards, scoreboard.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	if cfg.Seed {
		if err := server.Seed(ctx, logger, svc); err != nil {
			return fmt.Errorf("seeding boards: %w", err)
		}
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Service: svc,
		Checks:  checks,
		SiteURL: cfg.SiteURL,
		SPADir:  cfg.SPADir,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr, "boards", len(boards))
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}
