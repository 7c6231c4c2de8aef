// Package app wires the feed, engine, and output components together and
// owns the application lifecycle: it starts the pollers and the detection
// cycle under an errgroup and tears everything down in reverse order on
// shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ironcrypto/aero-arb-mm-bot/internal/config"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the feed
// and engine goroutines, and blocks until the context is cancelled or a
// goroutine fails. On return it runs all registered cleanup functions.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting signal engine",
		slog.String("pair", a.cfg.Market.Pair),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)
	defer a.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := deps.DEXPoller.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("dex feed: %w", err)
	})

	if deps.CEXStream != nil {
		g.Go(func() error {
			err := deps.CEXStream.Run(ctx)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("cex stream: %w", err)
		})
	} else {
		g.Go(func() error {
			err := deps.CEXPoller.Run(ctx)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("cex feed: %w", err)
		})
	}

	g.Go(func() error {
		err := deps.Cycle.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return err
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			err := deps.Archiver.Run(ctx)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("archiver: %w", err)
		})
	}

	if err := g.Wait(); err != nil {
		a.logger.Error("application stopped with error", slog.String("error", err.Error()))
		return err
	}

	a.logger.Info("application stopped cleanly")
	return nil
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
