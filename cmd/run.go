package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tootrelay/tootrelay/internal/config"
	"github.com/tootrelay/tootrelay/internal/dependency"
	"github.com/tootrelay/tootrelay/internal/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start relaying channel posts",
	RunE:  runRelay,
}

func runRelay(_ *cobra.Command, _ []string) error {
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Graceful shutdown context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := dependency.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	msgBus := container.MessageBus()
	g.Go(func() error { return container.Telegram().Start(gctx) })
	g.Go(func() error { return container.Relay().Run(gctx, msgBus.InboundChan()) })
	g.Go(func() error { return container.Heartbeat().Start(gctx) })
	if addr := cfg.Metrics.Addr; addr != "" {
		g.Go(func() error { return metrics.Serve(gctx, addr, container.Metrics()) })
	}

	logger.Info("tootrelay: running, press Ctrl+C to stop",
		"instance", cfg.Mastodon.Instance,
		"visibility", cfg.Mastodon.Visibility,
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("relay stopped: %w", err)
	}
	logger.Info("tootrelay: shutdown complete")
	return nil
}
