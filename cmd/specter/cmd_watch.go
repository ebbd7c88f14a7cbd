package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"specter/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a project and maintain its generated tests",
	Long: `Scans the project, then watches it for changes. Every settled change
to a source unit starts a healing session: generate or repair the
unit's test suite, run it, classify the outcome, and heal or escalate.
Blocks until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	a, err := newApp(path, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := a.scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}

	watcher, err := watch.NewWatcher(a.root, a.scanner, a.cfg.Watch.Debounce)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	logger.Info("watching",
		zap.String("root", a.root),
		zap.Int("units", n),
		zap.String("provider", a.gateway.Name()),
		zap.Int("workers", a.cfg.Heal.MaxWorkers),
	)

	// Returns after the signal lands and in-flight sessions finish.
	a.coord.Run(ctx, watcher.Events())
	logger.Info("shutting down")
	return nil
}
