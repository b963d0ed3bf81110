package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"daycal/internal/config"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run until interrupted, following external settings changes",
		Long: `Load the rolling window and stay running. Edits to the config file made by
another process (calendar selection, default calendar, cache tunables) are
picked up live: the cache is dropped and the window reloaded. Ctrl-C exits.`,
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := shutdownContext(cmd.Context(), cc.Logger)

	cleanup, err := writePIDFile(filepath.Join(config.DefaultDataDir(), "watch.pid"))
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cc.Engine.EnsureAuthorized(ctx); err != nil {
		return err
	}

	if err := cc.Engine.Reload(ctx); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}

	cc.Engine.Subscribe(func() {
		stats := cc.Engine.Stats()
		cc.Statusf("window refreshed: %d events, %d reminders\n",
			stats.WorkingSetSize, stats.ReminderCount)
	})

	watcher, err := config.NewWatcher(cc.CfgPath, cc.Logger)
	if err != nil {
		return fmt.Errorf("watching %s: %w", cc.CfgPath, err)
	}
	defer watcher.Close()

	cc.Statusf("watching %s (Ctrl-C to exit)\n", cc.CfgPath)

	return watcher.Run(ctx, func() {
		fresh, err := config.Load(cc.CfgPath)
		if err != nil {
			cc.Logger.Warn("ignoring unreadable settings change",
				slog.String("path", cc.CfgPath),
				slog.String("error", err.Error()),
			)

			return
		}

		if err := cc.Engine.ApplySettings(ctx, fresh); err != nil {
			cc.Logger.Warn("applying settings change", slog.String("error", err.Error()))
		}
	})
}

// shutdownContext returns a context that cancels on the first SIGINT/SIGTERM
// and force-exits on the second, so a hung reload cannot trap the user.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("shutting down", slog.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("forcing exit", slog.String("signal", sig.String()))
			os.Exit(1)
		case <-parent.Done():
			return
		}
	}()

	return ctx
}
