package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"daycal/internal/config"
	"daycal/internal/engine"
	"daycal/internal/store"
	"daycal/internal/timewin"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// CLIFlags is the snapshot of persistent flags threaded to subcommands.
type CLIFlags struct {
	ConfigPath string
	JSON       bool
	Verbose    bool
	Quiet      bool
}

// CLIContext carries everything a subcommand needs: resolved config, logger,
// the open store, and the sync engine built on top of it. Assembled once in
// PersistentPreRunE and attached to the command context.
type CLIContext struct {
	Flags   CLIFlags
	Cfg     *config.Config
	CfgPath string
	Logger  *slog.Logger
	Window  timewin.Config
	Store   *store.SQLiteStore
	Engine  *engine.Engine
}

type cliContextKey struct{}

func withCLIContext(ctx context.Context, cc *CLIContext) context.Context {
	return context.WithValue(ctx, cliContextKey{}, cc)
}

// mustCLIContext retrieves the CLIContext installed by the root pre-run.
// Panics when called from a command path that skipped setup; that is a
// programming error, not a runtime condition.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("CLIContext missing from command context")
	}

	return cc
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "daycal",
		Short:   "Desktop calendar and reminders client",
		Long:    "A calendar agenda, reminder, and sync client with a local event store.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		// PersistentPreRunE assembles the CLI context (config, logger, store,
		// engine) before every command and attaches it to the command context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := newCLIContext()
			if err != nil {
				return err
			}

			cmd.SetContext(withCLIContext(cmd.Context(), cc))

			return nil
		},
		// The store holds an open database handle; close it after the command
		// finishes regardless of outcome.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if cc, ok := cmd.Context().Value(cliContextKey{}).(*CLIContext); ok && cc.Store != nil {
				_ = cc.Store.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "log in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	// Register subcommands.
	cmd.AddCommand(newAgendaCmd())
	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newEditCmd())
	cmd.AddCommand(newMvCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newCalendarsCmd())
	cmd.AddCommand(newRemindersCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newWatchCmd())

	return cmd
}

// newCLIContext loads config, builds the logger, opens the local store, and
// wires the engine. Zero-config first run: a missing config file yields
// defaults and gets written back once the engine initializes the calendar
// selection.
func newCLIContext() (*CLIContext, error) {
	cfgPath := flagConfigPath
	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath()
	}

	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := buildLogger(cfg)

	window, err := timewin.NewConfig(cfg.Calendar.TimeZone, cfg.FirstWeekday())
	if err != nil {
		return nil, fmt.Errorf("invalid calendar settings: %w", err)
	}

	st, err := store.NewSQLiteStore(cfg.DBPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}

	eng := engine.New(engine.Config{
		Store:        st,
		Settings:     cfg,
		SettingsPath: cfgPath,
		Window:       window,
		Logger:       logger,
	})

	return &CLIContext{
		Flags: CLIFlags{
			ConfigPath: flagConfigPath,
			JSON:       flagJSON,
			Verbose:    flagVerbose,
			Quiet:      flagQuiet,
		},
		Cfg:     cfg,
		CfgPath: cfgPath,
		Logger:  logger,
		Window:  window,
		Store:   st,
		Engine:  eng,
	}, nil
}

// buildLogger creates an slog.Logger configured by the loaded config and CLI
// flags. The config log level provides the baseline; --verbose and --quiet
// override it because CLI flags always win. Text handler on a terminal, JSON
// when piped or when --json is set.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo

	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if flagJSON || !isatty.IsTerminal(os.Stderr.Fd()) {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
