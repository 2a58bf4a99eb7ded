// Package main provides the CLI entrypoint for wisp.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wisp-notify/wisp/internal/config"
	"github.com/wisp-notify/wisp/internal/store"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose  bool
		stateDir string
		style    string
	}
	logger *slog.Logger

	// stateStore is the shared popup record directory
	stateStore *store.Store
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "wisp [message...]",
	Short: "Daemonless popup notifications for Wayland desktops",
	Long: `wisp shows a popup notification without a daemon.

Each invocation is its own process: it places itself below any popups
already on screen by consulting a shared state directory, displays for
its timeout, then removes itself. Concurrent wisps coordinate through
that directory alone.

Running wisp with message arguments is shorthand for "wisp show".`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	Args:    cobra.ArbitraryArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.Load(config.StylePath(globalOpts.style))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		dir := globalOpts.stateDir
		if dir == "" {
			dir, err = store.DefaultDir()
			if err != nil {
				return fmt.Errorf("failed to resolve state directory: %w", err)
			}
		}
		stateStore, err = store.Open(dir, logger)
		if err != nil {
			return fmt.Errorf("failed to open state directory: %w", err)
		}

		return nil
	},
	// Default to showing a popup when no subcommand is given.
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runShow(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.stateDir, "state-dir", "",
		"Path to the shared state directory (default: ~/.local/state/wisp)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.style, "style", "",
		"Style name under ~/.config/wisp/ or a path to a config file")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}
