// Package cmd implements the lectern CLI commands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lectern/lectern/internal/app"
	"github.com/lectern/lectern/internal/config"
	"github.com/lectern/lectern/internal/log"
)

var (
	flagVerbose bool
	flagJSONLog bool
)

var rootCmd = &cobra.Command{
	Use:   "lectern",
	Short: "Lectern - course materials Q&A",
	Long: `Lectern answers questions about ingested course materials.

The model decides per query whether to search course content, fetch a
course outline, or answer directly; every retrieved chunk is tracked as
a citation source.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLog, "log-json", false, "emit logs as JSON")
}

// newLogger builds the process logger from the persistent flags and installs
// it as the slog default.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level, JSON: flagJSONLog})
	slog.SetDefault(logger)
	return logger
}

// setupApp loads configuration and wires the application.
func setupApp(ctx context.Context, logger *slog.Logger) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger.Debug("configuration loaded", "config", cfg)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing application: %w", err)
	}
	return a, nil
}
