// Package commands provides the dealflow CLI subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/dealflow/config"
)

const appName = "dealflow"

// Version is stamped at build time.
var Version = "0.1.0"

// NewRootCmd builds the dealflow command tree.
func NewRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Startup pitch analysis pipeline",
		Long: `Dealflow ingests startup pitches (PDF decks, audio, video), enriches
and validates the extracted memo, synthesizes a due-diligence report,
and matches the company against an investor catalog.

All stages communicate via NATS JetStream; documents live in KV buckets.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newServeCmd(&configPath, &logLevel))
	cmd.AddCommand(newSubmitCmd(&configPath, &logLevel))
	cmd.AddCommand(newInvestorsCmd(&configPath, &logLevel))
	cmd.AddCommand(newBackfillCmd(&configPath, &logLevel))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})

	return cmd
}

// setupLogger installs a JSON slog handler at the requested level.
func setupLogger(logLevel string) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig loads either the named config file or the layered default
// chain.
func loadConfig(configPath string, logger *slog.Logger) (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.NewLoader(logger).Load()
}
