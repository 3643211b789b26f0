// Package main is the listen-api entry point.
//
//	listen-api [serve]      run the HTTP API (default)
//	listen-api migrate      create or upgrade the SQLite schema and exit
//	listen-api version      print the build version
//
// Every command reads the same configuration: --config (TOML), then .env,
// then the environment.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/listen-api/internal/config"
	"github.com/sakif/listen-api/internal/logging"
	"github.com/sakif/listen-api/internal/repository/sqlite"
	"github.com/sakif/listen-api/internal/server"
)

// version is overridden at build time:
//
//	go build -ldflags "-X main.version=v1.2.0" ./cmd/server
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	root := &cobra.Command{
		Use:           "listen-api",
		Short:         "Practice journal API for musicians",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")

	root.AddCommand(serve)
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(configPath)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})

	return root
}

// setup loads configuration, builds the logger and makes sure the database
// directory exists. The returned func flushes and closes the log file.
func setup(configPath string) (*config.Config, *slog.Logger, func() error, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, closeLog, err := logging.New(os.Stdout, cfg.Log.LoggingOptions())
	if err != nil {
		return nil, nil, nil, err
	}

	if cfg.Database.Path != ":memory:" {
		dir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			closeLog()
			return nil, nil, nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	return cfg, logger, closeLog, nil
}

func runServe(configPath string) error {
	cfg, logger, closeLog, err := setup(configPath)
	if err != nil {
		return err
	}
	defer closeLog()

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		return err
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func runMigrate(configPath string) error {
	cfg, logger, closeLog, err := setup(configPath)
	if err != nil {
		return err
	}
	defer closeLog()

	db, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("database migrated", slog.String("path", cfg.Database.Path))
	return nil
}
