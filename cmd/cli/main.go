package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nickyhof/RouteDB"
	"github.com/nickyhof/RouteDB/config"
	"github.com/nickyhof/RouteDB/telemetry"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	configPath string
	logLevel   string
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "routedb",
		Short: "RouteDB - SQL across several storage engines",
		Long: `RouteDB runs SQL batches across named storage engines.

CREATE TABLE ... ENGINE = name puts a table on an engine; every later
statement on that table is routed there. Without arguments an
interactive shell is started.`,
		Version:      Version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := openInstance(cmd.Context())
			if err != nil {
				return err
			}
			defer instance.Close()

			cli := NewCLI(instance, cmd.OutOrStdout())
			printBanner(cmd.OutOrStdout())
			return cli.Run(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newConfigCommand())
	return rootCmd
}

// loadConfig reads the config file and applies the command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func openInstance(ctx context.Context) (*RouteDB.Instance, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	return RouteDB.Open(ctx, cfg, RouteDB.WithLogger(logger))
}

// newLogger writes to stderr so it never mixes with query output.
func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	return telemetry.NewLogger(telemetry.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: "stderr",
	})
}

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create configuration files",
	}

	var out string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		Long: `Write the default configuration as YAML: an in-memory default
engine, a shared sessionStorage engine and a git-backed localStorage engine.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" || out == "-" {
				return config.Write(cmd.OutOrStdout(), config.Default())
			}
			file, err := os.OpenFile(out, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			defer file.Close()
			if err := config.Write(file, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s✓ Wrote %s%s\n", SuccessColor, out, ResetColor)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&out, "out", "o", "", "file to write (default stdout)")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return config.Write(cmd.OutOrStdout(), cfg)
		},
	}

	configCmd.AddCommand(initCmd, showCmd)
	return configCmd
}
