package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nickyhof/RouteDB"
	"github.com/nickyhof/RouteDB/config"
	"github.com/nickyhof/RouteDB/telemetry"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		addr       string
		httpAddr   string
	)

	cmd := &cobra.Command{
		Use:          "routedb-server",
		Short:        "Serve RouteDB over TCP and HTTP",
		Version:      Version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("http-addr") {
				cfg.Server.HTTPAddr = httpAddr
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path")
	cmd.Flags().StringVar(&addr, "addr", "", "TCP listen address (overrides server.addr)")
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address, empty disables (overrides server.http_addr)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, configPath string) error {
	logger, err := telemetry.NewLogger(telemetry.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	metrics := telemetry.NewMetrics()

	instance, err := RouteDB.Open(ctx, cfg, RouteDB.WithLogger(logger), RouteDB.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("failed to open instance: %w", err)
	}
	defer instance.Close()

	opts := []Option{WithLogger(logger), WithMetrics(metrics), WithMaxConns(cfg.Server.MaxConns)}
	if cfg.Server.JWTSecret != "" {
		opts = append(opts, WithAuth(&AuthConfig{JWTSecret: cfg.Server.JWTSecret, Issuer: cfg.Server.JWTIssuer}))
	}
	server := NewServer(instance, opts...)

	if err := server.Start(cfg.Server.Addr); err != nil {
		return err
	}
	defer server.Stop()

	if cfg.Server.HTTPAddr != "" {
		_, err := server.ServeHTTP(cfg.Server.HTTPAddr, HTTPConfig{
			RateLimit: cfg.Server.RateLimit,
			RateBurst: cfg.Server.RateBurst,
		})
		if err != nil {
			return fmt.Errorf("failed to start HTTP API: %w", err)
		}
	}

	if configPath != "" {
		go watchConfig(ctx, configPath, logger)
	}

	printBanner(server.Addr(), cfg)

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	return nil
}

// watchConfig applies settings that can change without a restart. Only the
// log level is live; engine and listener changes need a restart.
func watchConfig(ctx context.Context, path string, logger zerolog.Logger) {
	err := config.Watch(ctx, path, func(cfg *config.Config, err error) {
		if err != nil {
			logger.Warn().Err(err).Msg("config reload failed")
			return
		}
		if err := telemetry.SetLevel(cfg.Log.Level); err != nil {
			logger.Warn().Err(err).Msg("invalid log level in reloaded config")
			return
		}
		logger.Info().Str("level", cfg.Log.Level).Msg("config reloaded")
	})
	if err != nil {
		logger.Warn().Err(err).Msg("config watch stopped")
	}
}

func printBanner(addr string, cfg *config.Config) {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Printf("║   RouteDB SQL Server v%-15s  ║\n", Version)
	fmt.Println("║   SQL across pluggable engines        ║")
	fmt.Println("╚═══════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Listening on %s", addr)
	if cfg.Server.HTTPAddr != "" {
		fmt.Printf(", HTTP on %s", cfg.Server.HTTPAddr)
	}
	fmt.Println()
	fmt.Printf("Default engine: %s\n", cfg.Default)
	fmt.Println("Send SQL batches (one per line), 'quit' to disconnect")
	fmt.Println()
}
