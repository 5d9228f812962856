package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iris-ai/irisd/pkg/auth"
	"github.com/iris-ai/irisd/pkg/cache"
	"github.com/iris-ai/irisd/pkg/config"
	"github.com/iris-ai/irisd/pkg/predictor"
	"github.com/iris-ai/irisd/pkg/server"
	"github.com/iris-ai/irisd/pkg/store"
	"github.com/iris-ai/irisd/pkg/telemetry"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the prediction API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := telemetry.NewLogger(cfg.Log, os.Stderr)

			tel, err := telemetry.Setup(ctx, cfg.Telemetry, telemetry.WithVersion(version))
			if err != nil {
				return fmt.Errorf("init telemetry: %w", err)
			}
			defer func() {
				shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tel.Shutdown(shutCtx); err != nil {
					logger.Error("telemetry shutdown", "error", err)
				}
			}()

			metrics, err := telemetry.NewMetrics(tel.Meter)
			if err != nil {
				return fmt.Errorf("init metrics: %w", err)
			}

			st, err := store.New(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("init store: %w", err)
			}
			defer func() { _ = st.Close() }()

			validator, err := auth.NewValidator(cfg.Auth)
			if err != nil {
				return fmt.Errorf("init validator: %w", err)
			}

			model := predictor.LoadOrUnavailable(ctx, logger, cfg.Model.Path,
				predictor.WithS3Config(cfg.Model.S3),
			)

			memo := cache.NewMemory()
			if err := metrics.ObserveCacheEntries(func() int64 { return int64(memo.Len()) }); err != nil {
				return fmt.Errorf("init cache gauge: %w", err)
			}

			opts := []server.Option{
				server.WithLogger(logger),
				server.WithMetrics(metrics),
				server.WithTracer(tel.Tracer),
			}
			if tel.Handler != nil {
				opts = append(opts, server.WithMetricsHandler(tel.Handler))
			}
			srv := server.New(cfg, validator, model, memo, st, opts...)

			logger.Info("starting irisd", "config", configPath, "version", version)
			err = srv.ListenAndServe(ctx)

			stats := memo.Stats()
			logger.Info("irisd stopped",
				"cache_entries", stats.Entries,
				"cache_hits", stats.Hits,
				"cache_misses", stats.Misses,
			)
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "irisd.yaml", "path to config file")
	return cmd
}
