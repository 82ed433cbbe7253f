package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwvelando/finance-formula/internal/catalog"
	"github.com/iwvelando/finance-formula/internal/config"
	"github.com/iwvelando/finance-formula/internal/server"
	"github.com/iwvelando/finance-formula/internal/telemetry"
	"github.com/iwvelando/finance-formula/pkg/constants"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		serverConfigPath string
		address          string
		maxBodySize      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the formula validation API over HTTP",
		Long: `Serve the formula validation API over HTTP.

The configuration file is watched; catalog changes take effect without a
restart. The server shuts down gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			serverCfg, err := server.LoadConfig(serverConfigPath)
			if err != nil {
				return err
			}
			if address != "" {
				serverCfg.Address = address
			}
			if maxBodySize != "" {
				size, err := server.ParseSize(maxBodySize)
				if err != nil {
					return fmt.Errorf("invalid --max-body-size: %w", err)
				}
				serverCfg.SetBodySizeBytes(size)
			}

			rt, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			if serverCfg.Logging != (config.LoggingConfig{}) {
				if rt.logger, err = initializeLogger(serverCfg.Logging, opts.logLevel); err != nil {
					return fmt.Errorf("failed to initialize logger: %w", err)
				}
			}
			defer func() { _ = rt.logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, rt, opts.configPath, serverCfg)
		},
	}

	cmd.Flags().StringVar(&serverConfigPath, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	cmd.Flags().StringVar(&address, "address", "", "listen address override, e.g. :8080")
	cmd.Flags().StringVar(&maxBodySize, "max-body-size", "", "request body limit override, e.g. 512KB")
	return cmd
}

func serve(ctx context.Context, rt *cliEnv, configPath string, serverCfg *server.Config) error {
	logger := rt.logger

	if err := telemetry.Init(ctx, rt.conf.Telemetry, version); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		telemetry.Shutdown(shutdownCtx)
	}()

	recorder, err := telemetry.Default()
	if err != nil {
		return fmt.Errorf("failed to create telemetry recorder: %w", err)
	}

	store := catalog.NewStore(catalog.New(logger, rt.conf.Catalog, rt.engine))
	if rt.configFound {
		if _, err := config.Watch(configPath, logger, func(updated *config.Configuration) {
			for _, warning := range updated.ValidateConfiguration() {
				logger.Warn("Configuration warning: "+warning,
					zap.String("op", "main.serve"),
				)
			}
			store.Replace(catalog.New(logger, updated.Catalog, rt.engine))
		}); err != nil {
			return fmt.Errorf("failed to watch configuration: %w", err)
		}
	}

	handler := server.NewHandler(logger, server.Options{
		Engine:           rt.engine,
		Catalog:          store,
		Recorder:         recorder,
		MaxBodySize:      serverCfg.BodySizeBytes(),
		BatchConcurrency: rt.conf.Formula.BatchConcurrency,
		PlaceholderValue: rt.conf.Formula.PlaceholderValue,
		Version:          version,
	})

	httpServer := &http.Server{
		Addr:              serverCfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("formula API listening",
			zap.String("op", "main.serve"),
			zap.String("address", serverCfg.Address),
			zap.Int64("maxBodySize", serverCfg.BodySizeBytes()),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down formula API",
		zap.String("op", "main.serve"),
		zap.Duration("timeout", serverCfg.ShutdownTimeoutDuration()),
	)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeoutDuration())
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
