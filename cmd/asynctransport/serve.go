package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/smithcommajoseph/async-transport/internal/application/workers"
	"github.com/smithcommajoseph/async-transport/internal/config"
	"github.com/smithcommajoseph/async-transport/pkg/api/grpc"
	"github.com/smithcommajoseph/async-transport/pkg/api/http"
	"github.com/smithcommajoseph/async-transport/pkg/api/websocket"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP, WebSocket and gRPC servers",
		Long:  "Start the service. Configuration is read from the environment; REDIS_ADDR selects Redis-backed events and storage.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := initLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting asynctransport",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	comps, err := newComponents(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer comps.close(logger)

	workerPool := workers.NewPool(
		cfg.Workers.PoolSize,
		cfg.Workers.QueueSize,
		comps.metrics,
		logger,
		cfg.Workers.HealthCheckInterval,
	)
	if err := workerPool.Start(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	orchestratorMgr := comps.newManager(cfg, workerPool, logger)

	httpServer := http.NewServer(&http.Config{
		Addr:         cfg.GetHTTPAddr(),
		Orchestrator: orchestratorMgr,
		Gatherer:     comps.metrics.Registry(),
		Workers:      workerPool.Health(),
		Logger:       logger,
	})

	wsHandler := websocket.NewHandler(comps.eventBus, orchestratorMgr, logger)
	httpServer.SetupWebSocket(wsHandler.HandleInvocationStream)

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Addr:   cfg.GetGRPCAddr(),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create gRPC server: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()
	go func() {
		if err := grpcServer.Start(); err != nil {
			errCh <- err
		}
	}()

	logger.Info("asynctransport started",
		zap.String("http_addr", cfg.GetHTTPAddr()),
		zap.String("grpc_addr", cfg.GetGRPCAddr()),
		zap.Int("worker_pool_size", cfg.Workers.PoolSize),
		zap.String("default_strategy", string(cfg.Strategy())))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var serveErr error
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case serveErr = <-errCh:
		logger.Error("server failed", zap.Error(serveErr))
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	grpcServer.SetServing(false)

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	if err := orchestratorMgr.Shutdown(shutdownCtx); err != nil {
		logger.Error("orchestrator shutdown error", zap.Error(err))
	}

	if err := workerPool.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker pool shutdown error", zap.Error(err))
	}

	logger.Info("asynctransport shut down complete")
	return serveErr
}
