package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"l4lb/internal/config"
	"l4lb/internal/health"
	"l4lb/internal/logging"
	"l4lb/internal/metrics"
	"l4lb/internal/pool"
	"l4lb/internal/proxy"
	"l4lb/internal/selector"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the proxy",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return err
	}

	backendPool, err := pool.New(cfg.Backends())
	if err != nil {
		return err
	}

	monitor := health.New(health.Config{
		FailureThreshold: uint32(cfg.LoadBalancer.Health.PassiveMonitoring.FailureThreshold),
		SuccessThreshold: uint32(cfg.LoadBalancer.Health.PassiveMonitoring.SuccessThreshold),
		Enabled:          cfg.PassiveMonitoringEnabled(),
	}, logger)

	sel := selector.New(backendPool)

	p := proxy.New(proxy.Config{
		ListenAddress:            cfg.LoadBalancer.ListenAddress,
		ListenPort:               cfg.LoadBalancer.ListenPort,
		ConnectTimeout:           time.Duration(cfg.LoadBalancer.Connection.ConnectTimeoutMs) * time.Millisecond,
		MaxConcurrentConnections: cfg.LoadBalancer.Connection.MaxConcurrentConnections,
	}, sel, monitor, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher, err := config.NewWatcher(configPath, logger, func(reloaded *config.Config) {
		if err := backendPool.UpdateBackends(reloaded.Backends()); err != nil {
			logger.Error().Err(err).Msg("rejected reloaded configuration")
		}
	})
	if err != nil {
		logger.Warn().Err(err).Msg("configuration hot-reload disabled")
	} else {
		go watcher.Run()
		defer watcher.Close()
	}

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Address, logger)
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	if err := p.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	p.Stop()
	return nil
}
