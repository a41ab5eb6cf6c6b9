package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ethereumIndexer/internal/transform"
)

func runTransform(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.ValidateRun(); err != nil {
		return err
	}
	address, err := cfg.ContractAddress()
	if err != nil {
		return err
	}

	registry, err := newRegistry()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	params := transform.Params{
		Address:   address,
		NetworkID: cfg.NetworkID,
		Store:     store,
		Logger:    logger,
	}
	transformer, err := registry.New(cfg.Transformer, params)
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		srv := startMetricsServer(cfg.MetricsAddr, stop, logger)
		defer shutdownServer(srv, logger)
	}

	runner := transform.NewRunner(transform.RunConfig{
		PollInterval: cfg.PollInterval,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Once:         cfg.Once,
	}, transformer, params)

	collections := params.Collections()
	logger.Info("transformer start",
		zap.String("transformer", cfg.Transformer),
		zap.String("address", address.Hex()),
		zap.Uint64("network_id", cfg.NetworkID),
		zap.String("store", cfg.Store),
		zap.String("raw_collection", collections.RawTransactions()),
		zap.String("state_collection", collections.State()),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Bool("once", cfg.Once),
	)

	err = runner.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("transformer stopped")
		return nil
	}
	return err
}

func startMetricsServer(addr string, stop context.CancelFunc, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
			stop()
		}
	}()
	logger.Info("metrics server listening", zap.String("addr", addr))
	return srv
}

func shutdownServer(srv *http.Server, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("metrics server shutdown", zap.Error(err))
	}
}

