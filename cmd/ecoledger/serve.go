package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/01phanto/EcoLedger/pkg/api"
	"github.com/01phanto/EcoLedger/pkg/config"
	"github.com/01phanto/EcoLedger/pkg/observability"
	"github.com/01phanto/EcoLedger/pkg/service"
)

func runServer(stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	logger := newLogger(cfg.Server, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(ctx, &observability.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Environment:    "production",
		OTLPEndpoint:   cfg.Telemetry.Endpoint,
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
		Enabled:        cfg.Telemetry.Enabled,
		Insecure:       cfg.Telemetry.Insecure,
	})
	if err != nil {
		logger.Error("observability init failed", "error", err)
		return 2
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(sctx)
	}()

	chain, err := openChain(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 2
	}
	defer func() { _ = chain.Close() }()

	svc := service.New(chain,
		service.WithObservability(obs),
		service.WithLogger(logger.With("component", "service")),
	)
	srv, err := api.NewServer(svc,
		api.WithRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		api.WithLogger(logger.With("component", "api")),
	)
	if err != nil {
		logger.Error("api init failed", "error", err)
		return 2
	}
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ecoledger listening",
			"addr", httpServer.Addr,
			"backend", chain.Backend(),
			"relay", cfg.Relay.Mode,
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			return 2
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		srv.Close()
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(sctx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
			return 2
		}
	}
	return 0
}
