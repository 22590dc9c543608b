package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/01phanto/EcoLedger/pkg/config"
	"github.com/01phanto/EcoLedger/pkg/ledger"
	"github.com/01phanto/EcoLedger/pkg/relay"
	"github.com/01phanto/EcoLedger/pkg/store"
)

// openChain opens the configured durable log and replays it.
func openChain(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*ledger.Chain, error) {
	log, err := store.Open(ctx, store.Options{
		Backend:     cfg.Storage.Backend,
		DataDir:     cfg.Storage.DataDir,
		DatabaseURL: cfg.Storage.DatabaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	opts := []ledger.Option{
		ledger.WithDefaultPrice(cfg.Ledger.DefaultPricePerCredit),
		ledger.WithLogger(logger.With("component", "ledger")),
	}
	r, err := buildRelay(ctx, cfg.Relay, logger)
	if err != nil {
		_ = log.Close()
		return nil, err
	}
	if r != nil {
		opts = append(opts, ledger.WithRelay(r, cfg.Relay.Timeout))
	}

	chain, err := ledger.Open(ctx, log, opts...)
	if err != nil {
		_ = log.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return chain, nil
}

func buildRelay(ctx context.Context, cfg config.RelayConfig, logger *slog.Logger) (ledger.Relay, error) {
	switch cfg.Mode {
	case "", "none":
		return nil, nil
	case "http":
		return relay.NewHTTPRelay(cfg.URL), nil
	case "redis":
		r := relay.NewRedisRelay(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.Stream)
		if err := r.Ping(ctx); err != nil {
			// issuances will be marked pending until redis is reachable
			logger.Warn("redis relay unreachable at startup", "addr", cfg.RedisAddr, "error", err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown relay mode %q", cfg.Mode)
	}
}
