package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/01phanto/EcoLedger/pkg/archive"
	"github.com/01phanto/EcoLedger/pkg/carbon"
	"github.com/01phanto/EcoLedger/pkg/config"
	"github.com/01phanto/EcoLedger/pkg/contracts"
	"github.com/01phanto/EcoLedger/pkg/marketplace"
	"github.com/01phanto/EcoLedger/pkg/scoring"
)

func printJSON(w io.Writer, v any) int {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return 2
	}
	return 0
}

// runScoreCmd implements `ecoledger score`. Nothing is recorded.
func runScoreCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("score", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var in contracts.VerificationInput
	cmd.StringVar(&in.ProjectID, "project", "", "Project identifier")
	cmd.Int64Var(&in.TreeCount, "trees", 0, "Detected tree count")
	cmd.Int64Var(&in.ClaimedTrees, "claimed", 0, "Claimed tree count (REQUIRED, > 0)")
	cmd.Float64Var(&in.NDVIScore, "ndvi", 0, "NDVI vegetation score [0,1]")
	cmd.Float64Var(&in.IoTScore, "iot", 0, "IoT sensor score [0,1]")
	cmd.Float64Var(&in.AuditCheck, "audit", 0, "Field audit score [0,1]")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	report, err := scoring.NewAggregator().Aggregate(in)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	return printJSON(stdout, report)
}

// runCO2Cmd implements `ecoledger co2`.
func runCO2Cmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("co2", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		trees    int64
		age      string
		species  string
		env      string
		survival float64
		density  float64
		years    float64
		price    float64
		score    float64
	)
	cmd.Int64Var(&trees, "trees", 0, "Tree count")
	cmd.StringVar(&age, "age", "", "Tree age: seedling|young|mature|old_growth")
	cmd.StringVar(&species, "species", "", "Species: rhizophora|avicennia|laguncularia|conocarpus|general")
	cmd.StringVar(&env, "env", "", "Environment: optimal|good|moderate|poor")
	cmd.Float64Var(&survival, "survival", -1, "Survival rate [0,1]")
	cmd.Float64Var(&density, "density", 0, "Trees per hectare")
	cmd.Float64Var(&years, "years", 0, "Project duration in years")
	cmd.Float64Var(&price, "price", 0, "Carbon price per tonne, USD")
	cmd.Float64Var(&score, "score", -1, "Verification score [0,1]; adds a credit conversion")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	cfg := carbon.AbsorptionConfig{
		TreeAge:              carbon.TreeAge(age),
		Species:              carbon.Species(species),
		Environment:          carbon.Environment(env),
		ProjectDurationYears: years,
		CarbonPricePerTonne:  price,
	}
	if survival >= 0 {
		cfg.SurvivalRate = carbon.Float64(survival)
	}
	if density > 0 {
		cfg.TreesPerHectare = carbon.Float64(density)
	}

	est, err := carbon.EstimateAbsorption(trees, cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	out := map[string]any{"estimate": est}
	if score >= 0 {
		conv, err := carbon.Credits(est.AnnualCO2Kg, score)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		out["carbon_credits"] = conv
	}
	return printJSON(stdout, out)
}

// loadForCmd loads config and a stderr logger for one-shot commands.
func loadForCmd(stderr io.Writer) (*config.Config, *slog.Logger, bool) {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, nil, false
	}
	return cfg, newLogger(cfg.Server, stderr), true
}

func archiveConfig(cfg config.ArchiveConfig) archive.Config {
	return archive.Config{
		Type:     archive.SinkType(cfg.Type),
		Dir:      cfg.Dir,
		Bucket:   cfg.Bucket,
		Region:   cfg.Region,
		Endpoint: cfg.Endpoint,
		Prefix:   cfg.Prefix,
	}
}

// runVerifyCmd implements `ecoledger verify`.
//
// Without --bundle it re-verifies the configured durable log. With --bundle it
// fetches the archived bundle from the configured sink and verifies it.
//
// Exit codes:
//
//	0 = verification passed
//	1 = verification failed
//	2 = runtime error
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	var bundle string
	cmd.StringVar(&bundle, "bundle", "", "Archived bundle reference (sha256:...)")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	cfg, logger, ok := loadForCmd(stderr)
	if !ok {
		return 2
	}
	ctx := context.Background()

	if bundle != "" {
		sink, err := archive.NewSink(ctx, archiveConfig(cfg.Archive))
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		b, err := archive.Restore(ctx, sink, bundle)
		if err != nil {
			if errors.Is(err, contracts.ErrChainCorrupted) {
				_, _ = fmt.Fprintf(stdout, "FAIL %s: %v\n", bundle, err)
				return 1
			}
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		_, _ = fmt.Fprintf(stdout, "OK %s: %d entries, format %s\n", bundle, b.Size(), b.FormatVersion)
		return 0
	}

	// Open replays and checks every link; a corrupted log fails here.
	chain, err := openChain(ctx, cfg, logger)
	if err != nil {
		if errors.Is(err, contracts.ErrChainCorrupted) {
			_, _ = fmt.Fprintf(stdout, "FAIL: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer func() { _ = chain.Close() }()

	if err := chain.Verify(ctx); err != nil {
		_, _ = fmt.Fprintf(stdout, "FAIL: %v\n", err)
		return 1
	}
	for _, kind := range contracts.Kinds() {
		block, hash := chain.Head(kind)
		_, _ = fmt.Fprintf(stdout, "OK %-12s blocks=%d head=%s\n", kind, block, hash)
	}
	return 0
}

// runStatsCmd implements `ecoledger stats`.
func runStatsCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("stats", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	cfg, logger, ok := loadForCmd(stderr)
	if !ok {
		return 2
	}
	chain, err := openChain(context.Background(), cfg, logger)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer func() { _ = chain.Close() }()

	return printJSON(stdout, marketplace.NewView(chain).Stats())
}

// runExportCmd implements `ecoledger export`.
func runExportCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("export", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	cfg, logger, ok := loadForCmd(stderr)
	if !ok {
		return 2
	}
	ctx := context.Background()

	chain, err := openChain(ctx, cfg, logger)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer func() { _ = chain.Close() }()

	sink, err := archive.NewSink(ctx, archiveConfig(cfg.Archive))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	ref, b, err := archive.Archive(ctx, chain, sink)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	logger.Info("ledger archived", "ref", ref, "entries", b.Size(), "archive", cfg.Archive.Type)
	_, _ = fmt.Fprintln(stdout, ref)
	return 0
}
