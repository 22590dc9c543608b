package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01phanto/EcoLedger/pkg/config"
	"github.com/01phanto/EcoLedger/pkg/contracts"
	"github.com/01phanto/EcoLedger/pkg/ledger"
	"github.com/01phanto/EcoLedger/pkg/scoring"
)

func run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := Run(append([]string{"ecoledger"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Help(t *testing.T) {
	code, out, _ := run("help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "USAGE:")
	assert.Contains(t, out, "export")
}

func TestRun_UnknownCommand(t *testing.T) {
	code, _, errOut := run("mint")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Unknown command: mint")
}

func TestRun_DefaultsToServer(t *testing.T) {
	orig := startServer
	defer func() { startServer = orig }()
	called := 0
	startServer = func(io.Writer) int { called++; return 0 }

	code, _, _ := run()
	assert.Equal(t, 0, code)
	code, _, _ = run("serve")
	assert.Equal(t, 0, code)
	assert.Equal(t, 2, called)
}

func TestRun_Score(t *testing.T) {
	code, out, _ := run("score", "-trees", "150", "-claimed", "160", "-ndvi", "0.85", "-iot", "0.8", "-audit", "0.8")
	require.Equal(t, 0, code)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.InDelta(t, 0.87, report["final_score"], 1e-9)
	assert.Equal(t, "Standard", report["quality_rating"])

	code, _, errOut := run("score", "-trees", "10", "-claimed", "0")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "claimed_trees")
}

func TestRun_CO2(t *testing.T) {
	code, out, _ := run("co2", "-trees", "1000", "-age", "mature", "-score", "0.8")
	require.Equal(t, 0, code)

	var res struct {
		Estimate struct {
			AnnualCO2Kg float64 `json:"co2_absorbed_kg"`
		} `json:"estimate"`
		Credits *struct {
			Total float64 `json:"total_credits"`
		} `json:"carbon_credits"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.InDelta(t, 12300.0, res.Estimate.AnnualCO2Kg, 1e-9)
	require.NotNil(t, res.Credits)
	assert.InDelta(t, 9.84, res.Credits.Total, 1e-9)

	code, _, _ = run("co2", "-trees", "10", "-species", "oak")
	assert.Equal(t, 2, code)
}

var testInput = contracts.VerificationInput{
	ProjectID:    "sundarbans-01",
	TreeCount:    150,
	ClaimedTrees: 160,
	NDVIScore:    0.85,
	IoTScore:     0.8,
	AuditCheck:   0.8,
}

func setupNode(t *testing.T) {
	t.Helper()
	t.Setenv("ECOLEDGER_CONFIG", "")
	t.Setenv("STORAGE_BACKEND", "file")
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("ARCHIVE_TYPE", "fs")
	t.Setenv("ARCHIVE_DIR", t.TempDir())
	t.Setenv("RELAY_MODE", "none")
	t.Setenv("LOG_LEVEL", "ERROR")

	cfg, err := config.Load()
	require.NoError(t, err)
	ctx := context.Background()
	chain, err := openChain(ctx, cfg, newLogger(cfg.Server, io.Discard))
	require.NoError(t, err)
	defer func() { require.NoError(t, chain.Close()) }()

	report, err := scoring.NewAggregator().Aggregate(testInput)
	require.NoError(t, err)
	_, err = chain.SubmitReport(ctx, *report)
	require.NoError(t, err)
	_, err = chain.IssueCredits(ctx, ledger.IssueRequest{ReportID: report.ReportID, NGOID: "ngo", Amount: 50})
	require.NoError(t, err)
}

func TestRun_StatsExportVerify(t *testing.T) {
	setupNode(t)

	code, out, _ := run("stats")
	require.Equal(t, 0, code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.EqualValues(t, 1, stats["reports"])
	assert.EqualValues(t, 50, stats["total_credits_issued"])

	code, out, _ = run("verify")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "OK report")

	code, out, _ = run("export")
	require.Equal(t, 0, code)
	ref := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(ref, "sha256:"))

	code, out, _ = run("verify", "-bundle", ref)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "2 entries")
}

func TestRun_VerifyMissingBundle(t *testing.T) {
	setupNode(t)
	code, _, _ := run("verify", "-bundle", "sha256:"+strings.Repeat("ab", 32))
	assert.Equal(t, 2, code)
}
