package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/01phanto/EcoLedger/pkg/config"
)

const version = "1.0.0"

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// startServer is a variable so tests can stub the long-running server.
var startServer = runServer

// Run dispatches a subcommand. Exit codes: 0 ok, 1 check failed, 2 usage or runtime error.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		return startServer(stderr)
	}

	switch args[1] {
	case "serve", "server":
		return startServer(stderr)
	case "score":
		return runScoreCmd(args[2:], stdout, stderr)
	case "co2":
		return runCO2Cmd(args[2:], stdout, stderr)
	case "verify":
		return runVerifyCmd(args[2:], stdout, stderr)
	case "stats":
		return runStatsCmd(args[2:], stdout, stderr)
	case "export":
		return runExportCmd(args[2:], stdout, stderr)
	case "version":
		_, _ = fmt.Fprintf(stdout, "ecoledger %s\n", version)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintf(w, "EcoLedger %s\n\n", version)
	_, _ = fmt.Fprintln(w, "USAGE:")
	_, _ = fmt.Fprintln(w, "  ecoledger <command> [flags]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "COMMANDS:")
	printCommand(w, "serve", "Run the HTTP API (default)")
	printCommand(w, "score", "Score one verification input")
	printCommand(w, "co2", "Estimate CO2 absorption and credits")
	printCommand(w, "verify", "Verify the ledger or an archived bundle (--bundle)")
	printCommand(w, "stats", "Print ledger statistics")
	printCommand(w, "export", "Archive the ledger to the configured sink")
	printCommand(w, "version", "Show version information")
	printCommand(w, "help", "Show this help")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "Configuration comes from ECOLEDGER_CONFIG (YAML) and environment variables.")
}

func printCommand(w io.Writer, name, desc string) {
	_, _ = fmt.Fprintf(w, "  %-10s %s\n", name, desc)
}

// newLogger builds the process logger from server config.
func newLogger(cfg config.ServerConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
