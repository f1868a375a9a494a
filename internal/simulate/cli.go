package simulate

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/okian/ladder/pkg/logger"
)

// Log rotation for simulation output.
const (
	logMaxSizeMB  = 50
	logMaxBackups = 3
	logMaxAgeDays = 7
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string, verbose bool) error {
	if logFile == "" {
		logFile = "simulate_" + time.Now().Format("20060102_150405") + ".log"
	}

	level := "info"
	if verbose {
		level = "debug"
	}
	if err := logger.InitWithOptions(
		logger.WithLevel(level),
		logger.WithFormat(logger.FormatConsole),
		logger.WithFile(logFile, logMaxSizeMB, logMaxBackups, logMaxAgeDays, false),
	); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the match simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Ladder Match Simulator
======================

Generates completed matches, submits them to a running ladder service and
checks the resulting leaderboard against locally computed points.

Usage:
  go run ./cmd/simulate-matches [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8080")
  -nats string
        Publish matches to this NATS server instead of POST /matches/completed
  -stream string
        JetStream stream name (default "LADDER_EVENTS")
  -token string
        Admin bearer token
  -game string
        Game type, bgmi or cs2 (default "bgmi")
  -matches int
        Number of matches to generate (default 1000)
  -players int
        Size of the player pool (default 200)
  -participants int
        Participants per match (default 10)
  -replays int
        Matches re-sent to exercise duplicate detection (default 50)
  -unsubmitted int
        Leave one in N results unsubmitted, 0 disables (default 20)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -settle duration
        Maximum wait for processing to catch up (default 1m)
  -top int
        Number of leaderboard rows to verify (default 50)
  -output string
        Output file for generated matches (default: matches_TIMESTAMP.json)
  -log string
        Log file for simulation output (default: simulate_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Simulate with default settings
  go run ./cmd/simulate-matches

  # Larger run against a different address
  go run ./cmd/simulate-matches -matches 20000 -players 2000 -workers 32 -url http://localhost:9080

  # Publish through JetStream
  go run ./cmd/simulate-matches -nats nats://localhost:4222
`)
}
