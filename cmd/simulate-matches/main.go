package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/simulate"
)

// Default configuration constants.
const (
	defaultMatches      = 1000
	defaultPlayers      = 200
	defaultParticipants = 10
	defaultReplays      = 50
	defaultUnsubmitted  = 20
	defaultTopN         = 50
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultSettle       = time.Minute
	defaultRunTimeout   = 10 * time.Minute
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:8080", "Base URL of the service")
		natsURL      = flag.String("nats", "", "Publish matches to this NATS server instead of HTTP")
		stream       = flag.String("stream", "LADDER_EVENTS", "JetStream stream name")
		token        = flag.String("token", "", "Admin bearer token")
		game         = flag.String("game", string(model.GameBGMI), "Game type (bgmi or cs2)")
		matches      = flag.Int("matches", defaultMatches, "Number of matches to generate")
		players      = flag.Int("players", defaultPlayers, "Size of the player pool")
		participants = flag.Int("participants", defaultParticipants, "Participants per match")
		replays      = flag.Int("replays", defaultReplays, "Matches re-sent to exercise duplicate detection")
		unsubmitted  = flag.Int("unsubmitted", defaultUnsubmitted, "Leave one in N results unsubmitted (0 disables)")
		workers      = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle       = flag.Duration("settle", defaultSettle, "Maximum wait for processing to catch up")
		topN         = flag.Int("top", defaultTopN, "Number of leaderboard rows to verify")
		outputFile   = flag.String("output", "", "Output file for generated matches (default: matches_TIMESTAMP.json)")
		logFile      = flag.String("log", "", "Log file for simulation output (default: simulate_TIMESTAMP.log)")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
		help         = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	if err := simulate.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &simulate.Config{
		BaseURL:      *baseURL,
		NATSURL:      *natsURL,
		NATSStream:   *stream,
		AdminToken:   *token,
		GameType:     model.GameType(*game),
		Matches:      *matches,
		Players:      *players,
		Participants: *participants,
		Replays:      *replays,
		Unsubmitted:  *unsubmitted,
		Workers:      *workers,
		Timeout:      *timeout,
		Settle:       *settle,
		TopN:         *topN,
		OutputFile:   *outputFile,
		LogFile:      *logFile,
		Verbose:      *verbose,
	}

	if err := simulate.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
