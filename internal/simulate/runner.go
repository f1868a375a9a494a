package simulate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
)

// Run executes the complete simulation.
func Run(ctx context.Context, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting ladder match simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("natsURL", cfg.NATSURL),
		logger.String("game", string(cfg.GameType)),
		logger.Int("matches", cfg.Matches),
		logger.Int("players", cfg.Players),
		logger.Int("workers", cfg.Workers),
		logger.Int("topN", cfg.TopN))

	rd := newReader(cfg.BaseURL, cfg.GameType, cfg.AdminToken, cfg.Timeout)

	// Step 1: Check service health
	if err := rd.healthy(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate matches
	matches, err := generateMatches(ctx, cfg, stats, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("match generation failed: %w", err)
	}

	// Step 3: Submit matches concurrently
	baseline, err := rd.stats(ctx)
	if err != nil {
		return fmt.Errorf("stats retrieval failed: %w", err)
	}
	pub, err := newPublisher(ctx, cfg)
	if err != nil {
		return fmt.Errorf("publisher setup failed: %w", err)
	}
	delivered := submitMatches(ctx, cfg, pub, matches, stats)
	if err := pub.Close(); err != nil {
		log.Warn(ctx, "failed to close publisher", logger.Error(err))
	}
	if len(delivered) == 0 {
		return fmt.Errorf("no matches were accepted")
	}
	stats.ResultsSkipped = skippedResults(delivered)
	expected := expectedPoints(delivered)

	// Step 4: Wait for processing
	if err := waitSettled(ctx, cfg, rd, baseline.Processed+int64(len(delivered))); err != nil {
		log.Warn(ctx, "processing did not settle", logger.Error(err))
	}

	// Step 5: Force a full recalculation, then verify the leaderboard
	if updated, err := rd.updateRankings(ctx); err != nil {
		log.Warn(ctx, "rank recalculation failed", logger.Error(err))
	} else {
		log.Info(ctx, "rankings recalculated", logger.Any("updated", updated))
	}
	page, err := rd.leaderboard(ctx, cfg.TopN)
	if err != nil {
		return fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.LeaderboardEntries = len(page.Leaderboard)
	verifyErr := verifyLeaderboard(page, expected)

	// Step 6: Verify individual positions
	checkPositions(ctx, cfg, rd, expected, stats)

	// Step 7: Save matches to file
	if err := saveMatchesToFile(ctx, cfg, delivered); err != nil {
		log.Warn(ctx, "failed to save matches to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if verifyErr != nil {
		return fmt.Errorf("result verification failed: %w", verifyErr)
	}
	if stats.PositionMismatches > 0 {
		return fmt.Errorf("%w: %d of %d positions", ErrMismatch, stats.PositionMismatches, stats.PositionsChecked)
	}
	log.Info(ctx, "simulation completed successfully")
	return nil
}

// waitSettled polls /stats until the workers have processed target matches
// in total and the queue is empty, or cfg.Settle passes.
func waitSettled(ctx context.Context, cfg *Config, rd *reader, target int64) error {
	logger.Get().Info(ctx, "waiting for matches to be processed", logger.Int64("target", target))

	deadline := time.Now().Add(cfg.Settle)
	ticker := time.NewTicker(settlePollInterval)
	defer ticker.Stop()
	for {
		s, err := rd.stats(ctx)
		if err == nil && s.Processed >= target && s.QueueLength == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			if err == nil {
				err = fmt.Errorf("processed %d of %d matches, %d queued", s.Processed, target, s.QueueLength)
			}
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// checkPositions verifies the cfg.TopN strongest users one by one.
func checkPositions(ctx context.Context, cfg *Config, rd *reader, expected map[string]int64, stats *Stats) {
	users := topUsers(expected, cfg.TopN)
	var mismatches atomic.Int64

	var g errgroup.Group
	g.SetLimit(cfg.Workers)
	for _, userID := range users {
		g.Go(func() error {
			e, err := rd.position(ctx, userID)
			if err == nil {
				err = verifyPosition(e, userID, expected)
			}
			if err != nil {
				mismatches.Add(1)
				logger.Get().Warn(ctx, "position check failed", logger.String("userId", userID), logger.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.PositionsChecked = len(users)
	stats.PositionMismatches = int(mismatches.Load())
}

// topUsers returns up to n user ids ordered by expected points, then id.
func topUsers(expected map[string]int64, n int) []string {
	users := make([]string, 0, len(expected))
	for userID := range expected {
		users = append(users, userID)
	}
	sort.Slice(users, func(i, j int) bool {
		pi, pj := expected[users[i]], expected[users[j]]
		if pi != pj {
			return pi > pj
		}
		return users[i] < users[j]
	})
	if len(users) > n {
		users = users[:n]
	}
	return users
}

// saveMatchesToFile writes the delivered matches as a JSON array.
func saveMatchesToFile(ctx context.Context, cfg *Config, matches []model.Match) error {
	if len(matches) == 0 {
		return errors.New("no matches to save")
	}

	filename := cfg.OutputFile
	if filename == "" {
		filename = "matches_" + time.Now().Format("20060102_150405") + ".json"
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPerm); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(matches, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal matches: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "matches saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var acceptRate, matchesPerSecond float64
	if stats.MatchesSubmitted > 0 {
		acceptRate = float64(stats.MatchesAccepted) / float64(stats.MatchesSubmitted) * percentMultiplier
	}
	if stats.Duration > 0 {
		matchesPerSecond = float64(stats.MatchesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("matchesGenerated", stats.MatchesGenerated),
		logger.Int("matchesSubmitted", stats.MatchesSubmitted),
		logger.Int("matchesAccepted", stats.MatchesAccepted),
		logger.Int("matchesDuplicate", stats.MatchesDuplicate),
		logger.Int("matchesFailed", stats.MatchesFailed),
		logger.Int("resultsSkipped", stats.ResultsSkipped),
		logger.Int("positionsChecked", stats.PositionsChecked),
		logger.Int("positionMismatches", stats.PositionMismatches),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("matchesPerSecond", matchesPerSecond))
}
