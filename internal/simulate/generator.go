package simulate

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
)

// randInt returns a uniform value in [0, n) using crypto/rand.
func randInt(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// newPlayers returns n unique player ids.
func newPlayers(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	return ids
}

// pick returns k distinct elements of pool in random order.
func pick(pool []string, k int) []string {
	idx := make([]int, len(pool))
	for i := range idx {
		idx[i] = i
	}
	out := make([]string, k)
	for i := 0; i < k; i++ {
		j := i + randInt(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		out[i] = pool[idx[i]]
	}
	return out
}

// generateMatches creates cfg.Matches matches drawn from a shared player pool.
// Completion times are spread over the last week so weekly and monthly views
// see more than one partition when the run straddles a boundary.
func generateMatches(ctx context.Context, cfg *Config, stats *Stats, now time.Time) ([]model.Match, error) {
	logger.Get().Info(ctx, "generating matches",
		logger.Int("matches", cfg.Matches),
		logger.Int("players", cfg.Players),
		logger.Int("participants", cfg.Participants))

	players := newPlayers(cfg.Players)
	matches := make([]model.Match, cfg.Matches)
	for i := range matches {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during match generation: %w", err)
		}
		at := now.Add(-time.Duration(randInt(int(7 * 24 * time.Hour / time.Minute))) * time.Minute)
		matches[i] = generateMatch(cfg.GameType, pick(players, cfg.Participants), at, cfg.Unsubmitted)
	}

	stats.MatchesGenerated = len(matches)
	logger.Get().Info(ctx, "generated matches successfully", logger.Int("count", len(matches)))
	return matches, nil
}

// generateMatch builds one match. Finishing position follows the order of
// participants, and better finishers tend to have more kills.
func generateMatch(game model.GameType, participants []string, at time.Time, unsubmitted int) model.Match {
	at = at.UTC().Truncate(time.Second)
	m := model.Match{
		ID:           uuid.NewString(),
		GameType:     game,
		CompletedAt:  at,
		Participants: make([]model.MatchResult, len(participants)),
	}
	n := len(participants)
	for i, userID := range participants {
		position := i + 1
		bias := (n - i) * maxKills / (2 * n)
		r := model.MatchResult{
			UserID:        userID,
			Kills:         randInt(maxKills-bias+1) + bias,
			Deaths:        randInt(maxDeaths + 1),
			Assists:       randInt(maxAssists + 1),
			FinalPosition: position,
		}
		if unsubmitted <= 0 || randInt(unsubmitted) != 0 {
			submitted := at
			r.ResultSubmittedAt = &submitted
		}
		m.Participants[i] = r
	}
	return m
}
