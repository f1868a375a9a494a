package simulate

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
)

// Retry budget for submissions refused with 429.
const (
	maxBackpressureRetries = 8
	backpressureBackoff    = 50 * time.Millisecond
)

// submitMatches publishes matches with cfg.Workers concurrent publishers and
// then re-sends the first cfg.Replays of them. It returns the matches the
// service accepted.
func submitMatches(ctx context.Context, cfg *Config, pub Publisher, matches []model.Match, stats *Stats) []model.Match {
	log := logger.Get()
	log.Info(ctx, "submitting matches", logger.Int("matches", len(matches)), logger.Int("workers", cfg.Workers))

	var submitted, accepted, duplicate, failed atomic.Int64
	delivered := make([]bool, len(matches))

	stop := make(chan struct{})
	go reportProgress(ctx, stop, len(matches)+cfg.Replays, &submitted, &accepted, &duplicate, &failed)

	send := func(i int) {
		o, err := publishWithRetry(ctx, pub, matches[i])
		submitted.Add(1)
		switch o {
		case outcomeAccepted:
			accepted.Add(1)
			delivered[i] = true
		case outcomeDuplicate:
			duplicate.Add(1)
		default:
			failed.Add(1)
			log.Debug(ctx, "submission failed", logger.String("matchId", matches[i].ID), logger.Error(err))
		}
	}

	var g errgroup.Group
	g.SetLimit(cfg.Workers)
	for i := range matches {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error { send(i); return nil })
	}
	_ = g.Wait()

	// Replays run after the originals so every one of them is a duplicate.
	for i := 0; i < cfg.Replays && ctx.Err() == nil; i++ {
		if !delivered[i] {
			continue
		}
		g.Go(func() error {
			o, err := publishWithRetry(ctx, pub, matches[i])
			submitted.Add(1)
			switch o {
			case outcomeDuplicate:
				duplicate.Add(1)
			case outcomeAccepted:
				accepted.Add(1)
			default:
				failed.Add(1)
				log.Debug(ctx, "replay failed", logger.String("matchId", matches[i].ID), logger.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	close(stop)

	stats.MatchesSubmitted = int(submitted.Load())
	stats.MatchesAccepted = int(accepted.Load())
	stats.MatchesDuplicate = int(duplicate.Load())
	stats.MatchesFailed = int(failed.Load())

	log.Info(ctx, "match submission completed",
		logger.Int("accepted", stats.MatchesAccepted),
		logger.Int("duplicate", stats.MatchesDuplicate),
		logger.Int("failed", stats.MatchesFailed))

	out := make([]model.Match, 0, len(matches))
	for i, ok := range delivered {
		if ok {
			out = append(out, matches[i])
		}
	}
	return out
}

func publishWithRetry(ctx context.Context, pub Publisher, m model.Match) (outcome, error) {
	backoff := backpressureBackoff
	for attempt := 0; ; attempt++ {
		o, err := pub.Publish(ctx, m)
		if !errors.Is(err, errBackpressure) || attempt == maxBackpressureRetries {
			return o, err
		}
		select {
		case <-ctx.Done():
			return outcomeFailed, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func reportProgress(ctx context.Context, stop <-chan struct{}, total int, submitted, accepted, duplicate, failed *atomic.Int64) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			logger.Get().Info(ctx, "progress",
				logger.Int64("submitted", submitted.Load()),
				logger.Int("total", total),
				logger.Int64("accepted", accepted.Load()),
				logger.Int64("duplicate", duplicate.Load()),
				logger.Int64("failed", failed.Load()))
		}
	}
}
