package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/ladder/internal/adapters/cache"
	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/ranking"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// Recalculator rewrites the ranks of one view at a time.
type Recalculator struct {
	store  repository.Store
	cache  cache.Cache
	locks  *keyLock
	logger logger.Logger
}

func newRecalculator(store repository.Store, c cache.Cache, log logger.Logger) *Recalculator {
	return &Recalculator{store: store, cache: c, locks: newKeyLock(), logger: log}
}

// RecalculateRanks assigns dense ranks to the active entries of view and
// returns how many entries were ranked.
func (r *Recalculator) RecalculateRanks(ctx context.Context, view model.View) (int, error) {
	start := time.Now()
	unlock := r.locks.Lock(view.String())
	defer unlock()

	entries, err := r.store.ListView(ctx, view)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", view, err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	updates := ranking.Assign(entries)
	if err := r.store.UpdateRanks(ctx, updates); err != nil {
		return 0, fmt.Errorf("update ranks %s: %w", view, err)
	}

	metrics.RecordRecalculation(string(view.LeaderboardType), len(updates), time.Since(start))
	invalidate(ctx, r.cache, r.logger, viewTag(view), tagStats)
	r.logger.Debug(ctx, "ranks recalculated",
		logger.String("view", view.String()),
		logger.Int("entries", len(updates)),
		logger.Duration("took", time.Since(start)),
	)
	return len(updates), nil
}
