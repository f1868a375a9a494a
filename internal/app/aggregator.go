package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/ladder/internal/adapters/cache"
	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/scoring"
	"github.com/okian/ladder/pkg/logger"
)

// Aggregator folds match and tournament results into leaderboard entries.
type Aggregator struct {
	store      repository.Store
	cache      cache.Cache
	locks      *keyLock
	idempotent bool
	now        func() time.Time
	logger     logger.Logger
}

func newAggregator(store repository.Store, c cache.Cache, idempotent bool, now func() time.Time, log logger.Logger) *Aggregator {
	return &Aggregator{
		store:      store,
		cache:      c,
		locks:      newKeyLock(),
		idempotent: idempotent,
		now:        now,
		logger:     log,
	}
}

// ApplyMatchResult adds one scored result of match matchID to the entry of
// r.UserID in the view of p that contains at. applied is false when the
// match was already counted for that entry.
func (a *Aggregator) ApplyMatchResult(ctx context.Context, matchID string, p model.Partition, r model.MatchResult, at time.Time) (e model.Entry, applied bool, err error) {
	if err := p.Validate(); err != nil {
		return model.Entry{}, false, err
	}
	if r.UserID == "" {
		return model.Entry{}, false, fmt.Errorf("%w: participant has no userId", model.ErrInvalidMatch)
	}

	r = scoring.ScoreResult(r)
	key := model.Key{UserID: r.UserID, View: model.ViewAt(p, at)}
	return a.mutate(ctx, key, matchID, func(e *model.Entry) {
		e.Stats = scoring.ApplyResult(e.Stats, r)
	})
}

// ApplyTournamentResult records a final placement on the overall entry of
// the game and on the tournament entry.
func (a *Aggregator) ApplyTournamentResult(ctx context.Context, r model.TournamentResult) ([]model.View, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	marker := "tournament:" + r.TournamentID
	partitions := []model.Partition{
		{GameType: r.GameType, LeaderboardType: model.Overall},
		{GameType: r.GameType, LeaderboardType: model.Tournament, TournamentID: r.TournamentID},
	}

	var (
		views []model.View
		errs  []error
	)
	for _, p := range partitions {
		key := model.Key{UserID: r.UserID, View: model.ViewAt(p, r.RecordedAt)}
		_, applied, err := a.mutate(ctx, key, marker, func(e *model.Entry) {
			e.Stats = scoring.ApplyTournament(e.Stats, r.Placement, r.Prize)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.LeaderboardType, err))
			continue
		}
		if applied {
			views = append(views, key.View)
		}
	}
	return views, errors.Join(errs...)
}

func (a *Aggregator) mutate(ctx context.Context, key model.Key, marker string, fn repository.MutateFunc) (model.Entry, bool, error) {
	if !a.idempotent {
		marker = ""
	}

	unlock := a.locks.Lock(key.String())
	e, applied, err := a.store.Mutate(ctx, key, marker, func(e *model.Entry) {
		fn(e)
		e.Points = scoring.ComputePoints(e.Stats)
		e.LastUpdated = a.now().UTC()
		e.IsActive = true
	})
	unlock()
	if err != nil {
		return model.Entry{}, false, fmt.Errorf("apply %s: %w", key, err)
	}

	if applied {
		invalidate(ctx, a.cache, a.logger, viewTag(key.View), tagStats)
	}
	return e, applied, nil
}
