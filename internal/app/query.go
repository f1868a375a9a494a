package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/types"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

const defaultTopLimit = 10

// LeaderboardQuery selects one page of a view. A zero Period means the
// current period for monthly and weekly leaderboards.
type LeaderboardQuery struct {
	model.Partition
	Period model.Period
	Page   int
	Limit  int
}

// TopQuery selects the first Limit entries of a view.
type TopQuery struct {
	model.Partition
	Period model.Period
	Limit  int
}

// QueryService answers leaderboard reads, caching responses per view.
type QueryService struct {
	store        repository.Store
	players      repository.PlayerDirectory
	cache        *generationCache
	ttl          time.Duration
	defaultLimit int
	maxLimit     int
	now          func() time.Time
	logger       logger.Logger
}

// GetLeaderboard returns one page of a view. Views without entries yield an empty page.
func (q *QueryService) GetLeaderboard(ctx context.Context, in LeaderboardQuery) (types.LeaderboardPage, error) {
	view, err := q.resolve(in.Partition, in.Period)
	if err != nil {
		return types.LeaderboardPage{}, err
	}
	page, limit := q.normalize(in.Page, in.Limit)

	cacheKey := fmt.Sprintf("lb:%s:%d:%d", view, page, limit)
	var out types.LeaderboardPage
	if q.lookup(ctx, cacheKey, &out) {
		return out, nil
	}
	gen := q.cache.generation()

	entries, total, err := q.store.Page(ctx, view, (page-1)*limit, limit)
	if err != nil {
		return types.LeaderboardPage{}, fmt.Errorf("page %s: %w", view, err)
	}

	out = types.LeaderboardPage{
		Leaderboard: q.project(ctx, entries),
		Pagination:  types.NewPagination(page, limit, total),
	}
	q.remember(ctx, gen, cacheKey, out, viewTag(view))
	return out, nil
}

// GetUserPosition returns the entry of userID in the selected view.
func (q *QueryService) GetUserPosition(ctx context.Context, userID string, p model.Partition, period model.Period) (types.Entry, error) {
	if userID == "" {
		return types.Entry{}, fmt.Errorf("%w: userId is required", ErrInvalidQuery)
	}
	view, err := q.resolve(p, period)
	if err != nil {
		return types.Entry{}, err
	}
	key := model.Key{UserID: userID, View: view}

	cacheKey := "user:" + key.String()
	var out types.Entry
	if q.lookup(ctx, cacheKey, &out) {
		return out, nil
	}
	gen := q.cache.generation()

	e, err := q.store.Get(ctx, key)
	if err != nil {
		return types.Entry{}, fmt.Errorf("user %s: %w", userID, err)
	}
	if !e.IsActive {
		return types.Entry{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	out = q.project(ctx, []model.Entry{e})[0]
	q.remember(ctx, gen, cacheKey, out, viewTag(view))
	return out, nil
}

// GetTopPerformers returns the compact form of the first page of a view.
func (q *QueryService) GetTopPerformers(ctx context.Context, in TopQuery) ([]types.TopPerformer, error) {
	limit := in.Limit
	if limit < 1 {
		limit = defaultTopLimit
	}
	page, err := q.GetLeaderboard(ctx, LeaderboardQuery{Partition: in.Partition, Period: in.Period, Page: 1, Limit: limit})
	if err != nil {
		return nil, err
	}

	out := make([]types.TopPerformer, len(page.Leaderboard))
	for i, e := range page.Leaderboard {
		out[i] = types.TopPerformer{
			Rank:       e.Rank,
			User:       e.User,
			Points:     e.Points,
			Stats:      e.Stats,
			RankChange: e.RankChange,
		}
	}
	return out, nil
}

// GetStats summarizes active entries per game and leaderboard type.
func (q *QueryService) GetStats(ctx context.Context) ([]types.SummaryRow, error) {
	const cacheKey = "stats"
	var out []types.SummaryRow
	if q.lookup(ctx, cacheKey, &out) {
		return out, nil
	}
	gen := q.cache.generation()

	rows, err := q.store.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	out = make([]types.SummaryRow, len(rows))
	for i, r := range rows {
		out[i] = types.SummaryRow{
			GameType:        r.GameType,
			LeaderboardType: r.LeaderboardType,
			Entries:         r.Entries,
			TotalPoints:     r.TotalPoints,
			MaxPoints:       r.MaxPoints,
			TotalMatches:    r.TotalMatches,
		}
		if r.Entries > 0 {
			out[i].AveragePoints = float64(r.TotalPoints) / float64(r.Entries)
		}
	}
	q.remember(ctx, gen, cacheKey, out, tagStats)
	return out, nil
}

// resolve validates p and picks the view. Periods are trimmed to the parts
// their scope uses.
func (q *QueryService) resolve(p model.Partition, period model.Period) (model.View, error) {
	if err := p.Validate(); err != nil {
		return model.View{}, err
	}
	if !p.LeaderboardType.Periodic() || period.IsZero() {
		return model.ViewAt(p, q.now()), nil
	}

	view := model.View{Partition: p}
	switch p.LeaderboardType {
	case model.Monthly:
		if period.Year < 1 || period.Month < 1 || period.Month > 12 {
			return model.View{}, fmt.Errorf("%w: monthly leaderboards need year and month 1..12", ErrInvalidQuery)
		}
		view.Period = model.Period{Year: period.Year, Month: period.Month}
	case model.Weekly:
		if period.Year < 1 || period.Week < 1 || period.Week > 54 {
			return model.View{}, fmt.Errorf("%w: weekly leaderboards need year and week 1..54", ErrInvalidQuery)
		}
		view.Period = model.Period{Year: period.Year, Week: period.Week}
	}
	view.TournamentID = ""
	return view, nil
}

func (q *QueryService) normalize(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = q.defaultLimit
	}
	if limit > q.maxLimit {
		limit = q.maxLimit
	}
	return page, limit
}

// project joins player display fields. Directory failures leave rows with ids only.
func (q *QueryService) project(ctx context.Context, entries []model.Entry) []types.Entry {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}
	players, err := q.players.Players(ctx, ids)
	if err != nil {
		q.logger.Warn(ctx, "player lookup failed", logger.Int("ids", len(ids)), logger.Error(err))
	}

	out := make([]types.Entry, len(entries))
	for i, e := range entries {
		out[i] = types.NewEntry(e, players[e.UserID])
	}
	return out
}

func (q *QueryService) lookup(ctx context.Context, key string, dst any) bool {
	found, err := q.cache.Get(ctx, key, dst)
	switch {
	case err != nil:
		metrics.RecordCacheError()
		q.logger.Warn(ctx, "cache read failed", logger.String("key", key), logger.Error(err))
		return false
	case found:
		metrics.RecordCacheHit()
		return true
	}
	metrics.RecordCacheMiss()
	return false
}

// remember caches value unless the cache was invalidated since gen was taken.
func (q *QueryService) remember(ctx context.Context, gen uint64, key string, value any, tag string) {
	if _, err := q.cache.setAt(ctx, gen, key, value, q.ttl, tag, tagAll); err != nil {
		metrics.RecordCacheError()
		q.logger.Warn(ctx, "cache write failed", logger.String("key", key), logger.Error(err))
	}
}
