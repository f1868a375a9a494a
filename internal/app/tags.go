package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/okian/ladder/internal/adapters/cache"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
)

// Cache tags. Every cached response carries tagAll.
const (
	tagAll   = "all"
	tagStats = "stats"
)

func viewTag(v model.View) string { return "view:" + v.String() }

// invalidate drops cached responses for tags. Cache failures are logged only.
func invalidate(ctx context.Context, c cache.Cache, log logger.Logger, tags ...string) {
	if _, err := c.InvalidateTags(ctx, tags...); err != nil {
		log.Warn(ctx, "cache invalidation failed", logger.Any("tags", tags), logger.Error(err))
	}
}

// generationCache counts invalidations so a reader can tell whether a write
// landed between its store read and its cache write.
type generationCache struct {
	cache.Cache
	gen atomic.Uint64
}

func newGenerationCache(c cache.Cache) *generationCache {
	return &generationCache{Cache: c}
}

func (g *generationCache) generation() uint64 { return g.gen.Load() }

// InvalidateTags bumps the generation on both sides of the delete.
func (g *generationCache) InvalidateTags(ctx context.Context, tags ...string) (int, error) {
	g.gen.Add(1)
	n, err := g.Cache.InvalidateTags(ctx, tags...)
	g.gen.Add(1)
	return n, err
}

// setAt stores value only while the generation still equals gen. An
// invalidation that overlaps the write drops the tags again, so the stored
// value never outlives it. Reports whether the value was kept.
func (g *generationCache) setAt(ctx context.Context, gen uint64, key string, value any, ttl time.Duration, tags ...string) (bool, error) {
	if g.generation() != gen {
		return false, nil
	}
	if err := g.Cache.Set(ctx, key, value, ttl, tags...); err != nil {
		return false, err
	}
	if g.generation() == gen {
		return true, nil
	}
	_, err := g.InvalidateTags(ctx, tags...)
	return false, err
}
