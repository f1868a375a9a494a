// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the event consumer.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/okian/ladder/internal/adapters/cache"
	eventqueue "github.com/okian/ladder/internal/adapters/mq/queue"
	workerpool "github.com/okian/ladder/internal/adapters/mq/worker"
	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/domain/dedupe"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// Service implements the API dependencies for the leaderboard system.
type Service struct {
	mu sync.RWMutex
	// replay excludes match processing while Initialize rebuilds the store.
	replay sync.RWMutex

	// Core components
	store   repository.Store
	matches repository.MatchStore
	players repository.PlayerDirectory
	cache   cache.Cache
	deduper dedupe.Deduper
	queue   *eventqueue.InMemoryQueue
	pool    *workerpool.Pool

	aggregator   *Aggregator
	recalculator *Recalculator
	query        *QueryService

	// Configuration
	workerCount     int
	queueSize       int
	dedupeSize      int
	fanoutLimit     int
	idempotent      bool
	cacheTTL        time.Duration
	defaultLimit    int
	maxLimit        int
	retentionMonths int
	now             func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the leaderboard entry store. Defaults to the in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithMatchStore sets where completed matches are kept for replay.
func WithMatchStore(store repository.MatchStore) Option {
	return func(s *Service) {
		if store != nil {
			s.matches = store
		}
	}
}

// WithPlayerDirectory sets the source of usernames and avatars.
func WithPlayerDirectory(d repository.PlayerDirectory) Option {
	return func(s *Service) {
		if d != nil {
			s.players = d
		}
	}
}

// WithCache sets the read cache. Defaults to no caching.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the match queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithFanoutLimit bounds concurrent entry updates within one match.
func WithFanoutLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fanoutLimit = n
		}
	}
}

// WithIdempotentApply toggles per-entry match markers.
func WithIdempotentApply(enabled bool) Option {
	return func(s *Service) {
		s.idempotent = enabled
	}
}

// WithCacheTTL sets how long cached reads live.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithLimits sets the default and maximum page size.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(s *Service) {
		if defaultLimit > 0 && maxLimit >= defaultLimit {
			s.defaultLimit = defaultLimit
			s.maxLimit = maxLimit
		}
	}
}

// WithRetentionMonths sets the cleanup default for monthsToKeep.
func WithRetentionMonths(months int) Option {
	return func(s *Service) {
		if months > 0 {
			s.retentionMonths = months
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU() * 2,
		queueSize:       10_000,
		dedupeSize:      100_000,
		fanoutLimit:     16,
		idempotent:      true,
		cacheTTL:        2 * time.Minute,
		defaultLimit:    50,
		maxLimit:        100,
		retentionMonths: 6,
		now:             time.Now,
		cache:           cache.Noop{},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore(repository.WithClock(s.now))
	}
	if s.matches == nil {
		s.matches = repository.NewMemoryMatchStore()
	}
	if s.players == nil {
		s.players = repository.NewMemoryPlayerDirectory()
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	gc := newGenerationCache(s.cache)
	s.cache = gc

	s.aggregator = newAggregator(s.store, s.cache, s.idempotent, s.now, s.logger.Named("aggregator"))
	s.recalculator = newRecalculator(s.store, s.cache, s.logger.Named("ranking"))
	s.query = &QueryService{
		store:        s.store,
		players:      s.players,
		cache:        gc,
		ttl:          s.cacheTTL,
		defaultLimit: s.defaultLimit,
		maxLimit:     s.maxLimit,
		now:          s.now,
		logger:       s.logger.Named("query"),
	}
	return s
}

// Start creates the match queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting leaderboard service...")

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s)
	s.pool.Start(ctx)
	metrics.UpdateQueueCapacity(s.queue.Cap())

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("fanoutLimit", s.fanoutLimit),
		logger.Bool("idempotentApply", s.idempotent),
	)
	return nil
}

// Stop drains queued matches and stops the workers. Stores and the cache
// belong to the caller and stay open.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping leaderboard service...")
	err := s.pool.Shutdown(ctx)
	if err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "leaderboard service stopped")
	return err
}

// Query exposes the read side.
func (s *Service) Query() *QueryService { return s.query }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"dedupeSize":      s.dedupeSize,
		"dedupeEntries":   s.deduper.Size(),
		"fanoutLimit":     s.fanoutLimit,
		"idempotentApply": s.idempotent,
	}

	if counter, ok := s.store.(interface{ Count(context.Context) int }); ok {
		n := counter.Count(context.Background())
		stats["entries"] = n
		metrics.UpdateStoreEntries("memory", n)
	}

	if s.started {
		queueLen := s.queue.Len()
		stats["queueLength"] = queueLen
		stats["processed"] = s.pool.Processed()
		metrics.UpdateQueueSize(queueLen)
	}

	return stats
}
