package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSeed fixes the treap priority sequence.
func WithSeed(seed uint64) Option {
	return func(s *MemoryStore) {
		s.seed = seed
	}
}
