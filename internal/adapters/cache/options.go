package cache

import "time"

// Option applies a configuration option to the Redis cache.
type Option func(*Redis)

// WithPrefix namespaces every key written by the cache.
func WithPrefix(prefix string) Option {
	return func(r *Redis) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithDialTimeout bounds the initial ping in Dial.
func WithDialTimeout(d time.Duration) Option {
	return func(r *Redis) {
		if d > 0 {
			r.dialTimeout = d
		}
	}
}
