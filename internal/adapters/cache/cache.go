// Package cache holds the advisory read cache for leaderboard queries.
//
// Entries are tagged with the views they were computed from so a write to a
// view can drop every cached page of it without knowing the page keys.
package cache

import (
	"context"
	"time"
)

// Cache stores encoded query results.
type Cache interface {
	// Get decodes the value stored under key into dst and reports whether it was found.
	Get(ctx context.Context, key string, dst any) (bool, error)

	// Set stores value under key for ttl and attaches it to tags.
	Set(ctx context.Context, key string, value any, ttl time.Duration, tags ...string) error

	// InvalidateTags deletes every key attached to any of tags and returns how many were dropped.
	InvalidateTags(ctx context.Context, tags ...string) (int, error)

	Close() error
}

// Noop is the Cache used when no cache is configured. Every lookup misses.
type Noop struct{}

var _ Cache = Noop{}

func (Noop) Get(context.Context, string, any) (bool, error) { return false, nil }

func (Noop) Set(context.Context, string, any, time.Duration, ...string) error { return nil }

func (Noop) InvalidateTags(context.Context, ...string) (int, error) { return 0, nil }

func (Noop) Close() error { return nil }
