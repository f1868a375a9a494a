package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/okian/ladder/pkg/metrics"
)

const (
	defaultPrefix      = "ladder"
	defaultDialTimeout = 5 * time.Second
)

// Redis is a Cache backed by Redis strings with one set per tag.
type Redis struct {
	client      redis.UniversalClient
	prefix      string
	dialTimeout time.Duration
}

var _ Cache = (*Redis)(nil)

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, opts ...Option) *Redis {
	r := &Redis{client: client, prefix: defaultPrefix, dialTimeout: defaultDialTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dial connects to addr and verifies the connection with a ping.
func Dial(ctx context.Context, addr, password string, db int, opts ...Option) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	r := NewRedis(client, opts...)

	pingCtx, cancel := context.WithTimeout(ctx, r.dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, addr, err)
	}
	return r, nil
}

func (r *Redis) key(k string) string    { return r.prefix + ":q:" + k }
func (r *Redis) tagKey(t string) string { return r.prefix + ":tag:" + t }

// Get implements Cache. Lookup outcomes are counted by the caller.
func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("%w: decode %s: %w", ErrCodec, key, err)
	}
	return true, nil
}

// Set implements Cache. Tag sets live at least as long as their newest member.
func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration, tags ...string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrCodec, key, err)
	}

	full := r.key(key)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, full, raw, ttl)
		for _, t := range tags {
			tk := r.tagKey(t)
			pipe.SAdd(ctx, tk, full)
			if ttl > 0 {
				pipe.Expire(ctx, tk, ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// InvalidateTags implements Cache.
func (r *Redis) InvalidateTags(ctx context.Context, tags ...string) (int, error) {
	dropped := 0
	for _, t := range tags {
		tk := r.tagKey(t)
		members, err := r.client.SMembers(ctx, tk).Result()
		if err != nil {
			metrics.RecordCacheError()
			return dropped, fmt.Errorf("cache tag %s: %w", t, err)
		}
		if len(members) > 0 {
			n, err := r.client.Del(ctx, members...).Result()
			if err != nil {
				metrics.RecordCacheError()
				return dropped, fmt.Errorf("cache invalidate %s: %w", t, err)
			}
			dropped += int(n)
		}
		if err := r.client.Del(ctx, tk).Err(); err != nil {
			metrics.RecordCacheError()
			return dropped, fmt.Errorf("cache invalidate %s: %w", t, err)
		}
	}
	metrics.RecordCacheInvalidation(dropped)
	return dropped, nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
