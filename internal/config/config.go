// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers defaults, an optional YAML file, an optional .env file and env vars.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text, json or console output.
	LogFormat string `koanf:"log_format"`
	// LogFile mirrors logs into a rotated file when set.
	LogFile       string `koanf:"log_file"`
	LogMaxSizeMB  int    `koanf:"log_max_size_mb"`
	LogMaxBackups int    `koanf:"log_max_backups"`
	LogMaxAgeDays int    `koanf:"log_max_age_days"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// AdminToken guards privileged routes. Empty leaves them open.
	AdminToken string `koanf:"admin_token"`

	// StoreDriver is memory or postgres.
	StoreDriver string `koanf:"store_driver"`
	// PostgresDSN is required when StoreDriver is postgres.
	PostgresDSN     string `koanf:"postgres_dsn"`
	PostgresMaxConn int32  `koanf:"postgres_max_conns"`
	AutoMigrate     bool   `koanf:"auto_migrate"`

	// RedisAddr enables the read cache when set.
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	CacheTTL      time.Duration `koanf:"cache_ttl"`
	CachePrefix   string        `koanf:"cache_prefix"`

	// NATSURL enables the JetStream consumer when set.
	NATSURL      string `koanf:"nats_url"`
	NATSStream   string `koanf:"nats_stream"`
	NATSConsumer string `koanf:"nats_consumer"`

	// EventQueueSize bounds the in-memory match queue.
	EventQueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of match-processing workers.
	WorkerCount int `koanf:"worker_count"`
	// FanoutLimit bounds concurrent entry updates within one match.
	FanoutLimit int `koanf:"fanout_limit"`
	// DedupeSize sets the size of the match id deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`
	// IdempotentApply records applied match ids per entry.
	IdempotentApply bool `koanf:"idempotent_apply"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
	// DefaultLeaderboardLimit applies when limit is absent.
	DefaultLeaderboardLimit int `koanf:"default_leaderboard_limit"`

	// RetentionMonths is the default monthsToKeep for cleanup.
	RetentionMonths int `koanf:"retention_months"`
	// RetentionInterval runs cleanup periodically when positive.
	RetentionInterval time.Duration `koanf:"retention_interval"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		LogMaxSizeMB:            100,
		LogMaxBackups:           5,
		LogMaxAgeDays:           14,
		Addr:                    ":9080",
		StoreDriver:             StoreMemory,
		PostgresMaxConn:         20,
		AutoMigrate:             true,
		CacheTTL:                2 * time.Minute,
		CachePrefix:             "ladder",
		NATSStream:              "LADDER_EVENTS",
		NATSConsumer:            "ladder-leaderboard",
		EventQueueSize:          10_000,
		WorkerCount:             runtime.NumCPU() * 2,
		FanoutLimit:             16,
		DedupeSize:              100_000,
		IdempotentApply:         true,
		MaxLeaderboardLimit:     100,
		DefaultLeaderboardLimit: 50,
		RetentionMonths:         6,
		RetentionInterval:       24 * time.Hour,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.EventQueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.FanoutLimit <= 0:
		return fmt.Errorf("%w: fanout_limit must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.DefaultLeaderboardLimit <= 0 || c.DefaultLeaderboardLimit > c.MaxLeaderboardLimit:
		return fmt.Errorf("%w: default_leaderboard_limit must be in 1..max_leaderboard_limit", ErrInvalidConfig)
	case c.RetentionMonths < 0:
		return fmt.Errorf("%w: retention_months must not be negative", ErrInvalidConfig)
	}

	switch strings.ToLower(c.StoreDriver) {
	case StoreMemory:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn is required for the postgres store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	return nil
}
