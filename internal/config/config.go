// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package config loads Cinematch configuration from built-in defaults, an
// optional YAML file and environment variables (highest priority wins).
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Store     StoreConfig     `koanf:"store"`
	WAL       WALConfig       `koanf:"wal"`
	Breaker   BreakerConfig   `koanf:"breaker"`
	Recommend RecommendConfig `koanf:"recommend"`
	API       APIConfig       `koanf:"api"`
	Security  SecurityConfig  `koanf:"security"`
	Events    EventsConfig    `koanf:"events"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development, staging, production
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()

	// MoviesCSV and RatingsCSV point at MovieLens-format files used to seed an
	// empty database. Both must be set for seeding to run.
	MoviesCSV   string `koanf:"movies_csv"`
	RatingsCSV  string `koanf:"ratings_csv"`
	SeedOnEmpty bool   `koanf:"seed_on_empty"`
}

// StoreConfig selects the persistence backend behind the rating store.
type StoreConfig struct {
	// Backend is "duckdb" or "memory".
	// Default: duckdb
	Backend string `koanf:"backend"`
}

// WALConfig holds BadgerDB write-ahead log settings for rating writes.
type WALConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Path          string        `koanf:"path"`
	SyncWrites    bool          `koanf:"sync_writes"`
	RetryInterval time.Duration `koanf:"retry_interval"`
	MaxRetries    int           `koanf:"max_retries"`
}

// BreakerConfig tunes the circuit breaker around database writes.
type BreakerConfig struct {
	MaxRequests  uint32        `koanf:"max_requests"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio"`
}

// RecommendConfig holds collaborative filtering parameters.
type RecommendConfig struct {
	// Metric is the similarity metric: pearson or cosine.
	// Default: pearson
	Metric string `koanf:"metric"`

	// Neighbors is K, the maximum number of neighbours per prediction.
	// Default: 30
	Neighbors int `koanf:"neighbors"`

	// MinOverlap is the minimum number of co-rated counterparts for a
	// non-zero similarity. Values below 2 are raised to 2.
	// Default: 2
	MinOverlap int `koanf:"min_overlap"`

	// MinNeighbors is the minimum number of positive neighbours before the
	// prediction falls back to averages.
	// Default: 1
	MinNeighbors int `koanf:"min_neighbors"`

	// Shrinkage damps similarities computed from small overlaps.
	// Default: 0 (disabled)
	Shrinkage float64 `koanf:"shrinkage"`

	// ExplanationLimit caps explanation entries per recommendation.
	// Default: 5
	ExplanationLimit int `koanf:"explanation_limit"`

	// NeighborTopRatings is how many of a neighbour's own top movies are shown.
	// Default: 2
	NeighborTopRatings int `koanf:"neighbor_top_ratings"`

	// MaxCandidates keeps only the most popular unrated movies when more remain.
	// Default: 500 (0 = unlimited)
	MaxCandidates int `koanf:"max_candidates"`

	// DefaultRating is the last-resort prediction when no averages exist.
	// Default: 3.0
	DefaultRating float64 `koanf:"default_rating"`

	DefaultN     int `koanf:"default_n"`
	MaxN         int `koanf:"max_n"`
	PopularLimit int `koanf:"popular_limit"`

	CacheTTL            time.Duration `koanf:"cache_ttl"`
	SimilarityCacheSize int           `koanf:"similarity_cache_size"`
	Workers             int           `koanf:"workers"` // 0 = runtime.NumCPU()
	JanitorInterval     time.Duration `koanf:"janitor_interval"`
}

// APIConfig holds request defaults and per-user write limits.
type APIConfig struct {
	UsersLimit     int           `koanf:"users_limit"`
	MoviesLimit    int           `koanf:"movies_limit"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	WriteRate      float64       `koanf:"write_rate"` // rating writes per second per user
	WriteBurst     int           `koanf:"write_burst"`
}

// SecurityConfig holds CORS and rate limiting settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// EventsConfig holds rating event bus settings.
type EventsConfig struct {
	Buffer int64 `koanf:"buffer"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SeedEnabled reports whether CSV seeding is configured.
func (d DatabaseConfig) SeedEnabled() bool {
	return d.SeedOnEmpty && d.MoviesCSV != "" && d.RatingsCSV != ""
}
