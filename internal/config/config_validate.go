// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package config

import (
	"fmt"
	"strings"
)

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateRecommend(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.Server.Timeout)
	}
	return nil
}

func (c *Config) validateStore() error {
	switch strings.ToLower(c.Store.Backend) {
	case "duckdb":
		if c.Database.Path == "" {
			return fmt.Errorf("DUCKDB_PATH is required when STORE_BACKEND=duckdb")
		}
	case "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be duckdb or memory, got %q", c.Store.Backend)
	}

	if c.WAL.Enabled && c.WAL.Path == "" {
		return fmt.Errorf("WAL_PATH is required when WAL_ENABLED=true")
	}
	if c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1 {
		return fmt.Errorf("breaker.failure_ratio must be in (0, 1], got %v", c.Breaker.FailureRatio)
	}
	return nil
}

func (c *Config) validateRecommend() error {
	r := &c.Recommend
	switch strings.ToLower(r.Metric) {
	case "pearson", "cosine":
	default:
		return fmt.Errorf("RECOMMEND_METRIC must be pearson or cosine, got %q", r.Metric)
	}
	if r.Neighbors < 1 {
		return fmt.Errorf("recommend.neighbors must be at least 1, got %d", r.Neighbors)
	}
	if r.MinNeighbors < 1 {
		return fmt.Errorf("recommend.min_neighbors must be at least 1, got %d", r.MinNeighbors)
	}
	if r.Shrinkage < 0 {
		return fmt.Errorf("recommend.shrinkage must not be negative, got %v", r.Shrinkage)
	}
	if r.ExplanationLimit < 0 {
		return fmt.Errorf("recommend.explanation_limit must not be negative, got %d", r.ExplanationLimit)
	}
	if r.MaxCandidates < 0 {
		return fmt.Errorf("recommend.max_candidates must not be negative, got %d", r.MaxCandidates)
	}
	if r.DefaultRating < 0.5 || r.DefaultRating > 5.0 {
		return fmt.Errorf("recommend.default_rating must be within [0.5, 5.0], got %v", r.DefaultRating)
	}
	if r.DefaultN < 1 || r.MaxN < r.DefaultN {
		return fmt.Errorf("recommend.default_n (%d) must be at least 1 and at most recommend.max_n (%d)", r.DefaultN, r.MaxN)
	}
	if r.CacheTTL < 0 {
		return fmt.Errorf("recommend.cache_ttl must not be negative, got %v", r.CacheTTL)
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.UsersLimit < 1 || c.API.MoviesLimit < 1 {
		return fmt.Errorf("api.users_limit and api.movies_limit must be at least 1")
	}
	if c.API.WriteRate <= 0 || c.API.WriteBurst < 1 {
		return fmt.Errorf("api.write_rate must be positive and api.write_burst at least 1")
	}
	if !c.Security.RateLimitDisabled && c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1 when rate limiting is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
