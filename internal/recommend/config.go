// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package recommend

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/tomtom215/cinematch/internal/config"
)

// Config holds engine settings. Similarity and neighbour settings belong
// to the predictors.
type Config struct {
	DefaultN           int
	MaxN               int
	MaxCandidates      int // 0 = unlimited
	ExplanationLimit   int
	NeighborTopRatings int
	DefaultRating      float64
	CacheTTL           time.Duration // 0 disables the response cache
	Workers            int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		DefaultN:           10,
		MaxN:               100,
		MaxCandidates:      500,
		ExplanationLimit:   5,
		NeighborTopRatings: 2,
		DefaultRating:      3.0,
		CacheTTL:           time.Hour,
		Workers:            runtime.NumCPU(),
	}
}

// ConfigFromSettings maps the application configuration onto Config.
func ConfigFromSettings(rc *config.RecommendConfig) *Config {
	cfg := &Config{
		DefaultN:           rc.DefaultN,
		MaxN:               rc.MaxN,
		MaxCandidates:      rc.MaxCandidates,
		ExplanationLimit:   rc.ExplanationLimit,
		NeighborTopRatings: rc.NeighborTopRatings,
		DefaultRating:      rc.DefaultRating,
		CacheTTL:           rc.CacheTTL,
		Workers:            rc.Workers,
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return cfg
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxN < 1 {
		errs = append(errs, fmt.Errorf("max n must be at least 1, got %d", c.MaxN))
	}
	if c.DefaultN < 1 || c.DefaultN > c.MaxN {
		errs = append(errs, fmt.Errorf("default n must be within [1, %d], got %d", c.MaxN, c.DefaultN))
	}
	if c.MaxCandidates < 0 {
		errs = append(errs, fmt.Errorf("max candidates must not be negative, got %d", c.MaxCandidates))
	}
	if c.ExplanationLimit < 0 || c.NeighborTopRatings < 0 {
		errs = append(errs, errors.New("explanation limits must not be negative"))
	}
	if c.DefaultRating < MinPrediction || c.DefaultRating > MaxPrediction {
		errs = append(errs, fmt.Errorf("default rating must be within [%.1f, %.1f], got %v", MinPrediction, MaxPrediction, c.DefaultRating))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("cache ttl must not be negative, got %v", c.CacheTTL))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	return errors.Join(errs...)
}
