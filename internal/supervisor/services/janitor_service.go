// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// JanitorTask is one periodic housekeeping step. Run returns the number of
// items it removed or refreshed, used only for logging.
type JanitorTask struct {
	Name string
	Run  func(ctx context.Context) int
}

// CacheJanitorService runs housekeeping tasks on a fixed interval: expiring
// cached recommendation responses, evicting idle per-user write limiters
// and refreshing cache size gauges.
type CacheJanitorService struct {
	interval time.Duration
	tasks    []JanitorTask
	logger   zerolog.Logger
	name     string
}

// NewCacheJanitorService creates the janitor. A non-positive interval means
// five minutes.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCacheJanitorService(interval time.Duration, logger zerolog.Logger, tasks ...JanitorTask) *CacheJanitorService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CacheJanitorService{
		interval: interval,
		tasks:    tasks,
		logger:   logger.With().Str("service", "cache-janitor").Logger(),
		name:     "cache-janitor",
	}
}

// Serve implements suture.Service.
func (s *CacheJanitorService) Serve(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.interval).
		Int("tasks", len(s.tasks)).
		Msg("cache janitor running")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *CacheJanitorService) runOnce(ctx context.Context) {
	start := time.Now()
	for _, task := range s.tasks {
		if ctx.Err() != nil {
			return
		}
		if n := task.Run(ctx); n > 0 {
			s.logger.Debug().Str("task", task.Name).Int("count", n).Msg("janitor task done")
		}
	}
	s.logger.Debug().Dur("duration", time.Since(start)).Msg("janitor pass complete")
}

// String implements fmt.Stringer for suture's logs.
func (s *CacheJanitorService) String() string {
	return s.name
}
