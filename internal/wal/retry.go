// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package wal

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
)

// RetryStats summarizes one replay pass.
type RetryStats struct {
	Applied    int
	Failed     int
	Dropped    int
	Superseded int
}

// RetryLoop periodically replays pending entries through a Persister.
// Entries that have failed MaxRetries times are dropped with an error log.
type RetryLoop struct {
	persister  *Persister
	interval   time.Duration
	maxRetries int
	logger     zerolog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	running  bool
	stopDone chan struct{}
}

// NewRetryLoop creates a loop that runs every interval.
func NewRetryLoop(p *Persister, interval time.Duration, maxRetries int) *RetryLoop {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 10
	}
	return &RetryLoop{
		persister:  p,
		interval:   interval,
		maxRetries: maxRetries,
		logger:     logging.WithComponent("wal-retry"),
	}
}

// Start launches the loop in the background. Starting twice is a no-op.
func (r *RetryLoop) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.stopDone = make(chan struct{})

	go r.run(loopCtx, r.stopDone)

	r.logger.Info().
		Dur("interval", r.interval).
		Int("max_retries", r.maxRetries).
		Msg("WAL retry loop started")
	return nil
}

// Stop cancels the loop and waits for it to exit.
func (r *RetryLoop) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.cancel()
	r.running = false
	done := r.stopDone
	r.mu.Unlock()

	<-done
	r.logger.Info().Msg("WAL retry loop stopped")
}

// IsRunning reports whether the loop is active.
func (r *RetryLoop) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *RetryLoop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RetryPending(ctx)
		}
	}
}

// RetryPending runs one replay pass over all pending entries.
func (r *RetryLoop) RetryPending(ctx context.Context) RetryStats {
	var stats RetryStats

	entries, err := r.persister.wal.GetPending(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("WAL retry: failed to get pending entries")
		return stats
	}
	if len(entries) == 0 {
		return stats
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return stats
		default:
		}

		if entry.Attempts >= r.maxRetries {
			r.logger.Error().
				Str("key", entry.Key).
				Str("op", string(entry.Op)).
				Int("attempts", entry.Attempts).
				Str("last_error", entry.LastError).
				Msg("WAL retry: entry exceeded max retries, dropping")
			if err := r.persister.wal.Drop(ctx, entry.Key); err != nil {
				r.logger.Error().Err(err).Str("key", entry.Key).Msg("WAL retry: failed to drop entry")
			}
			metrics.WALReplays.WithLabelValues(string(replayDropped)).Inc()
			stats.Dropped++
			continue
		}

		replayCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		result := r.persister.Replay(replayCtx, entry)
		cancel()

		switch result {
		case replayApplied:
			stats.Applied++
		case replayFailed:
			stats.Failed++
		case replayDropped:
			stats.Dropped++
		case replaySuperseded:
			stats.Superseded++
		}
	}

	r.logger.Info().
		Int("applied", stats.Applied).
		Int("failed", stats.Failed).
		Int("dropped", stats.Dropped).
		Int("superseded", stats.Superseded).
		Msg("WAL retry complete")
	return stats
}
