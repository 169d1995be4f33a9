// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package api

import (
	"context"
	"time"

	"github.com/tomtom215/cinematch/internal/config"
	"github.com/tomtom215/cinematch/internal/middleware"
	"github.com/tomtom215/cinematch/internal/ratings"
	"github.com/tomtom215/cinematch/internal/recommend"
	"github.com/tomtom215/cinematch/internal/wal"
)

// DatabasePinger reports database reachability for /health.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// BreakerStater reports the circuit breaker state for /health.
type BreakerStater interface {
	State() string
}

// WALStatser reports write-ahead log counters for /health.
type WALStatser interface {
	Stats() wal.Stats
}

// Handler serves the HTTP API.
type Handler struct {
	store        *ratings.Store
	engine       *recommend.Engine
	config       *config.Config
	writeLimiter *middleware.KeyedRateLimiter
	version      string
	startTime    time.Time

	// Optional health sources; nil when the component is not configured.
	db      DatabasePinger
	breaker BreakerStater
	wal     WALStatser
}

// NewHandler creates the API handler.
func NewHandler(store *ratings.Store, engine *recommend.Engine, cfg *config.Config, version string) *Handler {
	return &Handler{
		store:        store,
		engine:       engine,
		config:       cfg,
		writeLimiter: middleware.NewKeyedRateLimiter(cfg.API.WriteRate, cfg.API.WriteBurst),
		version:      version,
		startTime:    time.Now(),
	}
}

// SetDatabase attaches the database used by /health.
func (h *Handler) SetDatabase(db DatabasePinger) { h.db = db }

// SetBreaker attaches the database circuit breaker used by /health.
func (h *Handler) SetBreaker(b BreakerStater) { h.breaker = b }

// SetWAL attaches the write-ahead log used by /health.
func (h *Handler) SetWAL(w WALStatser) { h.wal = w }

// WriteLimiter exposes the per-user write limiter so idle buckets can be
// evicted periodically.
func (h *Handler) WriteLimiter() *middleware.KeyedRateLimiter { return h.writeLimiter }
