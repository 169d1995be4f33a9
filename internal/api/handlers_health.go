// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/models"
)

const healthPingTimeout = 2 * time.Second

// Health handles GET /health. The service reports "degraded" when the
// database is unreachable or its breaker is open; ratings are still served
// from memory and writes are kept in the WAL.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	status := models.HealthStatus{
		Status:        "healthy",
		Version:       h.version,
		StoreVersion:  snap.Version(),
		Users:         snap.NumUsers(),
		Movies:        snap.NumMovies(),
		Ratings:       snap.NumRatings(),
		CacheHitRate:  h.engine.Stats().HitRate,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		err := h.db.Ping(ctx)
		cancel()
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Database ping failed")
			status.Database = "unreachable"
			status.Status = "degraded"
		} else {
			status.Database = "ok"
		}
	}
	if h.breaker != nil {
		status.CircuitBreaker = h.breaker.State()
		if status.CircuitBreaker == "open" {
			status.Status = "degraded"
		}
	}
	if h.wal != nil {
		status.PendingWrites = h.wal.Stats().PendingCount
	}

	respondJSON(w, http.StatusOK, status)
}
