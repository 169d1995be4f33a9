// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/cinematch/internal/config"
	"github.com/tomtom215/cinematch/internal/database"
	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/ratings"
	"github.com/tomtom215/cinematch/internal/wal"
)

// storeComponents holds the persistence chain behind the rating store.
// Fields other than store are nil for the memory backend.
type storeComponents struct {
	store     *ratings.Store
	db        *database.DB
	resilient *database.ResilientPersister
	wal       *wal.BadgerWAL
	retryLoop *wal.RetryLoop
}

// Close releases the WAL and the database, in that order.
func (c *storeComponents) Close() {
	if c.wal != nil {
		if err := c.wal.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close WAL")
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close database")
		}
	}
}

// initStore builds the persister chain for the configured backend and loads
// the dataset into memory:
//
//	duckdb:  Store -> [WAL] -> circuit breaker -> DuckDB
//	memory:  Store (no persistence)
func initStore(ctx context.Context, cfg *config.Config) (*storeComponents, error) {
	c := &storeComponents{}

	var persister ratings.Persister
	if cfg.Store.Backend == "duckdb" {
		db, err := database.New(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		c.db = db

		if err := seedIfEmpty(ctx, db, &cfg.Database); err != nil {
			c.Close()
			return nil, err
		}

		c.resilient = database.NewResilientPersister(db, cfg.Breaker)
		persister = c.resilient

		if cfg.WAL.Enabled {
			w, err := wal.Open(wal.Config{Path: cfg.WAL.Path, SyncWrites: cfg.WAL.SyncWrites})
			if err != nil {
				c.Close()
				return nil, fmt.Errorf("failed to open WAL: %w", err)
			}
			c.wal = w
			walPersister := wal.NewPersister(w, c.resilient)
			c.retryLoop = wal.NewRetryLoop(walPersister, cfg.WAL.RetryInterval, cfg.WAL.MaxRetries)
			persister = walPersister
			logging.Info().
				Str("path", cfg.WAL.Path).
				Int64("pending", w.Stats().PendingCount).
				Msg("WAL enabled for rating writes")
		}
	} else {
		logging.Warn().Msg("Memory store backend selected, ratings are not persisted")
	}

	c.store = ratings.NewStore(persister)
	if err := c.store.Load(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}

	snap := c.store.Snapshot()
	logging.Info().
		Str("backend", cfg.Store.Backend).
		Int("users", snap.NumUsers()).
		Int("movies", snap.NumMovies()).
		Int("ratings", snap.NumRatings()).
		Msg("Rating store loaded")

	return c, nil
}

func seedIfEmpty(ctx context.Context, db *database.DB, cfg *config.DatabaseConfig) error {
	if !cfg.SeedEnabled() {
		return nil
	}
	empty, err := db.IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect database: %w", err)
	}
	if !empty {
		return nil
	}
	seeded, err := db.SeedFromCSV(ctx, cfg.MoviesCSV, cfg.RatingsCSV)
	if err != nil {
		return fmt.Errorf("failed to seed database: %w", err)
	}
	if seeded {
		logging.Info().
			Str("movies_csv", cfg.MoviesCSV).
			Str("ratings_csv", cfg.RatingsCSV).
			Msg("Database seeded from CSV")
	}
	return nil
}
