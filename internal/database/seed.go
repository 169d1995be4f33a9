// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package database

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tomtom215/cinematch/internal/metrics"
	"github.com/tomtom215/cinematch/internal/ratings"
)

// IsEmpty reports whether the movie catalogue has no rows.
func (db *DB) IsEmpty(ctx context.Context) (bool, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to count movies: %w", err)
	}
	return n == 0, nil
}

// SeedFromCSV imports MovieLens-format movies.csv and ratings.csv into an
// empty database. Every distinct rater becomes a user named "User <id>".
// Ratings for unknown movies or off the half-star scale are dropped.
// It returns false without touching the database when movies already exist.
func (db *DB) SeedFromCSV(ctx context.Context, moviesPath, ratingsPath string) (bool, error) {
	for _, p := range []string{moviesPath, ratingsPath} {
		if _, err := os.Stat(p); err != nil {
			return false, fmt.Errorf("seed file %s: %w", p, err)
		}
	}

	empty, err := db.IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	if !empty {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	start := time.Now()
	err = db.seedTx(ctx, moviesPath, ratingsPath)
	metrics.RecordDBQuery("seed", "ratings", time.Since(start), err)
	if err != nil {
		return false, err
	}

	users, movies, count, err := db.Counts(ctx)
	if err != nil {
		return true, err
	}
	db.logger.Info().
		Str("movies_csv", moviesPath).
		Str("ratings_csv", ratingsPath).
		Int("users", users).
		Int("movies", movies).
		Int("ratings", count).
		Dur("duration", time.Since(start)).
		Msg("Seeded database from CSV")
	return true, nil
}

func (db *DB) seedTx(ctx context.Context, moviesPath, ratingsPath string) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	moviesSource := fmt.Sprintf(
		`read_csv(%s, header = true, quote = '"', columns = {'movieId': 'INTEGER', 'title': 'VARCHAR', 'genres': 'VARCHAR'})`,
		sqlString(moviesPath))
	ratingsSource := fmt.Sprintf(
		`read_csv(%s, header = true, columns = {'userId': 'INTEGER', 'movieId': 'INTEGER', 'rating': 'DOUBLE', 'timestamp': 'BIGINT'})`,
		sqlString(ratingsPath))

	statements := []struct {
		name  string
		query string
	}{
		{"movies", fmt.Sprintf(`INSERT INTO movies (movie_id, title, genres)
			SELECT DISTINCT ON (movieId) movieId, title,
				CASE WHEN genres IS NULL OR genres = %s THEN '' ELSE genres END
			FROM %s WHERE movieId IS NOT NULL AND title IS NOT NULL`,
			sqlString(ratings.NoGenres), moviesSource)},
		{"staged ratings", fmt.Sprintf(`CREATE TEMP TABLE seed_ratings AS
			SELECT DISTINCT ON (userId, movieId) userId, movieId, rating, "timestamp"
			FROM %s
			WHERE userId IS NOT NULL AND movieId IN (SELECT movie_id FROM movies)
				AND rating BETWEEN 0.5 AND 5.0 AND rating * 2 = floor(rating * 2)`,
			ratingsSource)},
		{"users", `INSERT INTO users (user_id, username)
			SELECT DISTINCT userId, 'User ' || CAST(userId AS VARCHAR) FROM seed_ratings`},
		{"ratings", `INSERT INTO ratings (user_id, movie_id, rating, rated_at)
			SELECT userId, movieId, rating,
				CASE WHEN "timestamp" IS NULL THEN CURRENT_TIMESTAMP::TIMESTAMP ELSE epoch_ms("timestamp" * 1000) END
			FROM seed_ratings`},
		{"drop staged ratings", `DROP TABLE seed_ratings`},
	}

	for _, s := range statements {
		if _, err = tx.ExecContext(ctx, s.query); err != nil {
			return fmt.Errorf("failed to seed %s: %w", s.name, err)
		}
	}
	return tx.Commit()
}

// sqlString quotes s as a SQL string literal.
func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
