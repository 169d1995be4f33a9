// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/cinematch/internal/metrics"
	"github.com/tomtom215/cinematch/internal/ratings"
)

var _ ratings.Persister = (*DB)(nil)

// LoadAll reads every user, movie and rating.
func (db *DB) LoadAll(ctx context.Context) (*ratings.Dataset, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	ds := &ratings.Dataset{}
	var err error

	if ds.Users, err = db.loadUsers(ctx); err != nil {
		metrics.RecordDBQuery("select", "users", time.Since(start), err)
		return nil, err
	}
	if ds.Movies, err = db.loadMovies(ctx); err != nil {
		metrics.RecordDBQuery("select", "movies", time.Since(start), err)
		return nil, err
	}
	if ds.Ratings, err = db.loadRatings(ctx); err != nil {
		metrics.RecordDBQuery("select", "ratings", time.Since(start), err)
		return nil, err
	}

	metrics.RecordDBQuery("load_all", "ratings", time.Since(start), nil)
	db.logger.Info().
		Int("users", len(ds.Users)).
		Int("movies", len(ds.Movies)).
		Int("ratings", len(ds.Ratings)).
		Dur("duration", time.Since(start)).
		Msg("Loaded dataset")
	return ds, nil
}

func (db *DB) loadUsers(ctx context.Context) ([]ratings.User, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT user_id, username, created_at FROM users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer closeWithLog(rows, "users rows")

	var users []ratings.User
	for rows.Next() {
		var u ratings.User
		if err := rows.Scan(&u.ID, &u.Username, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (db *DB) loadMovies(ctx context.Context) ([]ratings.Movie, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT movie_id, title, genres FROM movies ORDER BY movie_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query movies: %w", err)
	}
	defer closeWithLog(rows, "movies rows")

	var movies []ratings.Movie
	for rows.Next() {
		var m ratings.Movie
		var genres string
		if err := rows.Scan(&m.ID, &m.Title, &genres); err != nil {
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}
		m.Genres = ratings.ParseGenres(genres)
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

func (db *DB) loadRatings(ctx context.Context) ([]ratings.Rating, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT user_id, movie_id, rating, rated_at FROM ratings ORDER BY user_id, movie_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	defer closeWithLog(rows, "ratings rows")

	var out []ratings.Rating
	for rows.Next() {
		var r ratings.Rating
		if err := rows.Scan(&r.UserID, &r.MovieID, &r.Value, &r.RatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const upsertRatingSQL = `INSERT INTO ratings (user_id, movie_id, rating, rated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (user_id, movie_id) DO UPDATE SET rating = EXCLUDED.rating, rated_at = EXCLUDED.rated_at`

// UpsertRating inserts or overwrites one rating.
func (db *DB) UpsertRating(ctx context.Context, r ratings.Rating) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	err := retryOnConflict(ctx, func() error {
		_, execErr := db.conn.ExecContext(ctx, upsertRatingSQL, r.UserID, r.MovieID, r.Value, ratedAt(r))
		return execErr
	})
	metrics.RecordDBQuery("upsert", "ratings", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert rating (%d, %d): %w", r.UserID, r.MovieID, err)
	}
	return nil
}

// CreateUser inserts the user row and its initial ratings in one transaction.
func (db *DB) CreateUser(ctx context.Context, u ratings.User, initial []ratings.Rating) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	err := retryOnConflict(ctx, func() error {
		return db.createUserTx(ctx, u, initial)
	})
	metrics.RecordDBQuery("insert", "users", time.Since(start), err)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ratings.ErrDuplicateUsername, u.Username)
		}
		return fmt.Errorf("failed to create user %d: %w", u.ID, err)
	}
	return nil
}

func (db *DB) createUserTx(ctx context.Context, u ratings.User, initial []ratings.Rating) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO users (user_id, username, created_at) VALUES (?, ?, ?)`,
		u.ID, u.Username, createdAt); err != nil {
		return err
	}

	if len(initial) > 0 {
		var stmt *sql.Stmt
		stmt, err = tx.PrepareContext(ctx, upsertRatingSQL)
		if err != nil {
			return fmt.Errorf("failed to prepare rating insert: %w", err)
		}
		defer closeQuietly(stmt)

		for _, r := range initial {
			if _, err = stmt.ExecContext(ctx, u.ID, r.MovieID, r.Value, ratedAt(r)); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// InsertMovies adds catalogue rows, replacing titles and genres of existing ids.
func (db *DB) InsertMovies(ctx context.Context, movies []ratings.Movie) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	err := func() (err error) {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() {
			if err != nil {
				_ = tx.Rollback()
			}
		}()
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO movies (movie_id, title, genres) VALUES (?, ?, ?)
			ON CONFLICT (movie_id) DO UPDATE SET title = EXCLUDED.title, genres = EXCLUDED.genres`)
		if err != nil {
			return err
		}
		defer closeQuietly(stmt)
		for _, m := range movies {
			if _, err = stmt.ExecContext(ctx, m.ID, m.Title, ratings.JoinGenres(m.Genres)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}()
	metrics.RecordDBQuery("insert", "movies", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert movies: %w", err)
	}
	return nil
}

// Counts returns the row counts of the three tables.
func (db *DB) Counts(ctx context.Context) (users, movies, ratingCount int, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	err = db.conn.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM users), (SELECT COUNT(*) FROM movies), (SELECT COUNT(*) FROM ratings)`,
	).Scan(&users, &movies, &ratingCount)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return users, movies, ratingCount, nil
}

func ratedAt(r ratings.Rating) time.Time {
	if r.RatedAt.IsZero() {
		return time.Now()
	}
	return r.RatedAt
}
