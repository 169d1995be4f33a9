// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package ratings is the authoritative in-memory view of users, movies and
// ratings. Readers take an immutable Snapshot; writers go through Store,
// which persists each mutation and then swaps in a new snapshot with a
// higher version.
package ratings

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors. Callers match them with errors.Is.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrMovieNotFound     = errors.New("movie not found")
	ErrInvalidRating     = errors.New("rating must be between 0.5 and 5.0 in steps of 0.5")
	ErrEmptyUsername     = errors.New("username must not be empty")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrUsernameTooLong   = errors.New("username too long")
)

// User is a registered rater.
type User struct {
	ID        int
	Username  string
	CreatedAt time.Time
}

// Movie is static catalogue data.
type Movie struct {
	ID     int
	Title  string
	Genres []string
}

// Rating is one user's score for one movie.
type Rating struct {
	UserID  int
	MovieID int
	Value   float64
	RatedAt time.Time
}

// RatedMovie pairs a movie with the value a particular user gave it.
type RatedMovie struct {
	Movie Movie
	Value float64
}

// Dataset is the full persisted content used to build a snapshot.
type Dataset struct {
	Users   []User
	Movies  []Movie
	Ratings []Rating
}

// Persister is the durable collaborator behind the store. A nil Persister
// keeps everything in memory.
type Persister interface {
	LoadAll(ctx context.Context) (*Dataset, error)
	UpsertRating(ctx context.Context, r Rating) error
	CreateUser(ctx context.Context, u User, ratings []Rating) error
}

// ChangeKind classifies a committed mutation.
type ChangeKind string

const (
	ChangeRatingSaved ChangeKind = "rating_saved"
	ChangeUserCreated ChangeKind = "user_created"
	ChangeReloaded    ChangeKind = "reloaded"
)

// Change describes a committed mutation.
type Change struct {
	Kind    ChangeKind
	UserID  int
	MovieID int
	Value   float64
	// NumRatings is set for ChangeUserCreated.
	NumRatings int
	Version    uint64
	At         time.Time
}

// Observer is notified after a mutation has been committed. Observers run
// synchronously on the writer's goroutine and must not block.
type Observer interface {
	OnChange(ctx context.Context, c Change)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, c Change)

// OnChange calls f.
func (f ObserverFunc) OnChange(ctx context.Context, c Change) { f(ctx, c) }
