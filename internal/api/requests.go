// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package api

// Request structs validated with go-playground/validator before any handler
// touches the store.

// ListRequest bounds the limit query parameter of list endpoints.
type ListRequest struct {
	Limit int `validate:"min=1,max=100000"`
}

// RecommendationsRequest holds the query of a recommendation request. N of
// zero selects the configured default; its upper bound is the engine's
// configured MaxN.
type RecommendationsRequest struct {
	UserID        int   `validate:"min=1"`
	N             int   `validate:"min=0"`
	FilterRatings []int `validate:"max=6,dive,min=0,max=5"`
}

// RateRequest holds a single rating write.
type RateRequest struct {
	UserID  int     `validate:"min=1"`
	MovieID int     `validate:"min=1"`
	Rating  float64 `validate:"halfstar"`
}

// NewUserInput is the validated form of models.NewUserRequest.
type NewUserInput struct {
	Username string        `validate:"required,max=64"`
	Ratings  []RatingInput `validate:"max=10000,dive"`
}

// RatingInput is one (movie, rating) pair of a new user's initial ratings.
type RatingInput struct {
	MovieID int     `validate:"min=1"`
	Rating  float64 `validate:"halfstar"`
}
