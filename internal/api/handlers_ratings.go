// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
	"github.com/tomtom215/cinematch/internal/models"
)

// RateMovie handles POST /user/{id}/rate?movieId=M&rating=R. Rating the
// same movie again replaces the earlier value.
func (h *Handler) RateMovie(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	movieID, err := getIntParam(r, "movieId", 0)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	value, err := getFloatParam(r, "rating")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}

	req := RateRequest{UserID: userID, MovieID: movieID, Rating: value}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr, nil)
		return
	}

	if !h.writeLimiter.Allow(req.UserID) {
		metrics.RecordRateLimitHit(metrics.RateLimiterUserWrite)
		respondError(w, r, http.StatusTooManyRequests, ErrCodeRateLimited, "Too many rating writes for this user", nil)
		return
	}

	saved, err := h.store.Rate(r.Context(), req.UserID, req.MovieID, req.Rating)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Int("user_id", saved.UserID).
		Int("movie_id", saved.MovieID).
		Float64("rating", saved.Value).
		Msg("Rating saved")

	respondJSON(w, http.StatusOK, models.RateResponse{
		Message: "Rating saved",
		UserID:  saved.UserID,
		MovieID: saved.MovieID,
		Rating:  saved.Value,
	})
}

// CreateUser handles POST /users/new with body
// {"username": "...", "ratings": [{"<movieId>": rating}, ...]}.
// The whole request is validated before the user is created.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var body models.NewUserRequest
	if err := decodeJSONBody(w, r, &body); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}

	input := NewUserInput{Username: strings.TrimSpace(body.Username)}
	for _, entry := range body.Ratings {
		for key, value := range entry {
			movieID, err := strconv.Atoi(strings.TrimSpace(key))
			if err != nil {
				respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest,
					"ratings keys must be movie ids, got "+strconv.Quote(key), nil)
				return
			}
			input.Ratings = append(input.Ratings, RatingInput{MovieID: movieID, Rating: value})
		}
	}
	if apiErr := validateRequest(&input); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr, nil)
		return
	}

	// A movie listed twice keeps its last value.
	initial := make(map[int]float64, len(input.Ratings))
	for _, ri := range input.Ratings {
		initial[ri.MovieID] = ri.Rating
	}

	user, err := h.store.CreateUser(r.Context(), input.Username, initial)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, models.NewUserResponse{
		UserID:     user.ID,
		Username:   user.Username,
		NumRatings: len(initial),
	})
}
