// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package api

import (
	"net/http"

	"github.com/tomtom215/cinematch/internal/models"
	"github.com/tomtom215/cinematch/internal/ratings"
)

// Users handles GET /users?limit=N.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.listLimit(w, r, h.config.API.UsersLimit)
	if !ok {
		return
	}

	users := h.store.Snapshot().Users(limit)
	out := make([]models.UserSummary, len(users))
	for i, u := range users {
		out[i] = models.UserSummary{UserID: u.ID, Username: u.Username}
	}
	respondJSON(w, http.StatusOK, out)
}

// Movies handles GET /movies?limit=N.
func (h *Handler) Movies(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.listLimit(w, r, h.config.API.MoviesLimit)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, movieSummaries(h.store.Snapshot().Movies(limit)))
}

// PopularMovies handles GET /popular-movies.
func (h *Handler) PopularMovies(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, movieSummaries(h.engine.PopularMovies(h.config.Recommend.PopularLimit)))
}

// UserRatings handles GET /user/{id}/ratings. Entries are ordered by rating
// descending, then title.
func (h *Handler) UserRatings(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}

	snap := h.store.Snapshot()
	if _, ok := snap.User(userID); !ok {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "User not found", nil)
		return
	}

	rated := snap.RatedBy(userID)
	out := make([]models.UserRating, len(rated))
	for i, rm := range rated {
		out[i] = models.UserRating{
			MovieID: rm.Movie.ID,
			Title:   rm.Movie.Title,
			Genres:  ratings.JoinGenres(rm.Movie.Genres),
			Rating:  rm.Value,
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// listLimit reads and validates ?limit. It writes the error response and
// returns false when the parameter is unusable.
func (h *Handler) listLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	limit, err := getIntParam(r, "limit", def)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return 0, false
	}
	req := ListRequest{Limit: limit}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr, nil)
		return 0, false
	}
	return req.Limit, true
}

func movieSummaries(movies []ratings.Movie) []models.MovieSummary {
	out := make([]models.MovieSummary, len(movies))
	for i, m := range movies {
		out[i] = models.MovieSummary{
			MovieID: m.ID,
			Title:   m.Title,
			Genres:  ratings.JoinGenres(m.Genres),
		}
	}
	return out
}
