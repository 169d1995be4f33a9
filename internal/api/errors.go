// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/ratings"
	"github.com/tomtom215/cinematch/internal/recommend"
)

// Error codes carried in the error envelope.
const (
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeBadRequest  = "BAD_REQUEST"
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeConflict    = "CONFLICT"
	ErrCodeRateLimited = "RATE_LIMITED"
	ErrCodeTimeout     = "TIMEOUT"
	ErrCodeInternal    = "INTERNAL_ERROR"
)

// writeDomainError maps an error returned by the store or the engine to an
// HTTP status and error code. Unrecognised errors are logged and reported
// as a generic internal error.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ratings.ErrUserNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "User not found", nil)
	case errors.Is(err, ratings.ErrMovieNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Movie not found", nil)
	case errors.Is(err, ratings.ErrDuplicateUsername):
		respondError(w, r, http.StatusConflict, ErrCodeConflict, "Username already exists", nil)
	case errors.Is(err, ratings.ErrInvalidRating),
		errors.Is(err, ratings.ErrEmptyUsername),
		errors.Is(err, ratings.ErrUsernameTooLong),
		errors.Is(err, recommend.ErrInvalidN),
		errors.Is(err, recommend.ErrInvalidFilter):
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
	case errors.Is(err, recommend.ErrUnknownMethod):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeTimeout, "Request timed out", err)
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the body.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Request cancelled by client")
	default:
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Internal server error", err)
	}
}
