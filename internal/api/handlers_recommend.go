// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/models"
	"github.com/tomtom215/cinematch/internal/ratings"
	"github.com/tomtom215/cinematch/internal/recommend"
)

// Response headers describing how a recommendation list was produced.
const (
	HeaderRecommendationSource = "X-Recommendation-Source"
	HeaderCache                = "X-Cache"
	HeaderStoreVersion         = "X-Store-Version"
)

// Recommendations handles
// GET /user/{id}/recommendations/{method}?n=N&filter_ratings=3,4.
//
// Users without ratings receive the popularity fallback with status 200;
// the source is reported in X-Recommendation-Source.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	method, err := recommend.ParseMethod(chi.URLParam(r, "method"))
	if err != nil {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, err.Error(), nil)
		return
	}
	userID, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	n, err := getIntParam(r, "n", 0)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	bands, err := parseCommaSeparatedInts(r.URL.Query().Get("filter_ratings"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "filter_ratings: "+err.Error(), nil)
		return
	}

	req := RecommendationsRequest{UserID: userID, N: n, FilterRatings: bands}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr, nil)
		return
	}

	resp, err := h.engine.Recommend(r.Context(), recommend.Request{
		UserID:       req.UserID,
		Method:       method,
		N:            req.N,
		RatingFilter: req.FilterRatings,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Debug().
		Int("user_id", userID).
		Str("method", method.String()).
		Str("source", string(resp.Source)).
		Bool("cache_hit", resp.CacheHit).
		Int("items", len(resp.Items)).
		Msg("Recommendations served")

	w.Header().Set(HeaderRecommendationSource, string(resp.Source))
	w.Header().Set(HeaderStoreVersion, strconv.FormatUint(resp.Version, 10))
	if resp.CacheHit {
		w.Header().Set(HeaderCache, "HIT")
	} else {
		w.Header().Set(HeaderCache, "MISS")
	}
	respondJSON(w, http.StatusOK, toRecommendations(resp.Items))
}

func toRecommendations(items []recommend.Item) []models.Recommendation {
	out := make([]models.Recommendation, len(items))
	for i, it := range items {
		out[i] = models.Recommendation{
			MovieID:         it.Movie.ID,
			Title:           it.Movie.Title,
			Genres:          ratings.JoinGenres(it.Movie.Genres),
			PredictedRating: recommend.Round(it.PredictedRating, 2),
			Explanation:     toExplanation(it.Explanation),
		}
	}
	return out
}

func toExplanation(e *recommend.Explanation) *models.Explanation {
	if e == nil {
		return nil
	}
	out := &models.Explanation{}
	if len(e.RelevantNeighbors) > 0 {
		out.RelevantNeighbors = make([]models.Neighbor, len(e.RelevantNeighbors))
		for i, n := range e.RelevantNeighbors {
			var top []models.TopRating
			if len(n.TopRatings) > 0 {
				top = make([]models.TopRating, len(n.TopRatings))
				for j, t := range n.TopRatings {
					top[j] = models.TopRating{Title: t.Title, Rating: t.Rating}
				}
			}
			out.RelevantNeighbors[i] = models.Neighbor{
				UserID:             n.UserID,
				Similarity:         n.Similarity,
				RatingForThisMovie: n.RatingForThisMovie,
				TopRatings:         top,
			}
		}
	}
	if len(e.SimilarItems) > 0 {
		out.SimilarItems = make([]models.SimilarItem, len(e.SimilarItems))
		for i, s := range e.SimilarItems {
			out.SimilarItems[i] = models.SimilarItem{
				Title:      s.Title,
				Genres:     ratings.JoinGenres(s.Genres),
				Similarity: s.Similarity,
				UserRating: s.UserRating,
			}
		}
	}
	return out
}
