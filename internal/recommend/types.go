// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package recommend

import (
	"context"
	"errors"
	"math"

	"github.com/tomtom215/cinematch/internal/ratings"
)

// Errors returned by the engine. Unknown users are reported with
// ratings.ErrUserNotFound.
var (
	ErrUnknownMethod = errors.New("unknown recommendation method")
	ErrInvalidN      = errors.New("n out of range")
	ErrInvalidFilter = errors.New("rating filter bands must be between 0 and 5")
	ErrNoPredictor   = errors.New("no predictor registered for method")
)

// Method selects the collaborative filtering variant.
type Method string

const (
	MethodUserBased Method = "user-based"
	MethodItemBased Method = "item-based"
)

// ParseMethod validates a method name from a request path.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodUserBased, MethodItemBased:
		return Method(s), nil
	default:
		return "", ErrUnknownMethod
	}
}

func (m Method) String() string { return string(m) }

// Source describes how a recommendation list was produced.
type Source string

const (
	SourcePersonalized Source = "personalized"
	SourceColdStart    Source = "cold_start"
	SourceEmptyCatalog Source = "empty_catalog"
	SourceNoCandidates Source = "no_candidates"
)

// PredictionSource describes where a single predicted value came from.
type PredictionSource string

const (
	PredictionNeighbors PredictionSource = "neighbors"
	PredictionMovieMean PredictionSource = "movie_mean"
	PredictionUserMean  PredictionSource = "user_mean"
	PredictionDefault   PredictionSource = "default"
)

// Rating bounds for predicted values.
const (
	MinPrediction = 0.5
	MaxPrediction = 5.0
)

// Contribution is one neighbour's share of a prediction. ID is a user id
// for user-based predictions and a movie id for item-based ones.
type Contribution struct {
	ID         int
	Similarity float64
	Overlap    int
	Rating     float64
	Weight     float64
}

// Prediction is a predicted rating for one (user, movie) pair.
// Contributions are sorted by Weight descending and empty for fallbacks.
type Prediction struct {
	MovieID       int
	Value         float64
	Source        PredictionSource
	Contributions []Contribution
}

// Predictor computes predictions against a snapshot. Implementations must
// be safe for concurrent use.
type Predictor interface {
	Method() Method
	Predict(ctx context.Context, snap *ratings.Snapshot, userID, movieID int) (Prediction, error)
}

// Request is a recommendation query.
type Request struct {
	UserID int
	Method Method
	// N is the number of items wanted. Zero means the configured default.
	N int
	// RatingFilter holds integer bands. An empty filter keeps everything.
	RatingFilter []int
}

// Item is one recommended movie.
type Item struct {
	Movie           ratings.Movie
	PredictedRating float64
	Explanation     *Explanation
}

// Response is the result of Recommend. Responses may be shared through the
// cache and must not be modified.
type Response struct {
	Items           []Item
	Source          Source
	Method          Method
	Version         uint64
	TotalCandidates int
	CacheHit        bool
}

// Explanation holds the evidence for one item. Exactly one slice is set.
type Explanation struct {
	RelevantNeighbors []NeighborExplanation
	SimilarItems      []ItemExplanation
}

// NeighborExplanation is a user-based explanation entry.
type NeighborExplanation struct {
	UserID             int
	Similarity         float64
	RatingForThisMovie float64
	TopRatings         []RatedTitle
}

// RatedTitle is a movie title with the rating a neighbour gave it.
type RatedTitle struct {
	Title  string
	Rating float64
}

// ItemExplanation is an item-based explanation entry.
type ItemExplanation struct {
	MovieID    int
	Title      string
	Genres     []string
	Similarity float64
	UserRating float64
}

// Stats reports engine counters.
type Stats struct {
	Requests    int64
	CacheHits   int64
	CacheMisses int64
	CacheSize   int
	HitRate     float64
	Errors      int64
}

// ClampRating bounds v to [MinPrediction, MaxPrediction].
func ClampRating(v float64) float64 {
	return math.Max(MinPrediction, math.Min(MaxPrediction, v))
}

// Fallback is the prediction used when no neighbours are available: the
// movie mean, then the user mean, then defaultRating.
func Fallback(snap *ratings.Snapshot, userID, movieID int, defaultRating float64) Prediction {
	if m, ok := snap.MovieMean(movieID); ok {
		return Prediction{MovieID: movieID, Value: ClampRating(m), Source: PredictionMovieMean}
	}
	if m, ok := snap.UserMean(userID); ok {
		return Prediction{MovieID: movieID, Value: ClampRating(m), Source: PredictionUserMean}
	}
	return Prediction{MovieID: movieID, Value: ClampRating(defaultRating), Source: PredictionDefault}
}

// Round rounds v to places decimal places, halves away from zero.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
