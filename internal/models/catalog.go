// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package models

// UserSummary is an entry of GET /users.
type UserSummary struct {
	UserID   int    `json:"userId"`
	Username string `json:"username"`
}

// MovieSummary is an entry of GET /movies and GET /popular-movies.
// Genres are pipe-separated, e.g. "Action|Crime|Thriller".
type MovieSummary struct {
	MovieID int    `json:"movieId"`
	Title   string `json:"title"`
	Genres  string `json:"genres"`
}

// UserRating is an entry of GET /user/{id}/ratings.
type UserRating struct {
	MovieID int     `json:"movieId"`
	Title   string  `json:"title"`
	Genres  string  `json:"genres"`
	Rating  float64 `json:"rating"`
}

// Recommendation is an entry of GET /user/{id}/recommendations/{method}.
type Recommendation struct {
	MovieID         int          `json:"movieId"`
	Title           string       `json:"title"`
	Genres          string       `json:"genres"`
	PredictedRating float64      `json:"predicted_rating"`
	Explanation     *Explanation `json:"explanation,omitempty"`
}

// Explanation holds user-based or item-based evidence. Only one list is set.
type Explanation struct {
	RelevantNeighbors []Neighbor    `json:"relevant_neighbors,omitempty"`
	SimilarItems      []SimilarItem `json:"similar_items_rated_by_user,omitempty"`
}

// Neighbor is a similar user that rated the recommended movie.
type Neighbor struct {
	UserID             int         `json:"userId"`
	Similarity         float64     `json:"similarity"`
	RatingForThisMovie float64     `json:"rating_for_this_movie"`
	TopRatings         []TopRating `json:"top_ratings,omitempty"`
}

// TopRating is one of a neighbour's highest rated movies.
type TopRating struct {
	Title  string  `json:"title"`
	Rating float64 `json:"rating"`
}

// SimilarItem is a movie the user rated that resembles the recommendation.
type SimilarItem struct {
	Title      string  `json:"title"`
	Genres     string  `json:"genres"`
	Similarity float64 `json:"similarity"`
	UserRating float64 `json:"user_rating"`
}

// NewUserRequest is the body of POST /users/new. Each ratings element maps
// a movie id (as a string key) to a rating.
type NewUserRequest struct {
	Username string               `json:"username"`
	Ratings  []map[string]float64 `json:"ratings"`
}

// NewUserResponse acknowledges POST /users/new.
type NewUserResponse struct {
	UserID     int    `json:"userId"`
	Username   string `json:"username"`
	NumRatings int    `json:"num_ratings"`
}

// RateResponse acknowledges POST /user/{id}/rate.
type RateResponse struct {
	Message string  `json:"message"`
	UserID  int     `json:"userId"`
	MovieID int     `json:"movieId"`
	Rating  float64 `json:"rating"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status         string  `json:"status"`
	Version        string  `json:"version"`
	StoreVersion   uint64  `json:"store_version"`
	Users          int     `json:"users"`
	Movies         int     `json:"movies"`
	Ratings        int     `json:"ratings"`
	Database       string  `json:"database,omitempty"`
	CircuitBreaker string  `json:"circuit_breaker,omitempty"`
	PendingWrites  int64   `json:"pending_writes"`
	CacheHitRate   float64 `json:"cache_hit_rate"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}
