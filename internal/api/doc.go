// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

/*
Package api serves the Cinematch HTTP JSON API on a chi router.

Endpoints:

	GET  /users?limit=N
	GET  /movies?limit=N
	GET  /popular-movies
	GET  /user/{id}/ratings
	GET  /user/{id}/recommendations/user-based?n=N&filter_ratings=3,4
	GET  /user/{id}/recommendations/item-based?n=N&filter_ratings=3,4
	POST /users/new
	POST /user/{id}/rate?movieId=M&rating=R
	GET  /health
	GET  /metrics

Successful responses are bare JSON arrays or objects. Errors use the
models.APIResponse envelope with one of the ErrCode* codes. A user without
ratings is not an error: recommendations fall back to popular movies and the
X-Recommendation-Source header reports cold_start.

Middleware order: request id, real IP, panic recovery, CORS, then per-IP
rate limiting, Prometheus request metrics, request timeout and response
compression on the data routes. Rating writes additionally pass a per-user
token bucket.
*/
package api
