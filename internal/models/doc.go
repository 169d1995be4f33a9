// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package models defines the JSON wire types of the HTTP API. Field names
// (userId, movieId, predicted_rating, ...) follow the contract expected by
// the existing browser client and must not change.
package models
