// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package algorithms implements neighbourhood collaborative filtering:
// Pearson and cosine similarity with a version-tagged LRU, and the
// user-based and item-based KNN predictors.
package algorithms
