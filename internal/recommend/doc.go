// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

/*
Package recommend ranks unrated movies for a user by predicted rating.

The Engine validates a Request, takes one ratings.Snapshot for the whole
call and runs a registered Predictor over every candidate movie on a
bounded worker pool. Predictors live in the algorithms subpackage:

  - user-based: weighted mean of the ratings given by the K most similar
    users who rated the movie
  - item-based: weighted mean of the user's own ratings of the K movies
    most similar to the candidate

When no positive neighbour exists a prediction falls back to the movie
mean, the user mean and finally a configured default. Users without any
ratings receive the most-rated movies (Source cold_start).

Each Item carries an Explanation built from the contributions that produced
its value. Responses are cached per (user, method, n, filter, version);
a new store version makes older entries unreachable.

Usage:

	sim, _ := algorithms.NewSimilarity(algorithms.DefaultSimilarityConfig())
	ub, _ := algorithms.NewUserBasedCF(algorithms.DefaultKNNConfig(), sim)

	engine, _ := recommend.NewEngine(recommend.DefaultConfig(), store, logger)
	engine.RegisterPredictor(ub)

	resp, err := engine.Recommend(ctx, recommend.Request{
		UserID: 42,
		Method: recommend.MethodUserBased,
		N:      15,
	})
*/
package recommend
