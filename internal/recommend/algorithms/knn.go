// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package algorithms

import (
	"context"
	"fmt"
	"sort"

	"github.com/tomtom215/cinematch/internal/ratings"
	"github.com/tomtom215/cinematch/internal/recommend"
)

// KNNConfig contains configuration for the neighbourhood predictors.
type KNNConfig struct {
	// K is the maximum number of neighbours per prediction.
	K int

	// MinNeighbors is the number of positive neighbours required before
	// falling back to averages.
	MinNeighbors int

	// DefaultRating is the last-resort fallback value.
	DefaultRating float64
}

// DefaultKNNConfig returns default KNN configuration.
func DefaultKNNConfig() KNNConfig {
	return KNNConfig{
		K:             30,
		MinNeighbors:  1,
		DefaultRating: 3.0,
	}
}

func (c KNNConfig) validate() error {
	if c.K < 1 {
		return fmt.Errorf("k must be at least 1, got %d", c.K)
	}
	if c.MinNeighbors < 1 {
		return fmt.Errorf("min neighbors must be at least 1, got %d", c.MinNeighbors)
	}
	return nil
}

// neighbor is a similar user or item that rated the target.
type neighbor struct {
	ID         int
	Similarity float64
	Overlap    int
	Rating     float64
}

// ========== User-Based Collaborative Filtering ==========

// UserBasedCF predicts from the users most similar to the target who rated
// the movie:
//
//	score(u, i) = sum_{v in N(u)} sim(u, v) * r(v, i) / sum_{v in N(u)} sim(u, v)
//
// where N(u) is the K most similar users with sim > 0 who rated i.
type UserBasedCF struct {
	config KNNConfig
	sim    *Similarity
}

var _ recommend.Predictor = (*UserBasedCF)(nil)

// NewUserBasedCF creates a user-based predictor.
func NewUserBasedCF(cfg KNNConfig, sim *Similarity) (*UserBasedCF, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &UserBasedCF{config: cfg, sim: sim}, nil
}

// Method returns recommend.MethodUserBased.
func (u *UserBasedCF) Method() recommend.Method { return recommend.MethodUserBased }

// Predict estimates userID's rating for movieID.
func (u *UserBasedCF) Predict(ctx context.Context, snap *ratings.Snapshot, userID, movieID int) (recommend.Prediction, error) {
	raters := sortedKeys(snap.MovieRatings(movieID))
	neighbors := make([]neighbor, 0, len(raters))
	for _, other := range raters {
		if recommend.ContextCancelled(ctx) {
			return recommend.Prediction{}, ctx.Err()
		}
		if other == userID {
			continue
		}
		sim, overlap := u.sim.Users(snap, userID, other)
		if sim <= 0 {
			continue
		}
		r, _ := snap.Rating(other, movieID)
		neighbors = append(neighbors, neighbor{ID: other, Similarity: sim, Overlap: overlap, Rating: r})
	}
	return aggregate(snap, u.config, userID, movieID, neighbors), nil
}

// ========== Item-Based Collaborative Filtering ==========

// ItemBasedCF predicts from the movies the target user rated that are most
// similar to the candidate:
//
//	score(u, i) = sum_{j in N(i)} sim(i, j) * r(u, j) / sum_{j in N(i)} sim(i, j)
type ItemBasedCF struct {
	config KNNConfig
	sim    *Similarity
}

var _ recommend.Predictor = (*ItemBasedCF)(nil)

// NewItemBasedCF creates an item-based predictor.
func NewItemBasedCF(cfg KNNConfig, sim *Similarity) (*ItemBasedCF, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &ItemBasedCF{config: cfg, sim: sim}, nil
}

// Method returns recommend.MethodItemBased.
func (i *ItemBasedCF) Method() recommend.Method { return recommend.MethodItemBased }

// Predict estimates userID's rating for movieID.
func (i *ItemBasedCF) Predict(ctx context.Context, snap *ratings.Snapshot, userID, movieID int) (recommend.Prediction, error) {
	rated := snap.UserRatings(userID)
	neighbors := make([]neighbor, 0, len(rated))
	for _, other := range sortedKeys(rated) {
		if recommend.ContextCancelled(ctx) {
			return recommend.Prediction{}, ctx.Err()
		}
		if other == movieID {
			continue
		}
		sim, overlap := i.sim.Items(snap, movieID, other)
		if sim <= 0 {
			continue
		}
		neighbors = append(neighbors, neighbor{ID: other, Similarity: sim, Overlap: overlap, Rating: rated[other]})
	}
	return aggregate(snap, i.config, userID, movieID, neighbors), nil
}

// aggregate ranks neighbours, keeps the top K and computes the weighted
// mean, or the fallback when too few neighbours remain.
//
//nolint:gocritic // hugeParam: cfg is small and read-only
func aggregate(snap *ratings.Snapshot, cfg KNNConfig, userID, movieID int, neighbors []neighbor) recommend.Prediction {
	if len(neighbors) < cfg.MinNeighbors {
		return recommend.Fallback(snap, userID, movieID, cfg.DefaultRating)
	}

	sortNeighbors(neighbors)
	if len(neighbors) > cfg.K {
		neighbors = neighbors[:cfg.K]
	}

	var weighted, total float64
	for _, n := range neighbors {
		weighted += n.Similarity * n.Rating
		total += n.Similarity
	}
	if total <= 0 {
		return recommend.Fallback(snap, userID, movieID, cfg.DefaultRating)
	}

	contribs := make([]recommend.Contribution, len(neighbors))
	for idx, n := range neighbors {
		contribs[idx] = recommend.Contribution{
			ID:         n.ID,
			Similarity: n.Similarity,
			Overlap:    n.Overlap,
			Rating:     n.Rating,
			Weight:     n.Similarity / total,
		}
	}
	// Neighbour order is already weight order; stable keeps the tie-break.
	sort.SliceStable(contribs, func(a, b int) bool {
		return contribs[a].Weight > contribs[b].Weight
	})

	return recommend.Prediction{
		MovieID:       movieID,
		Value:         recommend.ClampRating(weighted / total),
		Source:        recommend.PredictionNeighbors,
		Contributions: contribs,
	}
}

// sortNeighbors orders by similarity desc, overlap desc, id asc.
func sortNeighbors(ns []neighbor) {
	sort.Slice(ns, func(a, b int) bool {
		if ns[a].Similarity != ns[b].Similarity {
			return ns[a].Similarity > ns[b].Similarity
		}
		if ns[a].Overlap != ns[b].Overlap {
			return ns[a].Overlap > ns[b].Overlap
		}
		return ns[a].ID < ns[b].ID
	})
}

func sortedKeys(m map[int]float64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
