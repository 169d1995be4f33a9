// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package algorithms

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinematch/internal/ratings"
	"github.com/tomtom215/cinematch/internal/recommend"
)

func newEngine(t *testing.T, store *ratings.Store) *recommend.Engine {
	t.Helper()
	engine, err := recommend.NewEngine(recommend.DefaultConfig(), store, zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	ub, ib := newPredictors(t, DefaultKNNConfig())
	engine.RegisterPredictor(ub)
	engine.RegisterPredictor(ib)
	return engine
}

func TestEngine_UserBasedScenarioExplanation(t *testing.T) {
	engine := newEngine(t, buildStore(t, scenarioGrid()))

	resp, err := engine.Recommend(context.Background(), recommend.Request{
		UserID: 1,
		Method: recommend.MethodUserBased,
		N:      15,
	})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if resp.Source != recommend.SourcePersonalized {
		t.Errorf("Source = %s, want personalized", resp.Source)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("Items = %d, want 1", len(resp.Items))
	}

	item := resp.Items[0]
	if item.Movie.ID != 3 {
		t.Errorf("Movie.ID = %d, want 3", item.Movie.ID)
	}
	if item.PredictedRating < 4.99 || item.PredictedRating > 5 {
		t.Errorf("PredictedRating = %v, want about 5", item.PredictedRating)
	}
	if item.Explanation == nil || len(item.Explanation.RelevantNeighbors) != 1 {
		t.Fatalf("Explanation = %+v, want one neighbour", item.Explanation)
	}
	nb := item.Explanation.RelevantNeighbors[0]
	if nb.UserID != 2 || nb.Similarity <= 0.9 || nb.RatingForThisMovie != 5 {
		t.Errorf("neighbour = %+v, want user 2 with similarity > 0.9", nb)
	}
	if len(nb.TopRatings) != 2 {
		t.Errorf("TopRatings = %d, want 2", len(nb.TopRatings))
	}
}

func TestEngine_NoPaddingWhenFewCandidates(t *testing.T) {
	grid := denseGrid()
	// User 1 has rated everything except three movies.
	for m := 1; m <= 12; m++ {
		grid[1][m] = 3
	}
	delete(grid[1], 4)
	delete(grid[1], 8)
	delete(grid[1], 12)
	engine := newEngine(t, buildStore(t, grid))

	for _, method := range []recommend.Method{recommend.MethodUserBased, recommend.MethodItemBased} {
		t.Run(method.String(), func(t *testing.T) {
			resp, err := engine.Recommend(context.Background(), recommend.Request{UserID: 1, Method: method, N: 15})
			if err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			if len(resp.Items) != 3 {
				t.Errorf("Items = %d, want 3", len(resp.Items))
			}
			for i, item := range resp.Items {
				if i > 0 && item.PredictedRating > resp.Items[i-1].PredictedRating {
					t.Errorf("items not sorted: %v after %v", item.PredictedRating, resp.Items[i-1].PredictedRating)
				}
				if item.Explanation != nil {
					if n := len(item.Explanation.RelevantNeighbors) + len(item.Explanation.SimilarItems); n > 5 {
						t.Errorf("explanation has %d entries, want <= 5", n)
					}
				}
			}
		})
	}
}
