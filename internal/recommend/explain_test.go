// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package recommend

import "testing"

func TestExplain_UserBased(t *testing.T) {
	snap := testStore(t).Snapshot()
	p := &Prediction{
		MovieID: 4,
		Value:   4,
		Source:  PredictionNeighbors,
		Contributions: []Contribution{
			{ID: 2, Similarity: 0.912345, Overlap: 3, Rating: 4.5, Weight: 0.6},
			{ID: 3, Similarity: 0.6, Overlap: 2, Rating: 3, Weight: 0.4},
		},
	}

	exp := Explain(snap, MethodUserBased, p, 5, 2)
	if exp == nil || len(exp.RelevantNeighbors) != 2 || exp.SimilarItems != nil {
		t.Fatalf("Explain() = %+v, want two neighbours", exp)
	}
	first := exp.RelevantNeighbors[0]
	if first.UserID != 2 || first.Similarity != 0.9123 || first.RatingForThisMovie != 4.5 {
		t.Errorf("first = %+v", first)
	}
	// User 2 rated movie 1 = 5, movie 3 = 4, movie 2 = 3.
	if len(first.TopRatings) != 2 || first.TopRatings[0].Title != "Movie A" || first.TopRatings[0].Rating != 5 ||
		first.TopRatings[1].Title != "Movie C" {
		t.Errorf("TopRatings = %+v", first.TopRatings)
	}
}

func TestExplain_ItemBased(t *testing.T) {
	snap := testStore(t).Snapshot()
	p := &Prediction{
		MovieID:       4,
		Source:        PredictionNeighbors,
		Contributions: []Contribution{{ID: 1, Similarity: 0.5, Overlap: 4, Rating: 4, Weight: 1}},
	}

	exp := Explain(snap, MethodItemBased, p, 5, 2)
	if exp == nil || len(exp.SimilarItems) != 1 || exp.RelevantNeighbors != nil {
		t.Fatalf("Explain() = %+v, want one similar item", exp)
	}
	got := exp.SimilarItems[0]
	if got.MovieID != 1 || got.Title != "Movie A" || got.Similarity != 0.5 || got.UserRating != 4 {
		t.Errorf("SimilarItems[0] = %+v", got)
	}
}

func TestExplain_LimitsAndFallback(t *testing.T) {
	snap := testStore(t).Snapshot()

	many := &Prediction{Source: PredictionNeighbors}
	for i := 0; i < 8; i++ {
		many.Contributions = append(many.Contributions, Contribution{ID: 1 + i%5, Similarity: 0.5, Weight: 0.125})
	}

	tests := []struct {
		name  string
		p     *Prediction
		limit int
		want  int
	}{
		{"capped", many, 5, 5},
		{"unlimited", many, -1, 8},
		{"disabled", many, 0, 0},
		{"fallback", &Prediction{Source: PredictionMovieMean, Value: 3}, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := Explain(snap, MethodItemBased, tt.p, tt.limit, 2)
			if tt.want == 0 {
				if exp != nil {
					t.Errorf("Explain() = %+v, want nil", exp)
				}
				return
			}
			if exp == nil || len(exp.SimilarItems) != tt.want {
				t.Errorf("Explain() entries = %+v, want %d", exp, tt.want)
			}
		})
	}
}
