// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package algorithms

import (
	"context"
	"math"
	"testing"

	"github.com/tomtom215/cinematch/internal/ratings"
)

// buildStore creates an in-memory store. grid maps user id to movie id to
// rating; every referenced movie is added to the catalogue.
func buildStore(t *testing.T, grid map[int]map[int]float64, extraMovies ...int) *ratings.Store {
	t.Helper()
	ds := &ratings.Dataset{}
	movies := make(map[int]bool)
	for uid, row := range grid {
		ds.Users = append(ds.Users, ratings.User{ID: uid, Username: "user" + string(rune('a'+uid))})
		for mid, v := range row {
			movies[mid] = true
			ds.Ratings = append(ds.Ratings, ratings.Rating{UserID: uid, MovieID: mid, Value: v})
		}
	}
	for _, mid := range extraMovies {
		movies[mid] = true
	}
	for mid := range movies {
		ds.Movies = append(ds.Movies, ratings.Movie{ID: mid, Title: "Movie " + string(rune('A'+mid)), Genres: []string{"Drama"}})
	}
	store := ratings.NewStore(nil)
	store.Replace(context.Background(), ds)
	return store
}

// scenarioGrid: A (1) and B (2) agree on movies 1 and 2; only B rated 3.
func scenarioGrid() map[int]map[int]float64 {
	return map[int]map[int]float64{
		1: {1: 5.0, 2: 4.5},
		2: {1: 5.0, 2: 4.0, 3: 5.0},
	}
}

// denseGrid is a deterministic, fairly dense rating matrix.
func denseGrid() map[int]map[int]float64 {
	grid := make(map[int]map[int]float64)
	for u := 1; u <= 8; u++ {
		grid[u] = make(map[int]float64)
		for m := 1; m <= 12; m++ {
			if (u+m)%4 == 0 {
				continue
			}
			grid[u][m] = float64((u*7+m*3)%10+1) / 2
		}
	}
	return grid
}

func newSim(t *testing.T, cfg SimilarityConfig) *Similarity {
	t.Helper()
	s, err := NewSimilarity(cfg)
	if err != nil {
		t.Fatalf("NewSimilarity() error = %v", err)
	}
	return s
}

func TestNewSimilarity_Config(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SimilarityConfig
		wantErr bool
		metric  string
	}{
		{"defaults", DefaultSimilarityConfig(), false, MetricPearson},
		{"empty metric", SimilarityConfig{}, false, MetricPearson},
		{"cosine", SimilarityConfig{Metric: MetricCosine}, false, MetricCosine},
		{"unknown metric", SimilarityConfig{Metric: "jaccard"}, true, ""},
		{"negative shrinkage", SimilarityConfig{Shrinkage: -1}, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSimilarity(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSimilarity() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && s.Metric() != tt.metric {
				t.Errorf("Metric() = %q, want %q", s.Metric(), tt.metric)
			}
		})
	}
}

func TestSimilarity_Scenario(t *testing.T) {
	snap := buildStore(t, scenarioGrid()).Snapshot()

	tests := []struct {
		metric string
		min    float64
	}{
		{MetricPearson, 0.9},
		{MetricCosine, 0.99},
	}
	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			s := newSim(t, SimilarityConfig{Metric: tt.metric})
			sim, overlap := s.Users(snap, 1, 2)
			if overlap != 2 {
				t.Errorf("overlap = %d, want 2", overlap)
			}
			if sim <= tt.min || sim > 1 {
				t.Errorf("Users(1, 2) = %v, want in (%v, 1]", sim, tt.min)
			}
		})
	}
}

func TestSimilarity_SymmetricAcrossInstances(t *testing.T) {
	snap := buildStore(t, denseGrid()).Snapshot()

	for _, metric := range []string{MetricPearson, MetricCosine} {
		t.Run(metric, func(t *testing.T) {
			forward := newSim(t, SimilarityConfig{Metric: metric})
			backward := newSim(t, SimilarityConfig{Metric: metric})
			for a := 1; a <= 8; a++ {
				for b := 1; b <= 8; b++ {
					s1, n1 := forward.Users(snap, a, b)
					s2, n2 := backward.Users(snap, b, a)
					if math.Float64bits(s1) != math.Float64bits(s2) || n1 != n2 {
						t.Errorf("Users(%d,%d) = %v/%d, Users(%d,%d) = %v/%d", a, b, s1, n1, b, a, s2, n2)
					}
				}
			}
			for a := 1; a <= 12; a++ {
				for b := 1; b <= 12; b++ {
					s1, _ := forward.Items(snap, a, b)
					s2, _ := backward.Items(snap, b, a)
					if math.Float64bits(s1) != math.Float64bits(s2) {
						t.Errorf("Items(%d,%d) = %v, Items(%d,%d) = %v", a, b, s1, b, a, s2)
					}
					if s1 < -1 || s1 > 1 {
						t.Errorf("Items(%d,%d) = %v out of [-1, 1]", a, b, s1)
					}
				}
			}
		})
	}
}

func TestSimilarity_ZeroCases(t *testing.T) {
	grid := map[int]map[int]float64{
		1: {1: 4, 2: 2, 3: 5},
		2: {1: 3, 4: 1},         // one co-rated movie with 1
		3: {1: 3, 2: 3, 3: 3},   // no variance
		4: {5: 2, 6: 4, 7: 1.5}, // disjoint
	}
	snap := buildStore(t, grid).Snapshot()
	s := newSim(t, DefaultSimilarityConfig())

	tests := []struct {
		name        string
		a, b        int
		wantOverlap int
	}{
		{"single overlap", 1, 2, 1},
		{"zero variance", 1, 3, 3},
		{"disjoint", 1, 4, 0},
		{"self", 1, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, overlap := s.Users(snap, tt.a, tt.b)
			if sim != 0 {
				t.Errorf("Users(%d,%d) = %v, want 0", tt.a, tt.b, sim)
			}
			if overlap != tt.wantOverlap {
				t.Errorf("overlap = %d, want %d", overlap, tt.wantOverlap)
			}
		})
	}
}

func TestSimilarity_MinOverlap(t *testing.T) {
	snap := buildStore(t, denseGrid()).Snapshot()

	loose := newSim(t, SimilarityConfig{Metric: MetricCosine, MinOverlap: 1})
	strict := newSim(t, SimilarityConfig{Metric: MetricCosine, MinOverlap: 100})

	if sim, _ := loose.Users(snap, 1, 2); sim == 0 {
		t.Error("Users(1,2) = 0 with min overlap raised to 2, want non-zero")
	}
	if sim, overlap := strict.Users(snap, 1, 2); sim != 0 || overlap == 0 {
		t.Errorf("Users(1,2) = %v/%d with min overlap 100, want 0 with overlap reported", sim, overlap)
	}
}

func TestSimilarity_Shrinkage(t *testing.T) {
	snap := buildStore(t, scenarioGrid()).Snapshot()

	raw, n := newSim(t, SimilarityConfig{}).Users(snap, 1, 2)
	shrunk, _ := newSim(t, SimilarityConfig{Shrinkage: 2}).Users(snap, 1, 2)

	want := raw * float64(n) / (float64(n) + 2)
	if math.Abs(shrunk-want) > 1e-12 {
		t.Errorf("shrunk = %v, want %v", shrunk, want)
	}
}

func TestSimilarity_NewVersionRecomputes(t *testing.T) {
	grid := map[int]map[int]float64{
		1: {1: 5, 2: 1, 3: 3},
		2: {1: 5, 2: 1, 3: 3},
	}
	store := buildStore(t, grid)
	s := newSim(t, DefaultSimilarityConfig())

	before, _ := s.Users(store.Snapshot(), 1, 2)
	if math.Abs(before-1) > 1e-9 {
		t.Fatalf("before = %v, want 1", before)
	}

	ctx := context.Background()
	if _, err := store.Rate(ctx, 2, 1, 1); err != nil {
		t.Fatalf("Rate() error = %v", err)
	}
	if _, err := store.Rate(ctx, 2, 2, 5); err != nil {
		t.Fatalf("Rate() error = %v", err)
	}

	after, _ := s.Users(store.Snapshot(), 1, 2)
	if math.Abs(after+1) > 1e-9 {
		t.Errorf("after = %v, want -1", after)
	}
	if s.CacheLen() != 1 {
		t.Errorf("CacheLen() = %d, want 1 after purge", s.CacheLen())
	}
}
