// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package algorithms

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/tomtom215/cinematch/internal/cache"
	"github.com/tomtom215/cinematch/internal/metrics"
	"github.com/tomtom215/cinematch/internal/ratings"
)

// Similarity metrics.
const (
	MetricPearson = "pearson"
	MetricCosine  = "cosine"
)

const similarityCacheName = "similarity"

// SimilarityConfig configures pairwise similarity.
type SimilarityConfig struct {
	// Metric is MetricPearson or MetricCosine.
	Metric string

	// MinOverlap is the minimum number of co-rated counterparts for a
	// non-zero score. Raised to 2 when lower.
	MinOverlap int

	// Shrinkage damps scores from small overlaps:
	// sim = raw_sim * n / (n + shrinkage). Zero disables it.
	Shrinkage float64

	// CacheSize bounds the memoised pair count.
	CacheSize int
}

// DefaultSimilarityConfig returns the production defaults.
func DefaultSimilarityConfig() SimilarityConfig {
	return SimilarityConfig{
		Metric:     MetricPearson,
		MinOverlap: 2,
		CacheSize:  200000,
	}
}

type axis uint8

const (
	axisUsers axis = iota
	axisItems
)

type pairKey struct {
	axis axis
	a, b int
}

type pairScore struct {
	version uint64
	sim     float64
	overlap int
}

// Similarity computes and memoises user-user and item-item similarities.
// Scores are symmetric bit for bit: both argument orders compute over the
// canonical (low, high) pair with keys in ascending order.
type Similarity struct {
	config SimilarityConfig

	cache *cache.LRU[pairKey, pairScore]

	mu      sync.Mutex
	version uint64
}

// NewSimilarity creates a similarity engine.
func NewSimilarity(cfg SimilarityConfig) (*Similarity, error) {
	switch cfg.Metric {
	case "":
		cfg.Metric = MetricPearson
	case MetricPearson, MetricCosine:
	default:
		return nil, fmt.Errorf("unknown similarity metric %q", cfg.Metric)
	}
	if cfg.MinOverlap < 2 {
		cfg.MinOverlap = 2
	}
	if cfg.Shrinkage < 0 {
		return nil, fmt.Errorf("shrinkage must not be negative, got %v", cfg.Shrinkage)
	}
	return &Similarity{
		config: cfg,
		cache:  cache.NewLRU[pairKey, pairScore](cfg.CacheSize),
	}, nil
}

// Metric returns the configured metric name.
func (s *Similarity) Metric() string { return s.config.Metric }

// Users returns the similarity of two users over their co-rated movies
// and the number of co-rated movies.
func (s *Similarity) Users(snap *ratings.Snapshot, a, b int) (float64, int) {
	return s.lookup(snap, axisUsers, a, b)
}

// Items returns the similarity of two movies over the users who rated both
// and the number of such users.
func (s *Similarity) Items(snap *ratings.Snapshot, a, b int) (float64, int) {
	return s.lookup(snap, axisItems, a, b)
}

func (s *Similarity) lookup(snap *ratings.Snapshot, ax axis, a, b int) (float64, int) {
	if a > b {
		a, b = b, a
	}
	version := snap.Version()
	s.observe(version)

	key := pairKey{axis: ax, a: a, b: b}
	if v, ok := s.cache.Get(key); ok && v.version == version {
		metrics.RecordCacheLookup(similarityCacheName, true)
		return v.sim, v.overlap
	}
	metrics.RecordCacheLookup(similarityCacheName, false)

	var sim float64
	var overlap int
	if a != b {
		va, ma := s.vector(snap, ax, a)
		vb, mb := s.vector(snap, ax, b)
		sim, overlap = s.compute(va, vb, ma, mb)
	}
	s.cache.Add(key, pairScore{version: version, sim: sim, overlap: overlap})
	return sim, overlap
}

// observe purges the cache when a new snapshot version shows up. Entries
// are also version-tagged, so a racing reader of an older snapshot can
// never serve its scores to a newer one.
func (s *Similarity) observe(version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version == s.version {
		return
	}
	if version > s.version {
		s.version = version
		s.cache.Purge()
	}
}

func (s *Similarity) vector(snap *ratings.Snapshot, ax axis, id int) (map[int]float64, float64) {
	if ax == axisUsers {
		m, _ := snap.UserMean(id)
		return snap.UserRatings(id), m
	}
	m, _ := snap.MovieMean(id)
	return snap.MovieRatings(id), m
}

// compute scores two rating vectors. meanA and meanB are each entity's mean
// over all of its ratings and are only used by Pearson.
func (s *Similarity) compute(a, b map[int]float64, meanA, meanB float64) (float64, int) {
	common := commonKeys(a, b)
	n := len(common)
	if n < s.config.MinOverlap {
		return 0, n
	}

	if s.config.Metric == MetricCosine {
		meanA, meanB = 0, 0
	}

	var dot, normA, normB float64
	for _, k := range common {
		da := a[k] - meanA
		db := b[k] - meanB
		dot += da * db
		normA += da * da
		normB += db * db
	}
	if normA == 0 || normB == 0 {
		return 0, n
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if s.config.Shrinkage > 0 {
		sim = sim * float64(n) / (float64(n) + s.config.Shrinkage)
	}
	return clamp(sim, -1, 1), n
}

// commonKeys returns the keys present in both maps in ascending order.
func commonKeys(a, b map[int]float64) []int {
	if len(a) > len(b) {
		a, b = b, a
	}
	common := make([]int, 0, len(a))
	for k := range a {
		if _, ok := b[k]; ok {
			common = append(common, k)
		}
	}
	sort.Ints(common)
	return common
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// CacheLen returns the number of memoised pairs.
func (s *Similarity) CacheLen() int {
	return s.cache.Len()
}
