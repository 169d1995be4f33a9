// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/cinematch/internal/cache"
	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
	"github.com/tomtom215/cinematch/internal/ratings"
)

const responseCacheName = "recommendations"

// SnapshotSource supplies the current rating snapshot. *ratings.Store
// implements it.
type SnapshotSource interface {
	Snapshot() *ratings.Snapshot
}

// Engine turns predictions into ranked, explained recommendation lists.
// It is safe for concurrent use.
type Engine struct {
	config *Config
	logger zerolog.Logger
	source SnapshotSource

	predictors map[Method]Predictor
	predMu     sync.RWMutex

	cache *cache.TTL[*Response]

	requestCount atomic.Int64
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64
	errorCount   atomic.Int64
}

// NewEngine creates an engine reading from source.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, source SnapshotSource, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if source == nil {
		return nil, errors.New("snapshot source is required")
	}

	return &Engine{
		config:     cfg,
		logger:     logger.With().Str("component", "recommend").Logger(),
		source:     source,
		predictors: make(map[Method]Predictor),
		cache:      cache.NewTTL[*Response](cfg.CacheTTL),
	}, nil
}

// RegisterPredictor installs p for its method, replacing any previous one.
func (e *Engine) RegisterPredictor(p Predictor) {
	e.predMu.Lock()
	defer e.predMu.Unlock()

	e.predictors[p.Method()] = p
	e.logger.Info().
		Str("method", p.Method().String()).
		Msg("registered predictor")
}

func (e *Engine) predictor(m Method) (Predictor, error) {
	e.predMu.RLock()
	defer e.predMu.RUnlock()
	p, ok := e.predictors[m]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPredictor, m)
	}
	return p, nil
}

// Recommend produces up to req.N recommendations for req.UserID.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	e.requestCount.Add(1)

	req, err := e.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	predictor, err := e.predictor(req.Method)
	if err != nil {
		e.errorCount.Add(1)
		return nil, err
	}

	snap := e.source.Snapshot()
	if _, ok := snap.User(req.UserID); !ok {
		return nil, fmt.Errorf("%w: %d", ratings.ErrUserNotFound, req.UserID)
	}

	logger := e.logger.With().
		Str("request_id", logging.RequestIDFromContext(ctx)).
		Int("user_id", req.UserID).
		Str("method", req.Method.String()).
		Uint64("version", snap.Version()).
		Logger()

	key := cacheKey(req, snap.Version())
	if cached, ok := e.cache.Get(key); ok {
		e.cacheHits.Add(1)
		metrics.RecordCacheLookup(responseCacheName, true)
		resp := *cached
		resp.CacheHit = true
		metrics.RecordRecommendation(req.Method.String(), string(resp.Source), time.Since(start))
		logger.Debug().Msg("cache hit")
		return &resp, nil
	}
	e.cacheMisses.Add(1)
	metrics.RecordCacheLookup(responseCacheName, false)

	resp, err := e.compute(ctx, snap, req, predictor, logger)
	if err != nil {
		e.errorCount.Add(1)
		return nil, err
	}

	e.cache.Set(key, resp)
	metrics.CacheEntries.WithLabelValues(responseCacheName).Set(float64(e.cache.Len()))
	metrics.RecordRecommendation(req.Method.String(), string(resp.Source), time.Since(start))

	logger.Debug().
		Str("source", string(resp.Source)).
		Int("candidates", resp.TotalCandidates).
		Int("returned", len(resp.Items)).
		Dur("latency", time.Since(start)).
		Msg("recommendation complete")

	// The cached value stays pristine; callers get their own copy.
	out := *resp
	return &out, nil
}

// prepareRequest validates req, applies defaults and normalises the filter.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) prepareRequest(req Request) (Request, error) {
	if _, err := ParseMethod(string(req.Method)); err != nil {
		return req, fmt.Errorf("%w: %q", ErrUnknownMethod, req.Method)
	}
	if req.N == 0 {
		req.N = e.config.DefaultN
	}
	if req.N < 1 || req.N > e.config.MaxN {
		return req, fmt.Errorf("%w: n must be between 1 and %d, got %d", ErrInvalidN, e.config.MaxN, req.N)
	}
	filter, err := normalizeFilter(req.RatingFilter)
	if err != nil {
		return req, err
	}
	req.RatingFilter = filter
	return req, nil
}

func normalizeFilter(bands []int) ([]int, error) {
	if len(bands) == 0 {
		return nil, nil
	}
	seen := make(map[int]struct{}, len(bands))
	out := make([]int, 0, len(bands))
	for _, b := range bands {
		if b < 0 || b > 5 {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidFilter, b)
		}
		if _, dup := seen[b]; dup {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	sort.Ints(out)
	return out, nil
}

// compute runs the uncached pipeline against one snapshot.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) compute(ctx context.Context, snap *ratings.Snapshot, req Request, predictor Predictor, logger zerolog.Logger) (*Response, error) {
	resp := &Response{Method: req.Method, Version: snap.Version()}

	if snap.NumMovies() == 0 {
		resp.Source = SourceEmptyCatalog
		resp.Items = []Item{}
		return resp, nil
	}

	rated := snap.UserRatings(req.UserID)
	if len(rated) == 0 {
		resp.Source = SourceColdStart
		resp.Items = e.coldStart(snap, req)
		resp.TotalCandidates = snap.NumMovies()
		logger.Debug().Msg("user has no ratings; serving popular movies")
		return resp, nil
	}

	candidates := e.candidates(snap, rated)
	resp.TotalCandidates = len(candidates)
	if len(candidates) == 0 {
		resp.Source = SourceNoCandidates
		resp.Items = []Item{}
		return resp, nil
	}

	preds, err := e.predictAll(ctx, snap, req, predictor, candidates, logger)
	if err != nil {
		return nil, err
	}

	kept := preds[:0]
	for _, p := range preds {
		if inBands(p.Value, req.RatingFilter) {
			kept = append(kept, p)
		}
	}
	rankPredictions(kept)
	if len(kept) > req.N {
		kept = kept[:req.N]
	}

	items := make([]Item, len(kept))
	for i := range kept {
		movie, _ := snap.Movie(kept[i].MovieID)
		items[i] = Item{
			Movie:           movie,
			PredictedRating: kept[i].Value,
			Explanation:     Explain(snap, req.Method, &kept[i], e.config.ExplanationLimit, e.config.NeighborTopRatings),
		}
	}
	resp.Items = items
	resp.Source = SourcePersonalized
	return resp, nil
}

// rankPredictions orders preds by the displayed value (rounded to two
// places) descending, then by movie id, so equal-looking ratings list in id
// order.
func rankPredictions(preds []Prediction) {
	sort.SliceStable(preds, func(i, j int) bool {
		vi, vj := Round(preds[i].Value, 2), Round(preds[j].Value, 2)
		if vi != vj {
			return vi > vj
		}
		return preds[i].MovieID < preds[j].MovieID
	})
}

// candidates returns the unrated movies, most popular first, capped at
// MaxCandidates.
func (e *Engine) candidates(snap *ratings.Snapshot, rated map[int]float64) []int {
	order := snap.PopularityOrder()
	out := make([]int, 0, len(order)-len(rated))
	for _, id := range order {
		if _, ok := rated[id]; ok {
			continue
		}
		out = append(out, id)
		if e.config.MaxCandidates > 0 && len(out) == e.config.MaxCandidates {
			break
		}
	}
	return out
}

// predictAll predicts every candidate on a bounded pool. A failed
// prediction degrades to its fallback; only cancellation is an error.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) predictAll(ctx context.Context, snap *ratings.Snapshot, req Request, predictor Predictor, candidates []int, logger zerolog.Logger) ([]Prediction, error) {
	preds := make([]Prediction, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)

	for i, movieID := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			p, err := predictor.Predict(gctx, snap, req.UserID, movieID)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logger.Warn().Err(err).Int("movie_id", movieID).Msg("prediction failed, using fallback")
				p = Fallback(snap, req.UserID, movieID, e.config.DefaultRating)
			}
			preds[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := range preds {
		metrics.PredictionSources.WithLabelValues(req.Method.String(), string(preds[i].Source)).Inc()
	}
	return preds, nil
}

// coldStart returns the most-rated movies valued at their mean.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) coldStart(snap *ratings.Snapshot, req Request) []Item {
	items := make([]Item, 0, req.N)
	for _, id := range snap.PopularityOrder() {
		if len(items) == req.N {
			break
		}
		p := Fallback(snap, req.UserID, id, e.config.DefaultRating)
		if !inBands(p.Value, req.RatingFilter) {
			continue
		}
		movie, _ := snap.Movie(id)
		items = append(items, Item{Movie: movie, PredictedRating: p.Value})
	}
	return items
}

// inBands reports whether v, rounded to one decimal, falls in any band
// [f, f+1). An empty filter keeps everything.
func inBands(v float64, bands []int) bool {
	if len(bands) == 0 {
		return true
	}
	r := Round(v, 1)
	for _, f := range bands {
		if float64(f) <= r && r < float64(f+1) {
			return true
		}
	}
	return false
}

// cacheKey identifies a response. The rec:<user>: prefix lets
// InvalidateUser drop every entry for one user.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func cacheKey(req Request, version uint64) string {
	bands := make([]string, len(req.RatingFilter))
	for i, b := range req.RatingFilter {
		bands[i] = strconv.Itoa(b)
	}
	return fmt.Sprintf("rec:%d:%s:%d:%s:v%d", req.UserID, req.Method, req.N, strings.Join(bands, ","), version)
}

func userCachePrefix(userID int) string {
	return fmt.Sprintf("rec:%d:", userID)
}

// PopularMovies returns the k most-rated movies of the current snapshot.
func (e *Engine) PopularMovies(k int) []ratings.Movie {
	return e.source.Snapshot().PopularMovies(k)
}

// InvalidateUser drops every cached response for userID.
func (e *Engine) InvalidateUser(userID int) int {
	n := e.cache.DeletePrefix(userCachePrefix(userID))
	metrics.CacheEntries.WithLabelValues(responseCacheName).Set(float64(e.cache.Len()))
	return n
}

// InvalidateAll empties the response cache.
func (e *Engine) InvalidateAll() {
	e.cache.Clear()
	metrics.CacheEntries.WithLabelValues(responseCacheName).Set(0)
}

// HandleChange invalidates the cache entries a committed change affects.
// Entries for older versions are already unreachable; this frees them early.
func (e *Engine) HandleChange(kind ratings.ChangeKind, userID int) {
	switch kind {
	case ratings.ChangeRatingSaved, ratings.ChangeUserCreated:
		if n := e.InvalidateUser(userID); n > 0 {
			e.logger.Debug().Int("user_id", userID).Int("entries", n).Msg("invalidated cached recommendations")
		}
	case ratings.ChangeReloaded:
		e.InvalidateAll()
	}
}

// CleanupCache removes expired responses and returns how many were dropped.
func (e *Engine) CleanupCache() int {
	n := e.cache.Cleanup()
	metrics.CacheEntries.WithLabelValues(responseCacheName).Set(float64(e.cache.Len()))
	return n
}

// Stats returns engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Requests:    e.requestCount.Load(),
		CacheHits:   e.cacheHits.Load(),
		CacheMisses: e.cacheMisses.Load(),
		CacheSize:   e.cache.Len(),
		HitRate:     e.cache.HitRate(),
		Errors:      e.errorCount.Load(),
	}
}

// ContextCancelled reports whether ctx is done.
func ContextCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
