// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package main

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/cinematch/internal/config"
	"github.com/tomtom215/cinematch/internal/events"
	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/ratings"
	"github.com/tomtom215/cinematch/internal/recommend"
	"github.com/tomtom215/cinematch/internal/recommend/algorithms"
)

// initRecommendEngine builds the similarity calculator, both KNN predictors
// and the engine that serves them.
func initRecommendEngine(cfg *config.Config, store *ratings.Store) (*recommend.Engine, *algorithms.Similarity, error) {
	rc := &cfg.Recommend

	sim, err := algorithms.NewSimilarity(algorithms.SimilarityConfig{
		Metric:     rc.Metric,
		MinOverlap: rc.MinOverlap,
		Shrinkage:  rc.Shrinkage,
		CacheSize:  rc.SimilarityCacheSize,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create similarity: %w", err)
	}

	knn := algorithms.KNNConfig{
		K:             rc.Neighbors,
		MinNeighbors:  rc.MinNeighbors,
		DefaultRating: rc.DefaultRating,
	}
	userCF, err := algorithms.NewUserBasedCF(knn, sim)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create user-based predictor: %w", err)
	}
	itemCF, err := algorithms.NewItemBasedCF(knn, sim)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create item-based predictor: %w", err)
	}

	engine, err := recommend.NewEngine(recommend.ConfigFromSettings(rc), store, logging.WithComponent("recommend"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create recommendation engine: %w", err)
	}
	engine.RegisterPredictor(userCF)
	engine.RegisterPredictor(itemCF)

	logging.Info().
		Str("metric", sim.Metric()).
		Int("neighbors", rc.Neighbors).
		Int("min_overlap", rc.MinOverlap).
		Dur("cache_ttl", rc.CacheTTL).
		Msg("Recommendation engine initialized")

	return engine, sim, nil
}

// ratingEvents is the in-process event pipeline: store changes are published
// to a GoChannel bus and a supervised consumer invalidates cached responses.
type ratingEvents struct {
	bus       *gochannel.GoChannel
	publisher *events.Publisher
	consumer  *events.Consumer
}

func initRatingEvents(cfg *config.Config, store *ratings.Store, engine *recommend.Engine) *ratingEvents {
	bus := events.NewBus(cfg.Events.Buffer)
	publisher := events.NewPublisher(bus)
	store.AddObserver(publisher)

	consumer := events.NewConsumer("ratings-consumer", bus, func(_ context.Context, ev *events.RatingEvent) error {
		engine.HandleChange(ev.Type, ev.UserID)
		return nil
	})

	return &ratingEvents{bus: bus, publisher: publisher, consumer: consumer}
}

// Close stops publishing before closing the bus.
func (e *ratingEvents) Close() {
	e.publisher.Close()
	if err := e.bus.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close event bus")
	}
}
