// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package metrics holds the Prometheus collectors for Cinematch. All
// collectors are registered on the default registry via promauto and
// exposed at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections by limiter (client, user_write)",
		},
		[]string{"limiter"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Write-Ahead Log Metrics
	WALWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wal_writes_total",
			Help: "Total number of rating writes recorded in the WAL",
		},
		[]string{"result"}, // committed, pending
	)

	WALPendingEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wal_pending_entries",
			Help: "Current number of WAL entries awaiting database confirmation",
		},
	)

	WALReplays = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wal_replays_total",
			Help: "Total number of WAL entry replay attempts",
		},
		[]string{"result"}, // success, failure, abandoned
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rating_events_published_total",
			Help: "Total number of rating events published",
		},
		[]string{"type"},
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rating_events_consumed_total",
			Help: "Total number of rating events handled by consumers",
		},
		[]string{"result"}, // processed, failed
	)

	// Recommendation Metrics
	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_requests_total",
			Help: "Total number of recommendation requests by method and result source",
		},
		[]string{"method", "source"},
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Time spent computing recommendation lists",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method"},
	)

	PredictionSources = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_sources_total",
			Help: "Predictions by source (neighbors, movie_mean, user_mean, default)",
		},
		[]string{"method", "source"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by cache name and result",
		},
		[]string{"cache", "result"}, // hit, miss
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of entries per cache",
		},
		[]string{"cache"},
	)

	// Rating Store Metrics
	StoreVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rating_store_version",
			Help: "Current rating store snapshot version",
		},
	)

	StoreSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rating_store_size",
			Help: "Number of users, movies and ratings in the current snapshot",
		},
		[]string{"kind"}, // users, movies, ratings
	)

	StoreWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rating_store_writes_total",
			Help: "Rating store writes by operation and result",
		},
		[]string{"operation", "result"},
	)
)

// RecordDBQuery records the duration and outcome of a DuckDB statement.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordAPIRequest records a completed HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRecommendation records one recommendation list computation.
func RecordRecommendation(method, source string, duration time.Duration) {
	RecommendationRequests.WithLabelValues(method, source).Inc()
	RecommendationDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(cache, result).Inc()
}

// Rate limiter labels for APIRateLimitHits.
const (
	RateLimiterClient    = "client"
	RateLimiterUserWrite = "user_write"
)

// RecordRateLimitHit counts one request rejected by limiter.
func RecordRateLimitHit(limiter string) {
	APIRateLimitHits.WithLabelValues(limiter).Inc()
}

// RecordStoreWrite counts a rating store mutation.
func RecordStoreWrite(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	StoreWrites.WithLabelValues(operation, result).Inc()
}

// UpdateStoreGauges publishes the size and version of the current snapshot.
func UpdateStoreGauges(version uint64, users, movies, ratings int) {
	StoreVersion.Set(float64(version))
	StoreSize.WithLabelValues("users").Set(float64(users))
	StoreSize.WithLabelValues("movies").Set(float64(movies))
	StoreSize.WithLabelValues("ratings").Set(float64(ratings))
}
