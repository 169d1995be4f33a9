// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package database

import (
	"context"
	"errors"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/cinematch/internal/config"
	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
	"github.com/tomtom215/cinematch/internal/ratings"
)

// BreakerName labels the persistence circuit breaker in metrics and logs.
const BreakerName = "duckdb-persister"

// ResilientPersister guards a Persister with a circuit breaker. Once the
// breaker opens, writes fail fast with gobreaker.ErrOpenState until the
// timeout elapses and a probe succeeds.
type ResilientPersister struct {
	inner ratings.Persister
	cb    *gobreaker.CircuitBreaker[interface{}]
	name  string
}

var _ ratings.Persister = (*ResilientPersister)(nil)

// NewResilientPersister wraps inner with a breaker tuned by cfg.
func NewResilientPersister(inner ratings.Persister, cfg config.BreakerConfig) *ResilientPersister {
	name := BreakerName
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	minRequests := cfg.MinRequests
	failureRatio := cfg.FailureRatio

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := ratio >= failureRatio
			if shouldTrip {
				logging.Warn().
					Str("breaker", name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		// Domain rejections are answers, not outages.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ratings.ErrDuplicateUsername)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &ResilientPersister{inner: inner, cb: cb, name: name}
}

func (p *ResilientPersister) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := p.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(p.name, "rejected").Inc()
			logging.Warn().Err(err).Str("breaker", p.name).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(p.name, "failure").Inc()
			counts := p.cb.Counts()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(p.name).Set(float64(counts.ConsecutiveFailures))
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(p.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(p.name).Set(0)
	return result, nil
}

// LoadAll is not guarded; startup should see the real error.
func (p *ResilientPersister) LoadAll(ctx context.Context) (*ratings.Dataset, error) {
	return p.inner.LoadAll(ctx)
}

// UpsertRating forwards through the breaker.
func (p *ResilientPersister) UpsertRating(ctx context.Context, r ratings.Rating) error {
	_, err := p.execute(func() (interface{}, error) {
		return nil, p.inner.UpsertRating(ctx, r)
	})
	return err
}

// CreateUser forwards through the breaker.
func (p *ResilientPersister) CreateUser(ctx context.Context, u ratings.User, initial []ratings.Rating) error {
	_, err := p.execute(func() (interface{}, error) {
		return nil, p.inner.CreateUser(ctx, u, initial)
	})
	return err
}

// State returns the breaker state name: closed, half-open or open.
func (p *ResilientPersister) State() string {
	return stateToString(p.cb.State())
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
