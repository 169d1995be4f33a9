// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package wal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
	"github.com/tomtom215/cinematch/internal/ratings"
)

type ratingPayload struct {
	UserID  int       `json:"user_id"`
	MovieID int       `json:"movie_id"`
	Rating  float64   `json:"rating"`
	RatedAt time.Time `json:"rated_at"`
}

type userPayload struct {
	UserID    int             `json:"user_id"`
	Username  string          `json:"username"`
	CreatedAt time.Time       `json:"created_at"`
	Ratings   []ratingPayload `json:"ratings"`
}

func toRatingPayload(r ratings.Rating) ratingPayload {
	return ratingPayload{UserID: r.UserID, MovieID: r.MovieID, Rating: r.Value, RatedAt: r.RatedAt}
}

func (p ratingPayload) rating() ratings.Rating {
	return ratings.Rating{UserID: p.UserID, MovieID: p.MovieID, Value: p.Rating, RatedAt: p.RatedAt}
}

// Zero-padded so key order follows id order.
func ratingKey(userID, movieID int) string {
	return fmt.Sprintf("rating:%010d:%010d", userID, movieID)
}

func userKey(userID int) string {
	return fmt.Sprintf("user:%010d", userID)
}

// isPermanent reports errors that replaying cannot fix.
func isPermanent(err error) bool {
	return errors.Is(err, ratings.ErrDuplicateUsername)
}

// Persister records every write in the WAL before forwarding it to inner.
// When inner fails with a transient error the write is still accepted:
// the entry stays pending for RetryLoop and the caller sees success.
type Persister struct {
	wal    *BadgerWAL
	inner  ratings.Persister
	logger zerolog.Logger

	keyLocks sync.Map // string -> *sync.Mutex
}

var _ ratings.Persister = (*Persister)(nil)

// NewPersister wraps inner with the WAL.
func NewPersister(w *BadgerWAL, inner ratings.Persister) *Persister {
	return &Persister{
		wal:    w,
		inner:  inner,
		logger: logging.WithComponent("wal"),
	}
}

func (p *Persister) lock(key string) func() {
	v, _ := p.keyLocks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// LoadAll loads inner's dataset and overlays the writes still pending in
// the WAL, so accepted-but-unapplied writes survive a restart.
func (p *Persister) LoadAll(ctx context.Context) (*ratings.Dataset, error) {
	ds, err := p.inner.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	pending, err := p.wal.GetPending(ctx)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return ds, nil
	}

	knownUsers := make(map[int]bool, len(ds.Users))
	for _, u := range ds.Users {
		knownUsers[u.ID] = true
	}

	overlaid := 0
	for _, e := range pending {
		switch e.Op {
		case OpCreateUser:
			var up userPayload
			if err := e.UnmarshalPayload(&up); err != nil {
				p.logger.Warn().Err(err).Str("key", e.Key).Msg("Skipping malformed WAL entry")
				continue
			}
			if !knownUsers[up.UserID] {
				ds.Users = append(ds.Users, ratings.User{ID: up.UserID, Username: up.Username, CreatedAt: up.CreatedAt})
				knownUsers[up.UserID] = true
			}
			for _, rp := range up.Ratings {
				ds.Ratings = append(ds.Ratings, rp.rating())
			}
		case OpUpsertRating:
			var rp ratingPayload
			if err := e.UnmarshalPayload(&rp); err != nil {
				p.logger.Warn().Err(err).Str("key", e.Key).Msg("Skipping malformed WAL entry")
				continue
			}
			ds.Ratings = append(ds.Ratings, rp.rating())
		default:
			continue
		}
		overlaid++
	}

	p.logger.Info().Int("entries", overlaid).Msg("Overlaid pending WAL entries on loaded dataset")
	return ds, nil
}

// UpsertRating logs the rating, applies it and confirms it.
func (p *Persister) UpsertRating(ctx context.Context, r ratings.Rating) error {
	key := ratingKey(r.UserID, r.MovieID)
	unlock := p.lock(key)
	defer unlock()

	return p.writeThrough(ctx, key, OpUpsertRating, toRatingPayload(r), func() error {
		return p.inner.UpsertRating(ctx, r)
	})
}

// CreateUser logs the user with its initial ratings, applies and confirms.
func (p *Persister) CreateUser(ctx context.Context, u ratings.User, initial []ratings.Rating) error {
	key := userKey(u.ID)
	unlock := p.lock(key)
	defer unlock()

	payload := userPayload{UserID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt}
	for _, r := range initial {
		payload.Ratings = append(payload.Ratings, toRatingPayload(r))
	}

	return p.writeThrough(ctx, key, OpCreateUser, payload, func() error {
		return p.inner.CreateUser(ctx, u, initial)
	})
}

func (p *Persister) writeThrough(ctx context.Context, key string, op Op, payload interface{}, apply func() error) error {
	entryID, err := p.wal.Write(ctx, key, op, payload)
	if err != nil {
		// Without a WAL entry the write can only be accepted if it lands.
		p.logger.Error().Err(err).Str("key", key).Msg("WAL write failed, applying directly")
		return apply()
	}

	applyErr := apply()
	switch {
	case applyErr == nil:
		if err := p.wal.Confirm(ctx, key, entryID); err != nil {
			p.logger.Warn().Err(err).Str("key", key).Msg("WAL confirm failed; entry will be replayed")
		}
		return nil

	case isPermanent(applyErr):
		if err := p.wal.Drop(ctx, key); err != nil {
			p.logger.Warn().Err(err).Str("key", key).Msg("WAL drop failed")
		}
		return applyErr

	default:
		if err := p.wal.UpdateAttempt(ctx, key, entryID, applyErr.Error()); err != nil {
			p.logger.Warn().Err(err).Str("key", key).Msg("WAL attempt update failed")
		}
		p.logger.Warn().Err(applyErr).Str("key", key).Str("op", string(op)).
			Msg("Database write failed; accepted and queued for replay")
		return nil
	}
}

// replayResult is the outcome of one replay attempt.
type replayResult string

const (
	replayApplied    replayResult = "applied"
	replayFailed     replayResult = "failed"
	replayDropped    replayResult = "dropped"
	replaySuperseded replayResult = "superseded"
)

// Replay re-applies the pending entry e. It is a no-op when the entry has
// been confirmed or replaced since e was read.
func (p *Persister) Replay(ctx context.Context, e *Entry) replayResult {
	unlock := p.lock(e.Key)
	defer unlock()

	cur, err := p.wal.Get(ctx, e.Key)
	if err != nil || cur.ID != e.ID {
		return replaySuperseded
	}

	applyErr := p.apply(ctx, cur)
	result := replayApplied
	switch {
	case applyErr == nil:
		if err := p.wal.Confirm(ctx, cur.Key, cur.ID); err != nil {
			p.logger.Warn().Err(err).Str("key", cur.Key).Msg("WAL confirm failed after replay")
		}
	case isPermanent(applyErr):
		p.logger.Warn().Err(applyErr).Str("key", cur.Key).Msg("Dropping WAL entry that cannot be applied")
		if err := p.wal.Drop(ctx, cur.Key); err != nil {
			p.logger.Warn().Err(err).Str("key", cur.Key).Msg("WAL drop failed")
		}
		result = replayDropped
	default:
		if err := p.wal.UpdateAttempt(ctx, cur.Key, cur.ID, applyErr.Error()); err != nil {
			p.logger.Warn().Err(err).Str("key", cur.Key).Msg("WAL attempt update failed")
		}
		result = replayFailed
	}
	metrics.WALReplays.WithLabelValues(string(result)).Inc()
	return result
}

func (p *Persister) apply(ctx context.Context, e *Entry) error {
	switch e.Op {
	case OpUpsertRating:
		var rp ratingPayload
		if err := e.UnmarshalPayload(&rp); err != nil {
			return err
		}
		return p.inner.UpsertRating(ctx, rp.rating())
	case OpCreateUser:
		var up userPayload
		if err := e.UnmarshalPayload(&up); err != nil {
			return err
		}
		initial := make([]ratings.Rating, 0, len(up.Ratings))
		for _, rp := range up.Ratings {
			initial = append(initial, rp.rating())
		}
		return p.inner.CreateUser(ctx, ratings.User{ID: up.UserID, Username: up.Username, CreatedAt: up.CreatedAt}, initial)
	default:
		return fmt.Errorf("unknown WAL op %q", e.Op)
	}
}
