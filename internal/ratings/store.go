// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package ratings

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
	"github.com/tomtom215/cinematch/internal/validation"
)

// MaxUsernameLength bounds registered usernames.
const MaxUsernameLength = 64

// Store owns the current snapshot and serializes writes.
//
// Writes to the same user are serialized by a per-user mutex, so two
// writes to one (user, movie) pair never race. The copy-on-write swap of
// the snapshot itself happens under a short commit lock.
type Store struct {
	current   atomic.Pointer[Snapshot]
	persister Persister

	userLocks sync.Map // int -> *sync.Mutex
	createMu  sync.Mutex
	commitMu  sync.Mutex

	obsMu     sync.RWMutex
	observers []Observer

	logger zerolog.Logger
	now    func() time.Time
}

// NewStore returns an empty store. persister may be nil for memory-only use.
func NewStore(persister Persister) *Store {
	s := &Store{
		persister: persister,
		logger:    logging.WithComponent("ratings"),
		now:       time.Now,
	}
	s.current.Store(emptySnapshot())
	return s
}

// AddObserver registers o for committed-mutation notifications.
func (s *Store) AddObserver(o Observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, o)
}

// Snapshot returns the current immutable view.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Version is shorthand for Snapshot().Version().
func (s *Store) Version() uint64 {
	return s.current.Load().Version()
}

// Load replaces the snapshot with the persister's full contents.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	ds, err := s.persister.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load ratings: %w", err)
	}
	s.Replace(ctx, ds)
	return nil
}

// Replace swaps in a snapshot built from ds without persisting it.
func (s *Store) Replace(ctx context.Context, ds *Dataset) {
	s.commitMu.Lock()
	next, skipped := newSnapshot(ds, s.current.Load().Version()+1)
	s.current.Store(next)
	s.commitMu.Unlock()

	if skipped > 0 {
		s.logger.Warn().Int("skipped", skipped).Msg("Ignored ratings referencing unknown users or movies")
	}
	s.logger.Info().
		Int("users", next.NumUsers()).
		Int("movies", next.NumMovies()).
		Int("ratings", next.NumRatings()).
		Uint64("version", next.Version()).
		Msg("Rating store loaded")

	s.publish(ctx, next, Change{Kind: ChangeReloaded, Version: next.Version(), At: s.now()})
}

func (s *Store) userLock(userID int) *sync.Mutex {
	mu, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Rate stores value for (userID, movieID), overwriting any earlier value.
// The value is validated before anything is locked or persisted.
func (s *Store) Rate(ctx context.Context, userID, movieID int, value float64) (Rating, error) {
	if !validation.IsHalfStar(value) {
		metrics.RecordStoreWrite("rate", ErrInvalidRating)
		return Rating{}, fmt.Errorf("%w: got %v", ErrInvalidRating, value)
	}

	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	snap := s.current.Load()
	if _, ok := snap.User(userID); !ok {
		return Rating{}, fmt.Errorf("%w: %d", ErrUserNotFound, userID)
	}
	if _, ok := snap.Movie(movieID); !ok {
		return Rating{}, fmt.Errorf("%w: %d", ErrMovieNotFound, movieID)
	}

	r := Rating{UserID: userID, MovieID: movieID, Value: value, RatedAt: s.now().UTC()}

	if s.persister != nil {
		if err := s.persister.UpsertRating(ctx, r); err != nil {
			metrics.RecordStoreWrite("rate", err)
			return Rating{}, fmt.Errorf("persist rating: %w", err)
		}
	}

	s.commitMu.Lock()
	next := s.current.Load().withRating(r)
	s.current.Store(next)
	s.commitMu.Unlock()

	metrics.RecordStoreWrite("rate", nil)
	s.publish(ctx, next, Change{
		Kind:    ChangeRatingSaved,
		UserID:  userID,
		MovieID: movieID,
		Value:   value,
		Version: next.Version(),
		At:      r.RatedAt,
	})
	return r, nil
}

// CreateUser registers username with an optional initial set of ratings
// (movie id -> value). Every input is validated before any mutation. The
// new id is one more than the largest existing id.
func (s *Store) CreateUser(ctx context.Context, username string, initial map[int]float64) (User, error) {
	name := strings.TrimSpace(username)
	if name == "" {
		return User{}, ErrEmptyUsername
	}
	if utf8.RuneCountInString(name) > MaxUsernameLength {
		return User{}, fmt.Errorf("%w: limit is %d characters", ErrUsernameTooLong, MaxUsernameLength)
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	snap := s.current.Load()
	if _, exists := snap.UserByName(name); exists {
		return User{}, fmt.Errorf("%w: %q", ErrDuplicateUsername, name)
	}

	movieIDs := make([]int, 0, len(initial))
	for movieID := range initial {
		movieIDs = append(movieIDs, movieID)
	}
	sort.Ints(movieIDs)

	for _, movieID := range movieIDs {
		value := initial[movieID]
		if !validation.IsHalfStar(value) {
			return User{}, fmt.Errorf("%w: movie %d got %v", ErrInvalidRating, movieID, value)
		}
		if _, ok := snap.Movie(movieID); !ok {
			return User{}, fmt.Errorf("%w: %d", ErrMovieNotFound, movieID)
		}
	}

	now := s.now().UTC()
	u := User{ID: snap.MaxUserID() + 1, Username: name, CreatedAt: now}
	rs := make([]Rating, len(movieIDs))
	for i, movieID := range movieIDs {
		rs[i] = Rating{UserID: u.ID, MovieID: movieID, Value: initial[movieID], RatedAt: now}
	}

	if s.persister != nil {
		if err := s.persister.CreateUser(ctx, u, rs); err != nil {
			metrics.RecordStoreWrite("create_user", err)
			return User{}, fmt.Errorf("persist user: %w", err)
		}
	}

	s.commitMu.Lock()
	next := s.current.Load().withUser(u, rs)
	s.current.Store(next)
	s.commitMu.Unlock()

	metrics.RecordStoreWrite("create_user", nil)
	s.logger.Info().Int("user_id", u.ID).Int("ratings", len(rs)).Msg("User created")
	s.publish(ctx, next, Change{
		Kind:       ChangeUserCreated,
		UserID:     u.ID,
		NumRatings: len(rs),
		Version:    next.Version(),
		At:         now,
	})
	return u, nil
}

func (s *Store) publish(ctx context.Context, snap *Snapshot, c Change) {
	metrics.UpdateStoreGauges(snap.Version(), snap.NumUsers(), snap.NumMovies(), snap.NumRatings())

	s.obsMu.RLock()
	observers := s.observers
	s.obsMu.RUnlock()

	for _, o := range observers {
		o.OnChange(ctx, c)
	}
}
