// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package ratings

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"
)

func testDataset() *Dataset {
	return &Dataset{
		Users: []User{
			{ID: 1, Username: "User 1"},
			{ID: 2, Username: "User 2"},
			{ID: 5, Username: "User 5"},
		},
		Movies: []Movie{
			{ID: 10, Title: "Alpha", Genres: []string{"Drama"}},
			{ID: 20, Title: "Beta", Genres: []string{"Comedy"}},
			{ID: 30, Title: "Gamma", Genres: nil},
		},
		Ratings: []Rating{
			{UserID: 1, MovieID: 10, Value: 5},
			{UserID: 1, MovieID: 20, Value: 3},
			{UserID: 2, MovieID: 10, Value: 4},
			{UserID: 2, MovieID: 30, Value: 2},
			{UserID: 99, MovieID: 10, Value: 1}, // unknown user, skipped
		},
	}
}

func newTestStore(t *testing.T, p Persister) *Store {
	t.Helper()
	s := NewStore(p)
	s.Replace(context.Background(), testDataset())
	return s
}

type recordingPersister struct {
	mu      sync.Mutex
	ratings []Rating
	users   []User
	failErr error
}

func (p *recordingPersister) LoadAll(context.Context) (*Dataset, error) {
	return testDataset(), nil
}

func (p *recordingPersister) UpsertRating(_ context.Context, r Rating) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failErr != nil {
		return p.failErr
	}
	p.ratings = append(p.ratings, r)
	return nil
}

func (p *recordingPersister) CreateUser(_ context.Context, u User, rs []Rating) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failErr != nil {
		return p.failErr
	}
	p.users = append(p.users, u)
	p.ratings = append(p.ratings, rs...)
	return nil
}

func TestSnapshot_Aggregates(t *testing.T) {
	snap := newTestStore(t, nil).Snapshot()

	if snap.NumUsers() != 3 || snap.NumMovies() != 3 || snap.NumRatings() != 4 {
		t.Fatalf("counts = %d/%d/%d, want 3/3/4", snap.NumUsers(), snap.NumMovies(), snap.NumRatings())
	}
	if m, _ := snap.UserMean(1); m != 4 {
		t.Errorf("UserMean(1) = %v, want 4", m)
	}
	if m, _ := snap.MovieMean(10); m != 4.5 {
		t.Errorf("MovieMean(10) = %v, want 4.5", m)
	}
	if _, ok := snap.MovieMean(99); ok {
		t.Error("MovieMean(99) ok = true for unknown movie")
	}
	if got := snap.MaxUserID(); got != 5 {
		t.Errorf("MaxUserID() = %d, want 5", got)
	}

	popular := snap.PopularMovies(2)
	if len(popular) != 2 || popular[0].ID != 10 {
		t.Fatalf("PopularMovies(2) = %+v, want movie 10 first", popular)
	}
	// 20 and 30 both have one rating; 20 has the higher mean.
	if popular[1].ID != 20 {
		t.Errorf("PopularMovies(2)[1] = %d, want 20", popular[1].ID)
	}

	top := snap.TopRatedBy(1, 1)
	if len(top) != 1 || top[0].Movie.ID != 10 || top[0].Value != 5 {
		t.Errorf("TopRatedBy(1, 1) = %+v", top)
	}

	users := snap.Users(2)
	if len(users) != 2 || users[0].ID != 1 || users[1].ID != 2 {
		t.Errorf("Users(2) = %+v", users)
	}
}

func TestStore_Rate(t *testing.T) {
	p := &recordingPersister{}
	s := newTestStore(t, p)
	before := s.Version()

	r, err := s.Rate(context.Background(), 1, 30, 4.5)
	if err != nil {
		t.Fatalf("Rate() error = %v", err)
	}
	if r.Value != 4.5 {
		t.Errorf("Rate().Value = %v, want 4.5", r.Value)
	}

	snap := s.Snapshot()
	if snap.Version() <= before {
		t.Errorf("Version() = %d, want > %d", snap.Version(), before)
	}
	if v, ok := snap.Rating(1, 30); !ok || v != 4.5 {
		t.Errorf("Rating(1, 30) = %v, %v", v, ok)
	}
	if m, _ := snap.MovieMean(30); m != 3.25 {
		t.Errorf("MovieMean(30) = %v, want 3.25", m)
	}
	if len(p.ratings) != 1 {
		t.Errorf("persisted %d ratings, want 1", len(p.ratings))
	}
}

func TestStore_RateOverwrite(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	for _, v := range []float64{2, 3.5, 3.5} {
		if _, err := s.Rate(ctx, 2, 20, v); err != nil {
			t.Fatalf("Rate(%v) error = %v", v, err)
		}
	}

	snap := s.Snapshot()
	if got := len(snap.MovieRatings(20)); got != 2 {
		t.Errorf("len(MovieRatings(20)) = %d, want 2", got)
	}
	if v, _ := snap.Rating(2, 20); v != 3.5 {
		t.Errorf("Rating(2, 20) = %v, want 3.5", v)
	}
	if snap.NumRatings() != 5 {
		t.Errorf("NumRatings() = %d, want 5", snap.NumRatings())
	}
}

func TestStore_RateErrors(t *testing.T) {
	tests := []struct {
		name    string
		userID  int
		movieID int
		value   float64
		want    error
	}{
		{"value too high", 1, 10, 5.5, ErrInvalidRating},
		{"value off grid", 1, 10, 3.3, ErrInvalidRating},
		{"value zero", 1, 10, 0, ErrInvalidRating},
		{"unknown user", 42, 10, 3, ErrUserNotFound},
		{"unknown movie", 1, 42, 3, ErrMovieNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &recordingPersister{}
			s := newTestStore(t, p)
			before := s.Version()

			_, err := s.Rate(context.Background(), tt.userID, tt.movieID, tt.value)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Rate() error = %v, want %v", err, tt.want)
			}
			if s.Version() != before {
				t.Errorf("Version() = %d, want unchanged %d", s.Version(), before)
			}
			if len(p.ratings) != 0 {
				t.Errorf("persister saw %d writes, want 0", len(p.ratings))
			}
		})
	}
}

func TestStore_RatePersistFailureLeavesSnapshot(t *testing.T) {
	p := &recordingPersister{failErr: errors.New("disk full")}
	s := newTestStore(t, p)
	before := s.Version()

	if _, err := s.Rate(context.Background(), 1, 30, 4); err == nil {
		t.Fatal("Rate() expected error")
	}
	if s.Version() != before {
		t.Error("snapshot changed despite persister failure")
	}
	if _, ok := s.Snapshot().Rating(1, 30); ok {
		t.Error("rating visible despite persister failure")
	}
}

func TestStore_CreateUser(t *testing.T) {
	p := &recordingPersister{}
	s := newTestStore(t, p)

	u, err := s.CreateUser(context.Background(), "  alice ", map[int]float64{10: 4, 20: 2.5})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.ID != 6 {
		t.Errorf("ID = %d, want 6", u.ID)
	}
	if u.Username != "alice" {
		t.Errorf("Username = %q, want alice", u.Username)
	}

	snap := s.Snapshot()
	if got := len(snap.UserRatings(6)); got != 2 {
		t.Errorf("len(UserRatings(6)) = %d, want 2", got)
	}
	if _, ok := snap.UserByName("ALICE"); !ok {
		t.Error("UserByName is not case-insensitive")
	}
	if len(p.users) != 1 || len(p.ratings) != 2 {
		t.Errorf("persisted %d users / %d ratings, want 1/2", len(p.users), len(p.ratings))
	}
	if users := snap.Users(0); users[len(users)-1].ID != 6 {
		t.Errorf("Users() not ascending: %+v", users)
	}
}

func TestStore_CreateUserCountsCharacters(t *testing.T) {
	s := newTestStore(t, &recordingPersister{})

	// 40 two-byte characters: 80 bytes but within the character limit.
	name := strings.Repeat("é", 40)
	u, err := s.CreateUser(context.Background(), name, nil)
	if err != nil {
		t.Fatalf("CreateUser(%d runes, %d bytes) error = %v", utf8.RuneCountInString(name), len(name), err)
	}
	if u.Username != name {
		t.Errorf("Username = %q, want %q", u.Username, name)
	}
}

func TestStore_CreateUserErrors(t *testing.T) {
	tests := []struct {
		name     string
		username string
		ratings  map[int]float64
		want     error
	}{
		{"empty", "   ", nil, ErrEmptyUsername},
		{"duplicate case-insensitive", "user 1", nil, ErrDuplicateUsername},
		{"bad rating", "bob", map[int]float64{10: 7}, ErrInvalidRating},
		{"unknown movie", "bob", map[int]float64{10: 3, 404: 3}, ErrMovieNotFound},
		{"too long", strings.Repeat("a", MaxUsernameLength+1), nil, ErrUsernameTooLong},
		{"too many runes", strings.Repeat("é", MaxUsernameLength+1), nil, ErrUsernameTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &recordingPersister{}
			s := newTestStore(t, p)
			before := s.Version()

			_, err := s.CreateUser(context.Background(), tt.username, tt.ratings)
			if !errors.Is(err, tt.want) {
				t.Fatalf("CreateUser() error = %v, want %v", err, tt.want)
			}
			if s.Version() != before || len(p.users) != 0 {
				t.Error("store mutated despite validation failure")
			}
		})
	}
}

func TestStore_ConcurrentWritesSamePair(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v := float64(i%10+1) / 2
			if _, err := s.Rate(ctx, 1, 30, v); err != nil {
				t.Errorf("Rate() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	if got := len(snap.MovieRatings(30)); got != 2 {
		t.Errorf("len(MovieRatings(30)) = %d, want 2", got)
	}
	if snap.NumRatings() != 5 {
		t.Errorf("NumRatings() = %d, want 5", snap.NumRatings())
	}
}

func TestStore_ConcurrentWritersDifferentUsers(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, uid := range []int{1, 2, 5} {
		for _, mid := range []int{10, 20, 30} {
			wg.Add(1)
			go func(uid, mid int) {
				defer wg.Done()
				if _, err := s.Rate(ctx, uid, mid, 3); err != nil {
					t.Errorf("Rate() error = %v", err)
				}
			}(uid, mid)
		}
	}
	wg.Wait()

	if got := s.Snapshot().NumRatings(); got != 9 {
		t.Errorf("NumRatings() = %d, want 9 (no lost updates)", got)
	}
}

func TestStore_ObserverAndLoad(t *testing.T) {
	p := &recordingPersister{}
	s := NewStore(p)

	var mu sync.Mutex
	var changes []Change
	s.AddObserver(ObserverFunc(func(_ context.Context, c Change) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	}))

	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := s.Rate(context.Background(), 5, 10, 1); err != nil {
		t.Fatalf("Rate() error = %v", err)
	}

	if len(changes) != 2 {
		t.Fatalf("observed %d changes, want 2", len(changes))
	}
	if changes[0].Kind != ChangeReloaded || changes[1].Kind != ChangeRatingSaved {
		t.Errorf("kinds = %s, %s", changes[0].Kind, changes[1].Kind)
	}
	if changes[1].Version != s.Version() {
		t.Errorf("change version = %d, want %d", changes[1].Version, s.Version())
	}
}

func TestSnapshot_ImmutableAcrossWrites(t *testing.T) {
	s := newTestStore(t, nil)
	old := s.Snapshot()

	if _, err := s.Rate(context.Background(), 1, 10, 1); err != nil {
		t.Fatalf("Rate() error = %v", err)
	}

	if v, _ := old.Rating(1, 10); v != 5 {
		t.Errorf("old snapshot Rating(1, 10) = %v, want 5", v)
	}
	if m, _ := old.UserMean(1); m != 4 {
		t.Errorf("old snapshot UserMean(1) = %v, want 4", m)
	}
}
