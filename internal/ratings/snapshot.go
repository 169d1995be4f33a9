// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package ratings

import (
	"sort"
	"strings"
	"sync"
)

// stat is a running sum and count for mean computation.
type stat struct {
	sum   float64
	count int
}

func (s stat) mean() (float64, bool) {
	if s.count == 0 {
		return 0, false
	}
	return s.sum / float64(s.count), true
}

func statOf(m map[int]float64) stat {
	var s stat
	for _, v := range m {
		s.sum += v
		s.count++
	}
	return s
}

// popularityIndex is computed lazily, once per snapshot.
type popularityIndex struct {
	once  sync.Once
	order []int
}

// Snapshot is an immutable view of the rating data. All maps returned by
// its methods are shared and must be treated as read-only.
type Snapshot struct {
	version uint64

	users     map[int]User
	usernames map[string]int // lower-cased username -> id
	userIDs   []int          // ascending
	movies    map[int]Movie
	movieIDs  []int // ascending

	userRatings  map[int]map[int]float64 // user -> movie -> value
	movieRatings map[int]map[int]float64 // movie -> user -> value
	userStats    map[int]stat
	movieStats   map[int]stat

	total      stat
	popularity *popularityIndex
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		users:        make(map[int]User),
		usernames:    make(map[string]int),
		movies:       make(map[int]Movie),
		userRatings:  make(map[int]map[int]float64),
		movieRatings: make(map[int]map[int]float64),
		userStats:    make(map[int]stat),
		movieStats:   make(map[int]stat),
		popularity:   &popularityIndex{},
	}
}

// newSnapshot builds a snapshot from a dataset. Ratings that reference an
// unknown user or movie are skipped; later duplicates win.
func newSnapshot(ds *Dataset, version uint64) (*Snapshot, int) {
	s := emptySnapshot()
	s.version = version
	if ds == nil {
		return s, 0
	}

	for _, m := range ds.Movies {
		s.movies[m.ID] = m
	}
	for _, u := range ds.Users {
		s.users[u.ID] = u
		s.usernames[normalizeUsername(u.Username)] = u.ID
	}

	skipped := 0
	for _, r := range ds.Ratings {
		if _, ok := s.users[r.UserID]; !ok {
			skipped++
			continue
		}
		if _, ok := s.movies[r.MovieID]; !ok {
			skipped++
			continue
		}
		if s.userRatings[r.UserID] == nil {
			s.userRatings[r.UserID] = make(map[int]float64)
		}
		if s.movieRatings[r.MovieID] == nil {
			s.movieRatings[r.MovieID] = make(map[int]float64)
		}
		s.userRatings[r.UserID][r.MovieID] = r.Value
		s.movieRatings[r.MovieID][r.UserID] = r.Value
	}

	for id, m := range s.userRatings {
		st := statOf(m)
		s.userStats[id] = st
		s.total.sum += st.sum
		s.total.count += st.count
	}
	for id, m := range s.movieRatings {
		s.movieStats[id] = statOf(m)
	}

	s.userIDs = sortedKeys(s.users)
	s.movieIDs = sortedKeys(s.movies)
	return s, skipped
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func normalizeUsername(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// clone copies the outer maps so one user and one movie can be replaced
// without touching the receiver.
func (s *Snapshot) clone() *Snapshot {
	next := &Snapshot{
		version:      s.version + 1,
		users:        s.users,
		usernames:    s.usernames,
		userIDs:      s.userIDs,
		movies:       s.movies,
		movieIDs:     s.movieIDs,
		userRatings:  make(map[int]map[int]float64, len(s.userRatings)+1),
		movieRatings: make(map[int]map[int]float64, len(s.movieRatings)),
		userStats:    make(map[int]stat, len(s.userStats)+1),
		movieStats:   make(map[int]stat, len(s.movieStats)),
		total:        s.total,
		popularity:   &popularityIndex{},
	}
	for k, v := range s.userRatings {
		next.userRatings[k] = v
	}
	for k, v := range s.movieRatings {
		next.movieRatings[k] = v
	}
	for k, v := range s.userStats {
		next.userStats[k] = v
	}
	for k, v := range s.movieStats {
		next.movieStats[k] = v
	}
	return next
}

func cloneInner(m map[int]float64, extra int) map[int]float64 {
	out := make(map[int]float64, len(m)+extra)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// setRating writes one rating into a freshly cloned snapshot.
func (s *Snapshot) setRating(userID, movieID int, value float64) {
	ur := cloneInner(s.userRatings[userID], 1)
	ur[movieID] = value
	s.userRatings[userID] = ur

	mr := cloneInner(s.movieRatings[movieID], 1)
	mr[userID] = value
	s.movieRatings[movieID] = mr

	oldUser := s.userStats[userID]
	newUser := statOf(ur)
	s.userStats[userID] = newUser
	s.movieStats[movieID] = statOf(mr)

	s.total.sum += newUser.sum - oldUser.sum
	s.total.count += newUser.count - oldUser.count
}

// withRating returns a new snapshot with r applied.
func (s *Snapshot) withRating(r Rating) *Snapshot {
	next := s.clone()
	next.setRating(r.UserID, r.MovieID, r.Value)
	return next
}

// withUser returns a new snapshot with u and its ratings added.
func (s *Snapshot) withUser(u User, ratings []Rating) *Snapshot {
	next := s.clone()

	next.users = make(map[int]User, len(s.users)+1)
	for k, v := range s.users {
		next.users[k] = v
	}
	next.users[u.ID] = u

	next.usernames = make(map[string]int, len(s.usernames)+1)
	for k, v := range s.usernames {
		next.usernames[k] = v
	}
	next.usernames[normalizeUsername(u.Username)] = u.ID

	ids := make([]int, len(s.userIDs), len(s.userIDs)+1)
	copy(ids, s.userIDs)
	ids = append(ids, u.ID)
	sort.Ints(ids)
	next.userIDs = ids

	for _, r := range ratings {
		next.setRating(u.ID, r.MovieID, r.Value)
	}
	return next
}

// Version is the snapshot generation. It strictly increases with every
// committed mutation.
func (s *Snapshot) Version() uint64 { return s.version }

// User returns the user with id.
func (s *Snapshot) User(id int) (User, bool) {
	u, ok := s.users[id]
	return u, ok
}

// UserByName looks a user up by case-insensitive username.
func (s *Snapshot) UserByName(name string) (User, bool) {
	id, ok := s.usernames[normalizeUsername(name)]
	if !ok {
		return User{}, false
	}
	return s.users[id], true
}

// Users returns up to limit users in ascending id order (limit <= 0 = all).
func (s *Snapshot) Users(limit int) []User {
	ids := s.userIDs
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	out := make([]User, len(ids))
	for i, id := range ids {
		out[i] = s.users[id]
	}
	return out
}

// MaxUserID returns the largest user id, or 0 when there are no users.
func (s *Snapshot) MaxUserID() int {
	if len(s.userIDs) == 0 {
		return 0
	}
	return s.userIDs[len(s.userIDs)-1]
}

// Movie returns the movie with id.
func (s *Snapshot) Movie(id int) (Movie, bool) {
	m, ok := s.movies[id]
	return m, ok
}

// Movies returns up to limit movies in ascending id order (limit <= 0 = all).
func (s *Snapshot) Movies(limit int) []Movie {
	ids := s.movieIDs
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	out := make([]Movie, len(ids))
	for i, id := range ids {
		out[i] = s.movies[id]
	}
	return out
}

// MovieIDs returns every movie id in ascending order. The slice is shared.
func (s *Snapshot) MovieIDs() []int { return s.movieIDs }

// UserRatings returns movie -> value for a user (nil if none).
func (s *Snapshot) UserRatings(userID int) map[int]float64 {
	return s.userRatings[userID]
}

// MovieRatings returns user -> value for a movie (nil if none).
func (s *Snapshot) MovieRatings(movieID int) map[int]float64 {
	return s.movieRatings[movieID]
}

// Rating returns the value userID gave movieID.
func (s *Snapshot) Rating(userID, movieID int) (float64, bool) {
	v, ok := s.userRatings[userID][movieID]
	return v, ok
}

// UserMean is the mean of all ratings by userID.
func (s *Snapshot) UserMean(userID int) (float64, bool) {
	return s.userStats[userID].mean()
}

// MovieMean is the mean of all ratings for movieID.
func (s *Snapshot) MovieMean(movieID int) (float64, bool) {
	return s.movieStats[movieID].mean()
}

// GlobalMean is the mean over every rating.
func (s *Snapshot) GlobalMean() (float64, bool) {
	return s.total.mean()
}

// Popularity is the number of ratings for movieID.
func (s *Snapshot) Popularity(movieID int) int {
	return s.movieStats[movieID].count
}

// NumUsers returns the user count.
func (s *Snapshot) NumUsers() int { return len(s.users) }

// NumMovies returns the movie count.
func (s *Snapshot) NumMovies() int { return len(s.movies) }

// NumRatings returns the rating count.
func (s *Snapshot) NumRatings() int { return s.total.count }

// PopularityOrder returns every movie id ordered by rating count desc, then
// mean desc, then id asc. The slice is shared.
func (s *Snapshot) PopularityOrder() []int {
	s.popularity.once.Do(func() {
		order := make([]int, len(s.movieIDs))
		copy(order, s.movieIDs)
		sort.SliceStable(order, func(i, j int) bool {
			a, b := s.movieStats[order[i]], s.movieStats[order[j]]
			if a.count != b.count {
				return a.count > b.count
			}
			am, _ := a.mean()
			bm, _ := b.mean()
			if am != bm {
				return am > bm
			}
			return order[i] < order[j]
		})
		s.popularity.order = order
	})
	return s.popularity.order
}

// PopularMovies returns the k most-rated movies.
func (s *Snapshot) PopularMovies(k int) []Movie {
	order := s.PopularityOrder()
	if k > 0 && k < len(order) {
		order = order[:k]
	}
	out := make([]Movie, len(order))
	for i, id := range order {
		out[i] = s.movies[id]
	}
	return out
}

// RatedBy returns all movies userID rated, ordered by value desc then
// title asc.
func (s *Snapshot) RatedBy(userID int) []RatedMovie {
	ur := s.userRatings[userID]
	out := make([]RatedMovie, 0, len(ur))
	for movieID, v := range ur {
		out = append(out, RatedMovie{Movie: s.movies[movieID], Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		if out[i].Movie.Title != out[j].Movie.Title {
			return out[i].Movie.Title < out[j].Movie.Title
		}
		return out[i].Movie.ID < out[j].Movie.ID
	})
	return out
}

// TopRatedBy returns userID's k highest ratings, value desc then movie id asc.
func (s *Snapshot) TopRatedBy(userID, k int) []RatedMovie {
	ur := s.userRatings[userID]
	out := make([]RatedMovie, 0, len(ur))
	for movieID, v := range ur {
		out = append(out, RatedMovie{Movie: s.movies[movieID], Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Movie.ID < out[j].Movie.ID
	})
	if k >= 0 && k < len(out) {
		out = out[:k]
	}
	return out
}
