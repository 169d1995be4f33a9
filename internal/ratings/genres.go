// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package ratings

import "strings"

// NoGenres is the MovieLens placeholder for an empty genre set.
const NoGenres = "(no genres listed)"

// ParseGenres splits a pipe-joined genre string. The empty string and the
// MovieLens placeholder both yield an empty set.
func ParseGenres(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == NoGenres {
		return nil
	}
	parts := strings.Split(s, "|")
	genres := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" && p != NoGenres {
			genres = append(genres, p)
		}
	}
	return genres
}

// JoinGenres is the inverse of ParseGenres.
func JoinGenres(genres []string) string {
	return strings.Join(genres, "|")
}
