// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package recommend

import "github.com/tomtom215/cinematch/internal/ratings"

// Explain builds the explanation for p from its own contributions.
// Fallback predictions have none and return nil.
func Explain(snap *ratings.Snapshot, method Method, p *Prediction, limit, topRatings int) *Explanation {
	if len(p.Contributions) == 0 || limit == 0 {
		return nil
	}
	contribs := p.Contributions
	if limit > 0 && len(contribs) > limit {
		contribs = contribs[:limit]
	}

	switch method {
	case MethodUserBased:
		entries := make([]NeighborExplanation, 0, len(contribs))
		for _, c := range contribs {
			top := snap.TopRatedBy(c.ID, topRatings)
			titles := make([]RatedTitle, len(top))
			for i, rm := range top {
				titles[i] = RatedTitle{Title: rm.Movie.Title, Rating: rm.Value}
			}
			entries = append(entries, NeighborExplanation{
				UserID:             c.ID,
				Similarity:         Round(c.Similarity, 4),
				RatingForThisMovie: c.Rating,
				TopRatings:         titles,
			})
		}
		return &Explanation{RelevantNeighbors: entries}

	case MethodItemBased:
		entries := make([]ItemExplanation, 0, len(contribs))
		for _, c := range contribs {
			movie, _ := snap.Movie(c.ID)
			entries = append(entries, ItemExplanation{
				MovieID:    c.ID,
				Title:      movie.Title,
				Genres:     movie.Genres,
				Similarity: Round(c.Similarity, 4),
				UserRating: c.Rating,
			})
		}
		return &Explanation{SimilarItems: entries}
	}
	return nil
}
