// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package events carries committed rating-store changes over an in-process
// Watermill GoChannel pub/sub. The store publishes through Publisher (a
// ratings.Observer); Consumer delivers decoded events to a handler.
package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/ratings"
)

// TopicRatingsChanged receives one message per committed change.
const TopicRatingsChanged = "ratings.changed"

// RatingEvent is the message payload.
type RatingEvent struct {
	EventID    string             `json:"event_id"`
	Type       ratings.ChangeKind `json:"type"`
	UserID     int                `json:"user_id,omitempty"`
	MovieID    int                `json:"movie_id,omitempty"`
	Rating     float64            `json:"rating,omitempty"`
	NumRatings int                `json:"num_ratings,omitempty"`
	Version    uint64             `json:"version"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// Marshal encodes the event as JSON.
func (e *RatingEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalRatingEvent decodes a payload produced by Marshal.
func UnmarshalRatingEvent(data []byte) (*RatingEvent, error) {
	var e RatingEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal rating event: %w", err)
	}
	if e.Type == "" {
		return nil, fmt.Errorf("unmarshal rating event: missing type")
	}
	return &e, nil
}

// FromChange builds an event for a committed change.
func FromChange(c ratings.Change) *RatingEvent {
	return &RatingEvent{
		EventID:    watermill.NewUUID(),
		Type:       c.Kind,
		UserID:     c.UserID,
		MovieID:    c.MovieID,
		Rating:     c.Value,
		NumRatings: c.NumRatings,
		Version:    c.Version,
		OccurredAt: c.At.UTC(),
	}
}

// NewBus creates the GoChannel pub/sub. Messages published while nobody
// is subscribed are discarded.
func NewBus(buffer int64) *gochannel.GoChannel {
	if buffer <= 0 {
		buffer = 256
	}
	return gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: buffer},
		watermill.NewSlogLogger(logging.NewSlogLogger()),
	)
}
