// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package events

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
	"github.com/tomtom215/cinematch/internal/ratings"
)

// Publisher turns store changes into messages on TopicRatingsChanged.
type Publisher struct {
	publisher message.Publisher
	logger    zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

var _ ratings.Observer = (*Publisher)(nil)

// NewPublisher wraps a Watermill publisher.
func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{
		publisher: pub,
		logger:    logging.WithComponent("events"),
	}
}

// Publish sends one event.
func (p *Publisher) Publish(ctx context.Context, event *RatingEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("publisher is closed")
	}

	data, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	msg := message.NewMessage(event.EventID, data)
	msg.SetContext(ctx)
	msg.Metadata.Set("type", string(event.Type))
	msg.Metadata.Set("version", strconv.FormatUint(event.Version, 10))
	if rid := logging.RequestIDFromContext(ctx); rid != "" {
		msg.Metadata.Set("request_id", rid)
	}

	if err := p.publisher.Publish(TopicRatingsChanged, msg); err != nil {
		return fmt.Errorf("publish %s: %w", TopicRatingsChanged, err)
	}
	metrics.EventsPublished.WithLabelValues(string(event.Type)).Inc()
	return nil
}

// OnChange publishes c. Failures are logged; the change is already committed.
func (p *Publisher) OnChange(ctx context.Context, c ratings.Change) {
	event := FromChange(c)
	if err := p.Publish(ctx, event); err != nil {
		p.logger.Warn().Err(err).
			Str("type", string(c.Kind)).
			Uint64("version", c.Version).
			Msg("Failed to publish rating event")
	}
}

// Close stops further publishing. The underlying pub/sub is owned by the caller.
func (p *Publisher) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}
