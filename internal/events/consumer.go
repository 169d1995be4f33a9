// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
)

// HandlerFunc processes one decoded event.
type HandlerFunc func(ctx context.Context, event *RatingEvent) error

// Consumer subscribes to TopicRatingsChanged and runs a handler for each
// event. It implements suture.Service.
type Consumer struct {
	subscriber message.Subscriber
	handler    HandlerFunc
	name       string
	logger     zerolog.Logger

	ready     chan struct{}
	readyOnce sync.Once
}

// NewConsumer creates a consumer named name.
func NewConsumer(name string, sub message.Subscriber, handler HandlerFunc) *Consumer {
	return &Consumer{
		subscriber: sub,
		handler:    handler,
		name:       name,
		logger:     logging.WithComponent("events").With().Str("consumer", name).Logger(),
		ready:      make(chan struct{}),
	}
}

// Serve consumes until ctx is canceled.
func (c *Consumer) Serve(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, TopicRatingsChanged)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", TopicRatingsChanged, err)
	}
	c.readyOnce.Do(func() { close(c.ready) })
	c.logger.Info().Str("topic", TopicRatingsChanged).Msg("Event consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return ctx.Err()
			}
			c.process(ctx, msg)
		}
	}
}

// process always acks. GoChannel redelivers a nacked message immediately.
func (c *Consumer) process(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	event, err := UnmarshalRatingEvent(msg.Payload)
	if err != nil {
		metrics.EventsConsumed.WithLabelValues("invalid").Inc()
		c.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Discarding malformed event")
		return
	}

	if err := c.handler(ctx, event); err != nil {
		metrics.EventsConsumed.WithLabelValues("failed").Inc()
		c.logger.Error().Err(err).
			Str("event_id", event.EventID).
			Str("type", string(event.Type)).
			Msg("Event handler failed")
		return
	}
	metrics.EventsConsumed.WithLabelValues("processed").Inc()
}

// Ready is closed once the first subscription is in place.
func (c *Consumer) Ready() <-chan struct{} {
	return c.ready
}

func (c *Consumer) String() string {
	return c.name
}
