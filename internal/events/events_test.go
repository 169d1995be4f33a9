// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/cinematch/internal/ratings"
)

func TestFromChange(t *testing.T) {
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.FixedZone("X", 3600))
	e := FromChange(ratings.Change{
		Kind:    ratings.ChangeRatingSaved,
		UserID:  3,
		MovieID: 50,
		Value:   4.5,
		Version: 9,
		At:      at,
	})

	if e.EventID == "" {
		t.Error("EventID is empty")
	}
	if e.Type != ratings.ChangeRatingSaved || e.UserID != 3 || e.MovieID != 50 || e.Rating != 4.5 || e.Version != 9 {
		t.Errorf("FromChange() = %+v", e)
	}
	if e.OccurredAt.Location() != time.UTC || !e.OccurredAt.Equal(at) {
		t.Errorf("OccurredAt = %v, want %v in UTC", e.OccurredAt, at)
	}

	data, err := e.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	decoded, err := UnmarshalRatingEvent(data)
	if err != nil {
		t.Fatalf("UnmarshalRatingEvent() error = %v", err)
	}
	if decoded.EventID != e.EventID || decoded.Version != 9 {
		t.Errorf("decoded = %+v, want %+v", decoded, e)
	}
}

func TestUnmarshalRatingEvent_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"missing type", `{"event_id":"x","version":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := UnmarshalRatingEvent([]byte(tt.data)); err == nil {
				t.Error("UnmarshalRatingEvent() expected error")
			}
		})
	}
}

type eventSink struct {
	mu     sync.Mutex
	events []*RatingEvent
	got    chan struct{}
}

func newEventSink() *eventSink {
	return &eventSink{got: make(chan struct{}, 16)}
}

func (s *eventSink) handle(_ context.Context, e *RatingEvent) error {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	s.got <- struct{}{}
	return nil
}

func (s *eventSink) wait(t *testing.T, n int) []*RatingEvent {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.got:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for event %d", i+1)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*RatingEvent(nil), s.events...)
}

func startConsumer(t *testing.T, c *Consumer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func waitReady(t *testing.T, c *Consumer) {
	t.Helper()
	select {
	case <-c.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("consumer never subscribed")
	}
}

func TestPublisherToConsumer(t *testing.T) {
	bus := NewBus(16)
	defer func() { _ = bus.Close() }()

	sink := newEventSink()
	consumer := NewConsumer("test-consumer", bus, sink.handle)
	startConsumer(t, consumer)
	waitReady(t, consumer)

	pub := NewPublisher(bus)

	store := ratings.NewStore(nil)
	store.AddObserver(pub)
	store.Replace(context.Background(), &ratings.Dataset{
		Users:  []ratings.User{{ID: 1, Username: "User 1"}},
		Movies: []ratings.Movie{{ID: 10, Title: "Heat (1995)"}},
	})
	if _, err := store.Rate(context.Background(), 1, 10, 4); err != nil {
		t.Fatalf("Rate() error = %v", err)
	}

	// GoChannel delivers each message on its own goroutine, so order is not kept.
	byType := make(map[ratings.ChangeKind]*RatingEvent)
	for _, e := range sink.wait(t, 2) {
		byType[e.Type] = e
	}
	reloaded, saved := byType[ratings.ChangeReloaded], byType[ratings.ChangeRatingSaved]
	if reloaded == nil || saved == nil {
		t.Fatalf("events = %v, want one reloaded and one rating_saved", byType)
	}
	if saved.UserID != 1 || saved.MovieID != 10 || saved.Rating != 4 {
		t.Errorf("rating_saved event = %+v", saved)
	}
	if saved.Version <= reloaded.Version {
		t.Errorf("rating_saved version %d, want above reloaded version %d", saved.Version, reloaded.Version)
	}
}

func TestConsumer_SurvivesBadPayloadAndHandlerError(t *testing.T) {
	bus := NewBus(16)
	defer func() { _ = bus.Close() }()

	calls := make(chan *RatingEvent, 4)
	handler := func(_ context.Context, e *RatingEvent) error {
		calls <- e
		if e.UserID == 1 {
			return errors.New("boom")
		}
		return nil
	}
	consumer := NewConsumer("test-consumer", bus, handler)
	startConsumer(t, consumer)
	waitReady(t, consumer)

	pub := NewPublisher(bus)

	if err := bus.Publish(TopicRatingsChanged, message.NewMessage("bad", []byte("not json"))); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	for _, uid := range []int{1, 2} {
		e := FromChange(ratings.Change{Kind: ratings.ChangeRatingSaved, UserID: uid, MovieID: 1, Value: 3, Version: uint64(uid)})
		if err := pub.Publish(context.Background(), e); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	handled := make(map[int]bool)
	for len(handled) < 2 {
		select {
		case e := <-calls:
			handled[e.UserID] = true
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out with handled users %v, want 1 and 2", handled)
		}
	}
	if !handled[1] || !handled[2] {
		t.Errorf("handled users = %v, want 1 and 2", handled)
	}
}

func TestPublisher_Closed(t *testing.T) {
	bus := NewBus(1)
	defer func() { _ = bus.Close() }()

	pub := NewPublisher(bus)
	pub.Close()
	if err := pub.Publish(context.Background(), &RatingEvent{Type: ratings.ChangeRatingSaved}); err == nil {
		t.Error("Publish() after Close expected error")
	}
}
