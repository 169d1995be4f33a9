// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// mockRetryLoop satisfies WALStartStopper.
type mockRetryLoop struct {
	running  atomic.Bool
	starts   atomic.Int32
	stops    atomic.Int32
	startErr error
}

func (m *mockRetryLoop) Start(context.Context) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.starts.Add(1)
	m.running.Store(true)
	return nil
}

func (m *mockRetryLoop) Stop() {
	m.stops.Add(1)
	m.running.Store(false)
}

func (m *mockRetryLoop) IsRunning() bool { return m.running.Load() }

func TestWALRetryLoopService_Lifecycle(t *testing.T) {
	var _ suture.Service = (*WALRetryLoopService)(nil)

	loop := &mockRetryLoop{}
	svc := NewWALRetryLoopService(loop)
	if svc.String() != "wal-retry-loop" {
		t.Errorf("String() = %q, want wal-retry-loop", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.Now().Add(time.Second)
	for !loop.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !loop.IsRunning() {
		t.Fatal("retry loop was not started")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}

	if loop.IsRunning() || loop.stops.Load() != 1 {
		t.Errorf("running = %v, stops = %d; want stopped once", loop.IsRunning(), loop.stops.Load())
	}
}

func TestWALRetryLoopService_StartError(t *testing.T) {
	startErr := errors.New("wal closed")
	svc := NewWALRetryLoopService(&mockRetryLoop{startErr: startErr})

	if err := svc.Serve(context.Background()); !errors.Is(err, startErr) {
		t.Errorf("Serve() = %v, want wrapped start error", err)
	}
}
