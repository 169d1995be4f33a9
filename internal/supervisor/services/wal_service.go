// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package services

import (
	"context"
	"fmt"
)

// WALStartStopper is the lifecycle of *wal.RetryLoop.
type WALStartStopper interface {
	Start(ctx context.Context) error
	Stop()
	IsRunning() bool
}

// WALRetryLoopService supervises the loop that replays rating writes left
// pending in the write-ahead log while the database was unavailable.
//
//	retry := wal.NewRetryLoop(walPersister, cfg.WAL.RetryInterval, cfg.WAL.MaxRetries)
//	tree.AddDataService(services.NewWALRetryLoopService(retry))
type WALRetryLoopService struct {
	retryLoop WALStartStopper
	name      string
}

// NewWALRetryLoopService wraps retryLoop.
func NewWALRetryLoopService(retryLoop WALStartStopper) *WALRetryLoopService {
	return &WALRetryLoopService{
		retryLoop: retryLoop,
		name:      "wal-retry-loop",
	}
}

// Serve implements suture.Service. It starts the loop, waits for
// cancellation, then stops the loop and waits for its goroutine to exit.
func (s *WALRetryLoopService) Serve(ctx context.Context) error {
	if err := s.retryLoop.Start(ctx); err != nil {
		return fmt.Errorf("WAL retry loop start failed: %w", err)
	}

	<-ctx.Done()
	s.retryLoop.Stop()

	return ctx.Err()
}

// String implements fmt.Stringer for suture's logs.
func (s *WALRetryLoopService) String() string {
	return s.name
}
