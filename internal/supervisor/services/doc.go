// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package services adapts Cinematch components to suture.Service.
//
//   - HTTPServerService: ListenAndServe/Shutdown to Serve
//   - WALRetryLoopService: Start/Stop of the WAL retry loop to Serve
//   - CacheJanitorService: ticker-driven cache and limiter housekeeping
//
// The rating event consumer in package events implements suture.Service
// itself and needs no wrapper.
package services
