// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

/*
Command server runs the Cinematch recommendation API.

Startup order:

 1. Load configuration (defaults, config.yaml, environment) and set up logging
 2. Open DuckDB, seed it from MovieLens CSV files when empty, and wrap it in
    a circuit breaker and optionally the BadgerDB write-ahead log
 3. Load every user, movie and rating into the in-memory rating store
 4. Build the similarity calculator, the user-based and item-based
    predictors and the recommendation engine
 5. Connect the store to the in-process event bus so rating changes
    invalidate cached recommendations
 6. Start the supervisor tree (WAL retry loop, cache janitor, event
    consumer, HTTP server) and block until SIGINT or SIGTERM

Configuration is read from $CONFIG_PATH, config.yaml in the working
directory or /etc/cinematch/config.yaml. Environment variables such as
HTTP_PORT, DUCKDB_PATH and LOG_LEVEL override file values.
*/
package main
