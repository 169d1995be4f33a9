// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

/*
Package supervisor runs the long-lived Cinematch services under a suture v4
supervisor tree.

	cinematch
	├── data-layer
	│   ├── wal-retry-loop   (when the WAL is enabled)
	│   └── cache-janitor
	├── messaging-layer
	│   └── ratings-consumer
	└── api-layer
	    └── http-server

Crashed services are restarted with backoff; each layer counts failures
independently. Supervisor events are logged through sutureslog and the
zerolog-backed slog adapter.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}
*/
package supervisor
