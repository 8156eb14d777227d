// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

/*
Package supervisor runs Bookshelf's long-lived services under suture v4.

# Overview

	RootSupervisor ("bookshelf")
	├── DataSupervisor ("data-layer")
	│   ├── SnapshotService
	│   └── DatasetWatcherService (if DATASET_WATCH and a local dataset dir)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

The HTTP server starts at the same time as the initial snapshot load and
answers 503 NOT_READY until the first snapshot is published. If the initial
load fails, SnapshotService returns suture.ErrTerminateSupervisorTree and
the whole process stops with an error.

# Usage

	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	snapshots := services.NewSnapshotService(builder, holder, services.SnapshotServiceConfig{}, logger)
	tree.AddDataService(snapshots)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second, logger))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

# Failure Handling

Each layer counts failures with exponential decay (FailureDecay seconds).
Past FailureThreshold the layer waits FailureBackoff before the next
restart. A service returning nil is not restarted.

# Debugging Shutdown Issues

Services that ignore context cancellation show up in
UnstoppedServiceReport after ShutdownTimeout.
*/
package supervisor
