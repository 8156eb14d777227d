// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

/*
Package services provides suture.Service wrappers for Bookshelf components.

Each wrapper implements suture.Service and fmt.Stringer:

	type Service interface {
	    Serve(ctx context.Context) error
	}

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts the blocking ListenAndServe into Serve

Snapshot loader (SnapshotService):
  - Builds and publishes the first snapshot
  - Rebuilds on Trigger (admin endpoint, watcher) and on ReloadInterval
  - Keeps the previous snapshot when a rebuild fails

Dataset watcher (DatasetWatcherService):
  - Runs dataset.Watcher and forwards changes to SnapshotService.Trigger
*/
package services
