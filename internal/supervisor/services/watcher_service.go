// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package services

import (
	"context"
)

// ChangeWatcher reports dataset changes until ctx ends.
//
// Satisfied by *dataset.Watcher.
type ChangeWatcher interface {
	Run(ctx context.Context, onChange func()) error
}

// ReloadTrigger accepts reload requests. Satisfied by *SnapshotService.
type ReloadTrigger interface {
	Trigger(source string) bool
}

// DatasetWatcherService turns dataset file changes into snapshot reloads.
// If the watch fails (for example the directory vanished) the error is
// returned and suture restarts the watch with backoff.
type DatasetWatcherService struct {
	watcher ChangeWatcher
	trigger ReloadTrigger
	name    string
}

// NewDatasetWatcherService creates the watcher service.
func NewDatasetWatcherService(watcher ChangeWatcher, trigger ReloadTrigger) *DatasetWatcherService {
	return &DatasetWatcherService{
		watcher: watcher,
		trigger: trigger,
		name:    "dataset-watcher",
	}
}

// Serve implements suture.Service.
func (w *DatasetWatcherService) Serve(ctx context.Context) error {
	return w.watcher.Run(ctx, func() {
		w.trigger.Trigger(TriggerWatch)
	})
}

// String returns the service name for logging.
func (w *DatasetWatcherService) String() string {
	return w.name
}
