// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const defaultDebounce = 2 * time.Second

// Watcher reports changes to the dataset files in a directory.
//
// Copying a large CSV produces a burst of write events, so a change is only
// reported once the files have been quiet for the debounce period, and at
// most once per debounce period overall.
type Watcher struct {
	dir     string
	names   map[string]struct{}
	quiet   time.Duration
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewWatcher creates a watcher for the dataset files of dir.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewWatcher(dir string, files Files, debounce time.Duration, logger zerolog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if files == (Files{}) {
		files = DefaultFiles()
	}

	names := make(map[string]struct{}, 3)
	for _, n := range []string{files.Books, files.Users, files.Ratings} {
		if n != "" {
			names[n] = struct{}{}
		}
	}

	return &Watcher{
		dir:     dir,
		names:   names,
		quiet:   debounce,
		limiter: rate.NewLimiter(rate.Every(debounce), 1),
		logger:  logger.With().Str("component", "dataset-watcher").Logger(),
	}
}

// Run watches the directory until ctx is done and calls onChange after each
// settled burst of changes. It returns nil when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	// Watch the directory rather than the files so atomic renames are seen.
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info().Str("dir", w.dir).Dur("debounce", w.quiet).Msg("Watching dataset directory")

	settle := time.NewTimer(w.quiet)
	settle.Stop()
	defer settle.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Dataset file changed")
			pending = true
			settle.Reset(w.quiet)

		case <-settle.C:
			if !pending {
				continue
			}
			if err := w.limiter.Wait(ctx); err != nil {
				return nil //nolint:nilerr // only fails when ctx is done
			}
			pending = false
			onChange()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("Dataset watcher error")
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if _, ok := w.names[filepath.Base(event.Name)]; !ok {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}
