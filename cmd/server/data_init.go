// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package main

import (
	"fmt"

	"github.com/tomtom215/bookshelf/internal/config"
	"github.com/tomtom215/bookshelf/internal/dataset"
	"github.com/tomtom215/bookshelf/internal/logging"
	"github.com/tomtom215/bookshelf/internal/recommend"
	"github.com/tomtom215/bookshelf/internal/recommend/storage"
	"github.com/tomtom215/bookshelf/internal/snapshot"
)

// DataComponents holds everything the snapshot builder and watcher need.
type DataComponents struct {
	Source  dataset.Source
	Options snapshot.Options

	// Store is nil when the index store is disabled.
	Store *storage.Store

	// Cache is nil when the recommendation cache is disabled.
	Cache *recommend.ResultCache

	// Watcher is nil unless a local directory is watched.
	Watcher *dataset.Watcher
}

// Close releases the store and cache.
func (c *DataComponents) Close() {
	if c.Cache != nil {
		c.Cache.Close()
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing similarity index store")
		}
	}
}

// initData builds the dataset source, build options, index store, result
// cache, and watcher from configuration. Failures here are fatal.
func initData(cfg *config.Config) (*DataComponents, error) {
	opts, err := snapshot.OptionsFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build options: %w", err)
	}
	c := &DataComponents{Options: opts}

	if cfg.Dataset.Dir != "" {
		c.Source = dataset.NewFileSource(cfg.Dataset.Dir)
		if cfg.Dataset.Watch {
			c.Watcher = dataset.NewWatcher(cfg.Dataset.Dir, opts.Dataset.Files, cfg.Dataset.WatchDebounce, logging.WithComponent("dataset-watcher"))
		}
	} else {
		src, err := dataset.NewHTTPSource(cfg.Dataset.BaseURL, cfg.Dataset.FetchTimeout)
		if err != nil {
			return nil, fmt.Errorf("dataset source: %w", err)
		}
		c.Source = src
		if cfg.Dataset.Watch {
			logging.Info().Msg("DATASET_WATCH ignored for a remote dataset; use DATASET_RELOAD_INTERVAL")
		}
	}

	if cfg.Cache.Enabled {
		cache, err := recommend.NewResultCache(recommend.CacheConfig{
			NumCounters: cfg.Cache.NumCounters,
			MaxCost:     cfg.Cache.MaxCost,
			BufferItems: cfg.Cache.BufferItems,
		})
		if err != nil {
			return nil, fmt.Errorf("recommendation cache: %w", err)
		}
		c.Cache = cache
	}

	if cfg.IndexStore.Enabled {
		store, err := storage.Open(cfg.IndexStore.Path)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Store = store
		logging.Info().Str("path", cfg.IndexStore.Path).Msg("Similarity index store opened")
	}

	return c, nil
}
