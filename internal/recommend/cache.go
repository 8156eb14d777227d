// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package recommend

import (
	"fmt"
	"slices"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/tomtom215/bookshelf/internal/metrics"
)

const (
	defaultNumCounters = 100_000
	defaultMaxCost     = 10_000
	defaultBufferItems = 64
)

// CacheConfig sizes the recommendation result cache. Each cached result
// costs 1, so MaxCost is the number of results kept.
type CacheConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
}

// ResultCache caches recommendation results across snapshots. Keys embed
// the snapshot version, so entries from a replaced snapshot are never read
// again and age out through normal eviction.
//
// Writes are applied asynchronously; a Get right after Set may miss.
type ResultCache struct {
	cache *ristretto.Cache[string, []Entry]
}

// NewResultCache creates a cache. Zero fields take defaults.
func NewResultCache(cfg CacheConfig) (*ResultCache, error) {
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = defaultNumCounters
	}
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = defaultMaxCost
	}
	if cfg.BufferItems <= 0 {
		cfg.BufferItems = defaultBufferItems
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, []Entry]{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,

		// Cost is the entry count, not the byte size.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}
	return &ResultCache{cache: c}, nil
}

// cacheKey identifies one resolved query on one snapshot.
func cacheKey(version uint64, key string, k int) string {
	return fmt.Sprintf("v%d|%s|%d", version, key, k)
}

// Get returns a copy of a cached result.
func (c *ResultCache) Get(version uint64, key string, k int) ([]Entry, bool) {
	if c == nil {
		return nil, false
	}
	entries, ok := c.cache.Get(cacheKey(version, key, k))
	metrics.RecordCacheAccess("recommend", ok)
	if !ok {
		return nil, false
	}
	return slices.Clone(entries), true
}

// Set stores a copy of a result.
func (c *ResultCache) Set(version uint64, key string, k int, entries []Entry) {
	if c == nil {
		return
	}
	c.cache.Set(cacheKey(version, key, k), slices.Clone(entries), 1)
}

// Wait blocks until pending writes are visible.
func (c *ResultCache) Wait() {
	if c != nil {
		c.cache.Wait()
	}
}

// Close releases the cache's goroutines.
func (c *ResultCache) Close() {
	if c != nil {
		c.cache.Close()
	}
}
