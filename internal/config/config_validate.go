// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate checks that the configuration is complete and within bounds.
func (c *Config) Validate() error {
	if err := c.validateDataset(); err != nil {
		return err
	}
	if err := c.validateRecommend(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateRateLimits(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDataset() error {
	d := c.Dataset
	if d.Dir == "" && d.BaseURL == "" {
		return errors.New("one of DATASET_DIR or DATASET_BASE_URL is required")
	}
	if d.Dir == "" {
		if err := validateHTTPURL(d.BaseURL, "DATASET_BASE_URL"); err != nil {
			return err
		}
	}
	if d.BooksFile == "" || d.RatingsFile == "" {
		return errors.New("DATASET_BOOKS_FILE and DATASET_RATINGS_FILE must not be empty")
	}
	if d.Delimiter != "," && d.Delimiter != ";" && d.Delimiter != "\t" {
		return fmt.Errorf("DATASET_DELIMITER must be one of ',', ';' or tab, got %q", d.Delimiter)
	}
	if !validEncodings[strings.ToLower(d.Encoding)] {
		return fmt.Errorf("DATASET_ENCODING must be one of utf-8, latin-1, windows-1252, got %q", d.Encoding)
	}
	if d.ReloadInterval < 0 {
		return errors.New("DATASET_RELOAD_INTERVAL must not be negative")
	}
	if d.Watch && d.WatchDebounce < 100*time.Millisecond {
		return errors.New("DATASET_WATCH_DEBOUNCE must be at least 100ms")
	}
	return nil
}

// validEncodings are the dataset encodings the loader can transcode, under
// the spellings it accepts.
var validEncodings = map[string]bool{
	"utf-8":        true,
	"utf8":         true,
	"latin-1":      true,
	"latin1":       true,
	"iso-8859-1":   true,
	"windows-1252": true,
	"cp1252":       true,
}

// validSimilarities are the metrics the similarity engine implements.
var validSimilarities = map[string]bool{
	"cosine":  true,
	"pearson": true,
}

func (c *Config) validateRecommend() error {
	r := c.Recommend
	if !validSimilarities[r.Similarity] {
		return fmt.Errorf("RECOMMEND_SIMILARITY must be cosine or pearson, got %q", r.Similarity)
	}
	if r.MinUserRatings < 1 || r.MinBookVotes < 1 {
		return errors.New("RECOMMEND_MIN_USER_RATINGS and RECOMMEND_MIN_BOOK_VOTES must be at least 1")
	}
	if r.MinCommonUsers < 1 {
		return errors.New("RECOMMEND_MIN_COMMON_USERS must be at least 1")
	}
	if r.Shrinkage < 0 {
		return errors.New("RECOMMEND_SHRINKAGE must not be negative")
	}
	if r.DefaultK < 1 || r.MaxK < r.DefaultK {
		return fmt.Errorf("RECOMMEND_DEFAULT_K must be at least 1 and not above RECOMMEND_MAX_K (%d)", r.MaxK)
	}
	if r.MaxNeighbors < r.MaxK {
		return fmt.Errorf("RECOMMEND_MAX_NEIGHBORS must be at least RECOMMEND_MAX_K (%d)", r.MaxK)
	}
	if r.Workers < 0 {
		return errors.New("RECOMMEND_WORKERS must not be negative")
	}
	if r.PopularLimit < 1 {
		return errors.New("RECOMMEND_POPULAR_LIMIT must be at least 1")
	}
	if r.Timeout <= 0 {
		return errors.New("RECOMMEND_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateSearch() error {
	s := c.Search
	if s.MinQueryLength < 1 {
		return errors.New("SEARCH_MIN_QUERY_LENGTH must be at least 1")
	}
	if s.MaxSuggestions < 1 || s.SuggestionLimit < s.MaxSuggestions {
		return errors.New("SEARCH_MAX_SUGGESTIONS must be between 1 and search.suggestion_limit")
	}
	return nil
}

func (c *Config) validateCache() error {
	if !c.Cache.Enabled {
		return nil
	}
	if c.Cache.NumCounters < 1 || c.Cache.MaxCost < 1 || c.Cache.BufferItems < 1 {
		return errors.New("cache sizes must be positive when CACHE_ENABLED=true")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return errors.New("HTTP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.DefaultPageSize < 1 || c.API.MaxPageSize < c.API.DefaultPageSize {
		return errors.New("API_DEFAULT_PAGE_SIZE must be at least 1 and not above API_MAX_PAGE_SIZE")
	}
	if c.API.RequestTimeout <= 0 {
		return errors.New("API_REQUEST_TIMEOUT must be positive")
	}
	return nil
}

const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	s := c.Security
	if s.RateLimitReqs < minRateLimitRequests || s.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if s.ReloadLimitReqs < minRateLimitRequests || s.ReloadLimitReqs > s.RateLimitReqs {
		return fmt.Errorf("RELOAD_LIMIT_REQUESTS must be between %d and RATE_LIMIT_REQUESTS", minRateLimitRequests)
	}
	if s.RateLimitWindow < minRateLimitWindow || s.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return errors.New("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return errors.New("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
