// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

// Package config loads Bookshelf configuration from built-in defaults, an
// optional YAML file, and environment variables, in that order of precedence.
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Error().Err(err).Msg("Failed to load configuration")
//	}
//
// Every section has working defaults; only the dataset location usually
// needs to be set (DATASET_DIR or DATASET_BASE_URL).
package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Dataset    DatasetConfig    `koanf:"dataset"`
	Recommend  RecommendConfig  `koanf:"recommend"`
	Search     SearchConfig     `koanf:"search"`
	Cache      CacheConfig      `koanf:"cache"`
	IndexStore IndexStoreConfig `koanf:"index_store"`
	Server     ServerConfig     `koanf:"server"`
	API        APIConfig        `koanf:"api"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// DatasetConfig describes where the books, users, and ratings CSV files live.
// Exactly one of Dir and BaseURL is used; Dir wins when both are set.
type DatasetConfig struct {
	Dir         string `koanf:"dir"`
	BaseURL     string `koanf:"base_url"`
	BooksFile   string `koanf:"books_file"`
	UsersFile   string `koanf:"users_file"`
	RatingsFile string `koanf:"ratings_file"`

	// Delimiter is the CSV field separator, "," or ";".
	Delimiter string `koanf:"delimiter"`

	// Encoding is the character set of the files: utf-8, latin-1 or
	// windows-1252. The classic semicolon dump is latin-1.
	Encoding string `koanf:"encoding"`

	// Watch enables fsnotify-driven reloads for Dir sources.
	Watch         bool          `koanf:"watch"`
	WatchDebounce time.Duration `koanf:"watch_debounce"`

	// ReloadInterval triggers periodic reloads; 0 disables them.
	ReloadInterval time.Duration `koanf:"reload_interval"`

	// FetchTimeout bounds a single remote file download.
	FetchTimeout time.Duration `koanf:"fetch_timeout"`
}

// RecommendConfig controls the interaction matrix and similarity engine.
type RecommendConfig struct {
	// Similarity is the metric used for every pair: cosine or pearson.
	Similarity string `koanf:"similarity"`

	MinUserRatings int     `koanf:"min_user_ratings"`
	MinBookVotes   int     `koanf:"min_book_votes"`
	MinCommonUsers int     `koanf:"min_common_users"`
	Shrinkage      float64 `koanf:"shrinkage"`

	// MaxNeighbors is how many neighbors are kept per book after the build.
	MaxNeighbors int `koanf:"max_neighbors"`
	Workers      int `koanf:"workers"` // 0 = runtime.NumCPU()

	DefaultK        int  `koanf:"default_k"`
	MaxK            int  `koanf:"max_k"`
	MinPartialQuery int  `koanf:"min_partial_query"`
	FallbackEnabled bool `koanf:"fallback_enabled"`

	PopularMinVotes int `koanf:"popular_min_votes"`
	PopularLimit    int `koanf:"popular_limit"`

	Timeout time.Duration `koanf:"timeout"`
}

// SearchConfig controls suggestions.
type SearchConfig struct {
	MinQueryLength  int `koanf:"min_query_length"`
	MaxSuggestions  int `koanf:"max_suggestions"`
	SuggestionLimit int `koanf:"suggestion_limit"` // upper bound for caller-supplied limits
}

// CacheConfig sizes the ristretto recommendation cache.
type CacheConfig struct {
	Enabled     bool  `koanf:"enabled"`
	NumCounters int64 `koanf:"num_counters"`
	MaxCost     int64 `koanf:"max_cost"`
	BufferItems int64 `koanf:"buffer_items"`
}

// IndexStoreConfig controls persistence of computed neighbor lists in BadgerDB.
type IndexStoreConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`
}

// APIConfig holds pagination and per-request limits.
type APIConfig struct {
	DefaultPageSize int           `koanf:"default_page_size"`
	MaxPageSize     int           `koanf:"max_page_size"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
}

// SecurityConfig holds rate limiting and CORS settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	ReloadLimitReqs   int           `koanf:"reload_limit_reqs"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig maps onto logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SupervisorConfig tunes the suture restart policy.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + itoa(s.Port)
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// SimilarityFingerprint identifies the parameters that change the
// neighbor lists, so persisted lists are only reused when they match.
func (r RecommendConfig) SimilarityFingerprint() string {
	return r.Similarity +
		"/u" + itoa(r.MinUserRatings) +
		"/b" + itoa(r.MinBookVotes) +
		"/c" + itoa(r.MinCommonUsers) +
		"/s" + ftoa(r.Shrinkage) +
		"/n" + itoa(r.MaxNeighbors)
}
