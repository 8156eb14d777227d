// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/bookshelf/config.yaml",
	"/etc/bookshelf/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Dir:            "./data",
			BooksFile:      "Books.csv",
			UsersFile:      "Users.csv",
			RatingsFile:    "Ratings.csv",
			Delimiter:      ",",
			Encoding:       "utf-8",
			Watch:          true,
			WatchDebounce:  2 * time.Second,
			ReloadInterval: 0,
			FetchTimeout:   2 * time.Minute,
		},
		Recommend: RecommendConfig{
			Similarity:      "cosine",
			MinUserRatings:  50,
			MinBookVotes:    10,
			MinCommonUsers:  1,
			Shrinkage:       0,
			MaxNeighbors:    50,
			Workers:         0,
			DefaultK:        5,
			MaxK:            50,
			MinPartialQuery: 4,
			FallbackEnabled: true,
			PopularMinVotes: 100,
			PopularLimit:    50,
			Timeout:         5 * time.Second,
		},
		Search: SearchConfig{
			MinQueryLength:  2,
			MaxSuggestions:  10,
			SuggestionLimit: 50,
		},
		Cache: CacheConfig{
			Enabled:     true,
			NumCounters: 100_000,
			MaxCost:     10_000,
			BufferItems: 64,
		},
		IndexStore: IndexStoreConfig{
			Enabled: false,
			Path:    "/data/bookshelf/index",
		},
		Server: ServerConfig{
			Port:            5000,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
			RequestTimeout:  10 * time.Second,
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			ReloadLimitReqs:   5,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// Load reads configuration with the following precedence, highest last:
//  1. built-in defaults
//  2. YAML file (CONFIG_PATH or the first of DefaultConfigPaths that exists)
//  3. environment variables listed in envMappings
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when they come from env vars.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to koanf paths.
// Unmapped variables are ignored so the process environment cannot leak
// into configuration by accident.
var envMappings = map[string]string{
	"dataset_dir":             "dataset.dir",
	"dataset_base_url":        "dataset.base_url",
	"dataset_books_file":      "dataset.books_file",
	"dataset_users_file":      "dataset.users_file",
	"dataset_ratings_file":    "dataset.ratings_file",
	"dataset_delimiter":       "dataset.delimiter",
	"dataset_encoding":        "dataset.encoding",
	"dataset_watch":           "dataset.watch",
	"dataset_watch_debounce":  "dataset.watch_debounce",
	"dataset_reload_interval": "dataset.reload_interval",
	"dataset_fetch_timeout":   "dataset.fetch_timeout",

	"recommend_similarity":        "recommend.similarity",
	"recommend_min_user_ratings":  "recommend.min_user_ratings",
	"recommend_min_book_votes":    "recommend.min_book_votes",
	"recommend_min_common_users":  "recommend.min_common_users",
	"recommend_shrinkage":         "recommend.shrinkage",
	"recommend_max_neighbors":     "recommend.max_neighbors",
	"recommend_workers":           "recommend.workers",
	"recommend_default_k":         "recommend.default_k",
	"recommend_max_k":             "recommend.max_k",
	"recommend_min_partial_query": "recommend.min_partial_query",
	"recommend_fallback_enabled":  "recommend.fallback_enabled",
	"recommend_popular_min_votes": "recommend.popular_min_votes",
	"recommend_popular_limit":     "recommend.popular_limit",
	"recommend_timeout":           "recommend.timeout",

	"search_min_query_length": "search.min_query_length",
	"search_max_suggestions":  "search.max_suggestions",

	"cache_enabled":      "cache.enabled",
	"cache_num_counters": "cache.num_counters",
	"cache_max_cost":     "cache.max_cost",

	"index_store_enabled": "index_store.enabled",
	"index_store_path":    "index_store.path",

	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	"api_default_page_size": "api.default_page_size",
	"api_max_page_size":     "api.max_page_size",
	"api_request_timeout":   "api.request_timeout",

	"rate_limit_requests":   "security.rate_limit_reqs",
	"rate_limit_window":     "security.rate_limit_window",
	"disable_rate_limit":    "security.rate_limit_disabled",
	"reload_limit_requests": "security.reload_limit_reqs",
	"cors_origins":          "security.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps DATASET_DIR to dataset.dir, HTTP_PORT to server.port, etc.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
