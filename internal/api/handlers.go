// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/bookshelf/internal/config"
	"github.com/tomtom215/bookshelf/internal/snapshot"
)

// ReloadTrigger queues a dataset reload. It reports whether the request was
// queued; false means a reload is already pending.
type ReloadTrigger interface {
	Trigger(source string) bool
}

// HandlerConfig holds the request-time knobs of the API.
type HandlerConfig struct {
	// RequestTimeout bounds every query against the snapshot.
	RequestTimeout time.Duration

	// FallbackEnabled turns insufficient-data recommendation errors into
	// same-author or popular suggestions.
	FallbackEnabled bool

	DefaultPageSize int
}

// HandlerConfigFrom extracts the handler configuration.
func HandlerConfigFrom(cfg *config.Config) HandlerConfig {
	return HandlerConfig{
		RequestTimeout:  cfg.API.RequestTimeout,
		FallbackEnabled: cfg.Recommend.FallbackEnabled,
		DefaultPageSize: cfg.API.DefaultPageSize,
	}
}

// Handler serves the API from the active snapshot.
type Handler struct {
	holder *snapshot.Holder
	reload ReloadTrigger
	cfg    HandlerConfig
	logger zerolog.Logger
	start  time.Time
}

// NewHandler creates a Handler. reload may be nil, in which case the admin
// reload endpoint answers 503.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(holder *snapshot.Holder, reload ReloadTrigger, cfg HandlerConfig, logger zerolog.Logger) *Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	return &Handler{
		holder: holder,
		reload: reload,
		cfg:    cfg,
		logger: logger.With().Str("component", "api").Logger(),
		start:  time.Now(),
	}
}

// snapshot returns the active snapshot or writes a NOT_READY error.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) (*snapshot.Snapshot, bool) {
	snap, err := h.holder.Load()
	if err != nil {
		respondError(w, r, err)
		return nil, false
	}
	return snap, true
}

// queryContext derives the per-request query deadline.
func (h *Handler) queryContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
}
