// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/bookshelf/internal/metrics"
	"github.com/tomtom215/bookshelf/internal/snapshot"
)

// Reload trigger sources, used as metric labels.
const (
	TriggerWatch    = "watch"
	TriggerInterval = "interval"
	TriggerAdmin    = "admin"
)

// SnapshotBuilder builds a complete snapshot from the current dataset.
type SnapshotBuilder interface {
	Build(ctx context.Context) (*snapshot.Snapshot, error)
}

// SnapshotPublisher holds the active snapshot.
type SnapshotPublisher interface {
	Store(s *snapshot.Snapshot) *snapshot.Snapshot
	Ready() bool
}

// SnapshotServiceConfig holds the reload schedule.
type SnapshotServiceConfig struct {
	// ReloadInterval triggers a periodic reload. Zero disables it.
	ReloadInterval time.Duration

	// BuildTimeout bounds one build. Zero means no bound.
	BuildTimeout time.Duration

	// OnInitialFailure, if set, is called with the error of a failed
	// first load before Serve returns.
	OnInitialFailure func(error)
}

// SnapshotService loads the first snapshot and rebuilds it on request.
//
// A failed first load terminates the supervisor tree, since the service
// cannot answer anything without data. A failed reload keeps the previous
// snapshot published. Reload requests arriving while one is pending are
// merged into it.
type SnapshotService struct {
	builder  SnapshotBuilder
	holder   SnapshotPublisher
	config   SnapshotServiceConfig
	logger   zerolog.Logger
	triggers chan string
	name     string
}

// NewSnapshotService creates the snapshot loader service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSnapshotService(builder SnapshotBuilder, holder SnapshotPublisher, cfg SnapshotServiceConfig, logger zerolog.Logger) *SnapshotService {
	return &SnapshotService{
		builder:  builder,
		holder:   holder,
		config:   cfg,
		logger:   logger.With().Str("service", "snapshot").Logger(),
		triggers: make(chan string, 1),
		name:     "snapshot-service",
	}
}

// Trigger requests a reload. It never blocks and reports whether the request
// was queued; false means a reload is already pending.
func (s *SnapshotService) Trigger(source string) bool {
	metrics.ReloadTriggers.WithLabelValues(source).Inc()
	select {
	case s.triggers <- source:
		return true
	default:
		return false
	}
}

// Serve implements suture.Service.
func (s *SnapshotService) Serve(ctx context.Context) error {
	if !s.holder.Ready() {
		if err := s.reload(ctx, "initial"); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if s.config.OnInitialFailure != nil {
				s.config.OnInitialFailure(err)
			}
			return fmt.Errorf("%w: initial snapshot build: %w", suture.ErrTerminateSupervisorTree, err)
		}
	}

	var tick <-chan time.Time
	if s.config.ReloadInterval > 0 {
		ticker := time.NewTicker(s.config.ReloadInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	s.logger.Info().Dur("reload_interval", s.config.ReloadInterval).Msg("snapshot service running")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("snapshot service shutting down")
			return ctx.Err()

		case <-tick:
			metrics.ReloadTriggers.WithLabelValues(TriggerInterval).Inc()
			s.reloadLogged(ctx, TriggerInterval)

		case source := <-s.triggers:
			s.reloadLogged(ctx, source)
		}
	}
}

func (s *SnapshotService) reloadLogged(ctx context.Context, source string) {
	if err := s.reload(ctx, source); err != nil && ctx.Err() == nil {
		s.logger.Error().Err(err).Str("trigger", source).Msg("snapshot reload failed, keeping previous snapshot")
	}
}

func (s *SnapshotService) reload(ctx context.Context, source string) error {
	if s.config.BuildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.BuildTimeout)
		defer cancel()
	}

	s.logger.Info().Str("trigger", source).Msg("building snapshot")
	snap, err := s.builder.Build(ctx)
	if err != nil {
		return err
	}

	prev := s.holder.Store(snap)
	ev := s.logger.Info().
		Str("trigger", source).
		Uint64("version", snap.Version).
		Str("fingerprint", snap.Fingerprint)
	if prev != nil {
		ev = ev.Uint64("previous_version", prev.Version)
	}
	ev.Msg("snapshot published")
	return nil
}

// String returns the service name for logging.
func (s *SnapshotService) String() string {
	return s.name
}
