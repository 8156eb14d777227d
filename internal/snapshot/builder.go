// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/tomtom215/bookshelf/internal/catalog"
	"github.com/tomtom215/bookshelf/internal/config"
	"github.com/tomtom215/bookshelf/internal/dataset"
	"github.com/tomtom215/bookshelf/internal/metrics"
	"github.com/tomtom215/bookshelf/internal/recommend"
	"github.com/tomtom215/bookshelf/internal/recommend/storage"
	"github.com/tomtom215/bookshelf/internal/search"
)

// Options configures every stage of a build.
type Options struct {
	Dataset    dataset.Options
	Thresholds recommend.Thresholds
	Similarity recommend.SimilarityConfig

	// SimilarityParams identifies Thresholds and Similarity in the index
	// store. Builds with different params never share stored lists.
	SimilarityParams string

	Popular recommend.PopularConfig
	Service recommend.ServiceConfig
	Search  search.Config
}

// OptionsFromConfig maps the service configuration onto build options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	metric, err := recommend.ParseMetric(cfg.Recommend.Similarity)
	if err != nil {
		return Options{}, err
	}
	delim, _ := utf8.DecodeRuneInString(cfg.Dataset.Delimiter)
	if delim == utf8.RuneError {
		delim = ','
	}
	enc, err := dataset.ParseEncoding(cfg.Dataset.Encoding)
	if err != nil {
		return Options{}, err
	}

	r := cfg.Recommend
	return Options{
		Dataset: dataset.Options{
			Files: dataset.Files{
				Books:   cfg.Dataset.BooksFile,
				Users:   cfg.Dataset.UsersFile,
				Ratings: cfg.Dataset.RatingsFile,
			},
			Delimiter: delim,
			Encoding:  enc,
		},
		Thresholds: recommend.Thresholds{
			MinUserRatings: r.MinUserRatings,
			MinBookVotes:   r.MinBookVotes,
		},
		Similarity: recommend.SimilarityConfig{
			Metric:         metric,
			MinCommonUsers: r.MinCommonUsers,
			Shrinkage:      r.Shrinkage,
			MaxNeighbors:   r.MaxNeighbors,
			Workers:        r.Workers,
		},
		SimilarityParams: r.SimilarityFingerprint(),
		Popular: recommend.PopularConfig{
			MinVotes: r.PopularMinVotes,
			Limit:    r.PopularLimit,
		},
		Service: recommend.ServiceConfig{
			DefaultK:        r.DefaultK,
			MaxK:            r.MaxK,
			MinPartialQuery: r.MinPartialQuery,
		},
		Search: search.Config{
			MinQueryLength:     cfg.Search.MinQueryLength,
			DefaultSuggestions: cfg.Search.MaxSuggestions,
			MaxSuggestions:     cfg.Search.SuggestionLimit,
			DefaultPageSize:    cfg.API.DefaultPageSize,
			MaxPageSize:        cfg.API.MaxPageSize,
		},
	}, nil
}

// Builder turns dataset loads into snapshots. Builds are independent; the
// caller serializes them if it needs to.
type Builder struct {
	src    dataset.Source
	opts   Options
	store  *storage.Store
	cache  *recommend.ResultCache
	logger zerolog.Logger

	version atomic.Uint64
}

// NewBuilder creates a Builder. store and cache are optional.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBuilder(src dataset.Source, opts Options, store *storage.Store, cache *recommend.ResultCache, logger zerolog.Logger) *Builder {
	return &Builder{
		src:    src,
		opts:   opts,
		store:  store,
		cache:  cache,
		logger: logger.With().Str("component", "snapshot").Logger(),
	}
}

// Build loads the dataset and constructs a complete snapshot. Nothing is
// published; on error no snapshot is returned.
func (b *Builder) Build(ctx context.Context) (snap *Snapshot, err error) {
	start := time.Now()
	version := b.version.Add(1)
	defer func() {
		metrics.RecordSnapshotBuild(time.Since(start), version, err)
	}()

	ds, err := dataset.Load(ctx, b.src, b.opts.Dataset, b.logger)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	stage := time.Now()
	cat, err := catalog.New(ds.Books)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	m, err := recommend.BuildMatrix(ctx, ds.Interactions, b.opts.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("build interaction matrix: %w", err)
	}
	metrics.ObserveStage("matrix", stage)

	stage = time.Now()
	sim, restored, err := b.similarity(ctx, ds.Fingerprint, m, cat)
	if err != nil {
		return nil, err
	}
	metrics.ObserveStage("similarity", stage)

	stage = time.Now()
	popular := recommend.ComputePopular(cat, b.opts.Popular)
	idx := search.NewIndex(cat, b.opts.Search)
	svc, err := recommend.NewService(b.opts.Service, recommend.ServiceDeps{
		Catalog: cat,
		Index:   sim,
		Popular: popular,
		Cache:   b.cache,
		Version: version,
	}, b.logger)
	if err != nil {
		return nil, fmt.Errorf("create recommend service: %w", err)
	}
	metrics.ObserveStage("index", stage)

	snap = &Snapshot{
		Version:     version,
		Fingerprint: ds.Fingerprint,
		LoadedAt:    ds.LoadedAt,
		Catalog:     cat,
		Matrix:      m,
		Similarity:  sim,
		Popular:     popular,
		Search:      idx,
		Recommender: svc,
		Stats: Stats{
			Stats:              ds.Stats,
			MatrixBooks:        m.Len(),
			MatrixUsers:        m.Users(),
			MatrixRatings:      m.Ratings(),
			PopularBooks:       len(popular),
			SimilarityRestored: restored,
			BuildDuration:      time.Since(start),
		},
	}

	b.logger.Info().
		Uint64("version", version).
		Int("books", cat.Len()).
		Int("matrix_books", m.Len()).
		Int("matrix_users", m.Users()).
		Int("popular", len(popular)).
		Bool("similarity_restored", restored).
		Dur("duration", snap.Stats.BuildDuration).
		Msg("Snapshot built")
	return snap, nil
}

// similarity restores the neighbor lists from the index store when they
// were saved for the same dataset and parameters, and builds them otherwise.
// Store failures are logged and never fail the build.
func (b *Builder) similarity(ctx context.Context, fingerprint string, m *recommend.Matrix, cat *catalog.Store) (*recommend.SimilarityIndex, bool, error) {
	usable := b.store != nil && m.Len() > 0
	if usable {
		meta, lists, err := b.store.Load(ctx, fingerprint, b.opts.SimilarityParams)
		switch {
		case err == nil:
			sim, err := recommend.NewSimilarityIndexFromLists(m, recommend.Metric(meta.Metric), lists)
			if err == nil {
				return sim, true, nil
			}
			b.logger.Warn().Err(err).Msg("Stored similarity index does not match the matrix, rebuilding")
		case errors.Is(err, storage.ErrNotFound):
			b.logger.Debug().Str("fingerprint", fingerprint).Msg("No stored similarity index")
		case ctx.Err() != nil:
			return nil, false, ctx.Err()
		default:
			b.logger.Warn().Err(err).Msg("Failed to load stored similarity index, rebuilding")
		}
	}

	start := time.Now()
	sim, err := recommend.BuildSimilarityIndex(ctx, m, cat, b.opts.Similarity)
	if err != nil {
		return nil, false, fmt.Errorf("build similarity index: %w", err)
	}

	if usable {
		meta := storage.Metadata{
			DatasetFingerprint: fingerprint,
			Params:             b.opts.SimilarityParams,
			Metric:             string(sim.Metric()),
			BuildDurationMS:    time.Since(start).Milliseconds(),
		}
		if err := b.store.Save(ctx, meta, sim.Lists()); err != nil {
			b.logger.Warn().Err(err).Msg("Failed to persist similarity index")
		}
	}
	return sim, false, nil
}
