// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/tomtom215/bookshelf/internal/catalog"
	"github.com/tomtom215/bookshelf/internal/metrics"
)

// FallbackKind says where fallback entries came from.
type FallbackKind string

const (
	// FallbackAuthor means the entries are other books by the same author.
	FallbackAuthor FallbackKind = "author"

	// FallbackPopular means the entries are the head of the popular list.
	FallbackPopular FallbackKind = "popular"
)

// ServiceConfig holds the query-time knobs of a Service.
type ServiceConfig struct {
	// DefaultK is used when the caller passes k == 0.
	DefaultK int

	// MaxK caps k.
	MaxK int

	// MinPartialQuery is the minimum query length, in runes, for resolving
	// a title by prefix when there is no exact match.
	MinPartialQuery int
}

// DefaultServiceConfig returns the default query-time configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{DefaultK: 5, MaxK: 50, MinPartialQuery: 4}
}

// ServiceDeps are the snapshot structures a Service reads.
type ServiceDeps struct {
	Catalog *catalog.Store
	Index   NeighborIndex
	Popular []catalog.Book

	// Cache is optional and may be shared between snapshots.
	Cache *ResultCache

	// Version identifies the snapshot in cache keys.
	Version uint64
}

// Service answers title -> similar books queries against one snapshot.
// It is safe for concurrent use.
type Service struct {
	cfg     ServiceConfig
	store   *catalog.Store
	index   NeighborIndex
	popular []catalog.Book
	cache   *ResultCache
	version uint64
	logger  zerolog.Logger
}

// NewService creates a Service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewService(cfg ServiceConfig, deps ServiceDeps, logger zerolog.Logger) (*Service, error) {
	if deps.Catalog == nil || deps.Index == nil {
		return nil, errors.New("recommend service needs a catalog and a neighbor index")
	}
	def := DefaultServiceConfig()
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = def.DefaultK
	}
	if cfg.MaxK <= 0 {
		cfg.MaxK = def.MaxK
	}
	if cfg.DefaultK > cfg.MaxK {
		return nil, fmt.Errorf("default k %d exceeds max k %d", cfg.DefaultK, cfg.MaxK)
	}
	if cfg.MinPartialQuery <= 0 {
		cfg.MinPartialQuery = def.MinPartialQuery
	}

	return &Service{
		cfg:     cfg,
		store:   deps.Catalog,
		index:   deps.Index,
		popular: deps.Popular,
		cache:   deps.Cache,
		version: deps.Version,
		logger:  logger.With().Str("component", "recommend").Logger(),
	}, nil
}

// Recommend returns up to k books similar to the one titleQuery names,
// best first. k == 0 means the default; larger than MaxK is capped.
//
// Errors:
//   - ErrInvalidQuery: empty query or negative k
//   - ErrBookNotFound: the query names no catalog book
//   - ErrInsufficientData: the book is known but has too few ratings
//   - ctx.Err(): cancelled; no partial result is returned
//
// A known book with no neighbors, or any book while the matrix is empty,
// yields an empty result and no error.
func (s *Service) Recommend(ctx context.Context, titleQuery string, k int) ([]Entry, error) {
	start := time.Now()
	entries, outcome, err := s.recommend(ctx, titleQuery, k)
	metrics.RecordRecommendation(outcome, time.Since(start))

	if err != nil {
		s.logger.Debug().
			Err(err).
			Str("query", titleQuery).
			Str("outcome", outcome).
			Msg("recommendation failed")
		return nil, err
	}

	s.logger.Debug().
		Str("query", titleQuery).
		Int("returned", len(entries)).
		Dur("latency", time.Since(start)).
		Msg("recommendation complete")
	return entries, nil
}

func (s *Service) recommend(ctx context.Context, titleQuery string, k int) ([]Entry, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, outcomeFor(err), err
	}

	k, err := s.normalizeK(k)
	if err != nil {
		return nil, "invalid_query", err
	}

	book, err := s.Resolve(titleQuery)
	if err != nil {
		return nil, outcomeFor(err), err
	}

	if s.index.Len() == 0 {
		return []Entry{}, "empty", nil
	}
	if !s.index.Has(book.Key) {
		return nil, "insufficient_data", fmt.Errorf("%w: %q", ErrInsufficientData, book.Title)
	}

	if cached, ok := s.cache.Get(s.version, book.Key, k); ok {
		return cached, outcomeOK(cached), nil
	}

	neighbors, err := s.index.TopNeighbors(ctx, book.Key, k)
	if err != nil {
		return nil, outcomeFor(err), err
	}

	entries := make([]Entry, 0, len(neighbors))
	for _, n := range neighbors {
		b, ok := s.store.Get(n.Key)
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			Title:    b.Title,
			Author:   b.Author,
			CoverURL: b.CoverURL,
			Score:    n.Score,
		})
	}

	// Drop the result rather than return it if the caller gave up meanwhile.
	if err := ctx.Err(); err != nil {
		return nil, outcomeFor(err), err
	}

	s.cache.Set(s.version, book.Key, k, entries)
	return entries, outcomeOK(entries), nil
}

// Resolve maps a title query to a catalog book: the exact normalized title
// first, then, for queries of at least MinPartialQuery runes, the shortest
// title starting with the query (ties: more votes, then catalog order).
func (s *Service) Resolve(titleQuery string) (catalog.Book, error) {
	key := catalog.Normalize(titleQuery)
	if key == "" {
		return catalog.Book{}, fmt.Errorf("%w: empty title", ErrInvalidQuery)
	}

	if b, ok := s.store.Get(key); ok {
		return b, nil
	}

	if utf8.RuneCountInString(key) >= s.cfg.MinPartialQuery {
		candidates := s.store.KeyPrefix(key)
		if len(candidates) > 0 {
			best := candidates[0]
			for _, c := range candidates[1:] {
				if closerMatch(c, best) {
					best = c
				}
			}
			// Return the canonical entry so resolution matches an exact query.
			if b, ok := s.store.Get(best.Key); ok {
				return b, nil
			}
		}
	}

	return catalog.Book{}, fmt.Errorf("%w: %q", ErrBookNotFound, strings.TrimSpace(titleQuery))
}

// closerMatch reports whether a is a better prefix match than b.
func closerMatch(a, b catalog.Book) bool {
	la, lb := utf8.RuneCountInString(a.Key), utf8.RuneCountInString(b.Key)
	if la != lb {
		return la < lb
	}
	return a.VoteCount > b.VoteCount
}

// Fallback returns substitute entries for a book that cannot be recommended
// from ratings: up to k other books by the same author when at least k
// exist, otherwise the top k popular books. Entries carry a zero score.
func (s *Service) Fallback(ctx context.Context, titleQuery string, k int) ([]Entry, FallbackKind, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	k, err := s.normalizeK(k)
	if err != nil {
		return nil, "", err
	}
	book, err := s.Resolve(titleQuery)
	if err != nil {
		return nil, "", err
	}

	var byAuthor []catalog.Book
	if strings.TrimSpace(book.Author) != "" {
		for _, b := range s.store.ByAuthor(book.Author) {
			if b.Key != book.Key {
				byAuthor = append(byAuthor, b)
			}
		}
	}

	kind := FallbackAuthor
	source := byAuthor
	if len(byAuthor) < k {
		kind = FallbackPopular
		source = s.popular
	}
	if len(source) > k {
		source = source[:k]
	}

	entries := make([]Entry, 0, len(source))
	for _, b := range source {
		entries = append(entries, Entry{Title: b.Title, Author: b.Author, CoverURL: b.CoverURL})
	}
	metrics.RecordRecommendation("fallback", 0)
	return entries, kind, nil
}

// Popular returns the snapshot's popular list.
func (s *Service) Popular() []catalog.Book {
	return s.popular
}

func (s *Service) normalizeK(k int) (int, error) {
	switch {
	case k < 0:
		return 0, fmt.Errorf("%w: k must not be negative, got %d", ErrInvalidQuery, k)
	case k == 0:
		return s.cfg.DefaultK, nil
	case k > s.cfg.MaxK:
		return s.cfg.MaxK, nil
	default:
		return k, nil
	}
}

func outcomeOK(entries []Entry) string {
	if len(entries) == 0 {
		return "empty"
	}
	return "ok"
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrBookNotFound):
		return "book_not_found"
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrInvalidQuery):
		return "invalid_query"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
