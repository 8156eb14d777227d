// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

// Package search serves typeahead suggestions and keyword search over one
// catalog snapshot.
//
// Suggestions rank title prefix matches first (answered by a Trie over
// bookKeys), then titles containing the query, then authors containing it.
// Keyword search and its paginated form share the catalog's fixed order, so
// concatenating pages always reproduces the unpaginated result.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tomtom215/bookshelf/internal/catalog"
)

// ErrInvalidQuery is returned for queries or paging parameters that cannot
// be served.
var ErrInvalidQuery = errors.New("invalid search query")

// ctxCheckEvery is how many catalog entries a scan visits between
// cancellation checks.
const ctxCheckEvery = 1024

// Config bounds suggestion and page sizes.
type Config struct {
	MinQueryLength     int
	DefaultSuggestions int
	MaxSuggestions     int
	DefaultPageSize    int
	MaxPageSize        int
}

// DefaultConfig returns the service defaults.
func DefaultConfig() Config {
	return Config{
		MinQueryLength:     2,
		DefaultSuggestions: 10,
		MaxSuggestions:     50,
		DefaultPageSize:    20,
		MaxPageSize:        100,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinQueryLength <= 0 {
		c.MinQueryLength = d.MinQueryLength
	}
	if c.DefaultSuggestions <= 0 {
		c.DefaultSuggestions = d.DefaultSuggestions
	}
	if c.MaxSuggestions < c.DefaultSuggestions {
		c.MaxSuggestions = max(d.MaxSuggestions, c.DefaultSuggestions)
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = d.DefaultPageSize
	}
	if c.MaxPageSize < c.DefaultPageSize {
		c.MaxPageSize = max(d.MaxPageSize, c.DefaultPageSize)
	}
	return c
}

// Page is one slice of a keyword search.
type Page struct {
	Books   []catalog.Book
	HasMore bool
	Total   int
}

// Index answers search queries for one catalog. It is immutable and safe for
// concurrent use.
type Index struct {
	store *catalog.Store
	trie  *Trie
	cfg   Config
}

// NewIndex builds the suggestion trie over store.
func NewIndex(store *catalog.Store, cfg Config) *Index {
	trie := NewTrie()
	for i := range store.Len() {
		trie.Insert(store.At(i).Key, i)
	}
	return &Index{store: store, trie: trie, cfg: cfg.withDefaults()}
}

// Config returns the effective limits.
func (ix *Index) Config() Config {
	return ix.cfg
}

// Suggest returns up to limit books matching query for typeahead. A limit
// <= 0 selects the default; larger limits are capped. A query that matches
// nothing yields an empty slice.
func (ix *Index) Suggest(ctx context.Context, query string, limit int) ([]catalog.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if n := utf8.RuneCountInString(query); n < ix.cfg.MinQueryLength {
		return nil, fmt.Errorf("%w: query must be at least %d characters, got %d", ErrInvalidQuery, ix.cfg.MinQueryLength, n)
	}
	switch {
	case limit <= 0:
		limit = ix.cfg.DefaultSuggestions
	case limit > ix.cfg.MaxSuggestions:
		limit = ix.cfg.MaxSuggestions
	}

	needle := catalog.Normalize(query)
	refs := ix.trie.PrefixRefs(needle, limit)

	seen := make(map[int]struct{}, limit)
	for _, ref := range refs {
		seen[ref] = struct{}{}
	}

	scan := func(match func(i int) bool) error {
		for i := range ix.store.Len() {
			if len(refs) >= limit {
				return nil
			}
			if i%ctxCheckEvery == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if _, dup := seen[i]; dup || !match(i) {
				continue
			}
			seen[i] = struct{}{}
			refs = append(refs, i)
		}
		return nil
	}

	if err := scan(func(i int) bool {
		return strings.Contains(ix.store.At(i).Key, needle)
	}); err != nil {
		return nil, err
	}
	if err := scan(func(i int) bool {
		return strings.Contains(ix.store.FoldedAuthorAt(i), needle)
	}); err != nil {
		return nil, err
	}

	out := make([]catalog.Book, len(refs))
	for i, ref := range refs {
		out[i] = ix.store.At(ref)
	}
	return out, nil
}

// Search returns every book whose title or author contains keyword and whose
// title starts with letter. Both filters are case-insensitive; an empty
// keyword matches everything and an empty or "all" letter disables the
// letter filter.
func (ix *Index) Search(ctx context.Context, keyword, letter string) ([]catalog.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	books := ix.store.KeywordSearch(keyword, letter)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if books == nil {
		books = []catalog.Book{}
	}
	return books, nil
}

// SearchPage returns the [offset, offset+limit) slice of Search. Limits above
// the configured maximum are capped.
func (ix *Index) SearchPage(ctx context.Context, keyword, letter string, offset, limit int) (Page, error) {
	if offset < 0 {
		return Page{}, fmt.Errorf("%w: offset %d is negative", ErrInvalidQuery, offset)
	}
	if limit <= 0 {
		return Page{}, fmt.Errorf("%w: limit %d must be positive", ErrInvalidQuery, limit)
	}
	limit = min(limit, ix.cfg.MaxPageSize)

	all, err := ix.Search(ctx, keyword, letter)
	if err != nil {
		return Page{}, err
	}
	books, hasMore := catalog.PageOf(all, offset, limit)
	return Page{Books: books, HasMore: hasMore, Total: len(all)}, nil
}
