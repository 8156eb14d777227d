// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package recommend

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/bookshelf/internal/catalog"
)

// testInteractions is a small dataset:
//   - alpha and beta share three co-raters
//   - gamma and delta share two co-raters and none with alpha
//   - epsilon is rated by a single one-rating user
func testInteractions() []Interaction {
	return []Interaction{
		{UserID: "u1", BookKey: "alpha", Rating: 8},
		{UserID: "u1", BookKey: "beta", Rating: 7},
		{UserID: "u2", BookKey: "alpha", Rating: 6},
		{UserID: "u2", BookKey: "beta", Rating: 5},
		{UserID: "u3", BookKey: "alpha", Rating: 9},
		{UserID: "u3", BookKey: "beta", Rating: 9},
		{UserID: "u4", BookKey: "gamma", Rating: 5},
		{UserID: "u4", BookKey: "delta", Rating: 6},
		{UserID: "u5", BookKey: "gamma", Rating: 7},
		{UserID: "u5", BookKey: "delta", Rating: 7},
		{UserID: "u6", BookKey: "epsilon", Rating: 8},
	}
}

var testThresholds = Thresholds{MinUserRatings: 2, MinBookVotes: 2}

func testCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.New([]catalog.Book{
		{Title: "Alpha", Author: "Ann Author", CoverURL: "http://img/alpha.jpg", AverageRating: 7.67, VoteCount: 3},
		{Title: "Beta", Author: "Bob Writer", CoverURL: "http://img/beta.jpg", AverageRating: 7, VoteCount: 3},
		{Title: "Gamma", Author: "Cat Scribe", AverageRating: 6, VoteCount: 2},
		{Title: "Delta", Author: "Cat Scribe", AverageRating: 6.5, VoteCount: 2},
		{Title: "Epsilon", Author: "Cat Scribe", AverageRating: 8, VoteCount: 1},
		{Title: "Alphabet Soup", Author: "Dan Poet"},
	})
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	return store
}

// mapRanker ranks books from a fixed vote table.
type mapRanker map[string]int

func (m mapRanker) Rank(key string) (int, string) {
	return m[key], key
}

func testService(t *testing.T, cfg SimilarityConfig, cache *ResultCache) *Service {
	t.Helper()
	ctx := context.Background()
	store := testCatalog(t)

	m, err := BuildMatrix(ctx, testInteractions(), testThresholds)
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}
	idx, err := BuildSimilarityIndex(ctx, m, store, cfg)
	if err != nil {
		t.Fatalf("BuildSimilarityIndex() error = %v", err)
	}

	svc, err := NewService(DefaultServiceConfig(), ServiceDeps{
		Catalog: store,
		Index:   idx,
		Popular: ComputePopular(store, PopularConfig{MinVotes: 1, Limit: 10}),
		Cache:   cache,
		Version: 1,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func titles(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Title
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
