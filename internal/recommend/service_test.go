// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package recommend

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/bookshelf/internal/catalog"
)

func TestService_Recommend(t *testing.T) {
	t.Parallel()

	svc := testService(t, DefaultSimilarityConfig(), nil)

	tests := []struct {
		name    string
		query   string
		k       int
		want    []string
		wantErr error
	}{
		{"exact title", "Alpha", 3, []string{"Beta", "Delta", "Gamma"}, nil},
		{"case and spacing", "  aLPHa ", 1, []string{"Beta"}, nil},
		{"default k", "alpha", 0, []string{"Beta", "Delta", "Gamma"}, nil},
		{"partial title", "gamm", 1, []string{"Delta"}, nil},
		{"partial prefers shortest title", "alph", 1, []string{"Beta"}, nil},
		{"partial too short", "gam", 1, nil, ErrBookNotFound},
		{"unknown title", "Nonexistent Book", 5, nil, ErrBookNotFound},
		{"filtered out of matrix", "Epsilon", 5, nil, ErrInsufficientData},
		{"never rated", "Alphabet Soup", 5, nil, ErrInsufficientData},
		{"empty query", "   ", 5, nil, ErrInvalidQuery},
		{"negative k", "Alpha", -1, nil, ErrInvalidQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := svc.Recommend(context.Background(), tt.query, tt.k)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Recommend(%q) error = %v, want %v", tt.query, err, tt.wantErr)
				}
				if got != nil {
					t.Errorf("Recommend(%q) returned entries alongside an error", tt.query)
				}
				return
			}
			if err != nil {
				t.Fatalf("Recommend(%q) error = %v", tt.query, err)
			}
			if !equalStrings(titles(got), tt.want) {
				t.Errorf("Recommend(%q, %d) = %v, want %v", tt.query, tt.k, titles(got), tt.want)
			}
		})
	}
}

func TestService_EntryFields(t *testing.T) {
	t.Parallel()

	svc := testService(t, DefaultSimilarityConfig(), nil)
	got, err := svc.Recommend(context.Background(), "Alpha", 1)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	want := Entry{Title: "Beta", Author: "Bob Writer", CoverURL: "http://img/beta.jpg"}
	if len(got) != 1 || got[0].Title != want.Title || got[0].Author != want.Author || got[0].CoverURL != want.CoverURL {
		t.Errorf("Recommend() = %+v, want %+v", got, want)
	}
	if got[0].Score <= 0 {
		t.Errorf("Score = %v, want positive", got[0].Score)
	}
}

// A and B share co-raters with positive correlation, A and C share none.
func TestService_ABCScenario(t *testing.T) {
	t.Parallel()

	store, err := catalog.New([]catalog.Book{
		{Title: "A", Author: "x", VoteCount: 4},
		{Title: "B", Author: "y", VoteCount: 4},
		{Title: "C", Author: "z", VoteCount: 2},
	})
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}

	base := []Interaction{
		{UserID: "u1", BookKey: "a", Rating: 1},
		{UserID: "u2", BookKey: "a", Rating: 2},
		{UserID: "u3", BookKey: "a", Rating: 3},
		{UserID: "u4", BookKey: "a", Rating: 4},
		{UserID: "u1", BookKey: "b", Rating: 1},
		{UserID: "u2", BookKey: "b", Rating: 3},
		{UserID: "u3", BookKey: "b", Rating: 2},
		{UserID: "u4", BookKey: "b", Rating: 4},
	}

	tests := []struct {
		name         string
		interactions []Interaction
		th           Thresholds
		want         []string
	}{
		{
			name: "c qualifies with zero score",
			interactions: append(append([]Interaction(nil), base...),
				Interaction{UserID: "u5", BookKey: "c", Rating: 5},
				Interaction{UserID: "u6", BookKey: "c", Rating: 6},
			),
			th:   Thresholds{MinUserRatings: 1, MinBookVotes: 1},
			want: []string{"B", "C"},
		},
		{
			name: "only b qualifies",
			interactions: append(append([]Interaction(nil), base...),
				Interaction{UserID: "u5", BookKey: "c", Rating: 5},
			),
			th:   Thresholds{MinUserRatings: 2, MinBookVotes: 1},
			want: []string{"B"},
		},
	}

	for _, metric := range []Metric{Cosine, Pearson} {
		for _, tt := range tests {
			t.Run(string(metric)+"/"+tt.name, func(t *testing.T) {
				t.Parallel()
				ctx := context.Background()
				m, err := BuildMatrix(ctx, tt.interactions, tt.th)
				if err != nil {
					t.Fatalf("BuildMatrix() error = %v", err)
				}
				idx, err := BuildSimilarityIndex(ctx, m, store, SimilarityConfig{Metric: metric})
				if err != nil {
					t.Fatalf("BuildSimilarityIndex() error = %v", err)
				}
				svc, err := NewService(DefaultServiceConfig(), ServiceDeps{Catalog: store, Index: idx}, zerolog.Nop())
				if err != nil {
					t.Fatalf("NewService() error = %v", err)
				}

				got, err := svc.Recommend(ctx, "A", 2)
				if err != nil {
					t.Fatalf("Recommend() error = %v", err)
				}
				if !equalStrings(titles(got), tt.want) {
					t.Errorf("Recommend(A, 2) = %v, want %v", titles(got), tt.want)
				}
			})
		}
	}
}

func TestService_EmptyMatrix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := testCatalog(t)
	m, err := BuildMatrix(ctx, testInteractions(), Thresholds{MinUserRatings: 100, MinBookVotes: 100})
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}
	idx, err := BuildSimilarityIndex(ctx, m, store, DefaultSimilarityConfig())
	if err != nil {
		t.Fatalf("BuildSimilarityIndex() error = %v", err)
	}
	svc, err := NewService(DefaultServiceConfig(), ServiceDeps{Catalog: store, Index: idx}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	got, err := svc.Recommend(ctx, "Alpha", 5)
	if err != nil {
		t.Fatalf("Recommend() on empty matrix error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Recommend() on empty matrix = %v, want empty non-nil slice", got)
	}

	if _, err := svc.Recommend(ctx, "Nonexistent", 5); !errors.Is(err, ErrBookNotFound) {
		t.Errorf("Recommend(unknown) error = %v, want ErrBookNotFound", err)
	}
}

func TestService_Deterministic(t *testing.T) {
	t.Parallel()

	svc := testService(t, DefaultSimilarityConfig(), nil)

	first, err := svc.Recommend(context.Background(), "Alpha", 3)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.Recommend(context.Background(), "Alpha", 3)
			if err != nil {
				t.Errorf("Recommend() error = %v", err)
				return
			}
			if !equalStrings(titles(got), titles(first)) {
				t.Errorf("Recommend() = %v, want %v", titles(got), titles(first))
			}
		}()
	}
	wg.Wait()
}

func TestService_Cache(t *testing.T) {
	t.Parallel()

	cache, err := NewResultCache(CacheConfig{})
	if err != nil {
		t.Fatalf("NewResultCache() error = %v", err)
	}
	t.Cleanup(cache.Close)

	svc := testService(t, DefaultSimilarityConfig(), cache)
	first, err := svc.Recommend(context.Background(), "Alpha", 2)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	cache.Wait()

	cached, ok := cache.Get(1, "alpha", 2)
	if !ok {
		t.Fatal("result was not cached")
	}
	if !equalStrings(titles(cached), titles(first)) {
		t.Errorf("cached = %v, want %v", titles(cached), titles(first))
	}
	if _, ok := cache.Get(2, "alpha", 2); ok {
		t.Error("cache entry leaked across snapshot versions")
	}

	second, err := svc.Recommend(context.Background(), "alpha", 2)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if !equalStrings(titles(second), titles(first)) {
		t.Errorf("second call = %v, want %v", titles(second), titles(first))
	}
}

func TestService_Cancelled(t *testing.T) {
	t.Parallel()

	svc := testService(t, DefaultSimilarityConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := svc.Recommend(ctx, "Alpha", 3)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Recommend() error = %v, want context.Canceled", err)
	}
	if got != nil {
		t.Errorf("Recommend() returned a partial result: %v", got)
	}
}

func TestService_Fallback(t *testing.T) {
	t.Parallel()

	svc := testService(t, DefaultSimilarityConfig(), nil)

	tests := []struct {
		name     string
		query    string
		k        int
		wantKind FallbackKind
		want     []string
	}{
		{"same author", "Epsilon", 2, FallbackAuthor, []string{"Delta", "Gamma"}},
		{"not enough by author", "Epsilon", 3, FallbackPopular, []string{"Epsilon", "Alpha", "Beta"}},
		{"author with no other books", "Alphabet Soup", 1, FallbackPopular, []string{"Epsilon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, kind, err := svc.Fallback(context.Background(), tt.query, tt.k)
			if err != nil {
				t.Fatalf("Fallback() error = %v", err)
			}
			if kind != tt.wantKind {
				t.Errorf("Fallback() kind = %q, want %q", kind, tt.wantKind)
			}
			if !equalStrings(titles(got), tt.want) {
				t.Errorf("Fallback() = %v, want %v", titles(got), tt.want)
			}
		})
	}

	if _, _, err := svc.Fallback(context.Background(), "Unknown", 3); !errors.Is(err, ErrBookNotFound) {
		t.Errorf("Fallback(unknown) error = %v, want ErrBookNotFound", err)
	}
}

func TestComputePopular(t *testing.T) {
	t.Parallel()

	store := testCatalog(t)

	got := ComputePopular(store, PopularConfig{MinVotes: 2, Limit: 3})
	want := []string{"Alpha", "Beta", "Delta"}
	if len(got) != len(want) {
		t.Fatalf("ComputePopular() returned %d books, want %d", len(got), len(want))
	}
	for i, b := range got {
		if b.Title != want[i] {
			t.Errorf("ComputePopular()[%d] = %q, want %q", i, b.Title, want[i])
		}
	}

	if got := ComputePopular(store, PopularConfig{MinVotes: 1000, Limit: 3}); len(got) != 0 {
		t.Errorf("ComputePopular() with high threshold = %d books, want 0", len(got))
	}
}

func TestNewService_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewService(DefaultServiceConfig(), ServiceDeps{}, zerolog.Nop()); err == nil {
		t.Error("NewService() without catalog should fail")
	}

	svc := testService(t, DefaultSimilarityConfig(), nil)
	if _, err := NewService(ServiceConfig{DefaultK: 10, MaxK: 5}, ServiceDeps{Catalog: svc.store, Index: svc.index}, zerolog.Nop()); err == nil {
		t.Error("NewService() with DefaultK > MaxK should fail")
	}
}
