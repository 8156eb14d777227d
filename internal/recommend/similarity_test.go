// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package recommend

import (
	"context"
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

func pearsonInteractions() []Interaction {
	return []Interaction{
		{UserID: "u1", BookKey: "a", Rating: 1},
		{UserID: "u2", BookKey: "a", Rating: 2},
		{UserID: "u3", BookKey: "a", Rating: 3},
		{UserID: "u4", BookKey: "a", Rating: 4},
		{UserID: "u1", BookKey: "b", Rating: 1},
		{UserID: "u2", BookKey: "b", Rating: 3},
		{UserID: "u3", BookKey: "b", Rating: 2},
		{UserID: "u4", BookKey: "b", Rating: 4},
		{UserID: "u5", BookKey: "c", Rating: 5},
		{UserID: "u6", BookKey: "c", Rating: 6},
		{UserID: "u5", BookKey: "d", Rating: 6},
		{UserID: "u6", BookKey: "d", Rating: 5},
		// e shares a single co-rater with a and b.
		{UserID: "u1", BookKey: "e", Rating: 7},
	}
}

var pearsonVotes = mapRanker{"a": 4, "b": 4, "c": 1, "d": 5, "e": 1}

func buildIndex(t *testing.T, interactions []Interaction, th Thresholds, ranker BookRanker, cfg SimilarityConfig) *SimilarityIndex {
	t.Helper()
	m, err := BuildMatrix(context.Background(), interactions, th)
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}
	idx, err := BuildSimilarityIndex(context.Background(), m, ranker, cfg)
	if err != nil {
		t.Fatalf("BuildSimilarityIndex() error = %v", err)
	}
	return idx
}

func neighborScore(list []Neighbor, key string) (float64, bool) {
	for _, n := range list {
		if n.Key == key {
			return n.Score, true
		}
	}
	return 0, false
}

func TestSimilarity_Cosine(t *testing.T) {
	t.Parallel()

	idx := buildIndex(t, testInteractions(), testThresholds, testCatalog(t), DefaultSimilarityConfig())

	list, err := idx.TopNeighbors(context.Background(), "alpha", 10)
	if err != nil {
		t.Fatalf("TopNeighbors() error = %v", err)
	}

	want := 167 / (math.Sqrt(181) * math.Sqrt(155))
	got, ok := neighborScore(list, "beta")
	if !ok || math.Abs(got-want) > epsilon {
		t.Errorf("cosine(alpha, beta) = %v, want %v", got, want)
	}

	// No co-raters scores exactly zero and is still ranked.
	for _, key := range []string{"gamma", "delta"} {
		got, ok := neighborScore(list, key)
		if !ok {
			t.Errorf("%s missing from neighbors", key)
		}
		if got != 0 {
			t.Errorf("cosine(alpha, %s) = %v, want 0", key, got)
		}
	}
}

func TestSimilarity_Pearson(t *testing.T) {
	t.Parallel()

	cfg := DefaultSimilarityConfig()
	cfg.Metric = Pearson
	idx := buildIndex(t, pearsonInteractions(), Thresholds{MinUserRatings: 1, MinBookVotes: 1}, pearsonVotes, cfg)

	tests := []struct {
		from, to string
		want     float64
	}{
		{"a", "b", 0.8},
		{"c", "d", -1},
		{"a", "c", 0}, // no co-raters
		{"a", "e", 0}, // one co-rater
	}
	for _, tt := range tests {
		list, err := idx.TopNeighbors(context.Background(), tt.from, 10)
		if err != nil {
			t.Fatalf("TopNeighbors(%q) error = %v", tt.from, err)
		}
		got, ok := neighborScore(list, tt.to)
		if !ok {
			t.Errorf("%s missing from neighbors of %s", tt.to, tt.from)
			continue
		}
		if math.Abs(got-tt.want) > epsilon {
			t.Errorf("pearson(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestSimilarity_OrderingAndTieBreak(t *testing.T) {
	t.Parallel()

	cfg := DefaultSimilarityConfig()
	cfg.Metric = Pearson
	idx := buildIndex(t, pearsonInteractions(), Thresholds{MinUserRatings: 1, MinBookVotes: 1}, pearsonVotes, cfg)

	list, err := idx.TopNeighbors(context.Background(), "a", 10)
	if err != nil {
		t.Fatalf("TopNeighbors() error = %v", err)
	}

	// b scores 0.8; c, d and e tie at 0 and order by votes, then key.
	want := []string{"b", "d", "c", "e"}
	got := make([]string, len(list))
	for i, n := range list {
		got[i] = n.Key
	}
	if !equalStrings(got, want) {
		t.Errorf("neighbors of a = %v, want %v", got, want)
	}
}

func TestSimilarity_NeighborInvariants(t *testing.T) {
	t.Parallel()

	for _, metric := range []Metric{Cosine, Pearson} {
		t.Run(string(metric), func(t *testing.T) {
			t.Parallel()
			cfg := DefaultSimilarityConfig()
			cfg.Metric = metric
			idx := buildIndex(t, pearsonInteractions(), Thresholds{MinUserRatings: 1, MinBookVotes: 1}, pearsonVotes, cfg)

			for key := range idx.Lists() {
				for _, k := range []int{0, 1, 2, 10} {
					list, err := idx.TopNeighbors(context.Background(), key, k)
					if err != nil {
						t.Fatalf("TopNeighbors(%q, %d) error = %v", key, k, err)
					}
					if len(list) > k {
						t.Errorf("TopNeighbors(%q, %d) returned %d entries", key, k, len(list))
					}
					for i, n := range list {
						if n.Key == key {
							t.Errorf("TopNeighbors(%q) includes itself", key)
						}
						if i > 0 && n.Score > list[i-1].Score {
							t.Errorf("TopNeighbors(%q) not descending at %d", key, i)
						}
					}
				}
			}
		})
	}
}

func TestSimilarity_MaxNeighbors(t *testing.T) {
	t.Parallel()

	cfg := DefaultSimilarityConfig()
	cfg.MaxNeighbors = 1
	idx := buildIndex(t, testInteractions(), testThresholds, testCatalog(t), cfg)

	list, err := idx.TopNeighbors(context.Background(), "alpha", 5)
	if err != nil {
		t.Fatalf("TopNeighbors() error = %v", err)
	}
	if len(list) != 1 || list[0].Key != "beta" {
		t.Errorf("TopNeighbors() = %v, want only beta", list)
	}
}

func TestSimilarity_MinCommonUsersAndShrinkage(t *testing.T) {
	t.Parallel()

	cfg := DefaultSimilarityConfig()
	cfg.Metric = Pearson
	cfg.MinCommonUsers = 5
	idx := buildIndex(t, pearsonInteractions(), Thresholds{MinUserRatings: 1, MinBookVotes: 1}, pearsonVotes, cfg)
	list, _ := idx.TopNeighbors(context.Background(), "a", 10)
	if got, _ := neighborScore(list, "b"); got != 0 {
		t.Errorf("with min common users 5, pearson(a, b) = %v, want 0", got)
	}

	cfg = DefaultSimilarityConfig()
	cfg.Metric = Pearson
	cfg.Shrinkage = 4
	idx = buildIndex(t, pearsonInteractions(), Thresholds{MinUserRatings: 1, MinBookVotes: 1}, pearsonVotes, cfg)
	list, _ = idx.TopNeighbors(context.Background(), "a", 10)
	// 0.8 * 4 / (4 + 4)
	if got, _ := neighborScore(list, "b"); math.Abs(got-0.4) > epsilon {
		t.Errorf("with shrinkage 4, pearson(a, b) = %v, want 0.4", got)
	}
}

func TestSimilarity_Deterministic(t *testing.T) {
	t.Parallel()

	first := buildIndex(t, testInteractions(), testThresholds, testCatalog(t), SimilarityConfig{Metric: Cosine, Workers: 1})
	second := buildIndex(t, testInteractions(), testThresholds, testCatalog(t), SimilarityConfig{Metric: Cosine, Workers: 4})

	for key, a := range first.Lists() {
		b := second.Lists()[key]
		if len(a) != len(b) {
			t.Fatalf("list %q differs in length: %d vs %d", key, len(a), len(b))
		}
		for i := range a {
			if a[i] != b[i] {
				t.Errorf("list %q differs at %d: %v vs %v", key, i, a[i], b[i])
			}
		}
	}
}

func TestSimilarity_Errors(t *testing.T) {
	t.Parallel()

	idx := buildIndex(t, testInteractions(), testThresholds, testCatalog(t), DefaultSimilarityConfig())

	if _, err := idx.TopNeighbors(context.Background(), "epsilon", 5); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("TopNeighbors(epsilon) error = %v, want ErrInsufficientData", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := idx.TopNeighbors(ctx, "alpha", 5); !errors.Is(err, context.Canceled) {
		t.Errorf("TopNeighbors() with cancelled ctx error = %v, want context.Canceled", err)
	}

	m, err := BuildMatrix(context.Background(), testInteractions(), testThresholds)
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}
	if _, err := BuildSimilarityIndex(ctx, m, testCatalog(t), DefaultSimilarityConfig()); !errors.Is(err, context.Canceled) {
		t.Errorf("BuildSimilarityIndex() with cancelled ctx error = %v, want context.Canceled", err)
	}
	if _, err := BuildSimilarityIndex(context.Background(), m, testCatalog(t), SimilarityConfig{Metric: "jaccard"}); err == nil {
		t.Error("BuildSimilarityIndex() with unknown metric should fail")
	}
}

func TestNewSimilarityIndexFromLists(t *testing.T) {
	t.Parallel()

	built := buildIndex(t, testInteractions(), testThresholds, testCatalog(t), DefaultSimilarityConfig())
	m, err := BuildMatrix(context.Background(), testInteractions(), testThresholds)
	if err != nil {
		t.Fatalf("BuildMatrix() error = %v", err)
	}

	restored, err := NewSimilarityIndexFromLists(m, Cosine, built.Lists())
	if err != nil {
		t.Fatalf("NewSimilarityIndexFromLists() error = %v", err)
	}
	if restored.Len() != built.Len() || !restored.Has("alpha") {
		t.Errorf("restored index has %d rows, want %d", restored.Len(), built.Len())
	}

	bad := map[string][]Neighbor{"alpha": {{Key: "nope"}}, "beta": nil, "gamma": nil, "delta": nil}
	if _, err := NewSimilarityIndexFromLists(m, Cosine, bad); err == nil {
		t.Error("NewSimilarityIndexFromLists() with unknown neighbor should fail")
	}
	if _, err := NewSimilarityIndexFromLists(m, Cosine, map[string][]Neighbor{}); err == nil {
		t.Error("NewSimilarityIndexFromLists() with missing rows should fail")
	}
}

func TestParseMetric(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Metric
		wantErr bool
	}{
		{"cosine", Cosine, false},
		{" Pearson ", Pearson, false},
		{"jaccard", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMetric(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMetric(%q) = %q, %v", tt.in, got, err)
		}
	}
}
