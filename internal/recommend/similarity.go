// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package recommend

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Metric names a pairwise similarity function.
type Metric string

const (
	// Cosine divides the dot product over co-raters by the product of the
	// full row norms, which equals cosine similarity of the zero-filled
	// dense rows. Range [0, 1] for positive ratings.
	Cosine Metric = "cosine"

	// Pearson is the correlation of the two rows restricted to co-raters.
	// Range [-1, 1]; fewer than two co-raters or zero variance gives 0.
	Pearson Metric = "pearson"
)

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case Cosine:
		return Cosine, nil
	case Pearson:
		return Pearson, nil
	default:
		return "", fmt.Errorf("unknown similarity metric %q", s)
	}
}

// SimilarityConfig controls the similarity build.
type SimilarityConfig struct {
	Metric Metric

	// MinCommonUsers is the minimum number of co-raters for a nonzero score.
	MinCommonUsers int

	// Shrinkage damps scores built on few co-raters:
	// sim = raw * n / (n + Shrinkage). Zero disables it.
	Shrinkage float64

	// MaxNeighbors is how many neighbors are kept per row.
	MaxNeighbors int

	// Workers bounds build parallelism. Zero means runtime.NumCPU().
	Workers int
}

// DefaultSimilarityConfig returns the configuration used when none is given.
func DefaultSimilarityConfig() SimilarityConfig {
	return SimilarityConfig{
		Metric:         Cosine,
		MinCommonUsers: 1,
		Shrinkage:      0,
		MaxNeighbors:   50,
	}
}

// BookRanker supplies the tie-break attributes of a book: its vote count
// and its case-insensitive title. *catalog.Store satisfies it.
type BookRanker interface {
	Rank(key string) (votes int, foldedTitle string)
}

// SimilarityIndex holds the precomputed neighbor list of every matrix row.
//
// Each list is ordered by score descending, then vote count descending,
// then case-insensitive title ascending, then key. Rows with no co-raters
// score exactly 0 and are ranked like any other candidate.
type SimilarityIndex struct {
	metric    Metric
	neighbors map[string][]Neighbor
}

// BuildSimilarityIndex computes every row's neighbors. Rows are split into
// chunks processed by parallel workers; a cancelled ctx aborts the build
// and no index is returned.
func BuildSimilarityIndex(ctx context.Context, m *Matrix, ranker BookRanker, cfg SimilarityConfig) (*SimilarityIndex, error) {
	if cfg.Metric == "" {
		cfg.Metric = Cosine
	}
	if _, err := ParseMetric(string(cfg.Metric)); err != nil {
		return nil, err
	}
	if cfg.MinCommonUsers < 1 {
		cfg.MinCommonUsers = 1
	}
	if cfg.MaxNeighbors < 1 {
		cfg.MaxNeighbors = DefaultSimilarityConfig().MaxNeighbors
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}

	idx := &SimilarityIndex{
		metric:    cfg.Metric,
		neighbors: make(map[string][]Neighbor, m.Len()),
	}
	if m.Len() == 0 {
		return idx, nil
	}

	ranks := make([]rankInfo, m.Len())
	for i, key := range m.keys {
		votes, title := ranker.Rank(key)
		if title == "" {
			title = key
		}
		ranks[i] = rankInfo{votes: votes, title: title, key: key}
	}

	results := make([][]Neighbor, m.Len())
	workers := min(cfg.Workers, m.Len())
	chunkSize := (m.Len() + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, m.Len())
		if start >= end {
			break
		}
		g.Go(func() error {
			b := &rowBuilder{m: m, ranks: ranks, cfg: cfg}
			for i := start; i < end; i++ {
				if contextCancelled(gctx) {
					return gctx.Err()
				}
				results[i] = b.neighbors(i)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("similarity build aborted: %w", err)
	}

	for i, key := range m.keys {
		idx.neighbors[key] = results[i]
	}
	return idx, nil
}

// NewSimilarityIndexFromLists rebuilds an index from previously computed
// neighbor lists, as loaded from the index store. Every key of m must have
// a list and no list may reference a key outside m.
func NewSimilarityIndexFromLists(m *Matrix, metric Metric, lists map[string][]Neighbor) (*SimilarityIndex, error) {
	if len(lists) != m.Len() {
		return nil, fmt.Errorf("neighbor lists cover %d books, matrix has %d", len(lists), m.Len())
	}
	for key, list := range lists {
		if !m.Has(key) {
			return nil, fmt.Errorf("neighbor list for unknown book %q", key)
		}
		for _, n := range list {
			if n.Key == key || !m.Has(n.Key) {
				return nil, fmt.Errorf("invalid neighbor %q in list for %q", n.Key, key)
			}
		}
	}
	return &SimilarityIndex{metric: metric, neighbors: lists}, nil
}

// Metric returns the metric the index was built with.
func (s *SimilarityIndex) Metric() Metric {
	return s.metric
}

// Has implements NeighborIndex.
func (s *SimilarityIndex) Has(key string) bool {
	_, ok := s.neighbors[key]
	return ok
}

// Len implements NeighborIndex.
func (s *SimilarityIndex) Len() int {
	return len(s.neighbors)
}

// TopNeighbors implements NeighborIndex.
func (s *SimilarityIndex) TopNeighbors(ctx context.Context, key string, k int) ([]Neighbor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	list, ok := s.neighbors[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInsufficientData, key)
	}
	if k < 0 {
		k = 0
	}
	if k > len(list) {
		k = len(list)
	}
	return slices.Clone(list[:k]), nil
}

// Lists returns every neighbor list, keyed by book. The lists are shared
// and must not be modified.
func (s *SimilarityIndex) Lists() map[string][]Neighbor {
	return s.neighbors
}

type rankInfo struct {
	votes int
	title string
	key   string
}

// rowBuilder computes neighbor lists for one worker. It owns scratch
// buffers, so it must not be shared between goroutines.
type rowBuilder struct {
	m     *Matrix
	ranks []rankInfo
	cfg   SimilarityConfig
	xs    []float64
	ys    []float64
}

// neighbors scores row i against every other row and keeps the best
// MaxNeighbors in a bounded min-heap.
func (b *rowBuilder) neighbors(i int) []Neighbor {
	h := &candidateHeap{ranks: b.ranks}
	limit := b.cfg.MaxNeighbors

	for j := range b.m.rows {
		if j == i {
			continue
		}
		c := candidate{row: j, score: b.score(i, j)}
		if h.Len() < limit {
			heap.Push(h, c)
			continue
		}
		if h.better(c, h.items[0]) {
			h.items[0] = c
			heap.Fix(h, 0)
		}
	}

	out := make([]Neighbor, h.Len())
	for n := len(out) - 1; n >= 0; n-- {
		c := heap.Pop(h).(candidate) //nolint:errcheck,forcetypeassert // heap only holds candidates
		out[n] = Neighbor{Key: b.m.keys[c.row], Score: c.score}
	}
	return out
}

// score computes the configured similarity between rows i and j.
// No co-raters, or fewer than MinCommonUsers, scores 0.
func (b *rowBuilder) score(i, j int) float64 {
	a, c := &b.m.rows[i], &b.m.rows[j]
	b.xs, b.ys = coRated(a, c, b.xs, b.ys)
	n := len(b.xs)
	if n == 0 || n < b.cfg.MinCommonUsers {
		return 0
	}

	var sim float64
	switch b.cfg.Metric {
	case Pearson:
		if n < 2 {
			return 0
		}
		sim = stat.Correlation(b.xs, b.ys, nil)
	default:
		if a.norm == 0 || c.norm == 0 {
			return 0
		}
		sim = floats.Dot(b.xs, b.ys) / (a.norm * c.norm)
	}
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0
	}

	if b.cfg.Shrinkage > 0 {
		sim = sim * float64(n) / (float64(n) + b.cfg.Shrinkage)
	}
	return sim
}

type candidate struct {
	row   int
	score float64
}

// candidateHeap is a min-heap whose root is the worst kept candidate.
type candidateHeap struct {
	items []candidate
	ranks []rankInfo
}

// better reports whether a ranks ahead of b in neighbor order.
func (h *candidateHeap) better(a, b candidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	ra, rb := &h.ranks[a.row], &h.ranks[b.row]
	if ra.votes != rb.votes {
		return ra.votes > rb.votes
	}
	if ra.title != rb.title {
		return ra.title < rb.title
	}
	return ra.key < rb.key
}

func (h *candidateHeap) Len() int           { return len(h.items) }
func (h *candidateHeap) Less(i, j int) bool { return h.better(h.items[j], h.items[i]) }
func (h *candidateHeap) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *candidateHeap) Push(x any) {
	h.items = append(h.items, x.(candidate)) //nolint:forcetypeassert // heap only holds candidates
}

func (h *candidateHeap) Pop() any {
	old := h.items
	n := len(old)
	x := old[n-1]
	h.items = old[:n-1]
	return x
}
