// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

// Package snapshot builds the complete set of query structures from one
// dataset load and publishes it atomically.
//
// A Snapshot is immutable. Request handlers call Holder.Load once and use
// only the returned value, so a reload that swaps the snapshot mid-request
// never mixes structures from two datasets.
package snapshot

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/tomtom215/bookshelf/internal/catalog"
	"github.com/tomtom215/bookshelf/internal/dataset"
	"github.com/tomtom215/bookshelf/internal/metrics"
	"github.com/tomtom215/bookshelf/internal/recommend"
	"github.com/tomtom215/bookshelf/internal/search"
)

// ErrNotReady is returned by Holder.Load before the first snapshot is published.
var ErrNotReady = errors.New("dataset snapshot not loaded yet")

// Stats summarizes a snapshot for health output and logs.
type Stats struct {
	dataset.Stats

	MatrixBooks   int `json:"matrix_books"`
	MatrixUsers   int `json:"matrix_users"`
	MatrixRatings int `json:"matrix_ratings"`
	PopularBooks  int `json:"popular_books"`

	// SimilarityRestored is true when neighbor lists came from the index store.
	SimilarityRestored bool          `json:"similarity_restored"`
	BuildDuration      time.Duration `json:"build_duration"`
}

// Snapshot is one immutable generation of the service's data.
type Snapshot struct {
	Version     uint64
	Fingerprint string
	LoadedAt    time.Time

	Catalog     *catalog.Store
	Matrix      *recommend.Matrix
	Similarity  *recommend.SimilarityIndex
	Popular     []catalog.Book
	Search      *search.Index
	Recommender *recommend.Service

	Stats Stats
}

// Holder publishes the active snapshot.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// NewHolder creates an empty Holder.
func NewHolder() *Holder {
	return &Holder{}
}

// Load returns the active snapshot, or ErrNotReady.
func (h *Holder) Load() (*Snapshot, error) {
	s := h.current.Load()
	if s == nil {
		return nil, ErrNotReady
	}
	return s, nil
}

// Ready reports whether a snapshot has been published.
func (h *Holder) Ready() bool {
	return h.current.Load() != nil
}

// Store publishes s and returns the snapshot it replaced, if any.
func (h *Holder) Store(s *Snapshot) *Snapshot {
	prev := h.current.Swap(s)

	metrics.SnapshotSize.WithLabelValues("books").Set(float64(s.Stats.Books))
	metrics.SnapshotSize.WithLabelValues("ratings").Set(float64(s.Stats.RatingRows))
	metrics.SnapshotSize.WithLabelValues("matrix_books").Set(float64(s.Stats.MatrixBooks))
	metrics.SnapshotSize.WithLabelValues("matrix_users").Set(float64(s.Stats.MatrixUsers))
	metrics.SnapshotSize.WithLabelValues("popular").Set(float64(s.Stats.PopularBooks))
	return prev
}
