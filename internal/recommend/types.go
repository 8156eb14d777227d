// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

// Package recommend implements item-based collaborative filtering over a
// book x user rating matrix.
//
// The pipeline is built once per dataset snapshot:
//
//	interactions -> BuildMatrix -> BuildSimilarityIndex -> NewService
//
// Every structure is immutable after construction, so a Service is safe for
// concurrent use without locking.
package recommend

import (
	"context"
	"errors"
)

// Errors returned by the recommendation path. Match them with errors.Is.
var (
	// ErrBookNotFound means the query matched nothing in the catalog.
	ErrBookNotFound = errors.New("book not found")

	// ErrInsufficientData means the book is in the catalog but was filtered
	// out of the interaction matrix by the activity thresholds.
	ErrInsufficientData = errors.New("insufficient rating data for book")

	// ErrInvalidQuery means the query was empty or k was negative.
	ErrInvalidQuery = errors.New("invalid recommendation query")
)

// Interaction is one explicit (nonzero) rating of a book by a user.
type Interaction struct {
	UserID  string
	BookKey string
	Rating  float64
}

// Neighbor is a similar book and its similarity score.
type Neighbor struct {
	Key   string
	Score float64
}

// Entry is one recommended book.
type Entry struct {
	Title    string
	Author   string
	CoverURL string

	// Score is the similarity to the query book. Zero for fallback entries.
	Score float64
}

// NeighborIndex answers nearest-neighbor queries over matrix rows.
// SimilarityIndex is the exhaustive implementation; an approximate index
// can be substituted as long as it honors the same ordering.
type NeighborIndex interface {
	// TopNeighbors returns at most k neighbors of key, best first, never
	// including key itself. It returns ErrInsufficientData when key is not
	// a row of the index.
	TopNeighbors(ctx context.Context, key string, k int) ([]Neighbor, error)

	// Has reports whether key is a row of the index.
	Has(key string) bool

	// Len returns the number of rows.
	Len() int
}

// contextCancelled reports whether ctx is done without blocking.
func contextCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
