// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package recommend

import (
	"cmp"
	"slices"

	"github.com/tomtom215/bookshelf/internal/catalog"
)

// PopularConfig selects the popular list.
type PopularConfig struct {
	// MinVotes is the minimum vote count for a book to be listed.
	MinVotes int

	// Limit caps the list length.
	Limit int
}

// ComputePopular returns the books with at least MinVotes votes, ordered by
// average rating descending, then vote count descending, then store order.
// The list is computed once per snapshot.
func ComputePopular(store *catalog.Store, cfg PopularConfig) []catalog.Book {
	if cfg.Limit <= 0 {
		return []catalog.Book{}
	}

	popular := make([]catalog.Book, 0, cfg.Limit)
	for i := 0; i < store.Len(); i++ {
		if b := store.At(i); b.VoteCount >= cfg.MinVotes && b.VoteCount > 0 {
			popular = append(popular, b)
		}
	}

	// Stable so equal books keep catalog order, which is the title order.
	slices.SortStableFunc(popular, func(a, b catalog.Book) int {
		if c := cmp.Compare(b.AverageRating, a.AverageRating); c != 0 {
			return c
		}
		return cmp.Compare(b.VoteCount, a.VoteCount)
	})

	if len(popular) > cfg.Limit {
		popular = popular[:cfg.Limit]
	}
	return slices.Clip(popular)
}
