// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package recommend

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Thresholds are the activity filters applied before matrix construction.
type Thresholds struct {
	// MinUserRatings is the minimum number of ratings a user needs to be kept.
	MinUserRatings int

	// MinBookVotes is the minimum number of ratings from kept users a book
	// needs to be kept.
	MinBookVotes int
}

// row is one book's sparse rating vector. users is sorted ascending so two
// rows can be intersected with a linear merge.
type row struct {
	users   []int32
	ratings []float64
	norm    float64
}

// Matrix is the sparse book x user rating table after activity filtering.
// Rows are addressed by bookKey and stored in ascending key order.
type Matrix struct {
	keys  []string
	index map[string]int
	rows  []row
	users int
}

// BuildMatrix applies the mutual activity filter and builds the sparse rows:
//
//  1. keep users with at least MinUserRatings ratings
//  2. among kept users, keep books with at least MinBookVotes ratings
//  3. keep only interactions between kept users and kept books
//
// When one user rated the same book more than once the highest rating wins.
// Zero ratings are ignored. If fewer than two books survive the result is a
// valid empty matrix.
func BuildMatrix(ctx context.Context, interactions []Interaction, th Thresholds) (*Matrix, error) {
	if th.MinUserRatings < 1 || th.MinBookVotes < 1 {
		return nil, fmt.Errorf("thresholds must be positive, got users=%d books=%d", th.MinUserRatings, th.MinBookVotes)
	}

	type cell struct {
		user string
		book string
	}

	// Collapse duplicates first so repeated rows do not inflate counts.
	best := make(map[cell]float64, len(interactions))
	for i := range interactions {
		in := &interactions[i]
		if in.Rating == 0 || in.BookKey == "" {
			continue
		}
		c := cell{user: in.UserID, book: in.BookKey}
		if r, ok := best[c]; !ok || in.Rating > r {
			best[c] = in.Rating
		}
	}

	if contextCancelled(ctx) {
		return nil, ctx.Err()
	}

	userCounts := make(map[string]int)
	for c := range best {
		userCounts[c.user]++
	}

	bookCounts := make(map[string]int)
	for c := range best {
		if userCounts[c.user] >= th.MinUserRatings {
			bookCounts[c.book]++
		}
	}

	keys := make([]string, 0, len(bookCounts))
	for key, n := range bookCounts {
		if n >= th.MinBookVotes {
			keys = append(keys, key)
		}
	}
	if len(keys) < 2 {
		return emptyMatrix(), nil
	}
	sort.Strings(keys)

	m := &Matrix{
		keys:  keys,
		index: make(map[string]int, len(keys)),
		rows:  make([]row, len(keys)),
	}
	for i, key := range keys {
		m.index[key] = i
	}

	// Intern kept users in sorted order so user indexes are reproducible.
	var userIDs []string
	for u, n := range userCounts {
		if n >= th.MinUserRatings {
			userIDs = append(userIDs, u)
		}
	}
	sort.Strings(userIDs)
	userIndex := make(map[string]int32, len(userIDs))
	for i, u := range userIDs {
		userIndex[u] = int32(i) //nolint:gosec // user count is bounded by the dataset size
	}

	if contextCancelled(ctx) {
		return nil, ctx.Err()
	}

	seenUsers := make(map[int32]struct{})
	for c, rating := range best {
		ri, ok := m.index[c.book]
		if !ok {
			continue
		}
		ui, ok := userIndex[c.user]
		if !ok {
			continue
		}
		r := &m.rows[ri]
		r.users = append(r.users, ui)
		r.ratings = append(r.ratings, rating)
		seenUsers[ui] = struct{}{}
	}
	m.users = len(seenUsers)

	for i := range m.rows {
		sortRow(&m.rows[i])
		m.rows[i].norm = floats.Norm(m.rows[i].ratings, 2)
	}
	return m, nil
}

func emptyMatrix() *Matrix {
	return &Matrix{index: map[string]int{}}
}

// sortRow orders a row by user index, keeping ratings aligned.
func sortRow(r *row) {
	perm := make([]int, len(r.users))
	for i := range perm {
		perm[i] = i
	}
	slices.SortFunc(perm, func(a, b int) int {
		return int(r.users[a]) - int(r.users[b])
	})
	users := make([]int32, len(perm))
	ratings := make([]float64, len(perm))
	for i, p := range perm {
		users[i] = r.users[p]
		ratings[i] = r.ratings[p]
	}
	r.users, r.ratings = users, ratings
}

// Len returns the number of books (rows).
func (m *Matrix) Len() int {
	return len(m.rows)
}

// Users returns the number of distinct users (columns) with at least one rating.
func (m *Matrix) Users() int {
	return m.users
}

// Ratings returns the number of stored ratings.
func (m *Matrix) Ratings() int {
	n := 0
	for i := range m.rows {
		n += len(m.rows[i].users)
	}
	return n
}

// Keys returns the row keys in ascending order.
func (m *Matrix) Keys() []string {
	return slices.Clone(m.keys)
}

// Has reports whether key is a row of the matrix.
func (m *Matrix) Has(key string) bool {
	_, ok := m.index[key]
	return ok
}

// RowSize returns how many users rated key, or 0 when key is not a row.
func (m *Matrix) RowSize(key string) int {
	i, ok := m.index[key]
	if !ok {
		return 0
	}
	return len(m.rows[i].users)
}

// coRated gathers the ratings both rows share into xs and ys, reusing
// their backing arrays. Rows are merged in user order.
func coRated(a, b *row, xs, ys []float64) ([]float64, []float64) {
	xs, ys = xs[:0], ys[:0]
	i, j := 0, 0
	for i < len(a.users) && j < len(b.users) {
		switch {
		case a.users[i] < b.users[j]:
			i++
		case a.users[i] > b.users[j]:
			j++
		default:
			xs = append(xs, a.ratings[i])
			ys = append(ys, b.ratings[j])
			i++
			j++
		}
	}
	return xs, ys
}
