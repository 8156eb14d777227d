// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package catalog

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// ErrNotFound is returned when no book matches a lookup.
var ErrNotFound = errors.New("book not found")

// ErrInvalidBook is returned by New for entries that break catalog invariants.
var ErrInvalidBook = errors.New("invalid catalog entry")

// Store is the read-only catalog.
//
// Books are kept in one fixed order, ascending by (Key, folded author,
// Title). Every listing operation returns books in that order, so pages
// taken at increasing offsets never overlap or skip entries.
type Store struct {
	books []Book

	// foldedAuthor[i] is Normalize(books[i].Author).
	foldedAuthor []string

	// byKey maps a bookKey to indexes into books, most voted first.
	byKey map[string][]int

	// byAuthor maps a folded author to indexes into books, in store order.
	byAuthor map[string][]int
}

// New builds a Store from books. The slice is copied; Key is recomputed
// from Title. Entries with an empty title or a duplicate (title, author)
// pair are rejected.
func New(books []Book) (*Store, error) {
	s := &Store{
		books:    make([]Book, 0, len(books)),
		byKey:    make(map[string][]int, len(books)),
		byAuthor: make(map[string][]int),
	}

	type entry struct {
		book   Book
		author string
	}
	entries := make([]entry, 0, len(books))
	seen := make(map[[2]string]struct{}, len(books))
	for i := range books {
		b := books[i]
		b.Key = Normalize(b.Title)
		if b.Key == "" {
			return nil, fmt.Errorf("%w: entry %d (isbn %q) has an empty title", ErrInvalidBook, i, b.ISBN)
		}
		if b.VoteCount < 0 || b.AverageRating < 0 {
			return nil, fmt.Errorf("%w: %q has negative aggregates", ErrInvalidBook, b.Title)
		}
		author := Normalize(b.Author)
		id := [2]string{b.Key, author}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate entry %q by %q", ErrInvalidBook, b.Title, b.Author)
		}
		seen[id] = struct{}{}
		entries = append(entries, entry{book: b, author: author})
	}

	slices.SortFunc(entries, func(a, b entry) int {
		if c := strings.Compare(a.book.Key, b.book.Key); c != 0 {
			return c
		}
		if c := strings.Compare(a.author, b.author); c != 0 {
			return c
		}
		return strings.Compare(a.book.Title, b.book.Title)
	})

	s.foldedAuthor = make([]string, len(entries))
	for i := range entries {
		s.books = append(s.books, entries[i].book)
		s.foldedAuthor[i] = entries[i].author
		s.byKey[entries[i].book.Key] = append(s.byKey[entries[i].book.Key], i)
		s.byAuthor[entries[i].author] = append(s.byAuthor[entries[i].author], i)
	}
	for _, idx := range s.byKey {
		slices.SortStableFunc(idx, func(a, b int) int {
			// Most votes first; the stable sort keeps author order on ties.
			return cmp.Compare(s.books[b].VoteCount, s.books[a].VoteCount)
		})
	}
	return s, nil
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.books)
}

// All returns every book in store order. The result is a copy.
func (s *Store) All() []Book {
	return slices.Clone(s.books)
}

// At returns the i-th book in store order.
func (s *Store) At(i int) Book {
	return s.books[i]
}

// Get returns the canonical entry for a bookKey: the most voted entry
// sharing that key, ties broken by author.
func (s *Store) Get(key string) (Book, bool) {
	idx, ok := s.byKey[key]
	if !ok {
		return Book{}, false
	}
	return s.books[idx[0]], true
}

// Rank returns the tie-break attributes of a bookKey: the votes summed over
// every entry sharing it, and the key itself as the case-insensitive title.
// Unknown keys rank with zero votes.
func (s *Store) Rank(key string) (int, string) {
	votes := 0
	for _, i := range s.byKey[key] {
		votes += s.books[i].VoteCount
	}
	return votes, key
}

// LookupExact returns the canonical entry whose normalized title equals the
// normalized query.
func (s *Store) LookupExact(title string) (Book, error) {
	b, ok := s.Get(Normalize(title))
	if !ok {
		return Book{}, fmt.Errorf("%w: %q", ErrNotFound, strings.TrimSpace(title))
	}
	return b, nil
}

// LookupAll returns every entry sharing the normalized title, most voted first.
func (s *Store) LookupAll(title string) []Book {
	idx := s.byKey[Normalize(title)]
	out := make([]Book, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.books[i])
	}
	return out
}

// prefixRange returns the half-open index range of books whose key starts
// with prefix. Keys are the primary sort field, so matches are contiguous.
func (s *Store) prefixRange(prefix string) (int, int) {
	lo := sort.Search(len(s.books), func(i int) bool {
		return s.books[i].Key >= prefix
	})
	hi := lo + sort.Search(len(s.books)-lo, func(i int) bool {
		return !strings.HasPrefix(s.books[lo+i].Key, prefix)
	})
	return lo, hi
}

// FindByPrefix returns the books whose title starts with prefix, compared
// case-insensitively. An empty prefix or "all" returns the whole catalog.
func (s *Store) FindByPrefix(prefix string) []Book {
	if IsAllLetters(prefix) {
		return s.All()
	}
	lo, hi := s.prefixRange(Normalize(prefix))
	return slices.Clone(s.books[lo:hi])
}

// KeyPrefix returns the books whose bookKey starts with the normalized
// prefix. Unlike FindByPrefix, "all" is an ordinary prefix here.
func (s *Store) KeyPrefix(prefix string) []Book {
	prefix = Normalize(prefix)
	if prefix == "" {
		return []Book{}
	}
	lo, hi := s.prefixRange(prefix)
	return slices.Clone(s.books[lo:hi])
}

// KeywordSearch returns the books whose title or author contains substring,
// case-insensitively, restricted to titles starting with letter. An empty
// substring matches everything; an empty or "all" letter disables the filter.
func (s *Store) KeywordSearch(substring, letter string) []Book {
	lo, hi := 0, len(s.books)
	if !IsAllLetters(letter) {
		lo, hi = s.prefixRange(Normalize(letter))
	}

	needle := Normalize(substring)
	if needle == "" {
		return slices.Clone(s.books[lo:hi])
	}

	var out []Book
	for i := lo; i < hi; i++ {
		if s.matchesAt(i, needle) {
			out = append(out, s.books[i])
		}
	}
	return out
}

// matchesAt reports whether the i-th book's title or author contains the
// already normalized needle.
func (s *Store) matchesAt(i int, needle string) bool {
	return strings.Contains(s.books[i].Key, needle) || strings.Contains(s.foldedAuthor[i], needle)
}

// Page returns up to limit books starting at offset, in store order, and
// whether more books follow. Out of range offsets yield an empty page.
func (s *Store) Page(offset, limit int) ([]Book, bool) {
	return pageOf(s.books, offset, limit)
}

// ByAuthor returns every book by author (compared case-insensitively), in
// store order.
func (s *Store) ByAuthor(author string) []Book {
	idx := s.byAuthor[Normalize(author)]
	out := make([]Book, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.books[i])
	}
	return out
}

// Keys returns the distinct bookKeys in store order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.byKey))
	for i := range s.books {
		if i > 0 && s.books[i].Key == s.books[i-1].Key {
			continue
		}
		keys = append(keys, s.books[i].Key)
	}
	return keys
}

// FoldedAuthorAt returns the normalized author of the i-th book.
func (s *Store) FoldedAuthorAt(i int) string {
	return s.foldedAuthor[i]
}

// pageOf slices books[offset:offset+limit] with bounds clamping.
func pageOf(books []Book, offset, limit int) ([]Book, bool) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || offset >= len(books) {
		return []Book{}, false
	}
	end := offset + limit
	if end > len(books) {
		end = len(books)
	}
	return slices.Clone(books[offset:end]), end < len(books)
}

// PageOf pages an arbitrary result list the same way Store.Page pages the catalog.
func PageOf(books []Book, offset, limit int) ([]Book, bool) {
	return pageOf(books, offset, limit)
}
