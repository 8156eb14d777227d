// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package catalog

import (
	"errors"
	"testing"
)

func testBooks() []Book {
	return []Book{
		{Title: "The Hobbit", Author: "J.R.R. Tolkien", CoverURL: "http://img/hobbit.jpg", VoteCount: 300, AverageRating: 8.1},
		{Title: "Harry Potter and the Sorcerer's Stone", Author: "J. K. Rowling", VoteCount: 500, AverageRating: 8.9},
		{Title: "Harry Potter and the Chamber of Secrets", Author: "J. K. Rowling", VoteCount: 400, AverageRating: 8.5},
		{Title: "Beloved", Author: "Toni Morrison", VoteCount: 90, AverageRating: 7.2},
		{Title: "beach music", Author: "Pat Conroy", VoteCount: 10, AverageRating: 6.0},
		{Title: "Dune", Author: "Frank Herbert", VoteCount: 250, AverageRating: 8.7},
		{Title: "Dune", Author: "Someone Else", VoteCount: 3, AverageRating: 2.0},
		{Title: "Bossypants", Author: "Tina Fey", VoteCount: 40, AverageRating: 7.0},
	}
}

func mustStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(testBooks())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func titles(books []Book) []string {
	out := make([]string, len(books))
	for i := range books {
		out[i] = books[i].Title
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

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"  The  Hobbit ", "the hobbit"},
		{"DUNE", "dune"},
		{"\tWar\nand Peace", "war and peace"},
		{"Straße", "strasse"},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		books []Book
	}{
		{"empty title", []Book{{Title: "  ", Author: "x"}}},
		{"duplicate pair", []Book{{Title: "Dune", Author: "Frank Herbert"}, {Title: " dune ", Author: "FRANK HERBERT"}}},
		{"negative votes", []Book{{Title: "Dune", VoteCount: -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tt.books); !errors.Is(err, ErrInvalidBook) {
				t.Errorf("New() error = %v, want ErrInvalidBook", err)
			}
		})
	}
}

func TestStoreOrder(t *testing.T) {
	t.Parallel()
	s := mustStore(t)

	want := []string{
		"beach music",
		"Beloved",
		"Bossypants",
		"Dune", // Frank Herbert
		"Dune", // Someone Else
		"Harry Potter and the Chamber of Secrets",
		"Harry Potter and the Sorcerer's Stone",
		"The Hobbit",
	}
	if got := titles(s.All()); !equalStrings(got, want) {
		t.Errorf("All() = %v, want %v", got, want)
	}
	if s.At(3).Author != "Frank Herbert" {
		t.Errorf("At(3).Author = %q, want Frank Herbert", s.At(3).Author)
	}
}

func TestLookupExact(t *testing.T) {
	t.Parallel()
	s := mustStore(t)

	b, err := s.LookupExact("  the HOBBIT ")
	if err != nil {
		t.Fatalf("LookupExact() error = %v", err)
	}
	if b.Title != "The Hobbit" || b.Key != "the hobbit" {
		t.Errorf("LookupExact() = %+v", b)
	}

	// Same title by two authors resolves to the most voted entry.
	b, err = s.LookupExact("dune")
	if err != nil {
		t.Fatalf("LookupExact(dune) error = %v", err)
	}
	if b.Author != "Frank Herbert" {
		t.Errorf("LookupExact(dune).Author = %q, want Frank Herbert", b.Author)
	}
	if got := len(s.LookupAll("DUNE")); got != 2 {
		t.Errorf("LookupAll(DUNE) returned %d entries, want 2", got)
	}

	if _, err := s.LookupExact("Unknown Book"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LookupExact(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestFindByPrefix(t *testing.T) {
	t.Parallel()
	s := mustStore(t)

	tests := []struct {
		prefix string
		want   int
	}{
		{"B", 3},
		{"b", 3},
		{"harry", 2},
		{"Harry Potter and the S", 1},
		{"x", 0},
		{"all", 8},
		{"", 8},
	}
	for _, tt := range tests {
		if got := s.FindByPrefix(tt.prefix); len(got) != tt.want {
			t.Errorf("FindByPrefix(%q) = %v, want %d books", tt.prefix, titles(got), tt.want)
		}
	}
}

func TestKeywordSearch(t *testing.T) {
	t.Parallel()
	s := mustStore(t)

	tests := []struct {
		name    string
		keyword string
		letter  string
		want    []string
	}{
		{"title substring", "potter", "all", []string{
			"Harry Potter and the Chamber of Secrets",
			"Harry Potter and the Sorcerer's Stone",
		}},
		{"author substring", "rowling", "", []string{
			"Harry Potter and the Chamber of Secrets",
			"Harry Potter and the Sorcerer's Stone",
		}},
		{"letter only", "", "B", []string{"beach music", "Beloved", "Bossypants"}},
		{"keyword and letter", "o", "b", []string{"beach music", "Beloved", "Bossypants"}},
		{"keyword and letter narrow", "morrison", "B", []string{"Beloved"}},
		{"no match", "xyzxyz", "all", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := titles(s.KeywordSearch(tt.keyword, tt.letter))
			if !equalStrings(got, tt.want) {
				t.Errorf("KeywordSearch(%q, %q) = %v, want %v", tt.keyword, tt.letter, got, tt.want)
			}
		})
	}
}

func TestKeywordSearchEmptyMatchesEverything(t *testing.T) {
	t.Parallel()
	s := mustStore(t)

	if got := len(s.KeywordSearch("", "")); got != s.Len() {
		t.Errorf("KeywordSearch(\"\", \"\") returned %d books, want %d", got, s.Len())
	}
}

func TestPage(t *testing.T) {
	t.Parallel()
	s := mustStore(t)

	var all []Book
	offset := 0
	for {
		page, hasMore := s.Page(offset, 3)
		all = append(all, page...)
		offset += len(page)
		if !hasMore {
			break
		}
	}
	if !equalStrings(titles(all), titles(s.All())) {
		t.Errorf("concatenated pages = %v, want %v", titles(all), titles(s.All()))
	}

	page, hasMore := s.Page(100, 3)
	if len(page) != 0 || hasMore {
		t.Errorf("Page(100, 3) = %v, %v; want empty, false", page, hasMore)
	}
	page, hasMore = s.Page(6, 2)
	if len(page) != 2 || hasMore {
		t.Errorf("Page(6, 2) returned %d books, hasMore %v; want 2, false", len(page), hasMore)
	}
}

func TestByAuthor(t *testing.T) {
	t.Parallel()
	s := mustStore(t)

	if got := s.ByAuthor("j. k. ROWLING"); len(got) != 2 {
		t.Errorf("ByAuthor() = %v, want 2 books", titles(got))
	}
	if got := s.ByAuthor("nobody"); len(got) != 0 {
		t.Errorf("ByAuthor(nobody) = %v, want none", titles(got))
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()
	s := mustStore(t)

	keys := s.Keys()
	if len(keys) != 7 {
		t.Fatalf("Keys() = %v, want 7 distinct keys", keys)
	}
	if keys[0] != "beach music" || keys[3] != "dune" {
		t.Errorf("Keys() = %v", keys)
	}
}
