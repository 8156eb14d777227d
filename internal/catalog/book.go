// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

// Package catalog holds the immutable in-memory index of every book in a
// dataset snapshot.
//
// Books are identified by their bookKey (the trimmed, whitespace-collapsed,
// casefolded title) together with their author: two editions with the same
// title and author are one entry, the same title by two authors is two.
//
// A Store never changes after New returns, so it is shared across request
// goroutines without locking.
package catalog

import (
	"strings"

	"golang.org/x/text/cases"
)

// AllLetters is the letter filter value meaning "no filter".
const AllLetters = "all"

// Book is one catalog entry.
type Book struct {
	// Key is the normalized title; see Normalize.
	Key string

	Title    string
	Author   string
	CoverURL string

	// ISBN is the first ISBN seen for this entry in the books file.
	ISBN string

	// AverageRating is the mean of every rating row for the entry (0-10).
	AverageRating float64

	// VoteCount is the number of rating rows for the entry.
	VoteCount int
}

// Normalize returns the bookKey form of s: surrounding whitespace trimmed,
// inner runs of whitespace collapsed to one space, and Unicode case folded.
//
//	Normalize("  The  Hobbit ") == "the hobbit"
func Normalize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	// Casers keep state and must not be shared between goroutines.
	return cases.Fold().String(s)
}

// IsAllLetters reports whether letter means "no letter filter".
func IsAllLetters(letter string) bool {
	letter = strings.TrimSpace(letter)
	return letter == "" || strings.EqualFold(letter, AllLetters)
}
