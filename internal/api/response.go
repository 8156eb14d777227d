// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/bookshelf/internal/catalog"
	"github.com/tomtom215/bookshelf/internal/logging"
	"github.com/tomtom215/bookshelf/internal/recommend"
	"github.com/tomtom215/bookshelf/internal/validation"
)

// CatalogBook is a catalog entry as the web client expects it, keyed by the
// dataset's column names.
type CatalogBook struct {
	Title    string `json:"Book-Title"`
	Author   string `json:"Book-Author"`
	ImageURL string `json:"Image-URL-M"`
}

// RecommendationTriple is one recommendation: [title, author, imageURL].
type RecommendationTriple [3]string

// PopularBook is one entry of the popular list.
type PopularBook struct {
	BookName string  `json:"book_name"`
	Author   string  `json:"author"`
	Image    string  `json:"image"`
	Votes    int     `json:"votes"`
	Rating   float64 `json:"rating"`
}

// SuggestionBook is one type-ahead suggestion.
type SuggestionBook struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Image  string `json:"image"`
}

// DataResponse wraps list payloads.
type DataResponse[T any] struct {
	Data []T `json:"data"`
}

// LoadMoreResponse is a page of the browsable catalog.
type LoadMoreResponse struct {
	Data       []CatalogBook `json:"data"`
	HasMore    bool          `json:"has_more"`
	TotalBooks int           `json:"total_books"`
}

// SuggestionsResponse wraps type-ahead suggestions.
type SuggestionsResponse struct {
	Books []SuggestionBook `json:"books"`
}

// RecommendResponse carries recommendations. Message and Code are set only
// when the entries are a fallback.
type RecommendResponse struct {
	Data    []RecommendationTriple `json:"data"`
	Message string                 `json:"message,omitempty"`
	Code    string                 `json:"code,omitempty"`
}

// ReloadResponse acknowledges a reload request.
type ReloadResponse struct {
	Status string `json:"status"`
	Queued bool   `json:"queued"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string                  `json:"error"`
	Code      string                  `json:"code"`
	RequestID string                  `json:"request_id,omitempty"`
	Data      []struct{}              `json:"data"`
	Fields    []validation.FieldError `json:"fields,omitempty"`
}

func toCatalogBooks(books []catalog.Book) []CatalogBook {
	out := make([]CatalogBook, len(books))
	for i, b := range books {
		out[i] = CatalogBook{Title: b.Title, Author: b.Author, ImageURL: b.CoverURL}
	}
	return out
}

func toTriples(entries []recommend.Entry) []RecommendationTriple {
	out := make([]RecommendationTriple, len(entries))
	for i, e := range entries {
		out[i] = RecommendationTriple{e.Title, e.Author, e.CoverURL}
	}
	return out
}

func toPopularBooks(books []catalog.Book) []PopularBook {
	out := make([]PopularBook, len(books))
	for i, b := range books {
		out[i] = PopularBook{
			BookName: b.Title,
			Author:   b.Author,
			Image:    b.CoverURL,
			Votes:    b.VoteCount,
			Rating:   b.AverageRating,
		}
	}
	return out
}

func toSuggestions(books []catalog.Book) []SuggestionBook {
	out := make([]SuggestionBook, len(books))
	for i, b := range books {
		out[i] = SuggestionBook{Title: b.Title, Author: b.Author, Image: b.CoverURL}
	}
	return out
}

// writeJSON writes a JSON response with proper headers.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write JSON response")
	}
}

// writeError writes the standard error body.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeErrorWithFields(w, r, status, code, message, nil)
}

func writeErrorWithFields(w http.ResponseWriter, r *http.Request, status int, code, message string, fields []validation.FieldError) {
	writeJSON(w, r, status, ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: logging.RequestIDFromContext(r.Context()),
		Data:      []struct{}{},
		Fields:    fields,
	})
}
