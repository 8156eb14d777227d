// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/bookshelf/internal/catalog"
	"github.com/tomtom215/bookshelf/internal/logging"
	"github.com/tomtom215/bookshelf/internal/search"
	"github.com/tomtom215/bookshelf/internal/validation"
)

// Popular serves GET /api/popular.
func (h *Handler) Popular(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, DataResponse[PopularBook]{Data: toPopularBooks(snap.Popular)})
}

// Books serves GET /api/books: the whole catalog in title order.
func (h *Handler) Books(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, DataResponse[CatalogBook]{Data: toCatalogBooks(snap.Catalog.All())})
}

// SearchBooks serves POST /api/search_books.
func (h *Handler) SearchBooks(w http.ResponseWriter, r *http.Request) {
	var req SearchBooksRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondErrorMessage(w, r, http.StatusBadRequest, CodeInvalidQuery, "Request body must be JSON or form data.", err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, r, verr)
		return
	}

	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.queryContext(r)
	defer cancel()

	books, err := snap.Search.Search(ctx, strings.TrimSpace(req.Keyword), req.Letter)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Debug().
		Str("keyword", req.Keyword).
		Str("letter", req.Letter).
		Int("results", len(books)).
		Msg("Search completed")

	writeJSON(w, r, http.StatusOK, DataResponse[CatalogBook]{Data: toCatalogBooks(books)})
}

// SearchSuggestions serves GET /api/search_suggestions?q=.
// Queries shorter than the minimum length yield an empty list, not an error.
func (h *Handler) SearchSuggestions(w http.ResponseWriter, r *http.Request) {
	req := SuggestionsRequest{
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
		Limit: getIntParam(r, "limit", 0),
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, r, verr)
		return
	}

	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.queryContext(r)
	defer cancel()

	books, err := snap.Search.Suggest(ctx, req.Query, req.Limit)
	if errors.Is(err, search.ErrInvalidQuery) {
		logging.Ctx(r.Context()).Debug().Err(err).Str("q", req.Query).Msg("Suggestion query too short")
		books = []catalog.Book{}
	} else if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, SuggestionsResponse{Books: toSuggestions(books)})
}

// LoadMoreBooks serves GET /api/load_more_books?offset&limit&letter.
func (h *Handler) LoadMoreBooks(w http.ResponseWriter, r *http.Request) {
	req := LoadMoreRequest{
		Offset: getIntParam(r, "offset", 0),
		Limit:  getIntParam(r, "limit", h.cfg.DefaultPageSize),
		Letter: r.URL.Query().Get("letter"),
	}
	if req.Letter == "" {
		req.Letter = catalog.AllLetters
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, r, verr)
		return
	}

	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.queryContext(r)
	defer cancel()

	page, err := snap.Search.SearchPage(ctx, "", req.Letter, req.Offset, req.Limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, LoadMoreResponse{
		Data:       toCatalogBooks(page.Books),
		HasMore:    page.HasMore,
		TotalBooks: page.Total,
	})
}
