// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tomtom215/bookshelf/internal/logging"
	"github.com/tomtom215/bookshelf/internal/recommend"
	"github.com/tomtom215/bookshelf/internal/validation"
)

// RecommendBooks serves POST /api/recommend_books.
//
// A book without enough ratings gets a fallback list (same author, else
// popular) with a message when fallbacks are enabled, and a 422 otherwise.
func (h *Handler) RecommendBooks(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondErrorMessage(w, r, http.StatusBadRequest, CodeInvalidQuery, "Request body must be JSON or form data.", err)
		return
	}
	req.UserInput = strings.TrimSpace(req.UserInput)
	if req.UserInput == "" {
		respondErrorMessage(w, r, http.StatusBadRequest, CodeInvalidQuery, "Please enter a book title.", nil)
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

	log := logging.Ctx(r.Context())
	entries, err := snap.Recommender.Recommend(ctx, req.UserInput, req.K)
	switch {
	case err == nil:
		log.Info().
			Str("title", req.UserInput).
			Int("results", len(entries)).
			Uint64("snapshot", snap.Version).
			Msg("Recommendations served")
		writeJSON(w, r, http.StatusOK, RecommendResponse{Data: toTriples(entries)})

	case errors.Is(err, recommend.ErrInsufficientData) && h.cfg.FallbackEnabled:
		fallback, kind, ferr := snap.Recommender.Fallback(ctx, req.UserInput, req.K)
		if ferr != nil {
			respondError(w, r, ferr)
			return
		}
		log.Info().
			Str("title", req.UserInput).
			Str("fallback", string(kind)).
			Int("results", len(fallback)).
			Msg("Fallback recommendations served")
		writeJSON(w, r, http.StatusOK, RecommendResponse{
			Data:    toTriples(fallback),
			Message: fmt.Sprintf("Book \"%s\" is not in our recommendation database, but here are some suggestions:", req.UserInput),
			Code:    CodeInsufficientData,
		})

	case errors.Is(err, recommend.ErrBookNotFound):
		respondErrorMessage(w, r, http.StatusNotFound, CodeBookNotFound,
			fmt.Sprintf("Book \"%s\" not found in our database. Please check the spelling or try a different book.", req.UserInput), err)

	default:
		respondError(w, r, err)
	}
}
