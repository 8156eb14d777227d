// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// maxBodyBytes bounds request bodies. Every body this API accepts is a
// handful of short strings.
const maxBodyBytes = 64 << 10

// errBadBody is returned for bodies that are not valid JSON or form data.
var errBadBody = errors.New("malformed request body")

// RecommendRequest is the body of POST /api/recommend_books.
type RecommendRequest struct {
	UserInput string `json:"user_input" validate:"max=300"`

	// K is the number of recommendations; 0 means the service default.
	K int `json:"k" validate:"gte=0"`
}

func (req *RecommendRequest) fromForm(v url.Values) {
	req.UserInput = v.Get("user_input")
	req.K = parseIntParam(v.Get("k"), 0)
}

// SearchBooksRequest is the body of POST /api/search_books.
type SearchBooksRequest struct {
	Keyword string `json:"keyword" validate:"max=200"`
	Letter  string `json:"letter" validate:"letterfilter"`
}

func (req *SearchBooksRequest) fromForm(v url.Values) {
	req.Keyword = v.Get("keyword")
	req.Letter = v.Get("letter")
}

// SuggestionsRequest holds the query of GET /api/search_suggestions.
type SuggestionsRequest struct {
	Query string `query:"q" validate:"max=200"`
	Limit int    `query:"limit" validate:"gte=0"`
}

// LoadMoreRequest holds the query of GET /api/load_more_books.
type LoadMoreRequest struct {
	Offset int    `query:"offset" validate:"gte=0"`
	Limit  int    `query:"limit" validate:"gte=1"`
	Letter string `query:"letter" validate:"letterfilter"`
}

// formDecoder is implemented by bodies that also accept form posts.
type formDecoder interface {
	fromForm(url.Values)
}

// decodeBody fills dst from a JSON or form-encoded body. An empty body
// leaves dst at its zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, dst formDecoder) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return fmt.Errorf("%w: %w", errBadBody, err)
		}
		dst.fromForm(r.Form)
		return nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", errBadBody, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %w", errBadBody, err)
	}
	return nil
}

// getIntParam extracts an integer query parameter with a default value.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	return parseIntParam(r.URL.Query().Get(key), defaultValue)
}

func parseIntParam(value string, defaultValue int) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
