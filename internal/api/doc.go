// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

/*
Package api serves the book discovery HTTP API.

Every handler loads the active snapshot once and answers from it alone, so a
reload published mid-request never mixes two dataset generations in one
response.

# Endpoints

	GET  /api/popular              popular list
	GET  /api/books                full catalog
	POST /api/search_books         keyword and letter search
	GET  /api/search_suggestions   type-ahead suggestions (?q=)
	POST /api/recommend_books      similar books for a title
	GET  /api/load_more_books      paged catalog browsing (?offset&limit&letter)
	POST /api/admin/reload         queue a dataset reload (202)
	GET  /api/v1/health/live       liveness
	GET  /api/v1/health/ready      readiness and snapshot summary
	GET  /metrics                  Prometheus exposition

# Wire Shapes

Catalog endpoints return CatalogBook objects keyed by the dataset's column
names ("Book-Title", "Book-Author", "Image-URL-M"). Recommendations are
positional [title, author, imageURL] triples. The two shapes are distinct
types and are built from domain values only in this package.

# Errors

Failures are mapped once in errors.go to a status and a machine-readable code:

	{"error": "...", "code": "BOOK_NOT_FOUND", "request_id": "...", "data": []}

The "error" field is a plain string because the web client renders it as is.
*/
package api
