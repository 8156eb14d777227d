// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

/*
Package main is the entry point for the Bookshelf server.

Bookshelf serves a book catalog built from the classic Books/Users/Ratings CSV
dataset: browsing, keyword and type-ahead search, a popular list, and
item-based collaborative filtering recommendations ("readers who liked this
also liked").

# Application Architecture

The server runs under Suture v4 process supervision:

	RootSupervisor ("bookshelf")
	├── DataSupervisor ("data-layer")
	│   ├── Snapshot Service (initial load and reloads)
	│   └── Dataset Watcher (optional, DATASET_WATCH=true)
	└── APISupervisor ("api-layer")
	    └── HTTP Server

The snapshot service loads the dataset, builds the catalog, interaction
matrix, similarity index, and search index, and publishes them together as
one immutable snapshot. HTTP handlers read whichever snapshot is current.
Until the first load finishes, data endpoints answer 503. A failed first load
stops the process with a non-zero exit code; a failed reload keeps serving
the previous snapshot.

# Configuration

Configuration is loaded via Koanf v2 (environment > config file > defaults).
Common variables:

	DATASET_DIR=/data/books          # directory holding Books.csv, Ratings.csv
	DATASET_BASE_URL=https://...     # fetch over HTTP when DATASET_DIR is empty
	DATASET_DELIMITER=;              # for the semicolon-separated dump
	DATASET_ENCODING=latin-1         # that dump is ISO-8859-1
	DATASET_WATCH=true               # reload when files change
	DATASET_RELOAD_INTERVAL=1h       # periodic reload, 0 disables

	RECOMMEND_SIMILARITY=cosine      # cosine or pearson
	RECOMMEND_MIN_USER_RATINGS=50
	RECOMMEND_MIN_BOOK_VOTES=10

	INDEX_STORE_ENABLED=true         # persist neighbor lists in BadgerDB
	INDEX_STORE_PATH=/data/index

	HTTP_PORT=5000
	LOG_LEVEL=info
	LOG_FORMAT=json

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains in-flight
requests for up to HTTP_SHUTDOWN_TIMEOUT, the snapshot service abandons any
build in progress, and the index store is closed.
*/
package main
