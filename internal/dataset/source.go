// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

// Package dataset loads the books, users, and ratings CSV files that make
// up a dataset snapshot.
//
// Files come from a Source: a local directory or a remote base URL. Load
// reads every file, validates its structure, resolves ratings to catalog
// entries, and returns the catalog books, the explicit interactions, and a
// fingerprint of the raw bytes. Structural problems (missing columns, bad
// field counts, unparsable ratings) fail the load; content problems (empty
// titles, unknown ISBNs) are skipped and counted in Stats.
package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Source opens dataset files by name.
type Source interface {
	// Open returns the named file's content. A missing file yields an error
	// matching fs.ErrNotExist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// String describes the source for logs.
	String() string
}

// Files names the three dataset files within a Source.
type Files struct {
	Books   string
	Users   string
	Ratings string
}

// DefaultFiles returns the classic dataset file names.
func DefaultFiles() Files {
	return Files{Books: "Books.csv", Users: "Users.csv", Ratings: "Ratings.csv"}
}

// FileSource reads dataset files from a local directory.
type FileSource struct {
	dir string
}

// NewFileSource creates a FileSource rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Dir returns the source directory.
func (s *FileSource) Dir() string {
	return s.dir
}

// Open implements Source.
func (s *FileSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name != filepath.Base(name) {
		return nil, fmt.Errorf("dataset file name %q must not contain a path", name)
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("open dataset file: %w", err)
	}
	return f, nil
}

func (s *FileSource) String() string {
	return "dir:" + s.dir
}
