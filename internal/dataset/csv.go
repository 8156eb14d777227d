// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// checkEvery is how many records are read between context checks.
const checkEvery = 4096

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// columns maps a header name to its field index.
type columns map[string]int

// optional returns the index of a column that may be absent.
func (c columns) optional(name string) (int, bool) {
	i, ok := c[name]
	return i, ok
}

// reader wraps csv.Reader with header handling and error context.
type reader struct {
	csv  *csv.Reader
	name string
}

// newReader reads the header of data and checks that every required
// column is present. Column names are matched exactly after trimming.
func newReader(data []byte, delim rune, name string, required ...string) (*reader, columns, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.LazyQuotes = true
	r.ReuseRecord = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: %s is empty", ErrMalformed, name)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s header: %w", ErrMalformed, name, err)
	}

	cols := make(columns, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, col := range required {
		if _, ok := cols[col]; !ok {
			return nil, nil, fmt.Errorf("%w: %s has no %q column", ErrMalformed, name, col)
		}
	}

	// Every record must have as many fields as the header.
	r.FieldsPerRecord = len(header)
	return &reader{csv: r, name: name}, cols, nil
}

// each calls fn for every record after the header. The record slice is
// reused between calls.
func (r *reader) each(ctx context.Context, fn func(rec []string) error) error {
	for n := 0; ; n++ {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		rec, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMalformed, r.name, err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}
