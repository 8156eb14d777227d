// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package dataset

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

func newDatasetServer(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, content)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSource_Load(t *testing.T) {
	t.Parallel()

	srv := newDatasetServer(t, map[string]string{
		"/data/Books.csv":   testBooksCSV,
		"/data/Ratings.csv": testRatingsCSV,
	})
	src, err := NewHTTPSource(srv.URL+"/data/", time.Second)
	if err != nil {
		t.Fatalf("NewHTTPSource() error = %v", err)
	}

	ds, err := Load(context.Background(), src, Options{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ds.Stats.Books != 3 || ds.Stats.Users != 0 {
		t.Errorf("Stats = %+v; users file is optional", ds.Stats)
	}
	if src.State() != gobreaker.StateClosed {
		t.Errorf("breaker state = %v, want closed", src.State())
	}
}

func TestHTTPSource_NotFound(t *testing.T) {
	t.Parallel()

	srv := newDatasetServer(t, nil)
	src, err := NewHTTPSource(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewHTTPSource() error = %v", err)
	}

	for range 5 {
		if _, err := src.Open(context.Background(), "Books.csv"); !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("Open() error = %v, want fs.ErrNotExist", err)
		}
	}
	if src.State() != gobreaker.StateClosed {
		t.Error("missing files should not open the breaker")
	}
}

func TestHTTPSource_BreakerOpens(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	src, err := NewHTTPSource(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewHTTPSource() error = %v", err)
	}

	for range 3 {
		if _, err := src.Open(context.Background(), "Books.csv"); err == nil {
			t.Fatal("Open() should fail on 500")
		}
	}
	if src.State() != gobreaker.StateOpen {
		t.Fatalf("breaker state = %v after 3 failures, want open", src.State())
	}

	_, err = src.Open(context.Background(), "Books.csv")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Open() with open breaker error = %v, want ErrOpenState", err)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("origin hit %d times, want 3", got)
	}
}

func TestNewHTTPSource_InvalidURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"ftp://example.com/data", "://bad"} {
		if _, err := NewHTTPSource(raw, time.Second); err == nil {
			t.Errorf("NewHTTPSource(%q) should fail", raw)
		}
	}
}
