// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package dataset

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/bookshelf/internal/catalog"
	"github.com/tomtom215/bookshelf/internal/metrics"
	"github.com/tomtom215/bookshelf/internal/recommend"
)

// Ratings are on the 0-10 scale, 0 meaning an implicit interaction.
const (
	minRating = 0
	maxRating = 10
)

// Column names of the classic dataset layout.
const (
	colISBN   = "ISBN"
	colTitle  = "Book-Title"
	colAuthor = "Book-Author"
	colCover  = "Image-URL-M"
	colUserID = "User-ID"
	colRating = "Book-Rating"
)

var (
	// ErrMalformed wraps structural problems in a dataset file.
	ErrMalformed = errors.New("malformed dataset")

	// ErrEmpty is returned when the books file yields no catalog entries.
	ErrEmpty = errors.New("dataset has no books")
)

// Options controls parsing.
type Options struct {
	Files Files

	// Delimiter is the field separator. Zero means ','.
	Delimiter rune

	// Encoding of the files. Empty means UTF-8.
	Encoding Encoding
}

// Stats counts what a load read and skipped.
type Stats struct {
	BookRows     int `json:"book_rows"`
	Books        int `json:"books"`
	Users        int `json:"users"`
	RatingRows   int `json:"rating_rows"`
	Interactions int `json:"interactions"`

	SkippedEmptyTitle    int `json:"skipped_empty_title"`
	SkippedDuplicateISBN int `json:"skipped_duplicate_isbn"`
	SkippedUnknownISBN   int `json:"skipped_unknown_isbn"`
	SkippedInvalidUTF8   int `json:"skipped_invalid_utf8"`
}

// Dataset is one parsed snapshot of the dataset files.
type Dataset struct {
	// Books are the merged catalog entries with their rating aggregates.
	Books []catalog.Book

	// Interactions are the explicit (nonzero) ratings resolved to bookKeys.
	Interactions []recommend.Interaction

	// Fingerprint is a hash of the raw file contents.
	Fingerprint string

	Stats    Stats
	Source   string
	LoadedAt time.Time
}

// rawFiles holds downloaded file contents. Users is nil when absent.
type rawFiles struct {
	books   []byte
	users   []byte
	ratings []byte
}

// Load reads and parses the dataset from src.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Load(ctx context.Context, src Source, opts Options, logger zerolog.Logger) (*Dataset, error) {
	if opts.Files == (Files{}) {
		opts.Files = DefaultFiles()
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	enc, err := ParseEncoding(string(opts.Encoding))
	if err != nil {
		return nil, err
	}
	opts.Encoding = enc
	logger = logger.With().Str("component", "dataset").Str("source", src.String()).Logger()

	start := time.Now()
	raw, err := fetchAll(ctx, src, opts.Files, opts.Encoding)
	if err != nil {
		return nil, err
	}
	metrics.ObserveStage("fetch", start)

	start = time.Now()
	ds := &Dataset{
		Fingerprint: fingerprint(raw),
		Source:      src.String(),
		LoadedAt:    time.Now().UTC(),
	}

	var (
		entries *entrySet
		users   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = parseBooks(gctx, raw.books, opts, &ds.Stats)
		return err
	})
	g.Go(func() error {
		if raw.users == nil {
			return nil
		}
		var err error
		users, err = parseUsers(gctx, raw.users, opts)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	ds.Stats.Users = users

	if len(entries.books) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, opts.Files.Books)
	}

	ds.Interactions, err = parseRatings(ctx, raw.ratings, opts, entries, &ds.Stats)
	if err != nil {
		return nil, err
	}

	ds.Books = entries.catalogBooks()
	ds.Stats.Books = len(ds.Books)
	ds.Stats.Interactions = len(ds.Interactions)
	metrics.ObserveStage("parse", start)

	recordSkipped(&ds.Stats)
	logger.Info().
		Int("books", ds.Stats.Books).
		Int("book_rows", ds.Stats.BookRows).
		Int("users", ds.Stats.Users).
		Int("ratings", ds.Stats.RatingRows).
		Int("interactions", ds.Stats.Interactions).
		Int("skipped_empty_title", ds.Stats.SkippedEmptyTitle).
		Int("skipped_unknown_isbn", ds.Stats.SkippedUnknownISBN).
		Int("skipped_invalid_utf8", ds.Stats.SkippedInvalidUTF8).
		Str("encoding", string(opts.Encoding)).
		Str("fingerprint", ds.Fingerprint).
		Msg("Dataset loaded")
	if ds.Stats.SkippedInvalidUTF8 > 0 && opts.Encoding == EncodingUTF8 {
		logger.Warn().
			Int("rows", ds.Stats.SkippedInvalidUTF8).
			Msg("Rows with invalid UTF-8 skipped; set DATASET_ENCODING=latin-1 for the classic dataset dump")
	}

	return ds, nil
}

// fetchAll downloads the three files concurrently and transcodes them to
// UTF-8. The users file is optional.
func fetchAll(ctx context.Context, src Source, files Files, enc Encoding) (*rawFiles, error) {
	raw := &rawFiles{}
	g, gctx := errgroup.WithContext(ctx)

	read := func(name string, dst *[]byte, optional bool) func() error {
		return func() error {
			rc, err := src.Open(gctx, name)
			if optional && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("open %s: %w", name, err)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				return fmt.Errorf("read %s: %w", name, err)
			}
			if data, err = enc.toUTF8(data); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = data
			return nil
		}
	}

	g.Go(read(files.Books, &raw.books, false))
	g.Go(read(files.Ratings, &raw.ratings, false))
	if files.Users != "" {
		g.Go(read(files.Users, &raw.users, true))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return raw, nil
}

// fingerprint hashes the decoded files in a fixed order, so the same bytes
// read under another encoding get another fingerprint.
func fingerprint(raw *rawFiles) string {
	d := xxhash.New()
	for _, part := range [][]byte{raw.books, raw.users, raw.ratings} {
		var size [8]byte
		binary.LittleEndian.PutUint64(size[:], uint64(len(part)))
		_, _ = d.Write(size[:])
		_, _ = d.Write(part)
	}
	var sum [8]byte
	return hex.EncodeToString(d.Sum(sum[:0]))
}

// entry is one merged catalog entry while loading.
type entry struct {
	book      catalog.Book
	key       string
	ratingSum float64
}

// entrySet indexes entries by identity and by ISBN.
type entrySet struct {
	books  []*entry
	byID   map[[2]string]*entry
	byISBN map[string]*entry
}

func (s *entrySet) catalogBooks() []catalog.Book {
	out := make([]catalog.Book, len(s.books))
	for i, e := range s.books {
		b := e.book
		if b.VoteCount > 0 {
			b.AverageRating = e.ratingSum / float64(b.VoteCount)
		}
		out[i] = b
	}
	return out
}

func parseBooks(ctx context.Context, data []byte, opts Options, stats *Stats) (*entrySet, error) {
	name := opts.Files.Books
	r, cols, err := newReader(data, opts.Delimiter, name, colISBN, colTitle, colAuthor)
	if err != nil {
		return nil, err
	}
	cover, hasCover := cols.optional(colCover)

	set := &entrySet{
		byID:   make(map[[2]string]*entry),
		byISBN: make(map[string]*entry),
	}
	err = r.each(ctx, func(rec []string) error {
		stats.BookRows++
		if !validUTF8(rec) {
			stats.SkippedInvalidUTF8++
			return nil
		}
		isbn := strings.TrimSpace(rec[cols[colISBN]])
		title := strings.TrimSpace(rec[cols[colTitle]])
		author := strings.TrimSpace(rec[cols[colAuthor]])

		key := catalog.Normalize(title)
		if key == "" {
			stats.SkippedEmptyTitle++
			return nil
		}
		if _, dup := set.byISBN[isbn]; dup && isbn != "" {
			stats.SkippedDuplicateISBN++
			return nil
		}

		id := [2]string{key, catalog.Normalize(author)}
		e, ok := set.byID[id]
		if !ok {
			e = &entry{book: catalog.Book{Title: title, Author: author, ISBN: isbn}, key: key}
			set.byID[id] = e
			set.books = append(set.books, e)
		}
		if hasCover && e.book.CoverURL == "" {
			e.book.CoverURL = strings.TrimSpace(rec[cover])
		}
		if isbn != "" {
			set.byISBN[isbn] = e
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

func parseUsers(ctx context.Context, data []byte, opts Options) (int, error) {
	r, cols, err := newReader(data, opts.Delimiter, opts.Files.Users, colUserID)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{})
	err = r.each(ctx, func(rec []string) error {
		if id := strings.TrimSpace(rec[cols[colUserID]]); id != "" && utf8.ValidString(id) {
			seen[id] = struct{}{}
		}
		return nil
	})
	return len(seen), err
}

func parseRatings(ctx context.Context, data []byte, opts Options, set *entrySet, stats *Stats) ([]recommend.Interaction, error) {
	name := opts.Files.Ratings
	r, cols, err := newReader(data, opts.Delimiter, name, colUserID, colISBN, colRating)
	if err != nil {
		return nil, err
	}

	var interactions []recommend.Interaction
	err = r.each(ctx, func(rec []string) error {
		stats.RatingRows++
		if !validUTF8(rec) {
			stats.SkippedInvalidUTF8++
			return nil
		}
		rating, err := parseRating(rec[cols[colRating]])
		if err != nil {
			line, _ := r.csv.FieldPos(cols[colRating])
			return fmt.Errorf("%w: %s line %d: %w", ErrMalformed, name, line, err)
		}

		e, ok := set.byISBN[strings.TrimSpace(rec[cols[colISBN]])]
		if !ok {
			stats.SkippedUnknownISBN++
			return nil
		}

		// Aggregates count every rating row, implicit ones included.
		e.book.VoteCount++
		e.ratingSum += rating

		if rating != 0 {
			interactions = append(interactions, recommend.Interaction{
				UserID:  strings.TrimSpace(rec[cols[colUserID]]),
				BookKey: e.key,
				Rating:  rating,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return interactions, nil
}

func parseRating(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("rating %q is not a number", s)
	}
	if v < minRating || v > maxRating {
		return 0, fmt.Errorf("rating %v is outside [%d, %d]", v, minRating, maxRating)
	}
	return v, nil
}

func recordSkipped(stats *Stats) {
	metrics.DatasetRowsSkipped.WithLabelValues("empty_title").Add(float64(stats.SkippedEmptyTitle))
	metrics.DatasetRowsSkipped.WithLabelValues("duplicate_isbn").Add(float64(stats.SkippedDuplicateISBN))
	metrics.DatasetRowsSkipped.WithLabelValues("unknown_isbn").Add(float64(stats.SkippedUnknownISBN))
	metrics.DatasetRowsSkipped.WithLabelValues("invalid_utf8").Add(float64(stats.SkippedInvalidUTF8))
}
