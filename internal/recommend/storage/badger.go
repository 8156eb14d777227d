// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

// Package storage persists computed similarity indexes in BadgerDB so a
// restart over an unchanged dataset skips the pairwise build.
//
// An index is stored under an ID made of the dataset fingerprint and the
// similarity parameters that produced it. Any change to either yields a new
// ID and therefore a miss. Only the most recently saved index is kept.
//
// # Key Layout
//
//	simindex:meta:{id}             -> Metadata (JSON)
//	simindex:row:{id}:{bookKey}    -> []neighbor (JSON)
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/bookshelf/internal/metrics"
	"github.com/tomtom215/bookshelf/internal/recommend"
)

const (
	keyPrefix     = "simindex:"
	metaKeyPrefix = keyPrefix + "meta:"
	rowKeyPrefix  = keyPrefix + "row:"
)

var (
	// ErrNotFound is returned by Load when no index is stored for the ID.
	ErrNotFound = errors.New("similarity index not stored")

	// ErrCorrupt is returned by Load when a stored index is incomplete.
	ErrCorrupt = errors.New("stored similarity index is corrupt")
)

// Metadata describes a stored index.
type Metadata struct {
	DatasetFingerprint string    `json:"dataset_fingerprint"`
	Params             string    `json:"params"`
	Metric             string    `json:"metric"`
	Books              int       `json:"books"`
	SavedAt            time.Time `json:"saved_at"`
	BuildDurationMS    int64     `json:"build_duration_ms"`
}

// ID returns the storage identity of the index.
func (m *Metadata) ID() string {
	return IndexID(m.DatasetFingerprint, m.Params)
}

// IndexID combines a dataset fingerprint and a parameter fingerprint.
func IndexID(datasetFingerprint, params string) string {
	return datasetFingerprint + "/" + params
}

// neighbor is the stored form of recommend.Neighbor.
type neighbor struct {
	Key   string  `json:"k"`
	Score float64 `json:"s"`
}

// Store is a BadgerDB-backed similarity index store.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store in dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Suppress BadgerDB internal logs
	opts.ValueLogFileSize = 64 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for similarity index: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store that lives only as long as the process.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger db: %w", err)
	}
	return &Store{db: db}, nil
}

// NewFromDB wraps an existing BadgerDB connection.
func NewFromDB(db *badger.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores lists under meta.ID() and removes every other stored index.
func (s *Store) Save(ctx context.Context, meta Metadata, lists map[string][]recommend.Neighbor) (err error) {
	defer func() { recordOp("save", err) }()

	meta.Books = len(lists)
	if meta.SavedAt.IsZero() {
		meta.SavedAt = time.Now().UTC()
	}
	id := meta.ID()

	if err := s.pruneExcept(id); err != nil {
		return fmt.Errorf("prune old indexes: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for key, list := range lists {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows := make([]neighbor, len(list))
		for i, n := range list {
			rows[i] = neighbor{Key: n.Key, Score: n.Score}
		}
		data, err := json.Marshal(rows)
		if err != nil {
			return fmt.Errorf("marshal neighbors of %q: %w", key, err)
		}
		if err := wb.Set(rowKey(id, key), data); err != nil {
			return fmt.Errorf("set neighbors of %q: %w", key, err)
		}
	}

	// Metadata goes last so a partial write is never mistaken for a full one.
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := wb.Set([]byte(metaKeyPrefix+id), data); err != nil {
		return fmt.Errorf("set metadata: %w", err)
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush similarity index: %w", err)
	}
	return nil
}

// Load returns the lists stored for the dataset fingerprint and parameter
// fingerprint, or ErrNotFound.
func (s *Store) Load(ctx context.Context, datasetFingerprint, params string) (meta Metadata, lists map[string][]recommend.Neighbor, err error) {
	defer func() {
		switch {
		case errors.Is(err, ErrNotFound):
			metrics.SimilarityIndexStoreOps.WithLabelValues("load", "miss").Inc()
		case err != nil:
			metrics.SimilarityIndexStoreOps.WithLabelValues("load", "error").Inc()
		default:
			metrics.SimilarityIndexStoreOps.WithLabelValues("load", "hit").Inc()
		}
	}()

	id := IndexID(datasetFingerprint, params)
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get metadata: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		}); err != nil {
			return fmt.Errorf("decode metadata: %w", err)
		}

		lists = make(map[string][]recommend.Neighbor, meta.Books)
		prefix := []byte(rowKeyPrefix + id + ":")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			bookKey := string(bytes.TrimPrefix(item.Key(), prefix))

			var rows []neighbor
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rows)
			}); err != nil {
				return fmt.Errorf("%w: decode neighbors of %q: %w", ErrCorrupt, bookKey, err)
			}
			list := make([]recommend.Neighbor, len(rows))
			for i, r := range rows {
				list[i] = recommend.Neighbor{Key: r.Key, Score: r.Score}
			}
			lists[bookKey] = list
		}
		return nil
	})
	if err != nil {
		return Metadata{}, nil, err
	}

	if len(lists) != meta.Books {
		return Metadata{}, nil, fmt.Errorf("%w: %d rows stored, metadata says %d", ErrCorrupt, len(lists), meta.Books)
	}
	return meta, lists, nil
}

// Delete removes every stored index.
func (s *Store) Delete() error {
	return s.pruneExcept("")
}

// pruneExcept deletes every stored key that does not belong to keepID.
func (s *Store) pruneExcept(keepID string) error {
	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if keepID != "" && belongsTo(key, keepID) {
				continue
			}
			stale = append(stale, key)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func belongsTo(key []byte, id string) bool {
	return bytes.Equal(key, []byte(metaKeyPrefix+id)) ||
		bytes.HasPrefix(key, []byte(rowKeyPrefix+id+":"))
}

func rowKey(id, bookKey string) []byte {
	return []byte(rowKeyPrefix + id + ":" + bookKey)
}

func recordOp(op string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.SimilarityIndexStoreOps.WithLabelValues(op, result).Inc()
}
