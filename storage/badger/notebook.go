// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/nbharvest/core"
	"github.com/poiesic/nbharvest/storage"
)

// NotebookRepository implements storage.NotebookRepository for BadgerDB.
type NotebookRepository struct {
	backend   *Backend
	ownsStore bool
}

var _ storage.NotebookRepository = (*NotebookRepository)(nil)

// NewNotebookRepository creates a repository over an open backend.
// The caller keeps ownership of the backend.
func NewNotebookRepository(backend *Backend) *NotebookRepository {
	return &NotebookRepository{backend: backend}
}

// NewRepository opens (or creates) a BadgerDB store at path.
// Closing the returned repository closes the store.
func NewRepository(path string) (storage.NotebookRepository, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return &NotebookRepository{backend: backend, ownsStore: true}, nil
}

// Close closes the backend when the repository opened it.
func (r *NotebookRepository) Close() error {
	if !r.ownsStore || r.backend.IsClosed() {
		return nil
	}
	return r.backend.Close()
}

// SaveNotebook inserts or replaces the notebook stored under record.URL.
func (r *NotebookRepository) SaveNotebook(ctx context.Context, record *core.NotebookRecord) (*core.NotebookRecord, error) {
	if record == nil || record.URL == "" {
		return nil, fmt.Errorf("%w: notebook url is required", storage.ErrInvalidQuery)
	}

	stored := &core.NotebookRecord{
		Id:        core.IDFromContent(record.URL),
		URL:       record.URL,
		Source:    record.Source,
		Content:   record.Content,
		DateSaved: record.DateSaved,
	}
	if stored.Source == "" {
		stored.Source = core.SourceFromURL(record.URL)
	}
	if stored.DateSaved.IsZero() {
		stored.DateSaved = time.Now().UTC()
	}
	stored.UpdatedAt = time.Now().UTC()

	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		return tx.Set(makeNotebookKey(stored.Id), storage.MarshalNotebook(stored))
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// GetNotebook retrieves a notebook by URL.
func (r *NotebookRepository) GetNotebook(ctx context.Context, url string) (*core.NotebookRecord, error) {
	var result *core.NotebookRecord
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		var err error
		result, err = r.readNotebook(tx, url)
		return err
	})
	return result, err
}

// ListURLs returns the URLs of notebooks matching the filter.
func (r *NotebookRepository) ListURLs(ctx context.Context, filter storage.Filter) ([]string, error) {
	var urls []string
	err := r.ForEachNotebook(ctx, filter, func(record *core.NotebookRecord) error {
		urls = append(urls, record.URL)
		return nil
	})
	return urls, err
}

// ForEachNotebook calls fn for every notebook matching the filter inside one read transaction.
func (r *NotebookRepository) ForEachNotebook(ctx context.Context, filter storage.Filter, fn func(*core.NotebookRecord) error) error {
	return r.backend.View(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(notebookPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var record *core.NotebookRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalNotebook(val)
				return err
			})
			if err != nil {
				return err
			}
			if !filter.Matches(record) {
				continue
			}
			if err := fn(record); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateMetadata replaces all enrichment fields of one notebook in a single transaction.
func (r *NotebookRepository) UpdateMetadata(ctx context.Context, url string, meta core.Metadata) error {
	return r.modify(ctx, url, func(record *core.NotebookRecord) {
		record.Metadata = meta
	})
}

// UpdateVector replaces only the embedding of one notebook.
func (r *NotebookRepository) UpdateVector(ctx context.Context, url string, vector []float32) error {
	return r.modify(ctx, url, func(record *core.NotebookRecord) {
		record.Vector = vector
	})
}

func (r *NotebookRepository) modify(ctx context.Context, url string, change func(*core.NotebookRecord)) error {
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		record, err := r.readNotebook(tx, url)
		if err != nil {
			return err
		}
		change(record)
		record.UpdatedAt = time.Now().UTC()
		return tx.Set(makeNotebookKey(record.Id), storage.MarshalNotebook(record))
	})
}

// FindSimilar scans every embedded notebook and ranks it by cosine similarity.
func (r *NotebookRepository) FindSimilar(ctx context.Context, vector []float32, candidates int) ([]*core.SimilarityMatch, error) {
	if candidates <= 0 {
		return nil, fmt.Errorf("%w: candidates must be positive", storage.ErrInvalidQuery)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", storage.ErrInvalidQuery)
	}

	var results []*core.SimilarityMatch
	err := r.ForEachNotebook(ctx, storage.FilterAll, func(record *core.NotebookRecord) error {
		// Records without embeddings, or embedded with another model, can't be ranked.
		if !record.HasEmbedding() || len(record.Vector) != len(vector) {
			return nil
		}
		results = append(results, &core.SimilarityMatch{
			Record: record,
			Score:  cosineSimilarity(vector, record.Vector),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortStableFunc(results, func(a, b *core.SimilarityMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > candidates {
		results = results[:candidates]
	}
	return results, nil
}

// Stats counts stored, processed and embedded notebooks.
func (r *NotebookRepository) Stats(ctx context.Context) (*storage.Stats, error) {
	stats := &storage.Stats{}
	err := r.ForEachNotebook(ctx, storage.FilterAll, func(record *core.NotebookRecord) error {
		stats.Total++
		if record.MetadataProcessed {
			stats.Processed++
		}
		if record.HasEmbedding() {
			stats.Embedded++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// readNotebook reads a notebook inside a transaction.
// A key whose stored URL differs from url is an ID collision and reads as missing.
func (r *NotebookRepository) readNotebook(tx *badger.Txn, url string) (*core.NotebookRecord, error) {
	item, err := tx.Get(makeNotebookKeyForURL(url))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var record *core.NotebookRecord
	err = item.Value(func(val []byte) error {
		var err error
		record, err = storage.UnmarshalNotebook(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	if record.URL != url {
		return nil, storage.ErrNotFound
	}
	return record, nil
}

// cosineSimilarity computes the cosine of the angle between two equal-length vectors.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
