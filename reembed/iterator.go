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

package reembed

import (
	"context"
	"errors"

	"github.com/poiesic/nbharvest/core"
	"github.com/poiesic/nbharvest/storage"
)

const (
	// DefaultBatchSize is the default number of records to fetch in each batch
	DefaultBatchSize = 100
)

// RecordIterator iterates over stored notebooks in batches.
type RecordIterator struct {
	repo      storage.NotebookRepository
	filter    storage.Filter
	batchSize int
}

// NewRecordIterator creates a new record iterator over notebooks matching filter.
// batchSize: number of records to fetch in each batch (must be > 0)
func NewRecordIterator(repo storage.NotebookRepository, filter storage.Filter, batchSize int) *RecordIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &RecordIterator{
		repo:      repo,
		filter:    filter,
		batchSize: batchSize,
	}
}

// URLs returns the URLs the iterator will visit.
func (it *RecordIterator) URLs(ctx context.Context) ([]string, error) {
	return it.repo.ListURLs(ctx, it.filter)
}

// ForEach loads matching notebooks batch by batch and calls fn for each batch.
// The URL list is taken up front, so fn may write to the repository.
// Notebooks that disappear between listing and loading are skipped.
// Iteration stops on first error from fn or when all records are processed.
// Context cancellation is checked between batches.
func (it *RecordIterator) ForEach(ctx context.Context, fn func([]*core.NotebookRecord) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	urls, err := it.URLs(ctx)
	if err != nil {
		return err
	}

	for i := 0; i < len(urls); i += it.batchSize {
		end := min(i+it.batchSize, len(urls))

		batch := make([]*core.NotebookRecord, 0, end-i)
		for _, url := range urls[i:end] {
			record, err := it.repo.GetNotebook(ctx, url)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			batch = append(batch, record)
		}

		if len(batch) > 0 {
			if err := fn(batch); err != nil {
				return err
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}

	return nil
}
