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
	"fmt"
	"io"
	"time"

	"github.com/poiesic/nbharvest/ai"
	"github.com/poiesic/nbharvest/core"
	"github.com/poiesic/nbharvest/enrichment"
	"github.com/poiesic/nbharvest/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of notebooks to embed in each request
	BatchSize int

	// ReportInterval is how often to report progress (number of notebooks)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Filter selects the notebooks to reembed. Default is storage.FilterProcessed,
	// since unprocessed notebooks get their embedding during enrichment.
	Filter storage.Filter
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      20,
		ReportInterval: 20,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		Filter:         storage.FilterProcessed,
	}
}

// Result summarizes a reembedding run.
type Result struct {
	Total   int
	Updated int
	Skipped int
	Elapsed time.Duration
}

// Reembedder orchestrates the reembedding of stored notebooks.
type Reembedder struct {
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *RecordIterator
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.NotebookRepository, embedder ai.Embedder, config *Config, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(repo, embedder, config.MaxRetries, config.RetryDelay),
		iterator:  NewRecordIterator(repo, config.Filter, config.BatchSize),
	}
}

// Run executes the reembedding operation.
// Progress is reported to the configured writer.
func (r *Reembedder) Run(ctx context.Context) (*Result, error) {
	urls, err := r.iterator.URLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list notebooks: %w", err)
	}

	result := &Result{Total: len(urls)}
	if result.Total == 0 {
		fmt.Fprintf(r.progress, "No notebooks to reembed (0 notebooks)\n")
		return result, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d notebooks (batch size: %d)\n",
		result.Total, r.iterator.batchSize)

	tracker := enrichment.NewProgress(r.progress, "reembed", result.Total, r.config.ReportInterval)

	err = r.iterator.ForEach(ctx, func(records []*core.NotebookRecord) error {
		batch, err := r.processor.Process(ctx, records)
		result.Updated += batch.Updated
		result.Skipped += batch.Skipped
		if err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		tracker.Add(len(records))
		return nil
	})
	result.Elapsed = tracker.Elapsed()
	if err != nil {
		return result, err
	}

	tracker.Finish()
	fmt.Fprintf(r.progress, "Reembedding complete. Updated %d of %d notebooks in %v (%.1f notebooks/sec)\n",
		result.Updated, result.Total, result.Elapsed.Round(time.Second), float64(result.Total)/result.Elapsed.Seconds())

	return result, nil
}
