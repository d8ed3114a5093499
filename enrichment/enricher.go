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

package enrichment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/nbharvest/ai"
	"github.com/poiesic/nbharvest/core"
	"github.com/poiesic/nbharvest/notebook"
	"github.com/poiesic/nbharvest/storage"
)

// Enricher derives metadata for stored notebooks and writes it back.
type Enricher struct {
	repo       storage.NotebookRepository
	classifier *Classifier
	embedder   ai.Embedder
	pool       *ants.Pool
	progress   io.Writer
	logger     *slog.Logger
}

// Option configures an Enricher.
type Option func(*Enricher) error

// WithWorkers sets how many notebooks are enriched at once. Default is 1.
func WithWorkers(size int) Option {
	return func(e *Enricher) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if e.pool != nil {
			e.pool.Release()
		}
		e.pool = pool
		return nil
	}
}

// WithProgress sets where progress lines are written. Default is no output.
func WithProgress(w io.Writer) Option {
	return func(e *Enricher) error {
		e.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enricher) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "enricher")
		return nil
	}
}

// NewEnricher creates an enricher that uses provider for classification and embeddings.
func NewEnricher(repo storage.NotebookRepository, provider ai.AIProvider, opts ...Option) (*Enricher, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, err
	}

	e := &Enricher{
		repo:       repo,
		classifier: NewClassifier(provider.Completer()),
		embedder:   provider.Embedder(),
		pool:       pool,
		logger:     slog.Default().With("component", "enricher"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			e.Release()
			return nil, err
		}
	}
	return e, nil
}

// Release releases the worker pool.
// The enricher should not be used after calling Release.
func (e *Enricher) Release() {
	if e.pool != nil {
		e.pool.Release()
	}
}

// Enrich derives every metadata field for one record without storing it.
//
// A notebook that cannot be parsed, or that has no text, returns an error
// and no metadata.
// Otherwise the returned metadata is complete and marked processed; the
// error then joins any *ClassifyError values and ErrEmbed, which describe
// fields that fell back to defaults or absence.
func (e *Enricher) Enrich(ctx context.Context, record *core.NotebookRecord) (core.Metadata, error) {
	text, err := notebook.ExtractText(record.Content)
	if err != nil {
		return core.Metadata{}, fmt.Errorf("extract text from %s: %w", record.URL, err)
	}
	if strings.TrimSpace(text) == "" {
		return core.Metadata{}, fmt.Errorf("%s: %w", record.URL, ErrNoText)
	}

	classification, classifyErr := e.classifier.Classify(ctx, text)

	vector, embedErr := Embed(ctx, e.embedder, text)
	if embedErr != nil {
		e.logger.Warn("storing notebook without embedding", "url", record.URL, "err", embedErr)
	}

	meta := core.Metadata{
		Language:          classification.Language,
		CourseLevel:       CourseLevelFor(text),
		CSConcepts:        classification.CSConcepts,
		Context:           classification.Context,
		SequencePosition:  classification.SequencePosition,
		ContentSample:     notebook.Truncate(text, notebook.SampleLimit),
		Vector:            vector,
		MetadataProcessed: true,
	}
	return meta, errors.Join(classifyErr, embedErr)
}

// EnrichURL enriches the stored notebook at url and writes all fields in one update.
// Degraded fields are logged; only load, parse and store failures are returned.
func (e *Enricher) EnrichURL(ctx context.Context, url string) (*Outcome, error) {
	record, err := e.repo.GetNotebook(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", url, err)
	}

	meta, err := e.Enrich(ctx, record)
	if !meta.MetadataProcessed {
		return nil, err
	}

	outcome := &Outcome{URL: url, Metadata: meta}
	var classifyErr *ClassifyError
	outcome.Defaulted = errors.As(err, &classifyErr)
	outcome.Unembedded = errors.Is(err, ErrEmbed)

	if err := core.ValidateMetadata(&meta); err != nil {
		return nil, fmt.Errorf("metadata for %s: %w", url, err)
	}
	if err := e.repo.UpdateMetadata(ctx, url, meta); err != nil {
		return nil, fmt.Errorf("store metadata for %s: %w", url, err)
	}
	return outcome, nil
}

// Outcome describes one enriched notebook.
type Outcome struct {
	URL        string
	Metadata   core.Metadata
	Defaulted  bool // at least one classification fell back to its default
	Unembedded bool // stored without a vector
}

// Report summarizes a Run.
type Report struct {
	Enriched   int
	Failed     int
	Defaulted  int
	Unembedded int
	Errors     []error
}

func (r *Report) add(outcome *Outcome, err error) {
	if err != nil {
		r.Failed++
		r.Errors = append(r.Errors, err)
		return
	}
	r.Enriched++
	if outcome.Defaulted {
		r.Defaulted++
	}
	if outcome.Unembedded {
		r.Unembedded++
	}
}

// Run enriches every notebook selected by filter, using the worker pool.
// FilterUnprocessed is the normal pass; FilterAll re-enriches everything.
// Cancellation stops new notebooks from being started and is returned after
// in-flight notebooks finish.
func (e *Enricher) Run(ctx context.Context, filter storage.Filter) (*Report, error) {
	urls, err := e.repo.ListURLs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list notebooks: %w", err)
	}

	report := &Report{}
	if len(urls) == 0 {
		e.logger.Info("nothing to enrich")
		return report, nil
	}

	e.logger.Info("enriching notebooks", "count", len(urls), "workers", e.pool.Cap())
	progress := NewProgress(e.progress, "Enriching", len(urls), 1)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, url := range urls {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		submitErr := e.pool.Submit(func() {
			defer wg.Done()
			outcome, err := e.EnrichURL(ctx, url)
			if err != nil {
				e.logger.Error("enrichment failed", "url", url, "err", err)
			}
			mu.Lock()
			report.add(outcome, err)
			mu.Unlock()
			progress.Add(1)
		})
		if submitErr != nil {
			wg.Done()
			wg.Wait()
			return report, fmt.Errorf("submit %s: %w", url, submitErr)
		}
	}
	wg.Wait()
	progress.Finish()

	e.logger.Info("enrichment finished",
		"enriched", report.Enriched,
		"failed", report.Failed,
		"defaulted", report.Defaulted,
		"unembedded", report.Unembedded,
		"elapsed", progress.Elapsed())
	return report, ctx.Err()
}
