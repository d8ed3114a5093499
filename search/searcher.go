package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/nbharvest/ai"
	"github.com/poiesic/nbharvest/core"
	"github.com/poiesic/nbharvest/enrichment"
	"github.com/poiesic/nbharvest/notebook"
	"github.com/poiesic/nbharvest/storage"
)

// CandidateFactor is how many nearest neighbours are fetched per requested result
// before filters are applied.
const CandidateFactor = 3

// Searcher provides semantic search over stored notebooks.
type Searcher struct {
	repository storage.NotebookRepository
	embedder   ai.Embedder
	logger     *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "search")
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(repository storage.NotebookRepository, provider ai.AIProvider, opts ...Option) (*Searcher, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		repository: repository,
		embedder:   provider.Embedder(),
		logger:     slog.Default().With("component", "search"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search returns up to limit notebooks similar to query that satisfy filters,
// best match first.
func (s *Searcher) Search(ctx context.Context, query string, filters Filters, limit int) ([]*core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, query, filters, limit, nil)
}

// SearchWithMonitor is Search with callbacks at each stage.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, filters Filters, limit int, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	monitor.Start(query, filters, limit)

	embedding, err := s.embedder.EmbedText(ctx, notebook.Truncate(query, notebook.EmbedLimit))
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	embedding = enrichment.NormalizeVector(embedding)
	if embedding == nil {
		return nil, fmt.Errorf("%w: query embedding is empty", enrichment.ErrEmbed)
	}

	candidates, err := s.repository.FindSimilar(ctx, embedding, limit*CandidateFactor)
	if err != nil {
		s.logger.Error("error querying for similar notebooks", "err", err)
		return nil, err
	}
	monitor.AfterSimilaritySearch(candidates)

	results := make([]*core.SearchResult, 0, limit)
	for _, match := range candidates {
		if match == nil || match.Record == nil || !match.Record.HasEmbedding() {
			continue
		}
		if reason := filters.reject(match.Record); reason != "" {
			monitor.Rejected(match, reason)
			continue
		}
		results = append(results, project(match))
		if len(results) == limit {
			break
		}
	}

	s.logger.Debug("search complete", "candidates", len(candidates), "results", len(results))
	monitor.Finish(results)
	return results, nil
}

func project(match *core.SimilarityMatch) *core.SearchResult {
	r := match.Record
	return &core.SearchResult{
		URL:              r.URL,
		Source:           r.Source,
		Language:         r.Language,
		CourseLevel:      r.CourseLevel,
		CSConcepts:       r.CSConcepts,
		Context:          r.Context,
		SequencePosition: r.SequencePosition,
		ContentSample:    r.ContentSample,
		DateSaved:        r.DateSaved,
		Score:            match.Score,
	}
}
