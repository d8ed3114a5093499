package reembed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/nbharvest/ai"
	"github.com/poiesic/nbharvest/core"
	"github.com/poiesic/nbharvest/enrichment"
	"github.com/poiesic/nbharvest/notebook"
	"github.com/poiesic/nbharvest/storage"
)

// BatchResult counts what happened to one batch.
type BatchResult struct {
	Updated int
	Skipped int // unparseable notebooks and zero vectors; their stored vector is kept
}

// BatchProcessor handles embedding generation for batches of notebooks.
type BatchProcessor struct {
	repo           storage.NotebookRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of retry attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.NotebookRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		logger:         slog.Default().With("component", "reembed"),
	}
}

// Process embeds the text of each notebook in one request and writes the
// normalized vectors back.
func (bp *BatchProcessor) Process(ctx context.Context, records []*core.NotebookRecord) (BatchResult, error) {
	var result BatchResult
	if len(records) == 0 {
		return result, nil
	}

	texts := make([]string, 0, len(records))
	targets := make([]*core.NotebookRecord, 0, len(records))
	for _, record := range records {
		text, err := notebook.ExtractText(record.Content)
		if err != nil {
			bp.logger.Warn("skipping unparseable notebook", "url", record.URL, "err", err)
			result.Skipped++
			continue
		}
		texts = append(texts, notebook.Truncate(text, notebook.EmbedLimit))
		targets = append(targets, record)
	}
	if len(texts) == 0 {
		return result, nil
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return result, fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(targets) {
		return result, fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingCountMismatch, len(targets), len(embeddings))
	}

	for i, record := range targets {
		vector := enrichment.NormalizeVector(embeddings[i])
		if vector == nil {
			bp.logger.Warn("embedder returned a zero vector", "url", record.URL)
			result.Skipped++
			continue
		}
		if err := bp.repo.UpdateVector(ctx, record.URL, vector); err != nil {
			return result, fmt.Errorf("failed to update %s: %w", record.URL, err)
		}
		result.Updated++
	}

	return result, nil
}
