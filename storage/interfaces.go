package storage

import (
	"context"

	"github.com/poiesic/nbharvest/core"
)

// Filter selects which notebooks an iteration visits.
type Filter int

const (
	// FilterAll visits every stored notebook.
	FilterAll Filter = iota
	// FilterUnprocessed visits notebooks that have not been enriched yet.
	FilterUnprocessed
	// FilterProcessed visits enriched notebooks.
	FilterProcessed
)

// Matches reports whether a record passes the filter.
func (f Filter) Matches(record *core.NotebookRecord) bool {
	switch f {
	case FilterUnprocessed:
		return !record.MetadataProcessed
	case FilterProcessed:
		return record.MetadataProcessed
	default:
		return true
	}
}

// Stats summarizes the stored collection.
type Stats struct {
	Total     int
	Processed int
	Embedded  int
}

// NotebookRepository stores harvested notebooks keyed by URL.
// Implementations must be thread-safe and support concurrent access.
// Every write touches exactly one document.
type NotebookRepository interface {
	// SaveNotebook inserts or replaces the notebook stored under record.URL.
	// Content and DateSaved are replaced and enrichment metadata is cleared,
	// so a re-ingested notebook is enriched again.
	// Returns the stored record with Id and timestamps populated.
	SaveNotebook(ctx context.Context, record *core.NotebookRecord) (*core.NotebookRecord, error)

	// GetNotebook retrieves a notebook by URL.
	// Returns ErrNotFound if the notebook doesn't exist.
	GetNotebook(ctx context.Context, url string) (*core.NotebookRecord, error)

	// ListURLs returns the URLs of notebooks matching the filter, in storage order.
	ListURLs(ctx context.Context, filter Filter) ([]string, error)

	// ForEachNotebook calls fn for every notebook matching the filter.
	// Iteration stops at the first error returned by fn.
	ForEachNotebook(ctx context.Context, filter Filter, fn func(*core.NotebookRecord) error) error

	// UpdateMetadata replaces all enrichment fields of one notebook in a single write.
	// Returns ErrNotFound if the notebook doesn't exist.
	UpdateMetadata(ctx context.Context, url string, meta core.Metadata) error

	// UpdateVector replaces only the embedding of one notebook.
	// Returns ErrNotFound if the notebook doesn't exist.
	UpdateVector(ctx context.Context, url string, vector []float32) error

	// FindSimilar returns up to candidates notebooks nearest to vector, best first.
	// Notebooks without an embedding are never returned.
	FindSimilar(ctx context.Context, vector []float32, candidates int) ([]*core.SimilarityMatch, error)

	// Stats counts stored, processed and embedded notebooks.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases resources held by the repository.
	Close() error
}
