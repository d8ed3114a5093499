package enrichment

import (
	"errors"
	"fmt"
)

var (
	// ErrRepositoryRequired is returned when a notebook repository is not provided.
	ErrRepositoryRequired = errors.New("notebook repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrEmbed marks an embedding that could not be produced.
	// The record is still enriched and stored without a vector.
	ErrEmbed = errors.New("embedding failed")

	// ErrNoText is returned for a notebook with no markdown or code text.
	// Such a record is left unprocessed.
	ErrNoText = errors.New("notebook has no markdown or code text")
)

// ClassifyError reports a failed classification prompt.
// The field named by Field was set to its default.
type ClassifyError struct {
	Field string
	Err   error
}

func (e *ClassifyError) Error() string {
	return fmt.Sprintf("classify %s: %v", e.Field, e.Err)
}

func (e *ClassifyError) Unwrap() error {
	return e.Err
}
