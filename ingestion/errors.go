package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrRepositoryRequired is returned when a notebook repository is not provided.
	ErrRepositoryRequired = errors.New("notebook repository required")

	// ErrColabDisabled is returned for Colab links when Colab fetching is not configured.
	ErrColabDisabled = errors.New("colab fetching is disabled")

	// ErrUnsupportedURL is returned for links that are neither Colab nor GitHub.
	ErrUnsupportedURL = errors.New("unsupported notebook url")

	// ErrNoFileID is returned when a Colab link carries no Drive file ID.
	ErrNoFileID = errors.New("could not extract drive file id")

	// ErrNotBlobURL is returned when a GitHub link does not point at a file.
	ErrNotBlobURL = errors.New("not a github file url")
)

// FailureKind classifies why a URL was not stored.
type FailureKind string

const (
	// FailureFetch is a network or remote API failure.
	FailureFetch FailureKind = "fetch"
	// FailureParse is content that is not a JSON object.
	FailureParse FailureKind = "parse"
	// FailureStore is a repository write failure.
	FailureStore FailureKind = "store"
	// FailureUnsupported is a URL matching no known source.
	FailureUnsupported FailureKind = "unsupported"
	// FailureDisabled is a Colab URL seen while Colab fetching is off.
	FailureDisabled FailureKind = "disabled"
)

// Failure records one URL that was skipped.
type Failure struct {
	URL  string
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Kind, f.URL, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Transient reports whether retrying the URL later could succeed.
func (f *Failure) Transient() bool {
	return f.Kind == FailureFetch || f.Kind == FailureStore
}
