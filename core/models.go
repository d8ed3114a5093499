package core

import (
	"encoding/binary"
	"net/url"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Notebook IDs are derived from the notebook URL, so the same URL always maps to the same ID.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Source identifies where a notebook was harvested from.
type Source string

const (
	// SourceUnknown is any URL that is neither a Colab nor a GitHub link.
	SourceUnknown Source = "unknown"
	// SourceColab is a Google Colab notebook backed by a Drive file.
	SourceColab Source = "colab"
	// SourceGitHub is a notebook file hosted on GitHub.
	SourceGitHub Source = "github"
)

// SourceFromURL classifies a URL by host. Colab links live on
// colab.research.google.com; GitHub links on github.com, www.github.com or
// raw.githubusercontent.com. Other hosts, gist.github.com included, are unknown.
func SourceFromURL(link string) Source {
	u, err := url.Parse(link)
	if err != nil {
		return SourceUnknown
	}
	switch strings.ToLower(u.Hostname()) {
	case "colab.research.google.com":
		return SourceColab
	case "github.com", "www.github.com", "raw.githubusercontent.com":
		return SourceGitHub
	default:
		return SourceUnknown
	}
}

// CourseLevel is the heuristic difficulty bucket of a notebook.
type CourseLevel string

const (
	CourseLevelIntroductory CourseLevel = "introductory"
	CourseLevelIntermediate CourseLevel = "intermediate"
	CourseLevelAdvanced     CourseLevel = "advanced"
)

// SequencePosition is where a notebook likely sits within a course.
type SequencePosition string

const (
	SequenceBeginning SequencePosition = "beginning"
	SequenceMiddle    SequencePosition = "middle"
	SequenceEnd       SequencePosition = "end"
)

// NotebookRecord is a harvested notebook document.
// Enrichment fields stay empty until the enrichment stage writes them in a single update.
type NotebookRecord struct {
	Id        ID
	URL       string
	Source    Source
	Content   []byte    // Verbatim notebook JSON
	DateSaved time.Time // When the notebook was (last) ingested
	UpdatedAt time.Time // When the record was last written

	Metadata
}

// Metadata holds every field derived during enrichment.
type Metadata struct {
	Language          string
	CourseLevel       CourseLevel
	CSConcepts        string
	Context           string
	SequencePosition  SequencePosition
	ContentSample     string
	Vector            []float32 // nil when embedding failed
	MetadataProcessed bool
}

// HasEmbedding reports whether the record can take part in similarity search.
func (r *NotebookRecord) HasEmbedding() bool {
	return len(r.Vector) > 0
}

// SimilarityMatch is a stored record returned by nearest-neighbour search.
type SimilarityMatch struct {
	Record *NotebookRecord
	Score  float32
}

// SearchResult is the projection handed to search callers.
// It never carries internal identifiers or raw notebook content.
type SearchResult struct {
	URL              string
	Source           Source
	Language         string
	CourseLevel      CourseLevel
	CSConcepts       string
	Context          string
	SequencePosition SequencePosition
	ContentSample    string
	DateSaved        time.Time
	Score            float32
}
