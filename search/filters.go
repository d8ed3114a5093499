package search

import (
	"strings"

	"github.com/poiesic/nbharvest/core"
)

// Filters restricts search results. Zero-valued fields are ignored.
type Filters struct {
	Language         string
	CourseLevel      core.CourseLevel
	Context          string // substring of the stored context
	SequencePosition core.SequencePosition
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return f == Filters{}
}

// Matches reports whether record satisfies every set filter.
func (f Filters) Matches(record *core.NotebookRecord) bool {
	return f.reject(record) == ""
}

// reject names the first filter record fails, or returns "" when it passes.
func (f Filters) reject(record *core.NotebookRecord) string {
	if f.Language != "" && !equalFold(record.Language, f.Language) {
		return "language"
	}
	if f.CourseLevel != "" && !equalFold(string(record.CourseLevel), string(f.CourseLevel)) {
		return "course_level"
	}
	if f.Context != "" && !containsFold(record.Context, f.Context) {
		return "context"
	}
	if f.SequencePosition != "" && !equalFold(string(record.SequencePosition), string(f.SequencePosition)) {
		return "sequence_position"
	}
	return ""
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(substr)))
}
