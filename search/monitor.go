package search

import (
	"log/slog"

	"github.com/poiesic/nbharvest/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string, filters Filters, limit int)
	AfterSimilaritySearch(candidates []*core.SimilarityMatch)
	Rejected(match *core.SimilarityMatch, filter string)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ Filters, _ int)                {}
func (n *noopMonitor) AfterSimilaritySearch(_ []*core.SimilarityMatch) {}
func (n *noopMonitor) Rejected(_ *core.SimilarityMatch, _ string)      {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)                   {}

// LogMonitor writes each search stage to a logger at debug level.
type LogMonitor struct {
	Logger *slog.Logger
}

var _ SearchMonitor = (*LogMonitor)(nil)

func (m *LogMonitor) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

func (m *LogMonitor) Start(query string, filters Filters, limit int) {
	m.logger().Debug("search started", "query", query, "limit", limit,
		"language", filters.Language, "course_level", filters.CourseLevel,
		"context", filters.Context, "sequence_position", filters.SequencePosition)
}

func (m *LogMonitor) AfterSimilaritySearch(candidates []*core.SimilarityMatch) {
	m.logger().Debug("similarity search returned candidates", "count", len(candidates))
}

func (m *LogMonitor) Rejected(match *core.SimilarityMatch, filter string) {
	m.logger().Debug("candidate rejected", "url", match.Record.URL, "filter", filter, "score", match.Score)
}

func (m *LogMonitor) Finish(results []*core.SearchResult) {
	m.logger().Debug("search finished", "results", len(results))
}
