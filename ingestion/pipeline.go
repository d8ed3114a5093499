package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/nbharvest/core"
	"github.com/poiesic/nbharvest/notebook"
	"github.com/poiesic/nbharvest/storage"
)

// Pipeline fetches notebook links and stores their content.
// URLs are processed one at a time in input order, Colab links first.
type Pipeline struct {
	repo   storage.NotebookRepository
	github Fetcher
	colab  Fetcher
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithGitHubFetcher replaces the default GitHub fetcher.
func WithGitHubFetcher(f Fetcher) Option {
	return func(p *Pipeline) error {
		if f == nil {
			return fmt.Errorf("github fetcher is nil")
		}
		p.github = f
		return nil
	}
}

// WithColabFetcher enables Colab links. Without it they fail with FailureDisabled.
func WithColabFetcher(f Fetcher) Option {
	return func(p *Pipeline) error {
		p.colab = f
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "ingestion")
		return nil
	}
}

// NewPipeline creates an ingestion pipeline over repo.
func NewPipeline(repo storage.NotebookRepository, opts ...Option) (*Pipeline, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}

	p := &Pipeline{
		repo:   repo,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default().With("component", "ingestion"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if p.github == nil {
		github, err := NewGitHubFetcher()
		if err != nil {
			return nil, err
		}
		p.github = github
	}
	return p, nil
}

// Report summarizes an ingestion run.
type Report struct {
	Saved    []string
	Failures []*Failure
}

// Count returns how many failures are of kind.
func (r *Report) Count(kind FailureKind) int {
	n := 0
	for _, f := range r.Failures {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Transient returns the failures worth retrying.
func (r *Report) Transient() []*Failure {
	var out []*Failure
	for _, f := range r.Failures {
		if f.Transient() {
			out = append(out, f)
		}
	}
	return out
}

// Partition splits urls by source after trimming blanks and dropping duplicates.
func Partition(urls []string) (colab, github, unsupported []string) {
	seen := make(map[string]struct{}, len(urls))
	for _, raw := range urls {
		u := strings.TrimSpace(raw)
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}

		switch core.SourceFromURL(u) {
		case core.SourceColab:
			colab = append(colab, u)
		case core.SourceGitHub:
			github = append(github, u)
		default:
			unsupported = append(unsupported, u)
		}
	}
	return colab, github, unsupported
}

// Ingest fetches, validates and stores every URL. Per-URL failures are
// recorded in the report and never stop the run; only cancellation does.
func (p *Pipeline) Ingest(ctx context.Context, urls []string) (*Report, error) {
	colab, github, unsupported := Partition(urls)
	p.logger.Info("ingesting notebooks",
		"colab", len(colab), "github", len(github), "unsupported", len(unsupported))

	report := &Report{}
	for _, u := range unsupported {
		p.fail(report, u, FailureUnsupported, ErrUnsupportedURL)
	}

	for _, u := range colab {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if p.colab == nil {
			p.fail(report, u, FailureDisabled, ErrColabDisabled)
			continue
		}
		p.ingestOne(ctx, report, u, core.SourceColab, p.colab)
	}

	for _, u := range github {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		p.ingestOne(ctx, report, u, core.SourceGitHub, p.github)
	}

	p.logger.Info("ingestion finished", "saved", len(report.Saved), "failed", len(report.Failures))
	return report, nil
}

func (p *Pipeline) ingestOne(ctx context.Context, report *Report, u string, source core.Source, fetcher Fetcher) {
	content, err := fetcher.Fetch(ctx, u)
	if errors.Is(err, ErrUnsupportedURL) {
		p.fail(report, u, FailureUnsupported, err)
		return
	}
	if err != nil {
		p.fail(report, u, FailureFetch, err)
		return
	}
	if err := notebook.Validate(content); err != nil {
		p.fail(report, u, FailureParse, err)
		return
	}

	_, err = p.repo.SaveNotebook(ctx, &core.NotebookRecord{
		URL:       u,
		Source:    source,
		Content:   content,
		DateSaved: p.now(),
	})
	if err != nil {
		p.fail(report, u, FailureStore, err)
		return
	}
	p.logger.Info("saved notebook", "url", u, "source", source, "bytes", len(content))
	report.Saved = append(report.Saved, u)
}

func (p *Pipeline) fail(report *Report, u string, kind FailureKind, err error) {
	failure := &Failure{URL: u, Kind: kind, Err: err}
	if failure.Transient() {
		p.logger.Error("skipping notebook", "url", u, "kind", kind, "err", err)
	} else {
		p.logger.Warn("skipping notebook", "url", u, "kind", kind, "err", err)
	}
	report.Failures = append(report.Failures, failure)
}
