package enrichment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/poiesic/nbharvest/ai/mock"
	"github.com/poiesic/nbharvest/core"
	"github.com/poiesic/nbharvest/notebook"
	"github.com/poiesic/nbharvest/storage"
	"github.com/poiesic/nbharvest/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const introNotebook = `{
  "cells": [
    {"cell_type": "markdown", "source": ["# Intro to Python\n", "Getting started with loops"]},
    {"cell_type": "code", "source": "for i in range(3):\n    print(i)"},
    {"cell_type": "raw", "source": "ignored"}
  ],
  "nbformat": 4
}`

func newTestRepo(t *testing.T) storage.NotebookRepository {
	t.Helper()
	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestEnricher(t *testing.T, repo storage.NotebookRepository, provider *mock.MockProvider, opts ...Option) *Enricher {
	t.Helper()
	e, err := NewEnricher(repo, provider, opts...)
	require.NoError(t, err)
	t.Cleanup(e.Release)
	return e
}

func answeringProvider() *mock.MockProvider {
	return mock.NewMockProviderWithServices(mock.NewMockEmbedder(), answeringCompleter())
}

func saveNotebook(t *testing.T, repo storage.NotebookRepository, url, content string) {
	t.Helper()
	_, err := repo.SaveNotebook(context.Background(), &core.NotebookRecord{URL: url, Content: []byte(content)})
	require.NoError(t, err)
}

func TestNewEnricher_Validation(t *testing.T) {
	repo := newTestRepo(t)

	_, err := NewEnricher(nil, mock.NewMockProvider())
	assert.ErrorIs(t, err, ErrRepositoryRequired)

	_, err = NewEnricher(repo, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)
}

func TestEnricher_Enrich(t *testing.T) {
	e := newTestEnricher(t, newTestRepo(t), answeringProvider())

	meta, err := e.Enrich(context.Background(), &core.NotebookRecord{
		URL:     "https://github.com/a/b/blob/main/intro.ipynb",
		Content: []byte(introNotebook),
	})
	require.NoError(t, err)

	assert.Equal(t, "Python", meta.Language)
	assert.Equal(t, "economics", meta.Context)
	assert.Equal(t, core.SequenceBeginning, meta.SequencePosition)
	assert.Equal(t, "loops, functions", meta.CSConcepts)
	assert.Equal(t, core.CourseLevelIntroductory, meta.CourseLevel)
	assert.Equal(t, "# Intro to Python\nGetting started with loops for i in range(3):\n    print(i)", meta.ContentSample)
	assert.True(t, meta.MetadataProcessed)
	assert.Len(t, meta.Vector, mock.DefaultDimensions)
	assert.NoError(t, core.ValidateMetadata(&meta))
}

func TestEnricher_Enrich_InvalidContent(t *testing.T) {
	e := newTestEnricher(t, newTestRepo(t), answeringProvider())

	meta, err := e.Enrich(context.Background(), &core.NotebookRecord{URL: "u", Content: []byte("<html>")})
	assert.ErrorIs(t, err, notebook.ErrNotJSON)
	assert.False(t, meta.MetadataProcessed)
}

func TestEnricher_Enrich_NoText(t *testing.T) {
	provider := answeringProvider()
	e := newTestEnricher(t, newTestRepo(t), provider)

	for _, content := range []string{
		`{"cells":[]}`,
		`{"cells":[{"cell_type":"raw","source":"x"}]}`,
		`{"cells":[{"cell_type":"markdown","source":"  \n "}]}`,
	} {
		meta, err := e.Enrich(context.Background(), &core.NotebookRecord{URL: "u", Content: []byte(content)})
		assert.ErrorIs(t, err, ErrNoText, content)
		assert.False(t, meta.MetadataProcessed, content)
	}
	assert.Equal(t, 0, provider.GetMockCompleter().CallCount())
	assert.Equal(t, 0, provider.GetMockEmbedder().CallCount())
}

func TestEnricher_EnrichURL_NoTextLeftUnprocessed(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	url := "https://github.com/a/b/blob/main/raw_only.ipynb"
	saveNotebook(t, repo, url, `{"cells":[{"cell_type":"raw","source":"x"}]}`)

	e := newTestEnricher(t, repo, answeringProvider())
	outcome, err := e.EnrichURL(ctx, url)
	assert.ErrorIs(t, err, ErrNoText)
	assert.Nil(t, outcome)

	record, err := repo.GetNotebook(ctx, url)
	require.NoError(t, err)
	assert.False(t, record.MetadataProcessed)
	assert.Empty(t, record.ContentSample)

	report, err := e.Run(ctx, storage.FilterUnprocessed)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Enriched)
	assert.Equal(t, 1, report.Failed)
}

func TestEnricher_Enrich_EmbedFailure(t *testing.T) {
	provider := answeringProvider()
	provider.GetMockEmbedder().EmbedTextFunc = func(context.Context, string) ([]float32, error) {
		return nil, errors.New("quota exceeded")
	}
	e := newTestEnricher(t, newTestRepo(t), provider)

	meta, err := e.Enrich(context.Background(), &core.NotebookRecord{URL: "u", Content: []byte(introNotebook)})
	assert.ErrorIs(t, err, ErrEmbed)
	assert.True(t, meta.MetadataProcessed)
	assert.Nil(t, meta.Vector)
	assert.Equal(t, "Python", meta.Language)
}

func TestEmbed(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
			return []float32{3, 4}, nil
		}
		v, err := Embed(ctx, embedder, "text")
		require.NoError(t, err)
		assert.InDelta(t, 0.6, v[0], 1e-6)
		assert.InDelta(t, 0.8, v[1], 1e-6)
	})

	t.Run("truncates input", func(t *testing.T) {
		var seen string
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextFunc = func(_ context.Context, text string) ([]float32, error) {
			seen = text
			return []float32{1}, nil
		}
		_, err := Embed(ctx, embedder, strings.Repeat("é", notebook.EmbedLimit+10))
		require.NoError(t, err)
		assert.Equal(t, notebook.EmbedLimit, len([]rune(seen)))
	})

	t.Run("zero vector", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
			return []float32{0, 0}, nil
		}
		v, err := Embed(ctx, embedder, "text")
		assert.ErrorIs(t, err, ErrEmbed)
		assert.Nil(t, v)
	})
}

func TestEnricher_Run(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	saveNotebook(t, repo, "https://github.com/a/b/blob/main/one.ipynb", introNotebook)
	saveNotebook(t, repo, "https://github.com/a/b/blob/main/two.ipynb", `{"cells":[{"cell_type":"markdown","source":"Advanced optimization"}]}`)
	saveNotebook(t, repo, "https://github.com/a/b/blob/main/broken.ipynb", `{"cells": "not a list"}`)

	e := newTestEnricher(t, repo, answeringProvider())
	report, err := e.Run(ctx, storage.FilterUnprocessed)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Enriched)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, report.Errors, 1)

	two, err := repo.GetNotebook(ctx, "https://github.com/a/b/blob/main/two.ipynb")
	require.NoError(t, err)
	assert.True(t, two.MetadataProcessed)
	assert.Equal(t, core.CourseLevelAdvanced, two.CourseLevel)
	assert.True(t, two.HasEmbedding())

	broken, err := repo.GetNotebook(ctx, "https://github.com/a/b/blob/main/broken.ipynb")
	require.NoError(t, err)
	assert.False(t, broken.MetadataProcessed)

	// Second pass only revisits the record that failed.
	report, err = e.Run(ctx, storage.FilterUnprocessed)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Enriched)
	assert.Equal(t, 1, report.Failed)
}

func TestEnricher_RunAll_ReenrichesProcessed(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	url := "https://github.com/a/b/blob/main/one.ipynb"
	saveNotebook(t, repo, url, introNotebook)

	provider := answeringProvider()
	e := newTestEnricher(t, repo, provider)

	_, err := e.Run(ctx, storage.FilterUnprocessed)
	require.NoError(t, err)

	provider.GetMockCompleter().Responses[keyContext] = "biology"

	report, err := e.Run(ctx, storage.FilterUnprocessed)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Enriched)

	report, err = e.Run(ctx, storage.FilterAll)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Enriched)

	got, err := repo.GetNotebook(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, "biology", got.Context)
}

func TestEnricher_Run_DegradedFieldsCounted(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	saveNotebook(t, repo, "https://github.com/a/b/blob/main/one.ipynb", introNotebook)

	provider := answeringProvider()
	provider.GetMockCompleter().Responses[keySequence] = ""
	provider.GetMockEmbedder().EmbedTextFunc = func(context.Context, string) ([]float32, error) {
		return nil, errors.New("down")
	}
	e := newTestEnricher(t, repo, provider)

	report, err := e.Run(ctx, storage.FilterUnprocessed)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Enriched)
	assert.Equal(t, 1, report.Defaulted)
	assert.Equal(t, 1, report.Unembedded)

	got, err := repo.GetNotebook(ctx, "https://github.com/a/b/blob/main/one.ipynb")
	require.NoError(t, err)
	assert.True(t, got.MetadataProcessed)
	assert.Equal(t, core.SequenceMiddle, got.SequencePosition)
	assert.False(t, got.HasEmbedding())
}

func TestEnricher_Run_Workers(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	for i := 0; i < 20; i++ {
		saveNotebook(t, repo, fmt.Sprintf("https://github.com/a/b/blob/main/nb%02d.ipynb", i), introNotebook)
	}

	var progress strings.Builder
	e := newTestEnricher(t, repo, answeringProvider(), WithWorkers(4), WithProgress(&progress))

	report, err := e.Run(ctx, storage.FilterUnprocessed)
	require.NoError(t, err)
	assert.Equal(t, 20, report.Enriched)
	assert.Contains(t, progress.String(), "20/20")

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, stats.Processed)
	assert.Equal(t, 20, stats.Embedded)

	repo.ForEachNotebook(ctx, storage.FilterAll, func(r *core.NotebookRecord) error {
		var sum float64
		for _, v := range r.Vector {
			sum += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
		return nil
	})
}

func TestEnricher_Run_Cancelled(t *testing.T) {
	repo := newTestRepo(t)
	saveNotebook(t, repo, "https://github.com/a/b/blob/main/one.ipynb", introNotebook)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestEnricher(t, repo, answeringProvider())
	_, err := e.Run(ctx, storage.FilterUnprocessed)
	assert.ErrorIs(t, err, context.Canceled)
}
