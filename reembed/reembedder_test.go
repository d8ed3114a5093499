package reembed

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/nbharvest/ai/mock"
	"github.com/poiesic/nbharvest/core"
	"github.com/poiesic/nbharvest/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		BatchSize:      3,
		ReportInterval: 3,
		MaxRetries:     3,
		RetryDelay:     time.Millisecond,
		Filter:         storage.FilterProcessed,
	}
}

func TestReembedder_Run(t *testing.T) {
	repo := setupTestDB(t)
	seedNotebooks(t, repo, 10, true)

	var buf bytes.Buffer
	result, err := NewReembedder(repo, mock.NewMockEmbedder(), testConfig(), &buf).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, result.Total)
	assert.Equal(t, 10, result.Updated)
	assert.Zero(t, result.Skipped)

	for _, r := range loadAll(t, repo) {
		require.NotEmpty(t, r.Vector)
		assert.InDelta(t, 1.0, magnitude(r.Vector), 0.01)
	}

	output := buf.String()
	assert.Contains(t, output, "Starting reembedding of 10 notebooks")
	assert.Contains(t, output, "10/10")
	assert.Contains(t, output, "100.0%")
	assert.Contains(t, output, "Reembedding complete")
}

func TestReembedder_OnlyProcessedByDefault(t *testing.T) {
	repo := setupTestDB(t)
	seedNotebooks(t, repo, 4, true)
	ctx := context.Background()

	pending := &core.NotebookRecord{
		URL:     "https://github.com/org/pending/blob/main/new.ipynb",
		Content: notebookJSON("not enriched yet"),
	}
	_, err := repo.SaveNotebook(ctx, pending)
	require.NoError(t, err)

	result, err := NewReembedder(repo, mock.NewMockEmbedder(), nil, nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Total)

	got, err := repo.GetNotebook(ctx, pending.URL)
	require.NoError(t, err)
	assert.Nil(t, got.Vector)
}

func TestReembedder_EmptyDatabase(t *testing.T) {
	var buf bytes.Buffer
	result, err := NewReembedder(setupTestDB(t), mock.NewMockEmbedder(), DefaultConfig(), &buf).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Total)
	assert.Contains(t, buf.String(), "No notebooks to reembed")
}

func TestReembedder_BatchFailure(t *testing.T) {
	repo := setupTestDB(t)
	seedNotebooks(t, repo, 7, true)

	calls := 0
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("quota exceeded")
		}
		out := make([][]float32, len(texts))
		for i, s := range texts {
			out[i] = mock.DeterministicVector(s, 16)
		}
		return out, nil
	}

	cfg := testConfig()
	cfg.MaxRetries = 1
	result, err := NewReembedder(repo, embedder, cfg, nil).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, 3, result.Updated, "first batch is kept")
}

func TestReembedder_ContextCancellation(t *testing.T) {
	repo := setupTestDB(t)
	seedNotebooks(t, repo, 9, true)

	ctx, cancel := context.WithCancel(context.Background())
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		cancel()
		out := make([][]float32, len(texts))
		for i, s := range texts {
			out[i] = mock.DeterministicVector(s, 16)
		}
		return out, nil
	}

	result, err := NewReembedder(repo, embedder, testConfig(), nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, result.Updated, 9)
}
