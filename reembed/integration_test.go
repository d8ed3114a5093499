package reembed

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/poiesic/nbharvest/ai"
	"github.com/poiesic/nbharvest/ai/mock"
	"github.com/poiesic/nbharvest/ai/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// embeddingServer answers /v1/embeddings with a vector derived from each input.
func embeddingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, len(req.Input))
		for i, text := range req.Input {
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": mock.DeterministicVector(text, 32),
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  "text-embedding-3-small",
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestIntegration_ReembedThroughOpenAIProvider runs the whole workflow against
// an OpenAI-compatible endpoint served locally.
func TestIntegration_ReembedThroughOpenAIProvider(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	srv := embeddingServer(t)
	provider, err := openai.NewProvider(ai.NewConfig(
		ai.WithHost(srv.URL),
		ai.WithEmbeddingModel("text-embedding-3-small"),
		ai.WithClassifierModel("gpt-4o-mini"),
	))
	require.NoError(t, err)
	defer provider.Close()

	repo := setupTestDB(t)
	seedNotebooks(t, repo, 25, true)

	config := &Config{
		BatchSize:      10,
		ReportInterval: 10,
		MaxRetries:     3,
		RetryDelay:     10 * time.Millisecond,
		Filter:         DefaultConfig().Filter,
	}

	var buf bytes.Buffer
	result, err := NewReembedder(repo, provider.Embedder(), config, &buf).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, result.Updated)

	for _, r := range loadAll(t, repo) {
		require.Len(t, r.Vector, 32, r.URL)
		assert.InDelta(t, 1.0, magnitude(r.Vector), 0.01)
	}
	assert.Contains(t, buf.String(), "25/25")
}

// TestIntegration_IdempotentReembedding tests that reembedding can be run multiple times
func TestIntegration_IdempotentReembedding(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	repo := setupTestDB(t)
	urls := seedNotebooks(t, repo, 10, true)

	config := testConfig()

	_, err := NewReembedder(repo, mock.NewMockEmbedder(), config, nil).Run(ctx)
	require.NoError(t, err)
	first, err := repo.GetNotebook(ctx, urls[0])
	require.NoError(t, err)

	_, err = NewReembedder(repo, mock.NewMockEmbedder(), config, nil).Run(ctx)
	require.NoError(t, err)
	second, err := repo.GetNotebook(ctx, urls[0])
	require.NoError(t, err)

	require.Equal(t, len(first.Vector), len(second.Vector))
	assert.InDeltaSlice(t, first.Vector, second.Vector, 0.001)
	assert.Equal(t, first.Metadata.Language, second.Metadata.Language)
}
