package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/poiesic/nbharvest/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer answers chat completion and embedding requests the way the OpenAI API does.
type fakeServer struct {
	answer   string
	vector   []float32
	requests atomic.Int32
	lastAuth atomic.Value
	lastBody atomic.Value
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		f.record(t, r)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": f.answer},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
		})
	})
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		body := f.record(t, r)
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.Unmarshal(body, &req)

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": f.vector}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  "text-embedding-3-small",
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	})
	return mux
}

func (f *fakeServer) record(t *testing.T, r *http.Request) []byte {
	t.Helper()
	f.requests.Add(1)
	f.lastAuth.Store(r.Header.Get("Authorization"))
	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	f.lastBody.Store(string(body))
	return body
}

func newFake(t *testing.T, answer string) (*fakeServer, *ai.Config) {
	t.Helper()
	fake := &fakeServer{answer: answer, vector: []float32{0.6, 0.8}}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	cfg := ai.NewConfig(
		ai.WithHost(srv.URL),
		ai.WithEmbeddingModel("text-embedding-3-small"),
		ai.WithClassifierModel("gpt-4o-mini"),
	)
	return fake, cfg
}

func TestCompleter_Complete(t *testing.T) {
	fake, cfg := newFake(t, "  \"Python.\"\n")

	completer, err := NewCompleter(cfg)
	require.NoError(t, err)

	answer, err := completer.Complete(context.Background(), "What programming language?")
	require.NoError(t, err)
	assert.Equal(t, "Python", answer)
	assert.Equal(t, int32(1), fake.requests.Load())
	assert.Equal(t, "Bearer none", fake.lastAuth.Load())

	body := fake.lastBody.Load().(string)
	assert.Contains(t, body, "What programming language?")
	assert.Contains(t, body, `"model":"gpt-4o-mini"`)
}

func TestCompleter_EmptyAnswer(t *testing.T) {
	_, cfg := newFake(t, "   ")

	completer, err := NewCompleter(cfg)
	require.NoError(t, err)

	_, err = completer.Complete(context.Background(), "prompt")
	assert.ErrorIs(t, err, ai.ErrEmptyCompletion)
}

func TestCompleter_SendsAPIKey(t *testing.T) {
	fake, cfg := newFake(t, "economics")
	cfg.APIKey = "sk-test"

	completer, err := NewCompleter(cfg)
	require.NoError(t, err)

	_, err = completer.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-test", fake.lastAuth.Load())
}

func TestEmbedder_EmbedText(t *testing.T) {
	fake, cfg := newFake(t, "")

	embedder, err := NewEmbedder(cfg)
	require.NoError(t, err)

	vector, err := embedder.EmbedText(context.Background(), "line one\nline two")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.6, 0.8}, vector)

	body := fake.lastBody.Load().(string)
	assert.False(t, strings.Contains(body, `line one\nline two`), "newlines should be stripped")
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	_, cfg := newFake(t, "")

	embedder, err := NewEmbedder(cfg)
	require.NoError(t, err)

	vectors, err := embedder.EmbedTexts(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, vectors, 3)
}

func TestEmbedder_BlankTextIsNotSent(t *testing.T) {
	fake, cfg := newFake(t, "")

	embedder, err := NewEmbedder(cfg)
	require.NoError(t, err)

	vector, err := embedder.EmbedText(context.Background(), "  \n ")
	require.NoError(t, err)
	assert.Nil(t, vector)
	assert.Zero(t, fake.requests.Load())

	vectors, err := embedder.EmbedTexts(context.Background(), []string{"a", "", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.NotNil(t, vectors[0])
	assert.Nil(t, vectors[1])
	assert.NotNil(t, vectors[2])
	assert.Equal(t, int32(1), fake.requests.Load())
}

func TestNewProvider(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		_, cfg := newFake(t, "x")

		provider, err := NewProvider(cfg)
		require.NoError(t, err)
		defer provider.Close()

		assert.NotNil(t, provider.Embedder())
		assert.NotNil(t, provider.Completer())
	})

	t.Run("hosted api without key", func(t *testing.T) {
		provider, err := NewProvider(ai.DefaultConfig())
		assert.ErrorIs(t, err, ai.ErrAPIKeyRequired)
		assert.Nil(t, provider)
	})
}

func TestCleanAnswer(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Python", "Python"},
		{"  R  \n", "R"},
		{"\"Julia\"", "Julia"},
		{"'economics'.", "economics"},
		{"```\nrecursion, loops\n```", "recursion, loops"},
		{"```text\nbeginning\n```", "beginning"},
		{"`SQL`", "SQL"},
		{"data science.", "data science"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanAnswer(tt.in))
		})
	}
}
