package mock

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicVector(t *testing.T) {
	a := DeterministicVector("pandas groupby", 16)
	b := DeterministicVector("pandas groupby", 16)
	c := DeterministicVector("linear regression", 16)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestMockEmbedder(t *testing.T) {
	ctx := context.Background()
	m := NewMockEmbedder()

	v, err := m.EmbedText(ctx, "x")
	require.NoError(t, err)
	assert.Len(t, v, DefaultDimensions)

	vs, err := m.EmbedTexts(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vs, 2)
	assert.Equal(t, 2, m.CallCount())

	m.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
		return nil, errors.New("boom")
	}
	_, err = m.EmbedText(ctx, "x")
	assert.Error(t, err)

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
	assert.Nil(t, m.EmbedTextFunc)
}

func TestMockCompleter(t *testing.T) {
	ctx := context.Background()
	m := NewMockCompleter()
	m.Responses = map[string]string{"language": "Python"}

	answer, err := m.Complete(ctx, "What programming language is used?")
	require.NoError(t, err)
	assert.Equal(t, "Python", answer)

	answer, err = m.Complete(ctx, "anything else")
	require.NoError(t, err)
	assert.Equal(t, "mock answer", answer)

	assert.Equal(t, 2, m.CallCount())
	assert.Len(t, m.Prompts(), 2)

	m.CompleteFunc = func(context.Context, string) (string, error) {
		return "", errors.New("rate limited")
	}
	_, err = m.Complete(ctx, "x")
	assert.Error(t, err)

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
	assert.Empty(t, m.Prompts())
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider()
	assert.Same(t, p.GetMockEmbedder(), p.Embedder())
	assert.Same(t, p.GetMockCompleter(), p.Completer())
	assert.NoError(t, p.Close())
}
