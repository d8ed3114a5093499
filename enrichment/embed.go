package enrichment

import (
	"context"
	"fmt"

	"github.com/poiesic/nbharvest/ai"
	"github.com/poiesic/nbharvest/notebook"
)

// Embed embeds the first notebook.EmbedLimit characters of text and returns a
// unit-length vector. Every failure wraps ErrEmbed.
func Embed(ctx context.Context, embedder ai.Embedder, text string) ([]float32, error) {
	vector, err := embedder.EmbedText(ctx, notebook.Truncate(text, notebook.EmbedLimit))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbed, err)
	}
	normalized := NormalizeVector(vector)
	if normalized == nil {
		return nil, fmt.Errorf("%w: model returned an empty or zero vector", ErrEmbed)
	}
	return normalized, nil
}
