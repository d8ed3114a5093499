// Package mock provides test double implementations of AI service interfaces.
//
// # Usage in Tests
//
//	provider := mock.NewMockProvider()
//	provider.GetMockCompleter().Responses = map[string]string{
//	    "programming language": "Python",
//	}
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return nil, errors.New("quota exceeded")
//	}
//	count := embedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockCompleter: Returns Default unless a Responses key appears in the prompt
//   - MockProvider: Aggregates mock embedder and completer
package mock
