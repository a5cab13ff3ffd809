package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// This is an optional service - when nil, chunks are indexed without
// vectors and vector queries degrade to keyword search.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536, 3072).
	Dimensions() int

	// MaxInputChars returns the longest input the oracle accepts.
	// Callers cut input to this bound before embedding.
	MaxInputChars() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
