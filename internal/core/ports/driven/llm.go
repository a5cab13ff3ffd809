package driven

import (
	"context"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
)

// LLMService provides chat completion for the metadata oracle.
// This is an optional service - when nil, metadata extraction is skipped.
type LLMService interface {
	// Chat conducts a conversation and returns the assistant reply.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// JSONMode asks the provider to return a single JSON object.
	JSONMode bool
}

// AIConfigValidator checks provider settings by contacting the provider.
type AIConfigValidator interface {
	// ValidateEmbedding pings the configured embedding provider.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM pings the configured LLM provider.
	ValidateLLM(config *domain.LLMSettings) error
}
