package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
)

func TestConfigValidator_NotConfigured(t *testing.T) {
	validator := NewConfigValidator()

	err := validator.ValidateEmbedding(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "no embedding provider")

	err = validator.ValidateLLM(&domain.LLMSettings{Provider: domain.AIProviderOpenAI})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "API key")
}

func TestConfigValidator_Embedding(t *testing.T) {
	srv := ollamaServer(t, fakeOptions{})
	validator := NewConfigValidator()

	assert.NoError(t, validator.ValidateEmbedding(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama, BaseURL: srv.URL, Model: "all-minilm",
	}))

	err := validator.ValidateEmbedding(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama, BaseURL: deadURL(t),
	})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestConfigValidator_EmbeddingDimensionMismatch(t *testing.T) {
	// nomic-embed-text is known to produce 768 dimensions.
	srv := ollamaServer(t, fakeOptions{vectorSize: 384})

	err := NewConfigValidator().ValidateEmbedding(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama, BaseURL: srv.URL, Model: "nomic-embed-text",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "384")
}

func TestConfigValidator_LLM(t *testing.T) {
	srv := ollamaServer(t, fakeOptions{})

	assert.NoError(t, NewConfigValidator().ValidateLLM(&domain.LLMSettings{
		Provider: domain.AIProviderOllama, BaseURL: srv.URL,
	}))
}

func TestConfigValidator_LLMIgnoresJSONMode(t *testing.T) {
	srv := ollamaServer(t, fakeOptions{chatReply: "Sure! ok is true."})

	err := NewConfigValidator().ValidateLLM(&domain.LLMSettings{
		Provider: domain.AIProviderOllama, BaseURL: srv.URL,
	})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Contains(t, err.Error(), "JSON mode")
}
