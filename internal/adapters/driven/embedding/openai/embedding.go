// Package openai provides an embedding service adapter using the OpenAI API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel         = "text-embedding-3-small"
	DefaultTimeout       = 60 * time.Second
	DefaultMaxInputChars = 8000
)

// Model dimensions for OpenAI embedding models.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL overrides the SDK default, e.g. for Azure OpenAI or
	// compatible gateways.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-3-small).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions overrides the default dimension for the model.
	// Only applicable to text-embedding-3-* models.
	Dimensions int

	// MaxInputChars is the provider's input bound (default: 8000).
	MaxInputChars int
}

// EmbeddingService generates embeddings using the OpenAI API.
type EmbeddingService struct {
	client        *openai.Client
	model         string
	dimensions    int
	maxInputChars int
	// requestDims is sent only when the caller asked for a non-default size.
	requestDims int
}

// NewEmbeddingService creates a new OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = DefaultMaxInputChars
	}

	dimensions := modelDimensions[cfg.Model]
	requestDims := 0
	if cfg.Dimensions > 0 && cfg.Dimensions != dimensions {
		dimensions = cfg.Dimensions
		requestDims = cfg.Dimensions
	}
	if dimensions == 0 {
		return nil, fmt.Errorf("openai: unknown dimensions for model %q", cfg.Model)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &EmbeddingService{
		client:        openai.NewClientWithConfig(clientCfg),
		model:         cfg.Model,
		dimensions:    dimensions,
		maxInputChars: cfg.MaxInputChars,
		requestDims:   requestDims,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(s.model),
		Dimensions: s.requestDims,
	})
	if err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Data) != 1 {
		return nil, fmt.Errorf("openai: returned %d embeddings, expected 1", len(resp.Data))
	}
	return resp.Data[0].Embedding, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// MaxInputChars returns the longest input sent to the provider.
func (s *EmbeddingService) MaxInputChars() int {
	return s.maxInputChars
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the API key by listing models, which runs no inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai: ping failed: %w", classifyError(err))
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

// classifyError maps HTTP 429 to ErrRateLimited so callers can back off.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("openai: %w: %w", domain.ErrRateLimited, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("openai: %w: %w", domain.ErrRateLimited, err)
	}
	return fmt.Errorf("openai embedding request failed: %w", err)
}
