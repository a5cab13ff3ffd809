// Package ollama embeds chunk text with a locally hosted Ollama model.
package ollama

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/admissions-kb/internal/adapters/driven/ollamaapi"
	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultModel   = "nomic-embed-text"
	DefaultTimeout = 30 * time.Second

	// DefaultMaxInputChars stays under nomic-embed-text's 2048-token context.
	DefaultMaxInputChars = 6000
)

// Config holds configuration for the Ollama embedding service.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions is the expected vector size. Zero means unknown: the size
	// of the first vector returned is adopted and enforced from then on.
	Dimensions int

	MaxInputChars int
}

// EmbeddingService calls Ollama's /api/embed endpoint.
type EmbeddingService struct {
	api           *ollamaapi.Client
	model         string
	dimensions    atomic.Int64
	maxInputChars int
}

type embedRequest struct {
	Model    string `json:"model"`
	Input    string `json:"input"`
	Truncate bool   `json:"truncate"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewEmbeddingService creates an Ollama embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = DefaultMaxInputChars
	}

	s := &EmbeddingService{
		api:           ollamaapi.New(cfg.BaseURL, cfg.Timeout),
		model:         cfg.Model,
		maxInputChars: cfg.MaxInputChars,
	}
	s.dimensions.Store(int64(cfg.Dimensions))
	return s
}

// Embed returns the vector for text. Ollama truncates input that still
// exceeds the model context after the caller's own truncation.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embedResponse
	err := s.api.Post(ctx, "/api/embed", embedRequest{Model: s.model, Input: text, Truncate: true}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != 1 || len(resp.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("ollama: %s returned %d embeddings for one input", s.model, len(resp.Embeddings))
	}

	vec := resp.Embeddings[0]
	want := s.dimensions.Load()
	if want == 0 && s.dimensions.CompareAndSwap(0, int64(len(vec))) {
		return vec, nil
	}
	if want = s.dimensions.Load(); int64(len(vec)) != want {
		return nil, fmt.Errorf("%w: %s returned %d dimensions, expected %d",
			domain.ErrEmbeddingUnavailable, s.model, len(vec), want)
	}
	return vec, nil
}

// Dimensions returns the vector size, or 0 before the first vector of a
// model with no known size.
func (s *EmbeddingService) Dimensions() int {
	return int(s.dimensions.Load())
}

func (s *EmbeddingService) MaxInputChars() int {
	return s.maxInputChars
}

func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks that the server is up and the model has been pulled.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.api.CheckModel(ctx, s.model)
}

func (s *EmbeddingService) Close() error {
	return nil
}
