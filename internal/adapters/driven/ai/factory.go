// Package ai turns provider settings into embedding and LLM adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/admissions-kb/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/admissions-kb/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/custodia-labs/admissions-kb/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/admissions-kb/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/admissions-kb/internal/adapters/driven/oracle"
	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
	"github.com/custodia-labs/admissions-kb/internal/logger"
)

// pingTimeout bounds each connectivity check.
const pingTimeout = 5 * time.Second

const fixHint = "run 'admkb settings' to fix"

// InitResult holds whichever AI services came up.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	Oracle           driven.MetadataOracle // Nil when no LLM is configured.
	Warnings         []string
	FellBack         bool // A configured provider could not be reached.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		_ = r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		_ = r.LLMService.Close()
	}
}

// Init connects every configured provider. Unreachable providers are
// recorded as warnings and left nil, so ingest degrades chunks and skips
// metadata instead of failing to start.
func Init(settings *domain.AppSettings, prompts driven.PromptStore) *InitResult {
	result := &InitResult{}

	embedding, err := ConnectEmbedding(&settings.Embedding)
	result.note(err)
	result.EmbeddingService = embedding

	llm, err := ConnectLLM(&settings.LLM)
	result.note(err)
	result.LLMService = llm
	if llm != nil {
		result.Oracle = oracle.New(llm, prompts)
	}
	return result
}

func (r *InitResult) note(err error) {
	if err == nil {
		return
	}
	logger.Warn("%v", err)
	r.Warnings = append(r.Warnings, err.Error())
	r.FellBack = true
}

// ConnectEmbedding builds the embedding service and pings it. It returns
// nil, nil when no provider is configured.
func ConnectEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := NewEmbeddingService(settings)
	if svc == nil || err != nil {
		return nil, wrapUnavailable(domain.ErrEmbeddingUnavailable, err)
	}
	if err := ping(svc); err != nil {
		_ = svc.Close()
		return nil, wrapUnavailable(domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// ConnectLLM builds the LLM service and pings it. It returns nil, nil
// when no provider is configured.
func ConnectLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := NewLLMService(settings)
	if svc == nil || err != nil {
		return nil, wrapUnavailable(domain.ErrLLMUnavailable, err)
	}
	if err := ping(svc); err != nil {
		_ = svc.Close()
		return nil, wrapUnavailable(domain.ErrLLMUnavailable, err)
	}
	return svc, nil
}

func wrapUnavailable(sentinel, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w; %s", sentinel, err, fixHint)
}

func ping(svc interface{ Ping(context.Context) error }) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// NewEmbeddingService builds the adapter for the configured provider
// without contacting it. It returns nil, nil when nothing is configured.
func NewEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		// Unknown models report their size on the first vector.
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:       settings.BaseURL,
			Model:         settings.Model,
			Dimensions:    domain.EmbeddingDimensions()[settings.Model],
			MaxInputChars: settings.MaxInputChars,
		}), nil
	case domain.AIProviderOpenAI:
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:        settings.APIKey,
			BaseURL:       settings.BaseURL,
			Model:         settings.Model,
			MaxInputChars: settings.MaxInputChars,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrInvalidInput, settings.Provider)
	}
}

// NewLLMService builds the adapter for the configured provider without
// contacting it. It returns nil, nil when nothing is configured.
func NewLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil
	case domain.AIProviderOpenAI:
		svc, err := openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("%w: LLM provider %q", domain.ErrInvalidInput, settings.Provider)
	}
}
