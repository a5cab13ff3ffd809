package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// probeTimeout bounds the single inference call made per check. A cold
// local model can take several seconds to load.
const probeTimeout = 60 * time.Second

const (
	probeText   = "Undergraduate applications are due January 15."
	probeSystem = `Reply with the JSON object {"ok": true} and nothing else.`
)

// ConfigValidator checks settings the way ingest will use them: one real
// embedding and one JSON-mode chat, not just a ping.
type ConfigValidator struct{}

func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding embeds a probe sentence and checks the vector size
// matches what the chunk index expects for the model.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	if config == nil || !config.IsConfigured() {
		return notConfigured("embedding", config != nil && config.Provider.RequiresAPIKey())
	}
	svc, err := ConnectEmbedding(config)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	vec, err := svc.Embed(ctx, probeText)
	if err != nil {
		return fmt.Errorf("%w: probe embedding: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if want := svc.Dimensions(); want > 0 && len(vec) != want {
		return fmt.Errorf("%w: %s returned %d dimensions, expected %d",
			domain.ErrEmbeddingUnavailable, svc.ModelName(), len(vec), want)
	}
	return nil
}

// ValidateLLM asks for a JSON object, since the metadata oracle only
// works with models that honour JSON mode.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	if config == nil || !config.IsConfigured() {
		return notConfigured("LLM", config != nil && config.Provider.RequiresAPIKey())
	}
	svc, err := ConnectLLM(config)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	reply, err := svc.Chat(ctx, []driven.ChatMessage{
		{Role: "system", Content: probeSystem},
		{Role: "user", Content: probeText},
	}, driven.ChatOptions{MaxTokens: 16, JSONMode: true})
	if err != nil {
		return fmt.Errorf("%w: probe chat: %w", domain.ErrLLMUnavailable, err)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply)), &obj); err != nil {
		return fmt.Errorf("%w: %s did not reply with JSON; metadata extraction needs a model that supports JSON mode",
			domain.ErrLLMUnavailable, svc.ModelName())
	}
	return nil
}

func notConfigured(kind string, missingKey bool) error {
	if missingKey {
		return fmt.Errorf("%w: %s provider needs an API key", domain.ErrInvalidInput, kind)
	}
	return fmt.Errorf("%w: no %s provider selected", domain.ErrInvalidInput, kind)
}
