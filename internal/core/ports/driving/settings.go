package driving

import "github.com/custodia-labs/admissions-kb/internal/core/domain"

// SettingsService reads and updates application settings.
type SettingsService interface {
	// Get returns the effective settings: stored values over defaults,
	// with API keys taken from the environment when not stored.
	Get() (*domain.AppSettings, error)

	// SetEmbeddingProvider configures the embedding oracle.
	SetEmbeddingProvider(provider domain.AIProvider, model string) error

	// SetLLMProvider configures the LLM behind the metadata oracle.
	SetLLMProvider(provider domain.AIProvider, model string) error

	// Set stores a single setting by its dotted key.
	Set(key string, value any) error

	// Validate checks that the stored settings are coherent.
	Validate() error
}
