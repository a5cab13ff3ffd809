package services

import (
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkerMaxChars    = "chunker.max_chars"
	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedBaseURL       = "embedding.base_url"
	keyEmbedAPIKey        = "embedding.api_key"
	keyEmbedMaxInput      = "embedding.max_input_chars"
	keyEmbedConcurrency   = "embedding.concurrency"
	keyEmbedRate          = "embedding.rate_per_second"
	keyLLMProvider        = "llm.provider"
	keyLLMModel           = "llm.model"
	keyLLMBaseURL         = "llm.base_url"
	keyLLMAPIKey          = "llm.api_key"
	keyKeywordWeight      = "retrieval.keyword_weight"
	keyVectorWeight       = "retrieval.vector_weight"
	keyDefaultSize        = "retrieval.default_size"
	keyMaxSize            = "retrieval.max_size"
	keySubqueryTimeoutMS  = "retrieval.subquery_timeout_ms"
	keyOracleExcerptChars = "oracle.excerpt_chars"
	keyStorageBackend     = "storage.backend"
	keyStorageDataDir     = "storage.data_dir"
	keyServerAddr         = "server.addr"
	keyServerAllowOrigins = "server.allow_all_origins"
	keySessionTTLMinutes  = "session.ttl_minutes"
	envOpenAIAPIKey       = "OPENAI_API_KEY"
	defaultOllamaBaseURL  = "http://localhost:11434"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Chunker: domain.ChunkerSettings{
			MaxChars: s.getInt(keyChunkerMaxChars, defaults.Chunker.MaxChars),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:      s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:         s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:       s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:        s.apiKey(keyEmbedAPIKey),
			MaxInputChars: s.getInt(keyEmbedMaxInput, defaults.Embedding.MaxInputChars),
			Concurrency:   s.getInt(keyEmbedConcurrency, defaults.Embedding.Concurrency),
			RatePerSecond: s.getFloat(keyEmbedRate, defaults.Embedding.RatePerSecond),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.apiKey(keyLLMAPIKey),
		},
		Retrieval: domain.RetrievalSettings{
			KeywordWeight:   s.getFloat(keyKeywordWeight, defaults.Retrieval.KeywordWeight),
			VectorWeight:    s.getFloat(keyVectorWeight, defaults.Retrieval.VectorWeight),
			DefaultSize:     s.getInt(keyDefaultSize, defaults.Retrieval.DefaultSize),
			MaxSize:         s.getInt(keyMaxSize, defaults.Retrieval.MaxSize),
			SubqueryTimeout: s.getMillis(keySubqueryTimeoutMS, defaults.Retrieval.SubqueryTimeout),
		},
		Oracle: domain.OracleSettings{
			ExcerptChars: s.getInt(keyOracleExcerptChars, defaults.Oracle.ExcerptChars),
		},
		Storage: domain.StorageSettings{
			Backend: s.getBackend(defaults.Storage.Backend),
			DataDir: s.configStore.GetString(keyStorageDataDir),
		},
		Server: domain.ServerSettings{
			Addr:            s.getString(keyServerAddr, defaults.Server.Addr),
			AllowAllOrigins: s.getBool(keyServerAllowOrigins, defaults.Server.AllowAllOrigins),
		},
		Session: domain.SessionSettings{
			TTL: time.Duration(s.getInt(keySessionTTLMinutes, int(defaults.Session.TTL/time.Minute))) * time.Minute,
		},
	}

	if settings.Embedding.Provider != "" && settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	if settings.LLM.Provider != "" && settings.LLM.Model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[settings.LLM.Provider]
	}

	return settings, nil
}

// Set stores a single setting by its dotted key.
func (s *SettingsService) Set(key string, value any) error {
	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}

	// Set model - use provided or default
	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}

	if err := s.Set(keyEmbedProvider, provider.String()); err != nil {
		return err
	}
	if err := s.Set(keyEmbedModel, model); err != nil {
		return err
	}

	// Local providers need a base URL, cloud providers use the SDK default.
	baseURL := ""
	if provider.IsLocal() {
		baseURL = s.getString(keyEmbedBaseURL, defaultOllamaBaseURL)
	}
	return s.Set(keyEmbedBaseURL, baseURL)
}

// SetLLMProvider configures the LLM behind the metadata oracle.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}

	if model == "" {
		model = domain.DefaultLLMModels()[provider]
	}

	if err := s.Set(keyLLMProvider, provider.String()); err != nil {
		return err
	}
	if err := s.Set(keyLLMModel, model); err != nil {
		return err
	}

	baseURL := ""
	if provider.IsLocal() {
		baseURL = s.getString(keyLLMBaseURL, defaultOllamaBaseURL)
	}
	return s.Set(keyLLMBaseURL, baseURL)
}

// Validate checks if current settings are coherent.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if settings.Chunker.MaxChars <= 0 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, keyChunkerMaxChars)
	}
	if settings.Retrieval.KeywordWeight < 0 || settings.Retrieval.VectorWeight < 0 {
		return fmt.Errorf("%w: retrieval weights must not be negative", domain.ErrInvalidInput)
	}
	if settings.Retrieval.KeywordWeight+settings.Retrieval.VectorWeight == 0 {
		return fmt.Errorf("%w: at least one retrieval weight must be positive", domain.ErrInvalidInput)
	}
	if !settings.Storage.Backend.IsValid() {
		return fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidInput, settings.Storage.Backend)
	}
	if settings.Embedding.Provider != "" && !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %s requires %s", domain.ErrInvalidInput,
			settings.Embedding.Provider, envOpenAIAPIKey)
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) apiKey(key string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return s.getenv(envOpenAIAPIKey)
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getMillis(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return time.Duration(val) * time.Millisecond
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	val := s.configStore.GetString(keyStorageBackend)
	if val == "" {
		return defaultVal
	}
	return domain.StorageBackend(val)
}
