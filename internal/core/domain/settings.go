package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// AllAIProviders returns every supported provider in menu order.
func AllAIProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if the provider runs on the local machine.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// DefaultEmbeddingModels returns the default embedding model per provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns the default metadata oracle model per provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "llama3.2",
		AIProviderOpenAI: "gpt-4o-mini",
	}
}

// EmbeddingDimensions returns the vector size of known embedding models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":       768,
		"all-minilm":             384,
		"mxbai-embed-large":      1024,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// StorageBackend selects the document store adapter.
type StorageBackend string

// Available storage backends.
const (
	// StorageSQLite persists documents in a local SQLite database with FTS5.
	StorageSQLite StorageBackend = "sqlite"

	// StorageMemory keeps documents in process memory.
	StorageMemory StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	return b == StorageSQLite || b == StorageMemory
}

// ChunkerSettings configures document segmentation.
type ChunkerSettings struct {
	// MaxChars is the maximum segment size in characters.
	MaxChars int
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// MaxInputChars is the oracle's own input limit, which may be
	// stricter than the chunker's maximum.
	MaxInputChars int

	// Concurrency bounds in-flight embedding calls per document.
	Concurrency int

	// RatePerSecond paces embedding calls across the process.
	RatePerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds configuration of the LLM behind the metadata oracle.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RetrievalSettings holds ranking constants. Weights are deliberately
// not per-query so ranking stays deterministic.
type RetrievalSettings struct {
	// KeywordWeight scales normalised keyword scores in hybrid merges.
	KeywordWeight float64

	// VectorWeight scales normalised vector scores in hybrid merges.
	VectorWeight float64

	// DefaultSize is used when a query does not set one.
	DefaultSize int

	// MaxSize caps the requested result size.
	MaxSize int

	// SubqueryTimeout bounds each hybrid sub-query independently.
	SubqueryTimeout time.Duration
}

// OracleSettings configures the metadata oracle request.
type OracleSettings struct {
	// ExcerptChars is how much of the document text is sent.
	ExcerptChars int
}

// StorageSettings selects and locates the document store.
type StorageSettings struct {
	// Backend is the store adapter.
	Backend StorageBackend

	// DataDir holds the SQLite database. Empty means ~/.admkb/data.
	DataDir string
}

// ServerSettings configures the HTTP surface.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string

	// AllowAllOrigins disables the CORS origin allow-list.
	AllowAllOrigins bool
}

// SessionSettings configures explicit caller sessions.
type SessionSettings struct {
	// TTL is the lifetime of a new session.
	TTL time.Duration
}

// AppSettings holds all application settings.
type AppSettings struct {
	Chunker   ChunkerSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Retrieval RetrievalSettings
	Oracle    OracleSettings
	Storage   StorageSettings
	Server    ServerSettings
	Session   SessionSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left unconfigured; without them indexing still
// produces keyword-searchable documents.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunker: ChunkerSettings{MaxChars: 8000},
		Embedding: EmbeddingSettings{
			MaxInputChars: 8000,
			Concurrency:   4,
			RatePerSecond: 10,
		},
		Retrieval: RetrievalSettings{
			KeywordWeight:   0.5,
			VectorWeight:    0.5,
			DefaultSize:     10,
			MaxSize:         100,
			SubqueryTimeout: 10 * time.Second,
		},
		Oracle:  OracleSettings{ExcerptChars: 12000},
		Storage: StorageSettings{Backend: StorageSQLite},
		Server:  ServerSettings{Addr: "127.0.0.1:8080"},
		Session: SessionSettings{TTL: time.Hour},
	}
}
