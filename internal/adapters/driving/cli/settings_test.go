package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/admissions-kb/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/services"
)

// withSettings installs a settings service over an in-memory config store.
func withSettings(t *testing.T, values map[string]any) *memory.ConfigStore {
	t.Helper()
	store := memory.NewConfigStore(values)
	prev, prevValidator := settingsService, aiValidator
	SetSettingsService(services.NewSettingsService(store))
	SetAIValidator(nil)
	t.Cleanup(func() {
		settingsService = prev
		aiValidator = prevValidator
	})
	return store
}

type stubValidator struct {
	embeddingErr error
	llmErr       error
	embedding    *domain.EmbeddingSettings
}

func (v *stubValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	v.embedding = config
	return v.embeddingErr
}

func (v *stubValidator) ValidateLLM(*domain.LLMSettings) error { return v.llmErr }

func TestSettingsShow_Defaults(t *testing.T) {
	withSettings(t, nil)

	out, err := execute(t, "settings")
	require.NoError(t, err)

	assert.Contains(t, out, "[Embedding]\n  Provider: (none)")
	assert.Contains(t, out, "Max chars: 8000")
	assert.Contains(t, out, "Backend: sqlite")
	assert.Contains(t, out, "Address: 127.0.0.1:8080")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestSettingsShow_MasksAPIKey(t *testing.T) {
	withSettings(t, map[string]any{
		"embedding.provider": "openai",
		"embedding.api_key":  "sk-1234567890abcdef",
	})

	out, err := execute(t, "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "API Key: sk-1...cdef")
	assert.Contains(t, out, "Model: text-embedding-3-small")
	assert.NotContains(t, out, "1234567890")
}

func TestSettingsSet(t *testing.T) {
	store := withSettings(t, nil)

	out, err := execute(t, "settings", "set", "chunker.max_chars", "6000")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved chunker.max_chars = 6000")
	assert.Equal(t, 6000, store.GetInt("chunker.max_chars"))

	out, err = execute(t, "settings", "set", "retrieval.keyword_weight", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved retrieval.keyword_weight = 0")

	out, err = execute(t, "settings", "set", "retrieval.vector_weight", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "configuration is now invalid")
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, int64(42), parseValue("42"))
	assert.InDelta(t, 0.7, parseValue("0.7"), 1e-9)
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, "memory", parseValue("memory"))
	assert.Equal(t, "0.0.0.0:8080", parseValue("0.0.0.0:8080"))
}

func TestSettingsEmbedding_Ollama(t *testing.T) {
	store := withSettings(t, nil)
	validator := &stubValidator{}
	SetAIValidator(validator)

	out, err := executeWithInput(t, "1\nall-minilm\n", "settings", "embedding")
	require.NoError(t, err)

	assert.Contains(t, out, "Validating configuration... OK")
	assert.Equal(t, "ollama", store.GetString("embedding.provider"))
	assert.Equal(t, "all-minilm", store.GetString("embedding.model"))
	assert.Equal(t, "http://localhost:11434", store.GetString("embedding.base_url"))
	require.NotNil(t, validator.embedding)
	assert.Equal(t, "all-minilm", validator.embedding.Model)
}

func TestSettingsLLM_OpenAIStoresKey(t *testing.T) {
	store := withSettings(t, nil)

	_, err := executeWithInput(t, "2\n\nsk-test-key-123456\n", "settings", "llm")
	require.NoError(t, err)

	assert.Equal(t, "openai", store.GetString("llm.provider"))
	assert.Equal(t, "gpt-4o-mini", store.GetString("llm.model"))
	assert.Equal(t, "sk-test-key-123456", store.GetString("llm.api_key"))
}

func TestSettingsEmbedding_ValidationFails(t *testing.T) {
	withSettings(t, nil)
	SetAIValidator(&stubValidator{embeddingErr: errors.New("connection refused")})

	out, err := executeWithInput(t, "\n\n", "settings", "embedding")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, out, "FAILED")
}

func TestSettingsWizard_SkipsBoth(t *testing.T) {
	store := withSettings(t, nil)

	out, err := executeWithInput(t, "n\nn\n", "settings", "wizard")
	require.NoError(t, err)

	assert.Contains(t, out, "Configuration Complete!")
	assert.Empty(t, store.GetString("embedding.provider"))
	assert.Empty(t, store.GetString("llm.provider"))
}

func TestSettings_NotConfigured(t *testing.T) {
	prev := settingsService
	settingsService = nil
	defer func() { settingsService = prev }()

	_, err := execute(t, "settings", "show")
	assert.EqualError(t, err, "settings service not configured")
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{
			name:       "Empty input returns default",
			input:      "",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Valid choice within range",
			input:      "3",
			maxVal:     5,
			defaultVal: 1,
			expected:   3,
		},
		{
			name:       "Choice below minimum returns default",
			input:      "0",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Choice above maximum returns default",
			input:      "6",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Invalid input returns default",
			input:      "abc",
			maxVal:     5,
			defaultVal: 2,
			expected:   2,
		},
		{
			name:       "Negative number returns default",
			input:      "-1",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Whitespace returns default",
			input:      "   ",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Maximum value is valid",
			input:      "5",
			maxVal:     5,
			defaultVal: 1,
			expected:   5,
		},
		{
			name:       "Minimum value is valid",
			input:      "1",
			maxVal:     5,
			defaultVal: 3,
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseChoice(tt.input, tt.maxVal, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}
