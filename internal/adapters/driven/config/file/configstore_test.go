package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewConfigStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "home")

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())

	_, err = os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err), "nothing is written until a value is set")
}

func TestNewConfigStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[storage\nbackend="), 0600))

	_, err := NewConfigStore(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config.toml")
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set("embedding.model", "nomic-embed-text"))
	require.NoError(t, store.Set("chunking.max_chars", int64(1200)))
	require.NoError(t, store.Set("search.keyword_weight", 0.3))
	require.NoError(t, store.Set("server.allow_all_origins", true))
	require.NoError(t, store.Set("watch.include", []string{"*.md", "*.pdf"}))

	assert.Equal(t, "nomic-embed-text", store.GetString("embedding.model"))
	assert.Equal(t, 1200, store.GetInt("chunking.max_chars"))
	assert.InDelta(t, 1200.0, store.GetFloat("chunking.max_chars"), 0)
	assert.InDelta(t, 0.3, store.GetFloat("search.keyword_weight"), 1e-9)
	assert.True(t, store.GetBool("server.allow_all_origins"))
	assert.Equal(t, []string{"*.md", "*.pdf"}, store.GetStringSlice("watch.include"))
}

func TestConfigStore_WrongTypeReadsAsZero(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set("embedding.model", "nomic-embed-text"))
	require.NoError(t, store.Set("chunking.max_chars", int64(1200)))

	assert.Zero(t, store.GetInt("embedding.model"))
	assert.Zero(t, store.GetFloat("embedding.model"))
	assert.False(t, store.GetBool("embedding.model"))
	assert.Empty(t, store.GetString("chunking.max_chars"))
	assert.Nil(t, store.GetStringSlice("embedding.model"))
	assert.Empty(t, store.GetString("missing.key"))

	_, ok := store.Get("missing.key")
	assert.False(t, ok)
}

func TestConfigStore_WritesTables(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set("embedding.provider", "ollama"))
	require.NoError(t, store.Set("embedding.model", "all-minilm"))
	require.NoError(t, store.Set("storage.backend", "sqlite"))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[embedding]")
	assert.Contains(t, string(raw), "[storage]")
	assert.NotContains(t, string(raw), "'embedding.provider'")

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestConfigStore_RoundTripsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	first, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set("llm.provider", "openai"))
	require.NoError(t, first.Set("llm.model", "gpt-4o-mini"))
	require.NoError(t, first.Set("chunking.overlap", int64(80)))

	second, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "openai", second.GetString("llm.provider"))
	assert.Equal(t, "gpt-4o-mini", second.GetString("llm.model"))
	assert.Equal(t, 80, second.GetInt("chunking.overlap"))
}

func TestConfigStore_ReadsHandWrittenFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[storage]
backend = "memory"

[search]
vector_weight = 1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "memory", store.GetString("storage.backend"))
	assert.InDelta(t, 1.0, store.GetFloat("search.vector_weight"), 0)
}

func TestConfigStore_LoadDiscardsUnsavedChanges(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set("storage.backend", "sqlite"))

	store.data["storage.backend"] = "memory"
	require.NoError(t, store.Load())
	assert.Equal(t, "sqlite", store.GetString("storage.backend"))
}

func TestConfigStore_EnvironmentOverrides(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set("storage.backend", "sqlite"))
	require.NoError(t, store.Set("chunking.max_chars", int64(1200)))

	t.Setenv("ADMKB_STORAGE_BACKEND", "memory")
	t.Setenv("ADMKB_CHUNKING_MAX_CHARS", "600")
	t.Setenv("ADMKB_SERVER_ALLOW_ALL_ORIGINS", "true")
	t.Setenv("ADMKB_SERVER_ADDR", "8080")
	t.Setenv("ADMKB_WATCH_INCLUDE", "*.md, *.txt")

	assert.Equal(t, "memory", store.GetString("storage.backend"))
	assert.Equal(t, 600, store.GetInt("chunking.max_chars"))
	assert.True(t, store.GetBool("server.allow_all_origins"))
	assert.Equal(t, "8080", store.GetString("server.addr"))
	assert.Equal(t, []string{"*.md", "*.txt"}, store.GetStringSlice("watch.include"))

	// Overrides are never persisted.
	require.NoError(t, store.Save())
	reloaded, err := NewConfigStore(filepath.Dir(store.Path()))
	require.NoError(t, err)
	reloaded.getenv = func(string) string { return "" }
	assert.Equal(t, "sqlite", reloaded.GetString("storage.backend"))
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "ADMKB_EMBEDDING_API_KEY", envName("embedding.api_key"))
	assert.Equal(t, "ADMKB_STORAGE_DATA_DIR", envName("storage.data_dir"))
}

func TestParseScalar(t *testing.T) {
	assert.Equal(t, int64(42), parseScalar("42"))
	assert.Equal(t, 0.5, parseScalar("0.5"))
	assert.Equal(t, false, parseScalar("false"))
	assert.Equal(t, "ollama", parseScalar("ollama"))
}

func TestFlattenAndNest(t *testing.T) {
	nested := map[string]any{
		"embedding": map[string]any{"provider": "ollama", "model": "all-minilm"},
		"version":   int64(1),
	}
	flat := flatten(nested, "")
	assert.Equal(t, map[string]any{
		"embedding.provider": "ollama",
		"embedding.model":    "all-minilm",
		"version":            int64(1),
	}, flat)
	assert.Equal(t, nested, nest(flat))
}

func TestNest_ScalarWinsOverTable(t *testing.T) {
	out := nest(map[string]any{
		"storage":         "sqlite",
		"storage.backend": "memory",
	})
	assert.Equal(t, map[string]any{"storage": "sqlite"}, out)
}
