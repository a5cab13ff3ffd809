package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_Seeded(t *testing.T) {
	store := NewConfigStore(map[string]any{"a": "x"}, map[string]any{"a": "y", "n": 3})
	assert.Equal(t, "y", store.GetString("a"))
	assert.Equal(t, 3, store.GetInt("n"))
	assert.Empty(t, store.Path())
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("s", "text"))
	require.NoError(t, store.Set("i", int64(7)))
	require.NoError(t, store.Set("f", 0.25))
	require.NoError(t, store.Set("b", true))
	require.NoError(t, store.Set("l", []any{"x", 1, "y"}))

	assert.Equal(t, "text", store.GetString("s"))
	assert.Equal(t, 7, store.GetInt("i"))
	assert.Equal(t, 7.0, store.GetFloat("i"))
	assert.Equal(t, 0.25, store.GetFloat("f"))
	assert.Equal(t, 0, store.GetInt("s"))
	assert.True(t, store.GetBool("b"))
	assert.False(t, store.GetBool("s"))
	assert.Equal(t, []string{"x", "y"}, store.GetStringSlice("l"))
	assert.Empty(t, store.GetString("missing"))
	assert.Zero(t, store.GetFloat("missing"))
}
