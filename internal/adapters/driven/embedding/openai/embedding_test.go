package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
)

func newTestService(t *testing.T, handler http.HandlerFunc, cfg Config) *EmbeddingService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg.APIKey = "sk-test"
	cfg.BaseURL = srv.URL + "/v1"
	svc, err := NewEmbeddingService(cfg)
	require.NoError(t, err)
	return svc
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, 1536, svc.Dimensions())
	assert.Equal(t, DefaultMaxInputChars, svc.MaxInputChars())
	assert.Zero(t, svc.requestDims)
}

func TestNewEmbeddingService_Errors(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.Error(t, err)

	_, err = NewEmbeddingService(Config{APIKey: "sk-test", Model: "mystery-embed"})
	assert.Error(t, err)

	svc, err := NewEmbeddingService(Config{APIKey: "sk-test", Model: "mystery-embed", Dimensions: 64})
	require.NoError(t, err)
	assert.Equal(t, 64, svc.Dimensions())
}

func TestEmbed(t *testing.T) {
	var got map[string]any
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-large",
			"data":[{"object":"embedding","index":0,"embedding":[0.25,-0.5,1]}],
			"usage":{"prompt_tokens":3,"total_tokens":3}}`))
	}, Config{Model: "text-embedding-3-large", Dimensions: 256})

	vec, err := svc.Embed(context.Background(), "tuition fees")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 1}, vec)
	assert.Equal(t, "text-embedding-3-large", got["model"])
	assert.Equal(t, []any{"tuition fees"}, got["input"])
	assert.InDelta(t, 256, got["dimensions"], 0)
}

func TestEmbed_RateLimited(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"requests","code":"rate_limit_exceeded"}}`))
	}, Config{})

	_, err := svc.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestEmbed_ServerError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}, Config{})

	_, err := svc.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRateLimited)
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	}, Config{})

	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}
