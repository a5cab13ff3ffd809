package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
)

func makeChunks(contents ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(contents))
	for i, c := range contents {
		chunks[i] = domain.Chunk{Index: i, Content: c}
	}
	return chunks
}

func TestChunkAssembler_AllEmbedded(t *testing.T) {
	emb := &mockEmbeddingService{}
	a := NewChunkAssembler(emb, domain.EmbeddingSettings{Concurrency: 2})

	out, report, err := a.Assemble(context.Background(), makeChunks("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, domain.AssemblyReport{Total: 3, Embedded: 3}, report)
	assert.False(t, report.Degraded())
	for i, c := range out {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, []float32{1, 0, 0}, c.Embedding)
	}
	assert.Equal(t, int32(3), emb.calls.Load())
}

func TestChunkAssembler_OneChunkFails(t *testing.T) {
	emb := &mockEmbeddingService{embedFn: func(_ context.Context, text string) ([]float32, error) {
		if text == "bad" {
			return nil, errors.New("boom")
		}
		return []float32{0, 1, 0}, nil
	}}
	a := NewChunkAssembler(emb, domain.EmbeddingSettings{})

	out, report, err := a.Assemble(context.Background(), makeChunks("ok", "bad", "fine"))
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, 2, report.Embedded)
	assert.Equal(t, 1, report.EmbeddingFailed)
	assert.True(t, report.Degraded())

	assert.NotNil(t, out[0].Embedding)
	assert.Nil(t, out[1].Embedding)
	assert.Equal(t, "bad", out[1].Content)
	assert.NotNil(t, out[2].Embedding)

	require.Len(t, report.Warnings, 1)
	assert.Equal(t, 1, report.Warnings[0].ChunkIndex)
	assert.ErrorIs(t, report.Warnings[0].Err, domain.ErrEmbeddingFailed)
}

func TestChunkAssembler_RejectsBadVectors(t *testing.T) {
	emb := &mockEmbeddingService{embedFn: func(_ context.Context, text string) ([]float32, error) {
		switch text {
		case "zero":
			return []float32{0, 0, 0}, nil
		case "short":
			return []float32{1}, nil
		case "empty":
			return nil, nil
		}
		return []float32{1, 1, 1}, nil
	}}
	a := NewChunkAssembler(emb, domain.EmbeddingSettings{})

	out, report, err := a.Assemble(context.Background(), makeChunks("zero", "short", "empty", "good"))
	require.NoError(t, err)
	assert.Equal(t, 3, report.EmbeddingFailed)
	assert.Equal(t, 1, report.Embedded)
	for _, c := range out[:3] {
		assert.Nil(t, c.Embedding)
	}
}

func TestChunkAssembler_TruncatesEmbeddingInput(t *testing.T) {
	var seen []int
	emb := &mockEmbeddingService{maxInput: 5, embedFn: func(_ context.Context, text string) ([]float32, error) {
		seen = append(seen, len([]rune(text)))
		return []float32{1, 0, 0}, nil
	}}
	a := NewChunkAssembler(emb, domain.EmbeddingSettings{Concurrency: 1})

	long := strings.Repeat("é", 12)
	out, report, err := a.Assemble(context.Background(), makeChunks(long))
	require.NoError(t, err)
	assert.Equal(t, []int{5}, seen)
	assert.Equal(t, long, out[0].Content, "stored content keeps the full text")
	assert.Equal(t, 1, report.Truncated)
	assert.Equal(t, 1, report.Embedded)
	assert.False(t, report.Degraded())
}

func TestChunkAssembler_NoEmbeddingService(t *testing.T) {
	a := NewChunkAssembler(nil, domain.EmbeddingSettings{})

	out, report, err := a.Assemble(context.Background(), makeChunks("a", "b"))
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, 2, report.EmbeddingFailed)
	assert.True(t, report.Degraded())
	for _, w := range report.Warnings {
		assert.ErrorIs(t, w.Err, domain.ErrEmbeddingUnavailable)
	}
}

func TestChunkAssembler_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	emb := &mockEmbeddingService{embedFn: func(ctx context.Context, _ string) ([]float32, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	a := NewChunkAssembler(emb, domain.EmbeddingSettings{Concurrency: 1})

	out, _, err := a.Assemble(ctx, makeChunks("a", "b", "c"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, out)
}

func TestChunkAssembler_PacingPastDeadline(t *testing.T) {
	emb := &mockEmbeddingService{}
	a := NewChunkAssembler(emb, domain.EmbeddingSettings{Concurrency: 1, RatePerSecond: 0.001})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	out, _, err := a.Assemble(ctx, makeChunks("a", "b", "c"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, out)
	assert.Equal(t, int32(1), emb.calls.Load())
}

func TestChunkAssembler_RateLimitedChunkFails(t *testing.T) {
	emb := &mockEmbeddingService{embedFn: func(context.Context, string) ([]float32, error) {
		return nil, domain.ErrRateLimited
	}}
	a := NewChunkAssembler(emb, domain.EmbeddingSettings{Concurrency: 1})

	_, report, err := a.Assemble(context.Background(), makeChunks("a"))
	require.NoError(t, err)
	require.Len(t, report.Warnings, 1)
	assert.ErrorIs(t, report.Warnings[0].Err, domain.ErrRateLimited)
	assert.ErrorIs(t, report.Warnings[0].Err, domain.ErrEmbeddingFailed)
}
