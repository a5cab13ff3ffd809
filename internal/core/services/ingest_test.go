package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/admissions-kb/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driving"
	"github.com/custodia-labs/admissions-kb/internal/extractors"
	"github.com/custodia-labs/admissions-kb/internal/extractors/plaintext"
	"github.com/custodia-labs/admissions-kb/internal/postprocessors/chunker"
)

// mockOracle implements driven.MetadataOracle for testing.
type mockOracle struct {
	facts    map[string]any
	err      error
	excerpts []string
}

func (m *mockOracle) Extract(_ context.Context, text string, _ domain.Category) (map[string]any, error) {
	m.excerpts = append(m.excerpts, text)
	return m.facts, m.err
}

func newIngestFixture(t *testing.T, emb *mockEmbeddingService, oracle *mockOracle, maxChars int) (*IngestService, *memory.DocumentStore) {
	t.Helper()
	store, err := memory.NewDocumentStore()
	require.NoError(t, err)

	registry := extractors.NewRegistry()
	registry.Register(plaintext.New())

	var assembler *ChunkAssembler
	if emb != nil {
		assembler = NewChunkAssembler(emb, domain.EmbeddingSettings{Concurrency: 2})
	} else {
		assembler = NewChunkAssembler(nil, domain.EmbeddingSettings{})
	}

	svc := NewIngestService(registry, chunker.New(chunker.WithMaxChars(maxChars)), assembler,
		nil, store, domain.OracleSettings{ExcerptChars: 20})
	if oracle != nil {
		svc.oracle = oracle
	}
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.FixedZone("X", 3600)) }
	return svc, store
}

func upload(owner, name, text string) driving.IngestRequest {
	return driving.IngestRequest{
		Raw: domain.RawDocument{
			OwnerID:  owner,
			Filename: name,
			MIMEType: domain.MIMETypeText,
			Content:  []byte(text),
		},
	}
}

func TestIngestService_HappyPath(t *testing.T) {
	oracle := &mockOracle{facts: map[string]any{"name": "State University"}}
	svc, store := newIngestFixture(t, &mockEmbeddingService{}, oracle, 8000)

	req := upload("alice", "state.txt", "State University admits 12,000 students each year.\n\nApply by January.")
	req.Category = domain.CategoryCollege
	res, err := svc.Ingest(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, res.Degraded)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 1, res.Report.Embedded)
	doc := res.Document
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, domain.CategoryCollege, doc.Category)
	assert.Equal(t, "State University", doc.Metadata["name"])
	assert.Equal(t, time.UTC, doc.IndexedAt.Location())
	assert.Equal(t, []string{"State University adm"}, oracle.excerpts)

	got, err := store.Get(context.Background(), doc.ID, domain.OwnerFilter{OwnerID: "alice"})
	require.NoError(t, err)
	require.Len(t, got.Chunks, 1)
	assert.True(t, got.Chunks[0].HasEmbedding())
}

func TestIngestService_DefaultsToGeneral(t *testing.T) {
	svc, _ := newIngestFixture(t, nil, nil, 8000)

	res, err := svc.Ingest(context.Background(), upload("alice", "notes.txt", "Some notes."))
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryGeneral, res.Document.Category)
	assert.Nil(t, res.Document.Metadata)
}

func TestIngestService_Validation(t *testing.T) {
	svc, _ := newIngestFixture(t, nil, nil, 8000)

	_, err := svc.Ingest(context.Background(), upload("", "a.txt", "x"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Ingest(context.Background(), upload("alice", " ", "x"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	req := upload("alice", "a.txt", "x")
	req.Category = "dormitory"
	_, err = svc.Ingest(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestService_TerminalExtractionErrors(t *testing.T) {
	svc, store := newIngestFixture(t, nil, nil, 8000)
	ctx := context.Background()

	req := upload("alice", "scan.pdf", "%PDF")
	req.Raw.MIMEType = "image/png"
	_, err := svc.Ingest(ctx, req)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	_, err = svc.Ingest(ctx, upload("alice", "blank.txt", "   \n  "))
	assert.ErrorIs(t, err, domain.ErrEmptyContent)

	bad := upload("alice", "bad.txt", "")
	bad.Raw.Content = []byte{0xff, 0xfe, 0xfd}
	_, err = svc.Ingest(ctx, bad)
	assert.ErrorIs(t, err, domain.ErrCorruptInput)

	docs, err := store.List(ctx, domain.OwnerFilter{OwnerID: "alice"})
	require.NoError(t, err)
	assert.Empty(t, docs, "nothing is written on terminal errors")
}

func TestIngestService_EmbeddingFailureDegrades(t *testing.T) {
	emb := &mockEmbeddingService{embedFn: func(_ context.Context, text string) ([]float32, error) {
		if strings.Contains(text, "second") {
			return nil, errors.New("provider timeout")
		}
		return []float32{1, 0, 0}, nil
	}}
	svc, store := newIngestFixture(t, emb, nil, 20)

	res, err := svc.Ingest(context.Background(), upload("alice", "two.txt", "The first part.\n\nThe second part."))
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, 2, res.Report.Total)
	assert.Equal(t, 1, res.Report.EmbeddingFailed)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "provider timeout")

	got, err := store.Get(context.Background(), res.Document.ID, domain.OwnerFilter{OwnerID: "alice"})
	require.NoError(t, err)
	require.Len(t, got.Chunks, 2)
	assert.True(t, got.Chunks[0].HasEmbedding())
	assert.False(t, got.Chunks[1].HasEmbedding())

	hits, err := store.KeywordSearch(context.Background(), "second", domain.OwnerFilter{OwnerID: "alice"}, 5,
		domain.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, hits, 1, "chunk without a vector stays keyword-searchable")
}

func TestIngestService_OracleFailureDegrades(t *testing.T) {
	oracle := &mockOracle{err: domain.ErrMalformedOracleResponse}
	svc, _ := newIngestFixture(t, &mockEmbeddingService{}, oracle, 8000)

	res, err := svc.Ingest(context.Background(), upload("alice", "x.txt", "Text."))
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Nil(t, res.Document.Metadata)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "metadata")
}

func TestIngestService_OracleUnavailableIsNotDegraded(t *testing.T) {
	oracle := &mockOracle{err: domain.ErrLLMUnavailable}
	svc, _ := newIngestFixture(t, &mockEmbeddingService{}, oracle, 8000)

	res, err := svc.Ingest(context.Background(), upload("alice", "x.txt", "Text."))
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.Empty(t, res.Warnings)
}

func TestIngestService_TruncatedChunkWarns(t *testing.T) {
	svc, _ := newIngestFixture(t, &mockEmbeddingService{}, nil, 10)

	res, err := svc.Ingest(context.Background(), upload("alice", "long.txt", strings.Repeat("x", 25)))
	require.NoError(t, err)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "truncated")
	assert.True(t, res.Document.Chunks[0].Truncated)
}

func TestIngestService_ReindexReplaces(t *testing.T) {
	svc, store := newIngestFixture(t, &mockEmbeddingService{}, nil, 8000)
	ctx := context.Background()

	first, err := svc.Ingest(ctx, upload("alice", "a.txt", "Old content."))
	require.NoError(t, err)

	req := upload("alice", "a.txt", "New content.")
	req.DocumentID = first.Document.ID
	second, err := svc.Ingest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.Document.ID, second.Document.ID)

	docs, err := store.List(ctx, domain.OwnerFilter{OwnerID: "alice"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "New content.", docs[0].Content)
}

func TestIngestService_CancelledBeforeWrite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc, store := newIngestFixture(t, &mockEmbeddingService{}, nil, 8000)
	svc.oracle = cancellingOracle{cancel: cancel}

	_, err := svc.Ingest(ctx, upload("alice", "a.txt", "Text."))
	assert.ErrorIs(t, err, context.Canceled)

	docs, err := store.List(context.Background(), domain.OwnerFilter{OwnerID: "alice"})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngestService_StoreFailure(t *testing.T) {
	store := &mockDocumentStore{indexErr: domain.ErrStoreUnavailable}
	registry := extractors.NewRegistry()
	registry.Register(plaintext.New())
	svc := NewIngestService(registry, chunker.New(), NewChunkAssembler(nil, domain.EmbeddingSettings{}),
		nil, store, domain.OracleSettings{})

	_, err := svc.Ingest(context.Background(), upload("alice", "a.txt", "Text."))
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.True(t, domain.IsRetryable(err))
}

// cancellingOracle cancels the caller's context, simulating a client that
// disconnects during metadata extraction.
type cancellingOracle struct {
	cancel context.CancelFunc
}

func (o cancellingOracle) Extract(context.Context, string, domain.Category) (map[string]any, error) {
	o.cancel()
	return map[string]any{}, nil
}
