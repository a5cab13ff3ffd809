package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
)

func newStore(t *testing.T) *DocumentStore {
	t.Helper()
	store, err := NewDocumentStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func owner(id string) domain.OwnerFilter {
	return domain.OwnerFilter{OwnerID: id}
}

func shared(id string) domain.OwnerFilter {
	return domain.OwnerFilter{OwnerID: id, IncludeShared: true}
}

func testDoc(id, ownerID string, at time.Time, chunks ...domain.Chunk) *domain.Document {
	for i := range chunks {
		chunks[i].Index = i
	}
	return &domain.Document{
		ID:        id,
		OwnerID:   ownerID,
		Filename:  id + ".txt",
		MIMEType:  "text/plain",
		Category:  domain.CategoryGeneral,
		Chunks:    chunks,
		IndexedAt: at,
	}
}

func textChunk(content string, vec ...float32) domain.Chunk {
	return domain.Chunk{Content: content, Embedding: vec}
}

func TestDocumentStore_Index_AssignsID(t *testing.T) {
	store := newStore(t)
	doc := testDoc("", "alice", time.Now(), textChunk("hello"))

	id, err := store.Index(context.Background(), doc)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Empty(t, doc.ID, "caller's document must not be mutated")

	got, err := store.Get(context.Background(), id, owner("alice"))
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	require.Len(t, got.Chunks, 1)
}

func TestDocumentStore_Index_RejectsInvalid(t *testing.T) {
	store := newStore(t)

	_, err := store.Index(context.Background(), testDoc("d1", "alice", time.Now()))
	assert.ErrorIs(t, err, domain.ErrSchemaViolation)

	_, err = store.Index(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrSchemaViolation)
}

func TestDocumentStore_Index_ReplacesChunks(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Now()

	_, err := store.Index(ctx, testDoc("d1", "alice", now,
		textChunk("first version", 1, 0),
		textChunk("old tail", 0, 1)))
	require.NoError(t, err)

	_, err = store.Index(ctx, testDoc("d1", "alice", now.Add(time.Second),
		textChunk("second version", 1, 0)))
	require.NoError(t, err)

	got, err := store.Get(ctx, "d1", owner("alice"))
	require.NoError(t, err)
	require.Len(t, got.Chunks, 1)
	assert.Equal(t, "second version", got.Chunks[0].Content)

	hits, err := store.VectorSearch(ctx, []float32{0, 1}, owner("alice"), 10, domain.SearchFilters{})
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotEqual(t, "old tail", h.ChunkContent)
	}

	hits, err = store.KeywordSearch(ctx, "tail", owner("alice"), 10, domain.SearchFilters{})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDocumentStore_Index_FailedReindexKeepsPreviousVectors(t *testing.T) {
	store := newStore(t)
	now := time.Now()

	_, err := store.Index(context.Background(), testDoc("d1", "alice", now,
		textChunk("first version", 1, 0),
		textChunk("first tail", 0, 1)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Index(ctx, testDoc("d1", "alice", now.Add(time.Second),
		textChunk("second version", 1, 0)))
	require.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	got, err := store.Get(context.Background(), "d1", owner("alice"))
	require.NoError(t, err)
	assert.Equal(t, "first version", got.Chunks[0].Content)

	hits, err := store.VectorSearch(context.Background(), []float32{0, 1}, owner("alice"), 10, domain.SearchFilters{})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "first tail", hits[0].ChunkContent)
}

func TestDocumentStore_Index_OtherOwnersID(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	_, err := store.Index(ctx, testDoc("d1", "alice", time.Now(), textChunk("mine")))
	require.NoError(t, err)

	_, err = store.Index(ctx, testDoc("d1", "bob", time.Now(), textChunk("hijack")))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := store.Get(ctx, "d1", owner("alice"))
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Chunks[0].Content)
}

func TestDocumentStore_Get_OwnerIsolation(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	_, err := store.Index(ctx, testDoc("d1", "alice", time.Now(), textChunk("private")))
	require.NoError(t, err)

	_, err = store.Get(ctx, "d1", owner("bob"))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = store.Get(ctx, "missing", owner("bob"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.Get(ctx, "d1", owner(""))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentStore_Get_Shareable(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	doc := testDoc("d1", "alice", time.Now(), textChunk("public"))
	doc.Shareable = true
	_, err := store.Index(ctx, doc)
	require.NoError(t, err)

	_, err = store.Get(ctx, "d1", owner("bob"))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := store.Get(ctx, "d1", shared("bob"))
	require.NoError(t, err)
	assert.Equal(t, "alice", got.OwnerID)
}

func TestDocumentStore_List_NewestFirst(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		_, err := store.Index(ctx, testDoc(id, "alice", base.Add(time.Duration(i)*time.Hour), textChunk(id)))
		require.NoError(t, err)
	}
	_, err := store.Index(ctx, testDoc("x", "bob", base, textChunk("x")))
	require.NoError(t, err)

	docs, err := store.List(ctx, owner("alice"))
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "c", docs[0].ID)
	assert.Equal(t, "a", docs[2].ID)
	for _, d := range docs {
		assert.Nil(t, d.Chunks)
	}
}

func TestDocumentStore_Delete(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	doc := testDoc("d1", "alice", time.Now(), textChunk("gone soon", 1, 1))
	doc.Shareable = true
	_, err := store.Index(ctx, doc)
	require.NoError(t, err)

	assert.ErrorIs(t, store.Delete(ctx, "d1", shared("bob")), domain.ErrForbidden)
	assert.ErrorIs(t, store.Delete(ctx, "nope", owner("alice")), domain.ErrNotFound)

	require.NoError(t, store.Delete(ctx, "d1", owner("alice")))
	_, err = store.Get(ctx, "d1", owner("alice"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	hits, err := store.VectorSearch(ctx, []float32{1, 1}, owner("alice"), 5, domain.SearchFilters{})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDocumentStore_KeywordSearch(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Now()

	_, err := store.Index(ctx, testDoc("d1", "alice", now,
		textChunk("General campus information."),
		textChunk("The application deadline is January 15. Deadline extensions are rare.")))
	require.NoError(t, err)
	_, err = store.Index(ctx, testDoc("d2", "alice", now, textChunk("Tuition and fees overview.")))
	require.NoError(t, err)
	_, err = store.Index(ctx, testDoc("d3", "bob", now, textChunk("Bob's deadline notes.")))
	require.NoError(t, err)

	hits, err := store.KeywordSearch(ctx, "Deadline", owner("alice"), 10, domain.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "d1", hits[0].DocumentID)
	assert.Equal(t, 1, hits[0].ChunkIndex)
	assert.Greater(t, hits[0].Score, 0.0)
}

func TestDocumentStore_KeywordSearch_CategoryFilter(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	college := testDoc("c1", "alice", time.Now(), textChunk("deadline for college"))
	college.Category = domain.CategoryCollege
	_, err := store.Index(ctx, college)
	require.NoError(t, err)
	_, err = store.Index(ctx, testDoc("g1", "alice", time.Now(), textChunk("deadline general")))
	require.NoError(t, err)

	hits, err := store.KeywordSearch(ctx, "deadline", owner("alice"), 10,
		domain.SearchFilters{Category: domain.CategoryCollege})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].DocumentID)
}

func TestDocumentStore_KeywordSearch_TieBreak(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.Index(ctx, testDoc("b", "alice", base, textChunk("same text")))
	require.NoError(t, err)
	_, err = store.Index(ctx, testDoc("a", "alice", base, textChunk("same text")))
	require.NoError(t, err)
	_, err = store.Index(ctx, testDoc("z", "alice", base.Add(time.Hour), textChunk("same text")))
	require.NoError(t, err)

	hits, err := store.KeywordSearch(ctx, "same", owner("alice"), 10, domain.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []string{"z", "a", "b"}, []string{hits[0].DocumentID, hits[1].DocumentID, hits[2].DocumentID})
}

func TestDocumentStore_VectorSearch(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Now()

	_, err := store.Index(ctx, testDoc("near", "alice", now,
		textChunk("off topic", 0, 1, 0),
		textChunk("on topic", 1, 0.1, 0)))
	require.NoError(t, err)
	_, err = store.Index(ctx, testDoc("far", "alice", now, textChunk("far away", 0, 0, 1)))
	require.NoError(t, err)
	_, err = store.Index(ctx, testDoc("none", "alice", now, textChunk("no vector")))
	require.NoError(t, err)
	_, err = store.Index(ctx, testDoc("other", "bob", now, textChunk("bob", 1, 0, 0)))
	require.NoError(t, err)

	hits, err := store.VectorSearch(ctx, []float32{1, 0, 0}, owner("alice"), 10, domain.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].DocumentID)
	assert.Equal(t, 1, hits[0].ChunkIndex)
	assert.Equal(t, "far", hits[1].DocumentID)
}

func TestDocumentStore_VectorSearch_SharedAndDimensions(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	pub := testDoc("pub", "alice", time.Now(), textChunk("public", 1, 0))
	pub.Shareable = true
	_, err := store.Index(ctx, pub)
	require.NoError(t, err)
	_, err = store.Index(ctx, testDoc("wide", "bob", time.Now(), textChunk("wide", 1, 0, 0)))
	require.NoError(t, err)

	hits, err := store.VectorSearch(ctx, []float32{1, 0}, shared("bob"), 10, domain.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "pub", hits[0].DocumentID)

	hits, err = store.VectorSearch(ctx, []float32{1, 0}, owner("bob"), 10, domain.SearchFilters{})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDocumentStore_VectorSearch_EmptyVector(t *testing.T) {
	store := newStore(t)
	_, err := store.VectorSearch(context.Background(), nil, owner("alice"), 10, domain.SearchFilters{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = store.VectorSearch(context.Background(), []float32{0, 0}, owner("alice"), 10, domain.SearchFilters{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentStore_ConcurrentIndex_LastWriteWins(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Index(ctx, testDoc("shared-id", "alice", time.Now(),
				textChunk(fmt.Sprintf("version %d", i), 1, float32(i))))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := store.Get(ctx, "shared-id", owner("alice"))
	require.NoError(t, err)
	require.Len(t, got.Chunks, 1)
	assert.Equal(t, 1, store.collection.Count())
}
