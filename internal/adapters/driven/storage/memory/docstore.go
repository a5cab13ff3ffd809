package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
	"github.com/custodia-labs/admissions-kb/internal/logger"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

const collectionName = "chunks"

// Chunk metadata keys held in the vector collection.
const (
	metaDocumentID = "document_id"
	metaOwnerID    = "owner_id"
	metaShareable  = "shareable"
	metaCategory   = "category"
	metaChunkIndex = "chunk_index"
	metaDims       = "dims"
)

var termPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// Documents live in a map; chunk vectors live in a chromem-go collection
// so similarity ranking uses the same index code as a persistent backend.
type DocumentStore struct {
	mu         sync.RWMutex
	documents  map[string]domain.Document
	collection *chromem.Collection
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() (*DocumentStore, error) {
	db := chromem.NewDB()
	// Vectors are always supplied by the chunk assembler.
	noEmbed := func(context.Context, string) ([]float32, error) {
		return nil, errors.New("embedding function not configured")
	}
	col, err := db.GetOrCreateCollection(collectionName, nil, noEmbed)
	if err != nil {
		return nil, fmt.Errorf("%w: create vector collection: %w", domain.ErrStoreUnavailable, err)
	}
	return &DocumentStore{
		documents:  make(map[string]domain.Document),
		collection: col,
	}, nil
}

// Index stores a document, replacing any previous version with the same ID.
func (s *DocumentStore) Index(ctx context.Context, doc *domain.Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("%w: document is nil", domain.ErrSchemaViolation)
	}
	if err := doc.Validate(); err != nil {
		return "", err
	}

	stored := cloneDocument(doc)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.documents[stored.ID]
	if exists && prev.OwnerID != stored.OwnerID {
		return "", domain.ErrForbidden
	}

	// New vectors overwrite the old ones by chunk ID, so the previous
	// version stays searchable until the add has succeeded.
	vectors := chunkVectors(&stored)
	if err := s.addVectors(ctx, vectors); err != nil {
		s.rollbackVectors(ctx, stored.ID, prev, exists)
		return "", err
	}
	if exists {
		if err := s.deleteStaleVectors(ctx, &prev, vectors); err != nil {
			return "", err
		}
	}

	s.documents[stored.ID] = stored
	return stored.ID, nil
}

// Get retrieves a document with its chunks.
func (s *DocumentStore) Get(_ context.Context, id string, owner domain.OwnerFilter) (*domain.Document, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !owner.Matches(&doc) {
		return nil, domain.ErrForbidden
	}
	out := cloneDocument(&doc)
	return &out, nil
}

// List returns visible documents, newest first, without chunks.
func (s *DocumentStore) List(_ context.Context, owner domain.OwnerFilter) ([]domain.Document, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		if !owner.Matches(&doc) {
			continue
		}
		d := cloneDocument(&doc)
		d.Chunks = nil
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].IndexedAt.Equal(docs[j].IndexedAt) {
			return docs[i].IndexedAt.After(docs[j].IndexedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

// Delete removes a document and its chunk vectors.
func (s *DocumentStore) Delete(ctx context.Context, id string, owner domain.OwnerFilter) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	if doc.OwnerID != owner.OwnerID {
		return domain.ErrForbidden
	}
	if err := s.deleteVectors(ctx, id); err != nil {
		return err
	}
	delete(s.documents, id)
	return nil
}

// KeywordSearch scores chunks by TF-IDF over query terms and keeps the
// best chunk per document. Filename matches add a small bonus.
func (s *DocumentStore) KeywordSearch(_ context.Context, text string, owner domain.OwnerFilter, size int,
	filters domain.SearchFilters) ([]domain.SearchHit, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	terms := uniqueTerms(text)
	if len(terms) == 0 || size <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type candidate struct {
		doc   *domain.Document
		freqs []map[string]int
	}
	var candidates []candidate
	df := make(map[string]int, len(terms))
	totalChunks := 0
	for id := range s.documents {
		doc := s.documents[id]
		if !owner.Matches(&doc) || !filters.Matches(&doc) {
			continue
		}
		c := candidate{doc: &doc, freqs: make([]map[string]int, len(doc.Chunks))}
		for i := range doc.Chunks {
			c.freqs[i] = termFrequencies(doc.Chunks[i].Content, terms)
			for term := range c.freqs[i] {
				df[term]++
			}
		}
		totalChunks += len(doc.Chunks)
		candidates = append(candidates, c)
	}

	var hits []domain.SearchHit
	for _, c := range candidates {
		best, bestScore := -1, 0.0
		for i, freqs := range c.freqs {
			score := 0.0
			for term, tf := range freqs {
				idf := math.Log(1 + float64(totalChunks)/float64(df[term]))
				score += (1 + math.Log(float64(tf))) * idf
			}
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		nameFreqs := termFrequencies(c.doc.Filename, terms)
		if best < 0 && len(nameFreqs) == 0 {
			continue
		}
		if best < 0 {
			best = 0
		}
		bestScore += 0.1 * float64(len(nameFreqs))
		hits = append(hits, newHit(c.doc, best, bestScore))
	}
	return domain.RankHits(hits, size), nil
}

// VectorSearch ranks documents by their best chunk similarity.
func (s *DocumentStore) VectorSearch(ctx context.Context, vector []float32, owner domain.OwnerFilter, size int,
	filters domain.SearchFilters) ([]domain.SearchHit, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if len(vector) == 0 || isZeroVector(vector) {
		return nil, fmt.Errorf("%w: query vector is empty", domain.ErrInvalidInput)
	}
	if size <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	wheres := []map[string]string{{metaOwnerID: owner.OwnerID}}
	if owner.IncludeShared {
		wheres = append(wheres, map[string]string{metaShareable: "true"})
	}

	best := make(map[string]domain.SearchHit)
	for _, where := range wheres {
		where[metaDims] = strconv.Itoa(len(vector))
		if filters.Category != "" {
			where[metaCategory] = string(filters.Category)
		}
		n := s.countMatching(where)
		if n == 0 {
			continue
		}
		results, err := s.collection.QueryEmbedding(ctx, vector, n, where, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: vector query: %w", domain.ErrStoreUnavailable, err)
		}
		for _, r := range results {
			docID := r.Metadata[metaDocumentID]
			doc, ok := s.documents[docID]
			if !ok {
				continue
			}
			score := float64(r.Similarity)
			if prev, seen := best[docID]; seen && prev.Score >= score {
				continue
			}
			idx, err := strconv.Atoi(r.Metadata[metaChunkIndex])
			if err != nil || idx < 0 || idx >= len(doc.Chunks) {
				continue
			}
			best[docID] = newHit(&doc, idx, score)
		}
	}

	hits := make([]domain.SearchHit, 0, len(best))
	for _, h := range best {
		hits = append(hits, h)
	}
	return domain.RankHits(hits, size), nil
}

// Close releases resources.
func (s *DocumentStore) Close() error {
	return nil
}

// countMatching counts stored chunk vectors that satisfy an equality filter.
// chromem-go rejects result counts larger than what it holds.
func (s *DocumentStore) countMatching(where map[string]string) int {
	n := 0
	for _, doc := range s.documents {
		for i := range doc.Chunks {
			c := &doc.Chunks[i]
			if !c.HasEmbedding() || isZeroVector(c.Embedding) {
				continue
			}
			if metadataMatches(&doc, c, where) {
				n++
			}
		}
	}
	return n
}

func metadataMatches(doc *domain.Document, c *domain.Chunk, where map[string]string) bool {
	for k, v := range where {
		var got string
		switch k {
		case metaOwnerID:
			got = doc.OwnerID
		case metaShareable:
			got = strconv.FormatBool(doc.Shareable)
		case metaCategory:
			got = string(doc.Category)
		case metaDims:
			got = strconv.Itoa(len(c.Embedding))
		default:
			return false
		}
		if got != v {
			return false
		}
	}
	return true
}

// chunkVectors builds the vector entries for every chunk with a usable
// embedding.
func chunkVectors(doc *domain.Document) []chromem.Document {
	vectors := make([]chromem.Document, 0, len(doc.Chunks))
	for i := range doc.Chunks {
		c := &doc.Chunks[i]
		if !c.HasEmbedding() || isZeroVector(c.Embedding) {
			continue
		}
		vectors = append(vectors, chromem.Document{
			ID:        chunkID(doc.ID, c.Index),
			Content:   c.Content,
			Embedding: append([]float32(nil), c.Embedding...),
			Metadata: map[string]string{
				metaDocumentID: doc.ID,
				metaOwnerID:    doc.OwnerID,
				metaShareable:  strconv.FormatBool(doc.Shareable),
				metaCategory:   string(doc.Category),
				metaChunkIndex: strconv.Itoa(c.Index),
				metaDims:       strconv.Itoa(len(c.Embedding)),
			},
		})
	}
	return vectors
}

// addVectors adds or overwrites vectors. chromem skips the remaining
// documents without an error once ctx is done, so ctx is checked after.
func (s *DocumentStore) addVectors(ctx context.Context, vectors []chromem.Document) error {
	if len(vectors) == 0 {
		return nil
	}
	err := s.collection.AddDocuments(ctx, vectors, 1)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%w: add vectors: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// rollbackVectors puts back the vectors of the previous version after a
// failed add, or removes the partial add of a new document.
func (s *DocumentStore) rollbackVectors(ctx context.Context, docID string, prev domain.Document, existed bool) {
	ctx = context.WithoutCancel(ctx)
	err := s.deleteVectors(ctx, docID)
	if err == nil && existed {
		err = s.addVectors(ctx, chunkVectors(&prev))
	}
	if err != nil {
		logger.Error("memory store: restoring vectors of %s: %v", docID, err)
	}
}

// deleteStaleVectors removes vectors of the previous version whose chunk
// no longer carries one.
func (s *DocumentStore) deleteStaleVectors(ctx context.Context, prev *domain.Document, current []chromem.Document) error {
	keep := make(map[string]bool, len(current))
	for _, v := range current {
		keep[v.ID] = true
	}
	var stale []string
	for _, v := range chunkVectors(prev) {
		if !keep[v.ID] {
			stale = append(stale, v.ID)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	if err := s.collection.Delete(ctx, nil, nil, stale...); err != nil {
		return fmt.Errorf("%w: delete vectors: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *DocumentStore) deleteVectors(ctx context.Context, docID string) error {
	if s.collection.Count() == 0 {
		return nil
	}
	if err := s.collection.Delete(ctx, map[string]string{metaDocumentID: docID}, nil); err != nil {
		return fmt.Errorf("%w: delete vectors: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func newHit(doc *domain.Document, chunk int, score float64) domain.SearchHit {
	return domain.SearchHit{
		DocumentID:   doc.ID,
		OwnerID:      doc.OwnerID,
		Filename:     doc.Filename,
		Category:     doc.Category,
		ChunkIndex:   doc.Chunks[chunk].Index,
		ChunkContent: doc.Chunks[chunk].Content,
		Score:        score,
		IndexedAt:    doc.IndexedAt,
	}
}

func uniqueTerms(text string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, t := range termPattern.FindAllString(strings.ToLower(text), -1) {
		if !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}
	return terms
}

// termFrequencies counts occurrences of the given terms in text.
// Terms that do not occur are omitted.
func termFrequencies(text string, terms []string) map[string]int {
	want := make(map[string]bool, len(terms))
	for _, t := range terms {
		want[t] = true
	}
	freqs := make(map[string]int)
	for _, t := range termPattern.FindAllString(strings.ToLower(text), -1) {
		if want[t] {
			freqs[t]++
		}
	}
	return freqs
}

func chunkID(docID string, index int) string {
	return docID + "#" + strconv.Itoa(index)
}

func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func cloneDocument(doc *domain.Document) domain.Document {
	out := *doc
	if doc.Chunks != nil {
		out.Chunks = make([]domain.Chunk, len(doc.Chunks))
		for i, c := range doc.Chunks {
			c.Embedding = append([]float32(nil), c.Embedding...)
			if len(c.Embedding) == 0 {
				c.Embedding = nil
			}
			out.Chunks[i] = c
		}
	}
	if doc.Metadata != nil {
		out.Metadata = make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
