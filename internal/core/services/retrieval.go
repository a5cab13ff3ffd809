package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driving"
	"github.com/custodia-labs/admissions-kb/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// maxHighlights caps the snippets attached to one result.
const maxHighlights = 3

// RetrievalService answers queries with keyword, vector or hybrid strategies.
type RetrievalService struct {
	store     driven.DocumentStore
	embedding driven.EmbeddingService
	settings  domain.RetrievalSettings
}

// NewRetrievalService creates a new retrieval service.
// The embedding parameter is optional (can be nil); vector queries then
// degrade to keyword search.
func NewRetrievalService(
	store driven.DocumentStore,
	embedding driven.EmbeddingService,
	settings domain.RetrievalSettings,
) *RetrievalService {
	return &RetrievalService{
		store:     store,
		embedding: embedding,
		settings:  settings,
	}
}

// Search runs the query's strategy against the document store.
func (s *RetrievalService) Search(ctx context.Context, q domain.Query) (*domain.SearchResponse, error) {
	logger.Section("Search Execution")
	defer logger.Timed("search")()

	if err := q.Validate(); err != nil {
		return nil, err
	}
	q.Text = strings.TrimSpace(q.Text)
	if q.Strategy == "" {
		q.Strategy = domain.StrategyHybrid
	}
	q.Size = s.effectiveSize(q.Size)

	logger.Debug("Query: %q, owner: %s, strategy: %s, size: %d",
		q.Text, q.Owner.OwnerID, q.Strategy, q.Size)

	var (
		resp *domain.SearchResponse
		err  error
	)
	switch q.Strategy {
	case domain.StrategyKeyword:
		resp, err = s.keywordOnly(ctx, q)
	case domain.StrategyVector:
		resp, err = s.vectorWithFallback(ctx, q)
	default:
		resp, err = s.hybrid(ctx, q)
	}
	if err != nil {
		return nil, err
	}

	for i := range resp.Results {
		resp.Results[i].Highlights = generateHighlights(resp.Results[i].ChunkContent, q.Text)
	}
	if resp.Degraded {
		logger.Warn("Search degraded for owner %s: %s", q.Owner.OwnerID, resp.DegradedReason)
	}
	logger.Info("Final results: %d", len(resp.Results))
	return resp, nil
}

func (s *RetrievalService) effectiveSize(size int) int {
	if size <= 0 {
		size = s.settings.DefaultSize
	}
	if size <= 0 {
		size = 10
	}
	if s.settings.MaxSize > 0 && size > s.settings.MaxSize {
		size = s.settings.MaxSize
	}
	return size
}

// keywordOnly answers a keyword query. Failure is terminal because there
// is no other strategy to fall back to.
func (s *RetrievalService) keywordOnly(ctx context.Context, q domain.Query) (*domain.SearchResponse, error) {
	hits, err := s.keywordSearch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err)
	}
	return &domain.SearchResponse{
		Strategy: q.Strategy,
		Results:  rankSingle(hits, q.Size),
	}, nil
}

// vectorWithFallback answers a vector query, falling back to keyword
// search when the query cannot be embedded or the vector search fails.
func (s *RetrievalService) vectorWithFallback(ctx context.Context, q domain.Query) (*domain.SearchResponse, error) {
	hits, vecErr := s.vectorSearch(ctx, q)
	if vecErr == nil {
		return &domain.SearchResponse{
			Strategy: q.Strategy,
			Results:  rankSingle(hits, q.Size),
		}, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	logger.Debug("Vector search failed (%v), falling back to keyword", vecErr)
	hits, kwErr := s.keywordSearch(ctx, q)
	if kwErr != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, errors.Join(vecErr, kwErr))
	}
	return &domain.SearchResponse{
		Strategy:       q.Strategy,
		Results:        rankSingle(hits, q.Size),
		Degraded:       true,
		DegradedReason: "vector search unavailable, used keyword: " + vecErr.Error(),
	}, nil
}

// hybrid runs keyword and vector sub-queries in parallel, each under its
// own timeout, and merges what comes back.
func (s *RetrievalService) hybrid(ctx context.Context, q domain.Query) (*domain.SearchResponse, error) {
	logger.Debug("Hybrid search: running keyword and vector searches in parallel")

	var (
		keywordHits, vectorHits []domain.SearchHit
		keywordErr, vectorErr   error
		wg                      sync.WaitGroup
	)
	wg.Add(2)

	go func() {
		defer wg.Done()
		subCtx, cancel := s.subqueryContext(ctx)
		defer cancel()
		keywordHits, keywordErr = s.keywordSearch(subCtx, q)
	}()

	go func() {
		defer wg.Done()
		subCtx, cancel := s.subqueryContext(ctx)
		defer cancel()
		vectorHits, vectorErr = s.vectorSearch(subCtx, q)
	}()

	wg.Wait()

	resp := &domain.SearchResponse{Strategy: q.Strategy}
	switch {
	case keywordErr != nil && vectorErr != nil:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("Hybrid search: both keyword and vector searches failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, errors.Join(keywordErr, vectorErr))

	case keywordErr != nil:
		resp.Results = rankSingle(vectorHits, q.Size)
		resp.Degraded = true
		resp.DegradedReason = "keyword search failed, used vector only: " + keywordErr.Error()

	case vectorErr != nil:
		resp.Results = rankSingle(keywordHits, q.Size)
		resp.Degraded = true
		resp.DegradedReason = "vector search failed, used keyword only: " + vectorErr.Error()

	default:
		logger.Debug("Hybrid search: merging %d keyword + %d vector results",
			len(keywordHits), len(vectorHits))
		resp.Results = mergeHybrid(keywordHits, vectorHits,
			s.settings.KeywordWeight, s.settings.VectorWeight, q.Size)
	}
	return resp, nil
}

func (s *RetrievalService) subqueryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.settings.SubqueryTimeout > 0 {
		return context.WithTimeout(ctx, s.settings.SubqueryTimeout)
	}
	return context.WithCancel(ctx)
}

// keywordSearch performs full-text search against the store.
func (s *RetrievalService) keywordSearch(ctx context.Context, q domain.Query) ([]domain.SearchHit, error) {
	hits, err := s.store.KeywordSearch(ctx, q.Text, q.Owner, q.Size, q.Filters)
	if err != nil {
		logger.Warn("Keyword search error: %v", err)
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	logger.Debug("Keyword search: %d hits", len(hits))
	return hits, nil
}

// vectorSearch embeds the query and performs similarity search.
func (s *RetrievalService) vectorSearch(ctx context.Context, q domain.Query) ([]domain.SearchHit, error) {
	if s.embedding == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	embedding, err := s.embedding.Embed(ctx, q.Text)
	if err != nil {
		logger.Warn("Query embedding failed: %v", err)
		return nil, fmt.Errorf("embed query: %w", err)
	}
	logger.Debug("Query embedding: %d dimensions", len(embedding))

	hits, err := s.store.VectorSearch(ctx, embedding, q.Owner, q.Size, q.Filters)
	if err != nil {
		logger.Warn("Vector search error: %v", err)
		return nil, fmt.Errorf("vector search: %w", err)
	}
	logger.Debug("Vector search: %d hits", len(hits))
	return hits, nil
}

// rankSingle orders one strategy's hits by raw score with the standard
// tie-break and truncates to size.
func rankSingle(hits []domain.SearchHit, size int) []domain.SearchResult {
	results := make([]domain.SearchResult, 0, len(hits))
	for _, h := range dedupeHits(hits) {
		results = append(results, domain.SearchResult{SearchHit: h})
	}
	sortResults(results)
	return truncateResults(results, size)
}

// mergeHybrid min-max normalises each list independently, combines the
// normalised scores with fixed weights and keeps one result per document.
// The best chunk comes from whichever side contributed more.
func mergeHybrid(keyword, vector []domain.SearchHit, keywordWeight, vectorWeight float64, size int) []domain.SearchResult {
	keyword = dedupeHits(keyword)
	vector = dedupeHits(vector)
	kwNorm := normaliseScores(keyword)
	vecNorm := normaliseScores(vector)

	merged := make(map[string]*domain.SearchResult, len(keyword)+len(vector))
	var order []string

	for i, h := range keyword {
		r := &domain.SearchResult{SearchHit: h, KeywordScore: kwNorm[i]}
		r.Score = keywordWeight * kwNorm[i]
		merged[h.DocumentID] = r
		order = append(order, h.DocumentID)
	}

	for i, h := range vector {
		contribution := vectorWeight * vecNorm[i]
		r, ok := merged[h.DocumentID]
		if !ok {
			r = &domain.SearchResult{SearchHit: h}
			r.Score = 0 // the raw similarity is not on the merged scale
			merged[h.DocumentID] = r
			order = append(order, h.DocumentID)
		} else if contribution > r.Score {
			r.ChunkIndex = h.ChunkIndex
			r.ChunkContent = h.ChunkContent
		}
		r.VectorScore = vecNorm[i]
		r.Score += contribution
	}

	results := make([]domain.SearchResult, 0, len(merged))
	for _, id := range order {
		results = append(results, *merged[id])
	}
	sortResults(results)
	return truncateResults(results, size)
}

// normaliseScores maps scores to [0,1] with min-max scaling. A list whose
// scores are all equal maps to 1.
func normaliseScores(hits []domain.SearchHit) []float64 {
	out := make([]float64, len(hits))
	if len(hits) == 0 {
		return out
	}
	lo, hi := hits[0].Score, hits[0].Score
	for _, h := range hits[1:] {
		if h.Score < lo {
			lo = h.Score
		}
		if h.Score > hi {
			hi = h.Score
		}
	}
	for i, h := range hits {
		if hi == lo {
			out[i] = 1
			continue
		}
		out[i] = (h.Score - lo) / (hi - lo)
	}
	return out
}

// dedupeHits keeps the highest-scoring hit per document, preserving
// first-seen order.
func dedupeHits(hits []domain.SearchHit) []domain.SearchHit {
	index := make(map[string]int, len(hits))
	out := make([]domain.SearchHit, 0, len(hits))
	for _, h := range hits {
		if i, ok := index[h.DocumentID]; ok {
			if h.Score > out[i].Score {
				out[i] = h
			}
			continue
		}
		index[h.DocumentID] = len(out)
		out = append(out, h)
	}
	return out
}

// sortResults orders by score descending; equal scores put the most
// recently indexed document first, then the lower document ID.
func sortResults(results []domain.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.IndexedAt.Equal(b.IndexedAt) {
			return a.IndexedAt.After(b.IndexedAt)
		}
		return a.DocumentID < b.DocumentID
	})
}

func truncateResults(results []domain.SearchResult, size int) []domain.SearchResult {
	if size > 0 && len(results) > size {
		return results[:size]
	}
	return results
}

// generateHighlights creates text snippets with matched terms.
func generateHighlights(content, query string) []string {
	queryTerms := strings.Fields(strings.ToLower(query))
	if len(queryTerms) == 0 {
		return nil
	}

	var highlights []string
	for _, sentence := range splitSentences(content) {
		sentenceLower := strings.ToLower(sentence)
		for _, term := range queryTerms {
			if strings.Contains(sentenceLower, term) {
				highlight := sentence
				if runes := []rune(highlight); len(runes) > 200 {
					highlight = string(runes[:200]) + "..."
				}
				highlights = append(highlights, highlight)
				break
			}
		}

		if len(highlights) >= maxHighlights {
			break
		}
	}

	return highlights
}

// splitSentences splits content into sentences.
func splitSentences(content string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range content {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}
