package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Strategy selects how the retrieval engine composes store primitives.
type Strategy string

// Available retrieval strategies.
const (
	// StrategyKeyword uses full-text relevance only.
	StrategyKeyword Strategy = "keyword"

	// StrategyVector uses embedding similarity only.
	StrategyVector Strategy = "vector"

	// StrategyHybrid merges keyword and vector results.
	StrategyHybrid Strategy = "hybrid"
)

// IsValid returns true if the strategy is recognised.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyKeyword, StrategyVector, StrategyHybrid:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s Strategy) String() string {
	return string(s)
}

// Description returns a human-readable description of the strategy.
func (s Strategy) Description() string {
	switch s {
	case StrategyKeyword:
		return "Keyword (full-text relevance)"
	case StrategyVector:
		return "Vector (semantic similarity)"
	case StrategyHybrid:
		return "Hybrid (keyword + vector)"
	default:
		return "Unknown"
	}
}

// OwnerFilter is the mandatory data-isolation constraint on store operations.
type OwnerFilter struct {
	// OwnerID is the requesting user.
	OwnerID string

	// IncludeShared also admits documents explicitly marked shareable.
	IncludeShared bool
}

// Validate rejects an empty owner.
func (f OwnerFilter) Validate() error {
	if strings.TrimSpace(f.OwnerID) == "" {
		return fmt.Errorf("%w: owner filter is required", ErrInvalidInput)
	}
	return nil
}

// Matches reports whether a document passes the filter.
func (f OwnerFilter) Matches(doc *Document) bool {
	if doc.OwnerID == f.OwnerID {
		return true
	}
	return f.IncludeShared && doc.Shareable
}

// SearchFilters are optional structured constraints on a query.
type SearchFilters struct {
	// Category restricts results to one document category.
	Category Category
}

// Matches reports whether a document passes the filters.
func (f SearchFilters) Matches(doc *Document) bool {
	if f.Category != "" && doc.Category != f.Category {
		return false
	}
	return true
}

// Query is an ephemeral retrieval request. It is never persisted.
type Query struct {
	// Text is the query string.
	Text string

	// Strategy is the requested retrieval strategy.
	Strategy Strategy

	// Owner scopes the query to the requesting user.
	Owner OwnerFilter

	// Size is the maximum number of results.
	Size int

	// Filters are optional structured constraints.
	Filters SearchFilters
}

// Validate checks the query is well-formed.
func (q Query) Validate() error {
	if err := q.Owner.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: query text is required", ErrInvalidInput)
	}
	if q.Strategy != "" && !q.Strategy.IsValid() {
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidInput, q.Strategy)
	}
	if q.Size < 0 {
		return fmt.Errorf("%w: size must not be negative", ErrInvalidInput)
	}
	if q.Filters.Category != "" && !q.Filters.Category.IsValid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, q.Filters.Category)
	}
	return nil
}

// SearchHit is one ranked document returned by a store primitive.
type SearchHit struct {
	// DocumentID is the matched document.
	DocumentID string

	// OwnerID is the owner of the matched document.
	OwnerID string

	// Filename is the matched document's file name.
	Filename string

	// Category is the matched document's category.
	Category Category

	// ChunkIndex is the best-matching chunk within the document.
	ChunkIndex int

	// ChunkContent is the text of the best-matching chunk.
	ChunkContent string

	// Score is the store's raw relevance or similarity score (higher is better).
	Score float64

	// IndexedAt is when the document was indexed, used for tie-breaking.
	IndexedAt time.Time
}

// SearchResult represents one ranked entry of a retrieval answer.
type SearchResult struct {
	SearchHit

	// KeywordScore is the normalised keyword contribution (hybrid only).
	KeywordScore float64

	// VectorScore is the normalised vector contribution (hybrid only).
	VectorScore float64

	// Highlights contains snippets with matched terms.
	Highlights []string
}

// SearchResponse is the answer to a Query.
type SearchResponse struct {
	// Strategy is the strategy requested by the caller.
	Strategy Strategy

	// Results are ranked best first.
	Results []SearchResult

	// Degraded is set when the engine could not honour the requested strategy in full.
	Degraded bool

	// DegradedReason explains the degradation for logs and callers.
	DegradedReason string
}

// RankHits orders hits by score descending, then by IndexedAt (newest
// first), then by document ID, and keeps at most size entries.
func RankHits(hits []SearchHit, size int) []SearchHit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if !hits[i].IndexedAt.Equal(hits[j].IndexedAt) {
			return hits[i].IndexedAt.After(hits[j].IndexedAt)
		}
		return hits[i].DocumentID < hits[j].DocumentID
	})
	if size >= 0 && len(hits) > size {
		hits = hits[:size]
	}
	return hits
}
