package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
)

// DocumentStore persists documents with their chunks and exposes
// owner-scoped query primitives. Every operation takes an owner filter;
// no call may read or delete across owners.
type DocumentStore interface {
	// Index upserts a document and its chunks atomically with replace
	// semantics and returns the document ID (assigned when empty).
	// Errors wrap ErrStoreUnavailable (retryable) or ErrSchemaViolation.
	// Re-indexing an ID held by another owner returns ErrForbidden.
	Index(ctx context.Context, doc *domain.Document) (string, error)

	// Get retrieves a document with its chunks.
	Get(ctx context.Context, id string, owner domain.OwnerFilter) (*domain.Document, error)

	// List returns the documents visible to the owner filter, newest first.
	// Chunks are not populated.
	List(ctx context.Context, owner domain.OwnerFilter) ([]domain.Document, error)

	// Delete removes a document and all its chunks. It returns ErrNotFound
	// when no document has the ID and ErrForbidden when it belongs to another owner.
	Delete(ctx context.Context, id string, owner domain.OwnerFilter) error

	// KeywordSearch ranks documents by full-text relevance over document
	// and chunk text. One hit per document.
	KeywordSearch(ctx context.Context, text string, owner domain.OwnerFilter, size int,
		filters domain.SearchFilters) ([]domain.SearchHit, error)

	// VectorSearch ranks documents by cosine similarity of their chunk
	// embeddings. Chunks without embeddings never match. One hit per document.
	VectorSearch(ctx context.Context, vector []float32, owner domain.OwnerFilter, size int,
		filters domain.SearchFilters) ([]domain.SearchHit, error)

	// Close releases resources.
	Close() error
}

// SessionStore persists explicit caller sessions.
type SessionStore interface {
	// Save stores a session.
	Save(ctx context.Context, session domain.Session) error

	// Get retrieves a session by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Delete removes a session.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes every session expired at now and returns
	// how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
