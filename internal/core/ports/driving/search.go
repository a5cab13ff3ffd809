package driving

import (
	"context"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
)

// RetrievalService answers owner-scoped queries.
type RetrievalService interface {
	// Search runs the query's strategy and returns ranked results.
	// It fails with ErrSearchUnavailable when no strategy could answer.
	Search(ctx context.Context, query domain.Query) (*domain.SearchResponse, error)
}
