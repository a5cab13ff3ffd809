package driving

import (
	"context"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
)

// DocumentService manages indexed documents on behalf of their owner.
type DocumentService interface {
	// List returns the owner's documents, newest first.
	List(ctx context.Context, ownerID string) ([]domain.Document, error)

	// Get retrieves a document the owner can see.
	Get(ctx context.Context, documentID, ownerID string) (*domain.Document, error)

	// Delete removes a document owned by ownerID.
	Delete(ctx context.Context, documentID, ownerID string) error
}
