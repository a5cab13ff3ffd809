package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driving"
	"github.com/custodia-labs/admissions-kb/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService manages indexed documents on behalf of their owner.
type DocumentService struct {
	docStore driven.DocumentStore
}

// NewDocumentService creates a new document service.
func NewDocumentService(docStore driven.DocumentStore) *DocumentService {
	return &DocumentService{docStore: docStore}
}

// List returns the documents owned by ownerID, newest first.
// Shareable documents of other owners are not listed.
func (s *DocumentService) List(ctx context.Context, ownerID string) ([]domain.Document, error) {
	owner, err := ownerFilter(ownerID, false)
	if err != nil {
		return nil, err
	}
	return s.docStore.List(ctx, owner)
}

// Get retrieves a document owned by ownerID or marked shareable.
func (s *DocumentService) Get(ctx context.Context, documentID, ownerID string) (*domain.Document, error) {
	owner, err := ownerFilter(ownerID, true)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(documentID) == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	doc, err := s.docStore.Get(ctx, documentID, owner)
	if errors.Is(err, domain.ErrForbidden) {
		logger.Warn("Owner %s denied read of document %s owned by another user", ownerID, documentID)
	}
	return doc, err
}

// Delete removes a document owned by ownerID. ErrForbidden is returned
// unchanged so callers can log it; presenting it to the requester as
// not found is the driving adapter's job.
func (s *DocumentService) Delete(ctx context.Context, documentID, ownerID string) error {
	owner, err := ownerFilter(ownerID, false)
	if err != nil {
		return err
	}
	if strings.TrimSpace(documentID) == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	err = s.docStore.Delete(ctx, documentID, owner)
	switch {
	case errors.Is(err, domain.ErrForbidden):
		logger.Warn("Owner %s denied delete of document %s owned by another user", ownerID, documentID)
	case err == nil:
		logger.Info("Deleted document %s for owner %s", documentID, ownerID)
	}
	return err
}

func ownerFilter(ownerID string, includeShared bool) (domain.OwnerFilter, error) {
	f := domain.OwnerFilter{OwnerID: strings.TrimSpace(ownerID), IncludeShared: includeShared}
	return f, f.Validate()
}
