package mcp

import (
	"context"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	response *domain.SearchResponse
	err      error
	query    domain.Query
}

func (m *mockRetrievalService) Search(_ context.Context, query domain.Query) (*domain.SearchResponse, error) {
	m.query = query
	if m.err != nil {
		return nil, m.err
	}
	if m.response == nil {
		return &domain.SearchResponse{Strategy: query.Strategy}, nil
	}
	return m.response, nil
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	err       error
	ownerID   string
}

func (m *mockDocumentService) List(_ context.Context, ownerID string) ([]domain.Document, error) {
	m.ownerID = ownerID
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _, ownerID string) (*domain.Document, error) {
	m.ownerID = ownerID
	return m.document, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _, _ string) error {
	return m.err
}
