package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
)

// defaultLimit applies when the caller does not set one.
const defaultLimit = 10

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Owner    string `json:"owner" jsonschema:"the owner whose documents are searched"`
	Query    string `json:"query" jsonschema:"the search query to find documents"`
	Strategy string `json:"strategy,omitempty" jsonschema:"keyword, vector or hybrid (default hybrid)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Category string `json:"category,omitempty" jsonschema:"restrict to college, program, scholarship or general"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results        []SearchResultOutput `json:"results"`
	Count          int                  `json:"count"`
	Degraded       bool                 `json:"degraded,omitempty"`
	DegradedReason string               `json:"degraded_reason,omitempty"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DocumentID string   `json:"document_id"`
	Filename   string   `json:"filename"`
	Category   string   `json:"category,omitempty"`
	Score      float64  `json:"score"`
	Highlights []string `json:"highlights,omitempty"`
	Content    string   `json:"content,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search an owner's admissions documents and documents shared with everyone",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Read the full text and extracted facts of one document found by search",
	}, s.handleGetDocument)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	strategy := domain.Strategy(input.Strategy)
	if strategy == "" {
		strategy = domain.StrategyHybrid
	}

	query := domain.Query{
		Text:     input.Query,
		Strategy: strategy,
		Owner:    domain.OwnerFilter{OwnerID: input.Owner, IncludeShared: true},
		Size:     limit,
		Filters:  domain.SearchFilters{Category: domain.Category(input.Category)},
	}
	if err := query.Validate(); err != nil {
		return nil, SearchOutput{}, err
	}

	resp, err := s.ports.Retrieval.Search(ctx, query)
	if err != nil {
		return nil, SearchOutput{}, fmt.Errorf("search: %w", err)
	}

	output := SearchOutput{
		Results:        make([]SearchResultOutput, len(resp.Results)),
		Count:          len(resp.Results),
		Degraded:       resp.Degraded,
		DegradedReason: resp.DegradedReason,
	}

	for i := range resp.Results {
		r := &resp.Results[i]
		output.Results[i] = SearchResultOutput{
			DocumentID: r.DocumentID,
			Filename:   r.Filename,
			Category:   string(r.Category),
			Score:      r.Score,
			Highlights: r.Highlights,
			Content:    r.ChunkContent,
		}
	}

	return nil, output, nil
}

// GetDocumentInput is the input schema for the get_document tool.
type GetDocumentInput struct {
	Owner      string `json:"owner" jsonschema:"the owner making the request"`
	DocumentID string `json:"document_id" jsonschema:"id from a search result"`
}

// GetDocumentOutput is the output schema for the get_document tool.
type GetDocumentOutput struct {
	ID        string         `json:"id"`
	Filename  string         `json:"filename"`
	Category  string         `json:"category,omitempty"`
	Shareable bool           `json:"shareable,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IndexedAt string         `json:"indexed_at"`
	URI       string         `json:"uri"`
	Content   string         `json:"content"`
}

// handleGetDocument returns a visible document with its extracted text.
// Documents of other owners read as not found.
func (s *Server) handleGetDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDocumentInput,
) (*mcp.CallToolResult, GetDocumentOutput, error) {
	if s.ports.Documents == nil {
		return nil, GetDocumentOutput{}, ErrMissingDocumentService
	}
	if input.Owner == "" || input.DocumentID == "" {
		return nil, GetDocumentOutput{}, fmt.Errorf("%w: owner and document_id are required", domain.ErrInvalidInput)
	}

	doc, err := s.ports.Documents.Get(ctx, input.DocumentID, input.Owner)
	if errors.Is(err, domain.ErrForbidden) {
		err = domain.ErrNotFound
	}
	if err != nil {
		return nil, GetDocumentOutput{}, fmt.Errorf("get document %s: %w", input.DocumentID, err)
	}

	return nil, GetDocumentOutput{
		ID:        doc.ID,
		Filename:  doc.Filename,
		Category:  string(doc.Category),
		Shareable: doc.Shareable,
		Metadata:  doc.Metadata,
		IndexedAt: doc.IndexedAt.UTC().Format(time.RFC3339),
		URI:       documentURI(input.Owner, doc.ID),
		Content:   doc.Content,
	}, nil
}
