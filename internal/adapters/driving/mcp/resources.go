package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
)

// uriScheme is the custom URI scheme for knowledge base resources.
const uriScheme = "kb://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "owners/{ownerId}/documents",
		Name:        "owner-documents",
		Description: "Documents indexed by an owner",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "owners/{ownerId}/documents/{documentId}",
		Name:        "document-content",
		Description: "Extracted text of a document visible to the owner",
		MIMEType:    "text/plain",
	}, s.handleDocumentContentResource)
}

// documentInfo is the JSON shape of one listed document.
type documentInfo struct {
	ID        string         `json:"id"`
	Filename  string         `json:"filename"`
	Category  string         `json:"category,omitempty"`
	Chunks    int            `json:"chunks"`
	Shareable bool           `json:"shareable,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IndexedAt time.Time      `json:"indexed_at"`
	URI       string         `json:"uri"`
}

func newDocumentInfo(doc *domain.Document, uri string) documentInfo {
	return documentInfo{
		ID:        doc.ID,
		Filename:  doc.Filename,
		Category:  string(doc.Category),
		Chunks:    doc.NumChunks(),
		Shareable: doc.Shareable,
		Metadata:  doc.Metadata,
		IndexedAt: doc.IndexedAt,
		URI:       uri,
	}
}

func documentURI(ownerID, documentID string) string {
	return uriScheme + "owners/" + ownerID + "/documents/" + documentID
}

// handleDocumentsResource returns the owner's documents.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Documents == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	ownerID, docID := parseOwnerURI(req.Params.URI)
	if ownerID == "" || docID != "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	docs, err := s.ports.Documents.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	infos := make([]documentInfo, len(docs))
	for i := range docs {
		infos[i] = newDocumentInfo(&docs[i], documentURI(ownerID, docs[i].ID))
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling documents: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleDocumentContentResource returns the extracted text of a document.
// Documents of other owners read as not found.
func (s *Server) handleDocumentContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Documents == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	ownerID, docID := parseOwnerURI(req.Params.URI)
	if ownerID == "" || docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Documents.Get(ctx, docID, ownerID)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrForbidden) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     doc.Content,
		}},
	}, nil
}

// parseOwnerURI splits kb://owners/{ownerId}/documents[/{documentId}].
// It returns an empty owner when the URI does not match.
func parseOwnerURI(uri string) (ownerID, documentID string) {
	const prefix = uriScheme + "owners/"

	if !strings.HasPrefix(uri, prefix) {
		return "", ""
	}

	parts := strings.Split(strings.TrimPrefix(uri, prefix), "/")
	switch {
	case len(parts) == 2 && parts[0] != "" && parts[1] == "documents":
		return parts[0], ""
	case len(parts) == 3 && parts[0] != "" && parts[1] == "documents" && parts[2] != "":
		return parts[0], parts[2]
	default:
		return "", ""
	}
}
