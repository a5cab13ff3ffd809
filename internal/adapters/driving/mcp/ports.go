package mcp

import (
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval answers search queries.
	Retrieval driving.RetrievalService

	// Documents lists and reads indexed documents.
	Documents driving.DocumentService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	// Documents is optional; resources report not found without it.
	return nil
}
