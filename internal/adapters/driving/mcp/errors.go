// Package mcp provides an MCP (Model Context Protocol) server adapter for the
// knowledge base. It lets AI assistants search an owner's indexed documents.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// ErrMissingDocumentService is returned by get_document when the server
// was built without a document service.
var ErrMissingDocumentService = errors.New("mcp: document service is not available")
