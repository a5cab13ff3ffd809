// Package domain defines the core business entities of the knowledge base pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawDocument: Uploaded bytes with a declared MIME type
//   - Document: An indexed document owned by exactly one user
//   - Chunk: A bounded, independently searchable segment of a document
//   - Query: An owner-scoped retrieval request
//   - Session: An explicit, expiring caller session
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
