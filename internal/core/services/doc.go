// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Ingest runs extraction, chunking, embedding and indexing; retrieval
// composes the store's keyword and vector primitives. Services depend
// only on ports, never on concrete adapters.
package services
