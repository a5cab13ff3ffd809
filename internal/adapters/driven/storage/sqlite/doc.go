// Package sqlite provides the SQLite document and session stores.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A single database file backs:
//
//   - DocumentStore: documents, chunks with embeddings, and an FTS5 index
//   - SessionStore: explicit caller sessions
//
// # Search
//
// Keyword search ranks chunk text and filenames with FTS5 bm25. Vector search
// computes cosine similarity in Go over the visible embedded chunks; both
// return one hit per document with its best chunk.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.admkb/data/kb.db
//
// # Thread Safety
//
// All operations are thread-safe. Writes are serialised through one connection;
// re-indexing a document is a single transaction, so the last write wins.
package sqlite
