// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Extractor: Converts uploaded bytes into plain text
//   - ExtractorRegistry: Selects an extractor for a declared MIME type
//   - Chunker: Splits text into bounded segments
//   - DocumentStore: Document persistence with keyword and vector primitives
//   - SessionStore: Explicit caller session persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the pipeline degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, chunks are
//     stored without vectors and vector queries fall back to keyword search.
//   - MetadataOracle: Extracts structured facts. Without it, documents are
//     indexed with empty metadata.
//   - LLMService: Backs the metadata oracle.
//   - PromptStore: Overrides the oracle's built-in instruction.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or extractor package
package driven
