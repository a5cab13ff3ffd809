package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the entity exists but belongs to another owner.
	// Driving adapters present it to callers exactly like ErrNotFound.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Extraction and chunking errors. All terminal, never retried.

	// ErrUnsupportedFormat indicates no extractor handles the declared file type.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrCorruptInput indicates the parser could not produce text from the payload.
	ErrCorruptInput = errors.New("corrupt input")

	// ErrEmptyContent indicates extraction succeeded but produced no visible text.
	ErrEmptyContent = errors.New("empty content")

	// ErrEmptyInput indicates the chunker was given zero-length text.
	ErrEmptyInput = errors.New("empty input")

	// ErrEmbeddingFailed indicates a single chunk could not be embedded.
	// Indexing proceeds with the chunk's vector absent.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrRateLimited indicates an oracle provider rejected a call for rate limiting.
	// Callers back off before their next request.
	ErrRateLimited = errors.New("rate limited")

	// Store errors.

	// ErrStoreUnavailable indicates a transport or connection failure in the document store.
	// It is retryable; re-indexing with the same document ID is idempotent.
	ErrStoreUnavailable = errors.New("document store unavailable")

	// ErrSchemaViolation indicates a record does not match the expected structure.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrSearchUnavailable indicates no retrieval strategy could answer a query.
	ErrSearchUnavailable = errors.New("search unavailable")

	// Oracle errors.

	// ErrMalformedOracleResponse indicates an oracle payload failed strict schema validation.
	ErrMalformedOracleResponse = errors.New("malformed oracle response")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Metadata extraction is skipped without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Vector search degrades to keyword search without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrSessionExpired indicates the caller's session is past its expiry.
	ErrSessionExpired = errors.New("session expired")
)

// IsRetryable reports whether err is a transient failure the caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
