package domain

// ChunkWarning records a per-chunk problem tolerated during indexing.
type ChunkWarning struct {
	// ChunkIndex is the affected chunk.
	ChunkIndex int

	// Err is the tolerated failure. It wraps ErrEmbeddingFailed
	// or describes an input truncated to the embedder limit.
	Err error
}

// AssemblyReport summarises chunk assembly for one document.
type AssemblyReport struct {
	// Total is the number of chunks assembled.
	Total int

	// Embedded is the number of chunks that received a vector.
	Embedded int

	// EmbeddingFailed is the number of chunks whose vector is absent.
	EmbeddingFailed int

	// Truncated is the number of chunks cut to the embedding oracle's input limit.
	Truncated int

	// Warnings holds one entry per tolerated failure.
	Warnings []ChunkWarning
}

// Degraded reports whether any chunk lacks a vector.
func (r AssemblyReport) Degraded() bool {
	return r.EmbeddingFailed > 0
}
