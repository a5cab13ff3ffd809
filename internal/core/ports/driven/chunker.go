package driven

import "github.com/custodia-labs/admissions-kb/internal/core/domain"

// Chunker splits extracted text into ordered, bounded segments.
type Chunker interface {
	// Chunk returns segments with contiguous indices starting at 0.
	// It fails with ErrEmptyInput only for zero-length text.
	Chunk(text string) ([]domain.Chunk, error)

	// MaxChars returns the maximum segment size.
	MaxChars() int
}
