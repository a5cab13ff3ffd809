package domain

import (
	"fmt"
	"strings"
	"time"
)

// Document represents one uploaded file after extraction and chunking.
// It is owned by exactly one user and is only ever replaced as a whole.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// OwnerID is the user that owns the document.
	OwnerID string

	// Filename is the original upload name.
	Filename string

	// MIMEType is the declared type of the original upload.
	MIMEType string

	// Content is the full extracted text before chunking.
	Content string

	// Chunks are the ordered segments of Content.
	Chunks []Chunk

	// Category selects the metadata schema (college, program, ...).
	Category Category

	// Metadata holds category-specific facts from the metadata oracle.
	// Best-effort: absent keys mean the oracle had no evidence.
	Metadata map[string]any

	// Shareable marks the document as visible to every owner filter.
	Shareable bool

	// IndexedAt is when the document was last (re-)indexed.
	IndexedAt time.Time
}

// NumChunks returns the number of chunks held by the document.
func (d *Document) NumChunks() int {
	return len(d.Chunks)
}

// EmbeddedChunks returns how many chunks carry an embedding.
func (d *Document) EmbeddedChunks() int {
	n := 0
	for i := range d.Chunks {
		if d.Chunks[i].HasEmbedding() {
			n++
		}
	}
	return n
}

// Validate checks the structural invariants of a document record.
// It returns an error wrapping ErrSchemaViolation on the first violation.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.OwnerID) == "" {
		return fmt.Errorf("%w: owner is required", ErrSchemaViolation)
	}
	if strings.TrimSpace(d.Filename) == "" {
		return fmt.Errorf("%w: filename is required", ErrSchemaViolation)
	}
	if len(d.Chunks) == 0 {
		return fmt.Errorf("%w: document has no chunks", ErrSchemaViolation)
	}
	dims := 0
	for i := range d.Chunks {
		c := &d.Chunks[i]
		if c.Index != i {
			return fmt.Errorf("%w: chunk at position %d has index %d", ErrSchemaViolation, i, c.Index)
		}
		if !c.HasEmbedding() {
			continue
		}
		if dims == 0 {
			dims = len(c.Embedding)
		} else if len(c.Embedding) != dims {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrSchemaViolation, i, len(c.Embedding), dims)
		}
	}
	if d.Category != "" && !d.Category.IsValid() {
		return fmt.Errorf("%w: unknown category %q", ErrSchemaViolation, d.Category)
	}
	return nil
}

// Chunk is a bounded text segment belonging to one Document.
type Chunk struct {
	// Index is the 0-based position within the document.
	Index int

	// Content is the text of this segment.
	Content string

	// Embedding is the vector representation for semantic search.
	// Nil when embedding generation failed for this chunk.
	Embedding []float32

	// Truncated is set when content was cut to fit a size limit.
	// Truncation is lossy; the dropped tail is not searchable.
	Truncated bool
}

// HasEmbedding reports whether the chunk takes part in vector search.
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}
