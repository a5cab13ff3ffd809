package driving

import (
	"context"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
)

// IngestRequest describes one upload.
type IngestRequest struct {
	// Raw is the uploaded file with its owner and declared type.
	Raw domain.RawDocument

	// DocumentID re-indexes an existing document when set.
	DocumentID string

	// Category selects the metadata schema. Defaults to general.
	Category domain.Category

	// Shareable marks the document visible to every owner.
	Shareable bool
}

// IngestResult reports how an upload was indexed.
type IngestResult struct {
	// Document is the stored record.
	Document *domain.Document

	// Report summarises chunk embedding.
	Report domain.AssemblyReport

	// Warnings lists tolerated failures (embedding, metadata oracle).
	Warnings []string

	// Degraded is set when the document is not fully vector-searchable
	// or its metadata could not be extracted.
	Degraded bool
}

// IngestService runs the extraction, chunking, embedding and indexing pipeline.
type IngestService interface {
	// Ingest indexes one upload. Extraction and chunking errors abort;
	// embedding and metadata failures degrade the result instead.
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)
}
