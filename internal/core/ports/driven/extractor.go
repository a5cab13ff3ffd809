package driven

import (
	"context"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
)

// Extractor converts raw uploaded bytes into plain UTF-8 text.
// Extraction is all-or-nothing: on error no text is returned.
type Extractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// Extract returns the document text. Errors wrap ErrCorruptInput
	// or ErrEmptyContent.
	Extract(ctx context.Context, raw *domain.RawDocument) (string, error)
}

// ExtractorRegistry selects an extractor for a raw document.
type ExtractorRegistry interface {
	// Register adds an extractor for all of its MIME types.
	Register(e Extractor)

	// Get returns the extractor for a raw document, or ErrUnsupportedFormat.
	Get(raw *domain.RawDocument) (Extractor, error)

	// SupportedMIMETypes returns every MIME type with a registered extractor.
	SupportedMIMETypes() []string
}
