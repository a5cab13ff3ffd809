package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driving"
	"github.com/custodia-labs/admissions-kb/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService runs uploads through extraction, chunking, embedding,
// metadata extraction and indexing.
type IngestService struct {
	extractors driven.ExtractorRegistry
	chunker    driven.Chunker
	assembler  *ChunkAssembler
	oracle     driven.MetadataOracle
	store      driven.DocumentStore
	settings   domain.OracleSettings
	now        func() time.Time
}

// NewIngestService creates a new ingest service.
// The oracle parameter is optional (can be nil); documents are then
// indexed without metadata.
func NewIngestService(
	extractors driven.ExtractorRegistry,
	chunker driven.Chunker,
	assembler *ChunkAssembler,
	oracle driven.MetadataOracle,
	store driven.DocumentStore,
	settings domain.OracleSettings,
) *IngestService {
	return &IngestService{
		extractors: extractors,
		chunker:    chunker,
		assembler:  assembler,
		oracle:     oracle,
		store:      store,
		settings:   settings,
		now:        time.Now,
	}
}

// Ingest indexes one upload.
func (s *IngestService) Ingest(ctx context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
	logger.Section("Ingest")
	defer logger.Timed("ingest")()

	raw := req.Raw
	if strings.TrimSpace(raw.OwnerID) == "" {
		return nil, fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(raw.Filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}
	category := req.Category.OrDefault()
	if !category.IsValid() {
		return nil, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidInput, req.Category)
	}
	logger.Debug("Ingesting %q for owner %s (%s, %d bytes)", raw.Filename, raw.OwnerID, raw.MIMEType, len(raw.Content))

	// Extraction and chunking errors are terminal for this document.
	extractor, err := s.extractors.Get(&raw)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", raw.Filename, err)
	}
	text, err := extractor.Extract(ctx, &raw)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", raw.Filename, err)
	}
	logger.Debug("Extracted %d characters", utf8.RuneCountInString(text))

	chunks, err := s.chunker.Chunk(text)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", raw.Filename, err)
	}

	result := &driving.IngestResult{}
	for _, c := range chunks {
		if c.Truncated {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("chunk %d: sentence longer than %d characters was truncated", c.Index, s.chunker.MaxChars()))
		}
	}

	// Embedding failures degrade; only cancellation aborts.
	chunks, report, err := s.assembler.Assemble(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("assemble %s: %w", raw.Filename, err)
	}
	result.Report = report
	for _, w := range report.Warnings {
		result.Warnings = append(result.Warnings, fmt.Sprintf("chunk %d: %v", w.ChunkIndex, w.Err))
	}

	metadata, metaErr := s.extractMetadata(ctx, text, category)
	if metaErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result.Warnings = append(result.Warnings, "metadata: "+metaErr.Error())
	}

	doc := &domain.Document{
		ID:        req.DocumentID,
		OwnerID:   raw.OwnerID,
		Filename:  raw.Filename,
		MIMEType:  raw.MIMEType,
		Content:   text,
		Chunks:    chunks,
		Category:  category,
		Metadata:  metadata,
		Shareable: req.Shareable,
		IndexedAt: s.now().UTC(),
	}

	// Nothing has been written yet, so a cancelled caller leaves no trace.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Once dispatched, the write completes even if the caller goes away.
	id, err := s.store.Index(context.WithoutCancel(ctx), doc)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", raw.Filename, err)
	}
	doc.ID = id

	result.Document = doc
	result.Degraded = report.Degraded() || metaErr != nil
	if result.Degraded {
		logger.Warn("Indexed %s (%s) in degraded mode: %d/%d chunks embedded",
			doc.ID, doc.Filename, report.Embedded, report.Total)
	} else {
		logger.Info("Indexed %s (%s): %d chunks", doc.ID, doc.Filename, report.Total)
	}
	return result, nil
}

// extractMetadata asks the oracle for category facts. A missing oracle
// is not a failure; the document is simply indexed without metadata.
func (s *IngestService) extractMetadata(ctx context.Context, text string, category domain.Category) (map[string]any, error) {
	if s.oracle == nil {
		return nil, nil
	}

	excerpt := text
	if n := s.settings.ExcerptChars; n > 0 && utf8.RuneCountInString(excerpt) > n {
		excerpt = string([]rune(excerpt)[:n])
	}

	metadata, err := s.oracle.Extract(ctx, excerpt, category)
	if err != nil {
		if errors.Is(err, domain.ErrLLMUnavailable) {
			logger.Debug("Metadata oracle unavailable, skipping")
			return nil, nil
		}
		logger.Warn("Metadata extraction failed: %v", err)
		return nil, err
	}
	return metadata, nil
}
