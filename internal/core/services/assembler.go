package services

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
	"github.com/custodia-labs/admissions-kb/internal/logger"
	"github.com/custodia-labs/admissions-kb/internal/ratelimit"
)

// DefaultEmbeddingConcurrency bounds in-flight embedding calls per document
// when settings leave it unset.
const DefaultEmbeddingConcurrency = 4

// ChunkAssembler attaches embeddings to chunks. Each chunk is embedded
// independently; a failed chunk keeps its text and loses only its vector.
type ChunkAssembler struct {
	embedding   driven.EmbeddingService
	concurrency int
	limiter     *ratelimit.Limiter
}

// NewChunkAssembler creates an assembler. The embedding parameter is
// optional (can be nil); every chunk is then stored without a vector.
func NewChunkAssembler(embedding driven.EmbeddingService, settings domain.EmbeddingSettings) *ChunkAssembler {
	concurrency := settings.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultEmbeddingConcurrency
	}
	return &ChunkAssembler{
		embedding:   embedding,
		concurrency: concurrency,
		limiter: ratelimit.New(ratelimit.Config{
			RequestsPerSecond: settings.RatePerSecond,
			BurstSize:         concurrency,
		}),
	}
}

// chunkOutcome is the per-chunk result slot filled by one worker.
type chunkOutcome struct {
	truncated bool
	err       error
}

// Assemble embeds every chunk and returns them in their original order
// with a report. It waits for all dispatched calls before returning.
// Only cancellation of ctx aborts assembly; the context error is returned
// and no chunks are produced.
func (a *ChunkAssembler) Assemble(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, domain.AssemblyReport, error) {
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)
	report := domain.AssemblyReport{Total: len(out)}

	if a.embedding == nil {
		for i := range out {
			out[i].Embedding = nil
			report.EmbeddingFailed++
			report.Warnings = append(report.Warnings, domain.ChunkWarning{
				ChunkIndex: out[i].Index,
				Err:        fmt.Errorf("%w: %w", domain.ErrEmbeddingFailed, domain.ErrEmbeddingUnavailable),
			})
		}
		return out, report, nil
	}

	maxInput := a.embedding.MaxInputChars()
	outcomes := make([]chunkOutcome, len(out))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i := range out {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return a.embedChunk(gctx, &out[i], &outcomes[i], maxInput)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, domain.AssemblyReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.AssemblyReport{}, err
	}

	for i, o := range outcomes {
		if o.truncated {
			report.Truncated++
			report.Warnings = append(report.Warnings, domain.ChunkWarning{
				ChunkIndex: out[i].Index,
				Err:        fmt.Errorf("embedding input truncated to %d characters", maxInput),
			})
		}
		if o.err != nil {
			report.EmbeddingFailed++
			report.Warnings = append(report.Warnings, domain.ChunkWarning{
				ChunkIndex: out[i].Index,
				Err:        o.err,
			})
			continue
		}
		report.Embedded++
	}

	logger.Debug("Assembled %d chunks: %d embedded, %d failed, %d truncated",
		report.Total, report.Embedded, report.EmbeddingFailed, report.Truncated)
	return out, report, nil
}

// embedChunk requests one embedding. It returns an error only when the
// caller's context is done; oracle failures are recorded in the outcome.
func (a *ChunkAssembler) embedChunk(ctx context.Context, chunk *domain.Chunk, o *chunkOutcome, maxInput int) error {
	chunk.Embedding = nil

	text := chunk.Content
	if maxInput > 0 && utf8.RuneCountInString(text) > maxInput {
		text = string([]rune(text)[:maxInput])
		o.truncated = true
		logger.Warn("Chunk %d exceeds embedding input limit, truncated to %d characters",
			chunk.Index, maxInput)
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	vec, err := a.embedding.Embed(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, domain.ErrRateLimited) {
			a.limiter.Backoff(0)
		}
		logger.Warn("Embedding failed for chunk %d: %v", chunk.Index, err)
		o.err = fmt.Errorf("%w: chunk %d: %w", domain.ErrEmbeddingFailed, chunk.Index, err)
		return nil
	}

	if err := validateVector(vec, a.embedding.Dimensions()); err != nil {
		logger.Warn("Embedding rejected for chunk %d: %v", chunk.Index, err)
		o.err = fmt.Errorf("%w: chunk %d: %w", domain.ErrEmbeddingFailed, chunk.Index, err)
		return nil
	}

	chunk.Embedding = vec
	return nil
}

// validateVector rejects empty, zero and wrongly sized vectors so they
// never match as a zero-vector in similarity search.
func validateVector(vec []float32, dims int) error {
	if len(vec) == 0 {
		return errors.New("empty vector")
	}
	if dims > 0 && len(vec) != dims {
		return fmt.Errorf("vector has %d dimensions, expected %d", len(vec), dims)
	}
	for _, v := range vec {
		if v != 0 {
			return nil
		}
	}
	return errors.New("zero vector")
}
