package driven

import (
	"context"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
)

// MetadataOracle extracts structured facts from document text.
// Output is best-effort: keys come from the category schema and are
// omitted when the oracle has no evidence for them.
type MetadataOracle interface {
	// Extract returns facts for the given category. Malformed oracle
	// payloads are rejected with ErrMalformedOracleResponse.
	Extract(ctx context.Context, text string, category domain.Category) (map[string]any, error)
}
