// Package plaintext extracts text from plain text uploads.
package plaintext

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

const byteOrderMark = "\uFEFF"

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{domain.MIMETypeText, "text/csv"}
}

// Extract returns the content as text. Payloads that are not valid UTF-8
// are rejected rather than decoded lossily.
func (e *Extractor) Extract(_ context.Context, raw *domain.RawDocument) (string, error) {
	if raw == nil {
		return "", domain.ErrInvalidInput
	}
	if !utf8.Valid(raw.Content) {
		return "", fmt.Errorf("%w: content is not valid UTF-8", domain.ErrCorruptInput)
	}

	text := Normalise(string(raw.Content))
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrEmptyContent
	}
	return text, nil
}

// Normalise strips a leading byte order mark and converts line endings to \n.
func Normalise(s string) string {
	s = strings.TrimPrefix(s, byteOrderMark)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}
