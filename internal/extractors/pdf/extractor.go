// Package pdf extracts text from PDF uploads.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles PDF documents.
type Extractor struct{}

// New creates a new PDF extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{domain.MIMETypePDF}
}

// Extract returns the plain text of every page in order.
func (e *Extractor) Extract(ctx context.Context, raw *domain.RawDocument) (string, error) {
	if raw == nil {
		return "", domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(raw.Content) == 0 {
		return "", fmt.Errorf("%w: empty pdf payload", domain.ErrCorruptInput)
	}

	text, err := readPlainText(raw.Content)
	if err != nil {
		return "", err
	}
	text = normaliseText(text)
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrEmptyContent
	}
	return text, nil
}

// readPlainText runs the PDF parser. The parser panics on some malformed
// cross-reference tables, so panics are reported as corrupt input.
func readPlainText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: pdf parser: %v", domain.ErrCorruptInput, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCorruptInput, err)
	}
	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCorruptInput, err)
	}
	out, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCorruptInput, err)
	}
	return string(out), nil
}

// normaliseText converts line endings and drops NUL bytes left by
// some font encodings.
func normaliseText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}
