// Package html extracts readable text from saved web pages, such as
// college admissions pages exported from a browser.
package html

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles HTML documents.
type Extractor struct{}

// New creates a new HTML extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Extract strips markup and returns one paragraph per block element.
func (e *Extractor) Extract(_ context.Context, raw *domain.RawDocument) (string, error) {
	if raw == nil {
		return "", domain.ErrInvalidInput
	}
	if !utf8.Valid(raw.Content) {
		return "", fmt.Errorf("%w: content is not valid UTF-8", domain.ErrCorruptInput)
	}

	text := stripHTML(string(raw.Content))
	if text == "" {
		return "", domain.ErrEmptyContent
	}
	return text, nil
}

// Pre-compiled regular expressions for HTML parsing performance.
var (
	invisibleTags = regexp.MustCompile(`(?is)<(script|style|noscript|head|svg|template)(\s[^>]*)?>.*?</(script|style|noscript|head|svg|template)>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockBoundary = regexp.MustCompile(`(?i)</?(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article|header|footer|ul|ol)(\s[^>]*)?>`)
	lineBreaks    = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	cellBoundary  = regexp.MustCompile(`(?i)</t[dh]>`)
	allTags       = regexp.MustCompile(`<[^>]+>`)
	blankLines    = regexp.MustCompile(`\n\s*\n`)
	spaces        = regexp.MustCompile(`[ \t\f\v]+`)
)

// stripHTML removes tags and decodes entities, keeping block elements as
// blank-line separated paragraphs.
func stripHTML(content string) string {
	content = invisibleTags.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")

	content = blockBoundary.ReplaceAllString(content, "\n\n")
	content = lineBreaks.ReplaceAllString(content, "\n")
	content = cellBoundary.ReplaceAllString(content, " | ")
	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = strings.ReplaceAll(content, "\u00a0", " ")
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var paragraphs []string
	for _, block := range blankLines.Split(content, -1) {
		var lines []string
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(spaces.ReplaceAllString(line, " "))
			line = strings.TrimSpace(strings.TrimSuffix(line, "|"))
			if line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			paragraphs = append(paragraphs, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(paragraphs, "\n\n")
}
