// Package markdown extracts readable text from Markdown uploads.
package markdown

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
	"github.com/custodia-labs/admissions-kb/internal/extractors/plaintext"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles Markdown documents.
type Extractor struct {
	md goldmark.Markdown
}

// New creates a new Markdown extractor with GitHub-flavoured parsing.
func New() *Extractor {
	return &Extractor{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{domain.MIMETypeMarkdown, "text/x-markdown"}
}

// Extract parses the document and returns the text of each block
// (headings, paragraphs, list items, table rows) separated by blank lines.
// Code blocks, raw HTML and images are dropped.
func (e *Extractor) Extract(_ context.Context, raw *domain.RawDocument) (string, error) {
	if raw == nil {
		return "", domain.ErrInvalidInput
	}
	if !utf8.Valid(raw.Content) {
		return "", fmt.Errorf("%w: content is not valid UTF-8", domain.ErrCorruptInput)
	}

	src := []byte(plaintext.Normalise(string(raw.Content)))
	out := e.render(src)
	if strings.TrimSpace(out) == "" {
		return "", domain.ErrEmptyContent
	}
	return out, nil
}

func (e *Extractor) render(src []byte) string {
	doc := e.md.Parser().Parse(text.NewReader(src))

	var (
		blocks []string
		cur    strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			blocks = append(blocks, s)
		}
		cur.Reset()
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.RawHTML, *ast.Image:
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.Heading, *ast.TextBlock, *east.TableRow, *east.TableHeader:
			if !entering {
				flush()
			}
		case *east.TableCell:
			if !entering && node.NextSibling() != nil {
				cur.WriteString(" | ")
			}
		case *ast.Text:
			if entering {
				cur.Write(node.Segment.Value(src))
				switch {
				case node.HardLineBreak():
					cur.WriteString("\n")
				case node.SoftLineBreak():
					cur.WriteString(" ")
				}
			}
		case *ast.String:
			if entering {
				cur.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				cur.Write(node.Label(src))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	flush()

	return strings.Join(blocks, "\n\n")
}
