// Package docx extracts text from Word (OOXML) uploads.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

const documentPart = "word/document.xml"

// Extractor handles DOCX documents.
type Extractor struct{}

// New creates a new DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{domain.MIMETypeDOCX}
}

// Extract returns the document body with one paragraph per block,
// separated by blank lines.
func (e *Extractor) Extract(ctx context.Context, raw *domain.RawDocument) (string, error) {
	if raw == nil {
		return "", domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// Open as ZIP archive
	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return "", fmt.Errorf("%w: not a docx archive: %v", domain.ErrCorruptInput, err)
	}

	content, err := readDocumentPart(reader)
	if err != nil {
		return "", err
	}

	text, err := parseDocumentXML(content)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrEmptyContent
	}
	return text, nil
}

// readDocumentPart returns the bytes of word/document.xml.
func readDocumentPart(reader *zip.Reader) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != documentPart {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", domain.ErrCorruptInput, documentPart, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", domain.ErrCorruptInput, documentPart, err)
		}
		return content, nil
	}
	return nil, fmt.Errorf("%w: missing %s", domain.ErrCorruptInput, documentPart)
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
		Tables     []table     `xml:"tbl"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
	Tabs []struct{}    `xml:"tab"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

type table struct {
	Rows []struct {
		Cells []struct {
			Paragraphs []paragraph `xml:"p"`
		} `xml:"tc"`
	} `xml:"tr"`
}

// parseDocumentXML extracts paragraph text from the document XML.
// Tables are appended after body paragraphs, one row per line with
// cells separated by " | ".
func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrCorruptInput, documentPart, err)
	}

	var blocks []string
	for _, para := range doc.Body.Paragraphs {
		if text := strings.TrimSpace(para.text()); text != "" {
			blocks = append(blocks, text)
		}
	}

	for _, tbl := range doc.Body.Tables {
		var rows []string
		for _, row := range tbl.Rows {
			var cells []string
			for _, cell := range row.Cells {
				var parts []string
				for _, para := range cell.Paragraphs {
					if text := strings.TrimSpace(para.text()); text != "" {
						parts = append(parts, text)
					}
				}
				cells = append(cells, strings.Join(parts, " "))
			}
			if line := strings.TrimSpace(strings.Join(cells, " | ")); strings.Trim(line, "| ") != "" {
				rows = append(rows, line)
			}
		}
		if len(rows) > 0 {
			blocks = append(blocks, strings.Join(rows, "\n"))
		}
	}

	return strings.Join(blocks, "\n\n"), nil
}

func (p paragraph) text() string {
	var b strings.Builder
	for _, r := range p.Runs {
		for range r.Tabs {
			b.WriteString("\t")
		}
		for _, t := range r.Text {
			b.WriteString(t.Content)
		}
	}
	return b.String()
}
