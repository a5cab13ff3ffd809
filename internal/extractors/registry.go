package extractors

import (
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// extensionTypes maps file extensions to MIME types for uploads
// that arrive without a declared type.
var extensionTypes = map[string]string{
	".pdf":      domain.MIMETypePDF,
	".docx":     domain.MIMETypeDOCX,
	".txt":      domain.MIMETypeText,
	".text":     domain.MIMETypeText,
	".md":       domain.MIMETypeMarkdown,
	".markdown": domain.MIMETypeMarkdown,
	".html":     "text/html",
	".htm":      "text/html",
}

// Registry maps MIME types to extractors.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]driven.Extractor
}

// NewRegistry creates an empty extractor registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[string]driven.Extractor),
	}
}

// Register adds an extractor for every MIME type it supports.
// A later registration for the same type replaces the earlier one.
func (r *Registry) Register(e driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range e.SupportedMIMETypes() {
		r.extractors[strings.ToLower(t)] = e
	}
}

// Get returns the extractor for a raw document.
func (r *Registry) Get(raw *domain.RawDocument) (driven.Extractor, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	mimeType := ResolveMIMEType(raw.MIMEType, raw.Filename)

	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractors[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, mimeType)
	}
	return e, nil
}

// SupportedMIMETypes returns every registered MIME type, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.extractors))
	for t := range r.extractors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ResolveMIMEType normalises a declared MIME type, dropping parameters such
// as charset. Empty and generic binary types resolve from the filename
// extension instead.
func ResolveMIMEType(declared, filename string) string {
	mimeType := strings.ToLower(strings.TrimSpace(declared))
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = parsed
	}
	if mimeType != "" && mimeType != "application/octet-stream" {
		return mimeType
	}
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return t
	}
	return mimeType
}

// IsSupportedFile reports whether a filename has an extension the
// registry can resolve without a declared MIME type.
func IsSupportedFile(filename string) bool {
	_, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]
	return ok
}
