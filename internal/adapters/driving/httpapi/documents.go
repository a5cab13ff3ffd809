package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driving"
)

// documentView is the JSON shape of a stored document.
type documentView struct {
	ID             string         `json:"id"`
	OwnerID        string         `json:"owner_id"`
	Filename       string         `json:"filename"`
	MIMEType       string         `json:"mime_type"`
	Category       string         `json:"category,omitempty"`
	Shareable      bool           `json:"shareable"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Chunks         int            `json:"chunks"`
	EmbeddedChunks int            `json:"embedded_chunks"`
	IndexedAt      time.Time      `json:"indexed_at"`
	Content        string         `json:"content,omitempty"`
}

func newDocumentView(doc *domain.Document, withContent bool) documentView {
	v := documentView{
		ID:             doc.ID,
		OwnerID:        doc.OwnerID,
		Filename:       doc.Filename,
		MIMEType:       doc.MIMEType,
		Category:       string(doc.Category),
		Shareable:      doc.Shareable,
		Metadata:       doc.Metadata,
		Chunks:         doc.NumChunks(),
		EmbeddedChunks: doc.EmbeddedChunks(),
		IndexedAt:      doc.IndexedAt,
	}
	if withContent {
		v.Content = doc.Content
	}
	return v
}

// uploadResponse reports the outcome of an ingest.
type uploadResponse struct {
	Document documentView `json:"document"`
	Chunks   int          `json:"chunks"`
	Embedded int          `json:"embedded"`
	Failed   int          `json:"embedding_failed"`
	Trimmed  int          `json:"truncated"`
	Degraded bool         `json:"degraded"`
	Warnings []string     `json:"warnings,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, fmt.Errorf("%w: reading multipart form: %w", domain.ErrInvalidInput, err))
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: missing file field", domain.ErrInvalidInput))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, fmt.Errorf("%w: reading upload: %w", domain.ErrInvalidInput, err))
		return
	}

	shareable := false
	if v := r.FormValue("shareable"); v != "" {
		shareable, err = strconv.ParseBool(v)
		if err != nil {
			writeError(w, fmt.Errorf("%w: shareable must be a boolean", domain.ErrInvalidInput))
			return
		}
	}

	result, err := s.ports.Ingest.Ingest(r.Context(), driving.IngestRequest{
		Raw: domain.RawDocument{
			OwnerID:  ownerFrom(r.Context()),
			Filename: header.Filename,
			MIMEType: header.Header.Get("Content-Type"),
			Content:  content,
		},
		DocumentID: strings.TrimSpace(r.FormValue("id")),
		Category:   domain.Category(r.FormValue("category")),
		Shareable:  shareable,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		Document: newDocumentView(result.Document, false),
		Chunks:   result.Report.Total,
		Embedded: result.Report.Embedded,
		Failed:   result.Report.EmbeddingFailed,
		Trimmed:  result.Report.Truncated,
		Degraded: result.Degraded,
		Warnings: result.Warnings,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.ports.Documents.List(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]documentView, len(docs))
	for i := range docs {
		views[i] = newDocumentView(&docs[i], false)
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": views, "count": len(views)})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.ports.Documents.Get(r.Context(), chi.URLParam(r, "id"), ownerFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDocumentView(doc, true))
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	err := s.ports.Documents.Delete(r.Context(), chi.URLParam(r, "id"), ownerFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
