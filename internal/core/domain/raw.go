package domain

// Supported upload MIME types.
const (
	MIMETypePDF      = "application/pdf"
	MIMETypeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMETypeText     = "text/plain"
	MIMETypeMarkdown = "text/markdown"
)

// RawDocument represents uploaded bytes before text extraction.
type RawDocument struct {
	// OwnerID is the user who uploaded the file.
	OwnerID string

	// Filename is the original file name.
	Filename string

	// MIMEType is the declared content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}
